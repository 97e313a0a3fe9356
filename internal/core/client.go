package core

// Client is one live realtime connection as seen by the core layer.
// A user with several devices holds several Clients; each is an
// independent participant in the room it joins.
type Client struct {
	ConnID string
	UserID string
	Name   string
	Events chan *Event
}

// NewClient constructs a client with an initialized event channel.
func NewClient(connID, userID, name string) *Client {
	if name == "" {
		name = userID
	}
	return &Client{
		ConnID: connID,
		UserID: userID,
		Name:   name,
		Events: make(chan *Event, 16),
	}
}

// send delivers an event without blocking. Slow consumers drop events;
// a broken peer must never stall the room.
func (c *Client) send(ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer.
	}
}
