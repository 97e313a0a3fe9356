package core

import "sync"

// room holds the live connections for one meeting. All mutation happens
// under mu, so message order inside a room equals commit order. ops is an
// in-flight operation count guarded by the hub's lock; a room is evicted
// only when it is empty and no operation still references it.
type room struct {
	id string

	mu      sync.Mutex
	clients map[string]*Client // connID -> client

	ops int
}

func newRoom(id string) *room {
	return &room{
		id:      id,
		clients: make(map[string]*Client),
	}
}

// broadcast sends an event to every client in the room.
// Callers must hold r.mu.
func (r *room) broadcast(ev *Event) {
	for _, c := range r.clients {
		c.send(ev)
	}
}

// broadcastOthers sends an event to every client except the named connection.
// Callers must hold r.mu.
func (r *room) broadcastOthers(exceptConnID string, ev *Event) {
	for connID, c := range r.clients {
		if connID == exceptConnID {
			continue
		}
		c.send(ev)
	}
}
