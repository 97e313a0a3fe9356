package core

import (
	"time"

	"github.com/liveclass/liveclass-server/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventHistory delivers recent messages and a presence snapshot to a
	// client upon joining a room.
	EventHistory EventKind = iota
	// EventUserJoined notifies room peers that a user joined.
	EventUserJoined
	// EventUserLeft notifies room peers that a user left.
	EventUserLeft
	// EventNewMessage notifies room peers about a chat message.
	EventNewMessage
	// EventTyping notifies room peers that a user started typing.
	EventTyping
	// EventStoppedTyping notifies room peers that a user stopped typing.
	EventStoppedTyping
)

// Event is sent to clients to describe what happened in their room.
type Event struct {
	Kind     EventKind
	RoomID   string
	UserID   string
	UserName string
	At       time.Time
	Message  *store.Message   // for EventNewMessage
	Messages []*store.Message // for EventHistory
	Presence []Peer           // for EventHistory
}
