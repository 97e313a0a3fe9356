package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/liveclass/liveclass-server/internal/store"
)

// Hub coordinates all rooms. Each room is a single-writer domain: every
// mutating operation on one room runs under that room's lock, so joins,
// sends and presence changes are totally ordered per room. Operations on
// different rooms never contend beyond the brief map lookup here.
type Hub struct {
	store        store.MessageStore
	presence     *Registry
	log          *zerolog.Logger
	historyLimit int

	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub creates a hub backed by the given message store. historyLimit is
// how many recent messages a joiner receives.
func NewHub(st store.MessageStore, presence *Registry, logger *zerolog.Logger, historyLimit int) *Hub {
	return &Hub{
		store:        st,
		presence:     presence,
		log:          logger,
		historyLimit: historyLimit,
		rooms:        make(map[string]*room),
	}
}

// Presence exposes the hub's presence registry.
func (h *Hub) Presence() *Registry {
	return h.presence
}

// RoomCount reports how many rooms are currently live in memory.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// acquire pins a room for the duration of one operation, creating it lazily
// when create is set. Returns nil when the room does not exist.
func (h *Hub) acquire(roomID string, create bool) *room {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.rooms[roomID]
	if r == nil {
		if !create {
			return nil
		}
		r = newRoom(roomID)
		h.rooms[roomID] = r
	}
	r.ops++
	return r
}

// release unpins a room and evicts it when it is empty with no operation in
// flight. The message log is unaffected by eviction.
func (h *Hub) release(r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r.ops--
	if r.ops > 0 {
		return
	}

	r.mu.Lock()
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty && h.rooms[r.id] == r {
		delete(h.rooms, r.id)
	}
}

// Join registers a connection in a room, delivers recent history and a
// presence snapshot to the joiner only, and announces the join to everyone
// else. The room is created on first join.
func (h *Hub) Join(ctx context.Context, roomID string, c *Client) error {
	r := h.acquire(roomID, true)
	defer h.release(r)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ConnID]; exists {
		return coreError(ErrCodeBadRequest, "connection already joined")
	}

	history, err := h.store.RecentMessages(ctx, roomID, h.historyLimit)
	if err != nil {
		// History is a convenience; a read failure must not block the join.
		h.log.Warn().Err(err).Str("room_id", roomID).Msg("failed to load room history")
		history = nil
	}

	r.clients[c.ConnID] = c
	h.presence.Add(roomID, c.ConnID, Peer{UserID: c.UserID, Name: c.Name})

	now := time.Now()
	h.appendNotice(ctx, roomID, c, fmt.Sprintf("%s joined", c.Name), now)
	r.broadcastOthers(c.ConnID, &Event{
		Kind:     EventUserJoined,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.Name,
		At:       now,
	})

	c.send(&Event{
		Kind:     EventHistory,
		RoomID:   roomID,
		Messages: history,
		Presence: h.presence.Snapshot(roomID),
	})

	h.log.Debug().Str("room_id", roomID).Str("conn_id", c.ConnID).Str("user_id", c.UserID).Msg("client joined room")
	return nil
}

// Leave removes a connection from a room and announces the departure to the
// remaining participants. It is idempotent: leaving twice, or leaving a room
// never joined, is a no-op. The room is evicted from memory when its last
// participant is gone.
func (h *Hub) Leave(ctx context.Context, roomID, connID string) {
	r := h.acquire(roomID, false)
	if r == nil {
		return
	}
	defer h.release(r)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connID]
	if !ok {
		return
	}
	delete(r.clients, connID)
	h.presence.Remove(roomID, connID)

	// A user's typing flag dies with their last connection; the departure
	// event supersedes a stopped-typing notification.
	if !h.presence.HasConnections(roomID, c.UserID) {
		h.presence.ClearTyping(roomID, c.UserID)
	}

	now := time.Now()
	h.appendNotice(ctx, roomID, c, fmt.Sprintf("%s left", c.Name), now)
	r.broadcast(&Event{
		Kind:     EventUserLeft,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.Name,
		At:       now,
	})

	h.log.Debug().Str("room_id", roomID).Str("conn_id", connID).Str("user_id", c.UserID).Msg("client left room")
}

// Send validates, persists and fans out a chat message. The durability
// write happens before any broadcast: peers never see a message that is not
// stored. The sender receives the fan-out too, carrying the server-assigned
// ID and timestamp.
func (h *Hub) Send(ctx context.Context, roomID, connID, body string) (*store.Message, error) {
	r := h.acquire(roomID, false)
	if r == nil {
		return nil, coreError(ErrCodeNotAParticipant, "not a participant of this room")
	}
	defer h.release(r)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connID]
	if !ok {
		return nil, coreError(ErrCodeNotAParticipant, "not a participant of this room")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, coreError(ErrCodeInvalidMessage, "message is empty")
	}

	msg := &store.Message{
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.Name,
		Kind:     store.MessageKindUser,
		Body:     body,
	}
	if err := h.store.AppendMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to persist message")
		return nil, coreError(ErrCodePersistenceFailed, "message could not be stored")
	}

	r.broadcast(&Event{
		Kind:     EventNewMessage,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.Name,
		At:       msg.CreatedAt,
		Message:  msg,
	})
	return msg, nil
}

// SetTyping updates a user's typing status and notifies the other
// participants. Repeated identical calls are no-ops: an event is emitted
// only when the status actually changes.
func (h *Hub) SetTyping(_ context.Context, roomID, connID string, isTyping bool) error {
	r := h.acquire(roomID, false)
	if r == nil {
		return coreError(ErrCodeNotAParticipant, "not a participant of this room")
	}
	defer h.release(r)

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[connID]
	if !ok {
		return coreError(ErrCodeNotAParticipant, "not a participant of this room")
	}

	var changed bool
	kind := EventStoppedTyping
	if isTyping {
		changed = h.presence.MarkTyping(roomID, c.UserID)
		kind = EventTyping
	} else {
		changed = h.presence.ClearTyping(roomID, c.UserID)
	}
	if !changed {
		return nil
	}

	r.broadcastOthers(connID, &Event{
		Kind:     kind,
		RoomID:   roomID,
		UserID:   c.UserID,
		UserName: c.Name,
		At:       time.Now(),
	})
	return nil
}

// appendNotice persists a join/leave system notice. Notices are best-effort:
// a write failure is logged and never blocks the presence change itself.
func (h *Hub) appendNotice(ctx context.Context, roomID string, c *Client, text string, at time.Time) {
	notice := &store.Message{
		RoomID:    roomID,
		UserID:    c.UserID,
		UserName:  c.Name,
		Kind:      store.MessageKindSystem,
		Body:      text,
		CreatedAt: at,
	}
	if err := h.store.AppendMessage(ctx, notice); err != nil {
		h.log.Warn().Err(err).Str("room_id", roomID).Msg("failed to persist system notice")
	}
}
