package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liveclass/liveclass-server/internal/log"
	"github.com/liveclass/liveclass-server/internal/store"
)

// memStore is an in-memory MessageStore for hub tests.
type memStore struct {
	mu         sync.Mutex
	messages   map[string][]*store.Message
	nextID     int64
	failAppend bool
}

func newMemStore() *memStore {
	return &memStore{messages: make(map[string][]*store.Message)}
}

func (m *memStore) AppendMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAppend {
		return errors.New("append failed")
	}
	m.nextID++
	msg.ID = m.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], &cp)
	return nil
}

func (m *memStore) RecentMessages(_ context.Context, roomID string, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var user []*store.Message
	for _, msg := range m.messages[roomID] {
		if msg.Kind == store.MessageKindUser {
			user = append(user, msg)
		}
	}
	if len(user) > limit {
		user = user[len(user)-limit:]
	}
	return user, nil
}

// storedBodies returns the user message bodies for a room in log order.
func (m *memStore) storedBodies(roomID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var bodies []string
	for _, msg := range m.messages[roomID] {
		if msg.Kind == store.MessageKindUser {
			bodies = append(bodies, msg.Body)
		}
	}
	return bodies
}

func newTestHub(st store.MessageStore) *Hub {
	return NewHub(st, NewRegistry(), log.Nop(), 50)
}

// bigClient builds a client with a large event buffer so tests never trip
// the slow-consumer drop.
func bigClient(connID, userID, name string) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		Name:   name,
		Events: make(chan *Event, 256),
	}
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("expected no event, got kind %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}
