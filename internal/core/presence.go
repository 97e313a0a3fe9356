package core

import "sync"

// Peer is a participant as exposed in presence snapshots.
type Peer struct {
	UserID string
	Name   string
}

// Registry is in-memory bookkeeping of room presence and typing status.
// It is a derived view, never the source of truth for message content.
// Per-room mutations always arrive from that room's serialized hub context;
// the internal lock only guards the cross-room map structure.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomPresence
}

type roomPresence struct {
	peers  map[string]Peer     // connID -> peer
	typing map[string]struct{} // userID set
}

// NewRegistry constructs an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*roomPresence)}
}

// Add records a participant connection in a room.
func (p *Registry) Add(roomID, connID string, peer Peer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rp := p.rooms[roomID]
	if rp == nil {
		rp = &roomPresence{
			peers:  make(map[string]Peer),
			typing: make(map[string]struct{}),
		}
		p.rooms[roomID] = rp
	}
	rp.peers[connID] = peer
}

// Remove drops a participant connection. The room entry is discarded once
// its last participant is gone.
func (p *Registry) Remove(roomID, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rp := p.rooms[roomID]
	if rp == nil {
		return
	}
	delete(rp.peers, connID)
	if len(rp.peers) == 0 {
		delete(p.rooms, roomID)
	}
}

// MarkTyping flags a user as typing. Returns true if this changed state.
func (p *Registry) MarkTyping(roomID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rp := p.rooms[roomID]
	if rp == nil {
		return false
	}
	if _, already := rp.typing[userID]; already {
		return false
	}
	rp.typing[userID] = struct{}{}
	return true
}

// ClearTyping removes a user's typing flag. Returns true if this changed state.
func (p *Registry) ClearTyping(roomID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	rp := p.rooms[roomID]
	if rp == nil {
		return false
	}
	if _, ok := rp.typing[userID]; !ok {
		return false
	}
	delete(rp.typing, userID)
	return true
}

// HasConnections reports whether a user still has live connections in a room.
func (p *Registry) HasConnections(roomID, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rp := p.rooms[roomID]
	if rp == nil {
		return false
	}
	for _, peer := range rp.peers {
		if peer.UserID == userID {
			return true
		}
	}
	return false
}

// Snapshot returns the set of users present in a room, deduplicated by user.
func (p *Registry) Snapshot(roomID string) []Peer {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rp := p.rooms[roomID]
	if rp == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(rp.peers))
	peers := make([]Peer, 0, len(rp.peers))
	for _, peer := range rp.peers {
		if _, dup := seen[peer.UserID]; dup {
			continue
		}
		seen[peer.UserID] = struct{}{}
		peers = append(peers, peer)
	}
	return peers
}

// TypingSet returns the user IDs currently typing in a room.
func (p *Registry) TypingSet(roomID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rp := p.rooms[roomID]
	if rp == nil {
		return nil
	}
	users := make([]string, 0, len(rp.typing))
	for userID := range rp.typing {
		users = append(users, userID)
	}
	return users
}
