package ws

import "sync"

// PresenceTracker keeps the process-wide set of online users. It counts
// live connections per user, so a user with two tabs open stays online
// when one of them disconnects; only the count reaching zero marks the
// user offline. State is purely in-memory and starts empty on boot.
type PresenceTracker struct {
	mu    sync.RWMutex
	conns map[string]int
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{conns: make(map[string]int)}
}

// Connect records one more live connection for userID and reports whether
// the user just came online.
func (p *PresenceTracker) Connect(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID]++
	return p.conns[userID] == 1
}

// Disconnect records one connection gone and reports whether the user just
// went offline. Unknown users are a no-op.
func (p *PresenceTracker) Disconnect(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.conns[userID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.conns, userID)
		return true
	}
	p.conns[userID] = n - 1
	return false
}

func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conns[userID] > 0
}

// Online returns a snapshot of every online user id.
func (p *PresenceTracker) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	return ids
}
