package gateway

import (
	"sync"
	"time"

	"github.com/tripmesh/gateway/internal/types"
)

type presenceState struct {
	refs     int
	lastSeen time.Time // zero until the first offline transition
}

// PresenceTracker tracks per-room, per-user online state. Multiple
// connections from the same user are reference counted internally but
// exposed as a single boolean plus last-seen timestamp. Offline entries
// are retained while the room has live connections so snapshots keep
// reporting last-seen; DropRoom discards them once the room empties.
type PresenceTracker struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*presenceState
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		rooms: make(map[string]map[string]*presenceState),
	}
}

// MarkOnline increments the user's connection count for the room.
func (p *PresenceTracker) MarkOnline(vacationID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.rooms[vacationID]
	if !ok {
		users = make(map[string]*presenceState)
		p.rooms[vacationID] = users
	}

	state, ok := users[userID]
	if !ok {
		state = &presenceState{}
		users[userID] = state
	}

	state.refs++
}

// MarkOffline decrements the user's connection count and stamps lastSeen
// once the count reaches zero. It reports whether the user transitioned
// offline. Calling it for an already offline user is a no-op.
func (p *PresenceTracker) MarkOffline(vacationID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.rooms[vacationID][userID]
	if !ok || state.refs == 0 {
		return false
	}

	state.refs--
	if state.refs > 0 {
		return false
	}

	state.lastSeen = Now()

	return true
}

// IsOnline reports whether the user has at least one live connection
// joined to the room.
func (p *PresenceTracker) IsOnline(vacationID, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, ok := p.rooms[vacationID][userID]
	return ok && state.refs > 0
}

// DropRoom discards every presence entry for the room. Called when the
// room's last connection goes away so offline entries do not accumulate
// for the process lifetime.
func (p *PresenceTracker) DropRoom(vacationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.rooms, vacationID)
}

// Snapshot returns the presence entries of everyone seen in the room.
func (p *PresenceTracker) Snapshot(vacationID string) map[string]types.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]types.PresenceEntry, len(p.rooms[vacationID]))
	for userID, state := range p.rooms[vacationID] {
		entry := types.PresenceEntry{
			IsOnline: state.refs > 0,
		}
		if !state.lastSeen.IsZero() {
			entry.LastSeen = state.lastSeen
		}
		snapshot[userID] = entry
	}

	return snapshot
}
