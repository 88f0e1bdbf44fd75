package gateway

import (
	"sync"
)

// RoomTable maps a vacation id to the set of connections currently joined
// to it. Rooms exist only while they have members.
type RoomTable struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func NewRoomTable() *RoomTable {
	return &RoomTable{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds a connection to a room, creating the room entry if absent.
// It reports whether the room was newly created.
func (t *RoomTable) Join(vacationID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[vacationID]
	if !ok {
		members = make(map[string]struct{})
		t.rooms[vacationID] = members
	}

	members[connID] = struct{}{}

	return !ok
}

// Leave removes a connection from a room and deletes the room entry once
// its member set empties. It reports whether the room was removed.
func (t *RoomTable) Leave(vacationID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[vacationID]
	if !ok {
		return false
	}

	delete(members, connID)
	if len(members) == 0 {
		delete(t.rooms, vacationID)
		return true
	}

	return false
}

// Members returns a snapshot of a room's member connection ids. Callers
// may iterate it without holding any lock.
func (t *RoomTable) Members(vacationID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members := make([]string, 0, len(t.rooms[vacationID]))
	for connID := range t.rooms[vacationID] {
		members = append(members, connID)
	}

	return members
}

func (t *RoomTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rooms)
}
