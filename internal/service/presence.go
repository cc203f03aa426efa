package service

import (
	"sync"

	"github.com/google/uuid"
)

// PresenceTracker is the in-memory view of which live connections are
// attached to which room: room -> user -> connection ids. It is liveness
// only; authorization always goes through the membership store.
//
// Empty user and room entries are dropped eagerly.
type PresenceTracker struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uint]map[string]struct{}
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{rooms: make(map[uuid.UUID]map[uint]map[string]struct{})}
}

// AddToRoom records connID of userID as present in roomID. Adding twice is a no-op.
func (p *PresenceTracker) AddToRoom(roomID uuid.UUID, userID uint, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.rooms[roomID]
	if !ok {
		users = make(map[uint]map[string]struct{})
		p.rooms[roomID] = users
	}
	conns, ok := users[userID]
	if !ok {
		conns = make(map[string]struct{})
		users[userID] = conns
	}
	conns[connID] = struct{}{}
}

// RemoveConnectionFromRoom detaches one connection from the room.
func (p *PresenceTracker) RemoveConnectionFromRoom(roomID uuid.UUID, userID uint, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(roomID, userID, connID)
}

// RemoveFromRoom detaches every connection of the user from the room.
func (p *PresenceTracker) RemoveFromRoom(roomID uuid.UUID, userID uint) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.rooms[roomID]
	if !ok {
		return nil
	}
	conns := keys(users[userID])
	delete(users, userID)
	if len(users) == 0 {
		delete(p.rooms, roomID)
	}
	return conns
}

// IsPresent reports whether this connection of the user has joined the room.
func (p *PresenceTracker) IsPresent(roomID uuid.UUID, userID uint, connID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.rooms[roomID][userID][connID]
	return ok
}

// IsUserPresent reports whether any connection of the user has joined the room.
func (p *PresenceTracker) IsUserPresent(roomID uuid.UUID, userID uint) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.rooms[roomID][userID]) > 0
}

// RemoveConnection detaches a closed connection from every room and returns
// the rooms it was in.
func (p *PresenceTracker) RemoveConnection(userID uint, connID string) []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	var left []uuid.UUID
	for roomID, users := range p.rooms {
		if _, ok := users[userID][connID]; ok {
			p.removeLocked(roomID, userID, connID)
			left = append(left, roomID)
		}
	}
	return left
}

// RemoveUserFromAllRooms detaches every connection of the user everywhere.
func (p *PresenceTracker) RemoveUserFromAllRooms(userID uint) []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	var left []uuid.UUID
	for roomID, users := range p.rooms {
		if _, ok := users[userID]; !ok {
			continue
		}
		delete(users, userID)
		if len(users) == 0 {
			delete(p.rooms, roomID)
		}
		left = append(left, roomID)
	}
	return left
}

// DropRoom forgets the room and returns the connections that were attached.
func (p *PresenceTracker) DropRoom(roomID uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var conns []string
	for _, c := range p.rooms[roomID] {
		conns = append(conns, keys(c)...)
	}
	delete(p.rooms, roomID)
	return conns
}

// Users returns the ids of users present in the room.
func (p *PresenceTracker) Users(roomID uuid.UUID) []uint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := make([]uint, 0, len(p.rooms[roomID]))
	for id := range p.rooms[roomID] {
		users = append(users, id)
	}
	return users
}

// Connections returns every connection attached to the room.
func (p *PresenceTracker) Connections(roomID uuid.UUID) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var conns []string
	for _, c := range p.rooms[roomID] {
		conns = append(conns, keys(c)...)
	}
	return conns
}

// RoomCount returns the number of rooms with at least one connection.
func (p *PresenceTracker) RoomCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms)
}

func (p *PresenceTracker) removeLocked(roomID uuid.UUID, userID uint, connID string) {
	users, ok := p.rooms[roomID]
	if !ok {
		return
	}
	if conns, ok := users[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(users, userID)
		}
	}
	if len(users) == 0 {
		delete(p.rooms, roomID)
	}
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
