// Package session tracks which connections are in which rooms.
package session

import (
	"sort"
	"sync"
)

// Registry is the in-memory room membership table. Both directions of the mapping are
// updated under one lock, so a connection is never visible in a room it has left.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // roomID -> connIDs
	conns map[string]map[string]struct{} // connID -> roomIDs
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join associates connID with roomID. It returns false when the connection was already a
// member, in which case nothing changes.
func (r *Registry) Join(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	if _, already := members[connID]; already {
		return false
	}
	members[connID] = struct{}{}

	joined, ok := r.conns[connID]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[connID] = joined
	}
	joined[roomID] = struct{}{}
	return true
}

// LeaveAll removes connID from every room and returns those rooms, sorted
func (r *Registry) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[connID]
	delete(r.conns, connID)

	left := make([]string, 0, len(joined))
	for roomID := range joined {
		left = append(left, roomID)
		if members, ok := r.rooms[roomID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}
	sort.Strings(left)
	return left
}

// Members returns the connections in roomID, sorted
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.rooms[roomID])
}

// Rooms returns the rooms connID has joined, sorted
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.conns[connID])
}

// IsMember reports whether connID has joined roomID
func (r *Registry) IsMember(connID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][connID]
	return ok
}

// RoomCount returns the number of rooms with at least one member
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
