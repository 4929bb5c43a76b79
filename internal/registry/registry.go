// internal/registry/registry.go
package registry

import "sync"

// Registry is a reverse index from connection id to the rooms that connection
// currently occupies. It exists only so disconnect cleanup is O(1) instead of
// a full room scan; Room.Players remains the authoritative membership record.
// All operations are idempotent total functions over the index.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{} // connID -> set of roomIDs
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Track records that a connection occupies a room.
func (r *Registry) Track(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[connID]
	if !ok {
		set = make(map[string]struct{})
		r.rooms[connID] = set
	}
	set[roomID] = struct{}{}
}

// Untrack removes one room from a connection's set.
func (r *Registry) Untrack(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.rooms[connID]; ok {
		delete(set, roomID)
		if len(set) == 0 {
			delete(r.rooms, connID)
		}
	}
}

// RoomsFor returns the rooms a connection currently occupies.
func (r *Registry) RoomsFor(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[connID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// DropRoom removes a room from every connection's set, typically after the
// room itself has been deleted, so no stale index entry outlives its room.
func (r *Registry) DropRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for connID, set := range r.rooms {
		delete(set, roomID)
		if len(set) == 0 {
			delete(r.rooms, connID)
		}
	}
}

// Forget drops every entry for a connection, typically at disconnect.
func (r *Registry) Forget(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, connID)
}
