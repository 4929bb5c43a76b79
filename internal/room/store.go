// internal/room/store.go
package room

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store manages live rooms in memory only. It is the sole owner of Room and
// Participant records; every mutation happens under the store lock and callers
// receive copies, never aliases into the map.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewStore returns an empty in-memory room store.
func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

// Create allocates a room with a fresh server-generated id and seats the
// creator as host. The room is not yet active; it becomes active when the
// second seat fills.
func (s *Store) Create(gameType string, betAmount float64, connID, displayName string) Room {
	now := time.Now()
	r := &Room{
		ID:        uuid.NewString(),
		GameType:  gameType,
		BetAmount: betAmount,
		Players: []Participant{{
			ConnectionID: connID,
			DisplayName:  displayName,
			Host:         true,
			JoinedAt:     now,
		}},
		SettlementRefs: make(map[string]string),
		CreatedAt:      now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	return r.clone()
}

// CreateMatched allocates a tournament room with both seats filled in one
// step, so no third party can slip into the second seat between the queue
// match and the room becoming live. The first (longer-waiting) party hosts.
func (s *Store) CreateMatched(gameType string, betAmount float64, host, guest Participant, refs map[string]string) Room {
	now := time.Now()
	host.Host = true
	host.JoinedAt = now
	guest.Host = false
	guest.JoinedAt = now

	r := &Room{
		ID:             uuid.NewString(),
		GameType:       gameType,
		BetAmount:      betAmount,
		Players:        []Participant{host, guest},
		Active:         true,
		Tournament:     true,
		SettlementRefs: make(map[string]string),
		CreatedAt:      now,
	}
	for k, v := range refs {
		if v != "" {
			r.SettlementRefs[k] = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
	return r.clone()
}

// Get retrieves a copy of a room if it exists.
func (s *Store) Get(id string) (Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, false
	}
	return r.clone(), true
}

// Join seats a non-host participant. Fails with ErrRoomNotFound if the room
// was never created or already reaped, and ErrRoomFull once both seats are
// taken. A successful join marks the room active.
func (s *Store) Join(id, connID, displayName string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	if len(r.Players) >= MaxSeats {
		return Room{}, ErrRoomFull
	}

	r.Players = append(r.Players, Participant{
		ConnectionID: connID,
		DisplayName:  displayName,
		JoinedAt:     time.Now(),
	})
	r.Active = true
	return r.clone(), nil
}

// RecordMove overwrites the room's opaque game state. The broker stores it
// verbatim; game rules live entirely in the clients.
func (s *Store) RecordMove(id string, state json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	if state != nil {
		r.GameState = append(json.RawMessage(nil), state...)
	}
	return nil
}

// Close marks a room inactive after game over. The record is retained for a
// grace period (until the reaper's age cutoff) so late queries still resolve.
func (s *Store) Close(id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return Room{}, ErrRoomNotFound
	}
	r.Active = false
	return r.clone(), nil
}

// RemoveParticipant vacates the given connection's seat. The room is deleted
// outright when the departing participant hosted it or when nobody remains;
// a departing guest leaves the host in place with the seat reopened.
// Returns the participants still seated and whether the room was deleted.
func (s *Store) RemoveParticipant(id, connID string) (remaining []Participant, deleted bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[id]
	if !exists {
		return nil, false, false
	}

	wasHost := false
	kept := r.Players[:0]
	for _, p := range r.Players {
		if p.ConnectionID == connID {
			wasHost = p.Host
			continue
		}
		kept = append(kept, p)
	}
	r.Players = kept

	if wasHost || len(r.Players) == 0 {
		delete(s.rooms, id)
		return append([]Participant(nil), r.Players...), true, true
	}

	// Seat reopened; the room is joinable again but no longer playable.
	r.Active = false
	return append([]Participant(nil), r.Players...), false, true
}

// ReapBefore deletes every room created before the cutoff, regardless of
// occupancy, and returns the ids it removed.
func (s *Store) ReapBefore(cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reaped []string
	for id, r := range s.rooms {
		if r.CreatedAt.Before(cutoff) {
			delete(s.rooms, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// Counts reports total and active room gauges for diagnostics.
func (s *Store) Counts() (total, active int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.Active {
			active++
		}
	}
	return len(s.rooms), active
}
