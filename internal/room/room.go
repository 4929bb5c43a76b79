// internal/room/room.go
package room

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrRoomNotFound is returned when the referenced room id has no live record.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a join is attempted against a room with both seats taken.
	ErrRoomFull = errors.New("room is full")
)

// MaxSeats is the fixed room capacity. The broker only ever pairs two connections.
const MaxSeats = 2

// Participant is one connected party's seat within a Room.
type Participant struct {
	ConnectionID string    `json:"connectionId"`
	DisplayName  string    `json:"displayName"`
	Host         bool      `json:"isHost"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Room pairs up to two participants for one game instance.
//
// GameState is the last-known opaque game payload, kept only so a reconnecting
// client can resync; the broker never interprets its contents. SettlementRefs
// carries caller-supplied transaction hashes through to the settlement ledger,
// keyed by connection id, and is never validated.
type Room struct {
	ID             string            `json:"id"`
	GameType       string            `json:"gameType"`
	BetAmount      float64           `json:"betAmount"`
	Players        []Participant     `json:"players"`
	GameState      json.RawMessage   `json:"gameState,omitempty"`
	Active         bool              `json:"isActive"`
	Tournament     bool              `json:"isTournament"`
	SettlementRefs map[string]string `json:"-"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// Host returns the hosting participant, if any seat is occupied.
func (r *Room) Host() (Participant, bool) {
	for _, p := range r.Players {
		if p.Host {
			return p, true
		}
	}
	return Participant{}, false
}

// Participant returns the seat held by the given connection.
func (r *Room) Participant(connID string) (Participant, bool) {
	for _, p := range r.Players {
		if p.ConnectionID == connID {
			return p, true
		}
	}
	return Participant{}, false
}

// Opponent returns the other seat relative to the given connection.
func (r *Room) Opponent(connID string) (Participant, bool) {
	for _, p := range r.Players {
		if p.ConnectionID != connID {
			return p, true
		}
	}
	return Participant{}, false
}

// clone returns a deep copy safe to hand to callers outside the store lock.
func (r *Room) clone() Room {
	cp := *r
	cp.Players = append([]Participant(nil), r.Players...)
	if r.GameState != nil {
		cp.GameState = append(json.RawMessage(nil), r.GameState...)
	}
	if r.SettlementRefs != nil {
		cp.SettlementRefs = make(map[string]string, len(r.SettlementRefs))
		for k, v := range r.SettlementRefs {
			cp.SettlementRefs[k] = v
		}
	}
	return cp
}

// Payout computes the winner's take and the platform commission for a betted
// room: the pot is both stakes (2x the room bet), the commission is the fixed
// platform cut of the pot, and the winner receives the remainder.
func Payout(betAmount, commissionRate float64) (amount, commission float64) {
	pot := 2 * betAmount
	commission = pot * commissionRate
	return pot - commission, commission
}
