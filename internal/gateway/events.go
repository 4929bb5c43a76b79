// internal/gateway/events.go
package gateway

import "encoding/json"

// Inbound payloads. Every event arrives as a single JSON object with a "type"
// field alongside the event's own fields; the envelope is decoded first and
// the raw bytes are re-decoded into the matching struct so missing or
// malformed fields surface as validation errors before any state changes.
//
// The event names below are the canonical schema. The legacy clients used
// player_move, make_move and game_action interchangeably for the relay event;
// all three are accepted and re-emitted as move_made.

type envelope struct {
	Type string `json:"type"`
}

type createRoomPayload struct {
	PlayerName string  `json:"playerName"`
	GameType   string  `json:"gameType"`
	BetAmount  float64 `json:"betAmount"`
}

type checkRoomPayload struct {
	RoomID string `json:"roomId"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	GameType   string `json:"gameType"`
}

type movePayload struct {
	RoomID    string          `json:"roomId"`
	Move      json.RawMessage `json:"move"`
	Player    string          `json:"player"`
	GameState json.RawMessage `json:"gameState,omitempty"`
}

type gameOverPayload struct {
	RoomID         string `json:"roomId"`
	Result         string `json:"result"`
	WinnerSocketID string `json:"winnerSocketId,omitempty"`
	Winner         string `json:"winner,omitempty"`
}

type findMatchPayload struct {
	PlayerName      string  `json:"playerName"`
	BetAmount       float64 `json:"betAmount"`
	GameType        string  `json:"gameType"`
	TransactionHash string  `json:"transactionHash,omitempty"`
}
