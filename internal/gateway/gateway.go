// internal/gateway/gateway.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sarthaknimje/squid-arena/internal/ledger"
	"github.com/Sarthaknimje/squid-arena/internal/match"
	"github.com/Sarthaknimje/squid-arena/internal/registry"
	"github.com/Sarthaknimje/squid-arena/internal/room"
)

// Gateway coordinates every inbound client event against the room store, the
// matchmaking queue and the connection registry, and emits the resulting
// outbound events. It is the only component aware of the transport.
//
// One coarse mutex serializes all event handling and timer callbacks, which
// makes each compound mutation (notably "claim opponent from queue + create
// room + seat both players") atomic with respect to every other connection,
// the Go equivalent of the single event loop the protocol assumes. Handlers
// must not block on I/O while holding it; the only outbound I/O (ledger
// publishing) is handed to a goroutine after the mutation completes.
type Gateway struct {
	log      *logrus.Logger
	rooms    *room.Store
	queue    *match.Queue
	registry *registry.Registry
	ledger   *ledger.Ledger

	commissionRate float64
	startDelay     time.Duration

	mu    sync.Mutex
	conns map[string]*Conn
}

// New wires a gateway over the given stores. led may be nil (no settlement
// bookkeeping).
func New(log *logrus.Logger, rooms *room.Store, queue *match.Queue, reg *registry.Registry, led *ledger.Ledger, commissionRate float64, startDelay time.Duration) *Gateway {
	return &Gateway{
		log:            log,
		rooms:          rooms,
		queue:          queue,
		registry:       reg,
		ledger:         led,
		commissionRate: commissionRate,
		startDelay:     startDelay,
		conns:          make(map[string]*Conn),
	}
}

// Register adds a freshly-accepted connection and tells the client its socket
// id, which it needs to name winners and correlate join notifications.
func (g *Gateway) Register(conn *Conn) {
	g.mu.Lock()
	g.conns[conn.ID] = conn
	g.mu.Unlock()

	conn.Write(map[string]interface{}{
		"type":     "connected",
		"socketId": conn.ID,
	})
}

// HandleMessage decodes and dispatches one inbound event. A malformed payload
// or an unexpected handler failure degrades to an error event on the calling
// connection only; nothing here may take down the loop or touch another
// session.
func (g *Gateway) HandleMessage(conn *Conn, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			g.log.WithFields(logrus.Fields{"conn": conn.ID, "panic": r}).Error("recovered from handler panic")
			conn.WriteError("internal server error")
		}
	}()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		conn.WriteError("invalid JSON payload")
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch env.Type {
	case "create_room":
		g.handleCreateRoom(conn, data)
	case "check_room":
		g.handleCheckRoom(conn, data)
	case "join_room":
		g.handleJoinRoom(conn, data)
	case "player_move", "make_move", "game_action":
		g.handleMove(conn, data)
	case "game_over":
		g.handleGameOver(conn, data)
	case "find_match":
		g.handleFindMatch(conn, data)
	case "cancel_matchmaking":
		g.queue.Dequeue(conn.ID)
	default:
		conn.WriteError(fmt.Sprintf("unknown event type: %s", env.Type))
	}
}

// Disconnect releases everything the connection held: its queue entry, its
// seats, and its registry entries. Safe to call for a connection that holds
// nothing. Remaining occupants of each affected room are notified; rooms the
// host abandoned (or that emptied out) are deleted outright.
func (g *Gateway) Disconnect(conn *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.queue.Dequeue(conn.ID)

	for _, roomID := range g.registry.RoomsFor(conn.ID) {
		remaining, deleted, ok := g.rooms.RemoveParticipant(roomID, conn.ID)
		if !ok {
			continue // already reaped
		}
		for _, p := range remaining {
			g.sendLocked(p.ConnectionID, map[string]interface{}{
				"type":     "opponent_left",
				"socketId": conn.ID,
			})
			if deleted {
				g.registry.Untrack(p.ConnectionID, roomID)
			}
		}
		if deleted {
			g.log.WithFields(logrus.Fields{"room": roomID, "conn": conn.ID}).Info("room ended by departure")
		}
	}

	g.registry.Forget(conn.ID)
	delete(g.conns, conn.ID)
}

func (g *Gateway) handleCreateRoom(conn *Conn, data []byte) {
	var p createRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerName == "" || p.GameType == "" || p.BetAmount < 0 {
		conn.WriteError("create_room requires playerName, gameType and a non-negative betAmount")
		return
	}
	if len(g.registry.RoomsFor(conn.ID)) > 0 {
		conn.WriteError("already in a room")
		return
	}

	conn.DisplayName = p.PlayerName
	r := g.rooms.Create(p.GameType, p.BetAmount, conn.ID, p.PlayerName)
	g.registry.Track(conn.ID, r.ID)

	g.log.WithFields(logrus.Fields{
		"room": r.ID,
		"game": r.GameType,
		"bet":  r.BetAmount,
		"conn": conn.ID,
	}).Info("room created")

	conn.Write(map[string]interface{}{
		"type":      "room_created",
		"roomId":    r.ID,
		"game":      r.GameType,
		"betAmount": r.BetAmount,
	})
}

func (g *Gateway) handleCheckRoom(conn *Conn, data []byte) {
	var p checkRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		conn.WriteError("check_room requires roomId")
		return
	}

	// Lookup only, no mutation and no broadcast. Emitted as a dedicated
	// response event in place of a transport-level ack callback.
	r, ok := g.rooms.Get(p.RoomID)
	resp := map[string]interface{}{
		"type":   "room_status",
		"roomId": p.RoomID,
		"exists": ok,
	}
	if ok {
		resp["betAmount"] = r.BetAmount
		resp["gameType"] = r.GameType
	}
	conn.Write(resp)
}

func (g *Gateway) handleJoinRoom(conn *Conn, data []byte) {
	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.PlayerName == "" {
		conn.WriteError("join_room requires roomId and playerName")
		return
	}
	if len(g.registry.RoomsFor(conn.ID)) > 0 {
		conn.WriteError("already in a room")
		return
	}

	conn.DisplayName = p.PlayerName
	r, err := g.rooms.Join(p.RoomID, conn.ID, p.PlayerName)
	if err != nil {
		conn.WriteError(errorMessage(err))
		return
	}
	g.registry.Track(conn.ID, r.ID)

	host, _ := r.Host()
	g.sendLocked(host.ConnectionID, map[string]interface{}{
		"type":       "player_joined",
		"playerName": p.PlayerName,
		"socketId":   conn.ID,
	})
	conn.Write(map[string]interface{}{
		"type":         "game_started",
		"opponentName": host.DisplayName,
		"isPlayerX":    false,
		"gameType":     r.GameType,
	})

	g.log.WithFields(logrus.Fields{"room": r.ID, "conn": conn.ID}).Info("player joined room")
	g.scheduleGameStart(r.ID)
}

func (g *Gateway) handleMove(conn *Conn, data []byte) {
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		conn.WriteError("move relay requires roomId")
		return
	}

	r, ok := g.rooms.Get(p.RoomID)
	if !ok {
		conn.WriteError(errorMessage(room.ErrRoomNotFound))
		return
	}
	if _, seated := r.Participant(conn.ID); !seated {
		conn.WriteError("not a participant of this room")
		return
	}

	if err := g.rooms.RecordMove(p.RoomID, p.GameState); err != nil {
		conn.WriteError(errorMessage(room.ErrRoomNotFound))
		return
	}

	// Relay to the peer only; the sender already applied its own move locally.
	relay := map[string]interface{}{
		"type":   "move_made",
		"roomId": p.RoomID,
		"player": p.Player,
	}
	if p.Move != nil {
		relay["move"] = p.Move
	}
	if p.GameState != nil {
		relay["gameState"] = p.GameState
	}
	for _, peer := range r.Players {
		if peer.ConnectionID != conn.ID {
			g.sendLocked(peer.ConnectionID, relay)
		}
	}
}

func (g *Gateway) handleGameOver(conn *Conn, data []byte) {
	var p gameOverPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		conn.WriteError("game_over requires roomId")
		return
	}

	current, ok := g.rooms.Get(p.RoomID)
	if !ok {
		conn.WriteError(errorMessage(room.ErrRoomNotFound))
		return
	}
	if _, seated := current.Participant(conn.ID); !seated {
		conn.WriteError("not a participant of this room")
		return
	}
	if !current.Active {
		// Already settled (or never started); a replayed game_over must not
		// pay out or ledger a second time.
		return
	}

	r, err := g.rooms.Close(p.RoomID)
	if err != nil {
		conn.WriteError(errorMessage(room.ErrRoomNotFound))
		return
	}

	// The session is over: release both seats from the reverse index so the
	// connections can create, join or queue again immediately. The closed
	// room stays in the store for late queries until the reaper's cutoff.
	for _, occupant := range r.Players {
		g.registry.Untrack(occupant.ConnectionID, r.ID)
	}

	var payout, commission float64
	settled := false
	if r.BetAmount > 0 && p.WinnerSocketID != "" {
		if _, winnerSeated := r.Participant(p.WinnerSocketID); winnerSeated {
			payout, commission = room.Payout(r.BetAmount, g.commissionRate)
			settled = true
			g.sendLocked(p.WinnerSocketID, map[string]interface{}{
				"type":        "bet_won",
				"amount":      payout,
				"originalBet": r.BetAmount,
				"commission":  commission,
			})
		}
	}

	over := map[string]interface{}{
		"type":   "game_over",
		"result": p.Result,
	}
	if p.WinnerSocketID != "" {
		over["winnerSocketId"] = p.WinnerSocketID
	}
	for _, occupant := range r.Players {
		g.sendLocked(occupant.ConnectionID, over)
	}

	g.log.WithFields(logrus.Fields{
		"room":   r.ID,
		"result": p.Result,
		"winner": p.WinnerSocketID,
	}).Info("game over")

	if settled {
		rec := ledger.SettlementRecord{
			RoomID:             r.ID,
			GameType:           r.GameType,
			BetAmount:          r.BetAmount,
			Payout:             payout,
			Commission:         commission,
			WinnerConnectionID: p.WinnerSocketID,
			Result:             p.Result,
			SettlementRefs:     r.SettlementRefs,
			Timestamp:          time.Now().Unix(),
		}
		led := g.ledger
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			led.Publish(ctx, rec)
		}()
	}
}

func (g *Gateway) handleFindMatch(conn *Conn, data []byte) {
	var p findMatchPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PlayerName == "" || p.GameType == "" || p.BetAmount < 0 {
		conn.WriteError("find_match requires playerName, gameType and a non-negative betAmount")
		return
	}
	if len(g.registry.RoomsFor(conn.ID)) > 0 {
		conn.WriteError("already in a room")
		return
	}

	conn.DisplayName = p.PlayerName
	entry := match.Entry{
		ConnectionID:  conn.ID,
		DisplayName:   p.PlayerName,
		GameType:      p.GameType,
		BetAmount:     p.BetAmount,
		SettlementRef: p.TransactionHash,
		EnqueuedAt:    time.Now(),
	}

	opponent, position := g.queue.FindOrEnqueue(entry)
	if opponent == nil {
		conn.Write(map[string]interface{}{
			"type":          "waiting_for_opponent",
			"queuePosition": position,
			"message":       "Waiting for an opponent with a similar bet...",
		})
		return
	}

	// Both queue entries are gone and the room is created before the gateway
	// lock is released, so no other caller can claim either party.
	settledBet := (opponent.BetAmount + entry.BetAmount) / 2
	r := g.rooms.CreateMatched(
		p.GameType,
		settledBet,
		room.Participant{ConnectionID: opponent.ConnectionID, DisplayName: opponent.DisplayName},
		room.Participant{ConnectionID: entry.ConnectionID, DisplayName: entry.DisplayName},
		map[string]string{
			opponent.ConnectionID: opponent.SettlementRef,
			entry.ConnectionID:    entry.SettlementRef,
		},
	)
	g.registry.Track(opponent.ConnectionID, r.ID)
	g.registry.Track(entry.ConnectionID, r.ID)

	g.log.WithFields(logrus.Fields{
		"room": r.ID,
		"game": r.GameType,
		"bet":  settledBet,
		"host": opponent.ConnectionID,
		"conn": conn.ID,
	}).Info("tournament match found")

	g.sendLocked(opponent.ConnectionID, map[string]interface{}{
		"type":         "tournament_match_found",
		"roomId":       r.ID,
		"opponentName": entry.DisplayName,
		"betAmount":    settledBet,
	})
	conn.Write(map[string]interface{}{
		"type":         "tournament_match_found",
		"roomId":       r.ID,
		"opponentName": opponent.DisplayName,
		"betAmount":    settledBet,
	})

	g.scheduleGameStart(r.ID)
}

// scheduleGameStart broadcasts game_start to both seats after the configured
// delay, giving client UIs time to transition. The timer re-checks that the
// room still exists and is still live before emitting; a room deleted in the
// meantime (disconnect, reaper) makes this a silent no-op.
func (g *Gateway) scheduleGameStart(roomID string) {
	time.AfterFunc(g.startDelay, func() {
		g.mu.Lock()
		defer g.mu.Unlock()

		r, ok := g.rooms.Get(roomID)
		if !ok || !r.Active {
			return
		}
		for _, p := range r.Players {
			g.sendLocked(p.ConnectionID, map[string]interface{}{
				"type":   "game_start",
				"roomId": roomID,
			})
		}
	})
}

// sendLocked delivers a message to a connection by id, if it is still
// registered. Callers hold g.mu.
func (g *Gateway) sendLocked(connID string, msg map[string]interface{}) {
	if c, ok := g.conns[connID]; ok {
		c.Write(msg)
	}
}

// errorMessage translates store sentinels into the condition names clients
// display. The text is advisory, not a versioned contract.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return "RoomNotFound: no room with that id"
	case errors.Is(err, room.ErrRoomFull):
		return "RoomFull: room already has two players"
	default:
		return err.Error()
	}
}
