// internal/ledger/ledger.go
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// SettlementRecord is the bookkeeping entry pushed to the ledger queue when a
// betted game settles. The transaction refs are the opaque hash strings the
// clients supplied at matchmaking time; the broker records them and nothing
// more. No on-chain validation or execution happens here.
type SettlementRecord struct {
	RoomID             string            `json:"room_id"`
	GameType           string            `json:"game_type"`
	BetAmount          float64           `json:"bet_amount"`
	Payout             float64           `json:"payout"`
	Commission         float64           `json:"commission"`
	WinnerConnectionID string            `json:"winner_connection_id"`
	Result             string            `json:"result"`
	SettlementRefs     map[string]string `json:"settlement_refs,omitempty"`
	Timestamp          int64             `json:"timestamp"`
}

// Ledger publishes settlement records onto a Redis list for downstream
// consumers (audit, reconciliation). It is strictly fire-and-forget: the
// broker never reads the list back, and a nil *Ledger is a valid no-op sink
// so the server runs fine with Redis unconfigured.
type Ledger struct {
	rdb  *redis.Client
	list string
	log  *logrus.Logger
}

// Connect dials Redis and returns a Ledger bound to the given list name.
// An empty addr disables the ledger and returns nil without error.
func Connect(addr string, db int, list string, log *logrus.Logger) (*Ledger, error) {
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Ledger{rdb: rdb, list: list, log: log}, nil
}

// Publish serializes the record and pushes it onto the ledger list.
// Failures are logged, never propagated; settlement bookkeeping must not
// disturb game traffic.
func (l *Ledger) Publish(ctx context.Context, rec SettlementRecord) {
	if l == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		l.log.WithError(err).Warn("ledger: failed to marshal settlement record")
		return
	}
	if err := l.rdb.RPush(ctx, l.list, data).Err(); err != nil {
		l.log.WithError(err).WithField("room_id", rec.RoomID).Warn("ledger: failed to push settlement record")
	}
}
