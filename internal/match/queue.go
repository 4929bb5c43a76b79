// internal/match/queue.go
package match

import (
	"math"
	"sync"
	"time"
)

// Entry is one pending tournament-seeking player. SettlementRef is an opaque
// caller-supplied transaction hash carried through to the matched room and
// never validated here.
type Entry struct {
	ConnectionID  string
	DisplayName   string
	GameType      string
	BetAmount     float64
	SettlementRef string
	EnqueuedAt    time.Time
}

// Queue is the in-memory matchmaking queue. Entries wait in arrival order and
// the earliest compatible entry always wins a new match, so long-waiting
// players are never starved by newer arrivals.
type Queue struct {
	mu        sync.Mutex
	entries   []*Entry
	tolerance float64
}

// NewQueue returns an empty queue. tolerance is the fraction of the smaller of
// two bets that the two amounts may differ by and still match (0.10 means
// "within 10%"). This mirrors the platform's informal within-10% rule and is
// deliberately a config knob rather than a constant.
func NewQueue(tolerance float64) *Queue {
	return &Queue{tolerance: tolerance}
}

// FindOrEnqueue attempts an immediate match for e. If a compatible opponent is
// already waiting, that opponent is removed from the queue and returned; the
// caller is responsible for creating the room (the caller must do so without
// suspending in between, or two requesters could claim the same opponent).
// Otherwise e is appended and its 1-based queue position is returned.
//
// Any stale entry for the same connection is dropped first, so repeated
// find_match requests from one connection never self-match or pile up.
func (q *Queue) FindOrEnqueue(e Entry) (opponent *Entry, position int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(e.ConnectionID)

	for i, cand := range q.entries {
		if compatible(cand, &e, q.tolerance) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return cand, 0
		}
	}

	queued := e
	q.entries = append(q.entries, &queued)
	return nil, len(q.entries)
}

// Dequeue removes any entry for the given connection. No-op if absent.
func (q *Queue) Dequeue(connID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeLocked(connID)
}

// Len reports how many entries are currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) removeLocked(connID string) {
	for i, cand := range q.entries {
		if cand.ConnectionID == connID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// compatible reports whether two entries can be paired: identical game type
// and bet amounts within tolerance of the smaller bet. Two zero bets (casual
// play) always match.
func compatible(a, b *Entry, tolerance float64) bool {
	if a.ConnectionID == b.ConnectionID || a.GameType != b.GameType {
		return false
	}
	smaller := math.Min(a.BetAmount, b.BetAmount)
	return math.Abs(a.BetAmount-b.BetAmount) <= tolerance*smaller
}
