// internal/room/store_test.go
package room_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sarthaknimje/squid-arena/internal/room"
)

func TestCreateSeatsHost(t *testing.T) {
	s := room.NewStore()

	r := s.Create("tic-tac-toe", 5, "conn-a", "Alice")

	require.NotEmpty(t, r.ID)
	require.Len(t, r.Players, 1)
	assert.True(t, r.Players[0].Host)
	assert.Equal(t, "conn-a", r.Players[0].ConnectionID)
	assert.Equal(t, "Alice", r.Players[0].DisplayName)
	assert.False(t, r.Active, "room must not be active with one seat filled")
	assert.False(t, r.Tournament)

	other := s.Create("tic-tac-toe", 5, "conn-b", "Bob")
	assert.NotEqual(t, r.ID, other.ID)
}

func TestJoinCapacityInvariant(t *testing.T) {
	s := room.NewStore()
	r := s.Create("tic-tac-toe", 0, "conn-a", "Alice")

	joined, err := s.Join(r.ID, "conn-b", "Bob")
	require.NoError(t, err)
	assert.Len(t, joined.Players, 2)
	assert.True(t, joined.Active)
	assert.False(t, joined.Players[1].Host)

	// Third and subsequent joins must always fail RoomFull.
	for i := 0; i < 3; i++ {
		_, err = s.Join(r.ID, "conn-c", "Carol")
		require.ErrorIs(t, err, room.ErrRoomFull)
	}
	got, ok := s.Get(r.ID)
	require.True(t, ok)
	assert.Len(t, got.Players, 2)
}

func TestJoinUnknownRoom(t *testing.T) {
	s := room.NewStore()

	_, err := s.Join("no-such-room", "conn-a", "Alice")
	require.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRecordMoveOverwritesState(t *testing.T) {
	s := room.NewStore()
	r := s.Create("checkers", 0, "conn-a", "Alice")

	state := json.RawMessage(`{"board":[1,2,3]}`)
	require.NoError(t, s.RecordMove(r.ID, state))

	got, ok := s.Get(r.ID)
	require.True(t, ok)
	assert.JSONEq(t, `{"board":[1,2,3]}`, string(got.GameState))

	require.ErrorIs(t, s.RecordMove("gone", state), room.ErrRoomNotFound)
}

func TestCloseRetainsRoom(t *testing.T) {
	s := room.NewStore()
	r := s.Create("pong", 10, "conn-a", "Alice")
	_, err := s.Join(r.ID, "conn-b", "Bob")
	require.NoError(t, err)

	closed, err := s.Close(r.ID)
	require.NoError(t, err)
	assert.False(t, closed.Active)

	// Late queries still resolve until the reaper's cutoff.
	_, ok := s.Get(r.ID)
	assert.True(t, ok)

	_, err = s.Close("gone")
	require.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestRemoveParticipantHostDeletesRoom(t *testing.T) {
	s := room.NewStore()
	r := s.Create("tic-tac-toe", 0, "host", "Alice")
	_, err := s.Join(r.ID, "guest", "Bob")
	require.NoError(t, err)

	remaining, deleted, ok := s.RemoveParticipant(r.ID, "host")
	require.True(t, ok)
	assert.True(t, deleted, "host departure must end the room")
	require.Len(t, remaining, 1)
	assert.Equal(t, "guest", remaining[0].ConnectionID)

	_, exists := s.Get(r.ID)
	assert.False(t, exists)
}

func TestRemoveParticipantGuestReopensSeat(t *testing.T) {
	s := room.NewStore()
	r := s.Create("tic-tac-toe", 0, "host", "Alice")
	_, err := s.Join(r.ID, "guest", "Bob")
	require.NoError(t, err)

	remaining, deleted, ok := s.RemoveParticipant(r.ID, "guest")
	require.True(t, ok)
	assert.False(t, deleted)
	require.Len(t, remaining, 1)
	assert.Equal(t, "host", remaining[0].ConnectionID)

	got, exists := s.Get(r.ID)
	require.True(t, exists)
	assert.False(t, got.Active, "room with a reopened seat is not playable")

	_, err = s.Join(r.ID, "guest2", "Carol")
	require.NoError(t, err)
}

func TestRemoveParticipantSoleHost(t *testing.T) {
	s := room.NewStore()
	r := s.Create("tic-tac-toe", 0, "host", "Alice")

	remaining, deleted, ok := s.RemoveParticipant(r.ID, "host")
	require.True(t, ok)
	assert.True(t, deleted)
	assert.Empty(t, remaining)

	_, exists := s.Get(r.ID)
	assert.False(t, exists)

	_, _, ok = s.RemoveParticipant(r.ID, "host")
	assert.False(t, ok)
}

func TestCreateMatchedFillsBothSeats(t *testing.T) {
	s := room.NewStore()

	r := s.CreateMatched("tic-tac-toe", 104,
		room.Participant{ConnectionID: "p1", DisplayName: "One"},
		room.Participant{ConnectionID: "p2", DisplayName: "Two"},
		map[string]string{"p1": "0xabc", "p2": ""},
	)

	require.Len(t, r.Players, 2)
	assert.True(t, r.Active)
	assert.True(t, r.Tournament)
	host, ok := r.Host()
	require.True(t, ok)
	assert.Equal(t, "p1", host.ConnectionID, "longer-waiting entry hosts")
	assert.Equal(t, map[string]string{"p1": "0xabc"}, r.SettlementRefs, "empty refs are not carried")

	_, err := s.Join(r.ID, "p3", "Three")
	require.ErrorIs(t, err, room.ErrRoomFull)
}

func TestReapBeforeRetentionBoundary(t *testing.T) {
	s := room.NewStore()
	r := s.Create("tic-tac-toe", 0, "host", "Alice")
	created := time.Now()

	// 59 minutes into a 60-minute retention window the room survives a sweep.
	reaped := s.ReapBefore(created.Add(59*time.Minute - time.Hour))
	assert.Empty(t, reaped)
	_, ok := s.Get(r.ID)
	assert.True(t, ok)

	// Past the window it is deleted unconditionally, occupants or not.
	reaped = s.ReapBefore(created.Add(61*time.Minute - time.Hour))
	assert.Equal(t, []string{r.ID}, reaped)
	_, ok = s.Get(r.ID)
	assert.False(t, ok)
}

func TestPayoutArithmetic(t *testing.T) {
	amount, commission := room.Payout(10, 0.10)
	assert.InDelta(t, 18, amount, 1e-9)
	assert.InDelta(t, 2, commission, 1e-9)

	amount, commission = room.Payout(0, 0.10)
	assert.Zero(t, amount)
	assert.Zero(t, commission)
}

func TestOpponentLookup(t *testing.T) {
	s := room.NewStore()
	r := s.Create("tic-tac-toe", 0, "host", "Alice")
	joined, err := s.Join(r.ID, "guest", "Bob")
	require.NoError(t, err)

	opp, ok := joined.Opponent("host")
	require.True(t, ok)
	assert.Equal(t, "guest", opp.ConnectionID)

	_, ok = joined.Participant("stranger")
	assert.False(t, ok)
}
