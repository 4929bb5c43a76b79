// internal/reaper/reaper_test.go
package reaper_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/Sarthaknimje/squid-arena/internal/match"
	"github.com/Sarthaknimje/squid-arena/internal/reaper"
	"github.com/Sarthaknimje/squid-arena/internal/registry"
	"github.com/Sarthaknimje/squid-arena/internal/room"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSweepEvictsExpiredRooms(t *testing.T) {
	rooms := room.NewStore()
	queue := match.NewQueue(0.10)
	reg := registry.New()

	r := rooms.Create("tic-tac-toe", 0, "host", "Alice")
	time.Sleep(5 * time.Millisecond)

	// Zero retention: anything already created is past the window.
	rp := reaper.New(rooms, queue, reg, quietLogger(), 0)
	assert.Equal(t, 1, rp.Sweep())

	_, ok := rooms.Get(r.ID)
	assert.False(t, ok)

	assert.Zero(t, rp.Sweep(), "second sweep finds nothing")
}

func TestSweepReleasesRegistryEntries(t *testing.T) {
	rooms := room.NewStore()
	queue := match.NewQueue(0.10)
	reg := registry.New()

	r := rooms.Create("tic-tac-toe", 0, "host", "Alice")
	reg.Track("host", r.ID)
	reg.Track("guest", r.ID)
	time.Sleep(5 * time.Millisecond)

	rp := reaper.New(rooms, queue, reg, quietLogger(), 0)
	assert.Equal(t, 1, rp.Sweep())

	assert.Empty(t, reg.RoomsFor("host"), "evicted room must not pin its host")
	assert.Empty(t, reg.RoomsFor("guest"), "evicted room must not pin its guest")
}

func TestSweepKeepsRoomsWithinRetention(t *testing.T) {
	rooms := room.NewStore()
	queue := match.NewQueue(0.10)
	reg := registry.New()

	r := rooms.Create("tic-tac-toe", 0, "host", "Alice")
	reg.Track("host", r.ID)

	rp := reaper.New(rooms, queue, reg, quietLogger(), time.Hour)
	assert.Zero(t, rp.Sweep())

	_, ok := rooms.Get(r.ID)
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{r.ID}, reg.RoomsFor("host"))
}

func TestStartAndStop(t *testing.T) {
	rooms := room.NewStore()
	queue := match.NewQueue(0.10)

	rp := reaper.New(rooms, queue, registry.New(), quietLogger(), time.Hour)
	assert.NoError(t, rp.Start(time.Hour, time.Hour))
	rp.Stop()
}
