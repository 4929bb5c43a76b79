// internal/reaper/reaper.go
package reaper

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/Sarthaknimje/squid-arena/internal/match"
	"github.com/Sarthaknimje/squid-arena/internal/registry"
	"github.com/Sarthaknimje/squid-arena/internal/room"
)

// Reaper runs two independent timers against the room store: a cleanup sweep
// that evicts rooms older than the retention window, and a read-only
// diagnostics job that logs live gauges. Neither depends on gateway traffic.
//
// Retention is long relative to any live game, so evicted occupants are not
// proactively notified; a stale client discovers the eviction on its next
// room-scoped request, which fails RoomNotFound.
type Reaper struct {
	rooms     *room.Store
	queue     *match.Queue
	registry  *registry.Registry
	log       *logrus.Logger
	retention time.Duration
	sched     gocron.Scheduler
}

// New builds a reaper over the given stores.
func New(rooms *room.Store, queue *match.Queue, reg *registry.Registry, log *logrus.Logger, retention time.Duration) *Reaper {
	return &Reaper{
		rooms:     rooms,
		queue:     queue,
		registry:  reg,
		log:       log,
		retention: retention,
	}
}

// Start schedules the cleanup and diagnostics jobs.
func (r *Reaper) Start(reapInterval, diagInterval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	r.sched = sched

	if _, err := sched.NewJob(
		gocron.DurationJob(reapInterval),
		gocron.NewTask(func() { r.Sweep() }),
	); err != nil {
		return err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(diagInterval),
		gocron.NewTask(r.logStats),
	); err != nil {
		return err
	}

	sched.Start()
	r.log.WithFields(logrus.Fields{
		"retention":     r.retention,
		"reap_interval": reapInterval,
		"diag_interval": diagInterval,
	}).Info("reaper started")
	return nil
}

// Stop shuts the scheduler down. Pending jobs are not awaited.
func (r *Reaper) Stop() {
	if r.sched != nil {
		_ = r.sched.Shutdown()
	}
}

// Sweep deletes every room past the retention window and returns how many
// went. Exported so the sweep is callable without the scheduler.
func (r *Reaper) Sweep() int {
	reaped := r.rooms.ReapBefore(time.Now().Add(-r.retention))
	for _, id := range reaped {
		// Drop the index entries along with the room so no connection stays
		// pinned to a room id that no longer resolves.
		r.registry.DropRoom(id)
	}
	if len(reaped) > 0 {
		r.log.WithFields(logrus.Fields{
			"count": len(reaped),
			"rooms": reaped,
		}).Info("reaped stale rooms")
	}
	return len(reaped)
}

// logStats reads gauges only; it never mutates state.
func (r *Reaper) logStats() {
	total, active := r.rooms.Counts()
	r.log.WithFields(logrus.Fields{
		"rooms":        total,
		"active_rooms": active,
		"queue_length": r.queue.Len(),
	}).Info("broker status")
}
