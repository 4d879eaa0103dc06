package workers

import (
	"context"
	"fmt"
	"time"

	"simon-says-server/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// RankRebuilder reloads the rank index from the database and reports how
// many players it indexed.
type RankRebuilder interface {
	RebuildRankIndex(ctx context.Context) (int, error)
}

// RankSyncWorker periodically rebuilds the Redis rank index so it catches up
// with score changes that bypassed the incremental updates.
type RankSyncWorker struct {
	rebuilder RankRebuilder
	interval  time.Duration
	clock     clockwork.Clock
	log       *logger.Logger
	sched     gocron.Scheduler
}

func NewRankSyncWorker(rebuilder RankRebuilder, interval time.Duration, clock clockwork.Clock, log *logger.Logger) *RankSyncWorker {
	return &RankSyncWorker{
		rebuilder: rebuilder,
		interval:  interval,
		clock:     clock,
		log:       log.With("worker", "RankSync"),
	}
}

// Start schedules the rebuild every interval, running the first one right
// away. Jobs never overlap.
func (w *RankSyncWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(w.clock))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce(ctx) }),
		gocron.WithName("rank-index-rebuild"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule rank rebuild: %w", err)
	}
	sched.Start()
	w.sched = sched
	w.log.Info("rank sync started", "interval", w.interval.String())
	return nil
}

// RunOnce performs a single rebuild and logs the outcome.
func (w *RankSyncWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := w.clock.Now()
	n, err := w.rebuilder.RebuildRankIndex(ctx)
	if err != nil {
		w.log.Error("rank index rebuild failed", "error", err)
		return
	}
	w.log.Debug("rank index rebuilt", "players", n, "took", w.clock.Since(start).String())
}

func (w *RankSyncWorker) Stop() error {
	if w.sched == nil {
		return nil
	}
	return w.sched.Shutdown()
}
