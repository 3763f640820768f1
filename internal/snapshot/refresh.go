package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "agenda/internal/log"
	"agenda/internal/metrics"
)

// SnapshotLoader produces a new snapshot. *Loader implements it.
type SnapshotLoader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// Refresher reloads the store on a cron schedule. A refresh that yields no
// snapshot leaves the previous one in place.
type Refresher struct {
	loader  SnapshotLoader
	store   *Store
	metrics *metrics.Metrics

	// OnReplace, if set, runs after a new snapshot is published.
	OnReplace func(prev, next *Snapshot)

	mu sync.Mutex

	cronMu sync.Mutex
	cron   *cron.Cron
}

func NewRefresher(l SnapshotLoader, s *Store, m *metrics.Metrics) *Refresher {
	return &Refresher{loader: l, store: s, metrics: m}
}

// Refresh loads once and publishes the result. Concurrent calls are
// serialized. The returned error may be non-nil even when a snapshot was
// published (some sources failed).
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	snap, err := r.loader.Load(ctx)
	if snap == nil {
		if err == nil {
			err = errors.New("loader returned no snapshot")
		}
		r.metrics.RefreshDone(false, err)
		appLog.Error("snapshot refresh failed; keeping previous snapshot", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}

	prev := r.store.Replace(snap)
	r.metrics.SnapshotReplaced(len(snap.Events), snap.LoadedAt)
	r.metrics.RefreshDone(true, err)
	if err != nil {
		appLog.Error("snapshot refreshed with source errors", err, "version", snap.Version)
	}
	if r.OnReplace != nil {
		r.OnReplace(prev, snap)
	}
	appLog.Info("snapshot published",
		"version", snap.Version,
		"events", len(snap.Events),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return err
}

// Start schedules Refresh with a standard 5-field cron spec evaluated in loc.
// Runs that would overlap a still running refresh are skipped.
func (r *Refresher) Start(ctx context.Context, spec string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { _ = r.Refresh(ctx) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", spec, err)
	}

	r.cronMu.Lock()
	r.cron = c
	r.cronMu.Unlock()

	c.Start()
	appLog.Info("snapshot refresher started", "schedule", spec, "timezone", loc.String())
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish or ctx
// to expire.
func (r *Refresher) Stop(ctx context.Context) {
	r.cronMu.Lock()
	c := r.cron
	r.cron = nil
	r.cronMu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
