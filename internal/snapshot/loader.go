package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"agenda/internal/config"
	"agenda/internal/engine"
	"agenda/internal/feed"
	appLog "agenda/internal/log"
	"agenda/internal/metrics"
	"agenda/internal/model"
)

// Fetcher is the part of feed.Fetcher the loader depends on.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []feed.Source) ([]feed.FetchResult, []error)
}

// Loader fetches and decodes every configured source into a new Snapshot.
type Loader struct {
	fetcher     Fetcher
	engine      *engine.Engine
	metrics     *metrics.Metrics
	sources     []config.SourceConfig
	loc         *time.Location
	horizonDays int

	now func() time.Time
}

// NewLoader wires a Loader from configuration. m may be nil.
func NewLoader(cfg *config.Config, f Fetcher, e *engine.Engine, loc *time.Location, m *metrics.Metrics) *Loader {
	if loc == nil {
		loc = time.Local
	}
	return &Loader{
		fetcher:     f,
		engine:      e,
		metrics:     m,
		sources:     cfg.Sources,
		loc:         loc,
		horizonDays: cfg.HorizonDays,
		now:         time.Now,
	}
}

// Load builds a snapshot from all sources.
//
// A source that fails to fetch or decode is skipped and its error joined
// into the returned error; the snapshot is still returned. When sources are
// configured and none of them decoded, the snapshot is nil so callers keep
// the previous one.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	now := l.now().In(l.loc)
	rangeStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, l.loc)
	rangeEnd := rangeStart.AddDate(0, 0, l.horizonDays+1).Add(-time.Nanosecond)

	sources := make([]feed.Source, 0, len(l.sources))
	var errs []error
	for _, sc := range l.sources {
		src, err := feedSource(sc, rangeStart, rangeEnd)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", sc.ID, err))
			l.metrics.SourceFailed(sc.ID)
			continue
		}
		sources = append(sources, src)
	}

	results, fetchErrs := l.fetcher.FetchAll(ctx, sources)
	errs = append(errs, fetchErrs...)
	l.countFetchFailures(sources, results)

	if len(l.sources) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("no feed source produced data: %w", errors.Join(errs...))
	}

	opts := feed.DecodeOptions{Location: l.loc, RangeStart: rangeStart, RangeEnd: rangeEnd}
	seen := make(map[string]struct{})
	events := make([]model.Event, 0)
	decodedSources := 0
	for _, res := range results {
		decoded, err := feed.Decode(res.Source, res.Body, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: decode: %w", res.Source.ID, err))
			l.metrics.SourceFailed(res.Source.ID)
			continue
		}
		decodedSources++
		for _, ev := range decoded {
			if _, dup := seen[ev.ID]; dup {
				appLog.Debug("duplicate event id dropped", "id", ev.ID, "source", res.Source.ID)
				continue
			}
			seen[ev.ID] = struct{}{}
			events = append(events, ev)
		}
	}

	if len(l.sources) > 0 && decodedSources == 0 {
		return nil, fmt.Errorf("no feed source decoded: %w", errors.Join(errs...))
	}

	snap := New(l.engine, events, l.now())
	appLog.Info("snapshot loaded",
		"version", snap.Version,
		"events", len(snap.Events),
		"sources", decodedSources,
		"errors", len(errs),
	)
	return snap, errors.Join(errs...)
}

func (l *Loader) countFetchFailures(sources []feed.Source, results []feed.FetchResult) {
	ok := make(map[string]struct{}, len(results))
	for _, res := range results {
		ok[res.Source.ID] = struct{}{}
	}
	for _, src := range sources {
		if _, fetched := ok[src.ID]; !fetched {
			l.metrics.SourceFailed(src.ID)
		}
	}
}

// feedSource turns a configured source into a fetchable one. JSON endpoints
// are asked for the load window through fecha_inicio/fecha_fin.
func feedSource(sc config.SourceConfig, from, to time.Time) (feed.Source, error) {
	src := feed.Source{ID: sc.ID, URL: sc.URL, Format: sc.Format}
	if sc.Format != config.FormatJSON {
		return src, nil
	}

	u, err := url.Parse(sc.URL)
	if err != nil {
		return feed.Source{}, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("fecha_inicio", from.Format(time.DateOnly))
	q.Set("fecha_fin", to.Format(time.DateOnly))
	u.RawQuery = q.Encode()
	src.URL = u.String()
	return src, nil
}
