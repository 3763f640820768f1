package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"agenda/internal/config"
	"agenda/internal/engine"
	appLog "agenda/internal/log"
	"agenda/internal/metrics"
	"agenda/internal/model"
	"agenda/internal/snapshot"
)

// Server provides the HTTP API over the current snapshot.
type Server struct {
	cfg     *config.Config
	store   *snapshot.Store
	engine  *engine.Engine
	memo    *engine.Memo
	metrics *metrics.Metrics
	loc     *time.Location
	mux     *http.ServeMux

	refresh func(ctx context.Context) error
	now     func() time.Time
}

// NewServer constructs a new Server. m may be nil.
func NewServer(cfg *config.Config, store *snapshot.Store, eng *engine.Engine, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		engine:  eng,
		memo:    engine.NewMemo(eng, cfg.MemoSize),
		metrics: m,
		loc:     resolveLocationOrLocal(cfg.Timezone),
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// WithRefresh enables POST /api/refresh, which runs fn synchronously.
func (s *Server) WithRefresh(fn func(ctx context.Context) error) *Server {
	s.refresh = fn
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HTTPServer returns an http.Server bound to cfg.Listen. Shutdown is left to
// the caller.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// SnapshotReplaced drops memoized views of older snapshots.
func (s *Server) SnapshotReplaced(prev, next *snapshot.Snapshot) {
	if prev == nil {
		return
	}
	appLog.Debug("memo purged after snapshot replacement",
		"previous", prev.Version, "current", next.Version, "entries", s.memo.Len())
	s.memo.Purge()
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /api/events", s.instrument("events", s.handleEvents))
	s.mux.Handle("GET /api/disciplines", s.instrument("disciplines", s.handleDisciplines))
	s.mux.Handle("POST /api/refresh", s.instrument("refresh", s.handleRefresh))
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	SnapshotVersion string               `json:"snapshot_version"`
	LoadedAt        time.Time            `json:"loaded_at"`
	From            *time.Time           `json:"from,omitempty"`
	To              *time.Time           `json:"to,omitempty"`
	Total           int                  `json:"total"`
	Events          []model.DisplayEvent `json:"events"`
	CountMode       engine.CountMode     `json:"count_mode"`
	Counts          model.Counts         `json:"counts"`
}

// handleEvents returns the filtered, normalized events of the current
// snapshot.
//
// GET /api/events?from=2024-06-01&to=2024-06-30&discipline=Cine&q=jazz&sort=1&counts=live
//   - from, to:   inclusive dates (YYYY-MM-DD) in the configured timezone
//   - discipline: repeatable; empty selects every discipline
//   - q:          case-insensitive substring search
//   - sort:       order by start date
//   - counts:     "baseline" or "live"; defaults to config count_mode
//   - days:       length of the default window when no date is given (>= 0)
//   - all:        disable the default window
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot loaded yet")
		return
	}

	c, mode, err := s.parseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	view, hit := s.memo.Evaluate(snap.Version, snap.Events, snap.Baseline, c, mode)
	s.metrics.Evaluation(hit, time.Since(start))

	appLog.Debug("api events request",
		"snapshot", snap.Version,
		"criteria", c.Key()[:12],
		"mode", string(view.Mode),
		"cache_hit", hit,
		"results", len(view.Events),
	)

	events := view.Events
	if events == nil {
		events = []model.DisplayEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		SnapshotVersion: snap.Version,
		LoadedAt:        snap.LoadedAt,
		From:            c.DateFrom,
		To:              c.DateTo,
		Total:           len(events),
		Events:          events,
		CountMode:       view.Mode,
		Counts:          view.Counts,
	})
}

// parseCriteria turns query parameters into engine criteria. Dates are whole
// days: from is the start of its day, to the last instant of its day.
func (s *Server) parseCriteria(q url.Values) (model.Criteria, engine.CountMode, error) {
	var c model.Criteria

	from, err := s.parseDay(q.Get("from"))
	if err != nil {
		return c, "", fmt.Errorf("invalid from: %w", err)
	}
	to, err := s.parseDay(q.Get("to"))
	if err != nil {
		return c, "", fmt.Errorf("invalid to: %w", err)
	}
	if from != nil && to != nil && from.After(*to) {
		return c, "", errors.New("from is after to")
	}
	if to != nil {
		end := endOfDay(*to)
		to = &end
	}

	all, err := parseBool(q.Get("all"))
	if err != nil {
		return c, "", fmt.Errorf("invalid all: %w", err)
	}
	days, err := parseDays(q.Get("days"), s.cfg.DefaultWindowDays)
	if err != nil {
		return c, "", fmt.Errorf("invalid days: %w", err)
	}
	if from == nil && to == nil && !all {
		if days > 0 {
			today := startOfDay(s.now().In(s.loc))
			end := endOfDay(today.AddDate(0, 0, days))
			from, to = &today, &end
		}
	}
	c.DateFrom, c.DateTo = from, to

	for _, d := range q["discipline"] {
		if d = strings.TrimSpace(d); d != "" && !slices.Contains(c.Disciplines, d) {
			c.Disciplines = append(c.Disciplines, d)
		}
	}
	c.SearchText = strings.TrimSpace(q.Get("q"))

	if c.Sort, err = parseBool(q.Get("sort")); err != nil {
		return c, "", fmt.Errorf("invalid sort: %w", err)
	}

	counts := q.Get("counts")
	if counts == "" {
		counts = s.cfg.CountMode
	}
	mode, err := engine.ParseCountMode(counts)
	if err != nil {
		return c, "", err
	}
	return c, mode, nil
}

func (s *Server) parseDay(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%q is not a YYYY-MM-DD date", v)
	}
	return &t, nil
}

type disciplineDTO struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type disciplinesResponse struct {
	SnapshotVersion string          `json:"snapshot_version,omitempty"`
	Total           int             `json:"total"`
	Disciplines     []disciplineDTO `json:"disciplines"`
}

// handleDisciplines lists the vocabulary with the baseline counts of the
// current snapshot. With an open vocabulary the labels seen in the snapshot
// are listed instead, alphabetically.
func (s *Server) handleDisciplines(w http.ResponseWriter, _ *http.Request) {
	var baseline model.Counts
	resp := disciplinesResponse{Disciplines: []disciplineDTO{}}
	if snap := s.store.Current(); snap != nil {
		baseline = snap.Baseline
		resp.SnapshotVersion = snap.Version
		resp.Total = baseline.Total()
	}

	labels := s.engine.Disciplines()
	if labels == nil {
		for label := range baseline {
			labels = append(labels, label)
		}
		slices.Sort(labels)
	}
	for _, label := range labels {
		resp.Disciplines = append(resp.Disciplines, disciplineDTO{Label: label, Count: baseline[label]})
	}
	writeJSON(w, http.StatusOK, resp)
}

type refreshResponse struct {
	SnapshotVersion string `json:"snapshot_version"`
	Events          int    `json:"events"`
	Warning         string `json:"warning,omitempty"`
}

// handleRefresh reloads the snapshot now instead of waiting for the
// schedule. Partial failures still publish and are reported as a warning.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotFound, "refresh is not enabled")
		return
	}

	before := s.store.Current()
	err := s.refresh(r.Context())
	after := s.store.Current()
	if after == nil || (err != nil && after == before) {
		msg := "refresh failed"
		if err != nil {
			msg = err.Error()
		}
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	resp := refreshResponse{SnapshotVersion: after.Version, Events: len(after.Events)}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusRecorder captures the status code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.Request(name, rec.status)
	})
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// parseDays reads the default window length. Zero disables the window.
func parseDays(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("must be >= 0, got %d", n)
	}
	return n, nil
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
