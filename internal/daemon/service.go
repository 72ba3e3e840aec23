// Package daemon runs the periodic budget refresh loop and serves its state
// over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/theirongolddev/fincast/internal/budget"
	flog "github.com/theirongolddev/fincast/internal/log"
	"github.com/theirongolddev/fincast/internal/model"
)

// Engine is the subset of the engine facade the daemon drives.
type Engine interface {
	RefreshAllBudgets(ctx context.Context, now time.Time) (budget.BatchResult, error)
	ComputeHealthScore(ctx context.Context, asOf time.Time) (model.HealthScore, error)
}

// AlertSink receives every alert a poll emits. The AMQP publisher satisfies it.
type AlertSink interface {
	PublishAlerts(ctx context.Context, alerts []model.Alert) error
}

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is the outcome of the latest poll.
type Snapshot struct {
	At             time.Time `json:"at"`
	Refreshed      int       `json:"refreshed"`
	Alerts         int       `json:"alerts"`
	Failures       int       `json:"failures"`
	HealthOverall  float64   `json:"health_overall"`
	HealthGrade    string    `json:"health_grade,omitempty"`
	FailedBudgets  []string  `json:"failed_budgets,omitempty"`
	PublishPending int       `json:"publish_pending,omitempty"`
}

// Event is emitted after each poll and for every alert.
type Event struct {
	ID        int64        `json:"id"`
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Snapshot  *Snapshot    `json:"snapshot,omitempty"`
	Alert     *model.Alert `json:"alert,omitempty"`
}

// Event types.
const (
	EventPoll  = "poll"
	EventAlert = "alert"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Last            Snapshot  `json:"last"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Option configures a Service.
type Option func(*Service)

// WithAlertSink forwards emitted alerts to sink.
func WithAlertSink(sink AlertSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	engine  Engine
	sink    AlertSink
	logger  *slog.Logger
	httpLog *slog.Logger
	now     func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	snapshot    Snapshot
	health      *model.HealthScore
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service driving eng.
func New(cfg Config, eng Engine, opts ...Option) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	s := &Service{
		cfg:    cfg,
		engine: eng,
		logger: slog.Default(),
		now:    time.Now,
		subs:   make(map[int]chan Event),
	}
	for _, o := range opts {
		o(s)
	}
	s.httpLog = s.logger.With(flog.FieldComponent, flog.ComponentHTTP)
	s.logger = s.logger.With(flog.FieldComponent, flog.ComponentDaemon)
	s.startedAt = s.now()
	return s
}

// Router returns the HTTP API.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
		r.Get("/health-score", s.handleHealthScore)
	})
	return r
}

// logRequests logs each API request at debug level once it completes.
func (s *Service) logRequests(next http.Handler) http.Handler {
	logger := s.httpLog
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			flog.FieldDuration, time.Since(began).Milliseconds())
	})
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.PollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.PollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// PollOnce refreshes every active budget, recomputes the health score and
// publishes the resulting events.
func (s *Service) PollOnce(ctx context.Context) {
	now := s.now()

	res, err := s.engine.RefreshAllBudgets(ctx, now)
	for _, f := range res.Failures {
		s.logger.Warn("budget refresh failed", flog.FieldBudgetID, f.BudgetID, flog.FieldError, f.Err)
		captureFailure(f)
	}
	if err != nil && len(res.Failures) == 0 {
		// whole batch failed before any budget ran
		s.logger.Error("refresh all failed", flog.FieldError, err)
		sentry.CaptureException(err)
	}

	snap := Snapshot{
		At:        now,
		Refreshed: len(res.Refreshed),
		Alerts:    len(res.Alerts),
		Failures:  len(res.Failures),
	}
	for _, f := range res.Failures {
		snap.FailedBudgets = append(snap.FailedBudgets, f.BudgetID)
	}

	var hs *model.HealthScore
	if score, herr := s.engine.ComputeHealthScore(ctx, now); herr != nil {
		s.logger.Warn("health score failed", flog.FieldError, herr)
		sentry.CaptureException(herr)
		err = errors.Join(err, herr)
	} else {
		hs = &score
		snap.HealthOverall = score.Overall
		snap.HealthGrade = score.Grade
	}

	if s.sink != nil && len(res.Alerts) > 0 {
		if perr := s.sink.PublishAlerts(ctx, res.Alerts); perr != nil {
			s.logger.Error("alert publish failed", "alerts", len(res.Alerts), flog.FieldError, perr)
			sentry.CaptureException(perr)
			snap.PublishPending = len(res.Alerts)
		}
	}

	s.mu.Lock()
	s.snapshot = snap
	if hs != nil {
		s.health = hs
	}
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	for i := range res.Alerts {
		a := res.Alerts[i]
		s.publishEvent(Event{Type: EventAlert, Timestamp: now, Alert: &a})
	}
	s.publishEvent(Event{Type: EventPoll, Timestamp: now, Snapshot: &snap})

	s.logger.Info("poll complete",
		"refreshed", snap.Refreshed, "alerts", snap.Alerts, "failures", snap.Failures)
}

func captureFailure(f budget.BudgetFailure) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag(flog.FieldBudgetID, f.BudgetID)
		scope.SetLevel(sentry.LevelWarning)
		sentry.CaptureException(f.Err)
	})
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	ev.ID = s.nextEventID
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Status reports the daemon's current state.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Last:            s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleHealthScore(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	hs := s.health
	s.mu.RUnlock()

	if hs == nil {
		http.Error(w, "no health score computed yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	last := s.Status().Last
	writeSSE(w, Event{Type: EventPoll, Timestamp: s.now(), Snapshot: &last})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
