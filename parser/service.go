package parser

// service.go ties the engine, session registry, run limiter and event
// sink together: one Start call per (session, file), events forwarded to
// the sink in order, guaranteed cleanup on every exit path.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/recordstream/recordstream/config"
	"github.com/recordstream/recordstream/logging"
)

// Service runs parse runs on behalf of sessions and pushes their events
// to a sink. At most one run is active per session; starting a second run
// for the same session cancels the first.
type Service[T any] struct {
	engine   *Engine[T]
	registry *SessionRegistry
	limiter  *RunLimiter
	sink     EventSink
	cfg      config.Config
	metrics  *Metrics
}

// NewService creates a Service that parses records with rp and delivers
// events to sink.
func NewService[T any](rp RecordParser[T], sink EventSink, cfg config.Config) *Service[T] {
	return &Service[T]{
		engine:   NewEngine(rp),
		registry: NewSessionRegistry(),
		limiter:  NewRunLimiter(cfg.Runs.MaxConcurrent, cfg.Runs.MaxWaitTime),
		sink:     sink,
		cfg:      cfg,
	}
}

// UseMetrics attaches metrics to the service and its engine. Call before
// the first Start.
func (s *Service[T]) UseMetrics(m *Metrics) {
	s.metrics = m
	s.engine.metrics = m
}

// Start begins an asynchronous parse run for the session and returns its
// run ID. Any run already active for the session is cancelled first. The
// run's events, terminal event included, go to the sink.
//
// Returns ErrTooManyRuns when the concurrent-run limit is reached and no
// slot frees up within the configured wait.
func (s *Service[T]) Start(ctx context.Context, sessionID, path string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	// The run outlives the Start request; only the registry and the run
	// timeout may cancel it.
	baseCtx := context.Background()
	var cancelTimeout context.CancelFunc = func() {}
	if s.cfg.Runs.Timeout > 0 {
		baseCtx, cancelTimeout = context.WithTimeout(baseCtx, s.cfg.Runs.Timeout)
	}
	runCtx, runID := s.registry.Begin(baseCtx, sessionID)

	logger := logging.WithSession(ctx, sessionID).With("run_id", runID, "path", path)
	logger.Info("parse run started")

	go func() {
		defer s.limiter.Release()
		defer cancelTimeout()
		defer s.registry.Remove(sessionID, runID)
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in parse run", "panic", rec)
			}
		}()

		start := time.Now()
		s.engine.Run(runCtx, path, s.cfg.Parser, func(ev Event) {
			s.deliver(logger, sessionID, ev)
		})
		logger.Info("parse run finished", "duration", time.Since(start))
	}()

	return runID, nil
}

// Stop requests cancellation of the session's active run. It never
// returns an error past this call: a missing session is logged and
// ignored, matching the fire-and-forget stop contract.
func (s *Service[T]) Stop(ctx context.Context, sessionID string) {
	if !s.registry.Cancel(sessionID) {
		logging.FromContext(ctx).Debug("stop for unknown session", "session_id", sessionID)
	}
}

// ActiveRuns returns the number of runs currently executing.
func (s *Service[T]) ActiveRuns() int {
	return s.limiter.ActiveCount()
}

// Drain waits for all active runs to finish, for graceful shutdown.
func (s *Service[T]) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// deliver pushes one event to the sink, swallowing delivery failures so a
// disconnected consumer cannot abort the run.
func (s *Service[T]) deliver(logger *slog.Logger, sessionID string, ev Event) {
	if err := s.sink.Send(sessionID, ev); err != nil {
		logger.Warn("event delivery failed", "error", err)
	}
}
