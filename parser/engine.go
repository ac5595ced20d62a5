package parser

// engine.go owns the read loop, buffer lifecycle, batch accumulation,
// progress cadence and cancellation checks for one parse run.
//
// Event contract: a run emits zero or more BatchEvent/ProgressEvent/
// ErrorEvent values followed by exactly one terminal event — a
// CompletionEvent on end-of-file or a CancellationEvent once cancellation
// is observed. The two file-level faults (missing file, read failure) end
// the sequence with a single ErrorEvent carrying line number 0 and no
// completion.

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/recordstream/recordstream/config"
)

// lineCheckInterval is how often (in lines) cancellation is polled inside
// a chunk. The top of every chunk read also checks, which bounds
// cancellation latency to one read regardless of this value.
const lineCheckInterval = 100

// eventChannelBuffer is the send buffer of the channel returned by Parse.
// Sends block once it fills; consumers are expected to drain the sequence.
const eventChannelBuffer = 16

// Engine runs parse runs for records of type T. An Engine is stateless
// across runs and safe for concurrent use; every run owns its buffer,
// leftover bytes and counters exclusively.
type Engine[T any] struct {
	parser  RecordParser[T]
	metrics *Metrics
	logger  *slog.Logger

	bufPool sync.Pool
}

// NewEngine returns an Engine that parses records with p.
func NewEngine[T any](p RecordParser[T], opts ...EngineOption[T]) *Engine[T] {
	e := &Engine[T]{
		parser: p,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EngineOption configures an Engine.
type EngineOption[T any] func(*Engine[T])

// WithMetrics attaches Prometheus metrics to the engine.
func WithMetrics[T any](m *Metrics) EngineOption[T] {
	return func(e *Engine[T]) { e.metrics = m }
}

// WithLogger sets the engine's structured logger.
func WithLogger[T any](l *slog.Logger) EngineOption[T] {
	return func(e *Engine[T]) { e.logger = l }
}

// Parse starts one run and returns its event sequence as a channel. The
// channel is closed after the terminal event. The sequence is lazy and
// finite; it is restartable per call, never per channel.
//
// Consumers must drain the channel to its close: an abandoned channel
// blocks the run's goroutine on its next send. To stop a run early,
// cancel ctx and keep receiving until the close.
//
// Cancellation is cooperative through ctx: it is polled at the top of
// every chunk read and every lineCheckInterval lines, so it is observed
// within at most one chunk-read's worth of work.
func (e *Engine[T]) Parse(ctx context.Context, path string, cfg config.ParserConfig) <-chan Event {
	ch := make(chan Event, eventChannelBuffer)
	go func() {
		defer close(ch)
		e.Run(ctx, path, cfg, func(ev Event) {
			ch <- ev
		})
	}()
	return ch
}

// Run executes one parse run, pushing every event to emit in order. It is
// the callback form of Parse; the two forms emit identical sequences.
func (e *Engine[T]) Run(ctx context.Context, path string, cfg config.ParserConfig, emit func(Event)) {
	cfg = cfg.WithDefaults()
	start := time.Now()

	if e.metrics != nil {
		e.metrics.RunsActive.Inc()
		defer e.metrics.RunsActive.Dec()
	}

	src, err := openSource(path)
	if err != nil {
		e.logger.Warn("parse run failed to open file", "path", path, "error", err)
		e.countRun(outcomeFailed)
		msg := "open failed: " + err.Error()
		if err == ErrFileNotFound {
			msg = "File not found"
		}
		emit(ErrorEvent{Message: msg, LineNumber: 0, Cause: err})
		return
	}
	defer src.Close()

	buf := e.acquireBuffer(cfg.BufferSizeBytes)
	defer e.releaseBuffer(buf)

	run := &runState[T]{
		engine:       e,
		cfg:          cfg,
		src:          src,
		emit:         emit,
		start:        start,
		lastProgress: start,
		batch:        make([]T, 0, cfg.BatchSize),
	}

	var lines lineBuffer
	for {
		if ctx.Err() != nil {
			run.cancel()
			return
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if err := lines.feed(buf[:n], func(line []byte) error {
				return run.processLine(ctx, line)
			}); err != nil {
				// Only cancellation crosses the line boundary.
				run.cancel()
				return
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			e.logger.Error("read failed mid-run", "path", path, "line", run.lineNumber, "error", rerr)
			e.countRun(outcomeFailed)
			emit(ErrorEvent{Message: "read failed: " + rerr.Error(), LineNumber: 0, Cause: rerr})
			return
		}
	}

	// A file that does not end in a newline still owes us its last line.
	if final := lines.flush(); final != nil {
		if err := run.processLine(ctx, final); err != nil {
			run.cancel()
			return
		}
	}

	run.flushBatch()
	e.countRun(outcomeCompleted)
	e.observeDuration(time.Since(start))
	emit(CompletionEvent{
		TotalRecords: run.totalRecords,
		Duration:     time.Since(start),
		ErrorCount:   run.errorCount,
	})
}

// runState holds the mutable counters of a single run. It is owned by one
// goroutine and never shared.
type runState[T any] struct {
	engine *Engine[T]
	cfg    config.ParserConfig
	src    *source
	emit   func(Event)
	start  time.Time

	lineNumber   int
	totalRecords int
	errorCount   int

	batch         []T
	sinceProgress int
	lastProgress  time.Time
}

// processLine parses one line and applies the batch, progress and
// cancellation policies. It returns ctx.Err() when cancellation is due,
// which unwinds the read loop without emitting further events.
func (r *runState[T]) processLine(ctx context.Context, line []byte) error {
	r.lineNumber++

	if r.lineNumber%lineCheckInterval == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	rec, err := r.engine.parser.TryParse(line, r.lineNumber)
	if err != nil {
		r.errorCount++
		if r.engine.metrics != nil {
			r.engine.metrics.ParseErrors.Inc()
		}
		msg := err.Error()
		if pe, ok := err.(*ParseError); ok {
			msg = pe.Message
		}
		r.emit(ErrorEvent{Message: msg, LineNumber: r.lineNumber, Cause: err})
		return nil
	}

	r.totalRecords++
	r.sinceProgress++
	if r.engine.metrics != nil {
		r.engine.metrics.RecordsParsed.Inc()
	}

	r.batch = append(r.batch, rec)
	if len(r.batch) >= r.cfg.BatchSize {
		r.flushBatch()
		// Advisory pacing between batch emissions so one run cannot
		// monopolize the scheduler while a consumer catches up.
		runtime.Gosched()
	}

	r.maybeEmitProgress()
	return nil
}

// flushBatch emits the current batch as a snapshot and resets the
// accumulator. The emitted slice is owned by the event; the accumulator
// is reallocated rather than reused so later appends cannot alias it.
func (r *runState[T]) flushBatch() {
	if len(r.batch) == 0 {
		return
	}
	if r.cfg.EmitBatchEvents {
		r.emit(BatchEvent[T]{Records: r.batch, TotalSoFar: r.totalRecords})
	}
	r.batch = make([]T, 0, r.cfg.BatchSize)
}

// maybeEmitProgress emits a ProgressEvent when either the record-count or
// the elapsed-time threshold has passed. Evaluated once per processed
// line, so progress can fire mid-chunk.
func (r *runState[T]) maybeEmitProgress() {
	if !r.cfg.EmitProgressEvents {
		return
	}
	now := time.Now()
	if r.sinceProgress < r.cfg.ProgressRecordInterval &&
		now.Sub(r.lastProgress) < r.cfg.ProgressInterval {
		return
	}
	r.sinceProgress = 0
	r.lastProgress = now
	r.emit(ProgressEvent{
		RecordsProcessed: r.totalRecords,
		PercentComplete:  r.src.Percent(),
		Elapsed:          now.Sub(r.start),
	})
}

// cancel emits the cancellation terminal event. RecordsProcessed includes
// parsed-but-not-yet-batched records; the abandoned batch is not flushed.
func (r *runState[T]) cancel() {
	r.engine.countRun(outcomeCancelled)
	r.emit(CancellationEvent{
		RecordsProcessed: r.totalRecords,
		Duration:         time.Since(r.start),
	})
}

// acquireBuffer rents a read buffer of at least size bytes. Buffers are
// pooled across runs; release is unconditional on every exit path.
func (e *Engine[T]) acquireBuffer(size int) []byte {
	if v := e.bufPool.Get(); v != nil {
		buf := *(v.(*[]byte))
		if cap(buf) >= size {
			return buf[:size]
		}
	}
	return make([]byte, size)
}

func (e *Engine[T]) releaseBuffer(buf []byte) {
	e.bufPool.Put(&buf)
}

func (e *Engine[T]) countRun(outcome string) {
	if e.metrics != nil {
		e.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine[T]) observeDuration(d time.Duration) {
	if e.metrics != nil {
		e.metrics.RunDuration.Observe(d.Seconds())
	}
}
