package parser

import "time"

// Event is the closed union of everything a parse run can emit. Exactly
// one terminal event (CompletionEvent or CancellationEvent) ends a normal
// run; a fatal fault ends the sequence with an ErrorEvent carrying line
// number 0 and no completion. Events are immutable once emitted.
type Event interface {
	isEvent()
}

// BatchEvent carries a snapshot of successfully parsed records. A batch
// never exceeds the configured batch size, and the final non-empty batch
// is always flushed before the completion event.
type BatchEvent[T any] struct {
	// Records is owned by the event; the engine never mutates it after
	// emission.
	Records []T

	// TotalSoFar is the cumulative record count including this batch.
	TotalSoFar int
}

// ProgressEvent reports periodic progress, at most once per processed
// line, triggered by record count or elapsed time since the last report.
type ProgressEvent struct {
	RecordsProcessed int

	// PercentComplete is 100*bytesConsumed/fileSize, or 0 when the file
	// size is unknown.
	PercentComplete int

	Elapsed time.Duration
}

// CompletionEvent is the successful terminal event.
type CompletionEvent struct {
	TotalRecords int
	Duration     time.Duration
	ErrorCount   int
}

// ErrorEvent reports a single malformed line (non-fatal, the run
// continues) or, with LineNumber 0, a file-level fault (file not found or
// a read failure) that ends the sequence.
type ErrorEvent struct {
	Message    string
	LineNumber int
	Cause      error
}

// CancellationEvent is the terminal event of a cancelled run.
// RecordsProcessed counts every successfully parsed record, including
// records parsed but not yet flushed in a batch.
type CancellationEvent struct {
	RecordsProcessed int
	Duration         time.Duration
}

func (BatchEvent[T]) isEvent()     {}
func (ProgressEvent) isEvent()     {}
func (CompletionEvent) isEvent()   {}
func (ErrorEvent) isEvent()        {}
func (CancellationEvent) isEvent() {}

// IsTerminal reports whether ev ends an event sequence.
func IsTerminal(ev Event) bool {
	switch e := ev.(type) {
	case CompletionEvent, CancellationEvent:
		return true
	case ErrorEvent:
		return e.LineNumber == 0
	default:
		return false
	}
}
