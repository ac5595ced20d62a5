// Package parser implements a chunked streaming record parser: it reads a
// large delimited text file in fixed-size chunks, reassembles lines that
// span chunk boundaries, parses each line into a typed record, and emits a
// finite sequence of batch/progress/error/completion/cancellation events.
//
// The package has no transport dependencies. A surrounding service (for
// example a live-connection broadcaster) consumes the event sequence and
// forwards it to subscribers; see Service, SessionRegistry and EventSink
// for the session-multiplexing boundary.
//
// Memory usage is O(buffer_size + batch_size) regardless of file size.
package parser
