package parser

// registry.go multiplexes parse runs over logical sessions (one live
// connection each). The registry owns the session map and the cancel
// handles; the engine only ever receives a context, never the map.

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry enforces at most one active run per session key.
// Starting a new run for a session cancels the prior run first;
// cancellation is fire-and-forget, the old run observes it at its next
// check point.
type SessionRegistry struct {
	mu   sync.Mutex
	runs map[string]*sessionRun
}

type sessionRun struct {
	id     string
	cancel context.CancelFunc
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{runs: make(map[string]*sessionRun)}
}

// Begin registers a new run for sessionID, cancelling any run already
// active for that session. It returns a derived context for the run and
// the run's unique ID, which Remove uses to avoid unregistering a
// successor run.
func (r *SessionRegistry) Begin(ctx context.Context, sessionID string) (context.Context, string) {
	runCtx, cancel := context.WithCancel(ctx)
	run := &sessionRun{id: uuid.New().String(), cancel: cancel}

	r.mu.Lock()
	prev := r.runs[sessionID]
	r.runs[sessionID] = run
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	return runCtx, run.id
}

// Cancel requests cancellation of the session's active run. It reports
// whether a run was registered for the session.
func (r *SessionRegistry) Cancel(sessionID string) bool {
	r.mu.Lock()
	run := r.runs[sessionID]
	r.mu.Unlock()

	if run == nil {
		return false
	}
	run.cancel()
	return true
}

// Remove unregisters the run identified by runID. A newer run registered
// under the same session is left untouched. The run's context is
// cancelled to release its resources.
func (r *SessionRegistry) Remove(sessionID, runID string) {
	r.mu.Lock()
	run := r.runs[sessionID]
	if run != nil && run.id == runID {
		delete(r.runs, sessionID)
	} else {
		run = nil
	}
	r.mu.Unlock()

	if run != nil {
		run.cancel()
	}
}

// ActiveSessions returns the number of sessions with a registered run.
func (r *SessionRegistry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}
