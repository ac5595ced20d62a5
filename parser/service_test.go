package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recordstream/recordstream/config"
)

func testServiceConfig() config.Config {
	return config.Config{
		Parser: testConfig(),
		Runs: config.RunConfig{
			MaxConcurrent: 2,
			MaxWaitTime:   100 * time.Millisecond,
			Timeout:       time.Minute,
		},
	}
}

// drainSession reads events for one session until a terminal event or
// timeout.
func drainSession(t *testing.T, sink *ChannelSink, sessionID string) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case se := <-sink.C:
			if se.SessionID != sessionID {
				continue
			}
			events = append(events, se.Event)
			if IsTerminal(se.Event) {
				return events
			}
		case <-timeout:
			t.Fatal("timed out waiting for terminal event")
		}
	}
}

func TestServiceStartDeliversEvents(t *testing.T) {
	path := writeTempFile(t, "people.csv",
		[]byte("Ann,Lee,1990-01-01\nBob,Kim,1985-05-05\n"))

	sink := NewChannelSink(64)
	svc := NewService[Person](PersonParser{}, sink, testServiceConfig())

	runID, err := svc.Start(context.Background(), "sess-1", path)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	events := drainSession(t, sink, "sess-1")
	done, ok := events[len(events)-1].(CompletionEvent)
	require.True(t, ok, "terminal = %T", events[len(events)-1])
	assert.Equal(t, 2, done.TotalRecords)
}

func TestServiceRequiresSessionID(t *testing.T) {
	sink := NewChannelSink(1)
	svc := NewService[Person](PersonParser{}, sink, testServiceConfig())

	_, err := svc.Start(context.Background(), "", "whatever.csv")
	require.Error(t, err)
}

func TestServiceSecondStartCancelsFirst(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200000; i++ {
		sb.WriteString("Ann,Lee,1990-01-01\n")
	}
	bigPath := writeTempFile(t, "big.csv", []byte(sb.String()))
	smallPath := writeTempFile(t, "small.csv", []byte("Bob,Kim,1985-05-05\n"))

	sink := NewChannelSink(16)
	svc := NewService[Person](PersonParser{}, sink, testServiceConfig())

	_, err := svc.Start(context.Background(), "sess-1", bigPath)
	require.NoError(t, err)

	// Let the first run get going, then replace it.
	for se := range sink.C {
		if _, ok := se.Event.(BatchEvent[Person]); ok {
			break
		}
	}
	_, err = svc.Start(context.Background(), "sess-1", smallPath)
	require.NoError(t, err)

	// Both runs push into the same sink; the first must end with a
	// cancellation and the second with a completion of one record.
	var sawCancellation, sawCompletion bool
	timeout := time.After(10 * time.Second)
	for !(sawCancellation && sawCompletion) {
		select {
		case se := <-sink.C:
			switch ev := se.Event.(type) {
			case CancellationEvent:
				sawCancellation = true
			case CompletionEvent:
				assert.Equal(t, 1, ev.TotalRecords)
				sawCompletion = true
			}
		case <-timeout:
			t.Fatalf("cancellation=%v completion=%v", sawCancellation, sawCompletion)
		}
	}
}

func TestServiceStopCancelsRun(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200000; i++ {
		sb.WriteString("Ann,Lee,1990-01-01\n")
	}
	path := writeTempFile(t, "big.csv", []byte(sb.String()))

	sink := NewChannelSink(16)
	svc := NewService[Person](PersonParser{}, sink, testServiceConfig())

	_, err := svc.Start(context.Background(), "sess-1", path)
	require.NoError(t, err)

	for se := range sink.C {
		if _, ok := se.Event.(BatchEvent[Person]); ok {
			break
		}
	}
	svc.Stop(context.Background(), "sess-1")

	events := drainSession(t, sink, "sess-1")
	_, ok := events[len(events)-1].(CancellationEvent)
	require.True(t, ok, "terminal = %T", events[len(events)-1])

	// Stop for an unknown session is swallowed, not an error.
	svc.Stop(context.Background(), "ghost")
}

func TestServiceSinkFailuresAreSwallowed(t *testing.T) {
	path := writeTempFile(t, "people.csv", []byte("Ann,Lee,1990-01-01\n"))

	failing := SinkFunc(func(string, Event) error {
		return errors.New("client disconnected")
	})
	svc := NewService[Person](PersonParser{}, failing, testServiceConfig())

	_, err := svc.Start(context.Background(), "sess-1", path)
	require.NoError(t, err)

	// The run must finish and release its slot despite every delivery
	// failing.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, 0, svc.ActiveRuns())
}

func TestServiceLimiterRejectsExcessRuns(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200000; i++ {
		sb.WriteString("Ann,Lee,1990-01-01\n")
	}
	path := writeTempFile(t, "big.csv", []byte(sb.String()))

	// Unbuffered-ish sink that nobody reads: runs block on delivery and
	// hold their slots.
	sink := NewChannelSink(1)
	cfg := testServiceConfig()
	cfg.Runs.MaxConcurrent = 1
	svc := NewService[Person](PersonParser{}, sink, cfg)

	_, err := svc.Start(context.Background(), "sess-1", path)
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), "sess-2", path)
	require.ErrorIs(t, err, ErrTooManyRuns)
}
