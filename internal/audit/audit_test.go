package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRecorderStampsTime(t *testing.T) {
	r := NewRecorder(4, discardLogger())
	r.Record(context.Background(), Event{Action: ActionVoteRegistered})

	event := <-r.Inbox()
	assert.False(t, event.Timestamp.IsZero())
}

func TestRecorderKeepsExplicitTime(t *testing.T) {
	r := NewRecorder(4, discardLogger())
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r.Record(context.Background(), Event{Action: ActionVoteRetracted, Timestamp: at})

	event := <-r.Inbox()
	assert.Equal(t, at, event.Timestamp)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	r := NewRecorder(1, discardLogger())
	r.Record(context.Background(), Event{Action: "first"})
	r.Record(context.Background(), Event{Action: "dropped"})

	event := <-r.Inbox()
	assert.Equal(t, "first", event.Action)

	select {
	case extra := <-r.Inbox():
		t.Fatalf("expected drop, got %q", extra.Action)
	default:
	}
}

func TestWorkerDrainsIntoSink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewRecorder(8, discardLogger())
	sink := NewMemorySink()
	worker := NewWorker(sink, r.Inbox(), discardLogger())

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	r.Record(ctx, Event{Action: ActionVoteRegistered, UserID: 1, ElectionID: 10})
	r.Record(ctx, Event{Action: ActionDelegationIssued, UserID: 1, ElectionID: 10})

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	events := sink.Events()
	assert.Equal(t, ActionVoteRegistered, events[0].Action)
	assert.Equal(t, ActionDelegationIssued, events[1].Action)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
