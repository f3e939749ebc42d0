// Package audit captures the append-only trail of voting actions. Events are
// emitted from domain logic into an in-process channel and drained by a
// worker into a sink, so request latency never depends on the audit backend.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Actions recorded on the trail.
const (
	ActionVoteRegistered   = "vote.registered"
	ActionVoteRetracted    = "vote.retracted"
	ActionDelegationIssued = "delegation.issued"
	ActionPaperRegistered  = "vote.paper_registered"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out. VoterID is the booth pseudonym,
// never the civil identity.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     string    `json:"action"`
	UserID     int64     `json:"user_id"`
	ElectionID int64     `json:"election_id"`
	VoterID    string    `json:"voter_id,omitempty"`
	Address    int64     `json:"address,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Sink persists events. Implementations must tolerate replays: the worker
// retries on transient failures.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Recorder accepts events from domain logic and hands them to the worker
// through a bounded channel. When the channel is full the event is dropped
// and counted, never blocking the request path.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Recorder{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Record enqueues the event, stamping the time if unset.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.WarnContext(ctx, "audit inbox full, dropping event",
			slog.String("action", event.Action),
			slog.Int64("election_id", event.ElectionID),
		)
	}
}

// Inbox exposes the read side of the channel for the worker.
func (r *Recorder) Inbox() <-chan Event {
	return r.inbox
}

// Worker consumes audit events from the recorder and persists them.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. Sink failures are logged and
// the event is dropped; the trail is best-effort by contract, the vote record
// itself is the durable source of truth.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					slog.String("action", event.Action),
					slog.Any("error", err),
				)
			}
		}
	}
}
