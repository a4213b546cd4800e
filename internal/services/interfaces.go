package services

import (
	"context"
	"time"

	"github.com/postahr/triage/internal/filter"
	"github.com/postahr/triage/internal/mail"
)

// MessageStore is the asynchronous message-store collaborator. The engine
// consumes message lists from it and submits mutation requests to it; it never
// owns the data.
type MessageStore interface {
	Search(ctx context.Context, q filter.Query) ([]mail.Message, error)
	// ApplyAction applies exactly one action to the whole id set in a single
	// call. labelID is only consulted for mail.ActionAddLabel.
	ApplyAction(ctx context.Context, ids []string, action mail.Action, labelID string) error
	Snooze(ctx context.Context, messageID string, wakeAt time.Time) error
}

// Notifier is the presentation collaborator for user-visible feedback,
// injected instead of any ambient toast singleton.
type Notifier interface {
	ShowSuccess(ctx context.Context, msg string)
	ShowError(ctx context.Context, msg string)
	ShowInfo(ctx context.Context, msg string)
}

// Refresher is asked to re-fetch the current message list after a confirmed
// bulk mutation
type Refresher interface {
	RequestRefresh()
}

// Clock abstracts time so tests can drive delays without real waiting
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a stoppable pending callback
type Timer interface {
	Stop() bool
}

// RealClock is the production Clock backed by the time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// BulkActionRequest asks for one action over a non-empty id set. Exactly one
// action per request; the coordinator never splits a request across kinds.
type BulkActionRequest struct {
	ID        string      `json:"id"` // assigned by the coordinator
	TargetIDs []string    `json:"target_ids"`
	Action    mail.Action `json:"action"`
	LabelID   string      `json:"label_id,omitempty"`
}

// BulkOutcome reports a confirmed bulk mutation
type BulkOutcome struct {
	RequestID string `json:"request_id"`
	Affected  int    `json:"affected"`
}

// TriageDecision records one committed action against one queued message
type TriageDecision struct {
	MessageID string      `json:"message_id"`
	Action    mail.Action `json:"action"`
}

// SnoozeRequest defers a message until an absolute wake timestamp. Construct
// only through SnoozeService so WakeAt is guaranteed strictly future.
type SnoozeRequest struct {
	MessageID string    `json:"message_id"`
	WakeAt    time.Time `json:"wake_at"`
}
