package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/postahr/triage/internal/mail"
)

// TriageState is the phase of a triage workflow
type TriageState int

const (
	TriagePresenting TriageState = iota
	TriageCommitting
	TriageComplete
)

func (s TriageState) String() string {
	switch s {
	case TriagePresenting:
		return "presenting"
	case TriageCommitting:
		return "committing"
	case TriageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// DefaultAdvanceDelay is the presentation pause between a committed decision
// and the next message
const DefaultAdvanceDelay = 250 * time.Millisecond

// TriageQueue drives a sequential one-message-at-a-time decision workflow
// over an ordered id list. Decisions advance the cursor after a short
// presentation delay; mutation requests are issued in submission order but
// the queue never waits for their responses, so triage feels instantaneous.
// Failures surface through the Notifier, never through the cursor.
//
// A queue is created at workflow start and discarded on completion or
// abandonment; it is never persisted.
type TriageQueue struct {
	store    MessageStore
	notifier Notifier
	clock    Clock
	logger   *log.Logger

	ctx          context.Context
	advanceDelay time.Duration
	snoozeWake   func(now time.Time) time.Time
	keys         map[rune]mail.Action

	mu        sync.Mutex
	ids       []string
	cursor    int
	state     TriageState
	decisions []TriageDecision
	timer     Timer
	abandoned bool

	mutations chan TriageDecision
	drained   chan struct{}
}

// TriageOptions configures a queue
type TriageOptions struct {
	AdvanceDelay time.Duration
	// SnoozeWake resolves the wake time used for mail.ActionSnooze decisions.
	// Snooze submissions are rejected when nil.
	SnoozeWake func(now time.Time) time.Time
	// Keys maps single-character shortcuts to actions. Defaults apply when nil.
	Keys map[rune]mail.Action
	// Clock defaults to RealClock
	Clock Clock
	// Logger is optional, for debug output
	Logger *log.Logger
}

// DefaultTriageKeys is the built-in shortcut set
func DefaultTriageKeys() map[rune]mail.Action {
	return map[rune]mail.Action{
		'a': mail.ActionArchive,
		'd': mail.ActionTrash,
		's': mail.ActionStar,
		'r': mail.ActionMarkRead,
		'z': mail.ActionSnooze,
		'k': mail.ActionSkip,
	}
}

// NewTriageQueue creates a queue over the ordered id list. An empty list
// starts in the terminal state. The context bounds all mutation calls issued
// on behalf of this queue.
func NewTriageQueue(ctx context.Context, ids []string, store MessageStore, notifier Notifier, opts TriageOptions) *TriageQueue {
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = DefaultAdvanceDelay
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Keys == nil {
		opts.Keys = DefaultTriageKeys()
	}

	q := &TriageQueue{
		store:        store,
		notifier:     notifier,
		clock:        opts.Clock,
		logger:       opts.Logger,
		ctx:          ctx,
		advanceDelay: opts.AdvanceDelay,
		snoozeWake:   opts.SnoozeWake,
		keys:         opts.Keys,
		ids:          append([]string(nil), ids...),
		mutations:    make(chan TriageDecision, len(ids)),
		drained:      make(chan struct{}),
	}
	if len(q.ids) == 0 {
		q.state = TriageComplete
		close(q.mutations)
	}
	go q.dispatch()
	return q
}

// dispatch issues mutation requests strictly in submission order. Responses
// may lag queue progression; errors go to the same notification surface as
// bulk failures.
func (q *TriageQueue) dispatch() {
	defer close(q.drained)
	for d := range q.mutations {
		var err error
		switch d.Action {
		case mail.ActionSnooze:
			err = q.store.Snooze(q.ctx, d.MessageID, q.snoozeWake(q.clock.Now()))
		default:
			err = q.store.ApplyAction(q.ctx, []string{d.MessageID}, d.Action, "")
		}
		if err != nil {
			if q.logger != nil {
				q.logger.Printf("triage %s on %s failed: %v", d.Action, d.MessageID, err)
			}
			q.notifier.ShowError(q.ctx, fmt.Sprintf("Could not %s message", actionVerb(d.Action)))
		}
	}
}

// Submit records the given action against the message at the cursor and
// starts the advance timer. Submissions are rejected while a decision is
// committing and after the queue is complete, so a double keypress can never
// skip a message.
func (q *TriageQueue) Submit(action mail.Action) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.state {
	case TriageComplete:
		return ErrQueueComplete
	case TriageCommitting:
		return ErrActionInFlight
	}
	if !triageAction(action) {
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if action == mail.ActionSnooze && q.snoozeWake == nil {
		return fmt.Errorf("%w: snooze not configured", ErrInvalidAction)
	}

	d := TriageDecision{MessageID: q.ids[q.cursor], Action: action}
	q.decisions = append(q.decisions, d)
	q.state = TriageCommitting

	// Skip is the only action with no external side effect
	if action != mail.ActionSkip {
		q.mutations <- d
	}

	q.timer = q.clock.AfterFunc(q.advanceDelay, q.advance)
	return nil
}

// HandleKey maps a single-character shortcut to an action and submits it.
// Unknown keys are ignored, and everything is ignored once complete.
func (q *TriageQueue) HandleKey(r rune) error {
	q.mu.Lock()
	if q.state == TriageComplete {
		q.mu.Unlock()
		return nil
	}
	action, ok := q.keys[r]
	q.mu.Unlock()
	if !ok {
		return nil
	}
	err := q.Submit(action)
	if errors.Is(err, ErrActionInFlight) {
		// Key repeat during the presentation delay, not worth surfacing
		return nil
	}
	return err
}

// advance moves the cursor past the committed item and either presents the
// next one or completes the workflow with a single summary notification.
func (q *TriageQueue) advance() {
	q.mu.Lock()
	if q.state != TriageCommitting {
		q.mu.Unlock()
		return
	}
	q.cursor++
	if q.cursor == len(q.ids) {
		q.state = TriageComplete
		close(q.mutations)
		n := q.cursor
		q.mu.Unlock()
		q.notifier.ShowSuccess(q.ctx, fmt.Sprintf("Triage complete, %d messages processed", n))
		return
	}
	q.state = TriagePresenting
	q.mu.Unlock()
}

// Abandon discards the workflow. Already-submitted mutations stand; no
// compensating action is taken and no summary is emitted.
func (q *TriageQueue) Abandon() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.state == TriageComplete || q.abandoned {
		return
	}
	if q.timer != nil {
		q.timer.Stop()
	}
	q.abandoned = true
	q.state = TriageComplete
	close(q.mutations)
}

// Drain blocks until every issued mutation request has been dispatched, or
// the context is done. Only meaningful after completion or abandonment.
func (q *TriageQueue) Drain(ctx context.Context) error {
	select {
	case <-q.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current workflow phase
func (q *TriageQueue) State() TriageState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Cursor returns the position of the message being presented; equal to the
// queue length once complete
func (q *TriageQueue) Cursor() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cursor
}

// ProcessedCount equals the cursor at all times: one decision advances the
// cursor by exactly one
func (q *TriageQueue) ProcessedCount() int {
	return q.Cursor()
}

// Len returns the total queue length
func (q *TriageQueue) Len() int {
	return len(q.ids)
}

// Current returns the id under the cursor, or false when complete
func (q *TriageQueue) Current() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cursor >= len(q.ids) || q.state == TriageComplete {
		return "", false
	}
	return q.ids[q.cursor], true
}

// Decisions returns a copy of the committed decisions so far
func (q *TriageQueue) Decisions() []TriageDecision {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]TriageDecision(nil), q.decisions...)
}

func triageAction(a mail.Action) bool {
	switch a {
	case mail.ActionArchive, mail.ActionTrash, mail.ActionStar,
		mail.ActionMarkRead, mail.ActionSnooze, mail.ActionSkip:
		return true
	}
	return false
}
