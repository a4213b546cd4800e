package services

import (
	"context"
	"sync"
	"time"

	"github.com/postahr/triage/internal/filter"
	"github.com/postahr/triage/internal/mail"
)

// appliedCall records one ApplyAction invocation
type appliedCall struct {
	IDs     []string
	Action  mail.Action
	LabelID string
}

// fakeStore is an in-memory MessageStore recording every mutation
type fakeStore struct {
	mu       sync.Mutex
	messages []mail.Message
	applied  []appliedCall
	snoozes  []SnoozeRequest
	failWith error
}

func (f *fakeStore) Search(ctx context.Context, q filter.Query) ([]mail.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]mail.Message(nil), f.messages...), nil
}

func (f *fakeStore) ApplyAction(ctx context.Context, ids []string, action mail.Action, labelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.applied = append(f.applied, appliedCall{
		IDs:     append([]string(nil), ids...),
		Action:  action,
		LabelID: labelID,
	})
	return nil
}

func (f *fakeStore) Snooze(ctx context.Context, messageID string, wakeAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.snoozes = append(f.snoozes, SnoozeRequest{MessageID: messageID, WakeAt: wakeAt})
	return nil
}

func (f *fakeStore) appliedCalls() []appliedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appliedCall(nil), f.applied...)
}

func (f *fakeStore) snoozeCalls() []SnoozeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SnoozeRequest(nil), f.snoozes...)
}

// fakeNotifier collects notifications per level
type fakeNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	infos     []string
}

func (n *fakeNotifier) ShowSuccess(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *fakeNotifier) ShowError(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *fakeNotifier) ShowInfo(_ context.Context, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *fakeNotifier) successCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes)
}

func (n *fakeNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func (n *fakeNotifier) lastSuccess() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.successes) == 0 {
		return ""
	}
	return n.successes[len(n.successes)-1]
}

// fakeRefresher counts refresh requests
type fakeRefresher struct {
	mu    sync.Mutex
	count int
}

func (r *fakeRefresher) RequestRefresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *fakeRefresher) refreshes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// manualClock drives timers deterministically without real waiting
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires due timers in order
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.when.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
