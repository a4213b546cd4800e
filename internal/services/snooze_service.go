package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/postahr/triage/internal/config"
)

// SnoozeServiceImpl resolves snooze selections into absolute wake timestamps
// and emits the snooze request. Presets are pure functions of now and are
// constructed to always land strictly in the future; custom date+time input
// is validated before any request is built.
type SnoozeServiceImpl struct {
	store    MessageStore
	notifier Notifier
	clock    Clock
	presets  []config.SnoozePreset
	logger   *log.Logger // Optional - for debug logging
}

// NewSnoozeService creates a snooze scheduler with the built-in presets
func NewSnoozeService(store MessageStore, notifier Notifier, clock Clock) *SnoozeServiceImpl {
	if clock == nil {
		clock = RealClock{}
	}
	return &SnoozeServiceImpl{
		store:    store,
		notifier: notifier,
		clock:    clock,
		presets:  config.BuiltinSnoozePresets(),
	}
}

// SetLogger sets the logger for debug output
func (s *SnoozeServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// SetPresets replaces the preset catalog, typically with the built-ins
// layered under a user presets file
func (s *SnoozeServiceImpl) SetPresets(presets []config.SnoozePreset) {
	s.presets = presets
}

// Presets returns the preset catalog
func (s *SnoozeServiceImpl) Presets() []config.SnoozePreset {
	return s.presets
}

// ResolvePreset computes the wake time for a named preset relative to now
func (s *SnoozeServiceImpl) ResolvePreset(name string, now time.Time) (time.Time, error) {
	for _, p := range s.presets {
		if p.Name == name {
			return resolvePreset(p, now)
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// ResolveCustom combines a calendar date ("2006-01-02") and a time of day
// ("15:04") into one absolute timestamp and validates it is strictly after
// now. No request is built when validation fails.
func (s *SnoozeServiceImpl) ResolveCustom(date, timeOfDay string, now time.Time) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrMalformedTime, date)
	}
	hour, minute, err := parseClock(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	wakeAt := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, now.Location())
	if !wakeAt.After(now) {
		return time.Time{}, ErrSnoozeInPast
	}
	return wakeAt, nil
}

// DefaultWake is the wake time used when a triage decision snoozes a message
// without choosing a preset: tomorrow 09:00.
func (s *SnoozeServiceImpl) DefaultWake(now time.Time) time.Time {
	wakeAt, err := s.ResolvePreset("tomorrow", now)
	if err != nil {
		// The built-in is always present unless presets were replaced
		// wholesale; fall back to the same shape.
		wakeAt, _ = resolvePreset(config.SnoozePreset{Name: "tomorrow", Day: "tomorrow", At: "09:00"}, now)
	}
	return wakeAt
}

// Snooze validates the wake time and submits the snooze request. The wake
// timestamp must be strictly after the request's construction time.
func (s *SnoozeServiceImpl) Snooze(ctx context.Context, messageID string, wakeAt time.Time) (*SnoozeRequest, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, fmt.Errorf("messageID cannot be empty")
	}
	now := s.clock.Now()
	if !wakeAt.After(now) {
		s.notifier.ShowError(ctx, "Snooze time must be in the future")
		return nil, ErrSnoozeInPast
	}

	req := &SnoozeRequest{MessageID: messageID, WakeAt: wakeAt}
	if err := s.store.Snooze(ctx, req.MessageID, req.WakeAt); err != nil {
		if s.logger != nil {
			s.logger.Printf("snooze %s until %s failed: %v", messageID, wakeAt, err)
		}
		s.notifier.ShowError(ctx, "Could not snooze message")
		return nil, fmt.Errorf("snooze message: %w", err)
	}
	s.notifier.ShowSuccess(ctx, fmt.Sprintf("Snoozed until %s", wakeAt.Format("Mon 2 Jan 15:04")))
	return req, nil
}

// SnoozePreset resolves a named preset and submits the request in one step
func (s *SnoozeServiceImpl) SnoozePreset(ctx context.Context, messageID, preset string) (*SnoozeRequest, error) {
	wakeAt, err := s.ResolvePreset(preset, s.clock.Now())
	if err != nil {
		s.notifier.ShowError(ctx, err.Error())
		return nil, err
	}
	return s.Snooze(ctx, messageID, wakeAt)
}

// SnoozeCustom resolves a custom date+time and submits the request in one step
func (s *SnoozeServiceImpl) SnoozeCustom(ctx context.Context, messageID, date, timeOfDay string) (*SnoozeRequest, error) {
	wakeAt, err := s.ResolveCustom(date, timeOfDay, s.clock.Now())
	if err != nil {
		s.notifier.ShowError(ctx, err.Error())
		return nil, err
	}
	return s.Snooze(ctx, messageID, wakeAt)
}

// resolvePreset computes the wake time for one preset definition. Calendar
// presets always pick a strictly future day: a weekday preset evaluated on
// its own weekday wraps a full week ahead regardless of the clock.
func resolvePreset(p config.SnoozePreset, now time.Time) (time.Time, error) {
	if after := strings.TrimSpace(p.After); after != "" {
		d, err := time.ParseDuration(after)
		if err != nil || d <= 0 {
			return time.Time{}, fmt.Errorf("%w: duration %q", ErrMalformedTime, p.After)
		}
		return now.Add(d), nil
	}

	hour, minute, err := parseClock(p.At)
	if err != nil {
		return time.Time{}, err
	}

	var target time.Time
	day := strings.ToLower(strings.TrimSpace(p.Day))
	if day == "tomorrow" {
		target = now.AddDate(0, 0, 1)
	} else {
		weekday, ok := weekdays[day]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: day %q", ErrMalformedTime, p.Day)
		}
		days := int(weekday-now.Weekday()+7) % 7
		if days == 0 {
			days = 7
		}
		target = now.AddDate(0, 0, days)
	}
	return time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, now.Location()), nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseClock(s string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", strings.TrimSpace(s))
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: time %q", ErrMalformedTime, s)
	}
	return t.Hour(), t.Minute(), nil
}
