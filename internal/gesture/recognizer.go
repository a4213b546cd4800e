// Package gesture disambiguates horizontal swipes from vertical scrolling on
// a per-item basis and maps committed swipes to discrete triage actions.
package gesture

import "github.com/postahr/triage/internal/mail"

// Thresholds in device-independent units. The commit threshold is strictly
// below the clamp bound so a fully dragged item can always cross it.
const (
	AxisLockThreshold = 10.0
	CommitThreshold   = 80.0
	ClampBound        = 120.0
)

// Axis is the lock decision for one gesture
type Axis int

const (
	AxisUndetermined Axis = iota
	AxisHorizontal
	AxisVertical
)

// Recognizer tracks a single pointer gesture on one list item. Begin starts a
// gesture, Move feeds positions, End resolves it. A Recognizer is reusable
// across gestures but not safe for concurrent use; the UI event loop is
// single-threaded.
type Recognizer struct {
	startX, startY float64
	axis           Axis
	offset         float64
	active         bool
}

// NewRecognizer returns an idle recognizer
func NewRecognizer() *Recognizer {
	return &Recognizer{}
}

// Begin records the gesture origin and resets the axis decision
func (r *Recognizer) Begin(x, y float64) {
	r.startX, r.startY = x, y
	r.axis = AxisUndetermined
	r.offset = 0
	r.active = true
}

// Move consumes a pointer position. The first move where either delta exceeds
// the lock threshold fixes the axis for the rest of the gesture. Returns the
// clamped horizontal offset to render.
func (r *Recognizer) Move(x, y float64) float64 {
	if !r.active {
		return 0
	}
	dx := x - r.startX
	dy := y - r.startY

	if r.axis == AxisUndetermined && (abs(dx) > AxisLockThreshold || abs(dy) > AxisLockThreshold) {
		if abs(dx) > abs(dy) {
			r.axis = AxisHorizontal
		} else {
			r.axis = AxisVertical
		}
	}

	if r.axis == AxisHorizontal {
		r.offset = clamp(dx, -ClampBound, ClampBound)
	}
	return r.offset
}

// Offset returns the current visual offset
func (r *Recognizer) Offset() float64 {
	return r.offset
}

// Horizontal reports whether the gesture is axis-locked horizontal; while
// true the caller must suppress default scroll handling for the item.
func (r *Recognizer) Horizontal() bool {
	return r.axis == AxisHorizontal
}

// End resolves the gesture. A right swipe past the commit threshold archives,
// a left swipe past it deletes, anything else cancels with the offset
// animated back to zero. Vertical and undecided gestures never act.
func (r *Recognizer) End() (mail.Action, bool) {
	if !r.active {
		return "", false
	}
	r.active = false
	if r.axis != AxisHorizontal {
		return "", false
	}
	offset := r.offset
	r.offset = 0
	switch {
	case offset > CommitThreshold:
		return mail.ActionArchive, true
	case offset < -CommitThreshold:
		return mail.ActionTrash, true
	default:
		return "", false
	}
}

// Cancel abandons the gesture without resolving an action
func (r *Recognizer) Cancel() {
	r.active = false
	r.axis = AxisUndetermined
	r.offset = 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
