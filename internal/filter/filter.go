package filter

import (
	"time"

	"github.com/postahr/triage/internal/mail"
)

// DateRangeMode selects how the date constraint is interpreted
type DateRangeMode string

const (
	DateAny    DateRangeMode = "any"
	DateToday  DateRangeMode = "today"
	DateWeek   DateRangeMode = "week"
	DateMonth  DateRangeMode = "month"
	DateCustom DateRangeMode = "custom"
)

// SizeClass buckets messages by payload size
type SizeClass string

const (
	SizeAny    SizeClass = "any"
	SizeSmall  SizeClass = "small"  // < 100 KB
	SizeMedium SizeClass = "medium" // 100 KB - 1 MB
	SizeLarge  SizeClass = "large"  // > 1 MB
)

// SortField and SortDirection describe result ordering
type SortField string

const (
	SortByDate    SortField = "date"
	SortByFrom    SortField = "from"
	SortBySubject SortField = "subject"
	SortBySize    SortField = "size"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Sort describes the requested result ordering
type Sort struct {
	Field     SortField     `json:"field"`
	Direction SortDirection `json:"direction"`
}

// DefaultSort is the ordering used when the user has not asked for another one
var DefaultSort = Sort{Field: SortByDate, Direction: SortDesc}

// DateRange holds the raw date constraint as entered. A custom range with a
// missing end is treated as unconstrained until the user completes it.
type DateRange struct {
	Mode  DateRangeMode `json:"mode"`
	Start *time.Time    `json:"start,omitempty"`
	End   *time.Time    `json:"end,omitempty"`
}

// Descriptor is the immutable structured filter built from user input.
// The zero value (with Mode/SizeClass/Sort filled with their defaults) is the
// unconstrained filter.
type Descriptor struct {
	FreeText        string        `json:"free_text"`
	From            string        `json:"from"`
	To              string        `json:"to"`
	SubjectContains string        `json:"subject_contains"`
	HasAttachment   bool          `json:"has_attachment"`
	StarredOnly     bool          `json:"starred_only"`
	UnreadOnly      bool          `json:"unread_only"`
	Location        mail.Location `json:"location,omitempty"`
	Priority        mail.Priority `json:"priority,omitempty"`
	DateRange       DateRange     `json:"date_range"`
	Labels          []string      `json:"labels,omitempty"`
	SizeClass       SizeClass     `json:"size_class"`
	Sort            Sort          `json:"sort"`
}

// Default returns the unconstrained filter
func Default() Descriptor {
	return Descriptor{
		DateRange: DateRange{Mode: DateAny},
		SizeClass: SizeAny,
		Sort:      DefaultSort,
	}
}

// Query is the canonical, normalized constraint sent to the message store.
// Compose is the only producer.
type Query struct {
	FreeText        string
	From            string
	To              string
	SubjectContains string
	HasAttachment   bool
	StarredOnly     bool
	UnreadOnly      bool
	Location        mail.Location // empty = any location except trash
	Priority        mail.Priority // empty = unconstrained
	DateRange       DateRange
	Labels          []string
	SizeClass       SizeClass
	Sort            Sort
}

// Compose merges an explicit filter with the selected category into one query.
// Category constraints combine with explicit fields by logical AND; when both
// constrain the same dimension the category wins, since category selection is
// the outer navigational context. Pure function, no I/O.
func Compose(f Descriptor, cat mail.Category) Query {
	q := Query{
		FreeText:        f.FreeText,
		From:            f.From,
		To:              f.To,
		SubjectContains: f.SubjectContains,
		HasAttachment:   f.HasAttachment,
		StarredOnly:     f.StarredOnly,
		UnreadOnly:      f.UnreadOnly,
		Location:        f.Location,
		Priority:        f.Priority,
		DateRange:       normalizeRange(f.DateRange),
		SizeClass:       f.SizeClass,
		Sort:            f.Sort,
	}
	if len(f.Labels) > 0 {
		q.Labels = append([]string(nil), f.Labels...)
	}
	if q.SizeClass == "" {
		q.SizeClass = SizeAny
	}
	if q.Sort == (Sort{}) {
		q.Sort = DefaultSort
	}

	switch cat {
	case mail.CategoryInbox:
		q.Location = mail.LocationInbox
	case mail.CategoryStarred:
		q.StarredOnly = true
	case mail.CategoryUrgent:
		q.Priority = mail.PriorityHigh
	case mail.CategoryTrash:
		q.Location = mail.LocationTrash
	}
	return q
}

// normalizeRange drops incomplete or inverted custom ranges so downstream
// consumers never see a partial constraint.
func normalizeRange(r DateRange) DateRange {
	switch r.Mode {
	case DateToday, DateWeek, DateMonth:
		return DateRange{Mode: r.Mode}
	case DateCustom:
		if r.Start == nil || r.End == nil || r.Start.After(*r.End) {
			return DateRange{Mode: DateAny}
		}
		return r
	default:
		return DateRange{Mode: DateAny}
	}
}

// Bounds resolves a date range to absolute [start, end) instants relative to
// now. ok is false when the range is unconstrained.
func (r DateRange) Bounds(now time.Time) (start, end time.Time, ok bool) {
	switch r.Mode {
	case DateToday:
		y, m, d := now.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 0, 1), true
	case DateWeek:
		return now.AddDate(0, 0, -7), now, true
	case DateMonth:
		return now.AddDate(0, -1, 0), now, true
	case DateCustom:
		if r.Start == nil || r.End == nil || r.Start.After(*r.End) {
			return time.Time{}, time.Time{}, false
		}
		return *r.Start, r.End.AddDate(0, 0, 1), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// ActiveCount returns the number of fields deviating from the unconstrained
// default. Free text counts at most once regardless of length, and a label set
// counts once regardless of size, so the count is order independent.
func ActiveCount(f Descriptor) int {
	n := 0
	if f.FreeText != "" {
		n++
	}
	if f.From != "" {
		n++
	}
	if f.To != "" {
		n++
	}
	if f.SubjectContains != "" {
		n++
	}
	if f.HasAttachment {
		n++
	}
	if f.StarredOnly {
		n++
	}
	if f.UnreadOnly {
		n++
	}
	if f.Location != "" {
		n++
	}
	if f.Priority != "" {
		n++
	}
	if normalizeRange(f.DateRange).Mode != DateAny {
		n++
	}
	if len(f.Labels) > 0 {
		n++
	}
	if f.SizeClass != "" && f.SizeClass != SizeAny {
		n++
	}
	if f.Sort != (Sort{}) && f.Sort != DefaultSort {
		n++
	}
	return n
}
