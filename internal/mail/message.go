package mail

import "time"

// Priority represents the importance level carried by a message
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Location is the mutually exclusive primary place a message lives in.
// Starred is not a location; it is an orthogonal flag.
type Location string

const (
	LocationInbox    Location = "inbox"
	LocationArchived Location = "archived"
	LocationTrash    Location = "trash"
)

// Category is the navigational context selected in the folder list.
// It implies baseline query constraints (see filter.Compose).
type Category string

const (
	CategoryInbox   Category = "inbox"
	CategoryStarred Category = "starred"
	CategoryUrgent  Category = "urgent"
	CategoryTrash   Category = "trash"
)

// Flags holds the per-message boolean and priority state
type Flags struct {
	Unread        bool     `json:"unread"`
	Starred       bool     `json:"starred"`
	HasAttachment bool     `json:"has_attachment"`
	Priority      Priority `json:"priority"`
}

// Message is a read-only summary of a stored message. The engine holds
// references by ID and never mutates these in place; the store replaces the
// list wholesale on each query.
type Message struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Snippet  string    `json:"snippet"`
	Date     time.Time `json:"date"`
	Size     int64     `json:"size"`
	Location Location  `json:"location"`
	Labels   []string  `json:"labels"`
	Flags    Flags     `json:"flags"`
}

// Label is an entry in the account's label catalog
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Action identifies a mutation applied to one or more messages
type Action string

const (
	ActionMarkRead   Action = "mark_read"
	ActionMarkUnread Action = "mark_unread"
	ActionArchive    Action = "archive"
	ActionTrash      Action = "trash"
	ActionStar       Action = "star"
	ActionUnstar     Action = "unstar"
	ActionAddLabel   Action = "add_label"
	ActionSnooze     Action = "snooze"
	// ActionSkip advances a triage workflow without touching the message.
	// It is the only action that produces no mutation request.
	ActionSkip Action = "skip"
)

// Valid reports whether a is one of the known actions
func (a Action) Valid() bool {
	switch a {
	case ActionMarkRead, ActionMarkUnread, ActionArchive, ActionTrash,
		ActionStar, ActionUnstar, ActionAddLabel, ActionSnooze, ActionSkip:
		return true
	}
	return false
}

// NeedsLabel reports whether the action requires a label identifier
func (a Action) NeedsLabel() bool {
	return a == ActionAddLabel
}
