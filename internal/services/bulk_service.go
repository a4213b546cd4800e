package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/postahr/triage/internal/mail"
	"github.com/postahr/triage/internal/selection"
)

// BulkServiceImpl coordinates bulk actions over the current selection. It is
// deliberately not optimistic: nothing local changes until the store confirms
// the mutation, so a partial failure can never present as fully applied.
type BulkServiceImpl struct {
	store     MessageStore
	notifier  Notifier
	refresher Refresher
	sel       *selection.Set
	logger    *log.Logger // Optional - for debug logging

	mu       sync.Mutex
	inFlight bool
}

// NewBulkService creates a new bulk action coordinator
func NewBulkService(store MessageStore, notifier Notifier, refresher Refresher, sel *selection.Set) *BulkServiceImpl {
	return &BulkServiceImpl{
		store:     store,
		notifier:  notifier,
		refresher: refresher,
		sel:       sel,
	}
}

// SetLogger sets the logger for debug output
func (s *BulkServiceImpl) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// InFlight reports whether a bulk request is outstanding; the triggering
// control must stay disabled while true
func (s *BulkServiceImpl) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// ApplyToSelection builds a request from the current selection and applies it
func (s *BulkServiceImpl) ApplyToSelection(ctx context.Context, action mail.Action, labelID string) (*BulkOutcome, error) {
	return s.Apply(ctx, BulkActionRequest{
		TargetIDs: s.sel.IDs(),
		Action:    action,
		LabelID:   labelID,
	})
}

// Apply issues one mutation call scoped to the whole target set and awaits the
// store's confirmation. On success the selection is cleared, a refresh is
// requested and a success notification carries the affected count. On failure
// the selection is left untouched so the user can retry without re-selecting.
func (s *BulkServiceImpl) Apply(ctx context.Context, req BulkActionRequest) (*BulkOutcome, error) {
	if err := validateBulkRequest(req); err != nil {
		s.notifier.ShowError(ctx, err.Error())
		return nil, err
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrActionInFlight
	}
	s.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	if err := s.store.ApplyAction(ctx, req.TargetIDs, req.Action, req.LabelID); err != nil {
		if s.logger != nil {
			s.logger.Printf("bulk %s request %s failed: %v", req.Action, req.ID, err)
		}
		s.notifier.ShowError(ctx, fmt.Sprintf("Bulk %s failed for %d messages", actionVerb(req.Action), len(req.TargetIDs)))
		return nil, fmt.Errorf("apply bulk %s: %w", req.Action, err)
	}

	s.sel.Clear()
	if s.refresher != nil {
		s.refresher.RequestRefresh()
	}
	s.notifier.ShowSuccess(ctx, fmt.Sprintf("%s %d messages", actionDoneVerb(req.Action), len(req.TargetIDs)))

	return &BulkOutcome{RequestID: req.ID, Affected: len(req.TargetIDs)}, nil
}

func validateBulkRequest(req BulkActionRequest) error {
	if len(req.TargetIDs) == 0 {
		return ErrEmptySelection
	}
	switch req.Action {
	case mail.ActionMarkRead, mail.ActionMarkUnread, mail.ActionArchive,
		mail.ActionTrash, mail.ActionStar, mail.ActionUnstar:
		return nil
	case mail.ActionAddLabel:
		if req.LabelID == "" {
			return ErrLabelRequired
		}
		return nil
	default:
		// Skip and snooze are not bulk actions
		return fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
}

func actionVerb(a mail.Action) string {
	switch a {
	case mail.ActionMarkRead:
		return "mark read"
	case mail.ActionMarkUnread:
		return "mark unread"
	case mail.ActionArchive:
		return "archive"
	case mail.ActionTrash:
		return "trash"
	case mail.ActionStar:
		return "star"
	case mail.ActionUnstar:
		return "unstar"
	case mail.ActionAddLabel:
		return "label"
	default:
		return string(a)
	}
}

func actionDoneVerb(a mail.Action) string {
	switch a {
	case mail.ActionMarkRead:
		return "Marked as read"
	case mail.ActionMarkUnread:
		return "Marked as unread"
	case mail.ActionArchive:
		return "Archived"
	case mail.ActionTrash:
		return "Moved to trash"
	case mail.ActionStar:
		return "Starred"
	case mail.ActionUnstar:
		return "Unstarred"
	case mail.ActionAddLabel:
		return "Labeled"
	default:
		return "Updated"
	}
}
