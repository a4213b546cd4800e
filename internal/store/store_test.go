package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postahr/triage/internal/filter"
	"github.com/postahr/triage/internal/mail"
	"github.com/postahr/triage/internal/services"
)

var baseTime = time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.SetNowFunc(func() time.Time { return baseTime })
	return s
}

func seedMessages(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	msgs := []mail.Message{
		{
			ID: "m1", From: "ana@example.com", To: "me@example.com",
			Subject: "Invoice for August", Snippet: "Please find attached",
			Date: baseTime.Add(-2 * time.Hour), Size: 250 * 1024,
			Flags: mail.Flags{Unread: true, HasAttachment: true},
		},
		{
			ID: "m2", From: "marko@example.com", To: "me@example.com",
			Subject: "Lunch tomorrow?", Snippet: "Thinking pizza",
			Date: baseTime.Add(-26 * time.Hour), Size: 4 * 1024,
			Flags: mail.Flags{Starred: true},
		},
		{
			ID: "m3", From: "alerts@example.com", To: "me@example.com",
			Subject: "Server down", Snippet: "prod-web-3 unreachable",
			Date: baseTime.Add(-10 * 24 * time.Hour), Size: 2 * 1024 * 1024,
			Flags: mail.Flags{Unread: true, Priority: mail.PriorityHigh},
		},
		{
			ID: "m4", From: "old@example.com", To: "me@example.com",
			Subject: "Archived thread", Snippet: "",
			Date: baseTime.Add(-48 * time.Hour), Size: 10 * 1024,
			Location: mail.LocationArchived,
		},
		{
			ID: "m5", From: "spam@example.com", To: "me@example.com",
			Subject: "You won", Snippet: "",
			Date: baseTime.Add(-time.Hour), Size: 1024,
			Location: mail.LocationTrash,
		},
	}
	for _, m := range msgs {
		require.NoError(t, s.UpsertMessage(ctx, m))
	}
	require.NoError(t, s.UpsertLabel(ctx, mail.Label{ID: "work", Name: "Work"}))
	require.NoError(t, s.UpsertLabel(ctx, mail.Label{ID: "personal", Name: "Personal"}))
}

func ids(msgs []mail.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestStore_SearchExcludesTrashByDefault(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)

	// No location constraint at all: everything except trash
	q := filter.Query{Sort: filter.DefaultSort}
	msgs, err := s.Search(context.Background(), q)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2", "m3", "m4"}, ids(msgs))
}

func TestStore_SearchCategoryQueries(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	tests := []struct {
		category mail.Category
		want     []string
	}{
		{mail.CategoryInbox, []string{"m1", "m2", "m3"}},
		{mail.CategoryStarred, []string{"m2"}},
		{mail.CategoryUrgent, []string{"m3"}},
		{mail.CategoryTrash, []string{"m5"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			msgs, err := s.Search(ctx, filter.Compose(filter.Default(), tt.category))
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(msgs))
		})
	}
}

func TestStore_SearchFreeTextAndFields(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	f := filter.Default()
	f.FreeText = "pizza"
	msgs, err := s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, ids(msgs))

	f = filter.Default()
	f.From = "alerts"
	f.UnreadOnly = true
	msgs, err = s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.Equal(t, []string{"m3"}, ids(msgs))

	f = filter.Default()
	f.SubjectContains = "Invoice"
	f.HasAttachment = true
	msgs, err = s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids(msgs))
}

func TestStore_SearchSizeClasses(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	tests := []struct {
		class filter.SizeClass
		want  []string
	}{
		{filter.SizeSmall, []string{"m2"}},
		{filter.SizeMedium, []string{"m1"}},
		{filter.SizeLarge, []string{"m3"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			f := filter.Default()
			f.SizeClass = tt.class
			msgs, err := s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, ids(msgs))
		})
	}
}

func TestStore_SearchDateRange(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)

	f := filter.Default()
	f.DateRange = filter.DateRange{Mode: filter.DateToday}
	msgs, err := s.Search(context.Background(), filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	// m1 is 2h old, m2 crossed midnight 26h ago, m3 is 10 days old
	assert.Equal(t, []string{"m1"}, ids(msgs))

	f.DateRange = filter.DateRange{Mode: filter.DateWeek}
	msgs, err = s.Search(context.Background(), filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids(msgs))
}

func TestStore_SearchByLabel(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	require.NoError(t, s.ApplyAction(ctx, []string{"m1", "m3"}, mail.ActionAddLabel, "work"))

	f := filter.Default()
	f.Labels = []string{"work"}
	msgs, err := s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m3"}, ids(msgs))
	for _, m := range msgs {
		assert.Contains(t, m.Labels, "work")
	}
}

func TestStore_SearchSortOrder(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	// Default sort is date descending
	msgs, err := s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryInbox))
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(msgs))

	f := filter.Default()
	f.Sort = filter.Sort{Field: filter.SortBySize, Direction: filter.SortAsc}
	msgs, err = s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1", "m3"}, ids(msgs))
}

func TestStore_ApplyActionKinds(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	require.NoError(t, s.ApplyAction(ctx, []string{"m1", "m3"}, mail.ActionMarkRead, ""))
	f := filter.Default()
	f.UnreadOnly = true
	msgs, err := s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, s.ApplyAction(ctx, []string{"m1"}, mail.ActionStar, ""))
	msgs, err = s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryStarred))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids(msgs))

	require.NoError(t, s.ApplyAction(ctx, []string{"m2"}, mail.ActionUnstar, ""))
	require.NoError(t, s.ApplyAction(ctx, []string{"m1"}, mail.ActionArchive, ""))
	require.NoError(t, s.ApplyAction(ctx, []string{"m3"}, mail.ActionTrash, ""))

	msgs, err = s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryInbox))
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, ids(msgs))

	msgs, err = s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryTrash))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m3", "m5"}, ids(msgs))
}

func TestStore_ApplyActionValidation(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	err := s.ApplyAction(ctx, nil, mail.ActionArchive, "")
	assert.Error(t, err)

	err = s.ApplyAction(ctx, []string{"m1"}, mail.Action("explode"), "")
	assert.ErrorIs(t, err, services.ErrInvalidAction)

	err = s.ApplyAction(ctx, []string{"m1"}, mail.ActionAddLabel, "nonexistent")
	assert.ErrorIs(t, err, services.ErrLabelNotFound)
}

func TestStore_AddLabelIdempotent(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	require.NoError(t, s.ApplyAction(ctx, []string{"m1"}, mail.ActionAddLabel, "work"))
	require.NoError(t, s.ApplyAction(ctx, []string{"m1"}, mail.ActionAddLabel, "work"))

	f := filter.Default()
	f.Labels = []string{"work"}
	msgs, err := s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"work"}, msgs[0].Labels)
}

func TestStore_SnoozeHidesUntilWake(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	wakeAt := baseTime.Add(24 * time.Hour)
	require.NoError(t, s.Snooze(ctx, "m1", wakeAt))

	msgs, err := s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryInbox))
	require.NoError(t, err)
	assert.NotContains(t, ids(msgs), "m1", "snoozed message stays hidden")

	// Past the wake time the message is visible again even before WakeDue runs
	s.SetNowFunc(func() time.Time { return wakeAt.Add(time.Minute) })
	msgs, err = s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryInbox))
	require.NoError(t, err)
	assert.Contains(t, ids(msgs), "m1")
}

func TestStore_SnoozeUnknownMessage(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)

	err := s.Snooze(context.Background(), "nope", baseTime.Add(time.Hour))
	assert.ErrorIs(t, err, services.ErrMessageNotFound)
}

func TestStore_WakeDue(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)
	ctx := context.Background()

	require.NoError(t, s.ApplyAction(ctx, []string{"m2"}, mail.ActionMarkRead, ""))
	require.NoError(t, s.Snooze(ctx, "m1", baseTime.Add(time.Hour)))
	require.NoError(t, s.Snooze(ctx, "m2", baseTime.Add(time.Hour)))
	require.NoError(t, s.Snooze(ctx, "m3", baseTime.Add(48*time.Hour)))

	woken, err := s.WakeDue(ctx, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, woken)

	// Woken messages resurface unread; the far snooze stays hidden
	f := filter.Default()
	f.UnreadOnly = true
	msgs, err := s.Search(ctx, filter.Compose(f, mail.CategoryInbox))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids(msgs))

	woken, err = s.WakeDue(ctx, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, woken)
}

func TestStore_UpsertMessageReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := mail.Message{ID: "m1", Subject: "first", Date: baseTime}
	require.NoError(t, s.UpsertMessage(ctx, m))
	m.Subject = "second"
	m.Flags.Starred = true
	require.NoError(t, s.UpsertMessage(ctx, m))

	n, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := s.Search(ctx, filter.Compose(filter.Default(), mail.CategoryInbox))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "second", msgs[0].Subject)
	assert.True(t, msgs[0].Flags.Starred)

	assert.Error(t, s.UpsertMessage(ctx, mail.Message{ID: "  "}))
}

func TestStore_ListLabels(t *testing.T) {
	s := newTestStore(t)
	seedMessages(t, s)

	labels, err := s.ListLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Personal", labels[0].Name)
	assert.Equal(t, "Work", labels[1].Name)
}

func TestStore_OpenMigratesOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "triage.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.UpsertMessage(ctx, mail.Message{ID: "m1", Date: baseTime}))
	require.NoError(t, s.Close())

	// Reopening an existing database keeps its contents
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
