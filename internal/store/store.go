// Package store implements the message-store collaborator on a local SQLite
// database. The engine itself never owns message data; this is the reference
// backend the CLI wires in.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/postahr/triage/internal/filter"
	"github.com/postahr/triage/internal/mail"
	"github.com/postahr/triage/internal/services"
)

// Store wraps a SQLite database holding messages, labels and snooze state
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates/migrates) the database at the given path
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	// Ensure file exists with strict perms
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		f, err := os.OpenFile(dbPath, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("create database file: %w", err)
		}
		f.Close()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys=ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout=5000;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SetNowFunc overrides the wall clock, for tests
func (s *Store) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	// user_version based migrations
	var ver int
	_ = s.db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&ver)

	// v1: messages, labels, message_labels
	if ver == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  from_addr TEXT NOT NULL DEFAULT '',
  to_addr TEXT NOT NULL DEFAULT '',
  subject TEXT NOT NULL DEFAULT '',
  snippet TEXT NOT NULL DEFAULT '',
  date INTEGER NOT NULL DEFAULT 0,
  size INTEGER NOT NULL DEFAULT 0,
  location TEXT NOT NULL DEFAULT 'inbox',
  unread INTEGER NOT NULL DEFAULT 1,
  starred INTEGER NOT NULL DEFAULT 0,
  has_attachment INTEGER NOT NULL DEFAULT 0,
  priority TEXT NOT NULL DEFAULT 'normal',
  wake_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_messages_location_date ON messages(location, date DESC);
CREATE INDEX IF NOT EXISTS idx_messages_wake_at ON messages(wake_at) WHERE wake_at IS NOT NULL;
CREATE TABLE IF NOT EXISTS labels (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS message_labels (
  message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
  label_id TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
  PRIMARY KEY (message_id, label_id)
);
`)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate v1: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "PRAGMA user_version=1;"); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set user_version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the messages matching the composed query. Snoozed messages
// stay hidden until their wake time unless the query targets trash.
func (s *Store) Search(ctx context.Context, q filter.Query) ([]mail.Message, error) {
	var (
		where []string
		args  []interface{}
	)

	if q.Location != "" {
		where = append(where, "location = ?")
		args = append(args, string(q.Location))
	} else {
		where = append(where, "location != ?")
		args = append(args, string(mail.LocationTrash))
	}
	if q.Location != mail.LocationTrash {
		where = append(where, "(wake_at IS NULL OR wake_at <= ?)")
		args = append(args, s.now().Unix())
	}
	if q.FreeText != "" {
		where = append(where, "(subject LIKE ? OR snippet LIKE ? OR from_addr LIKE ?)")
		pat := "%" + q.FreeText + "%"
		args = append(args, pat, pat, pat)
	}
	if q.From != "" {
		where = append(where, "from_addr LIKE ?")
		args = append(args, "%"+q.From+"%")
	}
	if q.To != "" {
		where = append(where, "to_addr LIKE ?")
		args = append(args, "%"+q.To+"%")
	}
	if q.SubjectContains != "" {
		where = append(where, "subject LIKE ?")
		args = append(args, "%"+q.SubjectContains+"%")
	}
	if q.HasAttachment {
		where = append(where, "has_attachment = 1")
	}
	if q.StarredOnly {
		where = append(where, "starred = 1")
	}
	if q.UnreadOnly {
		where = append(where, "unread = 1")
	}
	if q.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(q.Priority))
	}
	if start, end, ok := q.DateRange.Bounds(s.now()); ok {
		where = append(where, "date >= ? AND date < ?")
		args = append(args, start.Unix(), end.Unix())
	}
	for _, labelID := range q.Labels {
		where = append(where, "EXISTS (SELECT 1 FROM message_labels ml WHERE ml.message_id = messages.id AND ml.label_id = ?)")
		args = append(args, labelID)
	}
	switch q.SizeClass {
	case filter.SizeSmall:
		where = append(where, "size < ?")
		args = append(args, sizeSmallMax)
	case filter.SizeMedium:
		where = append(where, "size >= ? AND size < ?")
		args = append(args, sizeSmallMax, sizeMediumMax)
	case filter.SizeLarge:
		where = append(where, "size >= ?")
		args = append(args, sizeMediumMax)
	}

	query := "SELECT id, from_addr, to_addr, subject, snippet, date, size, location, unread, starred, has_attachment, priority FROM messages WHERE " +
		strings.Join(where, " AND ") + " ORDER BY " + orderClause(q.Sort)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var msgs []mail.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachLabels(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

const (
	sizeSmallMax  = 100 * 1024
	sizeMediumMax = 1024 * 1024
)

func orderClause(sort filter.Sort) string {
	col := "date"
	switch sort.Field {
	case filter.SortByFrom:
		col = "from_addr"
	case filter.SortBySubject:
		col = "subject"
	case filter.SortBySize:
		col = "size"
	}
	dir := "DESC"
	if sort.Direction == filter.SortAsc {
		dir = "ASC"
	}
	return col + " " + dir
}

func scanMessage(rows *sql.Rows) (mail.Message, error) {
	var (
		m                       mail.Message
		date                    int64
		unread, starred, attach int
		location, priority      string
	)
	if err := rows.Scan(&m.ID, &m.From, &m.To, &m.Subject, &m.Snippet, &date, &m.Size,
		&location, &unread, &starred, &attach, &priority); err != nil {
		return mail.Message{}, fmt.Errorf("scan message: %w", err)
	}
	m.Date = time.Unix(date, 0)
	m.Location = mail.Location(location)
	m.Flags = mail.Flags{
		Unread:        unread == 1,
		Starred:       starred == 1,
		HasAttachment: attach == 1,
		Priority:      mail.Priority(priority),
	}
	return m, nil
}

func (s *Store) attachLabels(ctx context.Context, msgs []mail.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	placeholders := make([]string, len(msgs))
	args := make([]interface{}, len(msgs))
	index := make(map[string]int, len(msgs))
	for i, m := range msgs {
		placeholders[i] = "?"
		args[i] = m.ID
		index[m.ID] = i
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT message_id, label_id FROM message_labels WHERE message_id IN ("+strings.Join(placeholders, ",")+")", args...)
	if err != nil {
		return fmt.Errorf("load labels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var messageID, labelID string
		if err := rows.Scan(&messageID, &labelID); err != nil {
			return err
		}
		i := index[messageID]
		msgs[i].Labels = append(msgs[i].Labels, labelID)
	}
	return rows.Err()
}

// ApplyAction applies exactly one action to the whole id set in a single
// transaction. Re-issuing a confirmed request is safe: every statement is
// idempotent.
func (s *Store) ApplyAction(ctx context.Context, ids []string, action mail.Action, labelID string) error {
	if len(ids) == 0 {
		return fmt.Errorf("no message IDs provided")
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	in := "(" + strings.Join(placeholders, ",") + ")"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	switch action {
	case mail.ActionMarkRead:
		_, err = tx.ExecContext(ctx, "UPDATE messages SET unread = 0 WHERE id IN "+in, args...)
	case mail.ActionMarkUnread:
		_, err = tx.ExecContext(ctx, "UPDATE messages SET unread = 1 WHERE id IN "+in, args...)
	case mail.ActionArchive:
		_, err = tx.ExecContext(ctx, "UPDATE messages SET location = 'archived' WHERE id IN "+in, args...)
	case mail.ActionTrash:
		_, err = tx.ExecContext(ctx, "UPDATE messages SET location = 'trash' WHERE id IN "+in, args...)
	case mail.ActionStar:
		_, err = tx.ExecContext(ctx, "UPDATE messages SET starred = 1 WHERE id IN "+in, args...)
	case mail.ActionUnstar:
		_, err = tx.ExecContext(ctx, "UPDATE messages SET starred = 0 WHERE id IN "+in, args...)
	case mail.ActionAddLabel:
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM labels WHERE id = ?", labelID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: %q", services.ErrLabelNotFound, labelID)
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO message_labels (message_id, label_id) VALUES (?, ?)", id, labelID); err != nil {
				return fmt.Errorf("apply label: %w", err)
			}
		}
	default:
		return fmt.Errorf("%w: %q", services.ErrInvalidAction, action)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", action, err)
	}
	return tx.Commit()
}

// Snooze hides a message until wakeAt
func (s *Store) Snooze(ctx context.Context, messageID string, wakeAt time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE messages SET wake_at = ? WHERE id = ?", wakeAt.Unix(), messageID)
	if err != nil {
		return fmt.Errorf("snooze message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", services.ErrMessageNotFound, messageID)
	}
	return nil
}

// WakeDue clears the snooze on every message whose wake time has passed and
// marks it unread so it resurfaces at the top of the inbox. Returns the woken
// ids.
func (s *Store) WakeDue(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM messages WHERE wake_at IS NOT NULL AND wake_at <= ?", now.Unix())
	if err != nil {
		return nil, fmt.Errorf("find due snoozes: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE messages SET wake_at = NULL, unread = 1 WHERE wake_at IS NOT NULL AND wake_at <= ?", now.Unix()); err != nil {
		return nil, fmt.Errorf("wake snoozed: %w", err)
	}
	return ids, nil
}

// UpsertMessage inserts or replaces a message row
func (s *Store) UpsertMessage(ctx context.Context, m mail.Message) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("message ID cannot be empty")
	}
	location := m.Location
	if location == "" {
		location = mail.LocationInbox
	}
	priority := m.Flags.Priority
	if priority == "" {
		priority = mail.PriorityNormal
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO messages (id, from_addr, to_addr, subject, snippet, date, size, location, unread, starred, has_attachment, priority)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  from_addr=excluded.from_addr, to_addr=excluded.to_addr, subject=excluded.subject,
  snippet=excluded.snippet, date=excluded.date, size=excluded.size, location=excluded.location,
  unread=excluded.unread, starred=excluded.starred, has_attachment=excluded.has_attachment,
  priority=excluded.priority
`, m.ID, m.From, m.To, m.Subject, m.Snippet, m.Date.Unix(), m.Size, string(location),
		boolInt(m.Flags.Unread), boolInt(m.Flags.Starred), boolInt(m.Flags.HasAttachment), string(priority))
	if err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

// UpsertLabel adds a label to the catalog
func (s *Store) UpsertLabel(ctx context.Context, l mail.Label) error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("label ID cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO labels (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name=excluded.name", l.ID, l.Name)
	if err != nil {
		return fmt.Errorf("upsert label: %w", err)
	}
	return nil
}

// ListLabels returns the label catalog sorted by name
func (s *Store) ListLabels(ctx context.Context) ([]mail.Label, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM labels ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()
	var labels []mail.Label
	for rows.Next() {
		var l mail.Label
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// CountMessages returns the total number of stored messages
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
