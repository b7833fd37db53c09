package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

/*
Message is one entry in a session's append-only log. Context holds the
retrieval context that accompanied the message, when there was one.
*/
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Context   *string   `json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

/*
Summary aggregates a session. Sessions exist implicitly, so every summary
covers at least one message.
*/
type Summary struct {
	SessionID    string    `json:"session_id"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	MessageCount int       `json:"count"`
}

/*
Store is the durable session log, kept in a single SQLite file.
*/
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")

	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (store *Store) Close() error {
	return store.db.Close()
}

// Path returns the database file location.
func (store *Store) Path() string {
	return store.path
}

/*
AddMessage appends one message. The timestamp is assigned here, in UTC with
microsecond precision.
*/
func (store *Store) AddMessage(
	ctx context.Context, sessionID string, role Role, content string, retrieved *string,
) error {
	_, err := store.db.ExecContext(
		ctx,
		`INSERT INTO messages (session_id, role, content, context, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(role), content, nullable(retrieved), store.now().UTC().Format(timeLayout),
	)

	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

/*
RecentContext renders the last limit messages of a session, oldest first, as
"Role: content" lines. A session without messages yields "".
*/
func (store *Store) RecentContext(ctx context.Context, sessionID string, limit int) (string, error) {
	rows, err := store.db.QueryContext(
		ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)

	if err != nil {
		return "", fmt.Errorf("recent messages: %w", err)
	}

	defer rows.Close()

	var lines []string

	for rows.Next() {
		var role, content string

		if err := rows.Scan(&role, &content); err != nil {
			return "", fmt.Errorf("scan message: %w", err)
		}

		lines = append(lines, capitalize(role)+": "+content)
	}

	if err := rows.Err(); err != nil {
		return "", err
	}

	slices.Reverse(lines)

	return strings.Join(lines, "\n"), nil
}

/*
ListSessions returns one summary per session, most recently active first.
Ties on the last timestamp go to the session with the latest message id.
A limit of zero or less returns every session.
*/
func (store *Store) ListSessions(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT session_id, MIN(created_at), MAX(created_at), COUNT(*)
FROM messages GROUP BY session_id ORDER BY MAX(created_at) DESC, MAX(id) DESC`

	var args []any

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := store.db.QueryContext(ctx, query, args...)

	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	defer rows.Close()

	var sessions []Summary

	for rows.Next() {
		var (
			summary      Summary
			start, until string
		)

		if err := rows.Scan(&summary.SessionID, &start, &until, &summary.MessageCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		summary.StartAt = parseTime(start)
		summary.EndAt = parseTime(until)
		sessions = append(sessions, summary)
	}

	return sessions, rows.Err()
}

// Messages returns the full transcript of a session in insertion order.
func (store *Store) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := store.db.QueryContext(
		ctx,
		`SELECT id, session_id, role, content, context, created_at FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)

	if err != nil {
		return nil, fmt.Errorf("session messages: %w", err)
	}

	defer rows.Close()

	var messages []Message

	for rows.Next() {
		var (
			msg       Message
			role      string
			retrieved sql.NullString
			created   string
		)

		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &retrieved, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		msg.Role = Role(role)
		msg.CreatedAt = parseTime(created)

		if retrieved.Valid {
			msg.Context = &retrieved.String
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}

/*
parseTime accepts our own layout, SQLite's CURRENT_TIMESTAMP layout, and
RFC 3339 for drivers that hand TIMESTAMP columns back as time.Time.
*/
func parseTime(value string) time.Time {
	for _, layout := range []string{timeLayout, time.DateTime, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}

	return time.Time{}
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))

	if len(runes) == 0 {
		return s
	}

	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
