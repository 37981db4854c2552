// Package history persists a journal of scan and merge sessions in an
// app-owned SQLite database, separate from the Skype files it operates
// on.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Session is one recorded scan or merge run.
type Session struct {
	ID            uuid.UUID
	Kind          string // "scan" or "merge"
	Source        string
	Target        string
	StartedAt     time.Time
	FinishedAt    time.Time // zero while running or after a crash
	Chats         int
	Messages      int
	Participants  int
	Contacts      int
	ContactGroups int
	Cancelled     bool
	Error         string
}

// SessionError is one chat that failed inside an otherwise successful
// session.
type SessionError struct {
	ChatIdentity string
	ChatTitle    string
	Error        string
}

// Store wraps the SQLite connection for the history database.
type Store struct {
	*sql.DB
}

// Open creates the history database connection, running pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	s := &Store{db}
	if _, err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// BeginSession records the start of a run.
func (s *Store) BeginSession(id uuid.UUID, kind, source, target string) error {
	_, err := s.Exec(
		`INSERT INTO sessions (id, kind, source, target, started_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), kind, source, target, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record session start: %w", err)
	}
	return nil
}

// FinishSession records a run's outcome: totals, cancellation, a fatal
// error if the session aborted, and the per-chat errors it survived.
func (s *Store) FinishSession(id uuid.UUID, chats, messages, participants, contacts, groups int,
	cancelled bool, fatal string, chatErrors []SessionError) error {

	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("record session end: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`UPDATE sessions SET finished_at = ?, chats = ?, messages = ?, participants = ?,
		 contacts = ?, contactgroups = ?, cancelled = ?, error = ? WHERE id = ?`,
		time.Now().Unix(), chats, messages, participants, contacts, groups,
		cancelled, nullString(fatal), id.String())
	if err != nil {
		return fmt.Errorf("record session end: %w", err)
	}
	for _, ce := range chatErrors {
		_, err = tx.Exec(
			`INSERT INTO session_errors (session_id, chat_identity, chat_title, error) VALUES (?, ?, ?, ?)`,
			id.String(), ce.ChatIdentity, ce.ChatTitle, ce.Error)
		if err != nil {
			return fmt.Errorf("record session error: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record session end: %w", err)
	}
	return nil
}

// Sessions returns the most recent sessions, newest first.
func (s *Store) Sessions(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Query(
		`SELECT id, kind, source, target, started_at, finished_at, chats, messages,
		 participants, contacts, contactgroups, cancelled, error
		 FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Session
	for rows.Next() {
		var (
			sess       Session
			rawID      string
			started    int64
			finished   sql.NullInt64
			errMessage sql.NullString
		)
		err := rows.Scan(&rawID, &sess.Kind, &sess.Source, &sess.Target, &started,
			&finished, &sess.Chats, &sess.Messages, &sess.Participants,
			&sess.Contacts, &sess.ContactGroups, &sess.Cancelled, &errMessage)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.ID, err = uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		sess.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			sess.FinishedAt = time.Unix(finished.Int64, 0)
		}
		sess.Error = errMessage.String
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// Errors returns the per-chat errors recorded for a session.
func (s *Store) Errors(id uuid.UUID) ([]SessionError, error) {
	rows, err := s.Query(
		`SELECT chat_identity, chat_title, error FROM session_errors WHERE session_id = ? ORDER BY id`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("list session errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SessionError
	for rows.Next() {
		var se SessionError
		if err := rows.Scan(&se.ChatIdentity, &se.ChatTitle, &se.Error); err != nil {
			return nil, fmt.Errorf("scan session error: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
