// Package store persists the sessions, messages and knowledge bases served by ragchat serve.
package store

import (
	"database/sql"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a session, message or knowledge base does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_bases (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	original_filename TEXT NOT NULL DEFAULT '',
	file_size INTEGER NOT NULL DEFAULT 0,
	content_type TEXT NOT NULL DEFAULT '',
	upload_timestamp INTEGER NOT NULL,
	last_access_timestamp INTEGER NOT NULL DEFAULT 0,
	access_count INTEGER NOT NULL DEFAULT 0,
	question_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	pinned INTEGER NOT NULL DEFAULT 0,
	creation_timestamp INTEGER NOT NULL,
	update_timestamp INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS session_knowledge_bases (
	session_id INTEGER NOT NULL,
	knowledge_base_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (session_id, knowledge_base_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	creation_timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS messages_session_id ON messages (session_id, id);
CREATE INDEX IF NOT EXISTS session_knowledge_bases_kb ON session_knowledge_bases (knowledge_base_id);
`

// Store implements a SQLite store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (and creates if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening database")
	}
	// Writes from concurrent requests are serialized by the pool rather than failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "creating tables")
	}
	return &Store{db: db, now: time.Now}, nil
}

// timestamp returns the current time in microseconds.
func (s *Store) timestamp() int64 {
	return s.now().UnixMicro()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
