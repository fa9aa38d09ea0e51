// Package testutil builds on-disk message store fixtures for tests.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const storeSchema = `
	CREATE TABLE jid (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user TEXT,
		server TEXT,
		agent INTEGER,
		device INTEGER,
		type INTEGER,
		raw_string TEXT
	);

	CREATE TABLE chat (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		jid_row_id INTEGER UNIQUE,
		hidden INTEGER,
		subject TEXT,
		created_timestamp INTEGER
	);

	CREATE TABLE message (
		_id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_row_id INTEGER NOT NULL,
		from_me INTEGER NOT NULL,
		key_id TEXT,
		sender_jid_row_id INTEGER,
		status INTEGER,
		timestamp INTEGER,
		received_timestamp INTEGER,
		text_data TEXT
	);
`

// Store is a writable fixture of the message store schema.
type Store struct {
	t    *testing.T
	DB   *sql.DB
	Path string
}

// NewStore creates an empty message store in a temp directory.
func NewStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "msgstore.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture store: %v", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		t.Fatalf("create fixture schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{t: t, DB: db, Path: path}
}

// AddIdentity inserts a jid row.
func (s *Store) AddIdentity(id int64, user, server string) {
	s.t.Helper()
	if _, err := s.DB.Exec(`INSERT INTO jid (_id, user, server, raw_string) VALUES (?, ?, ?, ?)`,
		id, user, server, user+"@"+server); err != nil {
		s.t.Fatalf("insert jid: %v", err)
	}
}

// AddChat inserts a chat row. An empty subject is stored as NULL.
func (s *Store) AddChat(id, jidID int64, subject string) {
	s.t.Helper()
	var subj any
	if subject != "" {
		subj = subject
	}
	if _, err := s.DB.Exec(`INSERT INTO chat (_id, jid_row_id, subject) VALUES (?, ?, ?)`, id, jidID, subj); err != nil {
		s.t.Fatalf("insert chat: %v", err)
	}
}

// Message describes a fixture message row. Zero SenderID and nil Text are
// stored as 0 and NULL, the way the app writes them.
type Message struct {
	ID        int64
	ChatID    int64
	FromMe    bool
	SenderID  int64
	Timestamp int64
	Text      *string
}

// AddMessage inserts a message row.
func (s *Store) AddMessage(m Message) {
	s.t.Helper()
	fromMe := 0
	if m.FromMe {
		fromMe = 1
	}
	var text any
	if m.Text != nil {
		text = *m.Text
	}
	if _, err := s.DB.Exec(`
		INSERT INTO message (_id, chat_row_id, from_me, sender_jid_row_id, timestamp, received_timestamp, text_data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ChatID, fromMe, m.SenderID, m.Timestamp, m.Timestamp, text); err != nil {
		s.t.Fatalf("insert message: %v", err)
	}
}

// Text returns a pointer to s for Message literals.
func Text(s string) *string {
	return &s
}

// WriteFile writes content into dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
