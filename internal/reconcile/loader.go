package reconcile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/db"
	"github.com/Napageneral/chatscope/internal/metrics"
)

// Loader runs the reconciliation pipeline against files on disk and keeps
// the most recent table in memory until either input file changes.
type Loader struct {
	StorePath    string
	ContactsPath string
	Normalizer   contacts.Normalizer
	Log          zerolog.Logger
	Metrics      *metrics.Metrics

	mu    sync.Mutex
	key   fileKey
	table *Table
}

type fileStamp struct {
	modTime int64
	size    int64
	exists  bool
}

type fileKey struct {
	store    fileStamp
	wal      fileStamp
	contacts fileStamp
}

// currentKey stamps the store, its write-ahead log and the contact book.
// A WAL-mode store can change while the main file stays untouched.
func (l *Loader) currentKey() fileKey {
	return fileKey{
		store:    stamp(l.StorePath),
		wal:      stamp(l.StorePath + "-wal"),
		contacts: stamp(l.ContactsPath),
	}
}

func stamp(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{modTime: info.ModTime().UnixNano(), size: info.Size(), exists: true}
}

// Load rebuilds the table from scratch. The store is opened and closed
// within the call; a missing store fails before any query runs.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	start := time.Now()
	t, err := l.load(ctx)
	l.Metrics.ObserveLoad(time.Since(start), tableLen(t), err)
	if err != nil {
		return nil, err
	}
	l.Log.Info().
		Int("messages", len(t.Rows)).
		Int("one_on_one_chats", len(t.ChatNames)).
		Dur("duration", time.Since(start)).
		Msg("message table reconciled")
	return t, nil
}

func (l *Loader) load(ctx context.Context) (*Table, error) {
	store, err := db.Open(ctx, l.StorePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	snap, err := db.ReadSnapshot(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	book, err := contacts.LoadFile(l.ContactsPath, l.Normalizer)
	if err != nil {
		return nil, err
	}
	if len(book) == 0 {
		l.Log.Debug().Str("path", l.ContactsPath).Msg("no contacts loaded, phone numbers will be used as names")
	}

	return Build(snap, book, l.Normalizer), nil
}

// Cached returns the last table while neither the store nor the contact book
// has changed on disk, and reloads otherwise. Safe for concurrent use.
func (l *Loader) Cached(ctx context.Context) (*Table, error) {
	key := l.currentKey()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.table != nil && key.store.exists && key == l.key {
		l.Metrics.ObserveCacheHit()
		return l.table, nil
	}
	t, err := l.Load(ctx)
	if err != nil {
		l.table = nil
		return nil, err
	}
	l.key = key
	l.table = t
	return t, nil
}

func tableLen(t *Table) int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
