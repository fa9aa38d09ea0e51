// Package live re-runs the export whenever the message store or the
// contact book changes on disk.
package live

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher runs Run once at start and again after every burst of changes to
// the store (including its -wal and -journal side files) or the contact book.
// Runs never overlap: a change that arrives during a run is picked up by the
// next debounce cycle.
type Watcher struct {
	StorePath    string
	ContactsPath string
	Debounce     time.Duration
	Heartbeat    time.Duration
	Run          func(ctx context.Context) error
	Log          zerolog.Logger
}

// Watch blocks until ctx is done. It returns an error only when the
// file-system watch cannot be set up.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.dirs() {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	w.Log.Info().
		Strs("dirs", w.dirs()).
		Dur("debounce", debounce).
		Msg("watching for changes")

	runs := 0
	stopHeartbeat := every(w.Heartbeat, func() {
		w.Log.Debug().Msg("watcher alive")
	})
	defer stopHeartbeat()

	run := func() {
		runs++
		start := time.Now()
		if err := w.Run(ctx); err != nil {
			w.Log.Error().Err(err).Int("run", runs).Msg("watch run failed")
			return
		}
		w.Log.Info().Int("run", runs).Dur("duration", time.Since(start)).Msg("watch run complete")
	}
	run()

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) dirs() []string {
	store := filepath.Dir(w.StorePath)
	if w.ContactsPath == "" {
		return []string{store}
	}
	contacts := filepath.Dir(w.ContactsPath)
	if contacts == store {
		return []string{store}
	}
	return []string{store, contacts}
}

// relevant reports whether an event touches one of the watched files.
// Attribute-only changes are ignored.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if w.ContactsPath != "" && name == filepath.Clean(w.ContactsPath) {
		return true
	}
	store := filepath.Clean(w.StorePath)
	return name == store || strings.HasPrefix(name, store+"-")
}
