// Package export writes one plain-text transcript per chat.
package export

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Napageneral/chatscope/internal/metrics"
	"github.com/Napageneral/chatscope/internal/reconcile"
)

const (
	// TimeLayout is the timestamp format of transcript lines.
	TimeLayout = "2006-01-02 15:04:05"
	// UnknownTime replaces timestamps that cannot be rendered.
	UnknownTime = "Unknown Time"
	// SelfLabel is the sender label of sent messages.
	SelfLabel = "Me"
)

type Exporter struct {
	OutputDir string
	Location  *time.Location
	Log       zerolog.Logger
	Metrics   *metrics.Metrics
}

// File describes one written transcript.
type File struct {
	ChatID   int64  `json:"chat_id"`
	Path     string `json:"path"`
	Messages int    `json:"messages"`
}

type Result struct {
	RunID   string `json:"run_id"`
	Files   []File `json:"files"`
	Skipped int    `json:"skipped"`
}

// Export writes a transcript for every chat that has at least one message
// with non-blank text. Chats are processed in order of first appearance and
// two chats sanitizing to the same name overwrite each other.
func (e *Exporter) Export(ctx context.Context, t *reconcile.Table) (Result, error) {
	res := Result{RunID: uuid.New().String()}
	log := e.Log.With().Str("run_id", res.RunID).Logger()

	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return res, fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, chat := range groupByChat(t.Rows) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !hasText(chat) {
			res.Skipped++
			continue
		}
		sort.SliceStable(chat, func(i, j int) bool { return chat[i].Timestamp < chat[j].Timestamp })

		path := filepath.Join(e.OutputDir, FileName(chat[0])+".txt")
		if err := e.write(path, chat); err != nil {
			return res, err
		}
		res.Files = append(res.Files, File{ChatID: chat[0].ChatID, Path: path, Messages: len(chat)})
		log.Info().Int64("chat_id", chat[0].ChatID).Str("file", filepath.Base(path)).Msg("chat exported")
	}

	e.Metrics.ObserveExport(len(res.Files))
	log.Info().
		Int("files", len(res.Files)).
		Int("skipped", res.Skipped).
		Str("dir", e.OutputDir).
		Msg("export complete")
	return res, nil
}

func (e *Exporter) write(path string, rows []reconcile.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	for _, r := range rows {
		fmt.Fprintln(w, Line(r, e.Location))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func groupByChat(rows []reconcile.Row) [][]reconcile.Row {
	index := make(map[int64]int)
	var chats [][]reconcile.Row
	for _, r := range rows {
		i, ok := index[r.ChatID]
		if !ok {
			i = len(chats)
			index[r.ChatID] = i
			chats = append(chats, nil)
		}
		chats[i] = append(chats[i], r)
	}
	return chats
}

func hasText(rows []reconcile.Row) bool {
	for _, r := range rows {
		if r.Text != nil && strings.TrimSpace(*r.Text) != "" {
			return true
		}
	}
	return false
}

// FileName returns the sanitized transcript base name for the chat of r.
func FileName(r reconcile.Row) string {
	name := "Chat with " + r.DisplayName
	if r.IsGroup() {
		name = *r.Group
	}
	return Sanitize(name)
}

// Sanitize replaces every rune other than letters, digits, space, '_' and
// '-' with '_'.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}

// Line renders one transcript line.
func Line(r reconcile.Row, loc *time.Location) string {
	sender := r.DisplayName
	if r.FromMe {
		sender = SelfLabel
	}
	var text string
	if r.Text != nil {
		text = *r.Text
	}
	return fmt.Sprintf("%s - %s: %s", FormatTimestamp(r.Timestamp, loc), sender, text)
}

// FormatTimestamp renders a millisecond timestamp in loc, or UnknownTime.
func FormatTimestamp(ms int64, loc *time.Location) string {
	if !reconcile.ValidTimestamp(ms) {
		return UnknownTime
	}
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc).Format(TimeLayout)
}
