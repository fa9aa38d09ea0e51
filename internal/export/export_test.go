package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Napageneral/chatscope/internal/reconcile"
)

func strp(s string) *string { return &s }

func row(id, chatID int64, fromMe bool, ts int64, display string, text *string) reconcile.Row {
	return reconcile.Row{
		ID:          id,
		ChatID:      chatID,
		FromMe:      fromMe,
		Timestamp:   ts,
		Datetime:    time.UnixMilli(ts).UTC(),
		DisplayName: display,
		Text:        text,
	}
}

func TestExport_WritesTranscripts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	group := strp("Team/Chat")

	rows := []reconcile.Row{
		row(1, 1, false, 60_000, "Alice", strp("second")),
		row(2, 1, true, 0, "Alice", strp("first")),
		row(3, 2, false, 0, "Bob", strp("   ")),
		row(4, 2, true, 1000, "", nil),
		row(5, 3, false, 0, "Carla", strp("ciao")),
		row(6, 1, false, 120_000, "Alice", nil),
	}
	rows[4].Group = group

	e := &Exporter{OutputDir: dir, Location: time.UTC, Log: zerolog.Nop()}
	res, err := e.Export(context.Background(), &reconcile.Table{Rows: rows})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(res.Files) != 2 || res.Skipped != 1 || res.RunID == "" {
		t.Fatalf("result: %+v", res)
	}

	data, err := os.ReadFile(filepath.Join(dir, "Chat with Alice.txt"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	want := strings.Join([]string{
		"1970-01-01 00:00:00 - Me: first",
		"1970-01-01 00:01:00 - Alice: second",
		"1970-01-01 00:02:00 - Alice: ",
	}, "\n") + "\n"
	if string(data) != want {
		t.Fatalf("transcript:\n%s\nwant:\n%s", data, want)
	}

	if _, err := os.Stat(filepath.Join(dir, "Team_Chat.txt")); err != nil {
		t.Fatalf("group transcript missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Chat with Bob.txt")); !os.IsNotExist(err) {
		t.Fatalf("chat without text should be skipped, stat err=%v", err)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Chat with Alice":        "Chat with Alice",
		"Team/Chat":              "Team_Chat",
		"a:b*c?":                 "a_b_c_",
		"Famiglia Rossi-Bianchi": "Famiglia Rossi-Bianchi",
		"Città 🎉":                "Città _",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q)=%q want %q", in, got, want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	if got := FormatTimestamp(0, rome); got != "1970-01-01 01:00:00" {
		t.Fatalf("FormatTimestamp(0)=%q", got)
	}
	for _, ms := range []int64{-1, 1 << 62} {
		if got := FormatTimestamp(ms, time.UTC); got != UnknownTime {
			t.Fatalf("FormatTimestamp(%d)=%q want %q", ms, got, UnknownTime)
		}
	}
}
