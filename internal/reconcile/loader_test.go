package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/db"
	"github.com/Napageneral/chatscope/internal/metrics"
	"github.com/Napageneral/chatscope/internal/testutil"
)

func newFixtureLoader(t *testing.T) (*Loader, *testutil.Store) {
	t.Helper()
	fx := testutil.NewStore(t)
	fx.AddIdentity(1, "390000000001", "s.whatsapp.net")
	fx.AddChat(10, 1, "")
	fx.AddMessage(testutil.Message{ID: 1, ChatID: 10, FromMe: true, Timestamp: 1_700_000_000_000, Text: testutil.Text("a")})
	fx.AddMessage(testutil.Message{ID: 2, ChatID: 10, FromMe: true, Timestamp: 1_700_000_060_000, Text: testutil.Text("b")})
	fx.AddMessage(testutil.Message{ID: 3, ChatID: 10, Timestamp: 1_700_000_120_000, Text: testutil.Text("c")})

	l := &Loader{
		StorePath:    fx.Path,
		ContactsPath: filepath.Join(t.TempDir(), "contacts.vcf"),
		Normalizer:   contacts.DefaultNormalizer,
		Log:          zerolog.Nop(),
		Metrics:      metrics.New(),
	}
	return l, fx
}

func TestLoader_Load(t *testing.T) {
	l, _ := newFixtureLoader(t)

	table, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	recv := table.Rows[2]
	if recv.FromMe || recv.DisplayName != "0000000001" {
		t.Fatalf("received row: %+v", recv)
	}
	if table.ChatNames.Name(10) != "0000000001" {
		t.Fatalf("chat names: %+v", table.ChatNames)
	}
}

func TestLoader_MissingStoreFailsFast(t *testing.T) {
	l := &Loader{
		StorePath:    filepath.Join(t.TempDir(), "msgstore.db"),
		ContactsPath: filepath.Join(t.TempDir(), "contacts.vcf"),
		Normalizer:   contacts.DefaultNormalizer,
		Log:          zerolog.Nop(),
	}
	table, err := l.Load(context.Background())
	if !errors.Is(err, db.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if table != nil {
		t.Fatalf("no partial table expected")
	}
	if _, err := l.Cached(context.Background()); !errors.Is(err, db.ErrSourceNotFound) {
		t.Fatalf("Cached: expected ErrSourceNotFound, got %v", err)
	}
}

func TestLoader_ContactsApplied(t *testing.T) {
	l, _ := newFixtureLoader(t)
	l.ContactsPath = testutil.WriteFile(t, t.TempDir(), "contacts.vcf",
		"BEGIN:VCARD\nFN:Giulia\nTEL:+39 000-000-0001\nEND:VCARD\n")

	table, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, r := range table.Rows {
		if r.DisplayName != "Giulia" {
			t.Fatalf("row %d display=%q want Giulia", r.ID, r.DisplayName)
		}
	}
}

func TestLoader_CachedReloadsOnChange(t *testing.T) {
	l, fx := newFixtureLoader(t)
	ctx := context.Background()

	first, err := l.Cached(ctx)
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	second, err := l.Cached(ctx)
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached table to be reused")
	}

	fx.AddMessage(testutil.Message{ID: 4, ChatID: 10, Timestamp: 1_700_000_180_000, Text: testutil.Text("d")})
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(fx.Path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	third, err := l.Cached(ctx)
	if err != nil {
		t.Fatalf("Cached: %v", err)
	}
	if third == first || len(third.Rows) != 4 {
		t.Fatalf("expected reload with 4 rows, got %d", len(third.Rows))
	}
}

func TestLoader_KeyTracksWriteAheadLog(t *testing.T) {
	l, fx := newFixtureLoader(t)

	before := l.currentKey()
	if before.wal.exists {
		t.Fatalf("fixture store should have no -wal file")
	}
	if err := os.WriteFile(fx.Path+"-wal", []byte("frames"), 0644); err != nil {
		t.Fatalf("write wal: %v", err)
	}
	after := l.currentKey()
	if after == before || after.store != before.store {
		t.Fatalf("only the wal stamp should change: before=%+v after=%+v", before, after)
	}
}

func TestValidTimestamp(t *testing.T) {
	cases := map[int64]bool{
		-1:                false,
		0:                 true,
		1_700_000_000_000: true,
		MaxTimestamp:      true,
		MaxTimestamp + 1:  false,
	}
	for ms, want := range cases {
		if got := ValidTimestamp(ms); got != want {
			t.Fatalf("ValidTimestamp(%d)=%v want %v", ms, got, want)
		}
	}
}
