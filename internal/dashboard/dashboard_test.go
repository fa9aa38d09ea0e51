package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Napageneral/chatscope/internal/contacts"
	"github.com/Napageneral/chatscope/internal/metrics"
	"github.com/Napageneral/chatscope/internal/reconcile"
	"github.com/Napageneral/chatscope/internal/testutil"
)

// 2023-11-14 22:13:20 UTC
const t0 = int64(1_700_000_000_000)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, storePath string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	contactsPath := testutil.WriteFile(t, dir, "contacts.vcf",
		"BEGIN:VCARD\nFN:Alice\nTEL:+39-000-000-0001\nEND:VCARD\n")

	m := metrics.New()
	s := &Server{
		Loader: &reconcile.Loader{
			StorePath:    storePath,
			ContactsPath: contactsPath,
			Normalizer:   contacts.DefaultNormalizer,
			Log:          zerolog.Nop(),
			Metrics:      m,
		},
		Location: time.UTC,
		Metrics:  m,
		Log:      zerolog.Nop(),
	}
	return NewRouter(s)
}

func fixtureStore(t *testing.T) string {
	t.Helper()
	fx := testutil.NewStore(t)
	fx.AddIdentity(1, "390000000001", "s.whatsapp.net")
	fx.AddIdentity(2, "120363000000000001", "g.us")
	fx.AddIdentity(3, "393330001111", "s.whatsapp.net")
	fx.AddChat(10, 1, "")
	fx.AddChat(20, 2, "Team")
	fx.AddMessage(testutil.Message{ID: 1, ChatID: 10, FromMe: true, Timestamp: t0, Text: testutil.Text("ciao")})
	fx.AddMessage(testutil.Message{ID: 2, ChatID: 10, SenderID: 1, Timestamp: t0 + 120_000, Text: testutil.Text("ciao!")})
	fx.AddMessage(testutil.Message{ID: 3, ChatID: 20, SenderID: 3, Timestamp: t0 + 86_400_000, Text: testutil.Text("meeting at 10")})
	fx.AddMessage(testutil.Message{ID: 4, ChatID: 20, FromMe: true, Timestamp: t0 + 86_460_000})
	return fx.Path
}

func get(t *testing.T, r http.Handler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", target, err)
		}
	}
	return w, env
}

func TestPing(t *testing.T) {
	r := newTestServer(t, fixtureStore(t))
	w, env := get(t, r, "/ping")
	if w.Code != http.StatusOK || env.Code != 0 {
		t.Fatalf("ping: %d %+v", w.Code, env)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("missing request id header")
	}
}

func TestReport(t *testing.T) {
	r := newTestServer(t, fixtureStore(t))
	w, env := get(t, r, "/api/report?tz=Europe/Rome")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var rep struct {
		NoData   bool   `json:"no_data"`
		Timezone string `json:"timezone"`
		Overview struct {
			TotalMessages int `json:"total_messages"`
			ActiveChats   int `json:"active_chats"`
		} `json:"overview"`
		ChatTypes struct {
			Categories []struct {
				Name  string `json:"name"`
				Count int    `json:"count"`
			} `json:"categories"`
		} `json:"chat_types"`
		TopChats struct {
			OneOnOne []struct {
				Label string `json:"label"`
			} `json:"one_on_one"`
		} `json:"top_chats"`
	}
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.NoData || rep.Timezone != "Europe/Rome" || rep.Overview.TotalMessages != 4 || rep.Overview.ActiveChats != 2 {
		t.Fatalf("report: %+v", rep)
	}
	if len(rep.ChatTypes.Categories) != 4 {
		t.Fatalf("categories: %+v", rep.ChatTypes.Categories)
	}
	if len(rep.TopChats.OneOnOne) != 1 || rep.TopChats.OneOnOne[0].Label != "Alice" {
		t.Fatalf("top chats: %+v", rep.TopChats)
	}
}

func TestEmptyRangeIsNoData(t *testing.T) {
	r := newTestServer(t, fixtureStore(t))
	for _, target := range []string{"/api/report?start=2030-01-01", "/api/daily?start=2030", "/api/response-times?start=2030"} {
		w, env := get(t, r, target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", target, w.Code)
		}
		var data struct {
			NoData bool `json:"no_data"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("%s: decode: %v", target, err)
		}
		if !data.NoData {
			t.Fatalf("%s: expected no_data", target)
		}
	}
}

func TestRangeAndMessages(t *testing.T) {
	r := newTestServer(t, fixtureStore(t))

	_, env := get(t, r, "/api/range")
	var span struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(env.Data, &span); err != nil {
		t.Fatalf("decode range: %v", err)
	}
	if span.Start != "2023-11-14" || span.End != "2023-11-15" {
		t.Fatalf("range: %+v", span)
	}

	_, env = get(t, r, "/api/messages?limit=2")
	var page struct {
		Result struct {
			Total int `json:"total"`
			Rows  []struct {
				ID int64 `json:"id"`
			} `json:"rows"`
		} `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if page.Result.Total != 4 || len(page.Result.Rows) != 2 || page.Result.Rows[0].ID != 3 {
		t.Fatalf("messages: %+v", page.Result)
	}
}

func TestBadParams(t *testing.T) {
	r := newTestServer(t, fixtureStore(t))
	for _, target := range []string{
		"/api/report?start=yesterday",
		"/api/report?start=2024-03-01&end=2024-02-01",
		"/api/hourly?tz=Mars/Olympus",
		"/api/messages?limit=-1",
		"/api/top-chats?n=zero",
	} {
		w, env := get(t, r, target)
		if w.Code != http.StatusBadRequest || env.Code == 0 {
			t.Fatalf("%s: status=%d code=%d", target, w.Code, env.Code)
		}
	}
}

func TestMissingStore(t *testing.T) {
	r := newTestServer(t, filepath.Join(t.TempDir(), "msgstore.db"))
	w, env := get(t, r, "/api/report")
	if w.Code != http.StatusServiceUnavailable || env.Code != 50301 {
		t.Fatalf("status=%d env=%+v", w.Code, env)
	}
}

func TestNoRouteAndMetrics(t *testing.T) {
	r := newTestServer(t, fixtureStore(t))
	if w, env := get(t, r, "/nope"); w.Code != http.StatusNotFound || env.Code != 40400 {
		t.Fatalf("no route: %d %+v", w.Code, env)
	}
	get(t, r, "/api/overview")

	w, _ := get(t, r, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`chatscope_http_requests_total{route="/api/overview",status="200"} 1`,
		`chatscope_pipeline_loads_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestMessagesOrderedByTimestamp(t *testing.T) {
	fx := testutil.NewStore(t)
	fx.AddIdentity(1, "390000000001", "s.whatsapp.net")
	fx.AddChat(10, 1, "")
	// Ids and timestamps disagree: the highest id is the oldest message.
	fx.AddMessage(testutil.Message{ID: 1, ChatID: 10, FromMe: true, Timestamp: t0 + 600_000, Text: testutil.Text("newest")})
	fx.AddMessage(testutil.Message{ID: 2, ChatID: 10, FromMe: true, Timestamp: t0 + 300_000, Text: testutil.Text("middle")})
	fx.AddMessage(testutil.Message{ID: 3, ChatID: 10, FromMe: true, Timestamp: t0, Text: testutil.Text("oldest")})
	r := newTestServer(t, fx.Path)

	_, env := get(t, r, "/api/messages?limit=2")
	var page struct {
		Result struct {
			Rows []struct {
				ID int64 `json:"id"`
			} `json:"rows"`
		} `json:"result"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	rows := page.Result.Rows
	if len(rows) != 2 || rows[0].ID != 2 || rows[1].ID != 1 {
		t.Fatalf("rows=%+v want ids [2 1]", rows)
	}
}
