package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	clog := Component(log, "export")
	clog.Info().Int("files", 3).Msg("done")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if line["component"] != "export" || line["message"] != "done" || line["files"] != float64(3) {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(nil, "loud", "json"); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if _, err := New(nil, "info", "xml"); err == nil {
		t.Fatalf("expected error for bad format")
	}
}
