package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC) }

func TestLogger_TextFormat_SortedKeys(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Info, Format: FormatText, App: "medicine-reminder", Writer: &buf, Now: fixedNow})

	l.Info("reminder scheduled", map[string]any{"entry_id": "e-1", "fire_at": "x"})

	got := strings.TrimSpace(buf.String())
	want := "app=medicine-reminder entry_id=e-1 fire_at=x level=info msg=reminder scheduled ts=2030-06-01T09:00:00Z"
	if got != want {
		t.Fatalf("unexpected line:\n got=%s\nwant=%s", got, want)
	}
}

func TestLogger_JSONFormat_WithAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Debug, Format: FormatJSON, Writer: &buf, Now: fixedNow}).
		With(map[string]any{"component": "scheduler"})

	l.Error("notify failed", map[string]any{"error": errors.New("dial tcp: refused")})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json line: %v (%s)", err, buf.String())
	}
	if entry["component"] != "scheduler" {
		t.Fatalf("expected base field, got %v", entry)
	}
	if entry["error"] != "dial tcp: refused" {
		t.Fatalf("expected error rendered as string, got %v", entry["error"])
	}
	if entry["level"] != "error" {
		t.Fatalf("expected level=error, got %v", entry["level"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: Warn, Writer: &buf})

	l.Debug("hidden", nil)
	l.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}

	l.Warn("shown", nil)
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if ParseLevel(" WARNING ") != Warn {
		t.Fatalf("expected warn")
	}
	if ParseLevel("nope") != Info {
		t.Fatalf("unknown level should default to info")
	}
	if ParseFormat("JSON") != FormatJSON {
		t.Fatalf("expected json")
	}
	if ParseFormat("") != FormatText {
		t.Fatalf("expected text default")
	}
}

func TestNop(t *testing.T) {
	l := Nop().With(map[string]any{"a": 1})
	l.Error("ignored", nil)
}
