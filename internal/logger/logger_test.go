package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info", "json").WithComponent("session")

	l.Debug().Msg("hidden")
	l.Info().Str("event", "pin_locked").Msg("locked")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at info level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["component"] != "session" {
		t.Errorf("expected component=session, got %v", entry["component"])
	}
	if entry["event"] != "pin_locked" {
		t.Errorf("expected event=pin_locked, got %v", entry["event"])
	}
}

func TestNewWithWriter_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "loud", "json")
	l.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at the default level, got %q", buf.String())
	}
}

func TestHTTPRequest(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "debug", "json").WithRequestID("req-1")
	l.HTTPRequest("POST", "/api/v1/pin/login", 401, 25*time.Millisecond, "127.0.0.1")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"status":401`, `"path":"/api/v1/pin/login"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestNop(t *testing.T) {
	Nop().Error().Msg("discarded")
}
