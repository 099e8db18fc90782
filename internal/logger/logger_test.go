package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestSetOutputJSONFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug", "json")
	defer Setup("info", "json")

	Info("tick finished", "utc_hour", 7, "run_id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "tick finished" {
		t.Errorf("Expected message 'tick finished', got %v", entry["message"])
	}
	if entry["run_id"] != "abc" {
		t.Errorf("Expected run_id 'abc', got %v", entry["run_id"])
	}
	if entry["utc_hour"] != float64(7) {
		t.Errorf("Expected utc_hour 7, got %v", entry["utc_hour"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn", "json")
	defer Setup("info", "json")

	Debug("hidden")
	Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("Expected no output below warn level, got %q", buf.String())
	}

	Error("send failed", errors.New("boom"), "user_id", "u1")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("Expected error field in output, got %q", buf.String())
	}
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "loud", "json")
	defer Setup("info", "json")

	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug to be filtered at default info level, got %q", buf.String())
	}
	Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected info output, got %q", buf.String())
	}
}
