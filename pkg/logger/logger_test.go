package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestCritical_WritesCriticalLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: ERROR, Service: "test"})

	log.Critical("slot claimed without booking", "slot_id", "s-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != CRITICAL {
		t.Errorf("expected level %s, got %v", CRITICAL, entry["level"])
	}
	if entry["slot_id"] != "s-1" {
		t.Errorf("expected slot_id s-1, got %v", entry["slot_id"])
	}
	if entry[SERVICE] != "test" {
		t.Errorf("expected service attribute, got %v", entry[SERVICE])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		logInfo bool
	}{
		{level: DEBUG, logInfo: true},
		{level: INFO, logInfo: true},
		{level: WARN, logInfo: false},
		{level: ERROR, logInfo: false},
		{level: "bogus", logInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Output: &buf, Level: tt.level})
			log.Info("hello")

			got := strings.Contains(buf.String(), "hello")
			if got != tt.logInfo {
				t.Errorf("level %s: expected info logged=%v, got %v", tt.level, tt.logInfo, got)
			}
		})
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: TEXT})
	log.Warn("careful", "k", "v")

	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}
