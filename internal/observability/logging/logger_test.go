package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var fields map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return fields
}

func TestWithSession(t *testing.T) {
	buf := capture(t)

	l := WithSession("session", "sess-1")
	l.Info().Msg("hello")

	fields := decode(t, buf)
	if fields["component"] != "session" {
		t.Errorf("component = %v, want session", fields["component"])
	}
	if fields["sessionId"] != "sess-1" {
		t.Errorf("sessionId = %v, want sess-1", fields["sessionId"])
	}
}

func TestWithRequest(t *testing.T) {
	buf := capture(t)

	l := WithRequest("req-1", 2)
	l.Info().Msg("attempt")

	fields := decode(t, buf)
	if fields["requestId"] != "req-1" {
		t.Errorf("requestId = %v, want req-1", fields["requestId"])
	}
	if fields["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", fields["attempt"])
	}
	if fields["component"] != "analysis" {
		t.Errorf("component = %v, want analysis", fields["component"])
	}
}

func TestInit_Level(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prevLogger := log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Level = tt.level
		Init(cfg)
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("Init(level=%q): global level = %v, want %v", tt.level, got, tt.want)
		}
	}
}
