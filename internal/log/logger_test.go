package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewToFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTo(&buf, "warn")

	logger.Info().Msg("quiet")
	logger.Warn().Str("room", "general").Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info line leaked: %s", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "general") {
		t.Fatalf("warn line missing: %s", out)
	}
}
