package logutil

import (
	"bytes"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    zerolog.Level
		wantErr bool
	}{
		{level: "", want: zerolog.InfoLevel},
		{level: "debug", want: zerolog.DebugLevel},
		{level: "error", want: zerolog.ErrorLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := ParseLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestConfigureOnGCE(t *testing.T) {
	previous := log.Logger
	defer func() { log.Logger = previous }()

	var out bytes.Buffer
	configure(&out, zerolog.WarnLevel, true, false)
	log.Info().Msg("dropped")
	log.Error().Msg("could not write crash report")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single event, got %q", out.String())
	}
	var event map[string]any
	if err := gojson.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("we should be able to decode the event: %v", err)
	}
	if event["severity"] != "error" {
		t.Fatalf("expected an error severity, got %v", event["severity"])
	}
	if event["message"] != "could not write crash report" {
		t.Fatalf("unexpected message %v", event["message"])
	}
}

func TestConfigureOnTerminal(t *testing.T) {
	previous := log.Logger
	defer func() { log.Logger = previous }()

	var out bytes.Buffer
	configure(&out, zerolog.InfoLevel, false, true)
	log.Info().Str("path", "/tmp/report").Msg("report written")

	got := out.String()
	if strings.HasPrefix(got, "{") {
		t.Fatalf("expected console output, got %q", got)
	}
	if !strings.Contains(got, "report written") || !strings.Contains(got, "path=") {
		t.Fatalf("unexpected console output %q", got)
	}
}

func TestLevelSampler(t *testing.T) {
	s := LevelSampler{Level: zerolog.WarnLevel}
	if s.Sample(zerolog.InfoLevel) {
		t.Fatal("info should be dropped")
	}
	if !s.Sample(zerolog.WarnLevel) || !s.Sample(zerolog.FatalLevel) {
		t.Fatal("warn and above should be kept")
	}
}
