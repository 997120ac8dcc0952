package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestSetupWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter("debug", "json", &buf)

	log.Info().Int64("venue_id", 7).Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["message"] != "hello" || entry["venue_id"] != float64(7) || entry["service"] != "sbcntr-rendezvous" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSetupWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter("warn", "json", &buf)

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("level filtering failed: %s", out)
	}
}

func TestSetupWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter("verbose", "text", &buf)

	log.Debug().Msg("dropped")
	log.Info().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("fallback level should be info: %s", out)
	}
}
