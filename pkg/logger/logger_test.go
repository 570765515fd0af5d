package logx

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestInitLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	InitWithWriter(&buf, Config{Debug: false})
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}

	logger := Component("gateway")
	logger.Info().Str("tool", "search_patients").Msg("called")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, buf.String())
	}
	if entry["component"] != "gateway" || entry["tool"] != "search_patients" {
		t.Fatalf("unexpected entry: %v", entry)
	}

	buf.Reset()
	InitWithWriter(&buf, Config{Debug: true})
	log.Debug().Msg("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug line missing at debug level: %q", buf.String())
	}
}
