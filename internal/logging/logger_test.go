package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, false)
	log.Debug().Msg("hidden")
	log.Info().Str("port", "auto").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written without verbose: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "port=") {
		t.Errorf("info message missing: %q", out)
	}

	buf.Reset()
	verbose := New(&buf, true)
	verbose.Debug().Msg("device command")
	if !strings.Contains(buf.String(), "device command") {
		t.Errorf("debug message missing with verbose: %q", buf.String())
	}
}
