package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":  log.DebugLevel,
		" INFO ": log.InfoLevel,
		"warn":   log.WarnLevel,
		"error":  log.ErrorLevel,
		"":       log.InfoLevel,
		"trace":  log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if ValidLevel("trace") {
		t.Fatalf("trace is not a level")
	}
}

func TestNewWriter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, log.InfoLevel)
	l.Debug("hidden")
	l.Info("shown", "status", 204)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "status=204") {
		t.Fatalf("missing info line: %q", out)
	}
}

func TestNew_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tada.log")
	l, closer, err := New(path, log.DebugLevel)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Error("boom")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "boom") {
		t.Fatalf("log file missing entry: %q", string(b))
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected same logger from context")
	}
}
