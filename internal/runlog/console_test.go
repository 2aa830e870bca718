package runlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestConsoleWriter(t *testing.T) {
	t.Run("message event shows speaker and first line", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewTestConsoleWriter(&buf)

		err := w.Write(Event{
			Type:    EventMessage,
			Speaker: "PM",
			Content: "User stories:\n- login\n- logout",
		})
		if err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		if !strings.Contains(out, "PM") {
			t.Errorf("output missing speaker: %q", out)
		}
		if !strings.Contains(out, "User stories:") {
			t.Errorf("output missing first line: %q", out)
		}
		if strings.Contains(out, "- login") {
			t.Errorf("console should only show the first line: %q", out)
		}
	})

	t.Run("error event is logged at error level", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewTestConsoleWriter(&buf)

		if err := w.Write(Event{Type: EventError, Content: "boom"}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "boom") {
			t.Errorf("output missing error content: %q", buf.String())
		}
	})
}

func TestDefaultConsoleOptions(t *testing.T) {
	opts := DefaultConsoleOptions()
	if opts.Level != log.InfoLevel {
		t.Errorf("Level = %v, want info", opts.Level)
	}
	if opts.Prefix != "agentpipe" {
		t.Errorf("Prefix = %q", opts.Prefix)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"single line", "hello", "hello"},
		{"skips leading blanks", "\n\n  \nfirst real line\nmore", "first real line"},
		{"empty", "\n\n", "(empty turn)"},
		{"long line truncated", strings.Repeat("x", 200), strings.Repeat("x", 120) + "…"},
		{"multibyte truncated on a rune boundary", strings.Repeat("é", 200), strings.Repeat("é", 120) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarize(tt.content); got != tt.want {
				t.Errorf("summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"bogus", log.InfoLevel},
		{"", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
