// Package transcript converts a run log into a markdown transcript.
//
// The conversion is deterministic: the same log always produces
// byte-identical markdown.
package transcript

import (
	"fmt"
	"os"
	"strings"

	"agentpipe/internal/runlog"
)

// Section is one speaker's turn in the transcript.
type Section struct {
	Speaker string
	Body    string
}

// Parse splits raw run log text into ordered sections. Lines before the
// first speaker header (startup noise, debug output) are dropped; everything
// between two headers belongs to the earlier speaker.
func Parse(raw string) []Section {
	var sections []Section
	var speaker string
	var buf []string

	flush := func() {
		if speaker == "" || len(buf) == 0 {
			return
		}
		body := strings.TrimRight(strings.Join(buf, "\n"), " \t\n")
		sections = append(sections, Section{Speaker: speaker, Body: body})
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, runlog.SpeakerHeader) {
			flush()
			speaker = strings.TrimSpace(strings.TrimPrefix(trimmed, runlog.SpeakerHeader))
			buf = nil
			continue
		}
		buf = append(buf, line)
	}
	flush()

	return sections
}

// Render produces the markdown transcript: one "### <speaker>" section per
// non-empty turn, separated by blank lines.
func Render(sections []Section) string {
	var parts []string
	for _, s := range sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("### %s\n\n%s\n", s.Speaker, s.Body))
	}
	return strings.Join(parts, "\n\n")
}

// Convert reads a run log and writes the markdown transcript, overwriting
// any existing file at mdPath.
func Convert(logPath, mdPath string) error {
	raw, err := os.ReadFile(logPath)
	if err != nil {
		return fmt.Errorf("read run log: %w", err)
	}

	sections := Parse(string(raw))
	if len(sections) == 0 {
		return fmt.Errorf("no speaker sections found in %s", logPath)
	}

	if err := os.WriteFile(mdPath, []byte(Render(sections)), 0644); err != nil {
		return fmt.Errorf("write markdown transcript: %w", err)
	}
	return nil
}
