package runlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Event is a single entry in a run log.
type Event struct {
	// Type is the event type: message, system, error.
	Type string

	// Speaker is the agent name (for message events).
	Speaker string

	// Content is the event body.
	Content string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Event types.
const (
	EventMessage = "message"
	EventSystem  = "system"
	EventError   = "error"
)

// Writer writes run log events.
type Writer interface {
	Write(event Event) error
}

// SpeakerHeader prefixes each agent turn in the wire format. The
// log-to-markdown converter splits the log on lines with this prefix.
const SpeakerHeader = "Next speaker: "

// fileWriter appends events to a run log file in the plain-text wire format:
// a "Next speaker: <name>" header line followed by the turn body. System and
// error lines are written as-is; the converter folds them into the
// surrounding turn or drops them if they precede the first header.
type fileWriter struct {
	file *os.File
}

func (f *fileWriter) Write(event Event) error {
	var b strings.Builder
	switch event.Type {
	case EventMessage:
		b.WriteString(SpeakerHeader)
		b.WriteString(event.Speaker)
		b.WriteByte('\n')
		b.WriteString(event.Content)
		if !strings.HasSuffix(event.Content, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	case EventError:
		b.WriteString("[error] ")
		b.WriteString(event.Content)
		b.WriteByte('\n')
	default:
		b.WriteString(event.Content)
		b.WriteByte('\n')
	}
	if _, err := f.file.WriteString(b.String()); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}
	return nil
}

// MultiWriter tees events to several writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a writer that fans out to all given writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write writes the event to all underlying writers.
func (m *MultiWriter) Write(event Event) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multi-writer errors: %v", errs)
	}
	return nil
}

// NullWriter is a no-op writer.
type NullWriter struct{}

// Write does nothing.
func (NullWriter) Write(event Event) error {
	return nil
}

type lockedWriter struct {
	mu     sync.Mutex
	writer Writer
}

func (l *lockedWriter) Write(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writer.Write(event)
}

// Locked wraps a writer with a mutex; nil becomes a NullWriter.
func Locked(writer Writer) Writer {
	if writer == nil {
		return NullWriter{}
	}
	return &lockedWriter{writer: writer}
}
