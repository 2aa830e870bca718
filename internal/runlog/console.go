package runlog

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ConsoleOptions holds configuration for console logging.
type ConsoleOptions struct {
	Level           log.Level
	Formatter       log.Formatter
	ReportTimestamp bool
	Prefix          string
}

// DefaultConsoleOptions returns the default console logging options.
func DefaultConsoleOptions() ConsoleOptions {
	return ConsoleOptions{
		Level:     log.InfoLevel,
		Formatter: log.TextFormatter,
		Prefix:    "agentpipe",
	}
}

// ConsoleWriter mirrors run log events to the terminal using
// charmbracelet/log for leveled, human-readable output.
type ConsoleWriter struct {
	logger *log.Logger
}

// NewConsoleWriter creates a console writer with the given options.
func NewConsoleWriter(opts ConsoleOptions) *ConsoleWriter {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           opts.Level,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          opts.Prefix,
	})
	return &ConsoleWriter{logger: logger}
}

// NewConsoleWriterFromConfig creates a ConsoleWriter from string config
// values as loaded from TOML or the environment.
func NewConsoleWriterFromConfig(level, format string, timestamps bool) *ConsoleWriter {
	opts := DefaultConsoleOptions()
	opts.Level = ParseLevel(level)
	opts.Formatter = ParseFormatter(format)
	opts.ReportTimestamp = timestamps
	return NewConsoleWriter(opts)
}

// NewTestConsoleWriter writes to w with minimal formatting, for tests.
func NewTestConsoleWriter(w io.Writer) *ConsoleWriter {
	logger := log.NewWithOptions(w, log.Options{
		Level:     log.DebugLevel,
		Formatter: log.TextFormatter,
	})
	return &ConsoleWriter{logger: logger}
}

// Write logs an event to the console.
func (c *ConsoleWriter) Write(event Event) error {
	switch event.Type {
	case EventError:
		c.logger.Error(event.Content)
	case EventMessage:
		c.logger.Info(summarize(event.Content), "speaker", event.Speaker)
	default:
		c.logger.Info(event.Content)
	}
	return nil
}

// summarize trims a turn body down to its first non-empty line for console
// display; the full body is always in the run log file.
func summarize(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if runes := []rune(line); len(runes) > 120 {
				return string(runes[:120]) + "…"
			}
			return line
		}
	}
	return "(empty turn)"
}

// ParseLevel parses a string log level to a charmbracelet/log Level.
func ParseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter parses a string formatter name to a charmbracelet/log
// Formatter.
func ParseFormatter(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
