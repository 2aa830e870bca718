// Package ui provides an optional terminal interface for watching a
// pipeline run live.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentpipe/internal/config"
	"agentpipe/internal/llm"
	"agentpipe/internal/pipeline"
	"agentpipe/internal/runlog"
)

var (
	speakerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	systemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

// IsTTY reports whether w is a character device.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, _ := f.Stat()
	return (info.Mode() & os.ModeCharDevice) != 0
}

// eventMsg delivers one run log event to the model.
type eventMsg runlog.Event

// doneMsg signals that the pipeline finished.
type doneMsg struct {
	result *pipeline.Result
	err    error
}

// channelWriter bridges the runlog.Writer interface onto the TUI event
// channel.
type channelWriter struct {
	ch chan<- runlog.Event
}

func (w *channelWriter) Write(event runlog.Event) error {
	w.ch <- event
	return nil
}

// Option configures the TUI behavior.
type Option func(*tuiConfig)

type tuiConfig struct {
	fullPipeline bool
}

// WithFullPipeline makes the TUI drive all three stages instead of only the
// interaction stage.
func WithFullPipeline(enabled bool) Option {
	return func(c *tuiConfig) {
		c.fullPipeline = enabled
	}
}

// RunPipeline runs the interaction (or, with WithFullPipeline, the whole
// pipeline) while rendering the conversation live. It blocks until the work
// and the UI both finish.
func RunPipeline(ctx context.Context, cfg *config.Config, client llm.Client, feature string, opts ...Option) error {
	c := &tuiConfig{}
	for _, opt := range opts {
		opt(c)
	}

	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	events := make(chan runlog.Event, 64)
	done := make(chan doneMsg, 1)

	p, err := pipeline.New(cfg, client, &channelWriter{ch: events})
	if err != nil {
		return err
	}

	go func() {
		var result *pipeline.Result
		var err error
		if c.fullPipeline {
			result, err = p.Run(ctx, feature)
		} else {
			var logPath string
			logPath, _, err = p.RunInteraction(ctx, feature)
			if err == nil {
				result = &pipeline.Result{LogPath: logPath}
			}
		}
		close(events)
		done <- doneMsg{result: result, err: err}
	}()

	model := newModel(cfg, events, done)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return err
	}
	if m, ok := finalModel.(*tuiModel); ok && m.runErr != nil {
		return m.runErr
	}
	return nil
}

type tuiModel struct {
	cfg     *config.Config
	events  <-chan runlog.Event
	done    <-chan doneMsg
	lines   []string
	width   int
	running bool
	runErr  error
	result  *pipeline.Result
}

func newModel(cfg *config.Config, events <-chan runlog.Event, done <-chan doneMsg) *tuiModel {
	return &tuiModel{
		cfg:     cfg,
		events:  events,
		done:    done,
		running: true,
		width:   80,
	}
}

func waitForEvent(events <-chan runlog.Event, done <-chan doneMsg) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if ok {
			return eventMsg(event)
		}
		return <-done
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return waitForEvent(m.events, m.done)
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case eventMsg:
		m.appendEvent(runlog.Event(msg))
		return m, waitForEvent(m.events, m.done)
	case doneMsg:
		m.running = false
		m.runErr = msg.err
		m.result = msg.result
		return m, nil
	}
	return m, nil
}

func (m *tuiModel) appendEvent(event runlog.Event) {
	switch event.Type {
	case runlog.EventMessage:
		m.lines = append(m.lines, speakerStyle.Render(event.Speaker))
		for _, line := range strings.Split(strings.TrimRight(event.Content, "\n"), "\n") {
			m.lines = append(m.lines, "  "+line)
		}
		m.lines = append(m.lines, "")
	case runlog.EventError:
		m.lines = append(m.lines, errorStyle.Render("error: "+event.Content))
	default:
		m.lines = append(m.lines, systemStyle.Render(event.Content))
	}
}

func (m *tuiModel) View() string {
	var b strings.Builder
	b.WriteString(speakerStyle.Render("agentpipe"))
	b.WriteString(systemStyle.Render("  " + time.Now().Format("15:04:05")))
	b.WriteString("\n\n")
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	switch {
	case m.running:
		b.WriteString(systemStyle.Render("running… (q to abort)"))
	case m.runErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("failed: %v (q to quit)", m.runErr)))
	default:
		b.WriteString(footerStyle.Render(doneSummary(m.result) + " (q to quit)"))
	}
	b.WriteByte('\n')
	return b.String()
}

func doneSummary(result *pipeline.Result) string {
	if result == nil {
		return "done"
	}
	if result.MarkdownPath == "" {
		return "done: " + result.LogPath
	}
	return fmt.Sprintf("done: %s, %d classes extracted", result.MarkdownPath, len(result.Extracted))
}
