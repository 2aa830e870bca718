// Package pipeline chains the three stages: multi-agent interaction,
// log-to-markdown conversion, and source extraction. Execution is strictly
// sequential with no retries; the first failing stage aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"agentpipe/internal/agents"
	"agentpipe/internal/config"
	"agentpipe/internal/extract"
	"agentpipe/internal/llm"
	"agentpipe/internal/prompts"
	"agentpipe/internal/runlog"
	"agentpipe/internal/transcript"
)

// Pipeline holds the wiring shared by all stages.
type Pipeline struct {
	cfg     *config.Config
	client  llm.Client
	store   *prompts.Store
	console runlog.Writer
}

// Result collects the artifacts of a full pipeline run.
type Result struct {
	LogPath      string
	MarkdownPath string
	Extracted    []string
	PayloadFiles []string
}

// New creates a pipeline. console may be nil to silence terminal output.
func New(cfg *config.Config, client llm.Client, console runlog.Writer) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if console == nil {
		console = runlog.NullWriter{}
	}
	return &Pipeline{
		cfg:     cfg,
		client:  client,
		store:   prompts.NewStore(cfg.PromptDir),
		console: console,
	}, nil
}

// RunInteraction executes stage 1: the multi-agent chat, tee-logged to a
// fresh run_*.log in the work dir. On success it also materialises the
// Coder's files payload under out_<ts>/; a missing payload is reported but
// does not fail the stage, since the transcript is the pipeline's real
// product. Returns the log path.
func (p *Pipeline) RunInteraction(ctx context.Context, feature string) (string, []string, error) {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		feature = p.cfg.DefaultFeature
	}

	roster, err := agents.Roster(p.store)
	if err != nil {
		return "", nil, err
	}

	log, err := runlog.Create(p.cfg.WorkDir)
	if err != nil {
		return "", nil, err
	}
	defer log.Close()

	p.info(fmt.Sprintf("run log: %s", log.Path))

	tee := runlog.NewMultiWriter(log.Writer(), p.console)
	chat, err := agents.NewChat(p.client, roster, p.cfg.MaxRounds, tee)
	if err != nil {
		_ = log.RemoveIfEmpty()
		return "", nil, err
	}

	turns, err := chat.Run(ctx, feature)
	if err != nil {
		// Keep whatever turns made it into the log, but never an empty file.
		_ = log.RemoveIfEmpty()
		return "", nil, fmt.Errorf("agent interaction: %w", err)
	}

	payloadFiles := p.materialize(turns, log.Path)
	return log.Path, payloadFiles, nil
}

// materialize writes the Coder payload to out_<ts>/, mirroring the run log
// timestamp. Failures are surfaced as warnings only.
func (p *Pipeline) materialize(turns []agents.Turn, logPath string) []string {
	payload, err := agents.ParsePayload(turns)
	if err != nil {
		dump := filepath.Join(p.cfg.WorkDir, agents.RawDumpName)
		if dumpErr := agents.DumpRaw(turns, dump); dumpErr == nil {
			p.warn(fmt.Sprintf("%v; raw messages dumped to %s", err, dump))
		} else {
			p.warn(fmt.Sprintf("%v; raw dump also failed: %v", err, dumpErr))
		}
		return nil
	}

	outDir := filepath.Join(p.cfg.WorkDir, payloadDirFor(logPath))
	written, err := agents.Materialize(payload, outDir)
	if err != nil {
		p.warn(fmt.Sprintf("materialize payload: %v", err))
		return written
	}
	p.info(fmt.Sprintf("payload output: %s (%d files)", outDir, len(written)))
	return written
}

// payloadDirFor maps run_<ts>.log to out_<ts>.
func payloadDirFor(logPath string) string {
	base := strings.TrimSuffix(filepath.Base(logPath), ".log")
	return "out_" + strings.TrimPrefix(base, "run_")
}

// Convert executes stage 2: run log to markdown transcript.
func (p *Pipeline) Convert(logPath, mdPath string) error {
	if err := transcript.Convert(logPath, mdPath); err != nil {
		return fmt.Errorf("log2md: %w", err)
	}
	p.info(fmt.Sprintf("markdown transcript: %s", mdPath))
	return nil
}

// ExtractSources executes stage 3: markdown transcript to source tree.
func (p *Pipeline) ExtractSources(mdPath, outDir string) ([]string, error) {
	written, err := extract.Extract(mdPath, outDir)
	if err != nil {
		return nil, fmt.Errorf("md2java: %w", err)
	}
	p.info(fmt.Sprintf("extracted %d classes into %s", len(written), outDir))
	return written, nil
}

// Run drives all three stages. The run stage hands its log path straight to
// the converter; the latest-log selector is only the fallback, and its
// zero-match case is fatal.
func (p *Pipeline) Run(ctx context.Context, feature string) (*Result, error) {
	logPath, payloadFiles, err := p.RunInteraction(ctx, feature)
	if err != nil {
		return nil, err
	}

	if logPath == "" {
		logPath, err = runlog.FindLatest(p.cfg.WorkDir)
		if err != nil {
			return nil, err
		}
	}

	mdPath := p.cfg.MarkdownOut
	if !filepath.IsAbs(mdPath) {
		mdPath = filepath.Join(p.cfg.WorkDir, mdPath)
	}
	if err := p.Convert(logPath, mdPath); err != nil {
		return nil, err
	}

	outDir := p.cfg.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(p.cfg.WorkDir, outDir)
	}
	extracted, err := p.ExtractSources(mdPath, outDir)
	if err != nil {
		return nil, err
	}

	return &Result{
		LogPath:      logPath,
		MarkdownPath: mdPath,
		Extracted:    extracted,
		PayloadFiles: payloadFiles,
	}, nil
}

func (p *Pipeline) info(msg string) {
	_ = p.console.Write(runlog.Event{
		Type:      runlog.EventSystem,
		Content:   msg,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Pipeline) warn(msg string) {
	_ = p.console.Write(runlog.Event{
		Type:      runlog.EventError,
		Content:   msg,
		Timestamp: time.Now().UTC(),
	})
}
