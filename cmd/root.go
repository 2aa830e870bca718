// Package cmd implements the CLI command structure for agentpipe.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"agentpipe/internal/config"
	"agentpipe/internal/extract"
	"agentpipe/internal/llm"
	"agentpipe/internal/pipeline"
	"agentpipe/internal/runlog"
	"agentpipe/internal/transcript"
	"agentpipe/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the agentpipe CLI.
func Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agentpipe", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	// Determine the subcommand; the full pipeline is the default.
	subcommand := "pipeline"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "run":
		return runCommand(ctx, cfg, remainingArgs)
	case "log2md":
		return log2mdCommand(cfg, remainingArgs)
	case "md2java":
		return md2javaCommand(cfg, remainingArgs)
	case "pipeline":
		return pipelineCommand(ctx, cfg, remainingArgs)
	case "tail":
		return tailCommand(cfg, remainingArgs)
	case "doctor":
		return doctorCommand(ctx, cfg, remainingArgs)
	case "version":
		return versionCommand()
	case "help":
		printUsage(fs, os.Stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// runCommand executes stage 1: the multi-agent interaction.
func runCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agentpipe run", flag.ContinueOnError)
	uiMode := fs.String("ui", "", "UI mode (tui for terminal UI)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	feature := strings.Join(fs.Args(), " ")

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	if *uiMode == "tui" {
		return ui.RunPipeline(ctx, cfg, client, feature)
	}

	p, err := pipeline.New(cfg, client, consoleWriter(cfg))
	if err != nil {
		return err
	}
	logPath, _, err := p.RunInteraction(ctx, feature)
	if err != nil {
		return err
	}
	fmt.Println(logPath)
	return nil
}

// log2mdCommand executes stage 2: run log to markdown transcript.
func log2mdCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agentpipe log2md", flag.ContinueOnError)
	latest := fs.Bool("latest", false, "Convert the latest run log in the work dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()

	var logPath, mdPath string
	switch {
	case *latest && len(remaining) == 1:
		var err error
		logPath, err = runlog.FindLatest(cfg.WorkDir)
		if err != nil {
			return err
		}
		mdPath = remaining[0]
	case !*latest && len(remaining) == 2:
		logPath = remaining[0]
		mdPath = remaining[1]
	default:
		return fmt.Errorf("usage: agentpipe log2md <logfile> <outfile> | agentpipe log2md -latest <outfile>")
	}

	if err := transcript.Convert(logPath, mdPath); err != nil {
		return err
	}
	fmt.Println(mdPath)
	return nil
}

// md2javaCommand executes stage 3: markdown transcript to source tree.
func md2javaCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agentpipe md2java", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) < 1 || len(remaining) > 2 {
		return fmt.Errorf("usage: agentpipe md2java <mdfile> [outdir]")
	}
	mdPath := remaining[0]
	outDir := cfg.OutDir
	if len(remaining) == 2 {
		outDir = remaining[1]
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(cfg.WorkDir, outDir)
	}

	written, err := extract.Extract(mdPath, outDir)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Println(path)
	}
	return nil
}

// pipelineCommand drives all three stages.
func pipelineCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agentpipe pipeline", flag.ContinueOnError)
	uiMode := fs.String("ui", "", "UI mode (tui for terminal UI)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	feature := strings.Join(fs.Args(), " ")

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	if *uiMode == "tui" {
		return ui.RunPipeline(ctx, cfg, client, feature, ui.WithFullPipeline(true))
	}

	p, err := pipeline.New(cfg, client, consoleWriter(cfg))
	if err != nil {
		return err
	}
	result, err := p.Run(ctx, feature)
	if err != nil {
		return err
	}

	fmt.Printf("run log:   %s\n", result.LogPath)
	fmt.Printf("markdown:  %s\n", result.MarkdownPath)
	fmt.Printf("extracted: %d classes\n", len(result.Extracted))
	for _, path := range result.Extracted {
		fmt.Printf("  %s\n", path)
	}
	return nil
}

// tailCommand tails the latest run log.
func tailCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agentpipe tail", flag.ContinueOnError)
	follow := fs.Bool("f", false, "Follow the log (like tail -f)")
	fs.BoolVar(follow, "follow", false, "Follow the log (like tail -f)")
	n := fs.Int("n", 0, "Number of lines to show (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logPath, err := runlog.FindLatest(cfg.WorkDir)
	if err != nil {
		return err
	}

	fmt.Printf("Tailing: %s\n", logPath)
	if *follow {
		fmt.Println("(Ctrl+C to stop)")
	}
	fmt.Println()

	return runlog.Tail(os.Stdout, logPath, *n, *follow)
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("agentpipe version %s\n", Version)
	return nil
}

func consoleWriter(cfg *config.Config) runlog.Writer {
	return runlog.NewConsoleWriterFromConfig(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps)
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Agentpipe - multi-agent boilerplate pipeline")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  agentpipe [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  pipeline [feature]            Run all three stages (default command)")
	fmt.Fprintln(w, "  run [feature]                 Run the multi-agent interaction, producing run_<ts>.log")
	fmt.Fprintln(w, "  log2md <logfile> <outfile>    Convert a run log to a markdown transcript")
	fmt.Fprintln(w, "  md2java <mdfile> [outdir]     Extract Java classes from a markdown transcript")
	fmt.Fprintln(w, "  tail                          Tail the latest run log")
	fmt.Fprintln(w, "  doctor                        Check config, endpoint, and work dir")
	fmt.Fprintln(w, "  version                       Show version information")
	fmt.Fprintln(w, "  help                          Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run/Pipeline Options:")
	fmt.Fprintln(w, "  -ui string")
	fmt.Fprintln(w, "        UI mode (tui for terminal UI)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Log2md Options:")
	fmt.Fprintln(w, "  -latest")
	fmt.Fprintln(w, "        Convert the latest run log in the work dir")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tail Options:")
	fmt.Fprintln(w, "  -f, --follow")
	fmt.Fprintln(w, "        Follow the log (like tail -f)")
	fmt.Fprintln(w, "  -n int")
	fmt.Fprintln(w, "        Number of lines to show (0 = all)")
}
