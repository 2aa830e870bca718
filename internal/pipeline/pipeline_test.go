package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agentpipe/internal/config"
	"agentpipe/internal/llm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		MarkdownOut:    config.DefaultMarkdownOut,
		OutDir:         config.DefaultOutDir,
		DefaultFeature: config.DefaultFeature,
		MaxRounds:      config.DefaultMaxRounds,
		LLM:            config.LLMConfig{Provider: "mock"},
		WorkDir:        t.TempDir(),
	}
}

func runLogs(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "run_*.log"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	if _, err := New(nil, llm.NewMockClient(), nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := New(cfg, llm.NewMockClient(), nil); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRunInteraction(t *testing.T) {
	t.Run("produces one run log and the payload output", func(t *testing.T) {
		cfg := testConfig(t)
		p, err := New(cfg, llm.NewMockClient(), nil)
		if err != nil {
			t.Fatal(err)
		}

		logPath, payloadFiles, err := p.RunInteraction(context.Background(), "Add login functionality")
		if err != nil {
			t.Fatal(err)
		}

		logs := runLogs(t, cfg.WorkDir)
		if len(logs) != 1 {
			t.Fatalf("expected exactly one run log, got %v", logs)
		}
		if logs[0] != logPath {
			t.Errorf("returned path %q != found log %q", logPath, logs[0])
		}

		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatal(err)
		}
		raw := string(data)
		for _, speaker := range []string{"User", "PM", "Architect", "Coder", "Reviewer"} {
			if !strings.Contains(raw, "Next speaker: "+speaker+"\n") {
				t.Errorf("log missing turn for %s", speaker)
			}
		}
		if !strings.Contains(raw, "Add login functionality") {
			t.Error("log missing the requested feature")
		}

		// Coder payload lands in out_<ts>/ next to the log.
		if len(payloadFiles) != 2 {
			t.Fatalf("expected java entry + pom in the payload output, got %v", payloadFiles)
		}
		base := strings.TrimSuffix(filepath.Base(logPath), ".log")
		outDir := filepath.Join(cfg.WorkDir, "out_"+strings.TrimPrefix(base, "run_"))
		if _, err := os.Stat(filepath.Join(outDir, "pom.xml")); err != nil {
			t.Errorf("pom.xml not materialised: %v", err)
		}
	})

	t.Run("empty feature falls back to the default", func(t *testing.T) {
		cfg := testConfig(t)
		p, err := New(cfg, llm.NewMockClient(), nil)
		if err != nil {
			t.Fatal(err)
		}

		logPath, _, err := p.RunInteraction(context.Background(), "")
		if err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), config.DefaultFeature) {
			t.Error("log missing the default feature request")
		}
	})

	t.Run("failed run keeps the partial log", func(t *testing.T) {
		cfg := testConfig(t)
		// Script runs out after the PM turn, so the Architect turn fails.
		p, err := New(cfg, llm.NewScriptedClient("stories"), nil)
		if err != nil {
			t.Fatal(err)
		}

		if _, _, err := p.RunInteraction(context.Background(), "x"); err == nil {
			t.Fatal("expected error from the exhausted script")
		}

		logs := runLogs(t, cfg.WorkDir)
		if len(logs) != 1 {
			t.Fatalf("partial log should survive, got %v", logs)
		}
		data, err := os.ReadFile(logs[0])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "Next speaker: PM\n") {
			t.Error("partial log missing the completed PM turn")
		}
	})

	t.Run("missing payload is not fatal", func(t *testing.T) {
		cfg := testConfig(t)
		// A full round without any JSON payload, then approval.
		p, err := New(cfg, llm.NewScriptedClient("stories", "design", "prose instead of json", "LGTM"), nil)
		if err != nil {
			t.Fatal(err)
		}

		logPath, payloadFiles, err := p.RunInteraction(context.Background(), "x")
		if err != nil {
			t.Fatalf("missing payload must not fail the stage: %v", err)
		}
		if logPath == "" {
			t.Error("log path should still be returned")
		}
		if len(payloadFiles) != 0 {
			t.Errorf("expected no payload files, got %v", payloadFiles)
		}
		if _, err := os.Stat(filepath.Join(cfg.WorkDir, "coder_raw_dump.txt")); err != nil {
			t.Errorf("raw dump not written: %v", err)
		}
	})
}

func TestRunFullPipeline(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, llm.NewMockClient(), nil)
	if err != nil {
		t.Fatal(err)
	}

	result, err := p.Run(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}

	if result.LogPath == "" {
		t.Error("result missing log path")
	}
	if result.MarkdownPath != filepath.Join(cfg.WorkDir, config.DefaultMarkdownOut) {
		t.Errorf("markdown path = %q", result.MarkdownPath)
	}

	md, err := os.ReadFile(result.MarkdownPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, heading := range []string{"### User", "### PM", "### Architect", "### Coder", "### Reviewer"} {
		if !strings.Contains(string(md), heading) {
			t.Errorf("transcript missing %q", heading)
		}
	}

	if len(result.Extracted) != 2 {
		t.Fatalf("expected 2 extracted classes, got %v", result.Extracted)
	}
	outDir := filepath.Join(cfg.WorkDir, config.DefaultOutDir)
	for _, rel := range []string{
		filepath.Join("src", "main", "java", "com", "example", "demo", "LoginController.java"),
		filepath.Join("src", "main", "java", "com", "example", "demo", "JwtUtil.java"),
	} {
		data, err := os.ReadFile(filepath.Join(outDir, rel))
		if err != nil {
			t.Fatalf("missing extracted class %s: %v", rel, err)
		}
		if !strings.Contains(string(data), "public class") {
			t.Errorf("%s has no class declaration: %s", rel, data)
		}
	}
}

func TestConvertStandalone(t *testing.T) {
	cfg := testConfig(t)
	p, err := New(cfg, llm.NewMockClient(), nil)
	if err != nil {
		t.Fatal(err)
	}

	logPath := filepath.Join(cfg.WorkDir, "run_20240101_120000.log")
	if err := os.WriteFile(logPath, []byte("Next speaker: PM\nstories\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mdPath := filepath.Join(cfg.WorkDir, "out.md")

	if err := p.Convert(logPath, mdPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(mdPath); err != nil {
		t.Errorf("transcript not written: %v", err)
	}
}
