package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentpipe/internal/config"
	"agentpipe/internal/prompts"
)

// doctorCommand checks config, the model endpoint, and the work dir.
func doctorCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("agentpipe doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Println("Agentpipe Doctor")
	fmt.Println("================")
	fmt.Println()

	allOK := true

	fmt.Printf("Work dir: %s\n", cfg.WorkDir)
	if info, err := os.Stat(cfg.WorkDir); err != nil {
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	} else if !info.IsDir() {
		fmt.Println("  ❌ Error: not a directory")
		allOK = false
	} else {
		fmt.Println("  ✅ OK")
	}
	fmt.Println()

	fmt.Println("Config:")
	if cfg.MaxRounds > 0 {
		fmt.Printf("  ✅ Max rounds: %d\n", cfg.MaxRounds)
	} else {
		fmt.Printf("  ❌ Max rounds: %d (must be positive)\n", cfg.MaxRounds)
		allOK = false
	}
	switch cfg.LLM.Provider {
	case "openai", "mock":
		fmt.Printf("  ✅ LLM provider: %s\n", cfg.LLM.Provider)
	default:
		fmt.Printf("  ❌ LLM provider: %s (expected openai|mock)\n", cfg.LLM.Provider)
		allOK = false
	}
	if cfg.LLM.Model != "" {
		fmt.Printf("  ✅ Model: %s\n", cfg.LLM.Model)
	} else {
		fmt.Println("  ❌ Model: empty")
		allOK = false
	}
	fmt.Println()

	// The original flow refuses to start the interaction when the local
	// model endpoint is unreachable; surface that here instead.
	if cfg.LLM.Provider == "openai" {
		fmt.Printf("Endpoint: %s\n", cfg.LLM.BaseURL)
		if err := pingEndpoint(ctx, cfg.LLM.BaseURL); err != nil {
			fmt.Printf("  ⚠️  Not reachable: %v\n", err)
			fmt.Println("     (run/pipeline will fail; log2md and md2java still work)")
		} else {
			fmt.Println("  ✅ Reachable")
		}
		fmt.Println()
	}

	if cfg.PromptDir != "" {
		fmt.Printf("Prompt overrides: %s\n", cfg.PromptDir)
		if info, err := os.Stat(cfg.PromptDir); err != nil {
			fmt.Printf("  ⚠️  Not found (bundled prompts will be used): %v\n", err)
		} else if !info.IsDir() {
			fmt.Println("  ❌ Error: not a directory")
			allOK = false
		} else {
			fmt.Println("  ✅ OK")
			if *verbose {
				store := prompts.NewStore(cfg.PromptDir)
				for _, name := range []string{
					prompts.ManagerPrompt,
					prompts.ArchitectPrompt,
					prompts.CoderPrompt,
					prompts.ReviewerPrompt,
					prompts.PayloadSchema,
				} {
					if _, err := store.Load(name); err != nil {
						fmt.Printf("  ❌ %s: %v\n", name, err)
						allOK = false
						continue
					}
					fmt.Printf("  ✅ %s\n", name)
				}
			}
		}
		fmt.Println()
	}

	outDir := cfg.OutDir
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(cfg.WorkDir, outDir)
	}
	fmt.Printf("Output dir: %s\n", outDir)
	if info, err := os.Stat(outDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  ⚠️  Not found (will be created on extract)")
		} else {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		}
	} else if !info.IsDir() {
		fmt.Println("  ❌ Error: path is not a directory")
		allOK = false
	} else {
		fmt.Println("  ✅ OK")
	}
	fmt.Println()

	if allOK {
		fmt.Println("✅ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed. Agentpipe may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

// pingEndpoint probes the server root under the /v1 base URL.
func pingEndpoint(ctx context.Context, baseURL string) error {
	root := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	if root == "" {
		root = baseURL
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
