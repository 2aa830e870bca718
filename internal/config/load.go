package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	userConfigName    = "agentpipe.toml"
	projectConfigName = "agentpipe.toml"
)

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.agentpipe/agentpipe.toml)
// 3. Project config file (agentpipe.toml or .agentpipe.toml in the work dir)
// 4. .env file and environment variables
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}
	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	if err := parseFlags(cfg, fs, args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return cfg, nil
}

// loadConfigFile loads TOML config from the given file.
func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// findUserConfigFile returns the user-level config path, or "" if absent.
func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".agentpipe", userConfigName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// findProjectConfigFile returns the project-level config path, or "" if absent.
func findProjectConfigFile() string {
	for _, name := range []string{projectConfigName, "." + projectConfigName} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// loadFromEnv overrides config from a .env file (if present) and the
// environment. Process environment wins over .env values.
func loadFromEnv(cfg *Config) {
	// godotenv never overwrites variables already set in the environment.
	_ = godotenv.Load()

	if v := os.Getenv("AGENTPIPE_MARKDOWN_OUT"); v != "" {
		cfg.MarkdownOut = v
	}
	if v := os.Getenv("AGENTPIPE_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("AGENTPIPE_PROMPT_DIR"); v != "" {
		cfg.PromptDir = v
	}
	if v := os.Getenv("AGENTPIPE_FEATURE"); v != "" {
		cfg.DefaultFeature = v
	}
	if v := os.Getenv("AGENTPIPE_MAX_ROUNDS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			cfg.MaxRounds = i
		}
	}
	if v := os.Getenv("AGENTPIPE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("AGENTPIPE_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AGENTPIPE_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AGENTPIPE_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.APIKey == DefaultLLMAPIKey {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("AGENTPIPE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("AGENTPIPE_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

// parseFlags registers global flags on fs and parses args into cfg.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string) error {
	workDir := fs.String("workdir", "", "Work directory for run logs and outputs (default: current directory)")
	model := fs.String("model", "", "Model name override")
	baseURL := fs.String("base-url", "", "OpenAI-compatible endpoint override")
	mock := fs.Bool("mock", false, "Use the built-in mock LLM (no network)")
	logLevel := fs.String("log-level", "", "Console log level (debug|info|warn|error)")
	logFormat := fs.String("log-format", "", "Console log format (text|logfmt|json)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *workDir != "" {
		cfg.WorkDir = *workDir
	}
	if *model != "" {
		cfg.LLM.Model = *model
	}
	if *baseURL != "" {
		cfg.LLM.BaseURL = *baseURL
	}
	if *mock {
		cfg.LLM.Provider = "mock"
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	return nil
}

// finalizeConfig computes derived values and validates paths.
func finalizeConfig(cfg *Config) error {
	if cfg.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfg.WorkDir = wd
	}
	if abs, err := filepath.Abs(cfg.WorkDir); err == nil {
		cfg.WorkDir = abs
	}

	if cfg.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", cfg.MaxRounds)
	}
	if cfg.MarkdownOut == "" {
		cfg.MarkdownOut = DefaultMarkdownOut
	}
	if cfg.OutDir == "" {
		cfg.OutDir = DefaultOutDir
	}
	if cfg.PromptDir != "" && !filepath.IsAbs(cfg.PromptDir) {
		cfg.PromptDir = filepath.Join(cfg.WorkDir, cfg.PromptDir)
	}

	return nil
}
