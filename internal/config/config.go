// Package config handles configuration loading and defaults.
package config

// Default values.
const (
	DefaultMarkdownOut    = "demo_output.md"
	DefaultOutDir         = "extracted_src"
	DefaultFeature        = "Add login functionality with JWT in Spring Boot"
	DefaultMaxRounds      = 12
	DefaultLLMProvider    = "openai"
	DefaultLLMBaseURL     = "http://localhost:11434/v1"
	DefaultLLMModel       = "llama3.2:latest"
	DefaultLLMAPIKey      = "ollama" // Ollama ignores the key but the SDK requires one
	DefaultLLMTemperature = 0.15
	DefaultLLMMaxTokens   = 4096
)

// Config holds the full configuration for agentpipe.
type Config struct {
	// Paths
	MarkdownOut string `toml:"markdown_out"`
	OutDir      string `toml:"out_dir"`
	PromptDir   string `toml:"prompt_dir"`

	// Pipeline settings
	DefaultFeature string `toml:"default_feature"`
	MaxRounds      int    `toml:"max_rounds"`

	// LLM backend
	LLM LLMConfig `toml:"llm"`

	// Logging configuration
	LogLevel      string `toml:"log_level"`
	LogFormat     string `toml:"log_format"`
	LogTimestamps bool   `toml:"log_timestamps"`

	// WorkDir is where run_*.log files and stage outputs live (computed).
	WorkDir string `toml:"-"`
}

// LLMConfig holds settings for the model backend.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (any
	// OpenAI-compatible endpoint, including Ollama) or "mock".
	Provider string `toml:"provider"`

	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// setDefaults fills cfg with the built-in defaults.
func setDefaults(cfg *Config) {
	cfg.MarkdownOut = DefaultMarkdownOut
	cfg.OutDir = DefaultOutDir
	cfg.DefaultFeature = DefaultFeature
	cfg.MaxRounds = DefaultMaxRounds
	cfg.LLM = LLMConfig{
		Provider:    DefaultLLMProvider,
		BaseURL:     DefaultLLMBaseURL,
		Model:       DefaultLLMModel,
		APIKey:      DefaultLLMAPIKey,
		Temperature: DefaultLLMTemperature,
		MaxTokens:   DefaultLLMMaxTokens,
	}
	cfg.LogLevel = "info"
	cfg.LogFormat = "text"
}
