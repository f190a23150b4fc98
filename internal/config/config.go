package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Provider type constants (duplicated from api package to avoid import cycle)
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

// EnvPrefix is the prefix for environment overrides. A double underscore
// separates nested keys: MCPCHAT_MODEL__NAME sets model.name.
const EnvPrefix = "MCPCHAT_"

type Config struct {
	Provider string         `koanf:"provider"`
	DeepSeek DeepSeekConfig `koanf:"deepseek"`
	Ollama   OllamaConfig   `koanf:"ollama"`
	Model    ModelConfig    `koanf:"model"`
	UI       UIConfig       `koanf:"ui"`
	Log      LogConfig      `koanf:"log"`
	Launch   LaunchConfig   `koanf:"launch"`
}

// DeepSeekConfig configures any OpenAI-compatible chat completions endpoint.
// The "openai" provider reuses it with a custom base URL.
type DeepSeekConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"` // seconds, 0 disables the timeout
}

type OllamaConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

type ModelConfig struct {
	Name         string  `koanf:"name"`
	MaxTokens    int     `koanf:"max_tokens"`
	Temperature  float64 `koanf:"temperature"`
	SystemPrompt string  `koanf:"system_prompt"`
}

type UIConfig struct {
	ColoredOutput  bool `koanf:"colored_output"`
	RenderMarkdown bool `koanf:"render_markdown"`
	ShowTokenCount bool `koanf:"show_token_count"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// LaunchConfig maps a server script extension (without the leading dot)
// to the interpreter used to run it.
type LaunchConfig struct {
	Interpreters map[string]string `koanf:"interpreters"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// envKey turns MCPCHAT_MODEL__NAME into model.name.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// APIKeyEnv returns the well-known API key variable for provider, or "" when
// the provider needs no key.
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	}
	return ""
}

// ResolveAPIKey applies the provider's well-known API key variable, which
// wins over the config file and MCPCHAT_ overrides. Call it once the
// provider is final, after command-line overrides.
func (c *Config) ResolveAPIKey() {
	name := APIKeyEnv(c.Provider)
	if name == "" {
		return
	}
	if apiKey := os.Getenv(name); apiKey != "" {
		c.DeepSeek.APIKey = apiKey
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderDeepSeek:
		if c.DeepSeek.APIKey == "" {
			return fmt.Errorf("DeepSeek API key is required (set DEEPSEEK_API_KEY or add to config file)")
		}
	case ProviderOpenAI:
		if c.DeepSeek.APIKey == "" {
			return fmt.Errorf("API key is required (set OPENAI_API_KEY or deepseek.api_key)")
		}
		// The default base URL is DeepSeek's; an openai endpoint must be explicit.
		baseURL := strings.TrimRight(c.DeepSeek.BaseURL, "/")
		if baseURL == "" || baseURL == DefaultDeepSeekURL {
			return fmt.Errorf("deepseek.base_url is required for the openai provider (set MCPCHAT_DEEPSEEK__BASE_URL or add to config file)")
		}
	case ProviderOllama:
		if c.Ollama.BaseURL == "" {
			c.Ollama.BaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("unknown provider: %s (supported: %s, %s, %s)",
			c.Provider, ProviderDeepSeek, ProviderOpenAI, ProviderOllama)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}

	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	if len(c.Launch.Interpreters) == 0 {
		return fmt.Errorf("launch.interpreters must map at least one script extension")
	}

	return nil
}

// ProviderConfig contains provider-specific configuration for the API package.
type ProviderConfig struct {
	Type     string
	DeepSeek DeepSeekConfig
	Ollama   OllamaConfig
}

// ModelSettings contains the per-request model parameters, fixed for the
// lifetime of a run.
type ModelSettings struct {
	Name         string
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// GetProviderConfig returns the provider configuration for the API package.
func (c *Config) GetProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		Type:     c.Provider,
		DeepSeek: c.DeepSeek,
		Ollama:   c.Ollama,
	}
}

// GetModelSettings returns the model parameters used for every completion call.
func (c *Config) GetModelSettings() ModelSettings {
	return ModelSettings{
		Name:         c.Model.Name,
		MaxTokens:    c.Model.MaxTokens,
		Temperature:  c.Model.Temperature,
		SystemPrompt: c.Model.SystemPrompt,
	}
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
