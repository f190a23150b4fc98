package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

const DefaultDeepSeekURL = "https://api.deepseek.com"

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"provider": "deepseek",
		"deepseek": map[string]interface{}{
			"api_key":  "",
			"base_url": DefaultDeepSeekURL,
			"timeout":  0, // completion calls block until the server answers
		},
		"ollama": map[string]interface{}{
			"base_url": "http://localhost:11434",
			"timeout":  0,
		},
		"model": map[string]interface{}{
			"name":          "deepseek-chat",
			"max_tokens":    4096,
			"temperature":   1.0,
			"system_prompt": "",
		},
		"ui": map[string]interface{}{
			"colored_output":   true,
			"render_markdown":  true,
			"show_token_count": false,
		},
		"log": map[string]interface{}{
			"level":  "warn",
			"format": "text",
		},
		"launch": map[string]interface{}{
			"interpreters": map[string]interface{}{
				"py": "python",
				"js": "node",
			},
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "~/.mcp-chat/config.yaml"
}
