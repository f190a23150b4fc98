package chat

import (
	"context"

	"github.com/go-deepseek/deepseek/request"
	"github.com/notexe/mcp-chat/internal/api"
	"github.com/notexe/mcp-chat/internal/config"
)

// Gateway sends a conversation to the configured model in one blocking call.
type Gateway struct {
	provider api.Provider
	settings config.ModelSettings
}

// NewGateway creates a gateway that uses settings for every request.
func NewGateway(provider api.Provider, settings config.ModelSettings) *Gateway {
	return &Gateway{
		provider: provider,
		settings: settings,
	}
}

// Complete asks the model for the next reply. When tools are given the model
// may choose to call them. Errors are returned as is, never retried.
func (g *Gateway) Complete(ctx context.Context, messages []api.Message, tools []request.Tool) (*api.MessageResponse, error) {
	req := api.MessageRequest{
		Messages:    messages,
		System:      g.settings.SystemPrompt,
		Model:       g.settings.Name,
		MaxTokens:   g.settings.MaxTokens,
		Temperature: g.settings.Temperature,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = api.ToolChoiceAuto
	}

	return g.provider.SendMessage(ctx, req)
}
