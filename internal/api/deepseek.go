package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-deepseek/deepseek"
	dsconfig "github.com/go-deepseek/deepseek/config"
	"github.com/go-deepseek/deepseek/request"
	"github.com/go-deepseek/deepseek/response"
	"github.com/notexe/mcp-chat/internal/config"
)

// sdkNoTimeout stands in for "no timeout": the SDK client rejects zero.
const sdkNoTimeout = math.MaxInt32

// deepseekMessage extends request.Message with the tool_calls field, which
// the SDK's request.Message is missing but the API requires. Content is a
// pointer so an assistant turn that only carries tool calls is sent as null.
type deepseekMessage struct {
	Role       string             `json:"role"`
	Content    *string            `json:"content"`
	ToolCallId string             `json:"tool_call_id,omitempty"`
	ToolCalls  []deepseekToolCall `json:"tool_calls,omitempty"`
}

type deepseekToolCall struct {
	Id       string               `json:"id"`
	Type     string               `json:"type"`
	Function deepseekToolFunction `json:"function"`
}

type deepseekToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// deepseekChatRequest is the OpenAI-compatible request body. Unlike the SDK
// request it carries assistant tool calls in the message history.
type deepseekChatRequest struct {
	Model       string            `json:"model"`
	Messages    []deepseekMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float32          `json:"temperature,omitempty"`
	Stream      bool              `json:"stream"`
	Tools       *[]request.Tool   `json:"tools,omitempty"`
	ToolChoice  string            `json:"tool_choice,omitempty"`
}

type deepseekChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
		Message      struct {
			Role      string             `json:"role"`
			Content   string             `json:"content"`
			ToolCalls []deepseekToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type deepseekErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// DeepSeekProvider implements Provider for DeepSeek and any other
// OpenAI-compatible chat completions endpoint.
type DeepSeekProvider struct {
	client  deepseek.Client
	http    *http.Client
	config  config.DeepSeekConfig
	baseURL string
	name    string
}

// NewDeepSeekProvider creates a provider for an OpenAI-compatible endpoint.
// name is reported by Name and is usually "deepseek" or "openai".
func NewDeepSeekProvider(cfg config.DeepSeekConfig, name string) (*DeepSeekProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	// Request checks are left to the API so both paths accept the same
	// models and limits.
	client, err := deepseek.NewClientWithConfig(dsconfig.Config{
		ApiKey:                   cfg.APIKey,
		TimeoutSeconds:           sdkTimeout(cfg.Timeout),
		DisableRequestValidation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultDeepSeekURL
	}
	if name == "" {
		name = config.ProviderDeepSeek
	}

	return &DeepSeekProvider{
		client: client,
		http: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config:  cfg,
		baseURL: baseURL,
		name:    name,
	}, nil
}

// SendMessage sends a chat completion request and returns the first choice.
func (p *DeepSeekProvider) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if p.useSDK(req) {
		return p.sendMessageSDK(ctx, req)
	}
	return p.sendMessageHTTP(ctx, req)
}

func sdkTimeout(seconds int) int {
	if seconds <= 0 {
		return sdkNoTimeout
	}
	return seconds
}

// useSDK reports whether the request fits the SDK: the official endpoint,
// one of its two models and no tool-call history in the conversation.
func (p *DeepSeekProvider) useSDK(req MessageRequest) bool {
	if p.baseURL != config.DefaultDeepSeekURL {
		return false
	}
	if req.Model != deepseek.DEEPSEEK_CHAT_MODEL && req.Model != deepseek.DEEPSEEK_REASONER_MODEL {
		return false
	}
	for _, msg := range req.Messages {
		if len(msg.ToolCalls) > 0 || msg.Role == RoleTool {
			return false
		}
	}
	return true
}

// sendMessageSDK uses the DeepSeek SDK.
func (p *DeepSeekProvider) sendMessageSDK(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	messages := make([]*request.Message, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, &request.Message{
			Role:    RoleSystem,
			Content: req.System,
		})
	}

	for _, msg := range req.Messages {
		messages = append(messages, &request.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	chatReq := &request.ChatCompletionsRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature(req.Temperature),
		Stream:      false,
	}

	if len(req.Tools) > 0 {
		tools := req.Tools
		chatReq.Tools = &tools
		if req.ToolChoice != "" {
			chatReq.ToolChoice = req.ToolChoice
		}
	}

	call := p.client.CallChatCompletionsChat
	if req.Model == deepseek.DEEPSEEK_REASONER_MODEL {
		call = p.client.CallChatCompletionsReasoner
	}

	resp, err := call(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("DeepSeek API request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, fmt.Errorf("DeepSeek API returned no choices")
	}

	return fromSDKResponse(resp), nil
}

func fromSDKResponse(resp *response.ChatCompletionsResponse) *MessageResponse {
	choice := resp.Choices[0]
	var toolCalls []ToolCall
	for _, tc := range choice.Message.ToolCalls {
		if tc == nil {
			continue
		}
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.Id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	out := &MessageResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		ToolCalls:  toolCalls,
	}
	if resp.Usage != nil {
		out.Usage = Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return out
}

// sendMessageHTTP posts the request directly. It is used for tool-call
// history and for endpoints other than the official DeepSeek one.
func (p *DeepSeekProvider) sendMessageHTTP(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	chatReq := deepseekChatRequest{
		Model:       req.Model,
		Messages:    toDeepSeekMessages(req),
		MaxTokens:   req.MaxTokens,
		Temperature: temperature(req.Temperature),
		Stream:      false,
	}

	if len(req.Tools) > 0 {
		tools := req.Tools
		chatReq.Tools = &tools
		chatReq.ToolChoice = req.ToolChoice
	}

	resp, err := p.doHTTPRequest(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s API request failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s API returned no choices", p.name)
	}

	choice := resp.Choices[0]
	var toolCalls []ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.Id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &MessageResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		ToolCalls: toolCalls,
	}, nil
}

func toDeepSeekMessages(req MessageRequest) []deepseekMessage {
	messages := make([]deepseekMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		system := req.System
		messages = append(messages, deepseekMessage{
			Role:    RoleSystem,
			Content: &system,
		})
	}

	for _, msg := range req.Messages {
		m := deepseekMessage{
			Role:       msg.Role,
			ToolCallId: msg.ToolCallID,
		}

		if msg.Content != "" || len(msg.ToolCalls) == 0 {
			content := msg.Content
			m.Content = &content
		}

		if len(msg.ToolCalls) > 0 {
			m.ToolCalls = make([]deepseekToolCall, len(msg.ToolCalls))
			for i, tc := range msg.ToolCalls {
				m.ToolCalls[i] = deepseekToolCall{
					Id:   tc.ID,
					Type: "function",
					Function: deepseekToolFunction{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}

		messages = append(messages, m)
	}

	return messages
}

func temperature(t float64) *float32 {
	if t <= 0 {
		return nil
	}
	v := float32(t)
	return &v
}

// doHTTPRequest makes a direct HTTP call to the chat completions endpoint
func (p *DeepSeekProvider) doHTTPRequest(ctx context.Context, chatReq deepseekChatRequest) (*deepseekChatResponse, error) {
	url := fmt.Sprintf("%s/chat/completions", p.baseURL)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.config.APIKey))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp deepseekErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("API error: %s (status %d)", string(respBody), resp.StatusCode)
	}

	var chatResp deepseekChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &chatResp, nil
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return p.name
}

// Close releases idle HTTP connections.
func (p *DeepSeekProvider) Close() error {
	p.http.CloseIdleConnections()
	return nil
}
