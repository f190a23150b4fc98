// Package chat runs a single query against the model, executing the tool
// calls it asks for.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-deepseek/deepseek/request"
	"github.com/notexe/mcp-chat/internal/api"
	"github.com/notexe/mcp-chat/internal/mcp"
)

// Catalog lists the tools the provider currently offers.
type Catalog interface {
	ListTools(ctx context.Context) ([]mcp.Tool, error)
}

// Invoker runs one tool and returns its result as text.
type Invoker interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Completer produces the model's next reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []api.Message, tools []request.Tool) (*api.MessageResponse, error)
}

// Observer is told about progress while a query runs.
type Observer interface {
	ToolCalled(name string, args map[string]any)
	FollowUpFailed(err error)
}

// Answer is the result of one query.
type Answer struct {
	Text            string
	Usage           api.Usage
	CompletionCalls int
	ToolCalls       int
}

// Exchange runs queries. It keeps no state between them.
type Exchange struct {
	catalog   Catalog
	invoker   Invoker
	completer Completer
	observer  Observer
	logger    *slog.Logger
}

// ExchangeOption configures an Exchange.
type ExchangeOption func(*Exchange)

// WithObserver reports tool calls and follow-up failures to o.
func WithObserver(o Observer) ExchangeOption {
	return func(e *Exchange) { e.observer = o }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) ExchangeOption {
	return func(e *Exchange) { e.logger = logger }
}

// NewExchange wires the tool catalog, tool invoker and model together.
func NewExchange(catalog Catalog, invoker Invoker, completer Completer, opts ...ExchangeOption) *Exchange {
	e := &Exchange{
		catalog:   catalog,
		invoker:   invoker,
		completer: completer,
		observer:  nopObserver{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process answers query and returns the text to show the user.
func (e *Exchange) Process(ctx context.Context, query string) (string, error) {
	answer, err := e.Run(ctx, query)
	if err != nil {
		return "", err
	}
	return answer.Text, nil
}

// Run answers query. Only a failure to list the tools is returned as an
// error; every later failure becomes part of the answer text.
//
// The first reply may request tools. Each requested call is executed in
// order and followed by one more completion that sees its result. Tool
// calls requested by those follow-ups are not executed.
func (e *Exchange) Run(ctx context.Context, query string) (*Answer, error) {
	conv := NewConversation(query)

	available, err := e.catalog.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	tools := mcp.ToFunctionTools(available)

	answer := &Answer{}
	var output []string

	if err := e.run(ctx, conv, tools, answer, &output); err != nil {
		e.logger.Error("query failed", "error", err)
		answer.Text = "API call failed: " + err.Error()
		return answer, nil
	}

	answer.Text = strings.Join(output, "\n")
	return answer, nil
}

func (e *Exchange) run(ctx context.Context, conv *Conversation, tools []request.Tool, answer *Answer, output *[]string) error {
	resp, err := e.complete(ctx, conv, tools, answer)
	if err != nil {
		return err
	}

	if resp.Content != "" {
		*output = append(*output, resp.Content)
	}

	for _, call := range resp.ToolCalls {
		args, err := parseArguments(call.Arguments)
		if err != nil {
			return fmt.Errorf("invalid arguments for tool %s: %w", call.Name, err)
		}

		e.observer.ToolCalled(call.Name, args)
		e.logger.Info("calling tool", "tool", call.Name, "id", call.ID, "args", call.Arguments)

		result, err := e.invoker.CallTool(ctx, call.Name, args)
		if err != nil {
			return fmt.Errorf("tool %s: %w", call.Name, err)
		}
		answer.ToolCalls++

		*output = append(*output, fmt.Sprintf("[Calling tool %s with args %s]", call.Name, formatArguments(args)))

		conv.AddAssistant("", call)
		if err := conv.AddToolResult(call.ID, call.Name, result); err != nil {
			return err
		}

		followUp, err := e.complete(ctx, conv, tools, answer)
		if err != nil {
			e.logger.Warn("follow-up completion failed", "tool", call.Name, "error", err)
			e.observer.FollowUpFailed(err)
			*output = append(*output, "Failed to get final response: "+err.Error())
			continue
		}

		if followUp.Content != "" {
			*output = append(*output, followUp.Content)
		}
		if len(followUp.ToolCalls) > 0 {
			e.logger.Debug("ignoring nested tool calls", "count", len(followUp.ToolCalls))
		}
	}

	return nil
}

func (e *Exchange) complete(ctx context.Context, conv *Conversation, tools []request.Tool, answer *Answer) (*api.MessageResponse, error) {
	messages := conv.Messages()
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		if dump, err := json.Marshal(messages); err == nil {
			e.logger.Debug("sending messages", "count", len(messages), "messages", string(dump))
		}
	}

	answer.CompletionCalls++
	resp, err := e.completer.Complete(ctx, messages, tools)
	if err != nil {
		return nil, err
	}
	answer.Usage = answer.Usage.Add(resp.Usage)
	return resp, nil
}

// parseArguments decodes a tool call's JSON arguments. Empty input means no
// arguments; anything but a JSON object is rejected.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func formatArguments(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}

type nopObserver struct{}

func (nopObserver) ToolCalled(string, map[string]any) {}
func (nopObserver) FollowUpFailed(error)              {}
