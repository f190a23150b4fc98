package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-deepseek/deepseek/request"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/notexe/mcp-chat/internal/api"
	mcpclient "github.com/notexe/mcp-chat/internal/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// events records calls across fakes so ordering can be asserted.
type events []string

func (e *events) add(format string, args ...any) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

type fakeCatalog struct {
	tools []mcpclient.Tool
	err   error
	calls int
}

func (c *fakeCatalog) ListTools(context.Context) ([]mcpclient.Tool, error) {
	c.calls++
	return c.tools, c.err
}

type invocation struct {
	name string
	args map[string]any
}

type fakeInvoker struct {
	log     *events
	results map[string]string
	err     error
	calls   []invocation
}

func (f *fakeInvoker) CallTool(_ context.Context, name string, args map[string]any) (string, error) {
	f.calls = append(f.calls, invocation{name: name, args: args})
	if f.log != nil {
		f.log.add("tool:%s", name)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.results[name], nil
}

type step struct {
	resp *api.MessageResponse
	err  error
}

type scriptedCompleter struct {
	log      *events
	steps    []step
	requests [][]api.Message
	tools    [][]request.Tool
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []api.Message, tools []request.Tool) (*api.MessageResponse, error) {
	s.requests = append(s.requests, messages)
	s.tools = append(s.tools, tools)
	if s.log != nil {
		s.log.add("complete")
	}
	if len(s.steps) == 0 {
		return nil, errors.New("unexpected completion call")
	}
	next := s.steps[0]
	s.steps = s.steps[1:]
	return next.resp, next.err
}

type recordingObserver struct {
	tools    []string
	failures []error
}

func (r *recordingObserver) ToolCalled(name string, _ map[string]any) {
	r.tools = append(r.tools, name)
}

func (r *recordingObserver) FollowUpFailed(err error) {
	r.failures = append(r.failures, err)
}

func weatherCatalog() *fakeCatalog {
	return &fakeCatalog{tools: []mcpclient.Tool{{
		Name:        "get_weather",
		Description: "Weather by city",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"city": map[string]any{"type": "string"}},
			Required:   []string{"city"},
		},
	}}}
}

func reply(content string, calls ...api.ToolCall) step {
	return step{resp: &api.MessageResponse{Content: content, ToolCalls: calls}}
}

func TestExchange_NoToolsPassthrough(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{reply("4")}}
	invoker := &fakeInvoker{}
	e := NewExchange(&fakeCatalog{}, invoker, completer)

	out, err := e.Process(t.Context(), "What is 2+2")
	require.NoError(t, err)
	assert.Equal(t, "4", out)

	require.Len(t, completer.requests, 1)
	assert.Equal(t, []api.Message{{Role: api.RoleUser, Content: "What is 2+2"}}, completer.requests[0])
	assert.Empty(t, completer.tools[0])
	assert.Empty(t, invoker.calls)
}

func TestExchange_TextIsUnmodified(t *testing.T) {
	text := "  line one\n\n**bold** line two  "
	completer := &scriptedCompleter{steps: []step{reply(text)}}
	e := NewExchange(weatherCatalog(), &fakeInvoker{}, completer)

	out, err := e.Process(t.Context(), "hi")
	require.NoError(t, err)
	assert.Equal(t, text, out)
}

func TestExchange_EmptyReply(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{reply("")}}
	e := NewExchange(weatherCatalog(), &fakeInvoker{}, completer)

	out, err := e.Process(t.Context(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestExchange_WeatherInParis(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{
		reply("", api.ToolCall{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Paris"}`}),
		reply("It is sunny."),
	}}
	invoker := &fakeInvoker{results: map[string]string{"get_weather": "sunny, 24C"}}
	e := NewExchange(weatherCatalog(), invoker, completer)

	out, err := e.Process(t.Context(), "weather in Paris")
	require.NoError(t, err)
	assert.Equal(t, "[Calling tool get_weather with args {\"city\":\"Paris\"}]\nIt is sunny.", out)

	require.Len(t, invoker.calls, 1)
	assert.Equal(t, "get_weather", invoker.calls[0].name)
	assert.Equal(t, map[string]any{"city": "Paris"}, invoker.calls[0].args)

	require.Len(t, completer.tools, 2)
	require.Len(t, completer.tools[0], 1)
	assert.Equal(t, "get_weather", completer.tools[0][0].Function.Name)

	followUp := completer.requests[1]
	require.Len(t, followUp, 3)
	assert.Equal(t, api.Message{Role: api.RoleUser, Content: "weather in Paris"}, followUp[0])
	assert.Equal(t, api.RoleAssistant, followUp[1].Role)
	assert.Equal(t, []api.ToolCall{{ID: "call_1", Name: "get_weather", Arguments: `{"city":"Paris"}`}}, followUp[1].ToolCalls)
	assert.Equal(t, api.Message{Role: api.RoleTool, Content: "sunny, 24C", Name: "get_weather", ToolCallID: "call_1"}, followUp[2])
}

func TestExchange_PreambleMarkerFollowUpOrder(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{
		reply("Let me check.", api.ToolCall{ID: "a", Name: "get_weather", Arguments: `{"city":"Oslo"}`}),
		reply("Snowing in Oslo."),
	}}
	e := NewExchange(weatherCatalog(), &fakeInvoker{results: map[string]string{"get_weather": "snow"}}, completer)

	out, err := e.Process(t.Context(), "weather in Oslo")
	require.NoError(t, err)
	assert.Equal(t, "Let me check.\n[Calling tool get_weather with args {\"city\":\"Oslo\"}]\nSnowing in Oslo.", out)
}

func TestExchange_NToolCallsInterleaved(t *testing.T) {
	log := &events{}
	completer := &scriptedCompleter{log: log, steps: []step{
		reply("",
			api.ToolCall{ID: "1", Name: "alpha", Arguments: `{}`},
			api.ToolCall{ID: "2", Name: "beta", Arguments: `{"n":2}`},
			api.ToolCall{ID: "3", Name: "gamma", Arguments: ``},
		),
		reply("after alpha"),
		reply("after beta"),
		reply("after gamma"),
	}}
	invoker := &fakeInvoker{log: log, results: map[string]string{"alpha": "a", "beta": "b", "gamma": "c"}}
	e := NewExchange(&fakeCatalog{}, invoker, completer)

	answer, err := e.Run(t.Context(), "go")
	require.NoError(t, err)

	assert.Equal(t, events{
		"complete",
		"tool:alpha", "complete",
		"tool:beta", "complete",
		"tool:gamma", "complete",
	}, *log)
	assert.Equal(t, 4, answer.CompletionCalls)
	assert.Equal(t, 3, answer.ToolCalls)
	assert.Equal(t, map[string]any{}, invoker.calls[2].args)

	// Each follow-up sees every earlier tool result.
	assert.Len(t, completer.requests[1], 3)
	assert.Len(t, completer.requests[2], 5)
	assert.Len(t, completer.requests[3], 7)
	assert.Equal(t, "3", completer.requests[3][6].ToolCallID)
}

func TestExchange_FollowUpFailureDoesNotAbort(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{
		reply("",
			api.ToolCall{ID: "1", Name: "alpha", Arguments: `{}`},
			api.ToolCall{ID: "2", Name: "beta", Arguments: `{}`},
		),
		{err: errors.New("rate limited")},
		reply("beta done"),
	}}
	invoker := &fakeInvoker{results: map[string]string{}}
	observer := &recordingObserver{}
	e := NewExchange(&fakeCatalog{}, invoker, completer, WithObserver(observer))

	out, err := e.Process(t.Context(), "go")
	require.NoError(t, err)

	require.Len(t, invoker.calls, 2)
	assert.Equal(t, "beta", invoker.calls[1].name)
	assert.Equal(t, "[Calling tool alpha with args {}]\n"+
		"Failed to get final response: rate limited\n"+
		"[Calling tool beta with args {}]\n"+
		"beta done", out)
	assert.Equal(t, []string{"alpha", "beta"}, observer.tools)
	require.Len(t, observer.failures, 1)
	assert.EqualError(t, observer.failures[0], "rate limited")
}

func TestExchange_DepthLimit(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{
		reply("", api.ToolCall{ID: "1", Name: "get_weather", Arguments: `{"city":"Paris"}`}),
		reply("need more", api.ToolCall{ID: "2", Name: "get_weather", Arguments: `{"city":"Lyon"}`}),
	}}
	invoker := &fakeInvoker{results: map[string]string{"get_weather": "sunny"}}
	e := NewExchange(weatherCatalog(), invoker, completer)

	answer, err := e.Run(t.Context(), "weather")
	require.NoError(t, err)

	assert.Len(t, invoker.calls, 1)
	assert.Equal(t, 2, answer.CompletionCalls)
	assert.Equal(t, "[Calling tool get_weather with args {\"city\":\"Paris\"}]\nneed more", answer.Text)
}

func TestExchange_FirstCompletionError(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{{err: errors.New("401 unauthorized")}}}
	e := NewExchange(weatherCatalog(), &fakeInvoker{}, completer)

	out, err := e.Process(t.Context(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "API call failed: 401 unauthorized", out)
}

func TestExchange_ToolErrorAbortsQuery(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{
		reply("checking", api.ToolCall{ID: "1", Name: "get_weather", Arguments: `{"city":"Paris"}`}),
	}}
	invoker := &fakeInvoker{err: errors.New("connection closed")}
	e := NewExchange(weatherCatalog(), invoker, completer)

	out, err := e.Process(t.Context(), "weather")
	require.NoError(t, err)
	assert.Equal(t, "API call failed: tool get_weather: connection closed", out)
	assert.Len(t, completer.requests, 1)
}

func TestExchange_MalformedArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{name: "broken json", args: `{"city":`},
		{name: "array", args: `["Paris"]`},
		{name: "string", args: `"Paris"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &scriptedCompleter{steps: []step{
				reply("", api.ToolCall{ID: "1", Name: "get_weather", Arguments: tt.args}),
			}}
			invoker := &fakeInvoker{}
			e := NewExchange(weatherCatalog(), invoker, completer)

			out, err := e.Process(t.Context(), "weather")
			require.NoError(t, err)
			assert.Contains(t, out, "API call failed: invalid arguments for tool get_weather")
			assert.Empty(t, invoker.calls)
		})
	}
}

func TestExchange_CatalogErrorPropagates(t *testing.T) {
	completer := &scriptedCompleter{}
	e := NewExchange(&fakeCatalog{err: mcpclient.ErrNotConnected}, &fakeInvoker{}, completer)

	_, err := e.Process(t.Context(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, mcpclient.ErrNotConnected)
	assert.Empty(t, completer.requests)
}

func TestExchange_CatalogFetchedPerQuery(t *testing.T) {
	catalog := weatherCatalog()
	completer := &scriptedCompleter{steps: []step{reply("one"), reply("two")}}
	e := NewExchange(catalog, &fakeInvoker{}, completer)

	_, err := e.Process(t.Context(), "first")
	require.NoError(t, err)
	_, err = e.Process(t.Context(), "second")
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.calls)
	// Queries do not share history.
	assert.Len(t, completer.requests[1], 1)
}

func TestExchange_UsageSummed(t *testing.T) {
	completer := &scriptedCompleter{steps: []step{
		{resp: &api.MessageResponse{
			ToolCalls: []api.ToolCall{{ID: "1", Name: "get_weather", Arguments: `{"city":"Rome"}`}},
			Usage:     api.Usage{InputTokens: 10, OutputTokens: 3},
		}},
		{resp: &api.MessageResponse{Content: "Warm.", Usage: api.Usage{InputTokens: 20, OutputTokens: 2}}},
	}}
	e := NewExchange(weatherCatalog(), &fakeInvoker{}, completer)

	answer, err := e.Run(t.Context(), "weather in Rome")
	require.NoError(t, err)
	assert.Equal(t, api.Usage{InputTokens: 30, OutputTokens: 5}, answer.Usage)
}

func TestParseArguments(t *testing.T) {
	args, err := parseArguments("  ")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, args)

	args, err = parseArguments("null")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, args)

	args, err = parseArguments(`{"n":1.5,"tags":["a"]}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 1.5, "tags": []any{"a"}}, args)
}
