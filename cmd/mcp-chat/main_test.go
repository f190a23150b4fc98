package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/notexe/mcp-chat/internal/api"
	"github.com/notexe/mcp-chat/internal/config"
	"github.com/notexe/mcp-chat/internal/mcp"
	"github.com/notexe/mcp-chat/internal/repl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	closed int
}

func (p *fakeProvider) SendMessage(context.Context, api.MessageRequest) (*api.MessageResponse, error) {
	return &api.MessageResponse{Content: "It is sunny."}, nil
}

func (p *fakeProvider) Name() string { return "deepseek" }

func (p *fakeProvider) Close() error {
	p.closed++
	return nil
}

type fakeServer struct {
	connectErr error
	closed     int
}

func (s *fakeServer) Connect(context.Context) error { return s.connectErr }

func (s *fakeServer) ServerName() string { return "toolbox" }

func (s *fakeServer) ListTools(context.Context) ([]mcp.Tool, error) {
	return []mcp.Tool{{Name: "get_weather"}}, nil
}

func (s *fakeServer) CallTool(context.Context, string, map[string]any) (string, error) {
	return "sunny", nil
}

func (s *fakeServer) Close() error {
	s.closed++
	return errors.New("already exited")
}

// lineReader returns its lines, then blocks until closed.
type lineReader struct {
	lines  []string
	done   chan struct{}
	once   sync.Once
	closed int
}

func newLineReader(lines ...string) *lineReader {
	return &lineReader{lines: lines, done: make(chan struct{})}
}

func (r *lineReader) Readline() (string, error) {
	if len(r.lines) > 0 {
		line := r.lines[0]
		r.lines = r.lines[1:]
		return line, nil
	}
	<-r.done
	return "", io.EOF
}

func (r *lineReader) Close() error {
	r.closed++
	r.once.Do(func() { close(r.done) })
	return nil
}

type harness struct {
	provider *fakeProvider
	server   *fakeServer
	reader   *lineReader
	out      bytes.Buffer

	providerErr error
	launchErr   error
	readerErr   error
	launched    bool
}

func newHarness(lines ...string) *harness {
	return &harness{
		provider: &fakeProvider{},
		server:   &fakeServer{},
		reader:   newLineReader(lines...),
	}
}

func (h *harness) run(ctx context.Context) error {
	cfg := &config.Config{
		Provider: config.ProviderDeepSeek,
		Model:    config.ModelConfig{Name: "deepseek-chat", MaxTokens: 100},
	}
	return run(ctx, cfg, slog.New(slog.DiscardHandler), session{
		newProvider: func() (api.Provider, error) {
			if h.providerErr != nil {
				return nil, h.providerErr
			}
			return h.provider, nil
		},
		launch: func() (serverClient, error) {
			h.launched = true
			if h.launchErr != nil {
				return nil, h.launchErr
			}
			return h.server, nil
		},
		newReader: func(string) (repl.LineReader, error) {
			if h.readerErr != nil {
				return nil, h.readerErr
			}
			return h.reader, nil
		},
		out: &h.out,
	})
}

func TestRun_QuitReleasesEverythingOnce(t *testing.T) {
	h := newHarness("weather?", "quit")

	require.NoError(t, h.run(t.Context()))

	assert.Contains(t, h.out.String(), "toolbox")
	assert.Contains(t, h.out.String(), "It is sunny.")
	assert.Equal(t, 1, h.provider.closed)
	assert.Equal(t, 1, h.server.closed)
	assert.Equal(t, 1, h.reader.closed)
}

func TestRun_ConnectFailureReleasesEverythingOnce(t *testing.T) {
	h := newHarness()
	h.server.connectErr = errors.New("handshake failed")

	err := h.run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to MCP server")

	assert.Equal(t, 1, h.provider.closed)
	assert.Equal(t, 1, h.server.closed)
	assert.Zero(t, h.reader.closed, "reader is never opened")
}

func TestRun_CancelReleasesEverythingOnce(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.NoError(t, h.run(ctx))

	assert.Contains(t, h.out.String(), "Goodbye")
	assert.Equal(t, 1, h.provider.closed)
	assert.Equal(t, 1, h.server.closed)
	assert.Equal(t, 1, h.reader.closed)
}

func TestRun_ProviderFailureLaunchesNothing(t *testing.T) {
	h := newHarness()
	h.providerErr = errors.New("API key is required")

	err := h.run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create provider")
	assert.False(t, h.launched)
	assert.Zero(t, h.server.closed)
}

func TestRun_LaunchFailureClosesProvider(t *testing.T) {
	h := newHarness()
	h.launchErr = errors.New("MCP server command not found")

	require.Error(t, h.run(t.Context()))
	assert.Equal(t, 1, h.provider.closed)
	assert.Zero(t, h.server.closed)
}

func TestRun_ReaderFailureReleasesEverythingOnce(t *testing.T) {
	h := newHarness()
	h.readerErr = errors.New("no tty")

	err := h.run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to setup readline")
	assert.Equal(t, 1, h.provider.closed)
	assert.Equal(t, 1, h.server.closed)
}
