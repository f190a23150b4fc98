// Package toolbox is a small MCP tool provider used to try the chat client
// without an external server. It serves canned weather, the current time
// and a SQLite-backed notes list.
package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "toolbox"
	serverVersion = "1.0.0"
)

var conditions = []string{"sunny", "cloudy", "rainy", "windy", "foggy", "snowy"}

// Server is the MCP server exposing the toolbox tools.
type Server struct {
	mcpServer *server.MCPServer
	store     *Store
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now for current_time.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates the toolbox MCP server backed by the given store.
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_weather",
			mcp.WithDescription("Get the current weather for a city"),
			mcp.WithString("city", mcp.Required(), mcp.Description("City name, e.g. Paris")),
		),
		s.handleGetWeather,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("current_time",
			mcp.WithDescription("Get the current date and time, optionally in an IANA time zone"),
			mcp.WithString("timezone", mcp.Description("IANA time zone such as Europe/Paris (default: UTC)")),
		),
		s.handleCurrentTime,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("add_note",
			mcp.WithDescription("Save a note with a title, optional body and comma-separated tags"),
			mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
			mcp.WithString("body", mcp.Description("Note text")),
			mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		),
		s.handleAddNote,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List saved notes, optionally only those with a tag"),
			mcp.WithString("tag", mcp.Description("Only list notes with this tag")),
		),
		s.handleListNotes,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_note",
			mcp.WithDescription("Delete a note permanently"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Note ID")),
		),
		s.handleDeleteNote,
	)
}

// Forecast returns the canned weather for city. The same city always gets
// the same forecast.
func Forecast(city string) Weather {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(city))))
	sum := h.Sum32()

	return Weather{
		City:        city,
		Condition:   conditions[sum%uint32(len(conditions))],
		Temperature: int(sum>>8%35) - 5,
		Humidity:    int(sum>>16%70) + 20,
	}
}

func (s *Server) handleGetWeather(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	city := strings.TrimSpace(req.GetString("city", ""))
	if city == "" {
		return mcp.NewToolResultError("city is required"), nil
	}

	w := Forecast(city)
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s, %d°C, humidity %d%%",
		w.City, w.Condition, w.Temperature, w.Humidity)), nil
}

func (s *Server) handleCurrentTime(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tz := req.GetString("timezone", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown timezone %q: %v", tz, err)), nil
	}

	return mcp.NewToolResultText(s.now().In(loc).Format(time.RFC3339)), nil
}

func (s *Server) handleAddNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("title is required"), nil
	}

	added, err := s.store.Add(Note{
		Title: title,
		Body:  req.GetString("body", ""),
		Tags:  req.GetString("tags", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add note: %v", err)), nil
	}

	output, _ := json.MarshalIndent(added, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleListNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.store.List(req.GetString("tag", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list notes: %v", err)), nil
	}

	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	output, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(output)), nil
}

func (s *Server) handleDeleteNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idFloat := req.GetFloat("id", -1)
	if idFloat < 0 {
		return mcp.NewToolResultError("id is required and must be a positive number"), nil
	}
	id := int64(idFloat)

	if err := s.store.Delete(id); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("note %d not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete note: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Note %d deleted.", id)), nil
}
