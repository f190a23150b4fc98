package toolbox

import (
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestForecast_Deterministic(t *testing.T) {
	a := Forecast("Paris")
	b := Forecast(" paris ")
	assert.Equal(t, a.Condition, b.Condition)
	assert.Equal(t, a.Temperature, b.Temperature)
	assert.Contains(t, conditions, a.Condition)
	assert.GreaterOrEqual(t, a.Temperature, -5)
	assert.Less(t, a.Temperature, 30)
}

func TestServer_GetWeather(t *testing.T) {
	s := NewServer(newTestStore(t))

	result, err := s.handleGetWeather(t.Context(), callRequest("get_weather", map[string]any{"city": "Paris"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Paris: "+Forecast("Paris").Condition)

	result, err = s.handleGetWeather(t.Context(), callRequest("get_weather", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_CurrentTime(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewServer(newTestStore(t), WithClock(func() time.Time { return fixed }))

	result, err := s.handleCurrentTime(t.Context(), callRequest("current_time", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T12:00:00Z", resultText(t, result))

	result, err = s.handleCurrentTime(t.Context(), callRequest("current_time", map[string]any{"timezone": "Not/AZone"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_Notes(t *testing.T) {
	s := NewServer(newTestStore(t))

	result, err := s.handleListNotes(t.Context(), callRequest("list_notes", nil))
	require.NoError(t, err)
	assert.Equal(t, "No notes found.", resultText(t, result))

	result, err = s.handleAddNote(t.Context(), callRequest("add_note", map[string]any{"title": "buy milk", "tags": "home"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"title": "buy milk"`)

	result, err = s.handleListNotes(t.Context(), callRequest("list_notes", map[string]any{"tag": "home"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "buy milk")

	result, err = s.handleDeleteNote(t.Context(), callRequest("delete_note", map[string]any{"id": float64(1)}))
	require.NoError(t, err)
	assert.Equal(t, "Note 1 deleted.", resultText(t, result))

	result, err = s.handleDeleteNote(t.Context(), callRequest("delete_note", map[string]any{"id": float64(1)}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "note 1 not found", resultText(t, result))

	result, err = s.handleAddNote(t.Context(), callRequest("add_note", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
