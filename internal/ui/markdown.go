package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders answers for the terminal. A nil renderer
// returns text unchanged.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer returns a glamour-backed renderer, or nil when
// rendering is disabled.
func NewMarkdownRenderer(enabled bool) (*MarkdownRenderer, error) {
	if !enabled {
		return nil, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{renderer: renderer}, nil
}

// Render converts markdown to styled text, falling back to the input on
// error.
func (m *MarkdownRenderer) Render(content string) string {
	if m == nil || m.renderer == nil || strings.TrimSpace(content) == "" {
		return content
	}

	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}
