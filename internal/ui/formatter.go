// Package ui formats console output for the chat shell.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/notexe/mcp-chat/internal/api"
)

var (
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")) // Soft green

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")). // Coral red
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222")) // Warm yellow

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Medium gray
			Italic(true)

	TokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dim gray

	ToolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("215")). // Orange
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81")).
			Bold(true)
)

type Formatter struct {
	colored     bool
	providerRaw string
}

func NewFormatter(colored bool, provider string) *Formatter {
	return &Formatter{
		colored:     colored,
		providerRaw: provider,
	}
}

// Colored reports whether output is styled.
func (f *Formatter) Colored() bool {
	return f.colored
}

// formatProviderName returns a display-friendly provider name.
func formatProviderName(provider string) string {
	switch provider {
	case "deepseek":
		return "DeepSeek"
	case "openai":
		return "OpenAI-compatible"
	case "ollama":
		return "Ollama"
	case "":
		return "AI"
	default:
		return strings.ToUpper(provider[:1]) + provider[1:]
	}
}

func (f *Formatter) FormatPrompt() string {
	if f.colored {
		return PromptStyle.Render("Query: ")
	}
	return "Query: "
}

func (f *Formatter) FormatAnswer(msg string) string {
	if f.colored {
		return AssistantStyle.Render(msg)
	}
	return msg
}

func (f *Formatter) FormatError(err error) string {
	prefix := "Error: "
	if f.colored {
		prefix = ErrorStyle.Render("Error: ")
	}
	return prefix + err.Error()
}

func (f *Formatter) FormatInfo(info string) string {
	if f.colored {
		return InfoStyle.Render(info)
	}
	return info
}

func (f *Formatter) FormatStatus(msg string) string {
	if f.colored {
		return StatusStyle.Render(msg)
	}
	return msg
}

// FormatToolCall renders the diagnostic line printed when a tool runs.
func (f *Formatter) FormatToolCall(name, args string) string {
	label := "⚙ " + name
	if f.colored {
		label = ToolStyle.Render(label)
	}
	return label + " " + f.FormatStatus(args)
}

// FormatFollowUpError renders a failed follow-up completion.
func (f *Formatter) FormatFollowUpError(err error) string {
	msg := "Failed to get final response: " + err.Error()
	if f.colored {
		return ErrorStyle.Render(msg)
	}
	return msg
}

// TokenUsageOptions contains optional parameters for token usage display.
type TokenUsageOptions struct {
	Duration     time.Duration
	Model        string
	APICallCount int // completion calls made for one query
}

func (f *Formatter) FormatTokenUsage(usage api.Usage, opts TokenUsageOptions) string {
	parts := []string{
		fmt.Sprintf("tokens: input=%d, output=%d", usage.InputTokens, usage.OutputTokens),
	}

	if opts.APICallCount > 1 {
		parts = append(parts, fmt.Sprintf("api_calls: %d", opts.APICallCount))
	}

	if opts.Duration > 0 {
		parts = append(parts, fmt.Sprintf("time: %s", formatDuration(opts.Duration)))
	}

	if cost := calculateCost(usage, opts.Model, f.providerRaw); cost > 0 {
		parts = append(parts, fmt.Sprintf("cost: $%.6f", cost))
	}

	msg := "(" + strings.Join(parts, " | ") + ")"

	if f.colored {
		return TokenStyle.Render(msg)
	}
	return msg
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// DeepSeek pricing per 1M tokens (USD)
// https://api-docs.deepseek.com/quick_start/pricing
var deepSeekPricing = map[string]struct {
	inputPer1M  float64
	outputPer1M float64
}{
	"deepseek-chat": {
		inputPer1M:  0.14,
		outputPer1M: 0.28,
	},
	"deepseek-reasoner": {
		inputPer1M:  0.55,
		outputPer1M: 2.19,
	},
}

// calculateCost is only known for DeepSeek models.
func calculateCost(usage api.Usage, model, provider string) float64 {
	if provider != "deepseek" {
		return 0
	}

	pricing, ok := deepSeekPricing[model]
	if !ok {
		return 0
	}

	inputCost := float64(usage.InputTokens) * pricing.inputPer1M / 1_000_000
	outputCost := float64(usage.OutputTokens) * pricing.outputPer1M / 1_000_000

	return inputCost + outputCost
}

// FormatWelcome renders the banner shown once connected.
func (f *Formatter) FormatWelcome(server, model string, tools []string) string {
	providerName := formatProviderName(f.providerRaw)
	toolList := strings.Join(tools, ", ")
	if toolList == "" {
		toolList = "(none)"
	}

	if !f.colored {
		lines := []string{
			"",
			fmt.Sprintf("Connected to server %s with tools: %s", server, toolList),
			fmt.Sprintf("MCP Chat • %s • %s", providerName, model),
			"Type your queries or 'quit' to exit.",
			"",
		}
		return strings.Join(lines, "\n")
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("81")).
		Bold(true)
	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("114"))
	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1)

	body := strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("MCP Chat • %s", providerName)),
		labelStyle.Render("Model:  ") + valueStyle.Render(model),
		labelStyle.Render("Server: ") + valueStyle.Render(server),
		labelStyle.Render("Tools:  ") + valueStyle.Render(toolList),
		"",
		hintStyle.Render("Type your queries or 'quit' to exit."),
	}, "\n")

	return "\n" + boxStyle.Render(body) + "\n"
}
