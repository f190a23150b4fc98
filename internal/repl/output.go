package repl

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/notexe/mcp-chat/internal/api"
	"github.com/notexe/mcp-chat/internal/chat"
	"github.com/notexe/mcp-chat/internal/ui"
)

// Console writes everything the user sees. It also reports exchange
// progress, so it doubles as the exchange's observer.
type Console struct {
	out        io.Writer
	formatter  *ui.Formatter
	status     *ui.StatusDisplay
	markdown   *ui.MarkdownRenderer
	showTokens bool
	model      string
}

var _ chat.Observer = (*Console)(nil)

// ConsoleOptions configures a Console.
type ConsoleOptions struct {
	Formatter  *ui.Formatter
	Markdown   *ui.MarkdownRenderer
	ShowTokens bool
	Model      string
	// ShowStatus enables the transient "waiting" line; keep it off when
	// out is not a terminal.
	ShowStatus bool
}

func NewConsole(out io.Writer, opts ConsoleOptions) *Console {
	return &Console{
		out:        out,
		formatter:  opts.Formatter,
		status:     ui.NewStatusDisplay(out, opts.Formatter, opts.ShowStatus),
		markdown:   opts.Markdown,
		showTokens: opts.ShowTokens,
		model:      opts.Model,
	}
}

func (c *Console) Welcome(server string, tools []string) {
	fmt.Fprintln(c.out, c.formatter.FormatWelcome(server, c.model, tools))
}

// ToolCalled prints the diagnostic line for a tool invocation.
func (c *Console) ToolCalled(name string, args map[string]any) {
	c.status.Hide()
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", args))
	}
	fmt.Fprintln(c.out, c.formatter.FormatToolCall(name, string(data)))
}

// FollowUpFailed prints a failed follow-up completion inline.
func (c *Console) FollowUpFailed(err error) {
	c.status.Hide()
	fmt.Fprintln(c.out, c.formatter.FormatFollowUpError(err))
}

func (c *Console) Waiting() {
	c.status.Show("Waiting for response...")
}

// Discard clears the waiting status without printing an answer.
func (c *Console) Discard() {
	c.status.Hide()
}

func (c *Console) Answer(text string, usage api.Usage, calls int, duration time.Duration) {
	c.status.Hide()

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.render(text))

	if c.showTokens {
		fmt.Fprintln(c.out, c.formatter.FormatTokenUsage(usage, ui.TokenUsageOptions{
			Duration:     duration,
			Model:        c.model,
			APICallCount: calls,
		}))
	}
	fmt.Fprintln(c.out)
}

func (c *Console) Error(err error) {
	c.status.Hide()
	fmt.Fprintln(c.out, c.formatter.FormatError(err))
	fmt.Fprintln(c.out)
}

func (c *Console) Goodbye() {
	fmt.Fprintln(c.out, c.formatter.FormatInfo("\nGoodbye!"))
}

func (c *Console) render(text string) string {
	if c.markdown != nil {
		return c.markdown.Render(text)
	}
	return c.formatter.FormatAnswer(text)
}
