// Package repl is the interactive shell: it reads queries and prints
// answers until the user types quit.
package repl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/notexe/mcp-chat/internal/chat"
)

// Runner answers one query.
type Runner interface {
	Run(ctx context.Context, query string) (*chat.Answer, error)
}

type REPL struct {
	runner  Runner
	rl      LineReader
	console *Console
	logger  *slog.Logger
}

func NewREPL(runner Runner, rl LineReader, console *Console, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &REPL{
		runner:  runner,
		rl:      rl,
		console: console,
		logger:  logger,
	}
}

// Start reads queries until quit, end of input, an interrupt or ctx is
// cancelled. Query failures are printed and the loop continues. The line
// reader is closed when Start returns.
func (r *REPL) Start(ctx context.Context) error {
	closeReader := sync.OnceFunc(func() { _ = r.rl.Close() })
	defer closeReader()

	// Unblock Readline when the context ends.
	stop := context.AfterFunc(ctx, closeReader)
	defer stop()

	for {
		line, err := r.rl.Readline()
		if err != nil {
			if isEOF(err) || ctx.Err() != nil {
				r.console.Goodbye()
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if isQuit(input) {
			r.console.Goodbye()
			return nil
		}

		r.handleQuery(ctx, input)

		if ctx.Err() != nil {
			r.console.Goodbye()
			return nil
		}
	}
}

func (r *REPL) handleQuery(ctx context.Context, query string) {
	r.logger.Debug("processing query", "length", len(query))
	r.console.Waiting()

	start := time.Now()
	answer, err := r.runner.Run(ctx, query)
	if ctx.Err() != nil {
		// Interrupted mid-query; whatever came back is discarded.
		r.logger.Debug("query interrupted", "error", ctx.Err())
		r.console.Discard()
		return
	}
	if err != nil {
		r.console.Error(err)
		return
	}

	r.console.Answer(answer.Text, answer.Usage, answer.CompletionCalls, time.Since(start))
}
