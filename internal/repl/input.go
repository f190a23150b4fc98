package repl

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// LineReader reads one line of user input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// NewReadline creates the interactive line editor with the given prompt.
func NewReadline(prompt string) (*readline.Instance, error) {
	return readline.NewEx(&readline.Config{
		Prompt:              prompt,
		HistoryFile:         "",
		InterruptPrompt:     "^C",
		EOFPrompt:           "quit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
}

func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt)
}

// isQuit reports whether input asks to leave the shell.
func isQuit(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "quit")
}
