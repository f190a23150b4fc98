package ui

import (
	"fmt"
	"io"
)

// StatusDisplay shows a transient status line that is erased before the
// next output.
type StatusDisplay struct {
	out       io.Writer
	formatter *Formatter
	enabled   bool
}

func NewStatusDisplay(out io.Writer, formatter *Formatter, enabled bool) *StatusDisplay {
	return &StatusDisplay{
		out:       out,
		formatter: formatter,
		enabled:   enabled,
	}
}

func (s *StatusDisplay) Show(message string) {
	if !s.enabled {
		return
	}

	fmt.Fprint(s.out, "\r\033[K")
	fmt.Fprint(s.out, s.formatter.FormatStatus(message))
}

func (s *StatusDisplay) Hide() {
	if !s.enabled {
		return
	}

	fmt.Fprint(s.out, "\r\033[K")
}
