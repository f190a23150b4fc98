package mcp

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedScript is returned when no interpreter is configured for a
// server script's extension.
var ErrUnsupportedScript = errors.New("unsupported server script")

// Interpreters maps a script extension, without the leading dot, to the
// command that runs it.
type Interpreters map[string]string

// DefaultInterpreters runs Python and Node.js servers.
func DefaultInterpreters() Interpreters {
	return Interpreters{
		"py": "python",
		"js": "node",
	}
}

// ServerConfig defines how to start an MCP server subprocess.
type ServerConfig struct {
	Command string
	Args    []string
	Env     []string
}

// Resolve picks the interpreter for scriptPath by its extension, matched
// case-sensitively. It does not touch the filesystem.
func (i Interpreters) Resolve(scriptPath string) (ServerConfig, error) {
	ext := strings.TrimPrefix(filepath.Ext(scriptPath), ".")
	command, ok := i[ext]
	if ext == "" || !ok || command == "" {
		return ServerConfig{}, fmt.Errorf("%w: %q must be one of %s",
			ErrUnsupportedScript, scriptPath, i.extensions())
	}

	return ServerConfig{
		Command: command,
		Args:    []string{scriptPath},
	}, nil
}

func (i Interpreters) extensions() string {
	exts := make([]string, 0, len(i))
	for ext := range i {
		exts = append(exts, "."+ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// Launch starts the server subprocess described by cfg. The returned client
// still needs Connect.
func Launch(cfg ServerConfig) (*Client, error) {
	// Verify command exists before spawning to avoid mcp-go nil reader panic
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return nil, fmt.Errorf("MCP server command not found: %w", err)
	}

	env := os.Environ()
	env = append(env, cfg.Env...)

	return NewClient(cfg.Command, env, cfg.Args...)
}
