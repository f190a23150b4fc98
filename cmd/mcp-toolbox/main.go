// Command mcp-toolbox provides a small MCP server for trying out mcp-chat.
//
// It offers canned weather, the current time and notes stored in a SQLite
// database.
//
// Usage:
//
//	./mcp-toolbox          # Start MCP server (stdio)
//	./mcp-toolbox --help   # Show help
//
// Environment:
//
//	TOOLBOX_DB_PATH  Path to SQLite database (default: ~/.mcp-chat/toolbox.db)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/notexe/mcp-chat/internal/toolbox"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			return
		}
	}

	dbPath := os.Getenv("TOOLBOX_DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to get home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".mcp-chat")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create config directory: %v\n", err)
			os.Exit(1)
		}
		dbPath = filepath.Join(dir, "toolbox.db")
	}

	store, err := toolbox.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}

	s := toolbox.NewServer(store)

	err = server.ServeStdio(s.MCPServer())
	store.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`MCP Toolbox Server - demo tools via MCP protocol

USAGE:
    mcp-toolbox          Start MCP server (communicates via stdio)
    mcp-toolbox --help   Show this help

ENVIRONMENT:
    TOOLBOX_DB_PATH  Path to SQLite database file
                     Default: ~/.mcp-chat/toolbox.db

TOOLS:
    get_weather   Current weather for a city (canned data)
    current_time  Current time, optionally in an IANA time zone
    add_note      Save a note (title, body, tags)
    list_notes    List notes (optional tag filter)
    delete_note   Delete a note by id

mcp-chat launches servers by script extension, so wrap the binary:
    echo 'exec /path/to/mcp-toolbox' > toolbox.sh
    mcp-chat toolbox.sh   # with launch.interpreters.sh: bash`)
}
