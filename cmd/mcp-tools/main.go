// Command mcp-tools starts an MCP server script and lists its tools, either
// as a readable summary or as the function schemas sent to the model.
//
// Usage:
//
//	./mcp-tools [-json] [-timeout 60s] <path/to/server.py|server.js>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/notexe/mcp-chat/internal/config"
	"github.com/notexe/mcp-chat/internal/mcp"
)

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	asJSON := flag.Bool("json", false, "Print the function-tool schemas sent to the model")
	timeout := flag.Duration("timeout", 60*time.Second, "Connection timeout")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	server, err := mcp.Interpreters(cfg.Launch.Interpreters).Resolve(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(server, *timeout, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(server mcp.ServerConfig, timeout time.Duration, asJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mcp.Launch(server)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to MCP server: %w", err)
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(mcp.ToFunctionTools(tools))
	}

	fmt.Printf("Server %s: found %d tool(s)\n", client.ServerName(), len(tools))
	fmt.Println(strings.Repeat("=", 50))

	for i, tool := range tools {
		fmt.Printf("\n%d. %s\n", i+1, tool.Name)
		if tool.Description != "" {
			fmt.Printf("   Description: %s\n", tool.Description)
		}
		if len(tool.InputSchema.Properties) > 0 {
			required := make(map[string]bool, len(tool.InputSchema.Required))
			for _, name := range tool.InputSchema.Required {
				required[name] = true
			}

			names := make([]string, 0, len(tool.InputSchema.Properties))
			for name := range tool.InputSchema.Properties {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Printf("   Parameters: %d\n", len(names))
			for _, name := range names {
				if required[name] {
					fmt.Printf("     - %s (required)\n", name)
				} else {
					fmt.Printf("     - %s\n", name)
				}
			}
		}
	}

	fmt.Println()
	return nil
}

func printUsage() {
	fmt.Println("MCP Tools Lister")
	fmt.Println("================")
	fmt.Println()
	fmt.Println("Starts an MCP server script and lists the tools it offers.")
	fmt.Println()
	fmt.Println("Usage: mcp-tools [flags] <path_to_server_script>")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./mcp-tools weather_server.py")
	fmt.Println("  ./mcp-tools -json build/index.js")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
