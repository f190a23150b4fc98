// Command mcp-chat is an interactive chat client that lets a language model
// call the tools of a local MCP server.
//
// Usage:
//
//	mcp-chat [flags] <path/to/server.py|server.js>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/notexe/mcp-chat/internal/api"
	"github.com/notexe/mcp-chat/internal/chat"
	"github.com/notexe/mcp-chat/internal/config"
	"github.com/notexe/mcp-chat/internal/mcp"
	"github.com/notexe/mcp-chat/internal/repl"
	"github.com/notexe/mcp-chat/internal/ui"
	"golang.org/x/term"
)

func main() {
	configPath := flag.String("config", config.GetDefaultConfigPath(), "Path to configuration file")
	provider := flag.String("provider", "", "Provider to use (deepseek, openai, ollama)")
	modelName := flag.String("model", "", "Model name (overrides config)")
	systemPrompt := flag.String("system-prompt", "", "System prompt (overrides config)")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	logLevel := flag.String("log-level", "", "Log level: trace, debug, info, warn, error (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: text or json (overrides config)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	scriptPath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply CLI flag overrides
	if *provider != "" {
		cfg.Provider = *provider
	}
	if *modelName != "" {
		cfg.Model.Name = *modelName
	}
	if *systemPrompt != "" {
		cfg.Model.SystemPrompt = *systemPrompt
	}
	if *noColor {
		cfg.UI.ColoredOutput = false
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	cfg.ResolveAPIKey()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		if name := config.APIKeyEnv(cfg.Provider); name != "" && cfg.DeepSeek.APIKey == "" {
			fmt.Fprintf(os.Stderr, "Tip: Set %s environment variable or add it to config file\n", name)
		}
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.Log.Level) // checked by Validate
	logger := config.NewLogger(os.Stderr, level, cfg.Log.Format)

	// Resolve the interpreter before anything is spawned.
	server, err := mcp.Interpreters(cfg.Launch.Interpreters).Resolve(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger, session{
		newProvider: func() (api.Provider, error) {
			return api.NewProvider(cfg.GetProviderConfig())
		},
		launch: func() (serverClient, error) {
			logger.Info("starting MCP server", "command", server.Command, "args", server.Args)
			return mcp.Launch(server)
		},
		newReader: func(prompt string) (repl.LineReader, error) {
			return repl.NewReadline(prompt)
		},
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
	})
	if err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// serverClient is the connected MCP server as the chat session uses it.
type serverClient interface {
	chat.Catalog
	chat.Invoker
	io.Closer
	Connect(ctx context.Context) error
	ServerName() string
}

// session holds the constructors for the resources run owns.
type session struct {
	newProvider func() (api.Provider, error)
	launch      func() (serverClient, error)
	newReader   func(prompt string) (repl.LineReader, error)
	out         io.Writer
	interactive bool
}

// run owns every resource. It returns instead of exiting so that deferred
// cleanup always happens, once per resource.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, s session) error {
	provider, err := s.newProvider()
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	defer closeLogged(logger, "provider", provider)

	client, err := s.launch()
	if err != nil {
		return err
	}
	defer closeLogged(logger, "mcp server", client)

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	logger.Info("connected to MCP server", "server", client.ServerName(), "tools", len(names))

	formatter := ui.NewFormatter(cfg.UI.ColoredOutput, cfg.Provider)
	markdown, err := ui.NewMarkdownRenderer(cfg.UI.RenderMarkdown && cfg.UI.ColoredOutput)
	if err != nil {
		logger.Warn("markdown rendering disabled", "error", err)
		markdown = nil
	}

	console := repl.NewConsole(s.out, repl.ConsoleOptions{
		Formatter:  formatter,
		Markdown:   markdown,
		ShowTokens: cfg.UI.ShowTokenCount,
		Model:      cfg.Model.Name,
		ShowStatus: s.interactive,
	})

	exchange := chat.NewExchange(client, client,
		chat.NewGateway(provider, cfg.GetModelSettings()),
		chat.WithObserver(console),
		chat.WithLogger(logger),
	)

	rl, err := s.newReader(formatter.FormatPrompt())
	if err != nil {
		return fmt.Errorf("failed to setup readline: %w", err)
	}

	console.Welcome(client.ServerName(), names)
	return repl.NewREPL(exchange, rl, console, logger).Start(ctx)
}

func closeLogged(logger *slog.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn("cleanup failed", "resource", what, "error", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: mcp-chat [flags] <path_to_server_script>

Starts the MCP server script with its interpreter (.py: python, .js: node)
and opens an interactive chat. Type 'quit' to exit.

Extensions are matched case-sensitively. Other interpreters go in the
config file under launch.interpreters; a compiled server such as
mcp-toolbox runs through a wrapper script:

    echo 'exec /path/to/mcp-toolbox' > toolbox.sh
    mcp-chat toolbox.sh   # with launch.interpreters.sh: bash

Flags:
`)
	flag.PrintDefaults()
}
