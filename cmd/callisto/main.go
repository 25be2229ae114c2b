// Callisto is an AI meeting assistant driven by MCP tool servers.
//
// It connects to the tool servers declared in mcp-config.json, discovers
// their tools, and orchestrates an Anthropic model over them: answering
// questions, acting on live meeting transcripts, and holding outbound
// messages for explicit confirmation before anything is sent.
//
// Usage:
//
//	callisto chat             Start an interactive session
//	callisto serve            Run headless with the transcript ingest server
//	callisto ask <question>   Ask a single question (no tools, for testing)
//	callisto init [dir]       Initialize a working directory with defaults
//	callisto version          Print version and build information
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/callistohq/callisto/internal/buildinfo"
	"github.com/callistohq/callisto/internal/config"
	"github.com/callistohq/callisto/internal/entities"
	"github.com/callistohq/callisto/internal/ingest"
	"github.com/callistohq/callisto/internal/llm"
	"github.com/callistohq/callisto/internal/session"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit and os.Args out of the application logic so the full lifecycle
// can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the callisto command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which interfere with parallel tests, and the argument surface here is
// small enough that manual parsing is clearer than a CLI framework.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	// A .env file supplies secrets in development. Existing environment
	// variables always win.
	_ = godotenv.Load()

	var configPath string
	var outputFmt string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "chat":
		return runChat(ctx, stdin, stdout, configPath)
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: callisto ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Callisto - AI Meeting Assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: callisto [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  chat         Start an interactive session")
	fmt.Fprintln(w, "  serve        Run headless with the transcript ingest server")
	fmt.Fprintln(w, "  ask          Ask a single question (no tools, for testing)")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/callisto/config.yaml, /etc/callisto/config.yaml")
	return nil
}

// runAsk boots only the model client and answers one question without
// connecting any tool servers. Useful for smoke tests and debugging API
// credentials.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(stdout, cfg)

	client := llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, logger)
	answer, err := client.Query(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, answer)
	return nil
}

// runChat starts a full session and drives it from stdin. The session
// reads the confirmation vocabulary (y/yes/n/no), transcript chunks
// (SCREEN:/MIC: prefixes), and free-form queries. "clear" resets the
// conversation; "quit" exits.
func runChat(ctx context.Context, stdin io.Reader, stdout io.Writer, configPath string) error {
	sess, store, cfg, logger, err := bootSession(ctx, stdout, configPath)
	if err != nil {
		return err
	}
	defer sess.Cleanup()
	if store != nil {
		defer store.Close()
	}

	sess.Notify = func(msg string) { fmt.Fprintln(stdout, msg) }

	// Transcript ingest can run alongside the interactive loop, feeding
	// the same session.
	if cfg.Ingest.Enabled {
		srv := ingest.NewServer(cfg.Ingest.Address, cfg.Ingest.Port, sess, logger)
		go func() {
			if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ingest server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	fmt.Fprintln(stdout, "\nCallisto started.")
	fmt.Fprintf(stdout, "Connected to servers: %s (%d tools)\n", strings.Join(sess.ConnectedServers(), ", "), sess.ToolCount())
	fmt.Fprintln(stdout, "Type your queries, 'clear' to start a new conversation, or 'quit' to exit.")

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(stdout, "\nQuery: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "quit":
			return scanner.Err()
		case "clear":
			if err := sess.History().Reset(); err != nil {
				logger.Error("failed to reset history", "error", err)
			}
			fmt.Fprintln(stdout, "Conversation history cleared.")
			continue
		}

		fmt.Fprintln(stdout, sess.ProcessQuery(ctx, line))
	}
	return scanner.Err()
}

// runServe runs headless: no interactive input, just the transcript
// ingest server feeding the session until the process is signalled.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, store, cfg, logger, err := bootSession(ctx, stdout, configPath)
	if err != nil {
		return err
	}
	defer sess.Cleanup()
	if store != nil {
		defer store.Close()
	}

	if !cfg.Ingest.Enabled {
		return fmt.Errorf("serve requires ingest.enabled: true in config")
	}

	srv := ingest.NewServer(cfg.Ingest.Address, cfg.Ingest.Port, sess, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error("ingest shutdown failed", "error", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ingest server: %w", err)
		}
		return nil
	}
}

// bootSession loads configuration and brings up the model client,
// entity store, and tool-server connections shared by chat and serve.
func bootSession(ctx context.Context, stdout io.Writer, configPath string) (*session.Session, *entities.Store, *config.Config, *slog.Logger, error) {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := newLogger(stdout, cfg)
	logger.Info("starting Callisto",
		"version", buildinfo.Version,
		"commit", buildinfo.GitCommit,
		"config", cfgPath,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	store, err := entities.Open(cfg.EntityDBFile())
	if err != nil {
		// Entity persistence is best-effort; the session works without it.
		logger.Warn("entity store unavailable", "error", err)
		store = nil
	}

	model := llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, logger)
	sess := session.New(cfg, model, store, logger)

	if err := sess.Connect(ctx); err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, nil, nil, fmt.Errorf("connect: %w", err)
	}

	return sess, store, cfg, logger, nil
}

// newLogger builds the process logger at the configured level.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		level, _ = config.ParseLogLevel(cfg.LogLevel)
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty that exact path is used; otherwise
// [config.FindConfig] searches the default locations.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
