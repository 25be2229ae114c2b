package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/callistohq/callisto/internal/config"
	"github.com/callistohq/callisto/internal/mcp"
	"github.com/callistohq/callisto/internal/placeholder"
)

// Connect loads the server and setup configuration, connects to every
// configured tool server concurrently, and registers the discovered
// tools. A server that fails to connect or hand back its tool list is
// logged and skipped; the session starts with whatever subset
// succeeded, down to none. Connect returns an error only when the
// configuration itself cannot be loaded.
func (s *Session) Connect(ctx context.Context) error {
	mcpCfg, err := config.LoadMcpConfig(s.cfg.McpConfigFile)
	if err != nil {
		return fmt.Errorf("load server config: %w", err)
	}

	setup, err := config.LoadSetupConfig(s.cfg.SetupConfigFile)
	if err != nil {
		return fmt.Errorf("load setup config: %w", err)
	}

	resolver := placeholder.NewSetupResolver(setup, s.cfg.DataDir, s.logger)

	if err := s.history.Load(); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	var wg sync.WaitGroup
	for name, entry := range mcpCfg.McpServers {
		wg.Add(1)
		go func(name string, entry config.McpServerEntry) {
			defer wg.Done()
			if err := s.connectServer(ctx, name, entry, setup, resolver); err != nil {
				s.logger.Error("server connection failed", "server", name, "error", err)
			}
		}(name, entry)
	}
	wg.Wait()

	s.mu.Lock()
	connected := len(s.servers)
	s.mu.Unlock()

	if connected == 0 && len(mcpCfg.McpServers) > 0 {
		s.logger.Warn("no tool servers reachable, starting without tools",
			"configured", len(mcpCfg.McpServers))
	}

	s.logger.Info("server connections established",
		"connected", connected,
		"configured", len(mcpCfg.McpServers),
		"tools", s.registry.Len(),
		"confirmation_gated", s.confirmationGatedCount())
	return nil
}

// connectServer builds the transport for one configured server,
// completes the protocol handshake, and registers its tools.
func (s *Session) connectServer(ctx context.Context, name string, entry config.McpServerEntry, setup *config.SetupConfig, resolver placeholder.Resolver) error {
	var transport mcp.Transport

	if entry.IsStdio() {
		env := make([]string, 0, len(entry.Env))
		for k, v := range entry.Env {
			env = append(env, k+"="+substituteString(v, resolver, s.logger))
		}
		transport = mcp.NewStdioTransport(mcp.StdioConfig{
			Command: entry.Command,
			Args:    entry.Args,
			Env:     env,
			Logger:  s.logger.With("server", name),
		})
	} else {
		resolved, _ := placeholder.Substitute(entry.Smithery.Config, resolver, s.logger).(map[string]any)
		merged := make(map[string]any, len(resolved))
		for k, v := range resolved {
			merged[k] = v
		}
		// Setup values take precedence over the static server config.
		for k, v := range setup.ConnectionContext() {
			merged[k] = v
		}

		apiKey := substituteString(entry.Smithery.APIKey, resolver, s.logger)
		url, err := mcp.SmitheryURL(entry.Smithery.URL, apiKey, merged)
		if err != nil {
			return fmt.Errorf("build server url: %w", err)
		}
		transport = mcp.NewHTTPTransport(mcp.HTTPConfig{
			URL:    url,
			Logger: s.logger.With("server", name),
		})
	}

	client := mcp.NewClient(name, transport, s.logger)

	initCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout())
	defer cancel()
	if err := client.Initialize(initCtx); err != nil {
		_ = client.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	tools, err := s.registry.DiscoverTools(initCtx, name, client)
	if err != nil {
		_ = client.Close()
		return err
	}

	s.mu.Lock()
	s.servers[name] = client
	s.mu.Unlock()

	s.logger.Info("server connected", "server", name, "tools", len(tools))
	return nil
}

// substituteString resolves a single string value, which passes through
// unchanged unless it is exactly one placeholder expression.
func substituteString(v string, resolver placeholder.Resolver, logger *slog.Logger) string {
	out, _ := placeholder.Substitute(v, resolver, logger).(string)
	return out
}
