package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// McpConfig is the tool-server connection file (mcp-config.json).
// Each entry is either a stdio spec (command + args) or a Smithery
// remote spec (url + apiKey + config).
type McpConfig struct {
	McpServers map[string]McpServerEntry `json:"mcpServers"`
}

// McpServerEntry is a single server entry in mcp-config.json.
type McpServerEntry struct {
	Command  string            `json:"command,omitempty"`
	Args     []string          `json:"args,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Smithery *SmitheryEntry    `json:"smithery,omitempty"`
}

// SmitheryEntry describes a remote streamable-HTTP MCP server reached
// through the Smithery gateway. Config values may contain ${...}
// placeholder references resolved at connection time.
type SmitheryEntry struct {
	URL    string         `json:"url"`
	APIKey string         `json:"apiKey"`
	Config map[string]any `json:"config"`
}

// IsStdio reports whether the entry describes a local subprocess server.
func (e McpServerEntry) IsStdio() bool {
	return e.Smithery == nil
}

// LoadMcpConfig reads and validates mcp-config.json. Validation failures
// are fatal at startup: every entry must be a complete stdio spec or a
// complete remote spec.
func LoadMcpConfig(path string) (*McpConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mcp config: %w", err)
	}

	var cfg McpConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if len(cfg.McpServers) == 0 {
		return nil, fmt.Errorf("%s: no servers defined under mcpServers", path)
	}

	for name, entry := range cfg.McpServers {
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("%s: server %q: %w", path, name, err)
		}
	}

	return &cfg, nil
}

func (e McpServerEntry) validate() error {
	if e.Smithery != nil {
		if e.Command != "" || len(e.Args) > 0 {
			return fmt.Errorf("entry mixes smithery and stdio fields")
		}
		if e.Smithery.URL == "" {
			return fmt.Errorf("smithery entry missing url")
		}
		if e.Smithery.APIKey == "" {
			return fmt.Errorf("smithery entry missing apiKey")
		}
		if e.Smithery.Config == nil {
			return fmt.Errorf("smithery entry missing config")
		}
		return nil
	}

	if e.Command == "" {
		return fmt.Errorf("stdio entry missing command")
	}
	if e.Args == nil {
		return fmt.Errorf("stdio entry missing args (use [] for none)")
	}
	return nil
}
