// Package config handles Callisto configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/callisto/config.yaml, /etc/callisto/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "callisto", "config.yaml"))
	}

	paths = append(paths, "/etc/callisto/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Callisto configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Smithery  SmitheryConfig  `yaml:"smithery"`
	Ingest    IngestConfig    `yaml:"ingest"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`

	// McpConfigFile and SetupConfigFile override the default JSON file
	// locations (mcp-config.json and setup-config.json in DataDir).
	McpConfigFile   string `yaml:"mcp_config_file"`
	SetupConfigFile string `yaml:"setup_config_file"`

	// RequestTimeoutSec bounds every model call and tool dispatch.
	// Zero means the default of 15 seconds.
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// SmitheryConfig defines Smithery gateway settings for remote MCP servers.
type SmitheryConfig struct {
	APIKey string `yaml:"api_key"`
}

// IngestConfig defines the transcript ingest WebSocket server.
type IngestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`    // Default: 8733
}

// Load reads and parses the config file at path, applying defaults
// and environment fallbacks for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("anthropic.api_key is required (or set ANTHROPIC_API_KEY)")
	}

	return &cfg, nil
}

// applyDefaults fills in zero values and pulls secrets from the
// environment when the config file omits them.
func (c *Config) applyDefaults() {
	if c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Smithery.APIKey == "" {
		c.Smithery.APIKey = os.Getenv("SMITHERY_API_KEY")
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-3-haiku-20240307"
	}
	if c.Anthropic.MaxTokens <= 0 {
		c.Anthropic.MaxTokens = 2000
	}
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Ingest.Port == 0 {
		c.Ingest.Port = 8733
	}
	if c.McpConfigFile == "" {
		c.McpConfigFile = filepath.Join(c.DataDir, "mcp-config.json")
	}
	if c.SetupConfigFile == "" {
		c.SetupConfigFile = filepath.Join(c.DataDir, "setup-config.json")
	}
}

// RequestTimeout returns the configured per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// HistoryFile returns the conversation history path under DataDir.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.DataDir, "chat_history.json")
}

// EntityDBFile returns the meeting entity database path under DataDir.
func (c *Config) EntityDBFile() string {
	return filepath.Join(c.DataDir, "entities.db")
}
