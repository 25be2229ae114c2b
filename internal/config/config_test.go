package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
anthropic:
  api_key: sk-test
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Anthropic.Model == "" {
		t.Error("expected default model")
	}
	if cfg.Anthropic.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", cfg.Anthropic.MaxTokens)
	}
	if cfg.DataDir != "." {
		t.Errorf("DataDir = %q, want .", cfg.DataDir)
	}
	if cfg.Ingest.Port != 8733 {
		t.Errorf("Ingest.Port = %d, want 8733", cfg.Ingest.Port)
	}
	if cfg.McpConfigFile != filepath.Join(".", "mcp-config.json") {
		t.Errorf("McpConfigFile = %q", cfg.McpConfigFile)
	}
	if cfg.RequestTimeout() != 15*time.Second {
		t.Errorf("RequestTimeout = %v, want 15s", cfg.RequestTimeout())
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	path := writeTemp(t, "config.yaml", "data_dir: /tmp/callisto\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestLoadEnvFallbacks(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	t.Setenv("SMITHERY_API_KEY", "smithery-from-env")
	path := writeTemp(t, "config.yaml", "log_level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-from-env" {
		t.Errorf("Anthropic.APIKey = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Smithery.APIKey != "smithery-from-env" {
		t.Errorf("Smithery.APIKey = %q", cfg.Smithery.APIKey)
	}
}

func TestLoadExplicitTimeout(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
anthropic:
  api_key: sk-test
request_timeout_sec: 45
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RequestTimeout() != 45*time.Second {
		t.Errorf("RequestTimeout = %v, want 45s", cfg.RequestTimeout())
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestLoadMcpConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name: "valid stdio and smithery",
			content: `{"mcpServers": {
				"gsuite": {"command": "uvx", "args": ["mcp-gsuite"], "env": {"ID": "${GOOGLE_CLIENT_ID}"}},
				"exa": {"smithery": {"url": "https://server.smithery.ai/exa/mcp", "apiKey": "${SMITHERY_API_KEY}", "config": {}}}
			}}`,
		},
		{
			name:    "no servers",
			content: `{"mcpServers": {}}`,
			wantErr: true,
		},
		{
			name:    "stdio missing command",
			content: `{"mcpServers": {"bad": {"args": []}}}`,
			wantErr: true,
		},
		{
			name:    "stdio missing args",
			content: `{"mcpServers": {"bad": {"command": "uvx"}}}`,
			wantErr: true,
		},
		{
			name:    "smithery missing url",
			content: `{"mcpServers": {"bad": {"smithery": {"apiKey": "k", "config": {}}}}}`,
			wantErr: true,
		},
		{
			name:    "smithery missing config",
			content: `{"mcpServers": {"bad": {"smithery": {"url": "https://x", "apiKey": "k"}}}}`,
			wantErr: true,
		},
		{
			name:    "mixed stdio and smithery fields",
			content: `{"mcpServers": {"bad": {"command": "uvx", "smithery": {"url": "https://x", "apiKey": "k", "config": {}}}}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "mcp-config.json", tt.content)
			_, err := LoadMcpConfig(path)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadMcpConfig error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMcpServerEntryIsStdio(t *testing.T) {
	stdio := McpServerEntry{Command: "uvx", Args: []string{}}
	if !stdio.IsStdio() {
		t.Error("command entry should be stdio")
	}
	remote := McpServerEntry{Smithery: &SmitheryEntry{URL: "https://x"}}
	if remote.IsStdio() {
		t.Error("smithery entry should not be stdio")
	}
}

func TestLoadSetupConfig(t *testing.T) {
	path := writeTemp(t, "setup-config.json", `{
		"userContext": {"name": "Ada", "email": "ada@example.com"},
		"slack": {"botToken": "xoxb-1", "teamId": "T1"},
		"google": {"clientId": "cid", "clientSecret": "cs", "refreshToken": "rt"}
	}`)

	cfg, err := LoadSetupConfig(path)
	if err != nil {
		t.Fatalf("LoadSetupConfig: %v", err)
	}
	if cfg.UserContext.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC default", cfg.UserContext.Timezone)
	}

	ctx := cfg.ConnectionContext()
	if ctx["clientId"] != "cid" || ctx["botToken"] != "xoxb-1" {
		t.Errorf("ConnectionContext = %v", ctx)
	}
	if ctx["email"] != "ada@example.com" {
		t.Errorf("ConnectionContext email = %v", ctx["email"])
	}
}

func TestLoadSetupConfigMalformed(t *testing.T) {
	path := writeTemp(t, "setup-config.json", "{not json")
	if _, err := LoadSetupConfig(path); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"trace", LevelTrace, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReplaceLogLevelNames(t *testing.T) {
	a := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(LevelTrace)}
	got := ReplaceLogLevelNames(nil, a)
	if got.Value.String() != "TRACE" {
		t.Errorf("trace renders as %q", got.Value.String())
	}

	b := slog.Attr{Key: slog.LevelKey, Value: slog.AnyValue(slog.LevelInfo)}
	got = ReplaceLogLevelNames(nil, b)
	if got.Value.Any().(slog.Level) != slog.LevelInfo {
		t.Error("info level should pass through unchanged")
	}
}
