package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/callistohq/callisto/internal/defaults"
)

// runInit initializes a Callisto working directory with default files.
// Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Callisto workspace in %s\n", dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files := []struct {
		name    string
		content []byte
		mode    os.FileMode
	}{
		// Config files carry credentials, so keep them private.
		{"config.yaml", defaults.ConfigYAML, 0o600},
		{"mcp-config.json", defaults.McpConfigJSON, 0o600},
		{"setup-config.json", defaults.SetupConfigJSON, 0o600},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeIfMissing(path, f.content, f.mode); err != nil {
			return err
		}
		fmt.Fprintf(w, "  ✓ %s\n", path)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Edit config.yaml and mcp-config.json, then run 'callisto chat'.")
	return nil
}

// writeIfMissing writes content to path only if the file does not
// already exist, so init never clobbers user customizations.
func writeIfMissing(path string, content []byte, mode os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, content, mode)
}
