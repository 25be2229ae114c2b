// Package defaults provides embedded copies of default configuration
// files for the callisto init subcommand.
package defaults

import _ "embed"

//go:embed config.example.yaml
var ConfigYAML []byte

//go:embed mcp-config.example.json
var McpConfigJSON []byte

//go:embed setup-config.example.json
var SetupConfigJSON []byte
