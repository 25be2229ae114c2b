// Package mcp implements MCP (Model Context Protocol) client support,
// allowing Callisto to connect to external tool servers and route the
// orchestration loop's tool calls to them.
//
// MCP uses JSON-RPC 2.0 over two transports: stdio (subprocess) and
// streamable HTTP (used for Smithery-hosted servers, whose declarative
// config is base64-encoded into the connection URL). The client
// discovers tools via tools/list and invokes them via tools/call.
//
// This implementation covers the client/host side only — Callisto does
// not act as an MCP server.
package mcp
