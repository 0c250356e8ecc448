// Package cmd provides the command-line interface for fastmcp-github-oauth.
//
// This package implements a Cobra-based CLI with multiple subcommands:
//   - serve: Starts the MCP server (default behavior when no subcommand is provided)
//   - version: Displays the application version
//   - self-update: Updates the binary to the latest version from GitHub releases
//
// The CLI maintains backwards compatibility by running the serve command when
// no subcommand is specified, preserving the original behavior of the application.
//
// Command Structure:
//
//	fastmcp-github-oauth [flags]                 # Starts the MCP server (default)
//	fastmcp-github-oauth serve [flags]           # Explicitly starts the MCP server
//	fastmcp-github-oauth version                 # Shows version information
//	fastmcp-github-oauth self-update             # Updates to latest release
//	fastmcp-github-oauth help [command]          # Shows help information
//
// The serve command supports multiple transport options:
//   - streamable-http: Streamable HTTP with GitHub OAuth (default) - for production
//   - sse: Server-Sent Events over HTTP - for web-based clients in development
//   - stdio: Standard input/output - for command-line integration in development
//
// Transport Configuration Examples:
//
//	fastmcp-github-oauth serve                                       # OAuth HTTP on 0.0.0.0:8000
//	fastmcp-github-oauth serve --http-addr :9000 --base-url https://mcp.example.com
//	fastmcp-github-oauth serve --transport sse --http-addr :8080 --sse-endpoint /sse
//	fastmcp-github-oauth serve --transport stdio
//
// The serve command reads the GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET, BASE_URL,
// HOST, and PORT environment variables when the corresponding flags are not set,
// and fails fast when the GitHub OAuth credentials are missing.
package cmd
