package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// runStdioServer serves MCP over stdin/stdout. ServeStdio installs its
// own signal handling and returns when the client closes the stream.
// Nothing may be printed to stdout here; it would corrupt the protocol
// stream.
func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		return fmt.Errorf("stdio server stopped with error: %w", err)
	}
	return nil
}
