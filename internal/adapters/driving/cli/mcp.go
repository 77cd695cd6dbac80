package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.
The server answers for a single tenant, set with --tenant or VERITAS_TENANT.

By default, the server communicates over stdio using JSON-RPC. Use --port to
start an HTTP server instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  veritas mcp serve --tenant acme

  # HTTP mode (for MCP Inspector, remote access)
  veritas mcp serve --tenant acme --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "veritas": {
        "command": "/path/to/veritas",
        "args": ["mcp", "serve", "--tenant", "acme"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if retrievalService == nil || answerService == nil {
		return errors.New("answer services not configured")
	}
	tenant, err := resolveTenant()
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Answer:    answerService,
		Indexing:  indexingService,
	}

	server, err := mcp.NewServer(ports, tenant)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(commandContext(cmd), addr)
	}

	return server.Run(commandContext(cmd))
}
