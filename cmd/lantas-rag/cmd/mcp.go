package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lantasdev/lantas-rag/internal/index"
	"github.com/lantasdev/lantas-rag/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server for article retrieval.

The server communicates via stdio and provides three tools:
  - search_articles: Search indexed law articles by query
  - get_article: Get a specific article by ID
  - index_status: Report index size and last build time

Example:
  lantas-rag mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	provider := newProvider(cfg)
	holder := &index.Holder{}
	manager := newManager(cfg, store, provider, holder)
	manager.Restore()

	srv := mcpserver.NewServer(mcpserver.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, newEngine(cfg, holder, provider), store, holder)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return srv.ServeStdio()
}
