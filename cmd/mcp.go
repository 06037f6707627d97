package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/upstream/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agent clients query tracked repositories, commits, triage
verdicts, and record review decisions. Configure with:

  {
    "mcpServers": {
      "upstream": { "command": "upstream", "args": ["mcp"] }
    }
  }

Available tools: upstream_list_repos, upstream_list_commits,
upstream_get_triage, upstream_set_status, upstream_buckets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(s)
		return srv.ServeStdio(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
