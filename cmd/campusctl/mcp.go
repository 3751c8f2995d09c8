package main

import (
	"fmt"

	"github.com/akolanti/CampusRAG/internal/mcpserver"
	"github.com/spf13/cobra"
)

func (c *cli) mcpCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the knowledge base as MCP tools",
		Long: `Starts a Model Context Protocol server exposing search, stats, list_sources,
get_source, chat and ingest_crawl.

Stdio is used by default. With --port the streamable HTTP transport is served instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := mcpserver.New(c.service)
			if err != nil {
				return err
			}
			if port > 0 {
				return server.RunHTTP(cmd.Context(), fmt.Sprintf(":%d", port))
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = stdio)")
	return cmd
}
