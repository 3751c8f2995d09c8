package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akolanti/CampusRAG/internal/bootstrap"
	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/rag"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/spf13/cobra"
)

// cli holds what every subcommand shares. service is set up lazily from the config
// unless it was handed in.
type cli struct {
	configPath string
	jsonOutput bool

	settings *config.Settings
	service  rag.Service
	app      *bootstrap.App
}

func newRootCmd(service rag.Service) *cobra.Command {
	c := &cli{service: service}

	root := &cobra.Command{
		Use:   "campusctl",
		Short: "Manage and query the CampusRAG knowledge base",
		Long: `campusctl talks to the same index, stores and models as the API server.

It crawls and uploads documents, searches and chats from the terminal,
and serves the knowledge base as MCP tools.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.connect,
		PersistentPostRun: func(cmd *cobra.Command, args []string) { c.close() },
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default ./config/config.yaml)")
	root.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		c.crawlCmd(),
		c.ingestCmd(),
		c.searchCmd(),
		c.chatCmd(),
		c.statsCmd(),
		c.sourcesCmd(),
		c.sourceCmd(),
		c.purgeCmd(),
		c.repairCmd(),
		c.contactsCmd(),
		c.mcpCmd(),
	)
	return root
}

func (c *cli) connect(cmd *cobra.Command, _ []string) error {
	if c.service != nil {
		return nil
	}
	settings, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	// stdout carries results and the MCP stdio stream
	logger_i.InitWithWriter(os.Stderr, logger_i.ParseLevel(settings.Log.Level), settings.Log.JSON)

	app, err := bootstrap.New(cmd.Context(), settings)
	if err != nil {
		return fmt.Errorf("starting the knowledge base: %w", err)
	}
	c.settings = settings
	c.app = app
	c.service = app.Service
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *cli) baseURL() string {
	if c.settings != nil && c.settings.Crawler.BaseURL != "" {
		return c.settings.Crawler.BaseURL
	}
	return config.DefaultBaseURL
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(out(cmd))
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
