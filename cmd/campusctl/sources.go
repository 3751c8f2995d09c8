package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/spf13/cobra"
)

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.service.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading stats: %w", err)
			}
			if c.jsonOutput {
				return printJSON(cmd, stats)
			}
			w := out(cmd)
			fmt.Fprintf(w, "Collection: %s\n", stats.Collection)
			fmt.Fprintf(w, "Status:     %s\n", stats.Status)
			fmt.Fprintf(w, "Chunks:     %d\n", stats.DocumentCount)
			fmt.Fprintf(w, "Sources:    %d\n", stats.SourceCount)
			return nil
		},
	}
}

func (c *cli) sourcesCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List indexed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := c.service.ListSources(cmd.Context(), offset, limit)
			if err != nil {
				return fmt.Errorf("listing sources: %w", err)
			}
			if c.jsonOutput {
				return printJSON(cmd, page)
			}
			w := out(cmd)
			if len(page.Sources) == 0 {
				fmt.Fprintln(w, "No sources indexed.")
				return nil
			}
			for _, s := range page.Sources {
				fmt.Fprintf(w, "%-6s %4d  %s\n", s.Origin, s.ChunkCount, s.SourceID)
			}
			fmt.Fprintf(w, "\n%d of %d source(s)", len(page.Sources), page.Total)
			if page.HasMore {
				fmt.Fprintf(w, ", next page: --offset %d", offset+len(page.Sources))
			}
			fmt.Fprintln(w)
			return nil
		},
	}
	pageFlags(cmd, &offset, &limit)
	return cmd
}

func (c *cli) sourceCmd() *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "source <id>",
		Short: "Print the chunks of one source in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := c.service.GetSource(cmd.Context(), args[0], offset, limit)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if c.jsonOutput {
				return printJSON(cmd, page)
			}
			w := out(cmd)
			for _, chunk := range page.Chunks {
				fmt.Fprintf(w, "--- chunk %d/%d\n%s\n\n", chunk.ChunkIndex+1, chunk.TotalChunks, chunk.Text)
			}
			fmt.Fprintf(w, "%d of %d chunk(s)\n", len(page.Chunks), page.Total)
			return nil
		},
	}
	pageFlags(cmd, &offset, &limit)
	return cmd
}

func (c *cli) purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <id>",
		Short: "Remove a source and all its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := c.service.DeleteSource(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("purging %s: %w", args[0], err)
			}
			fmt.Fprintf(out(cmd), "Removed %d chunk(s) of %s\n", removed, args[0])
			return nil
		},
	}
}

func (c *cli) repairCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Drop and recreate the vector collection",
		Long: `Drops the collection and creates it empty with the configured dimension.
Every document has to be crawled or uploaded again afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("repair deletes every indexed chunk, run again with --yes")
			}
			if err := c.service.RepairIndex(cmd.Context()); err != nil {
				return fmt.Errorf("repair failed: %w", err)
			}
			fmt.Fprintln(out(cmd), "Index recreated, ingest the documents again")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the collection can be dropped")
	return cmd
}

func (c *cli) contactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List contact requests captured by the assistant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, err := c.service.Contacts(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing contacts: %w", err)
			}
			if c.jsonOutput {
				return printJSON(cmd, contacts)
			}
			w := out(cmd)
			if len(contacts) == 0 {
				fmt.Fprintln(w, "No contact requests.")
				return nil
			}
			for _, contact := range contacts {
				reach := strings.TrimSpace(strings.Join([]string{contact.Email, contact.Phone}, " "))
				fmt.Fprintf(w, "%s  %s <%s>", contact.Timestamp.Format("2006-01-02 15:04"), contact.Name, reach)
				if contact.Interest != "" {
					fmt.Fprintf(w, "  %s", contact.Interest)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func pageFlags(cmd *cobra.Command, offset, limit *int) {
	cmd.Flags().IntVar(offset, "offset", 0, "items to skip")
	cmd.Flags().IntVar(limit, "limit", config.DefaultPageLimit, "page size, at most 100")
}
