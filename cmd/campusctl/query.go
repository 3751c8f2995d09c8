package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/rag/orchestrator"
	"github.com/spf13/cobra"
)

func (c *cli) searchCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over the indexed pages and documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			passages, err := c.service.Search(cmd.Context(), query, k)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if c.jsonOutput {
				return printJSON(cmd, passages)
			}

			w := out(cmd)
			if len(passages) == 0 {
				fmt.Fprintln(w, "No results found.")
				return nil
			}
			for i, p := range passages {
				title := p.Title
				if title == "" {
					title = p.Source
				}
				fmt.Fprintf(w, "[%d] %s (%.2f)\n", i+1, title, p.Score)
				fmt.Fprintf(w, "    %s #%d\n", p.Source, p.ChunkIndex)
				fmt.Fprintf(w, "    %s\n\n", snippet(p.Content, 240))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", config.DefaultSearchK, "number of passages")
	return cmd
}

func (c *cli) chatCmd() *cobra.Command {
	var (
		model  string
		stream bool
	)
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := orchestrator.Request{Message: strings.Join(args, " "), Model: model}
			if stream && !c.jsonOutput {
				return c.streamChat(cmd, req)
			}

			resp, err := c.service.Chat(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}
			if c.jsonOutput {
				return printJSON(cmd, resp)
			}
			w := out(cmd)
			fmt.Fprintln(w, resp.Answer)
			printSources(cmd, resp.Metadata)
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "model to answer with (default from config)")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer while it is generated")
	return cmd
}

func (c *cli) streamChat(cmd *cobra.Command, req orchestrator.Request) error {
	events, err := c.service.ChatStream(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	w := out(cmd)
	var metadata orchestrator.Metadata
	for event := range events {
		switch event.Type {
		case orchestrator.EventMetadata:
			if event.Data != nil {
				metadata = *event.Data
			}
		case orchestrator.EventChunk:
			fmt.Fprint(w, event.Content)
		case orchestrator.EventError:
			fmt.Fprintln(w)
			return errors.New(event.Error)
		case orchestrator.EventDone:
			fmt.Fprintln(w)
			printSources(cmd, metadata)
		}
	}
	return nil
}

func printSources(cmd *cobra.Command, metadata orchestrator.Metadata) {
	w := out(cmd)
	if len(metadata.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		seen := map[string]bool{}
		for _, p := range metadata.Sources {
			if seen[p.Source] {
				continue
			}
			seen[p.Source] = true
			fmt.Fprintf(w, "  - %s\n", p.Source)
		}
	}
	if len(metadata.Unavailable) > 0 {
		fmt.Fprintf(w, "\nUnavailable: %v\n", metadata.Unavailable)
	}
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
