package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/spf13/cobra"
)

func (c *cli) crawlCmd() *cobra.Command {
	var (
		exclude       []string
		maxConcurrent int
		skipExisting  bool
	)
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Fetch web pages and index them",
		Long: `Fetches every url, extracts the main content and indexes it under the url.
A page indexed again replaces its previous chunks.

Without arguments the main pages of the school site are crawled.`,
		Example: `  campusctl crawl https://www.esilv.fr/admissions
  campusctl crawl --skip-existing --max-concurrent 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := commonModels.CrawlRequest{
				SeedURLs:      args,
				MaxConcurrent: maxConcurrent,
				SkipExisting:  skipExisting,
			}
			if len(req.SeedURLs) == 0 {
				req.SeedURLs = mainPages(c.baseURL())
			}
			// an explicit empty list disables the default patterns
			if cmd.Flags().Changed("exclude") {
				req.ExcludePatterns = append([]string{}, exclude...)
			}

			report, err := c.service.IngestCrawl(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("crawl failed: %w", err)
			}
			return c.printReport(cmd, report)
		},
	}
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "url regexps to skip, replaces the configured list")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "parallel fetches (default from config)")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip urls already in the index")
	return cmd
}

func (c *cli) ingestCmd() *cobra.Command {
	ingest := &cobra.Command{
		Use:   "ingest",
		Short: "Index local documents",
	}

	var name string
	file := &cobra.Command{
		Use:   "file <path>",
		Short: "Index a PDF, DOCX, TXT or MD file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docName := strings.TrimSpace(name)
			if docName == "" {
				docName = filepath.Base(args[0])
			}
			report, err := c.service.IngestUpload(cmd.Context(), args[0], docName)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", args[0], err)
			}
			return c.printReport(cmd, report)
		},
	}
	file.Flags().StringVar(&name, "name", "", "name to index the document under (default the file name)")

	ingest.AddCommand(file)
	return ingest
}

func (c *cli) printReport(cmd *cobra.Command, report commonModels.IngestReport) error {
	if c.jsonOutput {
		return printJSON(cmd, report)
	}
	w := out(cmd)
	fmt.Fprintf(w, "Indexed %d page(s), %d chunk(s)\n", report.PagesIndexed, report.ChunksIndexed)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped %d already indexed\n", len(report.Skipped))
	}
	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "%d failure(s):\n", len(report.Failures))
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  [%s] %s: %s\n", f.Stage, f.Item, f.Message)
		}
	}
	return nil
}

func mainPages(base string) []string {
	base = strings.TrimRight(base, "/")
	seeds := make([]string, 0, len(config.MainPagePaths))
	for _, path := range config.MainPagePaths {
		seeds = append(seeds, base+path)
	}
	return seeds
}
