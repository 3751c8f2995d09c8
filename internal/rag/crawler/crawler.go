package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/domain/commonModels"
	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/akolanti/CampusRAG/internal/metrics"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	Documents []commonModels.Document
	Failures  []*ragErrors.FetchError
	// Skipped holds seeds removed by exclusion rules before any fetch.
	Skipped []string
}

type Crawler struct {
	fetcher          Fetcher
	fetchTimeout     time.Duration
	minContentLength int
	maxImages        int
	logger           *logger_i.Logger
}

type Option func(*Crawler)

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithMinContentLength(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.minContentLength = n
		}
	}
}

func WithMaxImages(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.maxImages = n
		}
	}
}

func New(fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:          fetcher,
		fetchTimeout:     config.DefaultFetchTimeout,
		minContentLength: config.MinPageContentLength,
		maxImages:        config.MaxImagesPerPage,
		logger:           logger_i.NewLogger("Crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches every seed that survives exclusion with at most maxConcurrent fetches in flight.
// Failed fetches are reported in Result.Failures; they never cancel the others and never
// turn into a returned error. The error is only set for invalid patterns or a cancelled ctx.
func (c *Crawler) Crawl(ctx context.Context, seeds []string, exclude []string, maxConcurrent int) (Result, error) {
	log := logger_i.FromContext(ctx, "Crawler")

	patterns, err := CompilePatterns(exclude)
	if err != nil {
		return Result{}, err
	}
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxConcurrentFetches
	}

	targets, skipped := FilterSeeds(seeds, patterns)
	for range skipped {
		metrics.CountFetch("excluded")
	}
	log.Info("Starting crawl", "seeds", len(seeds), "toFetch", len(targets), "excluded", len(skipped), "maxConcurrent", maxConcurrent)

	docs := make([]*commonModels.Document, len(targets))
	failures := make([]*ragErrors.FetchError, len(targets))

	var g errgroup.Group
	g.SetLimit(maxConcurrent)
	for i, target := range targets {
		g.Go(func() error {
			doc, ferr := c.fetchOne(ctx, target)
			if ferr != nil {
				failures[i] = ferr
				return nil
			}
			docs[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	result := Result{Skipped: skipped}
	for i := range targets {
		if docs[i] != nil {
			result.Documents = append(result.Documents, *docs[i])
		}
		if failures[i] != nil {
			result.Failures = append(result.Failures, failures[i])
		}
	}

	log.Info("Crawl finished", "documents", len(result.Documents), "failures", len(result.Failures))
	return result, ctx.Err()
}

// Fetch runs a single fetch under the crawler timeout and returns the raw page.
func (c *Crawler) Fetch(ctx context.Context, target string) (Page, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	return c.fetcher.Fetch(fetchCtx, target)
}

func (c *Crawler) fetchOne(ctx context.Context, target string) (commonModels.Document, *ragErrors.FetchError) {
	log := logger_i.FromContext(ctx, "Crawler").With("url", target)
	if err := ctx.Err(); err != nil {
		return commonModels.Document{}, &ragErrors.FetchError{URL: target, Err: err}
	}

	start := time.Now()
	page, err := c.Fetch(ctx, target)
	metrics.CaptureExecutionMetrics("crawl_fetch", time.Since(start))
	if err != nil {
		metrics.CountFetch("error")
		ferr := &ragErrors.FetchError{URL: target, Err: err}
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			ferr.Status = statusErr.Status
		}
		log.Warn("Fetch failed", "error", err)
		return commonModels.Document{}, ferr
	}

	base := page.URL
	if base == "" {
		base = target
	}
	doc := Extract(base, page.HTML, c.maxImages)
	doc.SourceID = target

	if utf8.RuneCountInString(doc.Text) < c.minContentLength {
		metrics.CountFetch("error")
		log.Warn("Page skipped, not enough content", "chars", utf8.RuneCountInString(doc.Text))
		return commonModels.Document{}, &ragErrors.FetchError{URL: target, Status: page.Status, Err: ragErrors.ErrThinContent}
	}

	metrics.CountFetch("ok")
	log.Debug("Fetched page", "title", doc.Title, "chars", len(doc.Text), "images", len(doc.Images))
	return doc, nil
}

// CompilePatterns compiles exclusion regexes. A nil slice means the default PDF exclusion,
// an empty non-nil slice disables exclusion patterns.
func CompilePatterns(exclude []string) ([]*regexp.Regexp, error) {
	if exclude == nil {
		exclude = []string{config.DefaultExcludePattern}
	}
	patterns := make([]*regexp.Regexp, 0, len(exclude))
	for _, p := range exclude {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// FilterSeeds drops duplicates, excluded URLs and sitemap/XML resources, keeping seed order.
func FilterSeeds(seeds []string, patterns []*regexp.Regexp) (fetch []string, skipped []string) {
	seen := make(map[string]bool, len(seeds))
	for _, raw := range seeds {
		seed := strings.TrimSpace(raw)
		if seed == "" || seen[seed] {
			continue
		}
		seen[seed] = true

		if isExcluded(seed, patterns) || IsSitemapOrXML(seed) {
			skipped = append(skipped, seed)
			continue
		}
		fetch = append(fetch, seed)
	}
	return fetch, skipped
}

func isExcluded(seed string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(seed) {
			return true
		}
	}
	return false
}

func IsSitemapOrXML(raw string) bool {
	path := raw
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
	}
	path = strings.ToLower(path)
	return strings.HasSuffix(path, ".xml") ||
		strings.HasSuffix(path, ".xml.gz") ||
		strings.Contains(path, "sitemap")
}
