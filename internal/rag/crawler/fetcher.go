package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/internal/customHttpClient"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
)

// Page is the raw html of one fetched URL. URL is the final URL after redirects.
type Page struct {
	URL    string
	Status int
	HTML   string
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

type HTTPStatusError struct {
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Status)
}

// StaticFetcher does a plain GET, no script execution.
type StaticFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewStaticFetcher(client *http.Client, userAgent string) *StaticFetcher {
	if client == nil {
		client = customHttpClient.NewClient(0)
	}
	if userAgent == "" {
		userAgent = config.CrawlUserAgent
	}
	return &StaticFetcher{client: client, userAgent: userAgent, maxBytes: config.MaxPageBytes}
}

func (f *StaticFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "fr,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Page{URL: url, Status: resp.StatusCode}, &HTTPStatusError{Status: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "" && !strings.Contains(mediaType, "html") && !strings.HasPrefix(mediaType, "text/") {
			return Page{URL: url, Status: resp.StatusCode}, fmt.Errorf("unsupported content type %q", mediaType)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return Page{}, err
	}
	return Page{URL: resp.Request.URL.String(), Status: resp.StatusCode, HTML: string(body)}, nil
}

// FallbackFetcher retries the primary fetcher and then tries the fallback once.
// Client errors (4xx) are final, retrying them does not help.
// When ctx has a deadline, the last fallbackReserve of it belongs to the fallback:
// primary attempts are shortened or skipped so a hung renderer cannot use it up.
type FallbackFetcher struct {
	primary         Fetcher
	fallback        Fetcher
	retries         int
	backoff         time.Duration
	attemptTimeout  time.Duration
	fallbackReserve time.Duration
	logger          *logger_i.Logger
}

func NewFallbackFetcher(primary, fallback Fetcher, retries int) *FallbackFetcher {
	if retries < 0 {
		retries = 0
	}
	return &FallbackFetcher{
		primary:         primary,
		fallback:        fallback,
		retries:         retries,
		backoff:         config.FetchRetryBackoff,
		attemptTimeout:  config.RenderAttemptTimeout,
		fallbackReserve: config.FallbackFetchReserve,
		logger:          logger_i.NewLogger("FallbackFetcher"),
	}
}

func (f *FallbackFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		timeout, ok := f.attemptBudget(ctx)
		if !ok {
			if lastErr == nil {
				lastErr = context.DeadlineExceeded
			}
			f.logger.Debug("No time left for the primary fetcher", "url", url, "attempt", attempt+1)
			break
		}
		page, err := f.attempt(ctx, url, timeout)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if isFinal(err) || ctx.Err() != nil {
			return Page{}, err
		}
		f.logger.Debug("Primary fetch failed", "url", url, "attempt", attempt+1, "error", err)
		if attempt < f.retries {
			select {
			case <-ctx.Done():
				return Page{}, ctx.Err()
			case <-time.After(f.backoff):
			}
		}
	}

	if f.fallback == nil {
		return Page{}, lastErr
	}
	f.logger.Debug("Using fallback fetcher", "url", url, "error", lastErr)
	page, err := f.fallback.Fetch(ctx, url)
	if err != nil {
		return Page{}, errors.Join(lastErr, err)
	}
	return page, nil
}

// attemptBudget returns the timeout of the next primary attempt, zero meaning none.
// It reports false once only the fallback reserve is left.
func (f *FallbackFetcher) attemptBudget(ctx context.Context) (time.Duration, bool) {
	timeout := f.attemptTimeout
	deadline, ok := ctx.Deadline()
	if !ok || f.fallback == nil {
		return timeout, true
	}
	left := time.Until(deadline) - f.fallbackReserve
	if left <= 0 {
		return 0, false
	}
	if timeout <= 0 || left < timeout {
		timeout = left
	}
	return timeout, true
}

func (f *FallbackFetcher) attempt(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	if timeout <= 0 {
		return f.primary.Fetch(ctx, url)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.primary.Fetch(attemptCtx, url)
}

func isFinal(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.Status < http.StatusInternalServerError && statusErr.Status != http.StatusTooManyRequests
}
