package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/CampusRAG/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const pageBody = `<html><head><title>%s</title></head><body><main>
<p>%s is a page of the school website with enough text to be indexed by the crawler and the chunker.</p>
<p>It talks about programmes, admissions and student life on the campus of La Défense.</p>
</main></body></html>`

type fakeFetcher struct {
	OnFetch func(ctx context.Context, url string) (Page, error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	return f.OnFetch(ctx, url)
}

func okPage(url string) (Page, error) {
	return Page{URL: url, Status: http.StatusOK, HTML: fmt.Sprintf(pageBody, url, url)}, nil
}

func TestCrawl_PartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, pageBody, "First", "First")
	})
	mux.HandleFunc("/ok2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, pageBody, "Second", "Second")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	unreachable := dead.URL + "/gone"
	dead.Close()

	c := New(NewStaticFetcher(server.Client(), ""), WithFetchTimeout(5*time.Second))
	result, err := c.Crawl(context.Background(), []string{server.URL + "/ok1", unreachable, server.URL + "/ok2"}, nil, 2)

	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, server.URL+"/ok1", result.Documents[0].SourceID)
	assert.Equal(t, server.URL+"/ok2", result.Documents[1].SourceID)
	assert.Contains(t, result.Documents[0].Text, "enough text")

	require.Len(t, result.Failures, 1)
	assert.Equal(t, unreachable, result.Failures[0].URL)
}

func TestCrawl_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(NewStaticFetcher(server.Client(), ""))
	result, err := c.Crawl(context.Background(), []string{server.URL + "/page"}, nil, 1)
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, http.StatusServiceUnavailable, result.Failures[0].Status)
}

func TestCrawl_Exclusion(t *testing.T) {
	patterns, err := CompilePatterns(nil)
	require.NoError(t, err)

	fetch, skipped := FilterSeeds([]string{"http://x/doc.pdf", "http://x/page"}, patterns)
	assert.Equal(t, []string{"http://x/page"}, fetch)
	assert.Equal(t, []string{"http://x/doc.pdf"}, skipped)

	fetcher := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) { return okPage(url) }}
	result, err := New(fetcher).Crawl(context.Background(),
		[]string{"http://x/doc.pdf", "http://x/page", "http://x/sitemap.xml", "http://x/page"}, nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://x/page"}, fetcher.calls)
	assert.Len(t, result.Documents, 1)
	assert.ElementsMatch(t, []string{"http://x/doc.pdf", "http://x/sitemap.xml"}, result.Skipped)
}

func TestCompilePatterns(t *testing.T) {
	patterns, err := CompilePatterns([]string{})
	require.NoError(t, err)
	assert.Empty(t, patterns)

	_, err = CompilePatterns([]string{"([a-z"})
	assert.Error(t, err)

	_, err = New(&fakeFetcher{}).Crawl(context.Background(), []string{"http://x"}, []string{"("}, 1)
	assert.Error(t, err)
}

func TestIsSitemapOrXML(t *testing.T) {
	assert.True(t, IsSitemapOrXML("https://www.esilv.fr/sitemap_index.xml"))
	assert.True(t, IsSitemapOrXML("https://www.esilv.fr/page-sitemap/"))
	assert.True(t, IsSitemapOrXML("https://www.esilv.fr/feed.XML"))
	assert.False(t, IsSitemapOrXML("https://www.esilv.fr/formations?format=xml"))
}

func TestCrawl_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak atomic.Int32
	fetcher := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return okPage(url)
	}}

	seeds := make([]string, 12)
	for i := range seeds {
		seeds[i] = fmt.Sprintf("http://x/page-%d", i)
	}
	result, err := New(fetcher).Crawl(context.Background(), seeds, []string{}, 3)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, seeds[0], result.Documents[0].SourceID)
}

func TestCrawl_ThinContent(t *testing.T) {
	fetcher := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		return Page{URL: url, Status: http.StatusOK, HTML: "<html><body><p>tiny</p></body></html>"}, nil
	}}
	result, err := New(fetcher).Crawl(context.Background(), []string{"http://x/thin"}, nil, 1)
	require.NoError(t, err)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0], ragErrors.ErrThinContent)
}

func TestCrawl_PerFetchTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	fetcher := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		if strings.HasSuffix(url, "slow") {
			<-ctx.Done()
			return Page{}, ctx.Err()
		}
		return okPage(url)
	}}
	c := New(fetcher, WithFetchTimeout(30*time.Millisecond))
	result, err := c.Crawl(context.Background(), []string{"http://x/slow", "http://x/fast"}, nil, 2)
	require.NoError(t, err)
	assert.Len(t, result.Documents, 1)
	require.Len(t, result.Failures, 1)
	assert.ErrorIs(t, result.Failures[0], context.DeadlineExceeded)
}

func TestCrawl_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fetcher := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) { return okPage(url) }}

	_, err := New(fetcher).Crawl(ctx, []string{"http://x/a"}, nil, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackFetcher_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	primary := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		attempts++
		if attempts < 3 {
			return Page{}, &HTTPStatusError{Status: http.StatusBadGateway}
		}
		return okPage(url)
	}}
	f := NewFallbackFetcher(primary, nil, 2)
	f.backoff = time.Millisecond

	page, err := f.Fetch(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Equal(t, "http://x/a", page.URL)
	assert.Equal(t, 3, attempts)
}

func TestFallbackFetcher_UsesFallback(t *testing.T) {
	primary := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		return Page{}, errors.New("chrome crashed")
	}}
	fallback := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) { return okPage(url) }}
	f := NewFallbackFetcher(primary, fallback, 1)
	f.backoff = time.Millisecond

	_, err := f.Fetch(context.Background(), "http://x/a")
	require.NoError(t, err)
	assert.Len(t, primary.calls, 2)
	assert.Len(t, fallback.calls, 1)
}

func TestFallbackFetcher_HungPrimaryLeavesTimeForFallback(t *testing.T) {
	primary := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		<-ctx.Done()
		return Page{}, ctx.Err()
	}}
	fallback := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return okPage(url)
	}}
	f := NewFallbackFetcher(primary, fallback, 2)
	f.backoff = 10 * time.Millisecond
	f.attemptTimeout = 200 * time.Millisecond
	f.fallbackReserve = 80 * time.Millisecond

	result, err := New(f, WithFetchTimeout(300*time.Millisecond)).Crawl(context.Background(), []string{"http://x/page"}, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	require.Len(t, result.Documents, 1)
	assert.Len(t, fallback.calls, 1)
	assert.LessOrEqual(t, len(primary.calls), 3)
}

func TestFallbackFetcher_NoDeadlineKeepsAttemptTimeout(t *testing.T) {
	f := NewFallbackFetcher(&fakeFetcher{}, &fakeFetcher{}, 1)
	f.attemptTimeout = time.Second

	timeout, ok := f.attemptBudget(context.Background())
	assert.True(t, ok)
	assert.Equal(t, time.Second, timeout)

	ctx, cancel := context.WithTimeout(context.Background(), f.fallbackReserve/2)
	defer cancel()
	_, ok = f.attemptBudget(ctx)
	assert.False(t, ok)
}

func TestFallbackFetcher_ClientErrorIsFinal(t *testing.T) {
	primary := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) {
		return Page{}, &HTTPStatusError{Status: http.StatusNotFound}
	}}
	fallback := &fakeFetcher{OnFetch: func(ctx context.Context, url string) (Page, error) { return okPage(url) }}
	f := NewFallbackFetcher(primary, fallback, 2)

	_, err := f.Fetch(context.Background(), "http://x/missing")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Len(t, primary.calls, 1)
	assert.Empty(t, fallback.calls)
}
