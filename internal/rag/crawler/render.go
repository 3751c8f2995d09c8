package crawler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
	"github.com/akolanti/CampusRAG/pkg/logger_i"
	"github.com/chromedp/chromedp"
)

// RenderFetcher drives one long-lived headless Chrome and opens a tab per fetch,
// so script generated content is present in the returned html.
type RenderFetcher struct {
	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	startOnce sync.Once
	startErr  error
	settle    time.Duration
	logger    *logger_i.Logger
}

func NewRenderFetcher(userAgent string) *RenderFetcher {
	if userAgent == "" {
		userAgent = config.CrawlUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	return &RenderFetcher{
		allocCtx:      allocCtx,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		settle:        config.RenderSettleDelay,
		logger:        logger_i.NewLogger("RenderFetcher"),
	}
}

func (f *RenderFetcher) Close() {
	if f.cancelBrowser != nil {
		f.cancelBrowser()
	}
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
	f.logger.Info("Closed headless browser")
}

// the first Run on the browser context launches chrome, tabs are then opened from it
func (f *RenderFetcher) start() error {
	f.startOnce.Do(func() {
		f.startErr = chromedp.Run(f.browserCtx)
		if f.startErr != nil {
			f.logger.Error("Could not start headless browser", "error", f.startErr)
		}
	})
	return f.startErr
}

func (f *RenderFetcher) Fetch(ctx context.Context, link string) (Page, error) {
	if err := f.start(); err != nil {
		return Page{}, err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(link))
	if err != nil {
		return Page{}, err
	}
	status := http.StatusOK
	if resp != nil {
		status = int(resp.Status)
		if status >= http.StatusBadRequest {
			return Page{URL: link, Status: status}, &HTTPStatusError{Status: status}
		}
	}

	var html, finalURL string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.settle),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return Page{}, err
	}
	if finalURL == "" {
		finalURL = link
	}
	return Page{URL: finalURL, Status: status, HTML: html}, nil
}
