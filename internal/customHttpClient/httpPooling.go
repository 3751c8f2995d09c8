package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/CampusRAG/internal/config"
)

var (
	once            sync.Once
	customTransport *http.Transport
)

// Transport is shared by the crawler and the openai compatible providers so they reuse connections.
func Transport() *http.Transport {
	once.Do(func() {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.MaxIdleConns = config.MaxIdleConns
		base.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		base.IdleConnTimeout = config.IdleConnTimeout
		customTransport = base
	})
	return customTransport
}

// NewClient returns a client on the pooled transport. A zero timeout leaves it to the request context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: Transport(),
		Timeout:   timeout,
	}
}
