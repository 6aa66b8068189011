// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// Client is a rate-limited, 429-aware HTTP client. It holds no per-request
// state and no cookie jar, so one Client is safe to share between workers.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
}

// NewClient wraps hc with the limits from cfg. A nil hc uses a fresh
// http.Client without a global timeout; callers bound each request through
// its context instead.
func NewClient(hc *http.Client, cfg types.HTTPConfig) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Client{
		http:       hc,
		limiter:    limiter,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
	}
}

// Get issues a GET for url, waiting on the rate limiter first. The caller
// owns the returned response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	return DoWithRetry(ctx, c.http, req, c.maxRetries)
}
