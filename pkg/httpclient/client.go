package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config holds outbound HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	UserAgent       string
}

// DefaultConfig returns defaults for a single best-effort outbound call.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxConnsPerHost: 16,
		UserAgent:       "bookshop-storefront/1.0",
	}
}

// Client wraps http.Client with a pooled transport. It never retries.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a new HTTP client.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config: cfg,
	}
}

// Do executes req once. Non-2xx responses are returned as-is; a transport
// failure is wrapped with the request method and host.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http %s %s: %w", req.Method, req.URL.Host, err)
	}
	return resp, nil
}
