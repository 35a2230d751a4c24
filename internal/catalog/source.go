package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/utafrali/bookshop/pkg/errors"
	"github.com/utafrali/bookshop/pkg/httpclient"
)

const sourceName = "catalog source"

// maxBodyBytes caps how much of a list response is decoded.
const maxBodyBytes = 4 << 20

// BreakerConfig returns the circuit breaker settings for the catalog source.
// The Books API answers 429 once the daily or per-minute quota is spent, and
// further calls only burn quota, so 429 trips the breaker like a 5xx does.
func BreakerConfig(name string) httpclient.CircuitBreakerConfig {
	cfg := httpclient.DefaultCircuitBreakerConfig(name)
	cfg.FailureStatuses = []int{http.StatusTooManyRequests}
	return cfg
}

// CircuitOpenFallback is the fallback of the catalog circuit breaker. It turns
// the raw open-circuit error into a structured unavailable error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("catalog source is temporarily unavailable")
}

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Record is one book as reported by the catalog source.
type Record struct {
	ID       string
	Title    string
	Author   string
	ImageURL string
}

// Source fetches the current bestseller list.
type Source interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// NYTConfig configures the Books API list source.
type NYTConfig struct {
	BaseURL       string
	List          string
	APIKey        string
	RatePerMinute int
}

// NYTSource reads a current list from the New York Times Books API.
type NYTSource struct {
	client   HTTPDoer
	limiter  *rate.Limiter
	endpoint string
	keyParam string
}

// NewNYTSource creates a source issuing requests through client. Requests are
// limited to cfg.RatePerMinute; a non-positive rate disables the limiter.
func NewNYTSource(client HTTPDoer, cfg NYTConfig) *NYTSource {
	base := strings.TrimRight(cfg.BaseURL, "/")
	path := fmt.Sprintf("%s/lists/current/%s.json", base, url.PathEscape(cfg.List))

	limit := rate.Inf
	burst := 1
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
		burst = cfg.RatePerMinute
	}

	keyParam := "api-key=" + url.QueryEscape(cfg.APIKey)
	return &NYTSource{
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		endpoint: path + "?" + keyParam,
		keyParam: keyParam,
	}
}

type nytListResponse struct {
	Status  string `json:"status"`
	Results *struct {
		ListName string    `json:"list_name"`
		Books    []nytBook `json:"books"`
	} `json:"results"`
}

type nytBook struct {
	PrimaryISBN10 string `json:"primary_isbn10"`
	PrimaryISBN13 string `json:"primary_isbn13"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	BookImage     string `json:"book_image"`
}

// Fetch performs one GET of the configured list. It waits for the rate
// limiter first and fails if ctx expires while waiting.
func (s *NYTSource) Fetch(ctx context.Context) ([]Record, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for catalog rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog list: %w", s.redact(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, sourceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var body nytListResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog list: %w", err)
	}
	if body.Results == nil {
		return nil, errors.New("decode catalog list: missing results")
	}

	records := make([]Record, 0, len(body.Results.Books))
	for _, b := range body.Results.Books {
		id := b.PrimaryISBN10
		if id == "" {
			id = b.PrimaryISBN13
		}
		records = append(records, Record{
			ID:       strings.TrimSpace(id),
			Title:    b.Title,
			Author:   b.Author,
			ImageURL: b.BookImage,
		})
	}
	return records, nil
}

// redact strips the api key from transport errors, which embed the request
// URL. The wrapped chain stays intact for errors.Is and errors.As.
func (s *NYTSource) redact(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, s.keyParam) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(msg, s.keyParam, "api-key=REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
