package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// reaching the upstream.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	circuitBreakerFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_fallback_invoked_total",
			Help: "Total number of times the circuit breaker fallback was invoked",
		},
		[]string{"name"},
	)

	circuitBreakerUpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_upstream_failures_total",
			Help: "Upstream responses counted as breaker failures, by status code",
		},
		[]string{"name", "status"},
	)
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in metrics, logs and upstream errors.
	Name string

	// MaxRequests allowed through in the half-open state. 0 means 1.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before letting a trial
	// request through.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached, after MinRequests.
	FailureRatio float64
	MinRequests  uint32

	// FailureStatuses lists non-5xx statuses that also count against the
	// upstream, e.g. 429 from a quota-limited API. 5xx always counts.
	FailureStatuses []int
}

// DefaultCircuitBreakerConfig returns defaults for a circuit breaker.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func (cfg CircuitBreakerConfig) isFailureStatus(status int) bool {
	return status >= http.StatusInternalServerError || slices.Contains(cfg.FailureStatuses, status)
}

// StatusError is returned in place of a response whose status counted as a
// breaker failure. The body has already been consumed and closed; Err is the
// parsed upstream error, so apperrors sentinels match through it.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// FallbackFunc is invoked instead of returning ErrCircuitOpen when set.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

// CircuitBreakerClient wraps a Client with circuit breaker protection.
type CircuitBreakerClient struct {
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	cfg      CircuitBreakerConfig
	logger   *slog.Logger
	fallback FallbackFunc
}

// NewCircuitBreakerClient wraps client with a circuit breaker.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// A caller that gave up says nothing about the upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	circuitBreakerState.WithLabelValues(cfg.Name).Set(stateValue(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
	}
}

// WithFallback returns a copy of c that calls fn while the circuit is open.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// Do executes req through the breaker. Responses with a failure status come
// back as a *StatusError instead of a response; every other status is
// returned to the caller untouched.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		if c.cfg.isFailureStatus(resp.StatusCode) {
			circuitBreakerUpstreamFailures.WithLabelValues(c.cfg.Name, strconv.Itoa(resp.StatusCode)).Inc()
			return nil, &StatusError{StatusCode: resp.StatusCode, Err: ParseResponseError(resp, c.cfg.Name)}
		}
		return resp, nil
	})
	if err == nil {
		return resp, nil
	}

	if c.fallback != nil && errors.Is(err, ErrCircuitOpen) {
		circuitBreakerFallbackTotal.WithLabelValues(c.cfg.Name).Inc()
		c.logger.WarnContext(ctx, "circuit breaker open, invoking fallback",
			slog.String("breaker", c.cfg.Name),
		)
		return c.fallback(ctx, err)
	}
	return nil, err
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
