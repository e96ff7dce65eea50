package httpclient

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of probes allowed in the half-open state.
	MaxRequests uint32

	// Interval clears counts periodically while closed. 0 never clears.
	Interval time.Duration

	// Timeout is how long the breaker stays open before half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once reached, after MinRequests.
	FailureRatio float64

	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns sensible defaults for a circuit breaker.
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

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = gobreaker.ErrOpenState

var (
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	circuitBreakerRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of requests rejected by an open circuit breaker",
		},
		[]string{"name"},
	)
)

// stateToFloat maps gobreaker states to prometheus gauge values.
func stateToFloat(state gobreaker.State) float64 {
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

// errServerStatus marks a 5xx response as a breaker failure. The response
// itself is still handed to the caller.
var errServerStatus = errors.New("server error status")

// BreakerTransport is an http.RoundTripper guarded by a circuit breaker.
// Transport errors and 5xx responses count as failures; 4xx do not.
type BreakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
	name    string
}

// NewBreakerTransport wraps next (http.DefaultTransport when nil).
func NewBreakerTransport(next http.RoundTripper, cfg CircuitBreakerConfig, logger *slog.Logger) *BreakerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	settings := gobreaker.Settings{
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
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			}
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	circuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
		name:    cfg.Name,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	switch {
	case errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		circuitBreakerRejectedTotal.WithLabelValues(t.name).Inc()
		return nil, fmt.Errorf("%s: %w", t.name, ErrCircuitOpen)
	case err != nil:
		return nil, err
	}
	return resp, nil
}

// State returns the current state of the circuit breaker.
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}
