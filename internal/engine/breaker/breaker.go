// Package breaker guards a search backend with a circuit breaker so a
// failing cluster is answered with 504 immediately instead of piling up
// requests.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/willrp/willstores-ws/internal/engine"
	"github.com/willrp/willstores-ws/internal/query"
	apperrors "github.com/willrp/willstores-ws/pkg/errors"
)

// Config holds configuration for the circuit breaker.
type Config struct {
	// Name identifies this breaker (used in metrics and logs).
	Name string

	// MaxRequests is the maximum number of requests allowed in the half-open state.
	// 0 means 1 request is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing internal counts.
	// 0 means internal counts are never cleared during the closed state.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio is the ratio of failures to total requests that trips the breaker.
	FailureRatio float64

	// MinRequests is the minimum number of requests needed before the failure ratio is evaluated.
	MinRequests uint32
}

// DefaultConfig returns sensible defaults for a circuit breaker.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "search_backend_breaker_state",
		Help: "Current state of the search backend circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

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

// Backend wraps an engine.Backend with circuit breaker protection. Only
// backend failures count against the breaker; empty results, bad input and
// cancelled requests do not.
type Backend struct {
	next    engine.Backend
	breaker *gobreaker.CircuitBreaker[*query.Response]
	logger  *slog.Logger
	name    string
}

var _ engine.Backend = (*Backend)(nil)

// New wraps next with a circuit breaker.
func New(next engine.Backend, cfg Config, logger *slog.Logger) *Backend {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || !apperrors.IsBackendUnavailable(err)
		},
	}

	// Set initial state metric.
	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &Backend{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*query.Response](settings),
		logger:  logger,
		name:    cfg.Name,
	}
}

// Search runs req through the breaker. While the breaker is open the call is
// rejected with apperrors.BackendUnavailable without reaching the backend.
func (b *Backend) Search(ctx context.Context, req *query.Request) (*query.Response, error) {
	resp, err := b.breaker.Execute(func() (*query.Response, error) {
		return b.next.Search(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.WarnContext(ctx, "search rejected by circuit breaker",
			slog.String("breaker", b.name),
			slog.String("operation", req.Operation),
		)
		return nil, apperrors.BackendUnavailable(fmt.Errorf("breaker %s: %w", b.name, err))
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Ping bypasses the breaker so health checks see the backend's real state.
func (b *Backend) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

// State returns the current state of the circuit breaker.
func (b *Backend) State() gobreaker.State {
	return b.breaker.State()
}
