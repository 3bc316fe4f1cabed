package footballdata

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects requests after
// repeated upstream failures.
var ErrCircuitOpen = errors.New("footballdata: circuit breaker is open")

// BreakerConfig tunes the circuit breaker around football-data API calls.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before half-open probes.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of consecutive successes in
	// half-open state needed to close the circuit again.
	HalfOpenMaxSuccesses uint32
}

// defaultBreakerConfig matches the free-tier failure profile: trip fast,
// probe after half a minute.
func defaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}
}

// breaker wraps gobreaker so that a flapping upstream fails fast instead of
// stacking up blocked cache refreshes.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(config BreakerConfig) *breaker {
	settings := gobreaker.Settings{
		Name:        "football-data",
		MaxRequests: config.HalfOpenMaxSuccesses,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// execute runs fn through the breaker, honoring context cancellation before
// the call is attempted.
func (b *breaker) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := b.cb.Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// state returns "closed", "open", or "half-open" for logging and health.
func (b *breaker) state() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}
