// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package serveradapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/nexroll/nexroll/internal/engineerr"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
)

// guard wraps outbound calls to one media server in a circuit breaker and a
// token-bucket rate limiter, so a string of failures or a burst of calls
// within one tick never cascades into the control loop stalling. Grounded on
// internal/sync/circuit_breaker.go's CircuitBreakerClient.
type guard struct {
	cb      *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter
	name    string
}

func newGuard(name string, cfg Config) *guard {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= 0.6
		},
		OnStateChange: func(bname string, from, to gobreaker.State) {
			logging.Info().Str("component", "serveradapter").Str("adapter", bname).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(bname).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(bname, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bname).Set(0)
			}
		},
	})

	return &guard{
		cb:      cb,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		name:    name,
	}
}

// do runs fn through the rate limiter and circuit breaker. ctx cancellation
// while waiting on the limiter is honoured (§5 "Suspension points").
func (g *guard) do(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return engineerr.Wrap(engineerr.KindTransport, g.name, "rate limit wait", err)
	}
	_, err := g.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
			return engineerr.New(engineerr.KindTransport, g.name, fmt.Sprintf("circuit open: %v", err))
		}
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()
		counts := g.cb.Counts()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(g.name).Set(float64(counts.ConsecutiveFailures))
		return err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
	return nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
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
