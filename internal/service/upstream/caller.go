// Package upstream wraps every outbound provider call with pacing, a
// circuit breaker and bounded retries.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	svcmetrics "OracleEngine/internal/service/metrics"
	"OracleEngine/internal/service/ratelimit"
	"OracleEngine/pkg/config"
	xhttp "OracleEngine/pkg/http"
	"OracleEngine/pkg/logger"
)

var ErrCircuitOpen = errors.New("upstream circuit open")

type Caller struct {
	name    string
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	retries int
	logger  *logger.Logger
}

func NewCaller(name string, perMinute int, cfg config.UpstreamConfig, lgr *logger.Logger) *Caller {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	failures := uint32(cfg.BreakerFailures)
	if failures == 0 {
		failures = 5
	}
	openDelay := cfg.BreakerOpenDelay
	if openDelay <= 0 {
		openDelay = time.Minute
	}
	c := &Caller{
		name:    name,
		limiter: ratelimit.NewLimiter(name, perMinute),
		retries: cfg.Retries,
		logger:  lgr.With(logger.String("upstream", name)),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			svcmetrics.BreakerState.WithLabelValues(name).Set(float64(to))
			c.logger.Warn("breaker state changed",
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return c
}

func (c *Caller) Name() string { return c.name }

// Do runs fn under the limiter and breaker, retrying transient failures.
// Client errors (4xx other than 429) are returned at once.
func (c *Caller) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("%s %s: %w", c.name, op, werr)
		}
		start := time.Now()
		_, err = c.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		svcmetrics.UpstreamLatency.WithLabelValues(c.name, op).Observe(time.Since(start).Seconds())
		if err == nil {
			c.limiter.ResetBackoff()
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			svcmetrics.UpstreamErrors.WithLabelValues(c.name, "circuit_open").Inc()
			return fmt.Errorf("%s %s: %w", c.name, op, ErrCircuitOpen)
		}
		svcmetrics.UpstreamErrors.WithLabelValues(c.name, reason(err)).Inc()

		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
			c.limiter.SignalRateLimited(se.RetryAfter)
		}
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.logger.Debug("retrying upstream call",
			logger.String("op", op),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return fmt.Errorf("%s %s: %w", c.name, op, err)
}

func retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return !errors.Is(err, errPermanent)
}

// errPermanent marks decode and validation failures that must not retry.
var errPermanent = errors.New("permanent upstream error")

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errPermanent, err)
}

func reason(err error) string {
	var se *xhttp.StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case errors.As(err, &se):
		return "status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errPermanent):
		return "decode"
	}
	return "transport"
}
