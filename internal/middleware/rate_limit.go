package middleware

import (
	"github.com/labstack/echo/v4"

	"OracleEngine/internal/service/ratelimit"
	xhttp "OracleEngine/pkg/http"
)

// RateLimit rejects clients that exceed their token bucket with a 429
// envelope. Health and metrics probes are never limited.
func RateLimit(limiter *ratelimit.Keyed, exempt ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}
			if _, ok := skip[c.Path()]; ok {
				return next(c)
			}
			if !limiter.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded, slow down"))
			}
			return next(c)
		}
	}
}
