package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "OracleEngine/pkg/http"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthEchoHandler struct {
	version string
	checks  map[string]HealthCheck
	started time.Time
}

func NewHealthEchoHandler(version string, checks map[string]HealthCheck) *HealthEchoHandler {
	return &HealthEchoHandler{version: version, checks: checks, started: time.Now()}
}

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

// Health reports 200 when every dependency answers, 503 otherwise.
func (h *HealthEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.checks))
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{
		"version":      h.version,
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"dependencies": deps,
	})
}
