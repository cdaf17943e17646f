package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	models "OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/usecase"
	xhttp "OracleEngine/pkg/http"
	xlogger "OracleEngine/pkg/logger"
)

type AlertsEchoHandler struct {
	logger    *xlogger.Logger
	alerts    *usecase.AlertEngine
	generator *usecase.SignalGenerator
}

func NewAlertsEchoHandler(logger *xlogger.Logger, alerts *usecase.AlertEngine, generator *usecase.SignalGenerator) *AlertsEchoHandler {
	return &AlertsEchoHandler{logger: logger, alerts: alerts, generator: generator}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.POST("/evaluate", h.Evaluate)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/events", h.Events)
}

func (h *AlertsEchoHandler) Create(c echo.Context) error {
	req := &models.CreateAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.alerts.CreateRule(c.Request().Context(), req)
	if err != nil {
		h.logger.Warn("create alert rule failed", xlogger.String("asset", req.Asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.CreatedResponse(c, r)
}

func (h *AlertsEchoHandler) List(c echo.Context) error {
	req := &models.ListAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rules, err := h.alerts.ListRules(c.Request().Context(), domrepo.AlertFilter{
		UserID: req.UserID,
		Asset:  req.Asset,
		Active: req.Active,
	})
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, rules, int64(len(rules)))
}

func (h *AlertsEchoHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid rule id %q", c.Param("id")))
	}
	if err := h.alerts.DeleteRule(c.Request().Context(), id); err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// Evaluate scores the asset now and runs every rule its metrics touch.
func (h *AlertsEchoHandler) Evaluate(c echo.Context) error {
	req := &models.EvaluateAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	ev, err := h.generator.Evaluate(ctx, req.Asset)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	fired, err := h.alerts.EvaluateAll(ctx, ev)
	if err != nil {
		h.logger.Warn("alert evaluation incomplete", xlogger.String("asset", ev.Asset), xlogger.Error(err))
	}
	if fired == nil {
		fired = []*models.AlertEvent{}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"asset":  ev.Asset,
		"values": usecase.TriggerValues(ev),
		"events": fired,
	})
}

func (h *AlertsEchoHandler) Events(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid rule id %q", c.Param("id")))
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := h.alerts.RuleEvents(c.Request().Context(), id, limit)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, events, int64(len(events)))
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
