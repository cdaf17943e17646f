package api

import (
	"strconv"

	"github.com/labstack/echo/v4"

	models "OracleEngine/internal/domain/models"
	"OracleEngine/internal/usecase"
	xhttp "OracleEngine/pkg/http"
	xlogger "OracleEngine/pkg/logger"
)

type ScansEchoHandler struct {
	logger  *xlogger.Logger
	scanner *usecase.ScanOrchestrator
	jobs    *usecase.ScanJobs
}

func NewScansEchoHandler(logger *xlogger.Logger, scanner *usecase.ScanOrchestrator, jobs *usecase.ScanJobs) *ScansEchoHandler {
	return &ScansEchoHandler{logger: logger, scanner: scanner, jobs: jobs}
}

func (h *ScansEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scans", h.Start)
	g.GET("/scans/:id", h.Get)
}

// Start runs a scan inline, or queues it when async is requested in the
// body or the query string.
func (h *ScansEchoHandler) Start(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if q, err := strconv.ParseBool(c.QueryParam("async")); err == nil {
		req.Async = req.Async || q
	}
	ctx := c.Request().Context()

	if req.Async {
		job, err := h.jobs.Submit(ctx, req.Assets)
		if err != nil {
			h.logger.Error("submit scan job failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, appError(err))
		}
		return xhttp.AcceptedResponse(c, job)
	}

	var (
		summary *models.ScanSummary
		err     error
	)
	if len(req.Assets) == 0 {
		summary, err = h.scanner.ScanUniverse(ctx, models.TriggerManual)
	} else {
		summary, err = h.scanner.Scan(ctx, models.TriggerManual, req.Assets, nil)
	}
	if err != nil {
		h.logger.Warn("manual scan failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, summary)
}

func (h *ScansEchoHandler) Get(c echo.Context) error {
	job, err := h.jobs.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, job)
}
