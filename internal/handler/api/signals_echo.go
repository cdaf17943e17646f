package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	models "OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/usecase"
	xhttp "OracleEngine/pkg/http"
	xlogger "OracleEngine/pkg/logger"
	"OracleEngine/pkg/util"
)

// SignalsEchoHandler serves on-demand scoring, signal history, the signal
// lifecycle, performance and candles.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	generator *usecase.SignalGenerator
	lifecycle *usecase.Lifecycle
	store     domrepo.SignalStore
	perf      *usecase.PerformanceReporter
	candles   *usecase.CandlesUseCase
	now       func() time.Time
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	generator *usecase.SignalGenerator,
	lifecycle *usecase.Lifecycle,
	store domrepo.SignalStore,
	perf *usecase.PerformanceReporter,
	candles *usecase.CandlesUseCase,
) *SignalsEchoHandler {
	return &SignalsEchoHandler{
		logger:    logger,
		generator: generator,
		lifecycle: lifecycle,
		store:     store,
		perf:      perf,
		candles:   candles,
		now:       time.Now,
	}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.List)
	g.GET("/signals/id/:id", h.Get)
	g.GET("/signals/:symbol", h.Generate)
	g.POST("/signals/:id/cancel", h.Cancel)
	g.POST("/signals/sweep", h.Sweep)
	g.GET("/performance", h.Performance)
	g.GET("/candles/:symbol", h.Candles)
}

// Generate scores one asset. With persist=true an actionable score is
// saved as an active signal.
func (h *SignalsEchoHandler) Generate(c echo.Context) error {
	persist, _ := strconv.ParseBool(c.QueryParam("persist"))
	ev, err := h.generator.Generate(c.Request().Context(), c.Param("symbol"), persist)
	if err != nil {
		h.logger.Warn("generate signal failed", xlogger.String("symbol", c.Param("symbol")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	if !persist {
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	}
	return xhttp.SuccessResponse(c, ev)
}

func (h *SignalsEchoHandler) List(c echo.Context) error {
	req := &models.ListSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	f := models.SignalFilter{
		Asset:    util.NormalizeSymbol(req.Symbol),
		Type:     models.SignalType(req.Type),
		Status:   models.SignalStatus(req.Status),
		MinScore: req.MinScore,
		Since:    h.now().UTC().Add(-time.Duration(req.Days) * 24 * time.Hour),
		Limit:    req.Limit,
		Offset:   req.Offset,
	}
	rows, total, err := h.store.List(c.Request().Context(), f)
	if err != nil {
		h.logger.Error("list signals failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.ListResponse(c, rows, int64(total))
}

func (h *SignalsEchoHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid signal id %q", c.Param("id")))
	}
	s, err := h.store.Get(c.Request().Context(), id)
	if err != nil {
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *SignalsEchoHandler) Cancel(c echo.Context) error {
	req := &models.CancelSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	s, err := h.lifecycle.Cancel(c.Request().Context(), req.ID, req.Reason)
	if err != nil {
		h.logger.Warn("cancel signal failed", xlogger.Int64("signal_id", req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, s)
}

func (h *SignalsEchoHandler) Sweep(c echo.Context) error {
	n, err := h.lifecycle.CloseExpired(c.Request().Context())
	if err != nil {
		h.logger.Error("expiry sweep failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, map[string]int{"closed": n})
}

func (h *SignalsEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.perf.Report(c.Request().Context(), req.Days)
	if err != nil {
		h.logger.Error("performance report failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, r)
}

func (h *SignalsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tf := domrepo.NormalizeTimeframe(req.Timeframe)
	to := util.ParseTimeDefault(req.To, h.now().UTC())
	from := util.ParseTimeDefault(req.From, to.Add(-1000*tf.Duration()))

	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Warn("candles failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, appError(err))
	}
	return xhttp.SuccessResponse(c, res)
}
