package quant

import (
	"context"
	"fmt"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/domain/repository"
	domsvc "OracleEngine/internal/domain/service"
	"OracleEngine/pkg/logger"
)

// DefaultModels returns the full model set in reporting order.
func DefaultModels() []domsvc.QuantModel {
	return []domsvc.QuantModel{
		NewTSMOM(),
		NewRSI(),
		NewBollinger(),
		NewOrnsteinUhlenbeck(),
		NewValueAtRisk(),
		NewSharpe(),
		NewSortino(),
		NewDualMA(),
		NewADX(),
		NewVWAP(),
		NewOBV(),
	}
}

type Suite struct {
	models  []domsvc.QuantModel
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewSuite(lgr *logger.Logger, m repository.Metrics, qm ...domsvc.QuantModel) *Suite {
	if len(qm) == 0 {
		qm = DefaultModels()
	}
	if lgr == nil {
		lgr = logger.NewNop()
	}
	return &Suite{models: qm, logger: lgr, metrics: m}
}

// Run evaluates every model. The output has one entry per model and is
// never short, whatever the history looks like.
func (s *Suite) Run(ctx context.Context, h *models.PriceHistory) []models.QuantModelResult {
	out := make([]models.QuantModelResult, 0, len(s.models))
	for _, m := range s.models {
		res := s.evaluate(m, h)
		if res.Status == models.ModelNumericDegenerate {
			s.logger.Warn("quant model degenerate",
				logger.String("model", res.Model),
				logger.String("symbol", symbolOf(h)),
				logger.Int("points", h.Len()),
			)
		}
		if s.metrics != nil {
			s.metrics.RecordModelStatus(res.Model, string(res.Status))
		}
		out = append(out, res)
	}
	return out
}

func (s *Suite) evaluate(m domsvc.QuantModel, h *models.PriceHistory) (res models.QuantModelResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("quant model panic",
				logger.String("model", m.Name()),
				logger.Error(fmt.Errorf("%v", r)),
			)
			res = degenerate(m.Name())
		}
	}()
	return m.Evaluate(h)
}

func symbolOf(h *models.PriceHistory) string {
	if h == nil {
		return ""
	}
	return h.Symbol
}

// Compile-time interface check.
var _ domsvc.QuantSuite = (*Suite)(nil)
