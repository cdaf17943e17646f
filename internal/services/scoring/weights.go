package scoring

import (
	"fmt"
	"math"
	"sort"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/factors"
	"OracleEngine/internal/services/quant"
)

// CurrentWeights tags signals scored with DefaultWeights.
const CurrentWeights = "v3"

// WeightTable is the two-level weighting: category weights sum to 1 and the
// member weights inside each category sum to 1.
type WeightTable struct {
	Version    string                                       `json:"version"`
	Categories map[models.FactorCategory]float64            `json:"categories"`
	Members    map[models.FactorCategory]map[string]float64 `json:"members"`
}

func DefaultWeights() WeightTable {
	return WeightTable{
		Version: CurrentWeights,
		Categories: map[models.FactorCategory]float64{
			models.CategoryQuant:     0.40,
			models.CategoryOnChain:   0.30,
			models.CategorySentiment: 0.15,
			models.CategoryTechnical: 0.15,
		},
		Members: map[models.FactorCategory]map[string]float64{
			models.CategoryQuant: {
				quant.ModelTSMOM:     0.15,
				quant.ModelRSI:       0.08,
				quant.ModelBollinger: 0.10,
				quant.ModelOU:        0.05,
				quant.ModelVaR:       0.08,
				quant.ModelSharpe:    0.10,
				quant.ModelSortino:   0.08,
				quant.ModelDMA:       0.12,
				quant.ModelADX:       0.08,
				quant.ModelVWAP:      0.08,
				quant.ModelOBV:       0.08,
			},
			models.CategoryOnChain: {
				factors.WhaleActivity:   0.35,
				factors.LiquidationRisk: 0.19,
				factors.FundingRate:     0.19,
				factors.ExchangeFlow:    0.16,
				factors.OpenInterest:    0.11,
			},
			models.CategorySentiment: {
				factors.MarketSentiment: 0.75,
				factors.SocialSentiment: 0.25,
			},
			models.CategoryTechnical: {
				factors.Momentum24h:   0.25,
				factors.Trend7d:       0.30,
				factors.VolumeFlow:    0.20,
				factors.ATHProximity:  0.10,
				factors.Volatility24h: 0.15,
			},
		},
	}
}

const weightTolerance = 1e-9

func (w WeightTable) Validate() error {
	if w.Version == "" {
		return fmt.Errorf("weight table: version required")
	}
	if err := sumsToOne("categories", w.Categories); err != nil {
		return err
	}
	for cat := range w.Categories {
		members, ok := w.Members[cat]
		if !ok {
			return fmt.Errorf("weight table %s: no members for %s", w.Version, cat)
		}
		if err := sumsToOne(string(cat), members); err != nil {
			return err
		}
	}
	return nil
}

func sumsToOne[K ~string](name string, m map[K]float64) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	sum := 0.0
	for _, k := range keys {
		v := m[K(k)]
		if v <= 0 {
			return fmt.Errorf("weight %s.%s must be positive", name, k)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("weights %s sum to %.6f, want 1", name, sum)
	}
	return nil
}
