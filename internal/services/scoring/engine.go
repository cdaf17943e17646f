package scoring

import (
	"fmt"
	"math"

	"OracleEngine/internal/domain/models"
	domsvc "OracleEngine/internal/domain/service"
	"OracleEngine/internal/services/features"
)

const (
	maxTargetPct = 12.0
	maxStopPct   = 5.0
	basePct      = 3.0
	targetSlope  = 0.35
	stopSlope    = 0.05
)

var categoryOrder = []models.FactorCategory{
	models.CategoryQuant,
	models.CategoryOnChain,
	models.CategorySentiment,
	models.CategoryTechnical,
}

// Engine is the Score Aggregator. It scores with the current table and can
// replay snapshots against any table it was built with.
type Engine struct {
	current     WeightTable
	tables      map[string]WeightTable
	neutralBand int
}

func NewEngine(neutralBand int, current WeightTable, older ...WeightTable) (*Engine, error) {
	if neutralBand < 0 || neutralBand >= 50 {
		return nil, fmt.Errorf("neutral band %d out of range [0,50)", neutralBand)
	}
	e := &Engine{current: current, tables: make(map[string]WeightTable), neutralBand: neutralBand}
	for _, t := range append(older, current) {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		e.tables[t.Version] = t
	}
	return e, nil
}

func (e *Engine) Version() string { return e.current.Version }

func (e *Engine) Score(fs []models.FactorScore, qs []models.QuantModelResult) models.OracleScore {
	return score(e.current, fs, qs)
}

// Replay recomputes a stored signal's score from its snapshot.
func (e *Engine) Replay(snap models.Snapshot) (models.OracleScore, error) {
	t, ok := e.tables[snap.WeightsVersion]
	if !ok {
		return models.OracleScore{}, fmt.Errorf("unknown weights version %q", snap.WeightsVersion)
	}
	return score(t, snap.Factors, snap.Quant), nil
}

func score(w WeightTable, fs []models.FactorScore, qs []models.QuantModelResult) models.OracleScore {
	inputs := make(map[models.FactorCategory]map[string]float64, len(categoryOrder))
	add := func(cat models.FactorCategory, name string, v float64) {
		if inputs[cat] == nil {
			inputs[cat] = make(map[string]float64)
		}
		inputs[cat][name] = v
	}
	for _, q := range qs {
		if q.Available() {
			add(models.CategoryQuant, q.Model, q.Score)
		}
	}
	for _, f := range fs {
		if f.Available {
			add(f.Category, f.Name, f.Score)
		}
	}

	out := models.OracleScore{WeightsVersion: w.Version, Categories: make(map[string]float64)}
	total, totalWeight := 0.0, 0.0
	for _, cat := range categoryOrder {
		members := w.Members[cat]
		sum, weight := 0.0, 0.0
		// fixed member order keeps the float sum reproducible
		for _, name := range sortedKeys(members) {
			v, ok := inputs[cat][name]
			if !ok {
				continue
			}
			sum += v * members[name]
			weight += members[name]
		}
		if weight == 0 {
			continue
		}
		catScore := sum / weight
		out.Categories[string(cat)] = features.Round(catScore, 4)
		total += catScore * w.Categories[cat]
		totalWeight += w.Categories[cat]
	}

	if totalWeight == 0 {
		out.Raw, out.Score, out.Neutral = 50, 50, true
	} else {
		out.Raw = features.Round(total/totalWeight, 4)
		out.Score = clampInt(int(math.Round(total / totalWeight)))
	}
	out.Type, out.Confidence = Classify(out.Score)
	return out
}

// Levels derives target, stop and timeframe for an entry at the score's
// direction. Percentages grow with distance from 50 and are capped.
func (e *Engine) Levels(score int, entry float64, volatilityLabel string) models.TradeLevels {
	d := math.Abs(float64(clampInt(score)) - 50)
	targetPct := math.Min(basePct+targetSlope*d, maxTargetPct)
	stopPct := math.Min(basePct+stopSlope*d, maxStopPct)

	lv := models.TradeLevels{
		Entry:     entry,
		TargetPct: features.Round(targetPct, 2),
		StopPct:   features.Round(stopPct, 2),
		Timeframe: Timeframe(volatilityLabel),
	}
	signal, _ := Classify(score)
	if signal.IsSell() {
		lv.Target = entry * (1 - targetPct/100)
		lv.Stop = entry * (1 + stopPct/100)
	} else {
		lv.Target = entry * (1 + targetPct/100)
		lv.Stop = entry * (1 - stopPct/100)
	}
	risk := math.Abs(entry - lv.Stop)
	reward := math.Abs(lv.Target - entry)
	lv.RiskReward = 1.0
	if risk > 0 {
		lv.RiskReward = features.Round(reward/risk, 2)
	}
	return lv
}

// Timeframe shortens validity when 24h volatility is high or unknown.
func Timeframe(volatilityLabel string) string {
	switch volatilityLabel {
	case "high", "very_high", models.LabelUnknown, "":
		return "24h"
	}
	return "48h"
}

// Actionable reports whether score lies outside the neutral band.
func (e *Engine) Actionable(score int) bool {
	d := score - 50
	if d < 0 {
		d = -d
	}
	return d >= e.neutralBand
}

// Compile-time interface check.
var _ domsvc.ScoreEngine = (*Engine)(nil)
