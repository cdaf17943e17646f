package models

// LabelUnknown marks a factor whose input was missing.
const LabelUnknown = "unknown"

type FactorCategory string

const (
	CategoryQuant     FactorCategory = "quant"
	CategoryOnChain   FactorCategory = "onchain"
	CategorySentiment FactorCategory = "sentiment"
	CategoryTechnical FactorCategory = "technical"
)

// FactorScore is one threshold-mapped factor, 0..100.
type FactorScore struct {
	Name      string         `json:"name"`
	Category  FactorCategory `json:"category"`
	Score     float64        `json:"score"`
	Label     string         `json:"label"`
	Magnitude *float64       `json:"magnitude,omitempty"`
	Available bool           `json:"available"`
}

func UnknownFactor(name string, cat FactorCategory) FactorScore {
	return FactorScore{Name: name, Category: cat, Score: 50, Label: LabelUnknown}
}
