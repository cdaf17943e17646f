package models

type ModelStatus string

const (
	ModelOK                  ModelStatus = "ok"
	ModelInsufficientHistory ModelStatus = "insufficient_history"
	ModelNumericDegenerate   ModelStatus = "numeric_degenerate"
)

type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
	Neutral Direction = "neutral"
)

type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// QuantModelResult is one model's verdict. Signal is the model's own label
// (e.g. "oversold", "strong_buy"); Direction is the normalized bias.
type QuantModelResult struct {
	Model       string             `json:"model"`
	Score       float64            `json:"score"`
	Signal      string             `json:"signal"`
	Direction   Direction          `json:"direction"`
	Confidence  Confidence         `json:"confidence"`
	Status      ModelStatus        `json:"status"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
	Tags        map[string]string  `json:"tags,omitempty"`
}

// Available reports whether the result should count toward the aggregate.
func (r QuantModelResult) Available() bool { return r.Status == ModelOK }
