package models

// OracleScore is the aggregator's verdict for one observation.
type OracleScore struct {
	Score          int                `json:"oracle_score"`
	Raw            float64            `json:"raw_score"`
	Type           SignalType         `json:"signal_type"`
	Confidence     Confidence         `json:"confidence"`
	Categories     map[string]float64 `json:"category_scores"`
	WeightsVersion string             `json:"weights_version"`
	Neutral        bool               `json:"neutral"` // no category had data
}

// TradeLevels are the price levels derived from a score and an entry.
type TradeLevels struct {
	Entry      float64 `json:"entry_price"`
	Target     float64 `json:"target_price"`
	Stop       float64 `json:"stop_loss"`
	TargetPct  float64 `json:"target_pct"`
	StopPct    float64 `json:"stop_pct"`
	RiskReward float64 `json:"risk_reward"`
	Timeframe  string  `json:"timeframe"`
}

// Evaluation is the full, not necessarily persisted, result of scoring one
// asset.
type Evaluation struct {
	Asset       string             `json:"asset"`
	Observation MarketObservation  `json:"observation"`
	Factors     []FactorScore      `json:"factors"`
	Quant       []QuantModelResult `json:"quant"`
	Score       OracleScore        `json:"score"`
	Levels      TradeLevels        `json:"levels"`
	Actionable  bool               `json:"actionable"`
	Signal      *Signal            `json:"signal,omitempty"` // set when persisted
}
