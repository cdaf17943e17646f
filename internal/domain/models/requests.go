package models

// ListSignalsRequest binds GET /api/signals.
type ListSignalsRequest struct {
	Symbol   string `query:"symbol" json:"symbol"`
	Type     string `query:"type" json:"type" validate:"omitempty,oneof=strong_sell sell lean_sell hold lean_buy buy strong_buy"`
	Status   string `query:"status" json:"status" validate:"omitempty,oneof=active hit_target hit_stop expired cancelled"`
	MinScore int    `query:"min_score" json:"min_score" validate:"gte=0,lte=100"`
	Days     int    `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Offset   int    `query:"offset" json:"offset" validate:"gte=0"`
}

type CancelSignalRequest struct {
	ID     int64  `param:"id" json:"id" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"max=256"`
}

type ScanRequest struct {
	Assets []string `json:"assets"`
	Async  bool     `query:"async" json:"async"`
}

type CreateAlertRequest struct {
	UserID          string   `json:"user_id" validate:"required,max=128"`
	Asset           string   `json:"asset" validate:"required"`
	TriggerType     string   `json:"trigger_type" validate:"required,oneof=oracle_score price volume rsi whale_activity sentiment"`
	Condition       string   `json:"condition" validate:"required,oneof=above below crosses_above crosses_below"`
	Threshold       *float64 `json:"threshold" validate:"required"`
	Channels        []string `json:"channels" validate:"required,min=1,dive,oneof=email push webhook"`
	WebhookURL      string   `json:"webhook_url" validate:"omitempty,url"`
	CooldownMinutes *int     `json:"cooldown_minutes" validate:"omitempty,gte=0,lte=10080"`
}

type ListAlertsRequest struct {
	UserID string `query:"user_id" json:"user_id"`
	Asset  string `query:"asset" json:"asset"`
	Active *bool  `query:"active" json:"active"`
}

type EvaluateAlertsRequest struct {
	Asset string `json:"asset" validate:"required"`
}

type PerformanceRequest struct {
	Days int `query:"days" json:"days" default:"30" validate:"gte=1,lte=365"`
}

// CandlesRequest binds GET /api/candles/:symbol. From and To accept RFC3339,
// dates or unix seconds.
type CandlesRequest struct {
	Symbol    string `param:"symbol" json:"symbol" validate:"required"`
	Timeframe string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 1h 1d"`
	From      string `query:"from" json:"from"`
	To        string `query:"to" json:"to"`
	Limit     int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}
