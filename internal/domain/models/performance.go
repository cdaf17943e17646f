package models

import "time"

// PerformanceStats aggregates closed-signal outcomes.
type PerformanceStats struct {
	Total     int     `json:"total"`
	Active    int     `json:"active"`
	Completed int     `json:"completed"`
	HitTarget int     `json:"hit_target"`
	HitStop   int     `json:"hit_stop"`
	Expired   int     `json:"expired"`
	Cancelled int     `json:"cancelled"`
	WinRate   float64 `json:"win_rate"`
	AvgPnL    float64 `json:"avg_pnl_pct"`
	TotalPnL  float64 `json:"total_pnl_pct"`
	BestPnL   float64 `json:"best_pnl_pct"`
	WorstPnL  float64 `json:"worst_pnl_pct"`
}

// CalibrationBucket compares a score bracket with its realized win rate.
type CalibrationBucket struct {
	Bracket   string  `json:"bracket"`
	Min       int     `json:"min"`
	Max       int     `json:"max"`
	Completed int     `json:"completed"`
	Wins      int     `json:"wins"`
	WinRate   float64 `json:"win_rate"`
}

type PerformanceReport struct {
	Days        int                         `json:"days"`
	Since       time.Time                   `json:"since"`
	Overall     PerformanceStats            `json:"overall"`
	ByAsset     map[string]PerformanceStats `json:"by_asset"`
	ByDirection map[string]PerformanceStats `json:"by_direction"`
	Calibration []CalibrationBucket         `json:"calibration"`
	GeneratedAt time.Time                   `json:"generated_at"`
}
