package models

import "time"

type Fidelity string

const (
	FidelityFull     Fidelity = "full"
	FidelityDegraded Fidelity = "degraded"
)

// MarketObservation is the normalized per-symbol snapshot handed to the
// Factor Bank and the quant suite. Optional metrics are nil when no source
// provided them.
type MarketObservation struct {
	Symbol         string             `json:"symbol"`
	Price          float64            `json:"price"`
	Change24h      *float64           `json:"change_24h,omitempty"`
	Change7d       *float64           `json:"change_7d,omitempty"`
	Change30d      *float64           `json:"change_30d,omitempty"`
	Volume24h      *float64           `json:"volume_24h,omitempty"`
	MarketCap      *float64           `json:"market_cap,omitempty"`
	High24h        *float64           `json:"high_24h,omitempty"`
	Low24h         *float64           `json:"low_24h,omitempty"`
	ATHChangePct   *float64           `json:"ath_change_pct,omitempty"`
	SentimentIndex *float64           `json:"sentiment_index,omitempty"`
	SocialUpPct    *float64           `json:"social_up_pct,omitempty"`
	SocialDownPct  *float64           `json:"social_down_pct,omitempty"`
	Auxiliary      map[string]float64 `json:"auxiliary,omitempty"`
	Fidelity       Fidelity           `json:"fidelity"`
	Sources        []string           `json:"sources,omitempty"`
	Missing        []string           `json:"missing,omitempty"`
	ObservedAt     time.Time          `json:"observed_at"`
}

func (o *MarketObservation) Degraded() bool { return o.Fidelity != FidelityFull }

// Aux returns an auxiliary provider score when present.
func (o *MarketObservation) Aux(name string) (float64, bool) {
	if o.Auxiliary == nil {
		return 0, false
	}
	v, ok := o.Auxiliary[name]
	return v, ok
}

// PriceHistory holds aligned daily series, oldest first. Volumes, Highs and
// Lows may be shorter than Prices (or empty) when a source lacks them.
type PriceHistory struct {
	Symbol     string      `json:"symbol"`
	Prices     []float64   `json:"prices"`
	Volumes    []float64   `json:"volumes,omitempty"`
	Highs      []float64   `json:"highs,omitempty"`
	Lows       []float64   `json:"lows,omitempty"`
	Timestamps []time.Time `json:"timestamps,omitempty"`
	Source     string      `json:"source,omitempty"`
}

func (h *PriceHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Prices)
}

// Float returns a pointer to v, for optional observation fields.
func Float(v float64) *float64 { return &v }
