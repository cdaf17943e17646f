package models

import (
	"fmt"
	"math"
	"time"
)

type SignalType string

const (
	StrongSell SignalType = "strong_sell"
	Sell       SignalType = "sell"
	LeanSell   SignalType = "lean_sell"
	Hold       SignalType = "hold"
	LeanBuy    SignalType = "lean_buy"
	Buy        SignalType = "buy"
	StrongBuy  SignalType = "strong_buy"
)

// SignalTypes lists every tier from most bearish to most bullish.
var SignalTypes = []SignalType{StrongSell, Sell, LeanSell, Hold, LeanBuy, Buy, StrongBuy}

// IsSell reports whether the signal is short-biased. Hold is treated as long
// for price levels and pnl.
func (t SignalType) IsSell() bool {
	return t == StrongSell || t == Sell || t == LeanSell
}

func (t SignalType) Direction() string {
	if t.IsSell() {
		return "sell"
	}
	return "buy"
}

func (t SignalType) Valid() bool {
	for _, s := range SignalTypes {
		if s == t {
			return true
		}
	}
	return false
}

type SignalStatus string

const (
	StatusActive    SignalStatus = "active"
	StatusHitTarget SignalStatus = "hit_target"
	StatusHitStop   SignalStatus = "hit_stop"
	StatusExpired   SignalStatus = "expired"
	StatusCancelled SignalStatus = "cancelled"
)

func (s SignalStatus) IsTerminal() bool { return s != StatusActive }

func (s SignalStatus) Valid() bool {
	switch s {
	case StatusActive, StatusHitTarget, StatusHitStop, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Snapshot is the full input set a signal was scored from.
type Snapshot struct {
	Observation    MarketObservation  `json:"observation"`
	Factors        []FactorScore      `json:"factors"`
	Quant          []QuantModelResult `json:"quant"`
	CategoryScores map[string]float64 `json:"category_scores"`
	RawScore       float64            `json:"raw_score"`
	WeightsVersion string             `json:"weights_version"`
}

// Signal is a persisted, lifecycle-managed trade recommendation.
type Signal struct {
	ID            int64        `json:"id"`
	Asset         string       `json:"asset"`
	Pair          string       `json:"pair"`
	Type          SignalType   `json:"signal_type"`
	Score         int          `json:"oracle_score"`
	Confidence    Confidence   `json:"confidence"`
	EntryPrice    float64      `json:"entry_price"`
	TargetPrice   float64      `json:"target_price"`
	StopLoss      float64      `json:"stop_loss"`
	RiskReward    float64      `json:"risk_reward"`
	Timeframe     string       `json:"timeframe"`
	ExpiresAt     time.Time    `json:"expires_at"`
	Status        SignalStatus `json:"status"`
	OutcomePrice  *float64     `json:"outcome_price,omitempty"`
	OutcomePnLPct *float64     `json:"outcome_pnl_pct,omitempty"`
	OutcomeAt     *time.Time   `json:"outcome_at,omitempty"`
	CloseReason   string       `json:"close_reason,omitempty"`
	ModelVersion  string       `json:"model_version"`
	Fidelity      Fidelity     `json:"fidelity"`
	Snapshot      Snapshot     `json:"snapshot"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Version       int          `json:"version"`
}

// Validate checks the price-level ordering for the signal's direction.
func (s *Signal) Validate() error {
	if s.EntryPrice <= 0 {
		return fmt.Errorf("signal %s: entry price must be positive", s.Asset)
	}
	if s.Score < 0 || s.Score > 100 {
		return fmt.Errorf("signal %s: score %d out of range", s.Asset, s.Score)
	}
	if s.Type.IsSell() {
		if !(s.TargetPrice < s.EntryPrice && s.EntryPrice < s.StopLoss) {
			return fmt.Errorf("signal %s: sell levels out of order", s.Asset)
		}
	} else if !(s.StopLoss < s.EntryPrice && s.EntryPrice < s.TargetPrice) {
		return fmt.Errorf("signal %s: buy levels out of order", s.Asset)
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return fmt.Errorf("signal %s: expiry must follow creation", s.Asset)
	}
	return nil
}

// PnLPercent is the direction-aware return at price, in percent.
func (s *Signal) PnLPercent(price float64) float64 {
	if s.EntryPrice == 0 {
		return 0
	}
	if s.Type.IsSell() {
		return (s.EntryPrice - price) / s.EntryPrice * 100
	}
	return (price - s.EntryPrice) / s.EntryPrice * 100
}

// Resolve closes the signal when price reaches its target or stop. It
// returns false, nil when neither level is crossed.
func (s *Signal) Resolve(price float64, at time.Time) (bool, error) {
	if s.Status.IsTerminal() {
		return false, fmt.Errorf("%w: signal %d is %s", ErrInvalidTransition, s.ID, s.Status)
	}
	var next SignalStatus
	if s.Type.IsSell() {
		switch {
		case price <= s.TargetPrice:
			next = StatusHitTarget
		case price >= s.StopLoss:
			next = StatusHitStop
		}
	} else {
		switch {
		case price >= s.TargetPrice:
			next = StatusHitTarget
		case price <= s.StopLoss:
			next = StatusHitStop
		}
	}
	if next == "" {
		return false, nil
	}
	s.close(next, price, at, "")
	return true, nil
}

// Expire closes an active signal whose expiry has passed.
func (s *Signal) Expire(price float64, at time.Time) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: signal %d is %s", ErrInvalidTransition, s.ID, s.Status)
	}
	if at.Before(s.ExpiresAt) {
		return fmt.Errorf("%w: signal %d expires at %s", ErrInvalidTransition, s.ID, s.ExpiresAt.Format(time.RFC3339))
	}
	s.close(StatusExpired, price, at, "")
	return nil
}

// Cancel closes an active signal by operator request.
func (s *Signal) Cancel(price float64, at time.Time, reason string) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: signal %d is %s", ErrInvalidTransition, s.ID, s.Status)
	}
	s.close(StatusCancelled, price, at, reason)
	return nil
}

func (s *Signal) IsExpired(now time.Time) bool {
	return s.Status == StatusActive && !now.Before(s.ExpiresAt)
}

func (s *Signal) close(status SignalStatus, price float64, at time.Time, reason string) {
	pnl := math.Round(s.PnLPercent(price)*10000) / 10000
	at = at.UTC()
	s.Status = status
	s.OutcomePrice = &price
	s.OutcomePnLPct = &pnl
	s.OutcomeAt = &at
	s.CloseReason = reason
	s.UpdatedAt = at
}

// Clone returns a deep copy, safe to mutate.
func (s *Signal) Clone() *Signal {
	c := *s
	if s.OutcomePrice != nil {
		v := *s.OutcomePrice
		c.OutcomePrice = &v
	}
	if s.OutcomePnLPct != nil {
		v := *s.OutcomePnLPct
		c.OutcomePnLPct = &v
	}
	if s.OutcomeAt != nil {
		v := *s.OutcomeAt
		c.OutcomeAt = &v
	}
	c.Snapshot.Factors = append([]FactorScore(nil), s.Snapshot.Factors...)
	c.Snapshot.Quant = append([]QuantModelResult(nil), s.Snapshot.Quant...)
	if s.Snapshot.CategoryScores != nil {
		c.Snapshot.CategoryScores = make(map[string]float64, len(s.Snapshot.CategoryScores))
		for k, v := range s.Snapshot.CategoryScores {
			c.Snapshot.CategoryScores[k] = v
		}
	}
	return &c
}

// SignalFilter narrows history queries. Zero values mean "any".
type SignalFilter struct {
	Asset    string
	Type     SignalType
	Status   SignalStatus
	MinScore int
	Since    time.Time
	Limit    int
	Offset   int
}
