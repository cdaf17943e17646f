package models

import (
	"fmt"
	"time"
)

type TriggerType string

const (
	TriggerOracleScore   TriggerType = "oracle_score"
	TriggerPrice         TriggerType = "price"
	TriggerVolume        TriggerType = "volume"
	TriggerRSI           TriggerType = "rsi"
	TriggerWhaleActivity TriggerType = "whale_activity"
	TriggerSentiment     TriggerType = "sentiment"
)

var TriggerTypes = []TriggerType{
	TriggerOracleScore, TriggerPrice, TriggerVolume, TriggerRSI, TriggerWhaleActivity, TriggerSentiment,
}

type Condition string

const (
	Above        Condition = "above"
	Below        Condition = "below"
	CrossesAbove Condition = "crosses_above"
	CrossesBelow Condition = "crosses_below"
)

type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// DefaultCooldownMinutes applies to rules created without a cooldown.
const DefaultCooldownMinutes = 60

// AlertRule is a user-defined trigger on one asset metric.
type AlertRule struct {
	ID              int64       `json:"id"`
	UserID          string      `json:"user_id"`
	Asset           string      `json:"asset"`
	TriggerType     TriggerType `json:"trigger_type"`
	Condition       Condition   `json:"condition"`
	Threshold       float64     `json:"threshold"`
	Channels        []Channel   `json:"channels"`
	WebhookURL      string      `json:"webhook_url,omitempty"`
	CooldownMinutes int         `json:"cooldown_minutes"`
	Active          bool        `json:"active"`
	LastTriggered   *time.Time  `json:"last_triggered,omitempty"`
	TriggerCount    int         `json:"trigger_count"`
	PreviousValue   *float64    `json:"previous_value,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Version         int         `json:"version"`
}

func (r *AlertRule) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// CoolingDown reports whether the rule fired within its cooldown window.
func (r *AlertRule) CoolingDown(now time.Time) bool {
	if r.LastTriggered == nil {
		return false
	}
	return now.Sub(*r.LastTriggered) < r.Cooldown()
}

// Matches evaluates the condition against value. Crossing conditions need a
// previous value and never match on the first observation.
func (r *AlertRule) Matches(value float64) bool {
	switch r.Condition {
	case Above:
		return value > r.Threshold
	case Below:
		return value < r.Threshold
	case CrossesAbove:
		return r.PreviousValue != nil && *r.PreviousValue <= r.Threshold && value > r.Threshold
	case CrossesBelow:
		return r.PreviousValue != nil && *r.PreviousValue >= r.Threshold && value < r.Threshold
	}
	return false
}

func (r *AlertRule) Validate() error {
	if r.Asset == "" {
		return fmt.Errorf("%w: asset required", ErrInvalidRule)
	}
	if !validTrigger(r.TriggerType) {
		return fmt.Errorf("%w: trigger %q", ErrInvalidRule, r.TriggerType)
	}
	switch r.Condition {
	case Above, Below, CrossesAbove, CrossesBelow:
	default:
		return fmt.Errorf("%w: condition %q", ErrInvalidRule, r.Condition)
	}
	if len(r.Channels) == 0 {
		return fmt.Errorf("%w: at least one channel required", ErrInvalidRule)
	}
	for _, ch := range r.Channels {
		switch ch {
		case ChannelEmail, ChannelPush:
		case ChannelWebhook:
			if r.WebhookURL == "" {
				return fmt.Errorf("%w: webhook channel needs webhook_url", ErrInvalidRule)
			}
		default:
			return fmt.Errorf("%w: channel %q", ErrInvalidRule, ch)
		}
	}
	if r.CooldownMinutes < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidRule)
	}
	return nil
}

func validTrigger(t TriggerType) bool {
	for _, v := range TriggerTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Message renders the human-readable alert text.
func (r *AlertRule) Message(value float64) string {
	return fmt.Sprintf("%s Alert: %s is %.2f (%s %.2f)", r.Asset, r.TriggerType, value, r.Condition, r.Threshold)
}

func (r *AlertRule) Clone() *AlertRule {
	c := *r
	c.Channels = append([]Channel(nil), r.Channels...)
	if r.LastTriggered != nil {
		v := *r.LastTriggered
		c.LastTriggered = &v
	}
	if r.PreviousValue != nil {
		v := *r.PreviousValue
		c.PreviousValue = &v
	}
	return &c
}

// DeliveryResult is the outcome of one channel send.
type DeliveryResult struct {
	Channel Channel `json:"channel"`
	Sent    bool    `json:"sent"`
	Reason  string  `json:"reason,omitempty"`
}

// AlertEvent records one firing of a rule.
type AlertEvent struct {
	ID          int64            `json:"id"`
	RuleID      int64            `json:"rule_id"`
	UserID      string           `json:"user_id"`
	Asset       string           `json:"asset"`
	TriggerType TriggerType      `json:"trigger_type"`
	Condition   Condition        `json:"condition"`
	Threshold   float64          `json:"threshold"`
	Value       float64          `json:"value"`
	Message     string           `json:"message"`
	Deliveries  []DeliveryResult `json:"deliveries"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Notification is what a channel sender delivers.
type Notification struct {
	RuleID     int64       `json:"rule_id"`
	UserID     string      `json:"user_id"`
	Asset      string      `json:"asset"`
	Trigger    TriggerType `json:"trigger_type"`
	Value      float64     `json:"value"`
	Message    string      `json:"message"`
	Channel    Channel     `json:"channel"`
	WebhookURL string      `json:"-"`
	SentAt     time.Time   `json:"sent_at"`
}
