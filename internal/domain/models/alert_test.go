package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertRuleMatches(t *testing.T) {
	r := &AlertRule{Condition: Above, Threshold: 70}
	assert.True(t, r.Matches(75))
	assert.False(t, r.Matches(70))

	r.Condition = CrossesAbove
	assert.False(t, r.Matches(75), "no previous value")
	r.PreviousValue = Float(65)
	assert.True(t, r.Matches(75))
	r.PreviousValue = Float(72)
	assert.False(t, r.Matches(75))

	r.Condition = CrossesBelow
	r.PreviousValue = Float(72)
	assert.True(t, r.Matches(60))
}

func TestAlertRuleCooldown(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	r := &AlertRule{CooldownMinutes: 60}
	assert.False(t, r.CoolingDown(t0))

	r.LastTriggered = &t0
	assert.True(t, r.CoolingDown(t0.Add(30*time.Minute)))
	assert.False(t, r.CoolingDown(t0.Add(61*time.Minute)))
}

func TestAlertRuleValidate(t *testing.T) {
	r := &AlertRule{Asset: "BTC", TriggerType: TriggerPrice, Condition: Below, Channels: []Channel{ChannelWebhook}}
	assert.ErrorIs(t, r.Validate(), ErrInvalidRule)

	r.WebhookURL = "https://example.com/hook"
	assert.NoError(t, r.Validate())

	r.TriggerType = "funding"
	assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
}

func TestAlertRuleMessage(t *testing.T) {
	r := &AlertRule{Asset: "ETH", TriggerType: TriggerOracleScore, Condition: Above, Threshold: 70}
	assert.Equal(t, "ETH Alert: oracle_score is 75.00 (above 70.00)", r.Message(75))
}
