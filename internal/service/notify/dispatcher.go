// Package notify delivers alert notifications over the rule's channels.
package notify

import (
	"context"
	"time"

	"OracleEngine/internal/domain/models"
	domsvc "OracleEngine/internal/domain/service"
	"OracleEngine/pkg/logger"
)

const reasonNoSender = "channel not configured"

type Dispatcher struct {
	senders map[models.Channel]domsvc.ChannelSender
	logger  *logger.Logger
	now     func() time.Time
}

func NewDispatcher(lgr *logger.Logger, senders ...domsvc.ChannelSender) *Dispatcher {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	d := &Dispatcher{
		senders: make(map[models.Channel]domsvc.ChannelSender, len(senders)),
		logger:  lgr.With(logger.String("component", "notify")),
		now:     time.Now,
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
	}
	return d
}

// Dispatch sends n on every channel of rule and reports each outcome. A
// failed channel never stops the others.
func (d *Dispatcher) Dispatch(ctx context.Context, rule *models.AlertRule, n models.Notification) []models.DeliveryResult {
	out := make([]models.DeliveryResult, 0, len(rule.Channels))
	for _, ch := range rule.Channels {
		s, ok := d.senders[ch]
		if !ok {
			out = append(out, models.DeliveryResult{Channel: ch, Reason: reasonNoSender})
			continue
		}
		msg := n
		msg.Channel = ch
		msg.WebhookURL = rule.WebhookURL
		msg.SentAt = d.now().UTC()
		if err := s.Send(ctx, msg); err != nil {
			d.logger.Warn("notification failed",
				logger.Int64("rule_id", rule.ID),
				logger.String("asset", rule.Asset),
				logger.String("channel", string(ch)),
				logger.Error(err),
			)
			out = append(out, models.DeliveryResult{Channel: ch, Reason: err.Error()})
			continue
		}
		out = append(out, models.DeliveryResult{Channel: ch, Sent: true})
	}
	return out
}

// Compile-time interface check.
var _ domsvc.Dispatcher = (*Dispatcher)(nil)
