package notify

import (
	"context"
	"errors"
	"strconv"

	"OracleEngine/internal/domain/models"
	domsvc "OracleEngine/internal/domain/service"
	xhttp "OracleEngine/pkg/http"
	"OracleEngine/pkg/logger"
)

var errNoWebhookURL = errors.New("webhook url not set")

// Publisher is the slice of the Kafka producer the bus sender needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// BusSender hands email and push notifications to the delivery workers
// through a topic, keyed by rule so one rule's messages stay ordered.
type BusSender struct {
	channel models.Channel
	pub     Publisher
	topic   string
}

func NewBusSender(ch models.Channel, pub Publisher, topic string) *BusSender {
	return &BusSender{channel: ch, pub: pub, topic: topic}
}

func (s *BusSender) Channel() models.Channel { return s.channel }

func (s *BusSender) Send(ctx context.Context, n models.Notification) error {
	return s.pub.Publish(ctx, s.topic, []byte(strconv.FormatInt(n.RuleID, 10)), n)
}

// WebhookSender POSTs the notification as JSON to the rule's URL.
type WebhookSender struct {
	client *xhttp.Client
}

func NewWebhookSender(client *xhttp.Client) *WebhookSender {
	return &WebhookSender{client: client}
}

func (s *WebhookSender) Channel() models.Channel { return models.ChannelWebhook }

func (s *WebhookSender) Send(ctx context.Context, n models.Notification) error {
	if n.WebhookURL == "" {
		return errNoWebhookURL
	}
	return s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    n.WebhookURL,
		Body:   n,
	}, nil)
}

// LogSender records a notification in the log only. It stands in for the
// bus channels when Kafka is disabled.
type LogSender struct {
	channel models.Channel
	logger  *logger.Logger
}

func NewLogSender(ch models.Channel, lgr *logger.Logger) *LogSender {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	return &LogSender{channel: ch, logger: lgr}
}

func (s *LogSender) Channel() models.Channel { return s.channel }

func (s *LogSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("notification",
		logger.String("channel", string(s.channel)),
		logger.String("user_id", n.UserID),
		logger.String("message", n.Message),
	)
	return nil
}

// Compile-time interface checks.
var (
	_ domsvc.ChannelSender = (*BusSender)(nil)
	_ domsvc.ChannelSender = (*WebhookSender)(nil)
	_ domsvc.ChannelSender = (*LogSender)(nil)
)
