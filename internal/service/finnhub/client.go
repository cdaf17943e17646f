package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/util"
)

const source = "finnhub"

var errNotConnected = errors.New("finnhub not connected")

// Client implements a MarketStream backed by the Finnhub trade WebSocket.
// Exchange symbols such as BINANCE:BTCUSDT are reported as the base asset.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *logger.Logger

	mu        sync.Mutex // guards conn writes and state
	conn      *websocket.Conn
	connected bool
}

func New(cfg config.StreamConfig, lgr *logger.Logger) *Client {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &Client{
		apiKey:         cfg.APIKey,
		websocketURL:   cfg.URL,
		symbols:        cfg.Symbols,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   ping,
		logger:         lgr.With(logger.String("component", source)),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("connected", logger.String("url", c.websocketURL))
	return nil
}

func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return errNotConnected
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.logger.Info("subscribed", logger.Strings("symbols", c.symbols))
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// decodeTrades parses one frame. Pings and other non-trade frames yield nil.
func decodeTrades(b []byte) ([]*models.PriceTick, error) {
	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m.Type != "trade" {
		return nil, nil
	}
	out := make([]*models.PriceTick, 0, len(m.Data))
	for _, d := range m.Data {
		if d.P <= 0 {
			continue
		}
		out = append(out, &models.PriceTick{
			Symbol:    util.NormalizeSymbol(d.S),
			Price:     d.P,
			Volume:    d.V,
			Timestamp: time.UnixMilli(d.T).UTC(),
			Source:    source,
		})
	}
	return out, nil
}

// Read streams ticks until ctx ends or the connection fails. Ticks are
// dropped under backpressure rather than stalling the socket.
func (c *Client) Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error) {
	ticks := make(chan *models.PriceTick, 1024)
	errs := make(chan error, 1)

	pingCtx, stopPing := context.WithCancel(ctx)
	go c.pingLoop(pingCtx)

	go func() {
		defer stopPing()
		defer close(ticks)
		defer close(errs)
		for {
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- errNotConnected
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("finnhub read: %w", err)
				return
			}
			batch, err := decodeTrades(b)
			if err != nil {
				c.logger.Debug("skip frame", logger.Error(err))
				continue
			}
			for _, t := range batch {
				select {
				case ticks <- t:
				default:
				}
			}
		}
	}()

	return ticks, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.mu.Unlock()
		}
	}
}

// Reconnect closes, waits the reconnect delay and subscribes again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	if c.reconnectDelay > 0 {
		t := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Compile-time interface check.
var _ drepo.MarketStream = (*Client)(nil)
