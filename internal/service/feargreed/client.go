// Package feargreed reads the market-wide Fear & Greed index.
package feargreed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/service/upstream"
	"OracleEngine/pkg/config"
	xhttp "OracleEngine/pkg/http"
	"OracleEngine/pkg/logger"
)

const Source = "feargreed"

type Client struct {
	url    string
	http   *xhttp.Client
	caller *upstream.Caller
}

func New(cfg config.UpstreamConfig, hc *xhttp.Client, lgr *logger.Logger) *Client {
	if hc == nil {
		hc = xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout))
	}
	return &Client{
		url:    cfg.FearGreed.URL,
		http:   hc,
		caller: upstream.NewCaller(Source, cfg.FearGreed.PerMinute, cfg, lgr),
	}
}

type response struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// FearGreed returns the latest index value in [0, 100].
func (c *Client) FearGreed(ctx context.Context) (float64, error) {
	var value float64
	err := c.caller.Do(ctx, "index", func(ctx context.Context) error {
		var raw []byte
		if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: c.url}, &raw); err != nil {
			return err
		}
		v, err := parse(raw)
		if err != nil {
			return upstream.Permanent(err)
		}
		value = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func parse(raw []byte) (float64, error) {
	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("decode fear & greed: %w", err)
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("fear & greed: empty data")
	}
	v, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return 0, fmt.Errorf("fear & greed value %q: %w", resp.Data[0].Value, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("fear & greed value %v out of range", v)
	}
	return v, nil
}

// Compile-time interface check.
var _ drepo.SentimentProvider = (*Client)(nil)
