package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/service/upstream"
	"OracleEngine/internal/services/features"
	"OracleEngine/pkg/config"
	xhttp "OracleEngine/pkg/http"
	"OracleEngine/pkg/logger"
)

const Source = "coingecko"

// CoinIDs maps supported tickers to CoinGecko coin ids.
var CoinIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"BNB":   "binancecoin",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"DOT":   "polkadot",
	"MATIC": "matic-network",
	"LINK":  "chainlink",
	"UNI":   "uniswap",
	"PEPE":  "pepe",
	"SHIB":  "shiba-inu",
	"ARB":   "arbitrum",
	"OP":    "optimism",
	"APT":   "aptos",
	"SUI":   "sui",
}

type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	caller  *upstream.Caller
	logger  *logger.Logger
	now     func() time.Time
}

func New(cfg config.UpstreamConfig, hc *xhttp.Client, lgr *logger.Logger) *Client {
	if hc == nil {
		hc = xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout))
	}
	if lgr == nil {
		lgr = logger.NewNop()
	}
	return &Client{
		baseURL: cfg.CoinGecko.BaseURL,
		apiKey:  cfg.CoinGecko.APIKey,
		http:    hc,
		caller:  upstream.NewCaller(Source, cfg.CoinGecko.PerMinute, cfg, lgr),
		logger:  lgr,
		now:     time.Now,
	}
}

func (c *Client) Name() string { return Source }

type usdValue struct {
	USD *float64 `json:"usd"`
}

type coinResponse struct {
	MarketData struct {
		CurrentPrice      usdValue `json:"current_price"`
		MarketCap         usdValue `json:"market_cap"`
		TotalVolume       usdValue `json:"total_volume"`
		High24h           usdValue `json:"high_24h"`
		Low24h            usdValue `json:"low_24h"`
		ATHChangePct      usdValue `json:"ath_change_percentage"`
		PriceChangePct24h *float64 `json:"price_change_percentage_24h"`
		PriceChangePct7d  *float64 `json:"price_change_percentage_7d"`
		PriceChangePct30d *float64 `json:"price_change_percentage_30d"`
	} `json:"market_data"`
	SentimentVotesUp   *float64 `json:"sentiment_votes_up_percentage"`
	SentimentVotesDown *float64 `json:"sentiment_votes_down_percentage"`
}

func (c *Client) coinID(symbol string) (string, error) {
	id, ok := CoinIDs[symbol]
	if !ok {
		return "", fmt.Errorf("%w: %s has no coingecko id", models.ErrUnsupportedAsset, symbol)
	}
	return id, nil
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"x-cg-demo-api-key": c.apiKey}
}

// get performs one paced GET and decodes the body into dest. A body that
// does not decode is not retried.
func (c *Client) get(ctx context.Context, op, path string, query map[string][]string, dest interface{}) error {
	return c.caller.Do(ctx, op, func(ctx context.Context) error {
		var raw []byte
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + path,
			Headers:     c.headers(),
			QueryParams: query,
		}, &raw)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, dest); err != nil {
			return upstream.Permanent(fmt.Errorf("decode %s: %w", op, err))
		}
		return nil
	})
}

// Observation fetches the coin's market and community data. The result has
// no sentiment index and no auxiliary scores; the gateway adds those.
func (c *Client) Observation(ctx context.Context, symbol string) (*models.MarketObservation, error) {
	id, err := c.coinID(symbol)
	if err != nil {
		return nil, err
	}
	var resp coinResponse
	err = c.get(ctx, "coin", "/coins/"+id, map[string][]string{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"true"},
		"developer_data": {"false"},
	}, &resp)
	if err != nil {
		return nil, models.NewUnavailable(symbol, Source, err)
	}
	md := resp.MarketData
	if md.CurrentPrice.USD == nil || *md.CurrentPrice.USD <= 0 {
		return nil, models.NewUnavailable(symbol, Source, fmt.Errorf("no current price"))
	}
	return &models.MarketObservation{
		Symbol:        symbol,
		Price:         *md.CurrentPrice.USD,
		Change24h:     md.PriceChangePct24h,
		Change7d:      md.PriceChangePct7d,
		Change30d:     md.PriceChangePct30d,
		Volume24h:     md.TotalVolume.USD,
		MarketCap:     md.MarketCap.USD,
		High24h:       md.High24h.USD,
		Low24h:        md.Low24h.USD,
		ATHChangePct:  md.ATHChangePct.USD,
		SocialUpPct:   resp.SentimentVotesUp,
		SocialDownPct: resp.SentimentVotesDown,
		Fidelity:      models.FidelityFull,
		Sources:       []string{Source},
		ObservedAt:    c.now().UTC(),
	}, nil
}

type chartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// History returns daily bars built from the market chart. Intraday points
// are bucketed per UTC day: close is the last print, high and low the
// extremes, volume the last rolling 24h total.
func (c *Client) History(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	id, err := c.coinID(symbol)
	if err != nil {
		return nil, err
	}
	var resp chartResponse
	err = c.get(ctx, "market_chart", "/coins/"+id+"/market_chart", map[string][]string{
		"vs_currency": {"usd"},
		"days":        {strconv.Itoa(days)},
	}, &resp)
	if err != nil {
		return nil, models.NewUnavailable(symbol, Source, err)
	}
	h := dailyBars(symbol, resp)
	if h.Len() == 0 {
		return nil, models.NewUnavailable(symbol, Source, models.ErrInsufficientHistory)
	}
	return h, nil
}

func dailyBars(symbol string, resp chartResponse) *models.PriceHistory {
	bars := make(map[int64]*models.Candle)
	for _, pt := range resp.Prices {
		if pt[1] <= 0 {
			continue
		}
		day := features.AlignDay(time.UnixMilli(int64(pt[0])))
		b, ok := bars[day.Unix()]
		if !ok {
			b = &models.Candle{Symbol: symbol, Interval: "1d", Start: day}
			bars[day.Unix()] = b
		}
		b.Apply(models.PriceTick{Price: pt[1]})
	}
	for _, pt := range resp.TotalVolumes {
		day := features.AlignDay(time.UnixMilli(int64(pt[0])))
		if b, ok := bars[day.Unix()]; ok {
			b.Volume = pt[1]
		}
	}
	keys := make([]int64, 0, len(bars))
	for k := range bars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	candles := make([]models.Candle, 0, len(keys))
	for _, k := range keys {
		candles = append(candles, *bars[k])
	}
	h := features.HistoryFromCandles(symbol, candles)
	h.Source = Source
	return h
}

// Compile-time interface check.
var _ drepo.MarketDataProvider = (*Client)(nil)
