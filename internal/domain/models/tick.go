package models

import "time"

// PriceTick is one trade print from the streaming feed.
type PriceTick struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// Candle is an OHLCV bar aggregated from ticks.
type Candle struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Start    time.Time `json:"start"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Count    int       `json:"count"`
}

// Apply folds a tick into the bar.
func (c *Candle) Apply(t PriceTick) {
	if c.Count == 0 {
		c.Open, c.High, c.Low = t.Price, t.Price, t.Price
	}
	if t.Price > c.High {
		c.High = t.Price
	}
	if t.Price < c.Low {
		c.Low = t.Price
	}
	c.Close = t.Price
	c.Volume += t.Volume
	c.Count++
}
