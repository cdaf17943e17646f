package features

import (
	"math"
	"sort"
	"time"

	"OracleEngine/internal/domain/models"
)

// DaysPerYear annualizes daily crypto series, which trade every day.
const DaysPerYear = 365.0

// SimpleReturns computes r_t = (P_t - P_{t-1}) / P_{t-1}. A non-positive
// previous price yields a NaN entry so callers can detect degeneracy.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev <= 0 {
			out = append(out, math.NaN())
			continue
		}
		out = append(out, (prices[i]-prev)/prev)
	}
	return out
}

// LogReturns computes log returns r_t = ln(P_t / P_{t-1}).
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// SMA is the simple moving average of the last n values.
func SMA(xs []float64, n int) float64 {
	return Mean(Tail(xs, n))
}

// Tail returns the last n values (all of xs when it is shorter).
func Tail(xs []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns using the given number of bars per year.
func RealizedVolatility(returns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(returns) < window {
		return 0
	}
	return StdDev(Tail(returns, window)) * math.Sqrt(barsPerYear)
}

// Sorted returns an ascending copy.
func Sorted(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

// OLSSlope is the least-squares slope of y on x.
func OLSSlope(x, y []float64) (float64, bool) {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0, false
	}
	mx, my := Mean(x), Mean(y)
	num, den := 0.0, 0.0
	for i := 0; i < n; i++ {
		dx := x[i] - mx
		num += dx * (y[i] - my)
		den += dx * dx
	}
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// Finite reports whether every value is a real number.
func Finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// HistoryFromCandles flattens daily bars into aligned series.
func HistoryFromCandles(symbol string, candles []models.Candle) *models.PriceHistory {
	h := &models.PriceHistory{
		Symbol:     symbol,
		Prices:     make([]float64, 0, len(candles)),
		Volumes:    make([]float64, 0, len(candles)),
		Highs:      make([]float64, 0, len(candles)),
		Lows:       make([]float64, 0, len(candles)),
		Timestamps: make([]time.Time, 0, len(candles)),
	}
	for _, c := range candles {
		h.Prices = append(h.Prices, c.Close)
		h.Volumes = append(h.Volumes, c.Volume)
		h.Highs = append(h.Highs, c.High)
		h.Lows = append(h.Lows, c.Low)
		h.Timestamps = append(h.Timestamps, c.Start)
	}
	return h
}

// DeriveRanges fills Highs and Lows from consecutive closes when a source
// only provides a close series: each bar spans its own close and the prior.
func DeriveRanges(h *models.PriceHistory) {
	if h == nil || len(h.Prices) == 0 || (len(h.Highs) == len(h.Prices) && len(h.Lows) == len(h.Prices)) {
		return
	}
	h.Highs = make([]float64, len(h.Prices))
	h.Lows = make([]float64, len(h.Prices))
	for i, p := range h.Prices {
		prev := p
		if i > 0 {
			prev = h.Prices[i-1]
		}
		h.Highs[i] = math.Max(p, prev)
		h.Lows[i] = math.Min(p, prev)
	}
}

// AlignDay truncates t to its UTC day boundary.
func AlignDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
