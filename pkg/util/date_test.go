package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestNextClock(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	next, ok := NextClock(now, []string{"08:00", "16:00"})
	if !ok || !next.Equal(time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 16:00 same day, got %v", next)
	}

	next, ok = NextClock(now, []string{"08:00"})
	if !ok || !next.Equal(time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 08:00 next day, got %v", next)
	}

	next, ok = NextClock(now, []string{"14:30"})
	if !ok || !next.Equal(time.Date(2024, 3, 2, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("an exact match must roll to the next day, got %v", next)
	}

	if _, ok := NextClock(now, []string{"bogus"}); ok {
		t.Fatalf("expected no clock for invalid input")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"btc":             "BTC",
		" eth-usd ":       "ETH",
		"BINANCE:SOLUSDT": "SOL",
		"USD":             "USD",
		"doge/usdt":       "DOGE",
	}
	for in, want := range cases {
		if got := NormalizeSymbol(in); got != want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
