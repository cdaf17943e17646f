package repository

import "time"

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1m, TF1h, TF1d:
		return true
	default:
		return false
	}
}

func DefaultTimeframe() Timeframe { return TF1d }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := Timeframe(s)
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// Duration is the bucket width of tf.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1m:
		return time.Minute
	case TF1h:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// ClickHouseInterval is the toStartOfInterval argument for tf.
func (tf Timeframe) ClickHouseInterval() string {
	switch tf {
	case TF1m:
		return "INTERVAL 1 minute"
	case TF1h:
		return "INTERVAL 1 hour"
	default:
		return "INTERVAL 1 day"
	}
}
