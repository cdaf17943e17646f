package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"OracleEngine/internal/domain/repository"
	pkgmetrics "OracleEngine/pkg/metrics"
)

var (
	once sync.Once

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oracle",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of market data upstream calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source", "op"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oracle",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed upstream calls by source and reason",
		},
		[]string{"source", "reason"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "oracle",
			Subsystem: "upstream",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per source (0 closed, 1 half-open, 2 open)",
		},
		[]string{"source"},
	)
)

// Register adds the upstream collectors to reg once per process.
func Register(reg prometheus.Registerer) {
	once.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(UpstreamLatency, UpstreamErrors, BreakerState)
	})
}

// Nop discards every metric; used by tests and the CLI.
type Nop struct{}

func (Nop) RecordScan(string)                {}
func (Nop) RecordAssetResult(string)         {}
func (Nop) RecordSignalSaved(string, string) {}
func (Nop) RecordSignalClosed(string)        {}
func (Nop) RecordAlert(string)               {}
func (Nop) RecordFallback(string)            {}
func (Nop) RecordModelStatus(string, string) {}
func (Nop) RecordError(string)               {}
func (Nop) RecordScore(string, int)          {}
func (Nop) RecordLastPrice(string, float64)  {}
func (Nop) RecordLatency(string, float64)    {}

// Compile-time interface check.
var (
	_ repository.Metrics = Nop{}
	_ repository.Metrics = (*pkgmetrics.Recorder)(nil)
)
