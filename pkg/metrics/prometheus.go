package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	scans        *prometheus.CounterVec
	assetResults *prometheus.CounterVec
	signals      *prometheus.CounterVec
	closed       *prometheus.CounterVec
	alerts       *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	modelStatus  *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastScore    *prometheus.GaugeVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_scans_total",
			Help: "Universe scans by trigger",
		}, []string{"trigger"}),
		assetResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_scan_assets_total",
			Help: "Per-asset scan outcomes (saved, skipped, error)",
		}, []string{"outcome"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_signals_saved_total",
			Help: "Persisted signals by asset and type",
		}, []string{"asset", "type"}),
		closed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_signals_closed_total",
			Help: "Signals moved to a terminal state",
		}, []string{"status"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_alerts_fired_total",
			Help: "Alert events emitted by trigger type",
		}, []string{"trigger"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_gateway_fallbacks_total",
			Help: "Gateway requests served from degraded or cached data",
		}, []string{"source"}),
		modelStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_quant_model_results_total",
			Help: "Quant model evaluations by status",
		}, []string{"model", "status"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "oracle_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
		lastScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oracle_last_score",
			Help: "Most recent Oracle Score per asset",
		}, []string{"asset"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oracle_last_price",
			Help: "Last observed price per asset",
		}, []string{"asset"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oracle_operation_duration_seconds",
			Help:    "Duration of engine operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordScan(trigger string) { r.scans.WithLabelValues(trigger).Inc() }

func (r *Recorder) RecordAssetResult(outcome string) { r.assetResults.WithLabelValues(outcome).Inc() }

func (r *Recorder) RecordSignalSaved(asset, signalType string) {
	r.signals.WithLabelValues(asset, signalType).Inc()
}

func (r *Recorder) RecordSignalClosed(status string) { r.closed.WithLabelValues(status).Inc() }

func (r *Recorder) RecordAlert(trigger string) { r.alerts.WithLabelValues(trigger).Inc() }

func (r *Recorder) RecordFallback(source string) { r.fallbacks.WithLabelValues(source).Inc() }

func (r *Recorder) RecordModelStatus(model, status string) {
	r.modelStatus.WithLabelValues(model, status).Inc()
}

func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

func (r *Recorder) RecordScore(asset string, score int) {
	r.lastScore.WithLabelValues(asset).Set(float64(score))
}

func (r *Recorder) RecordLastPrice(asset string, price float64) {
	r.lastPrice.WithLabelValues(asset).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
