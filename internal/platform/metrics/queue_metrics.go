// Package metrics はPrometheus向けのメトリクス収集を提供します。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"stock_watchlist/internal/feature/quotes/domain/entity"
	"stock_watchlist/internal/feature/quotes/usecase"
)

// QueueMetricsOpts はQueueMetricsのオプションです。
type QueueMetricsOpts struct {
	// Namespace は全メトリクス名の先頭に付与されます。
	Namespace string

	// ConstLabels は全メトリクスに付与される固定ラベルです。
	ConstLabels prometheus.Labels
}

// QueueMetrics は株価取得キューの状態をPrometheusに公開します。
type QueueMetrics struct {
	ResultsTotal    *prometheus.CounterVec
	QueueLength     prometheus.Gauge
	CallsThisMinute prometheus.Gauge
	CallsToday      prometheus.Gauge
}

var _ usecase.Metrics = (*QueueMetrics)(nil)

// NewQueueMetrics はデフォルトのオプションでQueueMetricsを生成します。
func NewQueueMetrics() *QueueMetrics {
	return NewQueueMetricsWithOpts(QueueMetricsOpts{})
}

// NewQueueMetricsWithOpts は指定されたオプションでQueueMetricsを生成します。
func NewQueueMetricsWithOpts(opts QueueMetricsOpts) *QueueMetrics {
	return &QueueMetrics{
		ResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "quote_fetch_results_total",
				Help:        "Number of processed quote requests by outcome.",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"outcome"},
		),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "quote_queue_length",
			Help:        "Number of pending quote requests, including the one in flight.",
			ConstLabels: opts.ConstLabels,
		}),
		CallsThisMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "quote_api_calls_this_minute",
			Help:        "Successful provider calls in the current minute window.",
			ConstLabels: opts.ConstLabels,
		}),
		CallsToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "quote_api_calls_today",
			Help:        "Successful provider calls in the current day window.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

// MustRegister はレジストリにメトリクスを登録します。失敗時はpanicします。
func (m *QueueMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.ResultsTotal,
		m.QueueLength,
		m.CallsThisMinute,
		m.CallsToday,
	)
}

// ObserveOutcome は処理結果の件数を加算します。
func (m *QueueMetrics) ObserveOutcome(outcome entity.Outcome) {
	m.ResultsTotal.WithLabelValues(outcome.String()).Inc()
}

// SetQueueLength は処理待ちの件数を設定します。
func (m *QueueMetrics) SetQueueLength(n int) {
	m.QueueLength.Set(float64(n))
}

// SetQuotaUsage はクォータの使用数を設定します。
func (m *QueueMetrics) SetQuotaUsage(callsThisMinute, callsToday int) {
	m.CallsThisMinute.Set(float64(callsThisMinute))
	m.CallsToday.Set(float64(callsToday))
}
