package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cvbuilder/internal/capture"
)

var (
	exportTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "attempts_total",
			Help:      "导出尝试总数（按结果区分）。",
		},
		[]string{"result"},
	)

	exportRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "rejected_busy_total",
			Help:      "因已有导出进行中而被拒绝的请求数。",
		},
	)

	exportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "单次导出耗时分布（秒）。",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	exportPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "pages",
			Help:      "成功导出的页数。",
			Buckets:   []float64{1, 2, 3, 4},
		},
	)

	exportInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "in_flight",
			Help:      "正在处理的导出请求数。",
		},
	)

	persistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "failures_total",
			Help:      "持久化失败次数（按操作区分）。",
		},
		[]string{"op"},
	)
)

// ObserveExport 记录一次导出结果，作为 capture.WithObserver 的回调。
func ObserveExport(o capture.Outcome) {
	exportTotal.WithLabelValues(o.Result).Inc()
	exportDuration.Observe(o.Duration.Seconds())
	if o.Pages > 0 {
		exportPages.Observe(float64(o.Pages))
	}
}

func ExportRejected() {
	exportRejectedTotal.Inc()
}

// ExportStarted 标记导出请求开始，返回的函数在请求结束时调用。
func ExportStarted() func() {
	exportInFlight.Inc()
	return exportInFlight.Dec
}

// PersistenceFailure 作为 store.WithFailureHook 的回调。
func PersistenceFailure(op string) {
	persistenceFailures.WithLabelValues(op).Inc()
}
