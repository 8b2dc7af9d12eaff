package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartItemsTotal counts cart line mutations by operation and result.
	CartItemsTotal *prometheus.CounterVec
	// StockRejectionsTotal counts availability refusals by origin.
	StockRejectionsTotal *prometheus.CounterVec
	// SettlementCloseTotal counts day-close attempts by result.
	SettlementCloseTotal *prometheus.CounterVec
	// SettlementCloseDuration records day-close latency in milliseconds.
	SettlementCloseDuration prometheus.Histogram
	// ReportJobsTotal counts daily report jobs processed by the worker.
	ReportJobsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_total",
			Help:      "Count of cart line mutations by operation and result.",
		}, []string{"op", "result"})
		StockRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Count of requests refused for insufficient stock.",
		}, []string{"origin"})
		SettlementCloseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_close_total",
			Help:      "Count of day-close attempts by result.",
		}, []string{"result"})
		SettlementCloseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_close_duration_ms",
			Help:      "Latency of day-close operations in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		ReportJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_jobs_total",
			Help:      "Count of daily report jobs processed by the worker.",
		}, []string{"result"})

		CartItemsTotal = registerOrReuse(reg, CartItemsTotal)
		StockRejectionsTotal = registerOrReuse(reg, StockRejectionsTotal)
		SettlementCloseTotal = registerOrReuse(reg, SettlementCloseTotal)
		SettlementCloseDuration = registerOrReuse(reg, SettlementCloseDuration)
		ReportJobsTotal = registerOrReuse(reg, ReportJobsTotal)
	})
}
