package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	jobsTotal *prometheus.CounterVec
	rowsTotal *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	active    prometheus.GaugeFunc
}

func newMetrics(reg prometheus.Registerer, limiter *ImportLimiter) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sheetimport",
			Name:      "import_jobs_total",
			Help:      "Import jobs by terminal status.",
		}, []string{"status"}),
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sheetimport",
			Name:      "import_rows_total",
			Help:      "Submitted rows by outcome.",
		}, []string{"result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sheetimport",
			Name:      "import_duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05,
				0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30,
			},
		}, []string{"status"}),
		active: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sheetimport",
			Name:      "imports_active",
			Help:      "Import runs currently holding a limiter slot.",
		}, func() float64 {
			return float64(limiter.Status().Active)
		}),
	}
}

func (m *metrics) observe(out RunOutcome, elapsed time.Duration) {
	status := string(out.Status)
	m.jobsTotal.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.rowsTotal.WithLabelValues("inserted").Add(float64(out.Summary.SuccessCount))
	m.rowsTotal.WithLabelValues("rejected").Add(float64(out.Summary.FailureCount))
}
