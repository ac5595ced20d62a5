package parser

import "github.com/prometheus/client_golang/prometheus"

// Run outcome labels for Metrics.RunsTotal.
const (
	outcomeCompleted = "completed"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
)

// Metrics holds the parser's Prometheus instruments. All Engine and
// Service metric hooks are nil-safe, so instrumentation is opt-in.
type Metrics struct {
	RunsActive    prometheus.Gauge
	RunsTotal     *prometheus.CounterVec
	RecordsParsed prometheus.Counter
	ParseErrors   prometheus.Counter
	RunDuration   prometheus.Histogram
}

// NewMetrics creates the parser metric set. Call Register to attach it to
// a Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recordstream",
			Subsystem: "parser",
			Name:      "runs_active",
			Help:      "Number of parse runs currently executing",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recordstream",
			Subsystem: "parser",
			Name:      "runs_total",
			Help:      "Total parse runs by outcome",
		}, []string{"outcome"}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recordstream",
			Subsystem: "parser",
			Name:      "records_parsed_total",
			Help:      "Total records parsed successfully",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recordstream",
			Subsystem: "parser",
			Name:      "parse_errors_total",
			Help:      "Total per-line parse errors",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recordstream",
			Subsystem: "parser",
			Name:      "run_duration_seconds",
			Help:      "Duration of completed parse runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register registers all instruments with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.RunsActive,
		m.RunsTotal,
		m.RecordsParsed,
		m.ParseErrors,
		m.RunDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
