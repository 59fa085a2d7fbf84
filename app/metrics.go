package app

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "app"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Executed messages, by message and result.
	Messages metrics.Counter
	// Queries served, by query and result.
	Queries metrics.Counter
	// Roots accepted by vote aggregation or direct submission.
	AcceptedRoots metrics.Counter
	// Transfers paid out, by settlement path.
	Payouts metrics.Counter
	// Slow transfers whose funds stayed in the pool.
	RetainedTransfers metrics.Counter
	// Time spent executing a message, commit included.
	ExecutionTime metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Messages: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "messages_total",
			Help:      "Executed messages.",
		}, withLabels(labels, "msg", "result")).With(labelsAndValues...),
		Queries: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "queries_total",
			Help:      "Served queries.",
		}, withLabels(labels, "query", "result")).With(labelsAndValues...),
		AcceptedRoots: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "accepted_roots_total",
			Help:      "Roots written to the root cache.",
		}, withLabels(labels, "chain_id")).With(labelsAndValues...),
		Payouts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "payouts_total",
			Help:      "Transfers paid out.",
		}, withLabels(labels, "path")).With(labelsAndValues...),
		RetainedTransfers: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "retained_transfers_total",
			Help:      "Slow transfers already settled by the fast path.",
		}, labels).With(labelsAndValues...),
		ExecutionTime: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "execution_time_seconds",
			Help:      "Time spent executing a message.",
			Buckets:   stdprometheus.DefBuckets,
		}, withLabels(labels, "msg")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Messages:          discard.NewCounter(),
		Queries:           discard.NewCounter(),
		AcceptedRoots:     discard.NewCounter(),
		Payouts:           discard.NewCounter(),
		RetainedTransfers: discard.NewCounter(),
		ExecutionTime:     discard.NewHistogram(),
	}
}

func withLabels(labels []string, extra ...string) []string {
	out := make([]string, 0, len(labels)+len(extra))
	out = append(out, labels...)
	return append(out, extra...)
}
