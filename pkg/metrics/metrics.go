// Package metrics exports ledger execution counters to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

const namespace = "stakeledger"

var computeUnitBuckets = []float64{1000, 5000, 10000, 25000, 50000, 100000, 200000}

type Metrics struct {
	registry *prometheus.Registry

	Transactions  *prometheus.CounterVec
	Instructions  *prometheus.CounterVec
	ProgramErrors *prometheus.CounterVec
	ComputeUnits  prometheus.Histogram
	TotalStaked   *prometheus.GaugeVec
}

// New registers every collector on registry. A nil registry gets a fresh
// one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions processed, by result.",
		}, []string{"result"}),
		Instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Top-level instructions executed, by program and result.",
		}, []string{"program", "result"}),
		ProgramErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "program_errors_total",
			Help:      "Failed instructions, by error.",
		}, []string{"error"}),
		ComputeUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_compute_units",
			Help:      "Compute units consumed per transaction.",
			Buckets:   computeUnitBuckets,
		}),
		TotalStaked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_staked",
			Help:      "Tokens held in escrow, by state account.",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{m.Transactions, m.Instructions, m.ProgramErrors, m.ComputeUnits, m.TotalStaked} {
		err := registry.Register(c)
		if err != nil {
			klog.Warningf("unable to register metric: %s", err)
		}
	}
	return m
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *Metrics) ObserveTransaction(computeUnits uint64, err error) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(result(err)).Inc()
	m.ComputeUnits.Observe(float64(computeUnits))
}

func (m *Metrics) ObserveInstruction(program string, err error) {
	if m == nil {
		return
	}
	m.Instructions.WithLabelValues(program, result(err)).Inc()
	if err != nil {
		m.ProgramErrors.WithLabelValues(err.Error()).Inc()
	}
}

func (m *Metrics) SetTotalStaked(state string, amount uint64) {
	if m == nil {
		return
	}
	m.TotalStaked.WithLabelValues(state).Set(float64(amount))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
