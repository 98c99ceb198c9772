package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Default is the registry used by the CLI.
var Default = New()

// Metrics holds the Kaitiaki collectors and the registry they belong to.
type Metrics struct {
	Registry *prometheus.Registry

	// ItemsIssued counts sealed blocks.
	ItemsIssued prometheus.Counter

	// Verifications counts verification attempts by outcome.
	Verifications *prometheus.CounterVec

	// MiningAttempts is the number of hashes tried per sealed block.
	MiningAttempts prometheus.Histogram

	// MiningDuration is the wall time spent sealing a block.
	MiningDuration prometheus.Histogram
}

// New creates a Metrics with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ItemsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kaitiaki_items_issued_total",
			Help: "Items issued and sealed into the ledger.",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kaitiaki_verifications_total",
			Help: "Verification attempts by outcome.",
		}, []string{"outcome"}),
		MiningAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kaitiaki_mining_attempts",
			Help:    "Hashes computed to seal one block.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
		MiningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kaitiaki_mining_duration_seconds",
			Help:    "Time spent sealing one block.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.Registry.MustRegister(m.ItemsIssued, m.Verifications, m.MiningAttempts, m.MiningDuration)
	return m
}

// ObserveIssue records a sealed block.
func (m *Metrics) ObserveIssue(attempts uint64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ItemsIssued.Inc()
	m.MiningAttempts.Observe(float64(attempts))
	m.MiningDuration.Observe(elapsed.Seconds())
}

// ObserveVerification records one verification outcome.
func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// WritePrometheus writes the registry in the Prometheus text format.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile atomically writes the registry to path. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
