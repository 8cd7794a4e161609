package memory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the in-process Prometheus collectors the request handlers
// update after every composed bundle and applied commit (Compose and
// HandleCommit themselves do not touch them). There is no HTTP exposition —
// the spec forbids network transport — so these are only ever read back by
// dumping the registry as text (see cmd/rwm's stats subcommand).
type Metrics struct {
	BundlesComposed prometheus.Counter
	BundleTokensUsed prometheus.Histogram
	CommitsApplied  prometheus.Counter
	ArtifactsPruned prometheus.Counter
}

// NewMetrics registers the collectors against reg and returns the handle
// the request handlers update.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BundlesComposed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rwm_bundles_composed_total",
			Help: "Number of rehydration bundles composed.",
		}),
		BundleTokensUsed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rwm_bundle_tokens_used",
			Help:    "Token budget consumed per composed bundle.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		}),
		CommitsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rwm_commits_applied_total",
			Help: "Number of state-frame commits applied.",
		}),
		ArtifactsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rwm_artifacts_pruned_total",
			Help: "Number of orphaned artifact bodies pruned.",
		}),
	}
	reg.MustRegister(m.BundlesComposed, m.BundleTokensUsed, m.CommitsApplied, m.ArtifactsPruned)
	return m
}
