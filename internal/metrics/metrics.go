package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VaultValuations counts vault branches by mode and outcome (ok, omitted, error).
	VaultValuations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lp_tracker_vault_valuations_total",
		Help: "Vault valuations by mode and outcome.",
	}, []string{"vault", "mode", "outcome"})

	// VaultValuationDuration observes how long each vault branch took.
	VaultValuationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lp_tracker_vault_valuation_duration_seconds",
		Help:    "Duration of a single vault valuation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"vault"})

	// PriceLookups counts price resolutions by kind (current, historical) and source.
	PriceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lp_tracker_price_lookups_total",
		Help: "Price resolutions by kind and source.",
	}, []string{"kind", "source"})

	// ReportRuns counts complete report runs.
	ReportRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lp_tracker_report_runs_total",
		Help: "Completed portfolio report runs.",
	})
)

const (
	OutcomeOK      = "ok"
	OutcomeOmitted = "omitted"
	OutcomeError   = "error"

	SourceCache   = "cache"
	SourceStatic  = "static"
	SourceNetwork = "network"
)
