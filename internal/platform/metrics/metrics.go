package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the credential exchange core.
type Metrics struct {
	CredentialsIssued   prometheus.Counter
	CredentialsImported prometheus.Counter
	VerificationResults *prometheus.CounterVec
	KeyTierFallbacks    *prometheus.CounterVec
	ImportOutcomes      *prometheus.CounterVec
	IssueDurationMs     prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardex_credentials_issued_total",
			Help: "Total number of credentials issued by this process",
		}),
		CredentialsImported: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardex_credentials_imported_total",
			Help: "Total number of presented credentials imported",
		}),
		VerificationResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_verifications_total",
			Help: "Credential verification outcomes by terminal status",
		}, []string{"status"}),
		KeyTierFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_key_tier_acquisitions_total",
			Help: "Signing key acquisitions by achieved tier",
		}, []string{"tier"}),
		ImportOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardex_imports_total",
			Help: "Identity import outcomes by payload kind",
		}, []string{"kind"}),
		IssueDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardex_issue_duration_ms",
			Help:    "Latency of credential issuance in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

// ObserveVerification records a verification terminal status.
func (m *Metrics) ObserveVerification(status string) {
	m.VerificationResults.WithLabelValues(status).Inc()
}

// ObserveKeyTier records the tier a key acquisition landed on.
func (m *Metrics) ObserveKeyTier(tier string) {
	m.KeyTierFallbacks.WithLabelValues(tier).Inc()
}

// ObserveImport records an import outcome by classified payload kind.
func (m *Metrics) ObserveImport(kind string) {
	m.ImportOutcomes.WithLabelValues(kind).Inc()
}
