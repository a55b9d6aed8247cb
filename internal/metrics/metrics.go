package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Scored records by entry point and tier",
		},
		[]string{"source", "tier"}, // single|batch|stream , High|Medium|Low
	)

	RejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_rejected_records_total",
			Help: "Records rejected before inference, by entry point and error kind",
		},
		[]string{"source", "kind"}, // MissingField|TypeMismatch|UnknownCategory
	)

	BatchRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_batch_rows",
			Help:    "Rows per batch request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_cache_lookups_total",
			Help: "Single-record prediction cache lookups",
		},
		[]string{"result"}, // hit|miss|error
	)

	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_retention_alerts_total",
			Help: "High-risk alerts posted to retention targets",
		},
		[]string{"result"}, // sent|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		PredictionsTotal,
		RejectedTotal,
		BatchRows,
		CacheLookups,
		AlertsTotal,
	)
}
