// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_claims_processed_total",
			Help: "Total number of claims scored and routed",
		},
		[]string{"claim_type", "routing_team"},
	)

	FieldsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_fields_extracted_total",
			Help: "Documents processed by the field extractor",
		},
		[]string{"source"},
	)

	RuleMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_rule_mutations_total",
			Help: "Rule store mutations by operation",
		},
		[]string{"operation"},
	)

	RulePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_rule_persist_failures_total",
			Help: "Failed writes of the routing rule file",
		},
	)

	RerouteClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_reroute_claims_total",
			Help: "Claims handled by bulk reroute passes",
		},
		[]string{"outcome"},
	)

	RoutingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "triage_routing_duration_seconds",
			Help: "Duration of routing decisions in seconds",
		},
		[]string{"mode"},
	)

	DegradedModeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_degraded_mode_events_total",
			Help: "Degraded-mode fallbacks by component",
		},
		[]string{"component"},
	)
)
