// internal/models/claim.go
package models

import "time"

// RoutingDecision is the team/adjuster assignment for one claim. It is
// overwritten whole on every (re)routing, never merged.
type RoutingDecision struct {
	RoutingTeam    string   `json:"routing_team"`
	Adjuster       string   `json:"adjuster"`
	RoutingReasons []string `json:"routing_reasons"`
	MatchedRuleID  string   `json:"matched_rule_id,omitempty"`
	RulesVersion   int64    `json:"rules_version"`
}

// ClaimRecord is the persisted state of one claim after scoring and routing.
type ClaimRecord struct {
	ID          string `json:"id"`
	ClaimNumber string `json:"claim_number"`
	ClaimType   string `json:"claim_type"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`

	Features FeatureVector   `json:"features"`
	Scores   ScoreResult     `json:"scores"`
	Decision RoutingDecision `json:"decision"`

	// Notes accumulate reassignment context; routing overwrites the
	// decision but never drops notes.
	Notes []string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClaimSnapshot is the minimal stored state needed to re-route a claim when
// the rule set changes. Rerouting never re-runs extraction.
type ClaimSnapshot struct {
	ClaimID         string        `json:"claim_id"`
	ClaimNumber     string        `json:"claim_number"`
	FraudScore      float64       `json:"fraud_score"`
	ComplexityScore float64       `json:"complexity_score"`
	SeverityLevel   SeverityLevel `json:"severity_level"`
	ClaimCategory   Category      `json:"claim_category"`
	ClaimType       string        `json:"claim_type,omitempty"`
}

// RerouteDecision is the per-claim outcome of a bulk reroute pass.
type RerouteDecision struct {
	ClaimID     string `json:"claim_id"`
	RoutingTeam string `json:"routing_team"`
	Adjuster    string `json:"adjuster"`
}

// RerouteResult summarizes one bulk reroute pass. Attempted counts every
// claim in the batch, Updated only those whose store write succeeded.
type RerouteResult struct {
	Decisions []RerouteDecision `json:"rerouted_claims"`
	Attempted int               `json:"attempted"`
	Updated   int               `json:"updated"`
}
