// internal/models/rule.go
package models

import "time"

// ConditionType determines how a routing rule matches a claim.
type ConditionType string

const (
	ConditionFraud          ConditionType = "fraud"
	ConditionSeverity       ConditionType = "severity"
	ConditionComplexity     ConditionType = "complexity"
	ConditionClaimType      ConditionType = "claim_type"
	ConditionFraudThreshold ConditionType = "fraud_threshold"
	ConditionCombined       ConditionType = "combined"
)

// Comparison operators for fraud_threshold rules.
const (
	OpGTE = ">="
	OpGT  = ">"
	OpLTE = "<="
	OpLT  = "<"
)

// RoutingRule is one entry of the ordered routing rule set. Lower priority
// values are evaluated first.
type RoutingRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`

	ConditionType  ConditionType `json:"condition_type"`
	ConditionValue string        `json:"condition_value,omitempty"`

	// ClaimType restricts the rule to one category; empty matches all.
	ClaimType string `json:"claim_type,omitempty"`

	RoutingTeam string `json:"routing_team"`
	Adjuster    string `json:"adjuster"`

	// Only meaningful for fraud_threshold rules.
	Operator  string   `json:"operator,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`

	// Only meaningful for combined rules; empty fields are not compared.
	FraudCategory      string `json:"fraud_category,omitempty"`
	SeverityCategory   string `json:"severity_category,omitempty"`
	ComplexityCategory string `json:"complexity_category,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleUpdate is a partial rule mutation; nil fields are left untouched.
// ID and CreatedAt can never be changed through an update.
type RuleUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	Priority    *int    `json:"priority,omitempty"`

	ConditionType  *ConditionType `json:"condition_type,omitempty"`
	ConditionValue *string        `json:"condition_value,omitempty"`
	ClaimType      *string        `json:"claim_type,omitempty"`

	RoutingTeam *string `json:"routing_team,omitempty"`
	Adjuster    *string `json:"adjuster,omitempty"`

	Operator  *string  `json:"operator,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`

	FraudCategory      *string `json:"fraud_category,omitempty"`
	SeverityCategory   *string `json:"severity_category,omitempty"`
	ComplexityCategory *string `json:"complexity_category,omitempty"`
}

// RuleSnapshot is an immutable copy of the rule set at one version, sorted
// by ascending priority. Routing evaluates against a snapshot so concurrent
// mutations can never mix two versions into one decision.
type RuleSnapshot struct {
	Rules   []RoutingRule `json:"rules"`
	Version int64         `json:"version"`
}
