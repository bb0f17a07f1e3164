// internal/routing/engine.go
package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"claims-triage/internal/common/logger"
	"claims-triage/internal/common/metrics"
	"claims-triage/internal/models"
)

// ==========================
// Collaborator Interfaces
// ==========================

// RuleSource provides consistent rule snapshots. Satisfied by the rule
// store.
type RuleSource interface {
	Snapshot() models.RuleSnapshot
	Version() int64
}

// ClaimStore is the slice of the claim store the engine needs for bulk
// rerouting: listing reroute snapshots and overwriting decisions.
type ClaimStore interface {
	Snapshots(ctx context.Context) ([]models.ClaimSnapshot, error)
	UpdateRouting(ctx context.Context, claimID string, decision models.RoutingDecision, note string) error
}

// Reactive is an optional external routing collaborator consulted after
// local evaluation. When it returns a decision, that decision replaces
// the local one; any error leaves the local decision untouched.
type Reactive interface {
	ProcessClaim(ctx context.Context, claim models.ClaimSnapshot, local models.RoutingDecision) (models.RoutingDecision, error)
}

// ==========================
// Engine
// ==========================

// Engine evaluates routing rules against scored claims. Every decision is
// computed against a single rule snapshot copied at call time, so a
// concurrent rule mutation can never mix two rule-set versions into one
// decision.
type Engine struct {
	rules    RuleSource
	claims   ClaimStore
	reactive Reactive

	fraudThreshold float64
	workers        int
	logger         logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClaimStore wires the persistent claim store used by bulk reroute.
func WithClaimStore(cs ClaimStore) Option {
	return func(e *Engine) { e.claims = cs }
}

// WithReactive wires the optional external routing collaborator.
func WithReactive(r Reactive) Option {
	return func(e *Engine) { e.reactive = r }
}

// WithFraudThreshold overrides the implicit SIU fraud threshold.
func WithFraudThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 {
			e.fraudThreshold = t
		}
	}
}

// WithWorkers bounds the reroute worker pool.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEngine(rules RuleSource, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		rules:          rules,
		fraudThreshold: 0.6,
		workers:        4,
		logger:         log.WithFields(map[string]interface{}{"component": "routing-engine"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RulesVersion reports the current rule-set version.
func (e *Engine) RulesVersion() int64 {
	return e.rules.Version()
}

// Route computes the routing decision for one scored claim against the
// current rule snapshot.
func (e *Engine) Route(ctx context.Context, claim models.ClaimSnapshot) models.RoutingDecision {
	start := time.Now()
	snapshot := e.rules.Snapshot()
	decision := e.evaluate(snapshot, claim)
	decision = e.consultReactive(ctx, claim, decision)
	metrics.RoutingDuration.WithLabelValues("route").Observe(time.Since(start).Seconds())
	return decision
}

// RerouteStored recomputes decisions for every stored claim against the
// given snapshot and persists the new assignments. Used as the rule
// store's change listener.
func (e *Engine) RerouteStored(ctx context.Context, snapshot models.RuleSnapshot) models.RerouteResult {
	if e.claims == nil {
		return models.RerouteResult{}
	}
	claims, err := e.claims.Snapshots(ctx)
	if err != nil {
		e.logger.Error("failed to load claim snapshots for reroute", map[string]interface{}{
			"rules_version": snapshot.Version,
			"error":         err.Error(),
		})
		return models.RerouteResult{}
	}
	return e.RerouteAll(ctx, snapshot, claims)
}

// RerouteAll recomputes decisions for the given claims against a single
// snapshot, splitting the work over a bounded pool. A failure on one claim
// is logged and skipped; the rest of the batch proceeds.
func (e *Engine) RerouteAll(ctx context.Context, snapshot models.RuleSnapshot, claims []models.ClaimSnapshot) models.RerouteResult {
	start := time.Now()

	result := models.RerouteResult{
		Decisions: make([]models.RerouteDecision, 0, len(claims)),
		Attempted: len(claims),
	}
	if len(claims) == 0 {
		return result
	}

	workers := e.workers
	if workers > len(claims) {
		workers = len(claims)
	}

	note := fmt.Sprintf("Auto-rerouted against rules version %d", snapshot.Version)

	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan models.ClaimSnapshot)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for claim := range jobs {
				decision, ok := e.rerouteOne(ctx, snapshot, claim, note)
				mu.Lock()
				if ok {
					result.Updated++
					result.Decisions = append(result.Decisions, models.RerouteDecision{
						ClaimID:     claim.ClaimID,
						RoutingTeam: decision.RoutingTeam,
						Adjuster:    decision.Adjuster,
					})
				}
				mu.Unlock()
			}
		}()
	}

	for _, claim := range claims {
		jobs <- claim
	}
	close(jobs)
	wg.Wait()

	metrics.RoutingDuration.WithLabelValues("reroute").Observe(time.Since(start).Seconds())
	e.logger.Info("bulk reroute complete", map[string]interface{}{
		"rules_version": snapshot.Version,
		"attempted":     result.Attempted,
		"updated":       result.Updated,
	})
	return result
}

func (e *Engine) rerouteOne(ctx context.Context, snapshot models.RuleSnapshot, claim models.ClaimSnapshot, note string) (models.RoutingDecision, bool) {
	if claim.ClaimID == "" {
		e.logger.Warn("skipping malformed claim snapshot", map[string]interface{}{
			"claim_number": claim.ClaimNumber,
		})
		metrics.RerouteClaims.WithLabelValues("skipped").Inc()
		return models.RoutingDecision{}, false
	}

	decision := e.evaluate(snapshot, claim)

	if e.claims != nil {
		if err := e.claims.UpdateRouting(ctx, claim.ClaimID, decision, note); err != nil {
			e.logger.Warn("failed to persist rerouted decision", map[string]interface{}{
				"claim_id": claim.ClaimID,
				"error":    err.Error(),
			})
			metrics.RerouteClaims.WithLabelValues("failed").Inc()
			return models.RoutingDecision{}, false
		}
	}

	metrics.RerouteClaims.WithLabelValues("updated").Inc()
	return decision, true
}

// ==========================
// Rule Evaluation
// ==========================

// evaluate runs the three-phase rule evaluation against a fixed snapshot.
// The snapshot's rules are already sorted by ascending priority.
func (e *Engine) evaluate(snapshot models.RuleSnapshot, claim models.ClaimSnapshot) models.RoutingDecision {
	// Phase 1: fraud-threshold rules take precedence over everything.
	for _, rule := range snapshot.Rules {
		if !rule.Enabled || rule.ConditionType != models.ConditionFraudThreshold {
			continue
		}
		if !claimTypeMatches(rule.ClaimType, claim) {
			continue
		}
		if rule.Threshold == nil || !compareThreshold(claim.FraudScore, rule.Operator, *rule.Threshold) {
			continue
		}
		return models.RoutingDecision{
			RoutingTeam:    rule.RoutingTeam,
			Adjuster:       rule.Adjuster,
			RoutingReasons: []string{fraudReason(claim.FraudScore)},
			MatchedRuleID:  rule.ID,
			RulesVersion:   snapshot.Version,
		}
	}

	// Implicit SIU override applies even when no fraud_threshold rule exists.
	if claim.FraudScore >= e.fraudThreshold {
		return models.RoutingDecision{
			RoutingTeam:    "SIU (Fraud)",
			Adjuster:       "SIU Investigator",
			RoutingReasons: []string{fraudReason(claim.FraudScore)},
			RulesVersion:   snapshot.Version,
		}
	}

	// Phase 2: remaining custom rules in ascending priority order.
	for _, rule := range snapshot.Rules {
		if !rule.Enabled || rule.ConditionType == models.ConditionFraudThreshold {
			continue
		}
		if !claimTypeMatches(rule.ClaimType, claim) {
			continue
		}
		matched, ok := e.ruleMatches(rule, claim)
		if !ok || !matched {
			continue
		}
		return models.RoutingDecision{
			RoutingTeam:    rule.RoutingTeam,
			Adjuster:       rule.Adjuster,
			RoutingReasons: []string{fmt.Sprintf("Matched rule '%s' so routed to this team", rule.Name)},
			MatchedRuleID:  rule.ID,
			RulesVersion:   snapshot.Version,
		}
	}

	// Phase 3: department/level fallback.
	return e.fallback(snapshot, claim)
}

// ruleMatches reports whether a custom rule matches the claim. The second
// return value is false for malformed rules, which are skipped with a
// warning rather than aborting evaluation.
func (e *Engine) ruleMatches(rule models.RoutingRule, claim models.ClaimSnapshot) (matched, ok bool) {
	switch rule.ConditionType {
	case models.ConditionFraud:
		return ScoreCategory(claim.FraudScore) == rule.ConditionValue, true
	case models.ConditionSeverity:
		return SeverityCategory(claim.SeverityLevel) == rule.ConditionValue, true
	case models.ConditionComplexity:
		return ComplexityCategory(claim.ComplexityScore) == rule.ConditionValue, true
	case models.ConditionClaimType:
		return string(effectiveCategory(claim)) == rule.ConditionValue, true
	case models.ConditionCombined:
		return combinedMatches(rule, claim), true
	default:
		e.logger.Warn("skipping rule with unknown condition type", map[string]interface{}{
			"rule_id":        rule.ID,
			"condition_type": string(rule.ConditionType),
		})
		return false, false
	}
}

// combinedMatches requires every specified category field to match. A
// combined rule with no category fields set never matches.
func combinedMatches(rule models.RoutingRule, claim models.ClaimSnapshot) bool {
	specified := false
	if rule.FraudCategory != "" {
		if ScoreCategory(claim.FraudScore) != rule.FraudCategory {
			return false
		}
		specified = true
	}
	if rule.SeverityCategory != "" {
		if SeverityCategory(claim.SeverityLevel) != rule.SeverityCategory {
			return false
		}
		specified = true
	}
	if rule.ComplexityCategory != "" {
		if ComplexityCategory(claim.ComplexityScore) != rule.ComplexityCategory {
			return false
		}
		specified = true
	}
	return specified
}

func (e *Engine) fallback(snapshot models.RuleSnapshot, claim models.ClaimSnapshot) models.RoutingDecision {
	level := combinedLevel(SeverityCategory(claim.SeverityLevel), ComplexityCategory(claim.ComplexityScore))

	dept := "Accident Dept"
	if effectiveCategory(claim) == models.CategoryHealth {
		dept = "Health Dept"
	}

	var adjuster string
	switch level {
	case "High":
		adjuster = "Senior Adjuster"
	case "Mid":
		adjuster = "Standard Adjuster"
	default:
		adjuster = "Junior Adjuster"
	}

	reason := fmt.Sprintf("Complexity score is %.1f and Severity score is %s so routed to this team",
		claim.ComplexityScore, claim.SeverityLevel)

	return models.RoutingDecision{
		RoutingTeam:    fmt.Sprintf("%s - %s", dept, level),
		Adjuster:       adjuster,
		RoutingReasons: []string{reason},
		RulesVersion:   snapshot.Version,
	}
}

func (e *Engine) consultReactive(ctx context.Context, claim models.ClaimSnapshot, local models.RoutingDecision) models.RoutingDecision {
	if e.reactive == nil {
		return local
	}
	decision, err := e.reactive.ProcessClaim(ctx, claim, local)
	if err != nil {
		e.logger.Warn("reactive routing collaborator failed, keeping local decision", map[string]interface{}{
			"claim_id": claim.ClaimID,
			"error":    err.Error(),
		})
		metrics.DegradedModeEvents.WithLabelValues("reactive_routing").Inc()
		return local
	}
	return decision
}

// ==========================
// Helpers
// ==========================

// effectiveCategory prefers the stored claim category; "medical" claim
// types also count as health.
func effectiveCategory(claim models.ClaimSnapshot) models.Category {
	if claim.ClaimCategory == models.CategoryHealth || claim.ClaimType == models.ClaimTypeMedical {
		return models.CategoryHealth
	}
	return models.CategoryAccident
}

func claimTypeMatches(filter string, claim models.ClaimSnapshot) bool {
	if filter == "" {
		return true
	}
	return string(effectiveCategory(claim)) == filter
}

func compareThreshold(score float64, operator string, threshold float64) bool {
	switch operator {
	case models.OpGTE:
		return score >= threshold
	case models.OpGT:
		return score > threshold
	case models.OpLTE:
		return score <= threshold
	case models.OpLT:
		return score < threshold
	default:
		return false
	}
}

func fraudReason(score float64) string {
	return fmt.Sprintf("Fraud score is %.1f%% so routed to this team", score*100)
}
