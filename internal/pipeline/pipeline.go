// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"claims-triage/internal/claims"
	stderrors "claims-triage/internal/common/errors"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/common/metrics"
	"claims-triage/internal/common/observability"
	"claims-triage/internal/extract"
	"claims-triage/internal/features"
	"claims-triage/internal/models"
	"claims-triage/internal/routing"
	"claims-triage/internal/scoring"
)

// requiredDocs lists the document sources an intake must carry per claim
// type.
var requiredDocs = map[string][]models.Source{
	models.ClaimTypeMedical:  {models.SourceAcord, models.SourceLoss, models.SourceHospital},
	models.ClaimTypeAccident: {models.SourceAcord, models.SourceLoss, models.SourcePolice, models.SourceRC, models.SourceDL},
}

// ClaimIntake is a complete claim submission: metadata plus the raw
// extracted text of each document, keyed by source.
type ClaimIntake struct {
	ClaimNumber string
	ClaimType   string
	Name        string
	Email       string
	Documents   map[models.Source]string
}

// DecisionIndexer mirrors decisions into a search backend.
type DecisionIndexer interface {
	IndexDecision(ctx context.Context, claim models.ClaimRecord)
}

// FraudNotifier publishes fraud-referral alerts.
type FraudNotifier interface {
	NotifyFraudReferral(ctx context.Context, claim models.ClaimRecord)
}

// Pipeline runs a claim intake end to end: validate, extract, build
// features, score, route and persist. The search index, fraud alert and
// decision cache stages are best-effort and never fail the claim.
type Pipeline struct {
	scorer   *scoring.Scorer
	engine   *routing.Engine
	store    claims.Store
	cache    redis.Cmdable
	indexer  DecisionIndexer
	notifier FraudNotifier

	cacheTTL time.Duration
	logger   logger.Logger
	obs      *observability.Observability
}

// Option configures optional pipeline stages.
type Option func(*Pipeline)

// WithCache enables the Redis decision cache.
func WithCache(cache redis.Cmdable, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = cache
		p.cacheTTL = ttl
	}
}

// WithIndexer enables decision mirroring into the search backend.
func WithIndexer(idx DecisionIndexer) Option {
	return func(p *Pipeline) { p.indexer = idx }
}

// WithNotifier enables fraud-referral alerts.
func WithNotifier(n FraudNotifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithObservability enables OpenTelemetry claim metrics.
func WithObservability(obs *observability.Observability) Option {
	return func(p *Pipeline) { p.obs = obs }
}

func New(scorer *scoring.Scorer, engine *routing.Engine, store claims.Store, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		scorer:   scorer,
		engine:   engine,
		store:    store,
		cacheTTL: 5 * time.Minute,
		logger:   log.WithFields(map[string]interface{}{"component": "claim-pipeline"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessClaim validates and runs one intake, returning the stored claim
// record.
func (p *Pipeline) ProcessClaim(ctx context.Context, intake ClaimIntake) (models.ClaimRecord, error) {
	start := time.Now()

	if err := validateIntake(intake); err != nil {
		return models.ClaimRecord{}, err
	}

	docs := p.extractDocuments(intake)
	vector := features.Build(docs)
	category := categoryFor(intake, docs)
	scores := p.scorer.Score(vector, category)

	claim := models.ClaimRecord{
		ID:          uuid.New().String(),
		ClaimNumber: strings.TrimSpace(intake.ClaimNumber),
		ClaimType:   intake.ClaimType,
		Name:        intake.Name,
		Email:       intake.Email,
		Features:    vector,
		Scores:      scores,
	}

	snapshot := models.ClaimSnapshot{
		ClaimID:         claim.ID,
		ClaimNumber:     claim.ClaimNumber,
		FraudScore:      scores.FraudScore,
		ComplexityScore: vector.ComplexityScore,
		SeverityLevel:   vector.SeverityLevel,
		ClaimCategory:   category,
		ClaimType:       intake.ClaimType,
	}
	claim.Decision = p.routeCached(ctx, snapshot)

	if err := p.store.Put(ctx, claim); err != nil {
		return models.ClaimRecord{}, err
	}

	p.afterPersist(ctx, claim)

	elapsed := time.Since(start)
	metrics.ClaimsProcessed.WithLabelValues(claim.ClaimType, claim.Decision.RoutingTeam).Inc()
	if p.obs != nil {
		p.obs.RecordClaimProcessed(ctx, claim.Decision.RoutingTeam)
		p.obs.RecordClaimDuration(ctx, elapsed, claim.Decision.RoutingTeam)
	}

	p.logger.Info("claim processed", map[string]interface{}{
		"claim_id":     claim.ID,
		"claim_number": claim.ClaimNumber,
		"claim_type":   claim.ClaimType,
		"fraud_score":  scores.FraudScore,
		"routing_team": claim.Decision.RoutingTeam,
		"duration_ms":  elapsed.Milliseconds(),
	})
	return claim, nil
}

func (p *Pipeline) extractDocuments(intake ClaimIntake) models.DocumentSet {
	var docs models.DocumentSet
	for source, text := range intake.Documents {
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := extract.Extract(text, source)
		metrics.FieldsExtracted.WithLabelValues(string(source)).Inc()
		switch source {
		case models.SourceAcord:
			docs.Acord = &fields
		case models.SourcePolice:
			docs.Police = &fields
		case models.SourceLoss:
			docs.Loss = &fields
		case models.SourceRC:
			docs.RC = &fields
		case models.SourceDL:
			docs.DL = &fields
		case models.SourceHospital:
			docs.Hospital = &fields
		}
	}
	return docs
}

// routeCached returns a previously cached decision for the same claim and
// rules version, or computes and caches a fresh one. Any cache failure
// degrades to plain routing.
func (p *Pipeline) routeCached(ctx context.Context, snapshot models.ClaimSnapshot) models.RoutingDecision {
	if p.cache == nil {
		return p.engine.Route(ctx, snapshot)
	}

	key := p.cacheKey(snapshot.ClaimID, p.engine.RulesVersion())
	if cached, err := p.cache.Get(ctx, key).Bytes(); err == nil {
		var decision models.RoutingDecision
		if json.Unmarshal(cached, &decision) == nil {
			return decision
		}
	}

	decision := p.engine.Route(ctx, snapshot)

	if payload, err := json.Marshal(decision); err == nil {
		if err := p.cache.Set(ctx, p.cacheKey(snapshot.ClaimID, decision.RulesVersion), payload, p.cacheTTL).Err(); err != nil {
			p.logger.Warn("failed to cache routing decision", map[string]interface{}{
				"claim_id": snapshot.ClaimID,
				"error":    err.Error(),
			})
			metrics.DegradedModeEvents.WithLabelValues("decision_cache").Inc()
		}
	}
	return decision
}

// cacheKey scopes cached decisions to a rule-set version, so every rule
// mutation naturally invalidates the cache.
func (p *Pipeline) cacheKey(claimID string, version int64) string {
	return fmt.Sprintf("triage:decision:%s:%d", claimID, version)
}

func (p *Pipeline) afterPersist(ctx context.Context, claim models.ClaimRecord) {
	if p.indexer != nil {
		p.indexer.IndexDecision(ctx, claim)
	}
	if p.notifier != nil && strings.HasPrefix(claim.Decision.RoutingTeam, "SIU") {
		p.notifier.NotifyFraudReferral(ctx, claim)
	}
}

func validateIntake(intake ClaimIntake) error {
	if strings.TrimSpace(intake.ClaimNumber) == "" {
		return stderrors.NewIntakeInvalidError("claim_number is required")
	}

	required, ok := requiredDocs[intake.ClaimType]
	if !ok {
		return stderrors.NewIntakeInvalidError(
			fmt.Sprintf("claim_type must be %q or %q", models.ClaimTypeMedical, models.ClaimTypeAccident))
	}

	var missing []string
	for _, source := range required {
		if strings.TrimSpace(intake.Documents[source]) == "" {
			missing = append(missing, string(source))
		}
	}
	if len(missing) > 0 {
		return stderrors.NewMissingDocumentError(
			fmt.Sprintf("%s claims require: %s", intake.ClaimType, strings.Join(missing, ", ")))
	}
	return nil
}

// categoryFor maps the declared claim type onto a scoring category,
// falling back to text detection when the type is missing.
func categoryFor(intake ClaimIntake, docs models.DocumentSet) models.Category {
	switch intake.ClaimType {
	case models.ClaimTypeMedical:
		return models.CategoryHealth
	case models.ClaimTypeAccident:
		return models.CategoryAccident
	}
	var sb strings.Builder
	for _, text := range intake.Documents {
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return extract.DetectCategory(sb.String())
}
