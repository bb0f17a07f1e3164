// internal/search/indexer.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"claims-triage/internal/common/database"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/common/metrics"
	"claims-triage/internal/models"
)

// decisionDocument is the flattened shape indexed per routing decision.
type decisionDocument struct {
	ClaimID       string    `json:"claim_id"`
	ClaimNumber   string    `json:"claim_number"`
	ClaimType     string    `json:"claim_type"`
	RoutingTeam   string    `json:"routing_team"`
	Adjuster      string    `json:"adjuster"`
	Reasons       []string  `json:"routing_reasons"`
	MatchedRuleID string    `json:"matched_rule_id,omitempty"`
	RulesVersion  int64     `json:"rules_version"`
	FraudScore    float64   `json:"fraud_score"`
	SeverityLevel string    `json:"severity_level"`
	IndexedAt     time.Time `json:"indexed_at"`
}

// Indexer mirrors routing decisions into Elasticsearch for ad-hoc
// analysis. Indexing is best-effort: a failure is logged and counted but
// never surfaced to the claim pipeline.
type Indexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	return &Indexer{
		es:     es,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "decision-indexer"}),
	}
}

// IndexDecision writes the decision document for a claim, keyed by claim
// id so re-routes overwrite the previous decision.
func (i *Indexer) IndexDecision(ctx context.Context, claim models.ClaimRecord) {
	if i == nil || i.es == nil {
		return
	}

	doc := decisionDocument{
		ClaimID:       claim.ID,
		ClaimNumber:   claim.ClaimNumber,
		ClaimType:     claim.ClaimType,
		RoutingTeam:   claim.Decision.RoutingTeam,
		Adjuster:      claim.Decision.Adjuster,
		Reasons:       claim.Decision.RoutingReasons,
		MatchedRuleID: claim.Decision.MatchedRuleID,
		RulesVersion:  claim.Decision.RulesVersion,
		FraudScore:    claim.Scores.FraudScore,
		SeverityLevel: string(claim.Features.SeverityLevel),
		IndexedAt:     time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		i.degraded(claim.ID, err)
		return
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithDocumentID(claim.ID),
		i.es.Client.Index.WithContext(ctx),
	)
	if err != nil {
		i.degraded(claim.ID, err)
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.degraded(claim.ID, fmt.Errorf("index response: %s", res.Status()))
	}
}

func (i *Indexer) degraded(claimID string, err error) {
	i.logger.Warn("failed to index routing decision", map[string]interface{}{
		"claim_id": claimID,
		"index":    i.index,
		"error":    err.Error(),
	})
	metrics.DegradedModeEvents.WithLabelValues("search_index").Inc()
}
