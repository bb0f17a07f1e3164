// internal/claims/store.go
package claims

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	stderrors "claims-triage/internal/common/errors"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
)

// ListFilter narrows a claim listing. Zero values mean "no filter";
// Limit <= 0 means unbounded.
type ListFilter struct {
	Queue    string
	Severity string
	Search   string
	Limit    int
	Offset   int
}

// Store is the claim persistence contract. Implementations must make
// UpdateRouting an idempotent overwrite keyed by claim id so overlapping
// reroute passes converge.
type Store interface {
	Put(ctx context.Context, claim models.ClaimRecord) error
	Get(ctx context.Context, claimID string) (models.ClaimRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.ClaimRecord, error)
	UpdateRouting(ctx context.Context, claimID string, decision models.RoutingDecision, note string) error
	Snapshots(ctx context.Context) ([]models.ClaimSnapshot, error)
	QueueSummary(ctx context.Context) (map[string]int, error)
}

// MemoryStore keeps claims in process memory. It is the authoritative
// store when no database is configured and the test double everywhere
// else.
type MemoryStore struct {
	mu     sync.RWMutex
	claims map[string]models.ClaimRecord
	logger logger.Logger
	now    func() time.Time
}

func NewMemoryStore(log logger.Logger) *MemoryStore {
	return &MemoryStore{
		claims: make(map[string]models.ClaimRecord),
		logger: log.WithFields(map[string]interface{}{"component": "claim-store"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Put(ctx context.Context, claim models.ClaimRecord) error {
	if claim.ID == "" {
		return stderrors.NewClaimStoreError("claim id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.claims {
		if id != claim.ID && existing.ClaimNumber == claim.ClaimNumber {
			return stderrors.NewDuplicateClaimError(claim.ClaimNumber)
		}
	}

	now := s.now()
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = now
	}
	claim.UpdatedAt = now
	s.claims[claim.ID] = claim
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, claimID string) (models.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	claim, ok := s.claims[claimID]
	if !ok {
		return models.ClaimRecord{}, stderrors.NewClaimNotFoundError(claimID)
	}
	return claim, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]models.ClaimRecord, error) {
	s.mu.RLock()
	all := make([]models.ClaimRecord, 0, len(s.claims))
	for _, claim := range s.claims {
		all = append(all, claim)
	}
	s.mu.RUnlock()

	// Newest first; claim id breaks ties so pagination is stable.
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	filtered := all[:0]
	for _, claim := range all {
		if matchesFilter(claim, filter) {
			filtered = append(filtered, claim)
		}
	}

	return paginate(filtered, filter.Offset, filter.Limit), nil
}

func (s *MemoryStore) UpdateRouting(ctx context.Context, claimID string, decision models.RoutingDecision, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return stderrors.NewClaimNotFoundError(claimID)
	}

	claim.Decision = decision
	if note != "" {
		claim.Notes = append(claim.Notes, note)
	}
	claim.UpdatedAt = s.now()
	s.claims[claimID] = claim
	return nil
}

func (s *MemoryStore) Snapshots(ctx context.Context) ([]models.ClaimSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ClaimSnapshot, 0, len(s.claims))
	for _, claim := range s.claims {
		out = append(out, snapshotOf(claim))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out, nil
}

func (s *MemoryStore) QueueSummary(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := make(map[string]int)
	for _, claim := range s.claims {
		team := claim.Decision.RoutingTeam
		if team == "" {
			team = "Unassigned"
		}
		summary[team]++
	}
	return summary, nil
}

func snapshotOf(claim models.ClaimRecord) models.ClaimSnapshot {
	return models.ClaimSnapshot{
		ClaimID:         claim.ID,
		ClaimNumber:     claim.ClaimNumber,
		FraudScore:      claim.Scores.FraudScore,
		ComplexityScore: claim.Features.ComplexityScore,
		SeverityLevel:   claim.Features.SeverityLevel,
		ClaimCategory:   claim.Scores.Category,
		ClaimType:       claim.ClaimType,
	}
}

func matchesFilter(claim models.ClaimRecord, filter ListFilter) bool {
	if filter.Queue != "" && !strings.EqualFold(claim.Decision.RoutingTeam, filter.Queue) {
		return false
	}
	if filter.Severity != "" && !strings.EqualFold(string(claim.Features.SeverityLevel), filter.Severity) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(claim.ClaimNumber), needle) &&
			!strings.Contains(strings.ToLower(claim.Name), needle) &&
			!strings.Contains(strings.ToLower(claim.Email), needle) {
			return false
		}
	}
	return true
}

func paginate(claims []models.ClaimRecord, offset, limit int) []models.ClaimRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(claims) {
		return []models.ClaimRecord{}
	}
	claims = claims[offset:]
	if limit > 0 && limit < len(claims) {
		claims = claims[:limit]
	}
	out := make([]models.ClaimRecord, len(claims))
	copy(out, claims)
	return out
}
