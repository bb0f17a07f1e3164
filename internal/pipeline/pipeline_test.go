// internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-triage/internal/claims"
	stderrors "claims-triage/internal/common/errors"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
	"claims-triage/internal/routing"
	"claims-triage/internal/rules"
	"claims-triage/internal/scoring"
)

// ==========================
// Test Doubles
// ==========================

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []models.ClaimRecord
}

func (f *fakeIndexer) IndexDecision(ctx context.Context, claim models.ClaimRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, claim)
}

type fakeNotifier struct {
	mu       sync.Mutex
	referred []models.ClaimRecord
}

func (f *fakeNotifier) NotifyFraudReferral(ctx context.Context, claim models.ClaimRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.referred = append(f.referred, claim)
}

// fixedPredictor pins the model probability so routing outcomes are exact.
type fixedPredictor struct {
	proba float64
	label int
}

func (p *fixedPredictor) Predict(row []float64) (float64, int, error) {
	return p.proba, p.label, nil
}

// ==========================
// Test Helper Functions
// ==========================

type testDeps struct {
	store  *claims.MemoryStore
	rules  *rules.Store
	engine *routing.Engine
}

func newTestPipeline(t *testing.T, predictor scoring.Predictor, opts ...Option) (*Pipeline, *testDeps) {
	t.Helper()
	log := logger.NewTestLogger(t)

	ruleStore := rules.NewStore(filepath.Join(t.TempDir(), "rules.json"), log)
	ruleStore.SeedDefaults()

	store := claims.NewMemoryStore(log)
	engine := routing.NewEngine(ruleStore, log, routing.WithClaimStore(store))
	scorer := scoring.New(predictor, log)

	deps := &testDeps{store: store, rules: ruleStore, engine: engine}
	return New(scorer, engine, store, log, opts...), deps
}

func medicalIntake(number string) ClaimIntake {
	return ClaimIntake{
		ClaimNumber: number,
		ClaimType:   models.ClaimTypeMedical,
		Name:        "Ravi Kumar",
		Email:       "ravi.kumar@example.com",
		Documents: map[models.Source]string{
			models.SourceAcord: `ACORD Claim Form
Claim No: CLM-2024-05-0101
Policy No: POL-44120
Incident Date: 2024-05-02
Patient ID: PT-9001
Hospital Code: HSP-22
Claim Amount: $12,500
`,
			models.SourceLoss: `Loss Description Statement
Claim No: CLM-2024-0101
Incident Date: 2024-05-02
Patient ID: PT-9001
Hospital Code: HSP-22
Estimated Amount: $12,500
`,
			models.SourceHospital: `Hospital Discharge Summary
Patient ID: PT-9001
Hospital Code: HSP-22
Admission Date: 2024-05-02
Treatment for minor injury
`,
		},
	}
}

func accidentIntake(number string) ClaimIntake {
	return ClaimIntake{
		ClaimNumber: number,
		ClaimType:   models.ClaimTypeAccident,
		Name:        "Anita Sharma",
		Email:       "anita@example.com",
		Documents: map[models.Source]string{
			models.SourceAcord: `ACORD Claim Form
Claim No: CLM-2024-03-0042
Incident Date: 2024-03-15
Location: 12 Main Street Springfield
Registration: KA-01-AB-1234
Injuries Reported: No
Estimated Damage Cost: $45,000
`,
			models.SourceLoss: `Loss Description Statement
Claim No: CLM-2024-0042
Incident Date: 2024-03-15
Location: 12 Main Street Springfield
Registration: KA-01-AB-1234
Injuries Reported: No
Estimated Amount: $45,000
`,
			models.SourcePolice: `First Information Report PR-10234
Claim reference CLM-2024-0042
Incident Date: 15/03/2024
Location: 12 Main Street Springfield
Registration: KA-01-AB-1234
Injuries Reported: No
`,
			models.SourceRC: `Registration Certificate
Registration: KA-01-AB-1234
RC No: RC-556677
`,
			models.SourceDL: `Driving Licence
DL No: DL-112233
`,
		},
	}
}

func errorCode(err error) stderrors.ErrorCode {
	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// ==========================
// Intake Validation Tests
// ==========================

func TestProcessClaim_RequiresClaimNumber(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	intake := medicalIntake("  ")
	_, err := p.ProcessClaim(context.Background(), intake)
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeIntakeInvalid, errorCode(err))
}

func TestProcessClaim_RejectsUnknownClaimType(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	intake := medicalIntake("CLM-2024-0101")
	intake.ClaimType = "property"
	_, err := p.ProcessClaim(context.Background(), intake)
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeIntakeInvalid, errorCode(err))
}

func TestProcessClaim_ReportsMissingDocuments(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	intake := accidentIntake("CLM-2024-0042")
	delete(intake.Documents, models.SourcePolice)
	intake.Documents[models.SourceDL] = "   "

	_, err := p.ProcessClaim(context.Background(), intake)
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeMissingDocument, errorCode(err))
	assert.Contains(t, err.(*stderrors.StandardError).Details, "police")
	assert.Contains(t, err.(*stderrors.StandardError).Details, "dl")
}

// ==========================
// End-to-End Pipeline Tests
// ==========================

func TestProcessClaim_MedicalEndToEnd(t *testing.T) {
	p, deps := newTestPipeline(t, nil)

	claim, err := p.ProcessClaim(context.Background(), medicalIntake(" CLM-2024-0101 "))
	require.NoError(t, err)

	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, "CLM-2024-0101", claim.ClaimNumber)
	assert.Equal(t, models.CategoryHealth, claim.Scores.Category)
	assert.NotEmpty(t, claim.Decision.RoutingTeam)
	assert.NotEmpty(t, claim.Decision.RoutingReasons)

	stored, err := deps.store.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.Decision, stored.Decision)
}

func TestProcessClaim_ConsistentAccidentGoesToFastTrack(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	claim, err := p.ProcessClaim(context.Background(), accidentIntake("CLM-2024-0042"))
	require.NoError(t, err)

	// Five matching documents produce a near-zero inconsistency score.
	assert.Less(t, claim.Scores.FraudScore, 0.34)
	assert.Equal(t, "Fast Track", claim.Decision.RoutingTeam)
	assert.NotEmpty(t, claim.Decision.MatchedRuleID)
}

func TestProcessClaim_HighFraudIsReferredToSIU(t *testing.T) {
	notifier := &fakeNotifier{}
	indexer := &fakeIndexer{}
	p, _ := newTestPipeline(t, &fixedPredictor{proba: 0.92, label: 1},
		WithNotifier(notifier), WithIndexer(indexer))

	claim, err := p.ProcessClaim(context.Background(), accidentIntake("CLM-2024-0042"))
	require.NoError(t, err)

	assert.Equal(t, 0.92, claim.Scores.FraudScore)
	assert.True(t, claim.Scores.ModelBacked)
	assert.Equal(t, "SIU (Fraud)", claim.Decision.RoutingTeam)

	require.Len(t, notifier.referred, 1)
	assert.Equal(t, claim.ID, notifier.referred[0].ID)
	require.Len(t, indexer.indexed, 1)
	assert.Equal(t, claim.ID, indexer.indexed[0].ID)
}

func TestProcessClaim_LowFraudIsNotReferred(t *testing.T) {
	notifier := &fakeNotifier{}
	p, _ := newTestPipeline(t, nil, WithNotifier(notifier))

	_, err := p.ProcessClaim(context.Background(), accidentIntake("CLM-2024-0042"))
	require.NoError(t, err)
	assert.Empty(t, notifier.referred)
}

func TestProcessClaim_DuplicateClaimNumberRejected(t *testing.T) {
	p, _ := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.ProcessClaim(ctx, accidentIntake("CLM-2024-0042"))
	require.NoError(t, err)

	_, err = p.ProcessClaim(ctx, accidentIntake("CLM-2024-0042"))
	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeDuplicateClaim, errorCode(err))
}

// ==========================
// Decision Cache Tests
// ==========================

func TestProcessClaim_CachesDecisionPerRulesVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	p, _ := newTestPipeline(t, nil, WithCache(cache, time.Minute))

	claim, err := p.ProcessClaim(context.Background(), accidentIntake("CLM-2024-0042"))
	require.NoError(t, err)

	key := fmt.Sprintf("triage:decision:%s:%d", claim.ID, claim.Decision.RulesVersion)
	payload, err := mr.Get(key)
	require.NoError(t, err)

	var cached models.RoutingDecision
	require.NoError(t, json.Unmarshal([]byte(payload), &cached))
	assert.Equal(t, claim.Decision, cached)
}

func TestRouteCached_HitsUntilRulesVersionBumps(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	p, deps := newTestPipeline(t, nil, WithCache(cache, time.Minute))

	snapshot := models.ClaimSnapshot{
		ClaimID:         "c1",
		ClaimNumber:     "CLM-2024-0042",
		FraudScore:      0.1,
		SeverityLevel:   models.SeverityLow,
		ComplexityScore: 1.0,
		ClaimCategory:   models.CategoryAccident,
	}

	first := p.routeCached(context.Background(), snapshot)
	second := p.routeCached(context.Background(), snapshot)
	assert.Equal(t, first, second)

	// A rule mutation bumps the version, so the cached decision no longer
	// applies and the new rule takes effect.
	_, err := deps.rules.Create(rules.CreateRequest{
		Name:           "Everything Low To Escalations",
		Priority:       intPointer(0),
		ConditionType:  models.ConditionFraud,
		ConditionValue: "low",
		RoutingTeam:    "Escalations",
		Adjuster:       "Senior Adjuster",
	})
	require.NoError(t, err)

	third := p.routeCached(context.Background(), snapshot)
	assert.NotEqual(t, first.RulesVersion, third.RulesVersion)
	assert.Equal(t, "Escalations", third.RoutingTeam)
}

func intPointer(i int) *int { return &i }

func TestProcessClaim_CacheFailureDegradesToPlainRouting(t *testing.T) {
	cache, mock := redismock.NewClientMock()
	mock.Regexp().ExpectGet(`triage:decision:.*`).RedisNil()
	mock.Regexp().ExpectSet(`triage:decision:.*`, `.*`, time.Minute).SetErr(errors.New("redis down"))

	p, _ := newTestPipeline(t, nil, WithCache(cache, time.Minute))

	claim, err := p.ProcessClaim(context.Background(), accidentIntake("CLM-2024-0042"))
	require.NoError(t, err)
	assert.NotEmpty(t, claim.Decision.RoutingTeam)
}

// ==========================
// Category Detection Tests
// ==========================

func TestCategoryFor_FallsBackToTextDetection(t *testing.T) {
	intake := ClaimIntake{
		ClaimType: "",
		Documents: map[models.Source]string{
			models.SourceAcord: "Hospital admission for patient surgery and treatment",
		},
	}
	assert.Equal(t, models.CategoryHealth, categoryFor(intake, models.DocumentSet{}))

	intake.Documents[models.SourceAcord] = "Vehicle collision on highway, garage repair estimate"
	assert.Equal(t, models.CategoryAccident, categoryFor(intake, models.DocumentSet{}))
}
