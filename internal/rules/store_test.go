// internal/rules/store_test.go
package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "rules.json"), logger.NewTestLogger(t))
}

func createTestRule(t *testing.T, s *Store) models.RoutingRule {
	t.Helper()
	rule, err := s.Create(CreateRequest{
		Name:           "High Severity - Vehicle",
		Description:    "Route high severity vehicle claims",
		ConditionType:  models.ConditionSeverity,
		ConditionValue: "high",
		ClaimType:      "accident",
		RoutingTeam:    "Complex Claims",
		Adjuster:       "Senior Adjuster",
	})
	require.NoError(t, err)
	return rule
}

func strPtr(s string) *string { return &s }

// ==========================
// CRUD Tests
// ==========================

func TestStore_CreateAndGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	threshold := 0.7
	created, err := s.Create(CreateRequest{
		Name:          "Custom Fraud Gate",
		Description:   "Custom SIU gate",
		ConditionType: models.ConditionFraudThreshold,
		Operator:      models.OpGTE,
		Threshold:     &threshold,
		RoutingTeam:   "SIU (Fraud)",
		Adjuster:      "SIU Investigator",
	})
	require.NoError(t, err)

	fetched, err := s.Get(created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Custom Fraud Gate", fetched.Name)
	assert.Equal(t, models.ConditionFraudThreshold, fetched.ConditionType)
	assert.Equal(t, models.OpGTE, fetched.Operator)
	require.NotNil(t, fetched.Threshold)
	assert.Equal(t, 0.7, *fetched.Threshold)
	assert.Equal(t, "SIU (Fraud)", fetched.RoutingTeam)
	assert.True(t, fetched.Enabled)
	assert.False(t, fetched.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, fetched.CreatedAt)
}

func TestStore_Create_DefaultPriorityIsRuleCount(t *testing.T) {
	s := newTestStore(t)

	first := createTestRule(t, s)
	second := createTestRule(t, s)

	assert.Equal(t, 0, first.Priority)
	assert.Equal(t, 1, second.Priority)
}

func TestStore_Create_ExplicitEnabledFlag(t *testing.T) {
	s := newTestStore(t)

	rule, err := s.Create(CreateRequest{
		Name:           "Parked Rule",
		Enabled:        boolPtr(false),
		ConditionType:  models.ConditionFraud,
		ConditionValue: "low",
		RoutingTeam:    "Fast Track",
		Adjuster:       "Standard Adjuster",
	})
	require.NoError(t, err)
	assert.False(t, rule.Enabled)
}

func TestStore_Create_Validation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create(CreateRequest{RoutingTeam: "Fast Track", Adjuster: "Standard Adjuster"})
	assert.Error(t, err)

	_, err = s.Create(CreateRequest{ConditionType: models.ConditionFraud, ConditionValue: "low"})
	assert.Error(t, err)
}

func TestStore_Update_PartialMutation(t *testing.T) {
	s := newTestStore(t)
	created := createTestRule(t, s)

	updated, err := s.Update(created.ID, models.RuleUpdate{
		RoutingTeam: strPtr("Escalations"),
	})
	require.NoError(t, err)

	// Only the given field changes.
	assert.Equal(t, "Escalations", updated.RoutingTeam)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Adjuster, updated.Adjuster)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestStore_Update_UnknownRule(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update("missing", models.RuleUpdate{RoutingTeam: strPtr("X")})
	assert.Error(t, err)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	rule := createTestRule(t, s)

	require.NoError(t, s.Delete(rule.ID))
	_, err := s.Get(rule.ID)
	assert.Error(t, err)
}

func TestStore_Delete_UnknownLeavesSetUnchanged(t *testing.T) {
	s := newTestStore(t)
	createTestRule(t, s)
	before := len(s.List())

	err := s.Delete("does-not-exist")
	assert.Error(t, err)
	assert.Len(t, s.List(), before)
}

// ==========================
// Versioning & Notification Tests
// ==========================

func TestStore_EveryMutationBumpsVersion(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, int64(0), s.Version())

	rule := createTestRule(t, s)
	assert.Equal(t, int64(1), s.Version())

	_, err := s.Update(rule.ID, models.RuleUpdate{RoutingTeam: strPtr("Other")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Version())

	require.NoError(t, s.Delete(rule.ID))
	assert.Equal(t, int64(3), s.Version())
}

func TestStore_ListenersSeePostMutationSnapshot(t *testing.T) {
	s := newTestStore(t)

	var got []models.RuleSnapshot
	s.Subscribe(func(snapshot models.RuleSnapshot) {
		got = append(got, snapshot)
	})

	rule := createTestRule(t, s)
	require.NoError(t, s.Delete(rule.ID))

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Version)
	assert.Len(t, got[0].Rules, 1)
	assert.Equal(t, int64(2), got[1].Version)
	assert.Empty(t, got[1].Rules)
}

func TestStore_SnapshotSortedByPriority(t *testing.T) {
	s := newTestStore(t)

	p10, p1 := 10, 1
	_, err := s.Create(CreateRequest{
		Name: "later", Priority: &p10,
		ConditionType: models.ConditionFraud, ConditionValue: "low",
		RoutingTeam: "Fast Track", Adjuster: "Standard Adjuster",
	})
	require.NoError(t, err)
	_, err = s.Create(CreateRequest{
		Name: "first", Priority: &p1,
		ConditionType: models.ConditionFraud, ConditionValue: "high",
		RoutingTeam: "SIU (Fraud)", Adjuster: "SIU Investigator",
	})
	require.NoError(t, err)

	snapshot := s.Snapshot()
	require.Len(t, snapshot.Rules, 2)
	assert.Equal(t, "first", snapshot.Rules[0].Name)
	assert.Equal(t, "later", snapshot.Rules[1].Name)
}

// ==========================
// Persistence Tests
// ==========================

func TestStore_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")

	s := NewStore(path, logger.NewTestLogger(t))
	rule := createTestRule(t, s)

	reloaded := NewStore(path, logger.NewTestLogger(t))
	fetched, err := reloaded.Get(rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.Name, fetched.Name)
	assert.Equal(t, rule.RoutingTeam, fetched.RoutingTeam)
}

func TestStore_LoadDropsSchemaInvalidRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.json")

	records := []map[string]interface{}{
		{
			"id":             "good-1",
			"name":           "Valid Rule",
			"enabled":        true,
			"priority":       1,
			"condition_type": "fraud",
			"routing_team":   "Fast Track",
			"adjuster":       "Standard Adjuster",
		},
		{
			// missing routing_team and adjuster
			"id":             "bad-1",
			"condition_type": "fraud",
		},
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s := NewStore(path, logger.NewTestLogger(t))

	rules := s.List()
	require.Len(t, rules, 1)
	assert.Equal(t, "good-1", rules[0].ID)
}

func TestStore_PersistFailureKeepsMemoryAuthoritative(t *testing.T) {
	// Point the store at a path whose parent cannot be created.
	blocked := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
	path := filepath.Join(blocked, "sub", "rules.json")

	s := NewStore(path, logger.NewTestLogger(t))
	rule := createTestRule(t, s)

	// The write failed, yet routing still sees the rule.
	fetched, err := s.Get(rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, fetched.ID)
	assert.Equal(t, int64(1), s.Version())
}

// ==========================
// Default Seeding Tests
// ==========================

func TestStore_SeedDefaults(t *testing.T) {
	s := newTestStore(t)
	s.SeedDefaults()

	rules := s.List()
	assert.Len(t, rules, 10)

	names := map[string]bool{}
	for _, r := range rules {
		names[r.Name] = true
	}
	assert.True(t, names["High Fraud - All Categories"])
	assert.True(t, names["Low Risk - Default"])
}

func TestStore_SeedDefaults_Idempotent(t *testing.T) {
	s := newTestStore(t)
	s.SeedDefaults()
	version := s.Version()

	s.SeedDefaults()
	assert.Len(t, s.List(), 10)
	assert.Equal(t, version, s.Version())
}
