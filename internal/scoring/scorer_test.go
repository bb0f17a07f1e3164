// internal/scoring/scorer_test.go
package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type stubPredictor struct {
	proba float64
	label int
	err   error
	rows  [][]float64
}

func (p *stubPredictor) Predict(row []float64) (float64, int, error) {
	p.rows = append(p.rows, row)
	return p.proba, p.label, p.err
}

func createTestFeatures(inconsistency float64) models.FeatureVector {
	return models.FeatureVector{
		LocationMatch:      1.0,
		VehicleMatch:       1.0,
		RCMatch:            1.0,
		DLMatch:            1.0,
		PatientMatch:       1.0,
		HospitalMatch:      1.0,
		InconsistencyScore: inconsistency,
		SeverityLevel:      models.SeverityLow,
		ComplexityScore:    1.0,
	}
}

// ==========================
// Heuristic Tests
// ==========================

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		name          string
		inconsistency float64
		want          float64
	}{
		{"zero inconsistency", 0.0, 0.0},
		{"moderate inconsistency", 0.2, 0.25},
		{"high inconsistency", 0.6, 0.75},
		{"clamped at one", 0.9, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HeuristicScore(tt.inconsistency), 0.0001)
		})
	}
}

func TestHeuristicScore_Monotone(t *testing.T) {
	prev := -1.0
	for _, inc := range []float64{0, 0.1, 0.2, 0.4, 0.6, 0.8, 1.0} {
		score := HeuristicScore(inc)
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestLabelFromScore(t *testing.T) {
	assert.Equal(t, 0, LabelFromScore(0.0))
	assert.Equal(t, 0, LabelFromScore(0.49))
	assert.Equal(t, 1, LabelFromScore(0.5))
	assert.Equal(t, 1, LabelFromScore(1.0))
}

// ==========================
// Scorer Tests
// ==========================

func TestScorer_NoPredictor_HeuristicAuthoritative(t *testing.T) {
	scorer := New(nil, logger.NewTestLogger(t))

	result := scorer.Score(createTestFeatures(0.6), models.CategoryAccident)

	assert.InDelta(t, 0.75, result.FraudScore, 0.0001)
	assert.Equal(t, 1, result.FraudLabel)
	assert.Equal(t, models.CategoryAccident, result.Category)
	assert.False(t, result.ModelBacked)
}

func TestScorer_PredictorOverridesHeuristic(t *testing.T) {
	predictor := &stubPredictor{proba: 0.911, label: 1}
	scorer := New(predictor, logger.NewTestLogger(t))

	result := scorer.Score(createTestFeatures(0.1), models.CategoryHealth)

	assert.Equal(t, 0.911, result.FraudScore)
	assert.Equal(t, 1, result.FraudLabel)
	assert.True(t, result.ModelBacked)

	// The predictor received the 13-column row with the health category id.
	assert.Len(t, predictor.rows, 1)
	assert.Len(t, predictor.rows[0], 13)
	assert.Equal(t, 1.0, predictor.rows[0][12])
}

func TestScorer_PredictorFailure_FallsBackToHeuristic(t *testing.T) {
	predictor := &stubPredictor{err: errors.New("artifact unavailable")}
	scorer := New(predictor, logger.NewTestLogger(t))

	result := scorer.Score(createTestFeatures(0.2), models.CategoryAccident)

	assert.InDelta(t, 0.25, result.FraudScore, 0.0001)
	assert.Equal(t, 0, result.FraudLabel)
	assert.False(t, result.ModelBacked)
}
