// internal/scoring/scorer.go
package scoring

import (
	"math"

	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
)

// Label threshold and heuristic weighting. The heuristic amplifies the
// inconsistency mean slightly so a claim where most checks disagree lands
// near the top of the scale.
const (
	heuristicWeight = 1.25
	labelThreshold  = 0.5
)

// Predictor is the opaque trained-classifier artifact. It takes the numeric
// feature row of FeatureVector.ModelRow and returns the positive-class
// probability and a hard label.
type Predictor interface {
	Predict(row []float64) (probability float64, label int, err error)
}

// Scorer blends the self-contained heuristic with an optional model
// prediction. A nil predictor is not an error: the heuristic path is fully
// authoritative on its own.
type Scorer struct {
	predictor Predictor
	logger    logger.Logger
}

func New(predictor Predictor, log logger.Logger) *Scorer {
	return &Scorer{
		predictor: predictor,
		logger:    log.WithFields(map[string]interface{}{"component": "fraud-scorer"}),
	}
}

// Score computes the fraud assessment for one feature vector. Model output
// overrides the heuristic when the predictor is present and succeeds;
// predictor failure is a degraded-mode condition, not an error.
func (s *Scorer) Score(features models.FeatureVector, category models.Category) models.ScoreResult {
	result := models.ScoreResult{
		FraudScore: HeuristicScore(features.InconsistencyScore),
		Category:   category,
	}
	result.FraudLabel = LabelFromScore(result.FraudScore)

	if s.predictor == nil {
		s.logger.Debug("no fraud model loaded, using heuristic score", map[string]interface{}{
			"fraudScore": result.FraudScore,
		})
		result.FraudScore = round3(result.FraudScore)
		return result
	}

	proba, label, err := s.predictor.Predict(features.ModelRow(category))
	if err != nil {
		s.logger.Warn("fraud model prediction failed, falling back to heuristic", map[string]interface{}{
			"error": err.Error(),
		})
		result.FraudScore = round3(result.FraudScore)
		return result
	}

	result.FraudScore = round3(proba)
	result.FraudLabel = label
	result.ModelBacked = true
	return result
}

// HeuristicScore maps the inconsistency mean to a fraud probability. It is
// monotone: more disagreement across documents never lowers the score.
func HeuristicScore(inconsistency float64) float64 {
	score := inconsistency * heuristicWeight
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// LabelFromScore is the hard fraud label for the heuristic path.
func LabelFromScore(score float64) int {
	if score >= labelThreshold {
		return 1
	}
	return 0
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
