// internal/models/scores.go
package models

// ScoreResult is the fraud assessment for one claim. When ModelBacked is
// false the values come from the self-contained heuristic path.
type ScoreResult struct {
	FraudScore  float64  `json:"fraud_score"`
	FraudLabel  int      `json:"fraud_label"`
	Category    Category `json:"claim_category"`
	ModelBacked bool     `json:"model_backed"`
}
