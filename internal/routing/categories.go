// internal/routing/categories.go
package routing

import "claims-triage/internal/models"

// Category bucket labels shared by rule conditions and the fallback
// department routing.
const (
	bucketLow  = "low"
	bucketMid  = "mid"
	bucketHigh = "high"
)

// ScoreCategory buckets a fraud score. Boundary values belong to the
// lower bucket.
func ScoreCategory(score float64) string {
	switch {
	case score <= 0.33:
		return bucketLow
	case score <= 0.67:
		return bucketMid
	default:
		return bucketHigh
	}
}

// SeverityCategory maps the textual severity level onto a bucket.
func SeverityCategory(level models.SeverityLevel) string {
	switch level {
	case models.SeverityHigh:
		return bucketHigh
	case models.SeverityMedium:
		return bucketMid
	default:
		return bucketLow
	}
}

// ComplexityCategory buckets a complexity score.
func ComplexityCategory(score float64) string {
	switch {
	case score <= 2.0:
		return bucketLow
	case score <= 3.5:
		return bucketMid
	default:
		return bucketHigh
	}
}

// combinedLevel derives the fallback routing level from the severity and
// complexity buckets. The higher bucket wins.
func combinedLevel(severityCat, complexityCat string) string {
	if severityCat == bucketHigh || complexityCat == bucketHigh {
		return "High"
	}
	if severityCat == bucketMid || complexityCat == bucketMid {
		return "Mid"
	}
	return "Low"
}
