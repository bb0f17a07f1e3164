// internal/extract/category.go
package extract

import (
	"strings"

	"claims-triage/internal/models"
)

var healthSignals = []string{"hospital", "diagnosis", "medical", "treatment", "admission", "patient"}

var vehicleSignals = []string{"accident", "vehicle", "registration", "rc", "dl", "police", "rear collision"}

// DetectCategory votes health vs vehicle keywords over the document text.
// Ties and empty text default to accident.
func DetectCategory(text string) models.Category {
	if text == "" {
		return models.CategoryAccident
	}
	lower := strings.ToLower(text)

	health := 0
	for _, w := range healthSignals {
		if strings.Contains(lower, w) {
			health++
		}
	}
	vehicle := 0
	for _, w := range vehicleSignals {
		if strings.Contains(lower, w) {
			vehicle++
		}
	}

	if health > vehicle {
		return models.CategoryHealth
	}
	return models.CategoryAccident
}
