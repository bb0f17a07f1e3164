// internal/rules/defaults.go
package rules

import "claims-triage/internal/models"

func boolPtr(b bool) *bool        { return &b }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

// SeedDefaults installs the stock routing rule set when the store is empty.
// A non-empty store is left untouched, so seeding is idempotent across
// restarts.
func (s *Store) SeedDefaults() {
	if len(s.List()) > 0 {
		return
	}

	defaults := []CreateRequest{
		{
			Name:          "High Fraud - All Categories",
			Description:   "Route high fraud claims to SIU team",
			Priority:      intPtr(1),
			ConditionType: models.ConditionFraudThreshold,
			Operator:      models.OpGTE,
			Threshold:     floatPtr(0.6),
			RoutingTeam:   "SIU (Fraud)",
			Adjuster:      "SIU Investigator",
		},
		{
			Name:           "High Fraud - Vehicle",
			Description:    "Route high fraud vehicle claims",
			Priority:       intPtr(2),
			ConditionType:  models.ConditionFraud,
			ConditionValue: "high",
			ClaimType:      "accident",
			RoutingTeam:    "SIU (Fraud)",
			Adjuster:       "SIU Investigator",
		},
		{
			Name:           "High Fraud - Health",
			Description:    "Route high fraud health claims",
			Priority:       intPtr(2),
			ConditionType:  models.ConditionFraud,
			ConditionValue: "high",
			ClaimType:      "health",
			RoutingTeam:    "SIU (Fraud)",
			Adjuster:       "SIU Investigator",
		},
		{
			Name:           "High Severity - Vehicle",
			Description:    "Route high severity vehicle claims to Complex Claims",
			Priority:       intPtr(10),
			ConditionType:  models.ConditionSeverity,
			ConditionValue: "high",
			ClaimType:      "accident",
			RoutingTeam:    "Complex Claims",
			Adjuster:       "Senior Adjuster",
		},
		{
			Name:           "High Severity - Health",
			Description:    "Route high severity health claims to Complex Claims",
			Priority:       intPtr(10),
			ConditionType:  models.ConditionSeverity,
			ConditionValue: "high",
			ClaimType:      "health",
			RoutingTeam:    "Complex Claims",
			Adjuster:       "Senior Adjuster",
		},
		{
			Name:           "High Complexity - Vehicle",
			Description:    "Route high complexity vehicle claims",
			Priority:       intPtr(15),
			ConditionType:  models.ConditionComplexity,
			ConditionValue: "high",
			ClaimType:      "accident",
			RoutingTeam:    "Complex Claims",
			Adjuster:       "Senior Adjuster",
		},
		{
			Name:           "High Complexity - Health",
			Description:    "Route high complexity health claims",
			Priority:       intPtr(15),
			ConditionType:  models.ConditionComplexity,
			ConditionValue: "high",
			ClaimType:      "health",
			RoutingTeam:    "Complex Claims",
			Adjuster:       "Senior Adjuster",
		},
		{
			Name:           "Mid Fraud - Vehicle",
			Description:    "Route mid fraud vehicle claims",
			Priority:       intPtr(20),
			ConditionType:  models.ConditionFraud,
			ConditionValue: "mid",
			ClaimType:      "accident",
			RoutingTeam:    "Standard Review",
			Adjuster:       "Standard Adjuster",
		},
		{
			Name:           "Mid Fraud - Health",
			Description:    "Route mid fraud health claims",
			Priority:       intPtr(20),
			ConditionType:  models.ConditionFraud,
			ConditionValue: "mid",
			ClaimType:      "health",
			RoutingTeam:    "Standard Review",
			Adjuster:       "Standard Adjuster",
		},
		{
			Name:           "Low Risk - Default",
			Description:    "Default routing for low risk claims",
			Priority:       intPtr(100),
			ConditionType:  models.ConditionFraud,
			ConditionValue: "low",
			RoutingTeam:    "Fast Track",
			Adjuster:       "Standard Adjuster",
		},
	}

	for _, req := range defaults {
		if _, err := s.Create(req); err != nil {
			s.logger.Warn("failed to seed default rule", map[string]interface{}{
				"name":  req.Name,
				"error": err.Error(),
			})
		}
	}

	s.logger.Info("initialized default routing rules", map[string]interface{}{
		"count": len(defaults),
	})
}
