// internal/features/builder_test.go
package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"claims-triage/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func floatPtr(v float64) *float64 { return &v }

func createAccidentDocs() models.DocumentSet {
	return models.DocumentSet{
		Acord: &models.DocumentFields{
			Source:              models.SourceAcord,
			IncidentDate:        "2024-03-15",
			Location:            "12 Main Street Springfield",
			VehicleRegistration: "KA-01-AB-1234",
			InjuriesReported:    models.TriFalse,
			EstimatedDamageCost: floatPtr(45000),
			TotalLoss:           models.TriUnknown,
			TextSeverity:        models.IndicatorUnknown,
		},
		Police: &models.DocumentFields{
			Source:              models.SourcePolice,
			IncidentDate:        "15/03/2024",
			Location:            "Main Street Springfield",
			VehicleRegistration: "KA-01-AB-1234",
			InjuriesReported:    models.TriFalse,
			TotalLoss:           models.TriUnknown,
			TextSeverity:        models.IndicatorUnknown,
		},
		Loss: &models.DocumentFields{
			Source:              models.SourceLoss,
			LossDate:            "2024-03-15",
			Location:            "12 Main Street Springfield",
			VehicleRegistration: "KA-01-AB-1234",
			InjuriesReported:    models.TriFalse,
			EstimatedDamageCost: floatPtr(50000),
			TotalLoss:           models.TriUnknown,
			TextSeverity:        models.IndicatorUnknown,
		},
	}
}

// ==========================
// Damage Difference Tests
// ==========================

func TestBuild_DamageDifference(t *testing.T) {
	docs := createAccidentDocs()
	v := Build(docs)

	// |50000-45000| / 45000
	assert.InDelta(t, 0.1111, v.DamageDifference, 0.0001)
	assert.Equal(t, 0, v.InjuryMismatch)
}

func TestBuild_DamageDifference_MissingSideIsNeutral(t *testing.T) {
	docs := createAccidentDocs()
	docs.Loss.EstimatedDamageCost = nil

	v := Build(docs)
	assert.Equal(t, 0.0, v.DamageDifference)
}

func TestBuild_DamageDifference_ClampedToOne(t *testing.T) {
	docs := createAccidentDocs()
	docs.Acord.EstimatedDamageCost = floatPtr(1000)
	docs.Loss.EstimatedDamageCost = floatPtr(900000)

	v := Build(docs)
	assert.Equal(t, 1.0, v.DamageDifference)
}

// ==========================
// Consistency Tests
// ==========================

func TestConsistentValue(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   float64
	}{
		{"no observations", []string{"", ""}, 1.0},
		{"single observation", []string{"KA-01", ""}, 1.0},
		{"two identical", []string{"KA-01", "KA-01"}, 1.0},
		{"three identical", []string{"KA-01", "KA-01", "KA-01"}, 1.0},
		{"two distinct", []string{"KA-01", "MH-12"}, 0.0},
		{"one of three differs", []string{"KA-01", "KA-01", "MH-12"}, 0.0},
		{"whitespace only is unobserved", []string{"  ", "KA-01"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, consistentValue(tt.values...))
		})
	}
}

func TestBuild_VehicleMismatch_ShiftsInconsistencyByOneFifth(t *testing.T) {
	matching := Build(createAccidentDocs())

	mismatched := createAccidentDocs()
	mismatched.Police.VehicleRegistration = "MH-99-ZZ-0001"
	diverged := Build(mismatched)

	assert.Equal(t, 1.0, matching.VehicleMatch)
	assert.Equal(t, 0.0, diverged.VehicleMatch)
	assert.InDelta(t, 0.2, diverged.InconsistencyScore-matching.InconsistencyScore, 0.0001)
}

func TestBuild_UnknownFieldsAreNeutral(t *testing.T) {
	// A claim with only an ACORD document: every *_match stays neutral.
	docs := models.DocumentSet{
		Acord: &models.DocumentFields{
			Source:              models.SourceAcord,
			VehicleRegistration: "KA-01-AB-1234",
			InjuriesReported:    models.TriUnknown,
			TotalLoss:           models.TriUnknown,
			TextSeverity:        models.IndicatorUnknown,
		},
	}

	v := Build(docs)
	assert.Equal(t, 1.0, v.LocationMatch)
	assert.Equal(t, 1.0, v.VehicleMatch)
	assert.Equal(t, 1.0, v.RCMatch)
	assert.Equal(t, 1.0, v.DLMatch)
	assert.Equal(t, 1.0, v.PatientMatch)
	assert.Equal(t, 1.0, v.HospitalMatch)
	assert.Equal(t, 0, v.InjuryMismatch)
	assert.Equal(t, 0.0, v.InconsistencyScore)
}

// ==========================
// Injury & Date Tests
// ==========================

func TestBuild_InjuryMismatch(t *testing.T) {
	tests := []struct {
		name  string
		acord models.TriState
		loss  models.TriState
		want  int
	}{
		{"both false", models.TriFalse, models.TriFalse, 0},
		{"both true", models.TriTrue, models.TriTrue, 0},
		{"acord true loss false", models.TriTrue, models.TriFalse, 1},
		{"loss unknown is neutral", models.TriTrue, models.TriUnknown, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := createAccidentDocs()
			docs.Acord.InjuriesReported = tt.acord
			docs.Loss.InjuriesReported = tt.loss
			// Drop the police report so only the acord/loss pair decides.
			docs.Police = nil

			v := Build(docs)
			assert.Equal(t, tt.want, v.InjuryMismatch)
		})
	}
}

func TestBuild_DateDifferenceDays(t *testing.T) {
	docs := createAccidentDocs()
	docs.Loss.LossDate = "2024-03-25"

	v := Build(docs)
	assert.Equal(t, 10, v.DateDiffDays)
}

// ==========================
// Severity & Complexity Tests
// ==========================

func TestBuild_SeverityCostTiers(t *testing.T) {
	tests := []struct {
		name string
		cost float64
		want models.SeverityLevel
	}{
		// 45000-50000 sits in the 20k-50k tier: one point, minus the small
		// document set penalty stays below Medium.
		{"mid tier cost stays low", 45000, models.SeverityLow},
		{"large cost reaches medium", 150000, models.SeverityMedium},
		{"very large cost", 250000, models.SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := createAccidentDocs()
			docs.Acord.EstimatedDamageCost = floatPtr(tt.cost)
			docs.Loss.EstimatedDamageCost = floatPtr(tt.cost)

			v := Build(docs)
			assert.Equal(t, tt.want, v.SeverityLevel)
		})
	}
}

func TestBuild_SeverityEscalatesWithInjuriesAndTotalLoss(t *testing.T) {
	docs := createAccidentDocs()
	docs.Acord.EstimatedDamageCost = floatPtr(150000)
	docs.Loss.EstimatedDamageCost = floatPtr(150000)
	docs.Acord.InjuriesReported = models.TriTrue
	docs.Loss.InjuriesReported = models.TriTrue
	docs.Loss.TotalLoss = models.TriTrue

	v := Build(docs)
	// 3 (cost tier) + 2 (injuries) + 2 (total loss) clears the High bar.
	assert.Equal(t, models.SeverityHigh, v.SeverityLevel)
}

func TestBuild_ComplexityFromInconsistency(t *testing.T) {
	clean := Build(createAccidentDocs())
	assert.Equal(t, 1.0, clean.ComplexityScore)

	messy := createAccidentDocs()
	messy.Police.VehicleRegistration = "MH-99-ZZ-0001"
	messy.Police.Location = "Completely Different City"
	messy.Loss.Location = "Completely Different City"
	messy.Acord.InjuriesReported = models.TriTrue

	v := Build(messy)
	assert.Greater(t, v.ComplexityScore, 1.0)
}

func TestBuild_TotalLossFloorsComplexity(t *testing.T) {
	docs := createAccidentDocs()
	docs.Loss.TotalLoss = models.TriTrue

	v := Build(docs)
	assert.Equal(t, 4.0, v.ComplexityScore)
}

// ==========================
// Model Row Tests
// ==========================

func TestFeatureVector_ModelRow(t *testing.T) {
	v := Build(createAccidentDocs())

	row := v.ModelRow(models.CategoryAccident)
	assert.Len(t, row, 13)
	assert.Equal(t, v.SeverityLevel.Numeric(), row[10])
	assert.Equal(t, v.ComplexityScore, row[11])
	assert.Equal(t, 0.0, row[12])

	healthRow := v.ModelRow(models.CategoryHealth)
	assert.Equal(t, 1.0, healthRow[12])
}
