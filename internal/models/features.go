// internal/models/features.go
package models

// SeverityLevel is the coarse severity classification of a claim.
type SeverityLevel string

const (
	SeverityLow    SeverityLevel = "Low"
	SeverityMedium SeverityLevel = "Medium"
	SeverityHigh   SeverityLevel = "High"
)

// Numeric returns the encoding expected by the trained fraud model.
func (s SeverityLevel) Numeric() float64 {
	switch s {
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 1
	}
}

// FeatureVector is the cross-document feature set derived for one claim.
// Match fields default to 1.0 (neutral) when fewer than two documents report
// the underlying value; 0.0 means at least two documents disagree.
type FeatureVector struct {
	DamageDifference float64 `json:"damage_difference"`
	InjuryMismatch   int     `json:"injury_mismatch"`
	DateDiffDays     int     `json:"date_difference_days"`

	LocationMatch float64 `json:"location_match"`
	VehicleMatch  float64 `json:"vehicle_match"`
	RCMatch       float64 `json:"rc_match"`
	DLMatch       float64 `json:"dl_match"`
	PatientMatch  float64 `json:"patient_match"`
	HospitalMatch float64 `json:"hospital_match"`

	InconsistencyScore float64       `json:"fraud_inconsistency_score"`
	SeverityLevel      SeverityLevel `json:"severity_level"`
	ComplexityScore    float64       `json:"complexity_score"`
}

// ModelRow builds the numeric feature row the trained classifier was fitted
// on: the vector components followed by the severity encoding and the
// category id from the sorted {accident, health} list.
func (f FeatureVector) ModelRow(category Category) []float64 {
	categoryID := 0.0
	if category == CategoryHealth {
		categoryID = 1.0
	}
	return []float64{
		f.DamageDifference,
		float64(f.InjuryMismatch),
		float64(f.DateDiffDays),
		f.LocationMatch,
		f.VehicleMatch,
		f.RCMatch,
		f.DLMatch,
		f.PatientMatch,
		f.HospitalMatch,
		f.InconsistencyScore,
		f.SeverityLevel.Numeric(),
		f.ComplexityScore,
		categoryID,
	}
}
