// internal/models/document.go
package models

// Source identifies which claim document a field set was extracted from.
type Source string

const (
	SourceAcord    Source = "acord"
	SourcePolice   Source = "police"
	SourceLoss     Source = "loss"
	SourceRC       Source = "rc"
	SourceDL       Source = "dl"
	SourceHospital Source = "hospital"
)

// Category is the claim category used for scoring and routing.
type Category string

const (
	CategoryAccident Category = "accident"
	CategoryHealth   Category = "health"
)

// Claim types as submitted at intake. Medical claims map to the health
// category, everything else to accident.
const (
	ClaimTypeAccident = "accident"
	ClaimTypeMedical  = "medical"
)

// TriState models a boolean field that may simply not appear in the
// document. Absent is never encoded as false.
type TriState string

const (
	TriUnknown TriState = "unknown"
	TriTrue    TriState = "true"
	TriFalse   TriState = "false"
)

// Known reports whether the value was actually observed.
func (t TriState) Known() bool {
	return t == TriTrue || t == TriFalse
}

// Bool returns the observed value; callers must check Known first.
func (t TriState) Bool() bool {
	return t == TriTrue
}

// SeverityIndicator is the keyword-derived severity hint from document text.
type SeverityIndicator string

const (
	IndicatorHigh    SeverityIndicator = "high"
	IndicatorMedium  SeverityIndicator = "medium"
	IndicatorLow     SeverityIndicator = "low"
	IndicatorUnknown SeverityIndicator = "unknown"
)

// DocumentFields is the typed field set extracted from one claim document.
// Every field is best effort: empty strings, nil pointers and the unknown
// enum values mean "not found", never a colliding sentinel like 0.
type DocumentFields struct {
	Source Source `json:"source"`

	ClaimID        string `json:"claim_id,omitempty"`
	ClaimShortID   string `json:"claim_short_id,omitempty"`
	PoliceReportNo string `json:"police_report_no,omitempty"`
	PolicyNumber   string `json:"policy_number,omitempty"`

	// Dates are kept as raw tokens; parsing happens at feature build time so
	// a malformed date degrades a single feature, not the whole document.
	IncidentDate string `json:"incident_date,omitempty"`
	LossDate     string `json:"loss_date,omitempty"`

	Location            string `json:"location,omitempty"`
	VehicleRegistration string `json:"vehicle_registration,omitempty"`
	RCNo                string `json:"rc_no,omitempty"`
	DLNo                string `json:"dl_no,omitempty"`
	PatientID           string `json:"patient_id,omitempty"`
	HospitalCode        string `json:"hospital_code,omitempty"`

	EstimatedDamageCost *float64 `json:"estimated_damage_cost,omitempty"`

	InjuriesReported TriState          `json:"injuries_reported"`
	TotalLoss        TriState          `json:"total_loss_flag"`
	TextSeverity     SeverityIndicator `json:"text_severity_indicator"`
}

// DocumentSet groups the per-source field sets of one claim. Any document
// except the ACORD form may be absent.
type DocumentSet struct {
	Acord    *DocumentFields `json:"acord,omitempty"`
	Police   *DocumentFields `json:"police,omitempty"`
	Loss     *DocumentFields `json:"loss,omitempty"`
	RC       *DocumentFields `json:"rc,omitempty"`
	DL       *DocumentFields `json:"dl,omitempty"`
	Hospital *DocumentFields `json:"hospital,omitempty"`
}

// Count returns how many documents are present in the set.
func (s DocumentSet) Count() int {
	n := 0
	for _, d := range []*DocumentFields{s.Acord, s.Police, s.Loss, s.RC, s.DL, s.Hospital} {
		if d != nil {
			n++
		}
	}
	return n
}
