// internal/features/builder.go
package features

import (
	"math"
	"regexp"
	"strings"

	"claims-triage/internal/extract"
	"claims-triage/internal/models"
)

// Severity point mapping thresholds. A claim scoring >= severityHighMin maps
// to High, >= severityMediumMin to Medium, everything below to Low.
const (
	severityHighMin   = 6.0
	severityMediumMin = 3.0
)

var tokenSplitPat = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Build derives the cross-document feature vector for one claim. Absent
// documents and unknown fields are neutral: they never count as a mismatch.
func Build(docs models.DocumentSet) models.FeatureVector {
	ac := docs.Acord
	pr := docs.Police
	lr := docs.Loss
	hb := docs.Hospital

	acordCost := costOf(ac)
	lossCost := costOf(lr)
	hospitalCost := costOf(hb)

	damageDiff := 0.0
	if acordCost > 0 && lossCost > 0 {
		damageDiff = math.Abs(acordCost-lossCost) / math.Max(acordCost, 1)
		if damageDiff > 1 {
			damageDiff = 1
		}
	}

	injMismatch := injuryMismatch(ac, pr, lr)
	dateDiffDays := dateDifferenceDays(ac, pr, lr)

	locMatch := locationMatch(ac, pr, lr)
	vehMatch := consistentValue(
		registrationOf(ac), registrationOf(pr), registrationOf(lr),
	)
	rcMatch := consistentValue(
		rcNoOf(ac), rcNoOf(pr), rcNoOf(lr), rcNoOf(docs.RC),
	)
	dlMatch := consistentValue(
		dlNoOf(ac), dlNoOf(pr), dlNoOf(lr), dlNoOf(docs.DL),
	)
	patientMatch := consistentValue(patientOf(ac), patientOf(hb))
	hospitalMatch := consistentValue(hospitalCodeOf(ac), hospitalCodeOf(hb))

	inconsistency := (damageDiff +
		float64(injMismatch) +
		math.Min(float64(dateDiffDays)/10, 1) +
		(1 - locMatch) +
		(1 - vehMatch)) / 5.0

	severity := severityLevel(docs, acordCost, lossCost, hospitalCost,
		injMismatch, dateDiffDays, locMatch, vehMatch, inconsistency)

	complexity := 1.0
	for _, threshold := range []float64{0.2, 0.4, 0.6} {
		if inconsistency > threshold {
			complexity++
		}
	}
	if lr != nil && lr.TotalLoss == models.TriTrue && complexity < 4 {
		complexity = 4
	}

	return models.FeatureVector{
		DamageDifference:   round4(damageDiff),
		InjuryMismatch:     injMismatch,
		DateDiffDays:       dateDiffDays,
		LocationMatch:      round4(locMatch),
		VehicleMatch:       round4(vehMatch),
		RCMatch:            round4(rcMatch),
		DLMatch:            round4(dlMatch),
		PatientMatch:       round4(patientMatch),
		HospitalMatch:      round4(hospitalMatch),
		InconsistencyScore: round4(inconsistency),
		SeverityLevel:      severity,
		ComplexityScore:    complexity,
	}
}

// injuryMismatch compares ACORD vs loss report when both are known, then
// ACORD vs police report. Unknown on either side is neutral.
func injuryMismatch(ac, pr, lr *models.DocumentFields) int {
	acInj := injuriesOf(ac)
	if acInj.Known() {
		if lrInj := injuriesOf(lr); lrInj.Known() {
			if acInj != lrInj {
				return 1
			}
			return 0
		}
		if prInj := injuriesOf(pr); prInj.Known() {
			if acInj != prInj {
				return 1
			}
			return 0
		}
	}
	return 0
}

// dateDifferenceDays measures the gap between the ACORD incident date and
// the loss report's loss date, falling back to the police incident date.
func dateDifferenceDays(ac, pr, lr *models.DocumentFields) int {
	if ac == nil {
		return 0
	}
	d1, ok := extract.ParseDate(ac.IncidentDate)
	if !ok {
		return 0
	}

	var ref string
	if lr != nil && lr.LossDate != "" {
		ref = lr.LossDate
	} else if pr != nil && pr.IncidentDate != "" {
		ref = pr.IncidentDate
	}
	d2, ok := extract.ParseDate(ref)
	if !ok {
		return 0
	}

	days := int(math.Abs(d1.Sub(d2).Hours()) / 24)
	return days
}

// locationMatch takes the best token overlap across the locations reported
// by the ACORD, police and loss documents. Free-text addresses rarely match
// verbatim, so exact comparison would over-penalize.
func locationMatch(ac, pr, lr *models.DocumentFields) float64 {
	locs := []string{}
	for _, d := range []*models.DocumentFields{ac, pr, lr} {
		if d != nil && d.Location != "" {
			locs = append(locs, d.Location)
		}
	}
	if len(locs) < 2 {
		return 1.0
	}

	best := 0.0
	for i := 0; i < len(locs); i++ {
		for j := i + 1; j < len(locs); j++ {
			if o := tokenOverlap(locs[i], locs[j]); o > best {
				best = o
			}
		}
	}
	return best
}

// tokenOverlap is the Jaccard overlap of case-insensitive word token sets.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, t := range tokenSplitPat.Split(strings.ToLower(s), -1) {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// consistentValue is the shared consistency rule for identifier fields:
// fewer than two observed values is neutral (1.0), any disagreement among
// observed values scores 0.0.
func consistentValue(values ...string) float64 {
	observed := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			observed = append(observed, v)
		}
	}
	if len(observed) < 2 {
		return 1.0
	}
	for _, v := range observed[1:] {
		if v != observed[0] {
			return 0.0
		}
	}
	return 1.0
}

// severityLevel implements the additive point system: capped contributions
// from costs, injuries, total loss, inconsistency, date gaps, identifier
// mismatches, text indicators and document count, clamped at zero and mapped
// to a level.
func severityLevel(docs models.DocumentSet, acordCost, lossCost, hospitalCost float64,
	injMismatch, dateDiffDays int, locMatch, vehMatch, inconsistency float64) models.SeverityLevel {

	score := 0.0

	score += costTierPoints(math.Max(acordCost, lossCost))
	score += costTierPoints(hospitalCost)

	if anyInjuryReported(docs.Acord, docs.Loss, docs.Police) {
		score += 2
	}
	if injMismatch == 1 {
		score++
	}

	if docs.Loss != nil && docs.Loss.TotalLoss == models.TriTrue {
		score += 2
	}

	if inconsistency > 0.5 {
		score += 2
	} else if inconsistency > 0.3 {
		score++
	}

	if dateDiffDays > 30 {
		score++
	}

	if locMatch < 0.5 || vehMatch < 0.5 {
		score++
	}

	switch textSeverityOf(docs) {
	case models.IndicatorHigh:
		score += 2
	case models.IndicatorMedium:
		score++
	}

	if n := docs.Count(); n >= 5 {
		score += 0.5
	} else if n <= 2 {
		score -= 0.5
	}

	if score < 0 {
		score = 0
	}

	switch {
	case score >= severityHighMin:
		return models.SeverityHigh
	case score >= severityMediumMin:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// costTierPoints maps a monetary amount to 0-4 severity points.
func costTierPoints(cost float64) float64 {
	switch {
	case cost > 200000:
		return 4
	case cost > 100000:
		return 3
	case cost > 50000:
		return 2
	case cost > 20000:
		return 1
	default:
		return 0
	}
}

func anyInjuryReported(docs ...*models.DocumentFields) bool {
	for _, d := range docs {
		if d != nil && d.InjuriesReported == models.TriTrue {
			return true
		}
	}
	return false
}

// textSeverityOf picks the first known text indicator, loss report first
// since it tends to carry the most explicit damage language.
func textSeverityOf(docs models.DocumentSet) models.SeverityIndicator {
	for _, d := range []*models.DocumentFields{docs.Loss, docs.Acord, docs.Police, docs.Hospital} {
		if d != nil && d.TextSeverity != models.IndicatorUnknown {
			return d.TextSeverity
		}
	}
	return models.IndicatorUnknown
}

func costOf(d *models.DocumentFields) float64 {
	if d == nil || d.EstimatedDamageCost == nil {
		return 0
	}
	return *d.EstimatedDamageCost
}

func registrationOf(d *models.DocumentFields) string {
	if d == nil {
		return ""
	}
	return d.VehicleRegistration
}

func rcNoOf(d *models.DocumentFields) string {
	if d == nil {
		return ""
	}
	return d.RCNo
}

func dlNoOf(d *models.DocumentFields) string {
	if d == nil {
		return ""
	}
	return d.DLNo
}

func patientOf(d *models.DocumentFields) string {
	if d == nil {
		return ""
	}
	return d.PatientID
}

func hospitalCodeOf(d *models.DocumentFields) string {
	if d == nil {
		return ""
	}
	return d.HospitalCode
}

func injuriesOf(d *models.DocumentFields) models.TriState {
	if d == nil {
		return models.TriUnknown
	}
	return d.InjuriesReported
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
