// internal/extract/extractor.go
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"claims-triage/internal/models"
)

var (
	datePat         = regexp.MustCompile(`(\b\d{4}[-/.]\d{2}[-/.]\d{2}\b|\b\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}\b)`)
	moneyPat        = regexp.MustCompile(`(?:[$₹]|i)?\s*([0-9]{1,3}(?:[.,][0-9]{3})*(?:[.,][0-9]{2})?|[0-9]+)`)
	policeReportPat = regexp.MustCompile(`(?i)\bPR[- ]?(\d{4,6})\b`)
	claimPat        = regexp.MustCompile(`(?i)\bCLM[- ]?(\d{4})[- ]?(\d{2})?[- ]?(\d{4})\b`)
	regLinePat      = regexp.MustCompile(`(?i)registration\s*:\s*([^\n\r]+)`)
	locLinePat      = regexp.MustCompile(`(?i)location\s*:\s*([^\n\r]+)`)
	injuryLinePat   = regexp.MustCompile(`(?i)injuries?\s*reported\s*:\s*(true|false|yes|no)`)
	policyPat       = regexp.MustCompile(`(?i)policy\s*(?:no|number)\s*:\s*([A-Za-z0-9-]+)`)
	rcNoPat         = regexp.MustCompile(`(?i)rc\s*no\s*:\s*([A-Za-z0-9- ]+)`)
	dlNoPat         = regexp.MustCompile(`(?i)dl\s*no\s*:\s*([A-Za-z0-9- ]+)`)
	patientPat      = regexp.MustCompile(`(?i)patient\s*id\s*:\s*([A-Za-z0-9-]+)`)
	hospitalPat     = regexp.MustCompile(`(?i)hospital\s*code\s*:\s*([A-Za-z0-9-]+)`)
	incidentLinePat = regexp.MustCompile(`(?i)incident\s*date\s*:\s*([^\n\r]+)`)
	lossLinePat     = regexp.MustCompile(`(?i)loss\s*date\s*:\s*([^\n\r]+)`)
	totalLossYesPat = regexp.MustCompile(`(?i)total\s*loss\s*:\s*(true|yes|1)`)
	totalLossNoPat  = regexp.MustCompile(`(?i)total\s*loss\s*:\s*(false|no|0)`)
)

// Cost anchors, tried in order. The first anchor with a positive money token
// inside the following window wins.
var costAnchors = []string{
	"estimated damage cost", "estimated damage", "damage estimate", "damage cost",
	"total amount", "total cost", "bill amount", "charges", "amount due",
	"claim amount", "settlement amount",
}

const costAnchorWindow = 150

// Bare amounts below this are assumed to be noise (dates, counts, page
// numbers) rather than a claim amount.
const costFallbackFloor = 100

var severityKeywordsHigh = []string{
	"critical", "severe", "major", "catastrophic", "totaled", "write-off",
	"life-threatening", "hospitalized", "surgery", "fracture", "broken",
}

var severityKeywordsMedium = []string{
	"moderate", "significant", "substantial", "serious", "injury", "damaged",
}

var dateLayouts = []string{
	"2006-01-02", "02/01/2006", "02-01-2006", "2006/01/02", "01/02/2006", "02.01.2006",
}

// ParseDate parses the date tokens the extractor emits. The layouts cover
// every format the synthetic document corpus uses.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Extract parses typed fields out of raw document text. It never fails:
// anything that does not match stays at its unknown value.
func Extract(text string, source models.Source) models.DocumentFields {
	d := models.DocumentFields{
		Source:           source,
		InjuriesReported: models.TriUnknown,
		TotalLoss:        models.TriUnknown,
		TextSeverity:     models.IndicatorUnknown,
	}

	if m := claimPat.FindStringSubmatch(text); m != nil {
		if m[2] != "" {
			d.ClaimID = "CLM-" + m[1] + "-" + m[2] + "-" + m[3]
		} else {
			d.ClaimID = "CLM-" + m[1] + "-" + m[3]
		}
		// Short id collapses the optional month segment so ACORD ids join
		// against police and loss report ids.
		d.ClaimShortID = "CLM-" + m[1] + "-" + m[3]
	}

	if m := policeReportPat.FindStringSubmatch(text); m != nil {
		d.PoliceReportNo = "PR-" + m[1]
	}
	if m := policyPat.FindStringSubmatch(text); m != nil {
		d.PolicyNumber = m[1]
	}
	if m := rcNoPat.FindStringSubmatch(text); m != nil {
		d.RCNo = strings.TrimSpace(m[1])
	}
	if m := dlNoPat.FindStringSubmatch(text); m != nil {
		d.DLNo = strings.TrimSpace(m[1])
	}
	if m := patientPat.FindStringSubmatch(text); m != nil {
		d.PatientID = strings.TrimSpace(m[1])
	}
	if m := hospitalPat.FindStringSubmatch(text); m != nil {
		d.HospitalCode = strings.TrimSpace(m[1])
	}

	extractDates(text, &d)

	if m := locLinePat.FindStringSubmatch(text); m != nil {
		d.Location = strings.TrimSpace(m[1])
	}
	if m := regLinePat.FindStringSubmatch(text); m != nil {
		d.VehicleRegistration = strings.TrimSpace(m[1])
	}

	if m := injuryLinePat.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "true", "yes":
			d.InjuriesReported = models.TriTrue
		default:
			d.InjuriesReported = models.TriFalse
		}
	}

	if cost, ok := extractCost(text); ok {
		d.EstimatedDamageCost = &cost
	}

	if totalLossYesPat.MatchString(text) {
		d.TotalLoss = models.TriTrue
	} else if totalLossNoPat.MatchString(text) {
		d.TotalLoss = models.TriFalse
	}

	d.TextSeverity = severityIndicator(text)

	return d
}

// extractDates prefers explicitly labelled incident/loss date lines and
// falls back to the first two date-like tokens in document order.
func extractDates(text string, d *models.DocumentFields) {
	if m := incidentLinePat.FindStringSubmatch(text); m != nil {
		if dm := datePat.FindStringSubmatch(m[1]); dm != nil {
			d.IncidentDate = dm[1]
		}
	}
	if m := lossLinePat.FindStringSubmatch(text); m != nil {
		if dm := datePat.FindStringSubmatch(m[1]); dm != nil {
			d.LossDate = dm[1]
		}
	}

	dates := datePat.FindAllString(text, 2)
	if len(dates) > 0 && d.IncidentDate == "" {
		d.IncidentDate = dates[0]
	}
	if len(dates) > 1 && d.LossDate == "" {
		d.LossDate = dates[1]
	}
}

// extractCost walks the anchor list first, then falls back to the largest
// bare money token in the document. Large unanchored numbers are more likely
// to be the claim amount than noise.
func extractCost(text string) (float64, bool) {
	lower := strings.ToLower(text)

	for _, anchor := range costAnchors {
		idx := strings.Index(lower, anchor)
		if idx == -1 {
			continue
		}
		end := idx + len(anchor) + costAnchorWindow
		if end > len(text) {
			end = len(text)
		}
		if m := moneyPat.FindStringSubmatch(text[idx:end]); m != nil {
			if v, ok := parseMoney(m[1]); ok && v > 0 {
				return v, true
			}
		}
	}

	matches := moneyPat.FindAllStringSubmatch(text, 10)
	best := 0.0
	for _, m := range matches {
		if v, ok := parseMoney(m[1]); ok && v > costFallbackFloor && v > best {
			best = v
		}
	}
	if best > 0 {
		return best, true
	}
	return 0, false
}

func parseMoney(s string) (float64, bool) {
	s = strings.NewReplacer(",", "", "₹", "", "$", "").Replace(s)
	s = strings.TrimSpace(strings.TrimLeft(s, "i"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// severityIndicator is a supplementary signal derived from keyword presence,
// used downstream when monetary data is absent.
func severityIndicator(text string) models.SeverityIndicator {
	lower := strings.ToLower(text)

	high := 0
	for _, kw := range severityKeywordsHigh {
		if strings.Contains(lower, kw) {
			high++
		}
	}
	med := 0
	for _, kw := range severityKeywordsMedium {
		if strings.Contains(lower, kw) {
			med++
		}
	}

	switch {
	case high >= 2:
		return models.IndicatorHigh
	case high >= 1 || med >= 2:
		return models.IndicatorMedium
	case med >= 1:
		return models.IndicatorLow
	default:
		return models.IndicatorUnknown
	}
}
