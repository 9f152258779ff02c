package models

import (
	"regexp"
	"strconv"
)

var leadingDigits = regexp.MustCompile(`^(\d+)`)

// MaturityScore derives the numeric score from a maturity level label: the
// leading integer of the label, or nil for an empty label, "NA - Not
// Applicable" and anything that does not start with a digit.
func MaturityScore(level string) *int {
	if level == "" || level == MaturityNotApplicable {
		return nil
	}
	m := leadingDigits.FindStringSubmatch(level)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

var ratingValues = map[Rating]int{
	RatingVeryLow:  1,
	RatingLow:      2,
	RatingMedium:   3,
	RatingHigh:     4,
	RatingVeryHigh: 5,
}

// RatingValue maps a likelihood or impact rating onto 1-5. Unknown ratings
// count as Medium.
func RatingValue(r Rating) int {
	if v, ok := ratingValues[r]; ok {
		return v
	}
	return 3
}

// CalculateRiskLevel is the 5x5 likelihood by impact lookup.
func CalculateRiskLevel(likelihood, impact Rating) RiskLevel {
	score := RatingValue(likelihood) * RatingValue(impact)
	switch {
	case score >= 20:
		return RiskCritical
	case score >= 15:
		return RiskVeryHigh
	case score >= 10:
		return RiskHigh
	case score >= 6:
		return RiskMedium
	case score >= 3:
		return RiskLow
	default:
		return RiskVeryLow
	}
}
