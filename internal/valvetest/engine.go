// Package valvetest computes POP test verdicts from measured pressures.
// Everything here is pure computation so the same rules can back both the
// live form preview endpoint and the authoritative server-side recalculation
// at submission time.
package valvetest

import (
	"fmt"
	"math"
	"regexp"
	"time"
)

// Tolerance bands per ISO 4126-1 / ASME III. The pop band is deliberately
// tighter than the reset band and the two verdict vocabularies differ.
const (
	PopToleranceLimit   = 3.0
	ResetToleranceLimit = 10.0
)

const (
	VerdictPassed       = "Passed"
	VerdictFailed       = "Failed"
	VerdictSatisfactory = "Satisfactory"
)

// Result holds the derived fields for one valve. Tolerances are formatted to
// one decimal with a percent suffix. Fields whose inputs were absent stay
// empty rather than zero.
type Result struct {
	PopTolerance   string `json:"pop_tolerance"`
	ResetTolerance string `json:"reset_tolerance"`
	PopResult      string `json:"pop_result"`
	ResetResult    string `json:"reset_result"`
	OverallResult  string `json:"overall_result"`
}

// ComputeResult derives tolerances and verdicts from the three test pressures.
// A pressure of zero (or below) means "not measured" and clears the dependent
// outputs instead of computing them.
func ComputeResult(setPressure, popPressure, resetPressure float64) Result {
	var res Result

	if setPressure > 0 && popPressure > 0 {
		tol := math.Abs(popPressure-setPressure) / setPressure * 100
		res.PopTolerance = fmt.Sprintf("%.1f%%", tol)
		if tol <= PopToleranceLimit {
			res.PopResult = VerdictPassed
		} else {
			res.PopResult = VerdictFailed
		}
	}

	if setPressure > 0 && resetPressure > 0 {
		tol := math.Abs(resetPressure-setPressure) / setPressure * 100
		res.ResetTolerance = fmt.Sprintf("%.1f%%", tol)
		if tol <= ResetToleranceLimit {
			res.ResetResult = VerdictSatisfactory
		} else {
			res.ResetResult = VerdictFailed
		}
	}

	switch {
	case res.PopResult == VerdictPassed && res.ResetResult == VerdictSatisfactory:
		res.OverallResult = VerdictPassed
	case res.PopResult != "" || res.ResetResult != "":
		res.OverallResult = VerdictFailed
	}

	return res
}

// PressurePair maps a nominal set pressure to its reference input pressure
type PressurePair struct {
	Set   float64
	Input float64
}

// InputPressure resolves the input pressure for a set pressure. An exact
// match in the reference table wins; otherwise set pressure plus one Bar,
// rounded to one decimal.
func InputPressure(setPressure float64, table []PressurePair) float64 {
	for _, p := range table {
		if p.Set == setPressure {
			return p.Input
		}
	}
	return math.Round((setPressure+1.0)*10) / 10
}

// NextTestInterval is a literal day count, not a calendar two and a half years
const NextTestInterval = 912

// NextTestDate returns the due date for the following test
func NextTestDate(testDate time.Time) time.Time {
	return testDate.AddDate(0, 0, NextTestInterval)
}

var refNoPattern = regexp.MustCompile(`^KSE-\d{6}-\d{2}$`)

// ValidRefNo reports whether a reference number matches KSE-ddmmyy-NN
func ValidRefNo(refNo string) bool {
	return refNoPattern.MatchString(refNo)
}
