package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clinref/clinref/model"
)

// doseRe captures a numeric dose with its unit, e.g. "1 mg", "0.5mcg", "2 units"
var doseRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(mg|mcg|microgram(?:s)?|g|units?|meq)\b`)

// parsedDose is one numeric dose found in answer text
type parsedDose struct {
	Value float64
	Unit  string
}

// parseDoses extracts every numeric dose from the text
func parseDoses(text string) []parsedDose {
	matches := doseRe.FindAllStringSubmatch(strings.ToLower(text), -1)
	doses := make([]parsedDose, 0, len(matches))
	for _, match := range matches {
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		unit := match[2]
		if strings.HasPrefix(unit, "microgram") {
			unit = "mcg"
		}
		if unit == "units" {
			unit = "unit"
		}
		doses = append(doses, parsedDose{Value: value, Unit: unit})
	}
	return doses
}

// guidelinesFor returns the safe-range rows for medications mentioned in the text
func guidelinesFor(table []model.DosageGuideline, text string) []model.DosageGuideline {
	lower := strings.ToLower(text)
	var matched []model.DosageGuideline
	for _, guideline := range table {
		if strings.Contains(lower, strings.ToLower(guideline.Medication)) {
			matched = append(matched, guideline)
		}
	}
	return matched
}

// checkDosage validates every numeric dose in answerText against the
// configured safe ranges for the medications it mentions. It returns
// warnings and whether the response confidence must be capped. The answer
// text itself is never altered; an unsafe number is surfaced, not corrected.
func checkDosage(table []model.DosageGuideline, answerText string, queryText string) ([]string, bool) {
	doses := parseDoses(answerText)
	if len(doses) == 0 {
		return []string{"No numeric dose found in the answer; verify the dose against the source document before use."}, true
	}

	guidelines := guidelinesFor(table, answerText+" "+queryText)
	if len(guidelines) == 0 {
		return []string{"Dose could not be verified against the safe-range table; verify against the source document before use."}, true
	}

	var warnings []string
	capped := false
	for _, dose := range doses {
		inRange := false
		unitKnown := false
		for _, guideline := range guidelines {
			if !strings.EqualFold(guideline.Unit, dose.Unit) {
				continue
			}
			unitKnown = true
			if dose.Value >= guideline.MinDose && dose.Value <= guideline.MaxDose {
				inRange = true
				break
			}
		}
		if !unitKnown {
			// No guideline covers this unit for the matched medication.
			// A g-vs-mg mix-up must not slip through unchecked.
			warnings = append(warnings, fmt.Sprintf(
				"Dose %g %s could not be verified against the safe-range table; verify against the source document before use.",
				dose.Value, dose.Unit))
			capped = true
			continue
		}
		if !inRange {
			warnings = append(warnings, fmt.Sprintf(
				"Dose %g %s is outside the configured safe range; verify against the source document before use.",
				dose.Value, dose.Unit))
			capped = true
		}
	}

	return warnings, capped
}
