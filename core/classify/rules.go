package classify

import (
	"regexp"

	"github.com/clinref/clinref/model"
)

// typeRule is one anchored pattern voting for a query type
type typeRule struct {
	queryType  model.QueryType
	pattern    *regexp.Regexp
	confidence float64
}

// typePriority is the fixed tie-break order when a query matches rules for
// multiple types at the same confidence. Contact and form lookups are the
// most operationally urgent, summaries the least specific.
var typePriority = []model.QueryType{
	model.QueryTypeContact,
	model.QueryTypeForm,
	model.QueryTypeDosage,
	model.QueryTypeProtocol,
	model.QueryTypeCriteria,
	model.QueryTypeSummary,
}

// defaultRules returns the ordered rule set evaluated before the LLM.
// Patterns match against the lowercased, whitespace-collapsed query.
func defaultRules() []typeRule {
	return []typeRule{
		// CONTACT
		{model.QueryTypeContact, regexp.MustCompile(`\bon[- ]?call\b`), 0.95},
		{model.QueryTypeContact, regexp.MustCompile(`\b(pager|bleep|page)\b`), 0.95},
		{model.QueryTypeContact, regexp.MustCompile(`\bwho (do i|should i|to) (call|contact|page)\b`), 0.95},
		{model.QueryTypeContact, regexp.MustCompile(`\b(phone|extension|contact) (number|for)\b`), 0.85},
		{model.QueryTypeContact, regexp.MustCompile(`\bhow (do i|to) reach\b`), 0.8},

		// FORM
		{model.QueryTypeForm, regexp.MustCompile(`\b(form|consent form|checklist|worksheet)\b`), 0.95},
		{model.QueryTypeForm, regexp.MustCompile(`\b(show|find|get|need|where is) .*\b(form|document|pdf)\b`), 0.92},
		{model.QueryTypeForm, regexp.MustCompile(`\bprint(out|able)?\b`), 0.7},

		// DOSAGE
		{model.QueryTypeDosage, regexp.MustCompile(`\b(dose|dosage|dosing)\b`), 0.95},
		{model.QueryTypeDosage, regexp.MustCompile(`\bhow (much|many) .*\b(give|administer)\b`), 0.9},
		{model.QueryTypeDosage, regexp.MustCompile(`\b\d+(\.\d+)? ?(mg|mcg|microgram|g|units?|meq)\b`), 0.85},
		{model.QueryTypeDosage, regexp.MustCompile(`\b(infusion|bolus) rate\b`), 0.85},

		// PROTOCOL
		{model.QueryTypeProtocol, regexp.MustCompile(`\b(protocol|pathway|algorithm)\b`), 0.95},
		{model.QueryTypeProtocol, regexp.MustCompile(`\b(management|work ?up|steps) (of|for)\b`), 0.85},
		{model.QueryTypeProtocol, regexp.MustCompile(`\bhow (do we|to) (manage|treat)\b`), 0.8},

		// CRITERIA
		{model.QueryTypeCriteria, regexp.MustCompile(`\b(criteria|score|scoring)\b`), 0.95},
		{model.QueryTypeCriteria, regexp.MustCompile(`\b(ottawa|wells|centor|curb-?65|perc|nexus|glasgow) (rule|score|criteria)?\b`), 0.9},
		{model.QueryTypeCriteria, regexp.MustCompile(`\bwhen (do i|to|should)\b.*\b(order|scan|image|admit|transfuse)\b`), 0.85},
		{model.QueryTypeCriteria, regexp.MustCompile(`\b(indication|eligib|qualif)`), 0.8},

		// SUMMARY
		{model.QueryTypeSummary, regexp.MustCompile(`\b(summar(y|ize)|overview|explain|tell me about)\b`), 0.7},
		{model.QueryTypeSummary, regexp.MustCompile(`\bwhat (is|are)\b`), 0.5},
	}
}

// bestRuleMatch evaluates all rules against text and returns the strongest
// match per the fixed priority order, or nil when nothing matches
func bestRuleMatch(rules []typeRule, text string) *model.Classification {
	best := make(map[model.QueryType]float64)
	for _, rule := range rules {
		if rule.pattern.MatchString(text) && rule.confidence > best[rule.queryType] {
			best[rule.queryType] = rule.confidence
		}
	}

	var result *model.Classification
	for _, queryType := range typePriority {
		confidence, ok := best[queryType]
		if !ok {
			continue
		}
		// Strictly greater keeps the earlier priority type on equal confidence
		if result == nil || confidence > result.Confidence {
			result = &model.Classification{
				Type:       queryType,
				Confidence: confidence,
				Method:     model.MethodRule,
			}
		}
	}

	return result
}
