package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// EvalRule evaluates one scoring rule against a company record.
//
// The requires_fields declaration is checked first: any missing field skips
// the rule outright, so skip accounting is driven by what the rule declares,
// not by Unknown propagation deep in the condition tree. Pure function of its
// inputs apart from the defect log below.
func EvalRule(rule *domain.ScoringRule, company *domain.Company) domain.RuleOutcome {
	outcome := domain.RuleOutcome{RuleID: rule.ID}

	var missing []string
	for _, field := range rule.RequiresFields {
		if !company.HasField(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		outcome.Status = domain.RuleSkipped
		outcome.MissingFields = missing
		return outcome
	}

	result, err := EvalCondition(rule.Condition, company)
	if err != nil {
		outcome.Status = domain.RuleErrored
		outcome.Err = err
		return outcome
	}

	switch result {
	case True:
		outcome.Status = domain.RuleTriggered
		outcome.Points = rule.Points
		outcome.Justification = renderJustification(rule.JustificationTemplate, company)
	case False:
		outcome.Status = domain.RuleNotTriggered
	case Unknown:
		// All declared fields were present yet the tree could not decide:
		// the condition reads a field not listed in requires_fields. A
		// data-modeling defect, counted as not triggered.
		slog.Warn("condition unknown with declared fields present",
			"rule_id", rule.ID,
			"fields_read", rule.Condition.FieldsRead(),
			"requires_fields", rule.RequiresFields,
		)
		outcome.Status = domain.RuleNotTriggered
	}

	return outcome
}

// renderJustification substitutes {field} placeholders with company field
// values. Unresolvable placeholders are left verbatim so the defect is
// visible in the stored justification.
func renderJustification(template string, company *domain.Company) string {
	if template == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		v, ok := company.Field(name)
		if !ok {
			return match
		}
		return formatFieldValue(v)
	})
}

func formatFieldValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	default:
		if n, ok := domain.AsNumber(v); ok {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return fmt.Sprintf("%v", v)
	}
}
