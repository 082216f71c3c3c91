package engine

import (
	"strings"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

// EvalCondition evaluates one condition tree against a company record.
// A missing or null field makes a leaf Unknown; a type mismatch between the
// field value and the comparison value is an error (a thesis-authoring bug,
// surfaced rather than silently skipped). And/Or short-circuit with Kleene
// semantics: a decided child stops evaluation of its siblings.
func EvalCondition(c *domain.Condition, company *domain.Company) (Tristate, error) {
	switch c.Kind {
	case domain.CondAnd:
		result := True
		for _, child := range c.Children {
			t, err := EvalCondition(child, company)
			if err != nil {
				return Unknown, err
			}
			if t == False {
				return False, nil
			}
			if t == Unknown {
				result = Unknown
			}
		}
		return result, nil

	case domain.CondOr:
		result := False
		for _, child := range c.Children {
			t, err := EvalCondition(child, company)
			if err != nil {
				return Unknown, err
			}
			if t == True {
				return True, nil
			}
			if t == Unknown {
				result = Unknown
			}
		}
		return result, nil

	case domain.CondNot:
		t, err := EvalCondition(c.Children[0], company)
		if err != nil {
			return Unknown, err
		}
		return not(t), nil

	case domain.CondFieldGreaterThan:
		return compareNumeric(c, company, func(field, bound float64) bool { return field > bound })

	case domain.CondFieldLessThan:
		return compareNumeric(c, company, func(field, bound float64) bool { return field < bound })

	case domain.CondFieldBetween:
		return evalBetween(c, company)

	case domain.CondFieldIn:
		return evalIn(c.Field, c.Values, company)

	case domain.CondFieldContains:
		v, ok := company.Field(c.Field)
		if !ok {
			return Unknown, nil
		}
		return evalContains(c.Kind, c.Field, v, c.Value)

	case domain.CondHasCertificate:
		certs, ok := company.Certifications()
		if !ok {
			return Unknown, nil
		}
		want, isString := c.Value.(string)
		if !isString {
			return Unknown, &domain.TypeMismatchError{Field: domain.FieldCertifications, Kind: c.Kind, Got: c.Value, Expected: "string"}
		}
		for _, cert := range certs {
			if cert == want {
				return True, nil
			}
		}
		return False, nil

	case domain.CondHasAnyCertificate:
		certs, ok := company.Certifications()
		if !ok {
			return Unknown, nil
		}
		held := make(map[string]struct{}, len(certs))
		for _, cert := range certs {
			held[cert] = struct{}{}
		}
		for _, raw := range c.Values {
			want, isString := raw.(string)
			if !isString {
				return Unknown, &domain.TypeMismatchError{Field: domain.FieldCertifications, Kind: c.Kind, Got: raw, Expected: "string"}
			}
			if _, ok := held[want]; ok {
				return True, nil
			}
		}
		return False, nil

	case domain.CondSemanticScoreAtLeast:
		score, ok := company.SemanticScore(c.Attribute)
		if !ok {
			return Unknown, nil
		}
		return fromBool(score >= *c.Min), nil

	case domain.CondCustomFieldCompare:
		v, ok := company.CustomField(c.Field)
		if !ok {
			return Unknown, nil
		}
		return evalCustomCompare(c, v)

	default:
		// Unreachable for a validated thesis; construction rejects unknown
		// kinds before any record is scored.
		return Unknown, &domain.MalformedThesisError{Reason: "unknown condition kind " + string(c.Kind)}
	}
}

// compareNumeric handles field_gt and field_lt leaves.
func compareNumeric(c *domain.Condition, company *domain.Company, cmp func(field, bound float64) bool) (Tristate, error) {
	v, ok := company.Field(c.Field)
	if !ok {
		return Unknown, nil
	}
	field, ok := domain.AsNumber(v)
	if !ok {
		return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: v, Expected: "number"}
	}
	bound, ok := domain.AsNumber(c.Value)
	if !ok {
		return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: c.Value, Expected: "numeric bound"}
	}
	return fromBool(cmp(field, bound)), nil
}

// evalBetween is inclusive on both bounds.
func evalBetween(c *domain.Condition, company *domain.Company) (Tristate, error) {
	v, ok := company.Field(c.Field)
	if !ok {
		return Unknown, nil
	}
	field, ok := domain.AsNumber(v)
	if !ok {
		return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: v, Expected: "number"}
	}
	if c.Min == nil || c.Max == nil {
		return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: nil, Expected: "min and max bounds"}
	}
	return fromBool(field >= *c.Min && field <= *c.Max), nil
}

// evalIn checks membership of the field value in the candidate list. A list
// whose candidates are all type-incompatible with the field value is a
// mismatch, not a miss.
func evalIn(fieldName string, candidates []any, company *domain.Company) (Tristate, error) {
	v, ok := company.Field(fieldName)
	if !ok {
		return Unknown, nil
	}
	comparable := false
	for _, candidate := range candidates {
		eq, ok := valueEquals(v, candidate)
		if !ok {
			continue
		}
		comparable = true
		if eq {
			return True, nil
		}
	}
	if !comparable && len(candidates) > 0 {
		return Unknown, &domain.TypeMismatchError{Field: fieldName, Kind: domain.CondFieldIn, Got: v, Expected: "value comparable to candidates"}
	}
	return False, nil
}

// evalContains matches a substring on string fields and membership on list
// fields.
func evalContains(kind domain.ConditionKind, fieldName string, fieldValue, want any) (Tristate, error) {
	switch fv := fieldValue.(type) {
	case string:
		sub, ok := want.(string)
		if !ok {
			return Unknown, &domain.TypeMismatchError{Field: fieldName, Kind: kind, Got: want, Expected: "string"}
		}
		return fromBool(strings.Contains(fv, sub)), nil
	case []any:
		for _, item := range fv {
			if eq, ok := valueEquals(item, want); ok && eq {
				return True, nil
			}
		}
		return False, nil
	case []string:
		sub, ok := want.(string)
		if !ok {
			return Unknown, &domain.TypeMismatchError{Field: fieldName, Kind: kind, Got: want, Expected: "string"}
		}
		for _, item := range fv {
			if item == sub {
				return True, nil
			}
		}
		return False, nil
	default:
		return Unknown, &domain.TypeMismatchError{Field: fieldName, Kind: kind, Got: fieldValue, Expected: "string or list"}
	}
}

// evalCustomCompare applies the declared operator to a custom thesis-question
// answer.
func evalCustomCompare(c *domain.Condition, value any) (Tristate, error) {
	switch c.Op {
	case domain.OpEq:
		eq, ok := valueEquals(value, c.Value)
		if !ok {
			return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: value, Expected: "value comparable to target"}
		}
		return fromBool(eq), nil
	case domain.OpGt, domain.OpLt:
		field, ok := domain.AsNumber(value)
		if !ok {
			return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: value, Expected: "number"}
		}
		bound, ok := domain.AsNumber(c.Value)
		if !ok {
			return Unknown, &domain.TypeMismatchError{Field: c.Field, Kind: c.Kind, Got: c.Value, Expected: "numeric bound"}
		}
		if c.Op == domain.OpGt {
			return fromBool(field > bound), nil
		}
		return fromBool(field < bound), nil
	case domain.OpContains:
		return evalContains(c.Kind, c.Field, value, c.Value)
	case domain.OpIn:
		for _, candidate := range c.Values {
			if eq, ok := valueEquals(value, candidate); ok && eq {
				return True, nil
			}
		}
		return False, nil
	default:
		return Unknown, &domain.MalformedThesisError{Reason: "unknown custom compare operator " + c.Op}
	}
}

// valueEquals compares two scalars. Numbers compare numerically regardless of
// concrete type; strings and bools compare directly. The second return is
// false when the types are not comparable at all.
func valueEquals(a, b any) (equal bool, comparable bool) {
	if na, ok := domain.AsNumber(a); ok {
		nb, ok := domain.AsNumber(b)
		if !ok {
			return false, false
		}
		return na == nb, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return false, false
		}
		return av == bv, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return false, false
		}
		return av == bv, true
	default:
		return false, false
	}
}
