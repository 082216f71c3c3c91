package engine

import (
	"fmt"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

// ApplyFilters runs the pre-scoring gate. Filters apply in declaration order
// and the first exclusion decides, so the reported reason is deterministic
// for a given filter list and record. A False condition always excludes; a
// missing field maps through the filter's on_missing policy.
func ApplyFilters(filters []domain.Filter, company *domain.Company) (domain.FilterDecision, error) {
	for i := range filters {
		f := &filters[i]
		result, err := EvalCondition(filterCondition(f), company)
		if err != nil {
			return domain.FilterDecision{}, fmt.Errorf("filter %d on field %q: %w", i, f.Field, err)
		}

		switch result {
		case False:
			return domain.FilterDecision{
				Include: false,
				Reason:  fmt.Sprintf("filter on %q (%s) not satisfied", f.Field, f.Op),
			}, nil
		case Unknown:
			if f.OnMissing == domain.MissingExclude {
				return domain.FilterDecision{
					Include: false,
					Reason:  fmt.Sprintf("field %q missing with exclude policy", f.Field),
				}, nil
			}
			// include policy waives the filter
		}
	}
	return domain.FilterDecision{Include: true}, nil
}

// filterCondition maps a flat filter onto the condition tree vocabulary so
// both gates share one evaluator.
func filterCondition(f *domain.Filter) *domain.Condition {
	c := &domain.Condition{Field: f.Field}
	switch f.Op {
	case domain.OpGt:
		c.Kind = domain.CondFieldGreaterThan
		c.Value = firstValue(f.Values)
	case domain.OpLt:
		c.Kind = domain.CondFieldLessThan
		c.Value = firstValue(f.Values)
	case domain.OpBetween:
		c.Kind = domain.CondFieldBetween
		if len(f.Values) >= 2 {
			if lo, ok := domain.AsNumber(f.Values[0]); ok {
				c.Min = &lo
			}
			if hi, ok := domain.AsNumber(f.Values[1]); ok {
				c.Max = &hi
			}
		}
	case domain.OpIn, domain.OpEq:
		c.Kind = domain.CondFieldIn
		c.Values = f.Values
	case domain.OpContains:
		c.Kind = domain.CondFieldContains
		c.Value = firstValue(f.Values)
	}
	return c
}

// validateFilter rejects unknown filter operators at engine construction.
func validateFilter(f *domain.Filter) error {
	switch f.Op {
	case domain.OpGt, domain.OpLt, domain.OpBetween, domain.OpIn, domain.OpEq, domain.OpContains:
	default:
		return fmt.Errorf("unknown filter operator %q", f.Op)
	}
	if f.Field == "" {
		return fmt.Errorf("filter requires a field name")
	}
	switch f.OnMissing {
	case domain.MissingExclude, domain.MissingInclude:
	default:
		return fmt.Errorf("filter on %q: unknown on_missing policy %q", f.Field, f.OnMissing)
	}
	return nil
}

func firstValue(values []any) any {
	if len(values) == 0 {
		return nil
	}
	return values[0]
}
