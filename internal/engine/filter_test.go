package engine

import (
	"testing"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

func TestFilterExcludesOnFalse(t *testing.T) {
	filters := []domain.Filter{
		{Field: "sector", Op: domain.OpIn, Values: []any{"industrial", "software"}, OnMissing: domain.MissingExclude},
	}

	company := testCompany(map[string]any{"sector": "retail"})
	decision, err := ApplyFilters(filters, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Include {
		t.Fatal("expected exclusion for non-matching sector")
	}
	if decision.Reason == "" {
		t.Error("exclusion must carry a reason")
	}
}

func TestFilterMissingFieldPolicies(t *testing.T) {
	company := testCompany(map[string]any{"revenue_m": 50.0})

	exclude := []domain.Filter{
		{Field: "sector", Op: domain.OpIn, Values: []any{"industrial"}, OnMissing: domain.MissingExclude},
	}
	decision, err := ApplyFilters(exclude, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Include {
		t.Error("exclude policy should drop a company missing the field")
	}

	include := []domain.Filter{
		{Field: "sector", Op: domain.OpIn, Values: []any{"industrial"}, OnMissing: domain.MissingInclude},
	}
	decision, err = ApplyFilters(include, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Include {
		t.Error("include policy should waive a filter on a missing field")
	}
}

func TestFiltersApplyInDeclarationOrder(t *testing.T) {
	company := testCompany(map[string]any{
		"sector":    "retail",
		"revenue_m": 0.5,
	})

	filters := []domain.Filter{
		{Field: "revenue_m", Op: domain.OpGt, Values: []any{1.0}, OnMissing: domain.MissingInclude},
		{Field: "sector", Op: domain.OpIn, Values: []any{"industrial"}, OnMissing: domain.MissingInclude},
	}

	decision, err := ApplyFilters(filters, company)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Include {
		t.Fatal("expected exclusion")
	}
	// Both filters fail; the first declared one must decide.
	if want := `filter on "revenue_m" (gt) not satisfied`; decision.Reason != want {
		t.Errorf("got reason %q, want %q", decision.Reason, want)
	}
}

func TestFilterOperators(t *testing.T) {
	tests := []struct {
		name    string
		filter  domain.Filter
		fields  map[string]any
		include bool
	}{
		{
			name:    "gt pass",
			filter:  domain.Filter{Field: "revenue_m", Op: domain.OpGt, Values: []any{10.0}, OnMissing: domain.MissingExclude},
			fields:  map[string]any{"revenue_m": 50.0},
			include: true,
		},
		{
			name:    "lt fail",
			filter:  domain.Filter{Field: "employees", Op: domain.OpLt, Values: []any{100.0}, OnMissing: domain.MissingExclude},
			fields:  map[string]any{"employees": 250},
			include: false,
		},
		{
			name:    "between pass",
			filter:  domain.Filter{Field: "revenue_m", Op: domain.OpBetween, Values: []any{10.0, 100.0}, OnMissing: domain.MissingExclude},
			fields:  map[string]any{"revenue_m": 10.0},
			include: true,
		},
		{
			name:    "eq pass",
			filter:  domain.Filter{Field: "country", Op: domain.OpEq, Values: []any{"DE"}, OnMissing: domain.MissingExclude},
			fields:  map[string]any{"country": "DE"},
			include: true,
		},
		{
			name:    "contains fail",
			filter:  domain.Filter{Field: "description", Op: domain.OpContains, Values: []any{"aerospace"}, OnMissing: domain.MissingExclude},
			fields:  map[string]any{"description": "food distribution"},
			include: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := ApplyFilters([]domain.Filter{tt.filter}, testCompany(tt.fields))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decision.Include != tt.include {
				t.Errorf("include = %v, want %v (reason %q)", decision.Include, tt.include, decision.Reason)
			}
		})
	}
}

func TestFilterTypeMismatchSurfacesAsError(t *testing.T) {
	filters := []domain.Filter{
		{Field: "revenue_m", Op: domain.OpGt, Values: []any{10.0}, OnMissing: domain.MissingExclude},
	}
	company := testCompany(map[string]any{"revenue_m": "unknown"})

	_, err := ApplyFilters(filters, company)
	if err == nil {
		t.Fatal("expected error for type-mismatched filter field")
	}
}

func TestValidateFilter(t *testing.T) {
	bad := domain.Filter{Field: "sector", Op: "matches", OnMissing: domain.MissingExclude}
	if err := validateFilter(&bad); err == nil {
		t.Error("expected error for unknown operator")
	}

	noPolicy := domain.Filter{Field: "sector", Op: domain.OpEq, Values: []any{"x"}}
	if err := validateFilter(&noPolicy); err == nil {
		t.Error("expected error for missing on_missing policy")
	}

	ok := domain.Filter{Field: "sector", Op: domain.OpEq, Values: []any{"x"}, OnMissing: domain.MissingInclude}
	if err := validateFilter(&ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
