package enrich

import (
	"testing"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

func TestApplyDerivedFields(t *testing.T) {
	enricher, err := New([]domain.DerivedField{
		{Name: "revenue_per_head", Expression: `double(company.revenue_m) * 1000000.0 / double(company.employees)`},
		{Name: "is_midsize", Expression: `double(company.revenue_m) >= 10.0 && double(company.revenue_m) <= 100.0`},
	})
	if err != nil {
		t.Fatalf("failed to compile derived fields: %v", err)
	}
	if enricher.FieldCount() != 2 {
		t.Errorf("expected 2 compiled fields, got %d", enricher.FieldCount())
	}

	company := &domain.Company{
		ID: "co-001",
		Fields: map[string]any{
			"revenue_m": 50.0,
			"employees": 200.0,
		},
	}

	enriched := enricher.Apply(company)

	if v, ok := enriched.NumberField("revenue_per_head"); !ok || v != 250000.0 {
		t.Errorf("revenue_per_head = %v (%v), want 250000", v, ok)
	}
	if v, ok := enriched.Field("is_midsize"); !ok || v != true {
		t.Errorf("is_midsize = %v (%v), want true", v, ok)
	}

	// The input record is never mutated.
	if _, ok := company.Field("revenue_per_head"); ok {
		t.Error("Apply must not mutate the input company")
	}
}

func TestFailingExpressionLeavesFieldAbsent(t *testing.T) {
	enricher, err := New([]domain.DerivedField{
		{Name: "revenue_per_head", Expression: `double(company.revenue_m) / double(company.employees)`},
	})
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	// employees missing: the expression errors at eval time.
	company := &domain.Company{
		ID:     "co-002",
		Fields: map[string]any{"revenue_m": 50.0},
	}

	enriched := enricher.Apply(company)
	if _, ok := enriched.Field("revenue_per_head"); ok {
		t.Error("failed expression must leave the derived field absent")
	}
	// Original fields survive.
	if _, ok := enriched.Field("revenue_m"); !ok {
		t.Error("existing fields must survive enrichment")
	}
}

func TestCompileErrorFailsConstruction(t *testing.T) {
	_, err := New([]domain.DerivedField{
		{Name: "broken", Expression: `this is not CEL !!!`},
	})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestNoDerivedFieldsPassesThrough(t *testing.T) {
	enricher, err := New(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	company := &domain.Company{ID: "co-003", Fields: map[string]any{"sector": "industrial"}}
	if enriched := enricher.Apply(company); enriched != company {
		t.Error("empty enricher should return the record unchanged")
	}
}
