package engine

import (
	"testing"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

func TestRuleTriggered(t *testing.T) {
	rule := &domain.ScoringRule{
		ID:     "r-revenue",
		Points: 25,
		Condition: &domain.Condition{
			Kind:  domain.CondFieldBetween,
			Field: "revenue_m",
			Min:   numPtr(10),
			Max:   numPtr(100),
		},
		JustificationTemplate: "Revenue of {revenue_m}M sits in the target band",
		RequiresFields:        []string{"revenue_m"},
	}

	company := testCompany(map[string]any{"revenue_m": 50.0})
	outcome := EvalRule(rule, company)

	if outcome.Status != domain.RuleTriggered {
		t.Fatalf("expected triggered, got %s", outcome.Status)
	}
	if outcome.Points != 25 {
		t.Errorf("expected 25 points, got %d", outcome.Points)
	}
	if outcome.Justification != "Revenue of 50M sits in the target band" {
		t.Errorf("unexpected justification: %q", outcome.Justification)
	}
}

func TestRuleSkippedOnMissingRequiredFields(t *testing.T) {
	rule := &domain.ScoringRule{
		ID:     "r-margin",
		Points: 20,
		Condition: &domain.Condition{
			Kind:  domain.CondFieldGreaterThan,
			Field: "ebitda_margin",
			Value: 0.15,
		},
		RequiresFields: []string{"ebitda_margin", "revenue_m"},
	}

	// Empty record: everything required is missing.
	outcome := EvalRule(rule, testCompany(map[string]any{}))
	if outcome.Status != domain.RuleSkipped {
		t.Fatalf("expected skipped, got %s", outcome.Status)
	}
	if len(outcome.MissingFields) != 2 {
		t.Errorf("expected 2 missing fields, got %v", outcome.MissingFields)
	}

	// A null value counts as missing too.
	outcome = EvalRule(rule, testCompany(map[string]any{
		"ebitda_margin": nil,
		"revenue_m":     50.0,
	}))
	if outcome.Status != domain.RuleSkipped {
		t.Fatalf("expected skipped for null field, got %s", outcome.Status)
	}
	if len(outcome.MissingFields) != 1 || outcome.MissingFields[0] != "ebitda_margin" {
		t.Errorf("expected ebitda_margin missing, got %v", outcome.MissingFields)
	}
}

func TestRuleErroredOnTypeMismatch(t *testing.T) {
	rule := &domain.ScoringRule{
		ID:     "r-revenue",
		Points: 25,
		Condition: &domain.Condition{
			Kind:  domain.CondFieldGreaterThan,
			Field: "revenue_m",
			Value: 10.0,
		},
		RequiresFields: []string{"revenue_m"},
	}

	outcome := EvalRule(rule, testCompany(map[string]any{"revenue_m": "fifty"}))
	if outcome.Status != domain.RuleErrored {
		t.Fatalf("expected errored, got %s", outcome.Status)
	}
	if outcome.Err == nil {
		t.Error("expected error on outcome")
	}
	if outcome.Points != 0 {
		t.Errorf("errored rule must not award points, got %d", outcome.Points)
	}
}

func TestRuleUnknownWithoutDeclarationIsNotTriggered(t *testing.T) {
	// Condition reads a field not listed in requires_fields; the skip gate
	// passes, the tree can't decide, and the rule counts as not triggered.
	rule := &domain.ScoringRule{
		ID:     "r-undeclared",
		Points: 10,
		Condition: &domain.Condition{
			Kind:  domain.CondFieldGreaterThan,
			Field: "ebitda_margin",
			Value: 0.1,
		},
		RequiresFields: []string{"revenue_m"},
	}

	outcome := EvalRule(rule, testCompany(map[string]any{"revenue_m": 50.0}))
	if outcome.Status != domain.RuleNotTriggered {
		t.Fatalf("expected not triggered, got %s", outcome.Status)
	}
}

func TestJustificationRendering(t *testing.T) {
	company := testCompany(map[string]any{
		"revenue_m": 42.5,
		"sector":    "industrial",
	})

	tests := []struct {
		template string
		want     string
	}{
		{"", ""},
		{"Strong {sector} player", "Strong industrial player"},
		{"Revenue {revenue_m}M in {sector}", "Revenue 42.5M in industrial"},
		{"Unknown {ebitda_margin} stays verbatim", "Unknown {ebitda_margin} stays verbatim"},
	}

	for _, tt := range tests {
		got := renderJustification(tt.template, company)
		if got != tt.want {
			t.Errorf("template %q: got %q, want %q", tt.template, got, tt.want)
		}
	}
}
