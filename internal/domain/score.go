package domain

import "time"

// ScoreResult is the audit record of one company scored under one thesis
// version. Results are created fresh on every pass and superseded, never
// mutated in place.
type ScoreResult struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenantId"`
	CompanyID     string `json:"companyId"`
	ThesisID      string `json:"thesisId"`
	ThesisVersion int    `json:"thesisVersion"`

	Score int    `json:"score"`
	Tier  string `json:"tier"`

	// Categories maps moat type to its aggregated contribution.
	Categories map[string]CategoryScore `json:"categories"`

	RulesEvaluated []string `json:"rulesEvaluated"`
	RulesSkipped   []string `json:"rulesSkipped"`

	// MissingFields is the union of missing requires_fields across skipped
	// rules.
	MissingFields []string `json:"missingFields"`

	// Completeness = evaluated / (evaluated + skipped); 1.0 for a zero-rule
	// thesis (vacuously complete).
	Completeness  float64 `json:"completeness"`
	IsProvisional bool    `json:"isProvisional"`

	// RuleErrors holds per-rule authoring defects (type mismatches). They
	// abort only the rule they belong to.
	RuleErrors []RuleError `json:"ruleErrors,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// CategoryScore is one moat category's entry in a score result.
type CategoryScore struct {
	Present       bool   `json:"present"`
	Score         int    `json:"score"`
	Justification string `json:"justification"`
}

// RuleError records a thesis-authoring defect surfaced while evaluating one
// rule.
type RuleError struct {
	RuleID  string `json:"ruleId"`
	Message string `json:"message"`
}

// RuleStatus classifies one rule's outcome against one company.
type RuleStatus string

const (
	RuleTriggered    RuleStatus = "triggered"
	RuleNotTriggered RuleStatus = "not_triggered"
	RuleSkipped      RuleStatus = "skipped"
	RuleErrored      RuleStatus = "error"
)

// RuleOutcome is the result of evaluating one scoring rule.
type RuleOutcome struct {
	RuleID        string     `json:"ruleId"`
	Status        RuleStatus `json:"status"`
	Points        int        `json:"points,omitempty"`
	Justification string     `json:"justification,omitempty"`
	MissingFields []string   `json:"missingFields,omitempty"`
	Err           error      `json:"-"`
}

// FilterDecision is the outcome of the pre-scoring filter gate.
type FilterDecision struct {
	Include bool   `json:"include"`
	Reason  string `json:"reason,omitempty"`
}

// BatchOutcome aggregates a batch scoring run: one result per included,
// successfully scored company, plus per-record failures. Excluded companies
// appear in neither.
type BatchOutcome struct {
	ThesisID      string         `json:"thesisId"`
	ThesisVersion int            `json:"thesisVersion"`
	Results       []*ScoreResult `json:"results"`
	Errors        []BatchError   `json:"errors,omitempty"`
	Excluded      int            `json:"excluded"`
	DurationMs    int64          `json:"durationMs"`
}

// BatchError captures one company's unexpected failure inside a batch.
type BatchError struct {
	CompanyID string `json:"companyId"`
	Message   string `json:"message"`
}

// ValidationResult reports whether a thesis carries the structural elements
// required before activation.
type ValidationResult struct {
	IsComplete      bool     `json:"isComplete"`
	MissingElements []string `json:"missingElements,omitempty"`
}
