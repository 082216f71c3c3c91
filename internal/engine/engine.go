package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Munns729/open-radar-sub001/internal/domain"
	"github.com/Munns729/open-radar-sub001/internal/enrich"
)

// Engine scores company records under one compiled thesis version. The thesis
// is validated and its derived fields compiled once at construction, so a
// malformed thesis fails fast before any record is touched; Score itself is a
// pure function safe to call from parallel workers.
type Engine struct {
	thesis         *domain.Thesis
	enricher       *enrich.Enricher
	tiers          []domain.TierThreshold
	categoryPolicy domain.CategoryPolicy
}

// Option configures the engine.
type Option func(*Engine)

// WithCategoryPolicy overrides how rules sharing a moat tag combine in the
// category map. Default is last-write-wins, matching the source design.
func WithCategoryPolicy(policy domain.CategoryPolicy) Option {
	return func(e *Engine) {
		e.categoryPolicy = policy
	}
}

// New builds an engine for a thesis. Structural violations - unknown
// condition kind, empty and/or group, bad not arity, unknown filter operator
// - return a MalformedThesisError.
func New(thesis *domain.Thesis, opts ...Option) (*Engine, error) {
	if thesis == nil {
		return nil, &domain.MalformedThesisError{Reason: "thesis is nil"}
	}

	for i := range thesis.Rules {
		rule := &thesis.Rules[i]
		if rule.Condition == nil {
			return nil, &domain.MalformedThesisError{
				ThesisID: thesis.ID,
				Reason:   fmt.Sprintf("rule %s has no condition", rule.ID),
			}
		}
		if err := rule.Condition.Validate(); err != nil {
			return nil, &domain.MalformedThesisError{
				ThesisID: thesis.ID,
				Reason:   fmt.Sprintf("rule %s: %v", rule.ID, err),
			}
		}
	}
	for i := range thesis.Filters {
		if err := validateFilter(&thesis.Filters[i]); err != nil {
			return nil, &domain.MalformedThesisError{
				ThesisID: thesis.ID,
				Reason:   err.Error(),
			}
		}
	}

	enricher, err := enrich.New(thesis.DerivedFields)
	if err != nil {
		return nil, &domain.MalformedThesisError{ThesisID: thesis.ID, Reason: err.Error()}
	}

	// Walk the tier table in descending-minimum order regardless of how the
	// compiler emitted it.
	tiers := make([]domain.TierThreshold, len(thesis.TierThresholds))
	copy(tiers, thesis.TierThresholds)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinScore > tiers[j].MinScore
	})

	e := &Engine{
		thesis:         thesis,
		enricher:       enricher,
		tiers:          tiers,
		categoryPolicy: domain.CategoryLast,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Thesis returns the thesis this engine was built for.
func (e *Engine) Thesis() *domain.Thesis {
	return e.thesis
}

// Score evaluates one company under the engine's thesis.
//
// Returns (nil, nil) when the company is excluded by a filter: an excluded
// company produces no score result at all, not a zero-score one. A rule-level
// type mismatch lands in the result's error list without aborting the pass.
func (e *Engine) Score(company *domain.Company) (*domain.ScoreResult, error) {
	if company == nil {
		return nil, fmt.Errorf("company is required")
	}

	record := e.enricher.Apply(company)

	decision, err := ApplyFilters(e.thesis.Filters, record)
	if err != nil {
		return nil, err
	}
	if !decision.Include {
		return nil, nil
	}

	result := &domain.ScoreResult{
		ID:             uuid.New().String(),
		TenantID:       company.TenantID,
		CompanyID:      company.ID,
		ThesisID:       e.thesis.ID,
		ThesisVersion:  e.thesis.Version,
		Categories:     make(map[string]domain.CategoryScore),
		RulesEvaluated: make([]string, 0, len(e.thesis.Rules)),
		RulesSkipped:   []string{},
		MissingFields:  []string{},
		Timestamp:      time.Now().UTC(),
	}

	missing := make(map[string]struct{})
	for i := range e.thesis.Rules {
		rule := &e.thesis.Rules[i]
		outcome := EvalRule(rule, record)

		switch outcome.Status {
		case domain.RuleTriggered:
			result.Score += outcome.Points
			result.RulesEvaluated = append(result.RulesEvaluated, rule.ID)
			if rule.MoatType != "" {
				e.mergeCategory(result.Categories, rule.MoatType, outcome)
			}
		case domain.RuleNotTriggered:
			result.RulesEvaluated = append(result.RulesEvaluated, rule.ID)
		case domain.RuleSkipped:
			result.RulesSkipped = append(result.RulesSkipped, rule.ID)
			for _, f := range outcome.MissingFields {
				missing[f] = struct{}{}
			}
		case domain.RuleErrored:
			// Authoring defect scoped to this rule. It still counts as
			// evaluated so evaluated + skipped covers every rule.
			result.RulesEvaluated = append(result.RulesEvaluated, rule.ID)
			result.RuleErrors = append(result.RuleErrors, domain.RuleError{
				RuleID:  rule.ID,
				Message: outcome.Err.Error(),
			})
		}
	}

	for f := range missing {
		result.MissingFields = append(result.MissingFields, f)
	}
	sort.Strings(result.MissingFields)

	evaluated := len(result.RulesEvaluated)
	skipped := len(result.RulesSkipped)
	if evaluated+skipped == 0 {
		// A thesis with zero rules is vacuously complete.
		result.Completeness = 1.0
	} else {
		result.Completeness = float64(evaluated) / float64(evaluated+skipped)
	}
	result.IsProvisional = result.Completeness < e.thesis.CompletenessThreshold

	result.Tier = e.assignTier(result.Score)

	return result, nil
}

// mergeCategory folds a triggered rule into the category map under the
// configured aggregation policy.
func (e *Engine) mergeCategory(categories map[string]domain.CategoryScore, moat string, outcome domain.RuleOutcome) {
	entry := domain.CategoryScore{
		Present:       true,
		Score:         outcome.Points,
		Justification: outcome.Justification,
	}

	prev, exists := categories[moat]
	if !exists {
		categories[moat] = entry
		return
	}

	switch e.categoryPolicy {
	case domain.CategorySum:
		entry.Score = prev.Score + outcome.Points
		if prev.Justification != "" && outcome.Justification != "" {
			entry.Justification = prev.Justification + "; " + outcome.Justification
		} else if outcome.Justification == "" {
			entry.Justification = prev.Justification
		}
		categories[moat] = entry
	case domain.CategoryMax:
		if outcome.Points > prev.Score {
			categories[moat] = entry
		}
	default: // CategoryLast
		categories[moat] = entry
	}
}

// assignTier walks the descending threshold table; the first minimum at or
// below the score wins. A score below every threshold falls into the
// reserved unclassified tier - the engine never fails to assign one.
func (e *Engine) assignTier(score int) string {
	for _, t := range e.tiers {
		if score >= t.MinScore {
			return t.Label
		}
	}
	return domain.TierUnclassified
}
