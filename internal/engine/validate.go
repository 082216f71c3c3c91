package engine

import (
	"github.com/Munns729/open-radar-sub001/internal/domain"
)

// Structural element names reported by Validate.
const (
	ElementRevenueRange   = "revenue_range"
	ElementGeography      = "geography"
	ElementSectors        = "sectors"
	ElementMoatPriorities = "moat_priorities"
	ElementTierCriteria   = "tier_criteria"
)

// Validate checks that a compiled thesis carries the structural elements
// required before it can be activated for production scoring. Pure
// inspection: a thesis failing validation can still be scored against -
// activation gating is the caller's policy, not an engine limitation.
func Validate(thesis *domain.Thesis) domain.ValidationResult {
	var missing []string

	if thesis.Criteria.RevenueRange == nil {
		missing = append(missing, ElementRevenueRange)
	}
	if len(thesis.Criteria.Geographies) == 0 {
		missing = append(missing, ElementGeography)
	}
	if len(thesis.Criteria.Sectors) == 0 {
		missing = append(missing, ElementSectors)
	}
	if len(thesis.Criteria.MoatPriorities) == 0 {
		missing = append(missing, ElementMoatPriorities)
	}
	if len(thesis.TierThresholds) == 0 {
		missing = append(missing, ElementTierCriteria)
	}

	return domain.ValidationResult{
		IsComplete:      len(missing) == 0,
		MissingElements: missing,
	}
}
