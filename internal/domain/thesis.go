package domain

import "time"

// Thesis is a compiled, versioned investment thesis: the filter gate, the
// scoring rules, the tier table and the completeness policy for one tenant.
// Compilation (free text -> this structure) happens upstream; the engine only
// consumes it. A version is immutable once scoring has run against it - edits
// produce a new version so historical scores stay reproducible.
type Thesis struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	Version  int    `json:"version"`

	// Filters gate companies before any rule runs, in declaration order.
	Filters []Filter `json:"filters"`

	// Rules are evaluated in declaration order.
	Rules []ScoringRule `json:"rules"`

	// TierThresholds map score to tier label, ordered by descending minimum.
	TierThresholds []TierThreshold `json:"tierThresholds"`

	// CompletenessThreshold is the fraction in [0,1] below which a score is
	// marked provisional.
	CompletenessThreshold float64 `json:"completenessThreshold"`

	// DerivedFields are CEL expressions materialized onto each company record
	// before filters and rules run.
	DerivedFields []DerivedField `json:"derivedFields,omitempty"`

	// Criteria summarizes what the compiler extracted from the free-text
	// thesis. The validator checks it for activation readiness.
	Criteria ThesisCriteria `json:"criteria"`

	// Whether this version is active for its tenant.
	Active bool `json:"active"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ScoringRule awards (or deducts) points when its condition holds.
type ScoringRule struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	Condition *Condition `json:"condition"`

	// Points is signed: negative rules penalize.
	Points int `json:"points"`

	// MoatType groups rules evidencing the same defensibility dimension.
	// Empty means uncategorized.
	MoatType string `json:"moatType,omitempty"`

	// JustificationTemplate is rendered with {field} placeholders substituted
	// from the company record when the rule triggers.
	JustificationTemplate string `json:"justificationTemplate,omitempty"`

	// RequiresFields lists the company fields that must be non-null for the
	// rule to be evaluable at all. Any missing field skips the rule.
	RequiresFields []string `json:"requiresFields"`
}

// Filter is a pre-scoring gate. OnMissing decides what a missing field means:
// exclude drops the company, include waives the filter.
type Filter struct {
	Field     string        `json:"field"`
	Op        string        `json:"op"` // gt, lt, between, in, eq, contains
	Values    []any         `json:"values"`
	OnMissing MissingPolicy `json:"onMissing"`
}

// MissingPolicy is a filter's behavior when its field is absent.
type MissingPolicy string

const (
	MissingExclude MissingPolicy = "exclude"
	MissingInclude MissingPolicy = "include"
)

// TierThreshold maps a minimum score to a tier label.
type TierThreshold struct {
	MinScore int    `json:"minScore"`
	Label    string `json:"label"`
}

// TierUnclassified is the reserved catch-all tier assigned when no threshold
// accepts the score. The engine never fails to assign a tier.
const TierUnclassified = "unclassified"

// DerivedField is a computed company attribute. The expression is CEL over a
// `company` map variable; a failed or non-scalar evaluation leaves the field
// absent, which downstream rules treat as missing data.
type DerivedField struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// ThesisCriteria holds the structural elements the compiler derived from the
// free-text thesis. The validator requires all of them before activation.
type ThesisCriteria struct {
	RevenueRange   *RevenueRange `json:"revenueRange,omitempty"`
	Geographies    []string      `json:"geographies,omitempty"`
	Sectors        []string      `json:"sectors,omitempty"`
	MoatPriorities []string      `json:"moatPriorities,omitempty"`
}

// RevenueRange is a target revenue band in the thesis's base currency.
type RevenueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// CategoryPolicy decides how rules sharing a moat tag combine in the category
// map. The source design overwrites (last write wins); sum and max are offered
// so moat evidence is not silently hidden.
type CategoryPolicy string

const (
	CategoryLast CategoryPolicy = "last"
	CategorySum  CategoryPolicy = "sum"
	CategoryMax  CategoryPolicy = "max"
)
