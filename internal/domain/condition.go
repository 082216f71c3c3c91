package domain

import "fmt"

// ConditionKind is the discriminator for the closed set of condition variants.
// The evaluator matches exhaustively on it; an unrecognized kind makes the
// whole thesis malformed.
type ConditionKind string

const (
	CondFieldGreaterThan     ConditionKind = "field_gt"
	CondFieldLessThan        ConditionKind = "field_lt"
	CondFieldBetween         ConditionKind = "field_between"
	CondFieldIn              ConditionKind = "field_in"
	CondFieldContains        ConditionKind = "field_contains"
	CondHasCertificate       ConditionKind = "has_certificate"
	CondHasAnyCertificate    ConditionKind = "has_any_certificate"
	CondSemanticScoreAtLeast ConditionKind = "semantic_score_at_least"
	CondCustomFieldCompare   ConditionKind = "custom_field_compare"
	CondAnd                  ConditionKind = "and"
	CondOr                   ConditionKind = "or"
	CondNot                  ConditionKind = "not"
)

// Condition is one node of a thesis condition tree. Leaf kinds read company
// fields; and/or/not combine children. Trees arrive as JSON from the thesis
// compiler, so they are acyclic by construction; arity and kind are checked
// when an engine is built, not during evaluation.
type Condition struct {
	Kind ConditionKind `json:"kind"`

	// Leaf parameters. Which are meaningful depends on Kind.
	Field     string   `json:"field,omitempty"`
	Value     any      `json:"value,omitempty"`
	Values    []any    `json:"values,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Op        string   `json:"op,omitempty"` // custom_field_compare: "eq", "gt", "lt", "contains"
	Attribute string   `json:"attribute,omitempty"`

	// Children for and/or/not.
	Children []*Condition `json:"children,omitempty"`
}

// Comparison operators for custom_field_compare conditions and filters.
const (
	OpEq       = "eq"
	OpGt       = "gt"
	OpLt       = "lt"
	OpBetween  = "between"
	OpIn       = "in"
	OpContains = "contains"
)

// Validate checks the structural invariants of the condition tree: known kind,
// at least one child under and/or, exactly one under not, leaf field names
// present. It walks the whole tree so a malformed thesis fails before any
// company is scored.
func (c *Condition) Validate() error {
	if c == nil {
		return fmt.Errorf("condition is nil")
	}
	switch c.Kind {
	case CondAnd, CondOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("%s condition requires at least one child", c.Kind)
		}
		for i, child := range c.Children {
			if err := child.Validate(); err != nil {
				return fmt.Errorf("%s child %d: %w", c.Kind, i, err)
			}
		}
	case CondNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("not condition requires exactly one child, got %d", len(c.Children))
		}
		if err := c.Children[0].Validate(); err != nil {
			return fmt.Errorf("not child: %w", err)
		}
	case CondFieldGreaterThan, CondFieldLessThan, CondFieldBetween, CondFieldIn, CondFieldContains:
		if c.Field == "" {
			return fmt.Errorf("%s condition requires a field name", c.Kind)
		}
	case CondHasCertificate:
		if c.Value == nil {
			return fmt.Errorf("has_certificate condition requires a certificate value")
		}
	case CondHasAnyCertificate:
		if len(c.Values) == 0 {
			return fmt.Errorf("has_any_certificate condition requires certificate values")
		}
	case CondSemanticScoreAtLeast:
		if c.Attribute == "" {
			return fmt.Errorf("semantic_score_at_least condition requires an attribute")
		}
		if c.Min == nil {
			return fmt.Errorf("semantic_score_at_least condition requires a minimum")
		}
	case CondCustomFieldCompare:
		if c.Field == "" {
			return fmt.Errorf("custom_field_compare condition requires a field name")
		}
		if c.Op == "" {
			return fmt.Errorf("custom_field_compare condition requires an operator")
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}

// FieldsRead returns the set of company field names the tree reads. Used to
// cross-check a rule's requires_fields declaration.
func (c *Condition) FieldsRead() []string {
	seen := make(map[string]struct{})
	c.collectFields(seen)
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	return fields
}

func (c *Condition) collectFields(seen map[string]struct{}) {
	if c == nil {
		return
	}
	switch c.Kind {
	case CondAnd, CondOr, CondNot:
		for _, child := range c.Children {
			child.collectFields(seen)
		}
	case CondHasCertificate, CondHasAnyCertificate:
		seen[FieldCertifications] = struct{}{}
	case CondSemanticScoreAtLeast:
		seen[FieldSemanticScores] = struct{}{}
	case CondCustomFieldCompare:
		seen[FieldCustomFields] = struct{}{}
	default:
		if c.Field != "" {
			seen[c.Field] = struct{}{}
		}
	}
}
