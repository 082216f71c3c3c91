package domain

import (
	"encoding/json"
	"time"
)

// Company represents one record of the company universe as materialized for a
// scoring pass. Fields is a flat namespace of scraped and enriched attributes
// (revenue, sector, certifications, semantic attribute scores, custom thesis
// question answers). The engine only reads it; the upstream store owns it.
type Company struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name,omitempty"`

	// Fields maps field name to scalar or nested value. A nil value is
	// indistinguishable from an absent key for scoring purposes.
	Fields map[string]any `json:"fields"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Field returns the named field value. The second return is false when the
// field is absent or null - the missing-data contract treats both the same.
// Lookups are exact and case-sensitive; a name mismatch is a missing field,
// not an error.
func (c *Company) Field(name string) (any, bool) {
	if c == nil || c.Fields == nil {
		return nil, false
	}
	v, ok := c.Fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// HasField reports whether the named field is present and non-null.
func (c *Company) HasField(name string) bool {
	_, ok := c.Field(name)
	return ok
}

// NumberField returns the named field coerced to float64. Integers, floats and
// json.Number all coerce; anything else returns false on the second value.
func (c *Company) NumberField(name string) (float64, bool) {
	v, ok := c.Field(name)
	if !ok {
		return 0, false
	}
	return AsNumber(v)
}

// Certifications returns the company's certification list, or nil when no
// certification data exists. Absence of the collection means "unknown", never
// "holds no certificates".
func (c *Company) Certifications() ([]string, bool) {
	v, ok := c.Field(FieldCertifications)
	if !ok {
		return nil, false
	}
	switch certs := v.(type) {
	case []string:
		return certs, true
	case []any:
		out := make([]string, 0, len(certs))
		for _, item := range certs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// SemanticScore returns the named semantic attribute score from the nested
// semantic_scores map.
func (c *Company) SemanticScore(attribute string) (float64, bool) {
	v, ok := c.Field(FieldSemanticScores)
	if !ok {
		return 0, false
	}
	scores, ok := v.(map[string]any)
	if !ok {
		return 0, false
	}
	raw, ok := scores[attribute]
	if !ok || raw == nil {
		return 0, false
	}
	return AsNumber(raw)
}

// CustomField returns the named answer from the nested custom_fields map.
func (c *Company) CustomField(name string) (any, bool) {
	v, ok := c.Field(FieldCustomFields)
	if !ok {
		return nil, false
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	raw, ok := fields[name]
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

// Reserved field names for nested company data.
const (
	FieldCertifications = "certifications"
	FieldSemanticScores = "semantic_scores"
	FieldCustomFields   = "custom_fields"
)

// AsNumber coerces a field value to float64.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
