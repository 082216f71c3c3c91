// Package enrich materializes thesis derived fields onto company records.
//
// A compiled thesis may carry CEL expressions for computed attributes
// (revenue per head, margin ratios) that its rules then read like any other
// field. Expressions are compiled once per thesis and evaluated many times,
// deterministically, with no I/O.
package enrich

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/Munns729/open-radar-sub001/internal/domain"
)

// Enricher holds compiled derived-field programs for one thesis version.
type Enricher struct {
	programs []compiledField
}

type compiledField struct {
	name    string
	program cel.Program
}

// New compiles the given derived fields. A field whose expression does not
// compile is a thesis defect and fails construction, mirroring how a
// malformed condition tree fails the whole thesis.
func New(fields []domain.DerivedField) (*Enricher, error) {
	if len(fields) == 0 {
		return &Enricher{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("company", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Enricher{programs: make([]compiledField, 0, len(fields))}
	for _, f := range fields {
		ast, issues := env.Compile(f.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile derived field %s: %w", f.Name, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for derived field %s: %w", f.Name, err)
		}
		e.programs = append(e.programs, compiledField{name: f.Name, program: program})
	}
	return e, nil
}

// Apply returns a company with derived fields merged into a copy of its field
// map. The input record is never mutated. A failing or non-scalar expression
// leaves its field absent, which downstream rules treat as missing data.
func (e *Enricher) Apply(company *domain.Company) *domain.Company {
	if len(e.programs) == 0 {
		return company
	}

	fields := make(map[string]any, len(company.Fields)+len(e.programs))
	for k, v := range company.Fields {
		fields[k] = v
	}

	activation := map[string]any{"company": fields}
	for _, cf := range e.programs {
		out, _, err := cf.program.Eval(activation)
		if err != nil {
			// Typically a missing input field; the derived field simply
			// stays absent.
			continue
		}
		if v, ok := toScalar(out); ok {
			fields[cf.name] = v
		}
	}

	enriched := *company
	enriched.Fields = fields
	return &enriched
}

// FieldCount returns the number of compiled derived fields.
func (e *Enricher) FieldCount() int {
	return len(e.programs)
}

// toScalar converts a CEL value to a scoring-compatible scalar.
func toScalar(val ref.Val) (any, bool) {
	switch v := val.(type) {
	case types.Bool:
		return bool(v), true
	case types.Double:
		return float64(v), true
	case types.Int:
		return float64(v), true
	case types.String:
		return string(v), true
	default:
		return nil, false
	}
}
