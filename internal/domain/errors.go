package domain

import "fmt"

// TypeMismatchError reports a condition comparing incompatible types - a
// thesis-authoring bug, distinct from missing data. It aborts the rule it
// occurred in, not the whole scoring pass.
type TypeMismatchError struct {
	Field    string
	Kind     ConditionKind
	Got      any
	Expected string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch in %s condition on field %q: have %T, want %s",
		e.Kind, e.Field, e.Got, e.Expected)
}

// MalformedThesisError reports a structural violation in a compiled thesis:
// unknown condition kind, empty boolean group, bad not arity. It fails the
// entire scoring pass before any record is processed.
type MalformedThesisError struct {
	ThesisID string
	Reason   string
}

func (e *MalformedThesisError) Error() string {
	return fmt.Sprintf("malformed thesis %s: %s", e.ThesisID, e.Reason)
}
