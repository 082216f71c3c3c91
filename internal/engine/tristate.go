// Package engine provides the deterministic thesis scoring engine.
package engine

// Tristate is the three-valued result of condition evaluation. Unknown means
// "cannot evaluate for missing data" and is distinct from False: a company
// with no certification data is not proven to lack a certificate.
type Tristate int

const (
	False Tristate = iota
	True
	Unknown
)

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// not inverts True and False; Unknown stays Unknown.
func not(t Tristate) Tristate {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func fromBool(b bool) Tristate {
	if b {
		return True
	}
	return False
}
