package authgate

import "slices"

// Requirement is the set of roles and permissions of which a caller must hold at
// least one. An empty requirement only demands authentication.
type Requirement []string

// NewRequirement concatenates roles and permissions into one requirement. Roles and
// permissions share a namespace when matched.
func NewRequirement(roles, permissions []string) Requirement {
	req := make(Requirement, 0, len(roles)+len(permissions))
	req = append(req, roles...)
	req = append(req, permissions...)
	return req
}

// Decision is the outcome of Authorize.
type Decision uint8

const (
	DecisionAllow Decision = iota
	DecisionDenyUnauthenticated
	DecisionDenyForbidden
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionDenyUnauthenticated:
		return "deny_unauthenticated"
	case DecisionDenyForbidden:
		return "deny_forbidden"
	default:
		return "unknown"
	}
}

// Allowed reports whether d permits the request.
func (d Decision) Allowed() bool {
	return d == DecisionAllow
}

// Err maps a deny decision to ErrUnauthenticated or ErrDenied, and Allow to nil.
func (d Decision) Err() error {
	switch d {
	case DecisionAllow:
		return nil
	case DecisionDenyUnauthenticated:
		return ErrUnauthenticated
	default:
		return ErrDenied
	}
}

// Authorize decides whether id satisfies required. It is pure and safe for
// concurrent use.
func Authorize(id *Identity, required Requirement) Decision {
	if id == nil || !id.Authenticated {
		return DecisionDenyUnauthenticated
	}
	if len(required) == 0 {
		return DecisionAllow
	}
	for _, want := range required {
		if slices.Contains(id.Roles, want) || slices.Contains(id.Permissions, want) {
			return DecisionAllow
		}
	}
	return DecisionDenyForbidden
}
