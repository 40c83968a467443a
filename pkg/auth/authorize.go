package auth

import "context"

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision              { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Requirement inspects a principal and decides whether it may proceed.
type Requirement func(p Principal) Decision

func Authenticated() Requirement {
	return func(p Principal) Decision {
		if p.UserID == 0 {
			return deny("authentication required")
		}
		return allow()
	}
}

func Staff() Requirement {
	return func(p Principal) Decision {
		if !p.IsStaff() {
			return deny("staff privileges required")
		}
		return allow()
	}
}

// OwnerOrStaff allows staff and the user who owns the resource.
func OwnerOrStaff(ownerID int64) Requirement {
	return func(p Principal) Decision {
		if p.IsStaff() || (p.UserID != 0 && p.UserID == ownerID) {
			return allow()
		}
		return deny("not the owner")
	}
}

// Authorize evaluates all requirements against the principal stored in ctx.
// The first denial wins.
func Authorize(ctx context.Context, reqs ...Requirement) Decision {
	p, ok := FromContext(ctx)
	if !ok {
		return deny("authentication required")
	}
	for _, req := range reqs {
		if d := req(p); !d.Allowed {
			return d
		}
	}
	return allow()
}
