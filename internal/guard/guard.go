// Package guard decides, per navigation, whether a session may see a
// path: render it, sign in first, or land on the unauthorized view. The
// decision core is pure; nothing is cached between navigations.
package guard

import (
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
)

// Well-known navigation targets.
const (
	SignInPath       = "/auth/signin"
	UnauthorizedPath = "/unauthorized"
	DashboardPath    = "/dashboard"
)

// Action is the kind of decision taken for a navigation.
type Action int

const (
	// ActionLoading suspends rendering while authentication resolves.
	ActionLoading Action = iota
	// ActionAllow renders the requested view.
	ActionAllow
	// ActionSignIn redirects to the sign-in view, preserving the
	// requested path for the post-login return.
	ActionSignIn
	// ActionUnauthorized redirects to the unauthorized view. Protected
	// content is never rendered on a role mismatch.
	ActionUnauthorized
)

// String names the action for logs and metrics labels.
func (a Action) String() string {
	switch a {
	case ActionLoading:
		return "loading"
	case ActionAllow:
		return "allow"
	case ActionSignIn:
		return "signin"
	case ActionUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Decision is the outcome of one navigation check.
type Decision struct {
	Action     Action
	RedirectTo string
	// ReturnTo carries the originally requested path on sign-in redirects.
	ReturnTo string
	// Role and Required describe a denial: the principal's actual role and
	// the roles that would have been accepted.
	Role     roles.Role
	Required []roles.Role
	Reason   string
}

// Requirement restricts a route to certain roles. The zero value imposes
// no role restriction beyond authentication.
type Requirement struct {
	Allowed []roles.Role
}

// RequireRole builds a single-role requirement.
func RequireRole(role roles.Role) Requirement {
	return Requirement{Allowed: []roles.Role{role}}
}

// RequireAnyRole builds a requirement satisfied by any listed role.
func RequireAnyRole(rs ...roles.Role) Requirement {
	return Requirement{Allowed: rs}
}

// satisfied reports whether the role meets the requirement.
func (r Requirement) satisfied(role roles.Role) bool {
	if len(r.Allowed) == 0 {
		return true
	}
	for _, allowed := range r.Allowed {
		if allowed == role {
			return true
		}
	}
	return false
}

// Decide evaluates one navigation. The authentication gate runs first,
// then the role gate: an explicit requirement when given, otherwise the
// registry's route rules for the principal's role.
func Decide(snap session.Snapshot, path string, req Requirement) Decision {
	if snap.IsLoading {
		return Decision{Action: ActionLoading}
	}
	if !snap.IsAuthenticated || snap.User == nil {
		return Decision{Action: ActionSignIn, RedirectTo: SignInPath, ReturnTo: path}
	}

	role := snap.User.Role
	if !req.satisfied(role) {
		return Decision{
			Action:     ActionUnauthorized,
			RedirectTo: UnauthorizedPath,
			Role:       role,
			Required:   req.Allowed,
			Reason:     "role not permitted for this view",
		}
	}
	if !roles.HasRouteAccess(role, path) {
		return Decision{
			Action:     ActionUnauthorized,
			RedirectTo: UnauthorizedPath,
			Role:       role,
			Reason:     "role has no access to this path",
		}
	}
	return Decision{Action: ActionAllow}
}
