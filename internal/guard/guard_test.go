package guard_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shohoj-krishi/shohoj-krishi/internal/authapi"
	"github.com/shohoj-krishi/shohoj-krishi/internal/guard"
	"github.com/shohoj-krishi/shohoj-krishi/internal/roles"
	"github.com/shohoj-krishi/shohoj-krishi/internal/session"
	_ "github.com/shohoj-krishi/shohoj-krishi/testing"
)

func snapFor(role roles.Role) session.Snapshot {
	return session.Snapshot{
		User:            &authapi.Principal{ID: 1, Role: role},
		IsAuthenticated: true,
	}
}

func TestDecideWhileLoading(t *testing.T) {
	d := guard.Decide(session.Snapshot{IsLoading: true}, "/dashboard", guard.Requirement{})
	require.Equal(t, guard.ActionLoading, d.Action)
	require.Empty(t, d.RedirectTo)
}

func TestDecideUnauthenticatedPreservesReturnPath(t *testing.T) {
	d := guard.Decide(session.Snapshot{}, "/dashboard/crops", guard.Requirement{})
	require.Equal(t, guard.ActionSignIn, d.Action)
	require.Equal(t, guard.SignInPath, d.RedirectTo)
	require.Equal(t, "/dashboard/crops", d.ReturnTo)
}

func TestDecideSharedDashboardOverview(t *testing.T) {
	for _, role := range roles.Known() {
		d := guard.Decide(snapFor(role), "/dashboard", guard.Requirement{})
		require.Equal(t, guard.ActionAllow, d.Action, "role %s", role)
	}
}

func TestDecideRoleOwnedSubpaths(t *testing.T) {
	// Crops belongs to farmers; a buyer lands on the unauthorized view.
	d := guard.Decide(snapFor(roles.RoleBuyer), "/dashboard/crops", guard.Requirement{})
	require.Equal(t, guard.ActionUnauthorized, d.Action)
	require.Equal(t, guard.UnauthorizedPath, d.RedirectTo)
	require.Equal(t, roles.RoleBuyer, d.Role)

	d = guard.Decide(snapFor(roles.RoleBuyer), "/dashboard/marketplace", guard.Requirement{})
	require.Equal(t, guard.ActionAllow, d.Action)

	d = guard.Decide(snapFor(roles.RoleFarmer), "/dashboard/crops", guard.Requirement{})
	require.Equal(t, guard.ActionAllow, d.Action)
}

func TestDecideDescendantPaths(t *testing.T) {
	d := guard.Decide(snapFor(roles.RoleFarmer), "/dashboard/crops/42/edit", guard.Requirement{})
	require.Equal(t, guard.ActionAllow, d.Action)

	// Prefix matching is segment-wise, not substring.
	d = guard.Decide(snapFor(roles.RoleFarmer), "/dashboard/cropsfake", guard.Requirement{})
	require.Equal(t, guard.ActionUnauthorized, d.Action)
}

func TestDecideExplicitRoleRequirement(t *testing.T) {
	req := guard.RequireRole(roles.RoleAdmin)

	d := guard.Decide(snapFor(roles.RoleAdmin), "/dashboard/users", req)
	require.Equal(t, guard.ActionAllow, d.Action)

	d = guard.Decide(snapFor(roles.RoleFarmer), "/dashboard/users", req)
	require.Equal(t, guard.ActionUnauthorized, d.Action)
	require.Equal(t, roles.RoleFarmer, d.Role)
	require.Equal(t, []roles.Role{roles.RoleAdmin}, d.Required)
}

func TestDecideAnyRoleRequirement(t *testing.T) {
	req := guard.RequireAnyRole(roles.RoleAuthority, roles.RoleAdmin)

	d := guard.Decide(snapFor(roles.RoleAuthority), "/dashboard/analytics", req)
	require.Equal(t, guard.ActionAllow, d.Action)

	d = guard.Decide(snapFor(roles.RoleBuyer), "/dashboard/analytics", req)
	require.Equal(t, guard.ActionUnauthorized, d.Action)
}

func TestDecideNeverRendersPastDenial(t *testing.T) {
	// Authenticated but wrong role: the decision must redirect, not allow
	// with a warning. The unauthorized view is the only rendered outcome.
	d := guard.Decide(snapFor(roles.RoleBuyer), "/farmer", guard.Requirement{})
	require.Equal(t, guard.ActionUnauthorized, d.Action)
	require.NotEmpty(t, d.Reason)
}
