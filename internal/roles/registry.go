package roles

import (
	"fmt"
	"strings"
)

// permissions maps each role to its permission set. /dashboard is an exact
// rule everywhere: the overview page is shared, but its subpaths belong to
// whichever role lists them as a prefix rule.
var permissions = map[Role]PermissionSet{
	RoleFarmer: {
		Dashboard: []string{"overview", "crops", "market", "ai-tools", "weather", "education"},
		Features: []string{
			"post_crops",
			"view_buyers",
			"use_chatbot",
			"pest_detection",
			"voice_interaction",
			"weather_alerts",
			"educational_content",
			"government_schemes",
		},
		Routes: []RouteRule{
			{Path: "/dashboard", Exact: true},
			{Path: "/dashboard/crops"},
			{Path: "/dashboard/market"},
			{Path: "/dashboard/ai-tools"},
			{Path: "/dashboard/weather"},
			{Path: "/dashboard/education"},
			{Path: "/farmer"},
			{Path: "/crops"},
			{Path: "/market"},
			{Path: "/ai-assistant"},
			{Path: "/weather"},
			{Path: "/education"},
		},
	},
	RoleBuyer: {
		Dashboard: []string{"overview", "marketplace", "requirements", "contacts", "analytics"},
		Features: []string{
			"view_farmer_posts",
			"post_requirements",
			"contact_farmers",
			"view_analytics",
			"manage_orders",
		},
		Routes: []RouteRule{
			{Path: "/dashboard", Exact: true},
			{Path: "/dashboard/marketplace"},
			{Path: "/dashboard/requirements"},
			{Path: "/dashboard/contacts"},
			{Path: "/dashboard/analytics"},
			{Path: "/buyer"},
			{Path: "/marketplace"},
			{Path: "/requirements"},
			{Path: "/contacts"},
		},
	},
	RoleAuthority: {
		Dashboard: []string{"overview", "farmers", "monitoring", "content", "schemes", "analytics"},
		Features: []string{
			"respond_to_queries",
			"publish_notices",
			"monitor_trends",
			"upload_content",
			"manage_schemes",
			"view_system_analytics",
		},
		Routes: []RouteRule{
			{Path: "/dashboard", Exact: true},
			{Path: "/dashboard/farmers"},
			{Path: "/dashboard/monitoring"},
			{Path: "/dashboard/content"},
			{Path: "/dashboard/schemes"},
			{Path: "/dashboard/analytics"},
			{Path: "/authority"},
			{Path: "/farmers"},
			{Path: "/monitoring"},
			{Path: "/content-management"},
			{Path: "/schemes"},
		},
	},
	RoleAdmin: {
		Dashboard: []string{"overview", "users", "content", "system", "analytics", "settings"},
		Features: []string{
			"manage_all_users",
			"moderate_content",
			"system_administration",
			"view_all_analytics",
			"manage_platform_settings",
			"ai_model_management",
		},
		Routes: []RouteRule{
			{Path: "/dashboard", Exact: true},
			{Path: "/dashboard/users"},
			{Path: "/dashboard/content"},
			{Path: "/dashboard/system"},
			{Path: "/dashboard/analytics"},
			{Path: "/dashboard/settings"},
			{Path: "/admin"},
			{Path: "/users"},
			{Path: "/content"},
			{Path: "/system"},
			{Path: "/analytics"},
			{Path: "/settings"},
		},
	},
}

// dashboardTabs maps each role to its ordered navigation tabs.
var dashboardTabs = map[Role][]DashboardTab{
	RoleFarmer: {
		{ID: "overview", Label: "Overview", Icon: IconBarChart, Path: "/dashboard", Description: "Farm overview and quick stats"},
		{ID: "crops", Label: "My Crops", Icon: IconSprout, Path: "/dashboard/crops", Description: "Manage your crop listings"},
		{ID: "market", Label: "Marketplace", Icon: IconShoppingCart, Path: "/dashboard/market", Description: "Browse buyer requirements"},
		{ID: "ai-tools", Label: "AI Assistant", Icon: IconBot, Path: "/dashboard/ai-tools", Description: "Chatbot, pest detection, voice features"},
		{ID: "weather", Label: "Weather", Icon: IconCloud, Path: "/dashboard/weather", Description: "Weather alerts and forecasts"},
		{ID: "education", Label: "Education", Icon: IconBookOpen, Path: "/dashboard/education", Description: "Courses and agricultural news"},
	},
	RoleBuyer: {
		{ID: "overview", Label: "Overview", Icon: IconBarChart, Path: "/dashboard", Description: "Purchase overview and analytics"},
		{ID: "marketplace", Label: "Marketplace", Icon: IconStore, Path: "/dashboard/marketplace", Description: "Browse available crops"},
		{ID: "requirements", Label: "My Requirements", Icon: IconClipboardList, Path: "/dashboard/requirements", Description: "Post and manage crop requirements"},
		{ID: "contacts", Label: "Farmer Contacts", Icon: IconUsers, Path: "/dashboard/contacts", Description: "Manage farmer relationships"},
		{ID: "analytics", Label: "Analytics", Icon: IconTrendingUp, Path: "/dashboard/analytics", Description: "Purchase analytics and trends"},
	},
	RoleAuthority: {
		{ID: "overview", Label: "Overview", Icon: IconBarChart, Path: "/dashboard", Description: "System overview and farmer statistics"},
		{ID: "farmers", Label: "Farmer Support", Icon: IconUsers, Path: "/dashboard/farmers", Description: "Respond to farmer queries"},
		{ID: "monitoring", Label: "Monitoring", Icon: IconActivity, Path: "/dashboard/monitoring", Description: "Monitor pest/disease trends"},
		{ID: "content", Label: "Content Management", Icon: IconFileText, Path: "/dashboard/content", Description: "Manage educational content"},
		{ID: "schemes", Label: "Government Schemes", Icon: IconBanknote, Path: "/dashboard/schemes", Description: "Manage subsidy and loan information"},
		{ID: "analytics", Label: "Analytics", Icon: IconPieChart, Path: "/dashboard/analytics", Description: "Regional farming analytics"},
	},
	RoleAdmin: {
		{ID: "overview", Label: "Overview", Icon: IconBarChart, Path: "/dashboard", Description: "Platform overview and statistics"},
		{ID: "users", Label: "User Management", Icon: IconUserCog, Path: "/dashboard/users", Description: "Manage all platform users"},
		{ID: "content", Label: "Content Moderation", Icon: IconShield, Path: "/dashboard/content", Description: "Moderate platform content"},
		{ID: "system", Label: "System Health", Icon: IconServer, Path: "/dashboard/system", Description: "Monitor system performance"},
		{ID: "analytics", Label: "Analytics", Icon: IconTrendingUp, Path: "/dashboard/analytics", Description: "Platform-wide analytics"},
		{ID: "settings", Label: "Settings", Icon: IconSettings, Path: "/dashboard/settings", Description: "Platform configuration"},
	},
}

func init() {
	if err := validateRegistry(); err != nil {
		panic(err)
	}
}

// validateRegistry cross-checks the static tables: every tab id must be a
// dashboard section of its role, and every tab path must be reachable
// through the role's route rules.
func validateRegistry() error {
	for role, tabs := range dashboardTabs {
		set, ok := permissions[role]
		if !ok {
			return fmt.Errorf("roles: tabs defined for %s but no permission set", role)
		}
		sections := make(map[string]struct{}, len(set.Dashboard))
		for _, s := range set.Dashboard {
			sections[s] = struct{}{}
		}
		for _, tab := range tabs {
			if _, ok := sections[tab.ID]; !ok {
				return fmt.Errorf("roles: tab %q not in %s dashboard sections", tab.ID, role)
			}
			if !HasRouteAccess(role, tab.Path) {
				return fmt.Errorf("roles: tab path %q unreachable for %s", tab.Path, role)
			}
		}
	}
	return nil
}

// TabsForRole returns the ordered dashboard tabs for the role. Unknown
// roles get an empty slice; permission lookups fail soft, never hard.
func TabsForRole(role Role) []DashboardTab {
	tabs := dashboardTabs[role]
	out := make([]DashboardTab, len(tabs))
	copy(out, tabs)
	return out
}

// HasRouteAccess reports whether path equals, or descends from, one of the
// role's permitted route rules. Unknown roles have no routes.
func HasRouteAccess(role Role, path string) bool {
	set, ok := permissions[role]
	if !ok {
		return false
	}
	path = normalizePath(path)
	for _, rule := range set.Routes {
		if path == rule.Path {
			return true
		}
		if !rule.Exact && strings.HasPrefix(path, rule.Path+"/") {
			return true
		}
	}
	return false
}

// HasFeatureAccess reports whether the role's feature set contains feature.
func HasFeatureAccess(role Role, feature string) bool {
	set, ok := permissions[role]
	if !ok {
		return false
	}
	for _, f := range set.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the role's permission set. Unknown roles
// get a zero set.
func Permissions(role Role) PermissionSet {
	set, ok := permissions[role]
	if !ok {
		return PermissionSet{}
	}
	out := PermissionSet{
		Dashboard: append([]string(nil), set.Dashboard...),
		Features:  append([]string(nil), set.Features...),
		Routes:    append([]RouteRule(nil), set.Routes...),
	}
	return out
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
