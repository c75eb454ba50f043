// Package roles holds the static role registry for the Shohoj-Krishi
// platform: which dashboard sections, features, and route prefixes each
// role may reach. The registry is compile-time data; nothing mutates it.
package roles

// Role identifies the access class of a principal.
type Role string

const (
	// RoleFarmer sells crops on the marketplace.
	RoleFarmer Role = "FARMER"
	// RoleBuyer purchases crops and posts requirements.
	RoleBuyer Role = "BUYER"
	// RoleAuthority covers Krishi Odhidoptor (Department of Agricultural
	// Extension) officials.
	RoleAuthority Role = "AUTHORITY"
	// RoleAdmin covers platform administrators.
	RoleAdmin Role = "ADMIN"
)

// Known lists every recognised role in a stable order.
func Known() []Role {
	return []Role{RoleFarmer, RoleBuyer, RoleAuthority, RoleAdmin}
}

// ParseRole canonicalises a role identifier. The legacy web client used a
// second vocabulary (farmer/buyer/admin/super_admin); both are accepted.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "FARMER", "farmer":
		return RoleFarmer, true
	case "BUYER", "buyer":
		return RoleBuyer, true
	case "AUTHORITY", "admin":
		return RoleAuthority, true
	case "ADMIN", "super_admin":
		return RoleAdmin, true
	}
	return "", false
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleBuyer, RoleAuthority, RoleAdmin:
		return true
	}
	return false
}

// TabIcon enumerates the icons a dashboard tab may carry. Icons resolve
// through an exhaustive switch so an unmapped icon cannot reach the UI.
type TabIcon int

const (
	IconBarChart TabIcon = iota
	IconSprout
	IconShoppingCart
	IconBot
	IconCloud
	IconBookOpen
	IconStore
	IconClipboardList
	IconUsers
	IconTrendingUp
	IconActivity
	IconFileText
	IconBanknote
	IconPieChart
	IconUserCog
	IconShield
	IconServer
	IconSettings
)

// String returns the symbolic icon name consumed by the web client.
func (i TabIcon) String() string {
	switch i {
	case IconBarChart:
		return "BarChart3"
	case IconSprout:
		return "Sprout"
	case IconShoppingCart:
		return "ShoppingCart"
	case IconBot:
		return "Bot"
	case IconCloud:
		return "Cloud"
	case IconBookOpen:
		return "BookOpen"
	case IconStore:
		return "Store"
	case IconClipboardList:
		return "ClipboardList"
	case IconUsers:
		return "Users"
	case IconTrendingUp:
		return "TrendingUp"
	case IconActivity:
		return "Activity"
	case IconFileText:
		return "FileText"
	case IconBanknote:
		return "Banknote"
	case IconPieChart:
		return "PieChart"
	case IconUserCog:
		return "UserCog"
	case IconShield:
		return "Shield"
	case IconServer:
		return "Server"
	case IconSettings:
		return "Settings"
	}
	return "Circle"
}

// MarshalText serialises the icon as its symbolic name.
func (i TabIcon) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// DashboardTab describes one navigation tab on a role's dashboard.
// Constructed once from the static tables, never mutated.
type DashboardTab struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Icon        TabIcon `json:"icon"`
	Path        string  `json:"path"`
	Description string  `json:"description"`
}

// RouteRule is one permitted route entry. Exact rules match only the path
// itself; prefix rules also match any /-separated descendant.
type RouteRule struct {
	Path  string
	Exact bool
}

// PermissionSet aggregates everything one role may reach.
type PermissionSet struct {
	Dashboard []string
	Features  []string
	Routes    []RouteRule
}
