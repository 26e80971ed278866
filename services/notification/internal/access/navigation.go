package access

type NavItem struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon"`
	roles []Role
}

var (
	everyone   = AllRoles
	operations = []Role{RoleAdmin, RoleFleetManager, RoleDriver}
	managers   = []Role{RoleAdmin, RoleFleetManager}
	admins     = []Role{RoleAdmin}
)

var sidebar = []NavItem{
	{Label: "Dashboard", Href: "/dashboard", Icon: "gauge", roles: everyone},
	{Label: "Trucks", Href: "/trucks", Icon: "truck", roles: everyone},
	{Label: "Maintenance", Href: "/maintenance", Icon: "wrench", roles: operations},
	{Label: "Fuel", Href: "/fuel", Icon: "fuel", roles: operations},
	{Label: "Compliance", Href: "/compliance", Icon: "shield-check", roles: operations},
	{Label: "Notifications", Href: "/notifications", Icon: "bell", roles: everyone},
	{Label: "Reports", Href: "/reports", Icon: "bar-chart", roles: managers},
	{Label: "Users", Href: "/admin/users", Icon: "users", roles: admins},
}

// Navigation returns the sidebar entries visible to role, in display order.
func Navigation(role Role) []NavItem {
	items := make([]NavItem, 0, len(sidebar))
	for _, item := range sidebar {
		if Authorize(&Identity{UserID: "nav", Role: role}, item.roles...).Authorized() {
			items = append(items, item)
		}
	}
	return items
}
