package permissions

import "strings"

// Role is a staff job function.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleServer  Role = "server"
	RoleCashier Role = "cashier"
	RoleKitchen Role = "kitchen"
	RoleViewer  Role = "viewer"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleManager, RoleServer, RoleCashier, RoleKitchen, RoleViewer}

// ParseRole normalises s. An unknown value yields the zero Role, which holds no permissions.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// Permission is a capability string from a closed set.
type Permission string

// User management
const (
	UsersCreate      Permission = "users.create"
	UsersRead        Permission = "users.read"
	UsersUpdate      Permission = "users.update"
	UsersDelete      Permission = "users.delete"
	UsersManageRoles Permission = "users.manage_roles"
	UsersViewAll     Permission = "users.view_all"
)

// Menu management
const (
	MenuCreate             Permission = "menu.create"
	MenuRead               Permission = "menu.read"
	MenuUpdate             Permission = "menu.update"
	MenuDelete             Permission = "menu.delete"
	MenuManageCategories   Permission = "menu.manage_categories"
	MenuToggleAvailability Permission = "menu.toggle_availability"
	MenuUpdatePricing      Permission = "menu.update_pricing"
)

// Orders
const (
	OrdersCreate   Permission = "orders.create"
	OrdersRead     Permission = "orders.read"
	OrdersUpdate   Permission = "orders.update"
	OrdersDelete   Permission = "orders.delete"
	OrdersVoid     Permission = "orders.void"
	OrdersTransfer Permission = "orders.transfer"
	OrdersSplit    Permission = "orders.split"
	OrdersViewAll  Permission = "orders.view_all"
)

// Kitchen
const (
	KitchenViewOrders   Permission = "kitchen.view_orders"
	KitchenUpdateStatus Permission = "kitchen.update_status"
	KitchenMarkReady    Permission = "kitchen.mark_ready"
)

// Payments
const (
	PaymentsProcess     Permission = "payments.process"
	PaymentsRefund      Permission = "payments.refund"
	PaymentsVoid        Permission = "payments.void"
	PaymentsViewHistory Permission = "payments.view_history"
)

// Reporting and analytics
const (
	ReportsViewDaily       Permission = "reports.view_daily"
	ReportsViewWeekly      Permission = "reports.view_weekly"
	ReportsViewMonthly     Permission = "reports.view_monthly"
	ReportsExport          Permission = "reports.export"
	AnalyticsViewDashboard Permission = "analytics.view_dashboard"
	AnalyticsViewDetailed  Permission = "analytics.view_detailed"
)

// System
const (
	SystemSettings    Permission = "system.settings"
	SystemBackup      Permission = "system.backup"
	SystemAuditLogs   Permission = "system.audit_logs"
	SystemManageTaxes Permission = "system.manage_taxes"
)

// Inventory
const (
	InventoryView    Permission = "inventory.view"
	InventoryUpdate  Permission = "inventory.update"
	InventoryCreate  Permission = "inventory.create"
	InventoryReports Permission = "inventory.reports"
)

// All is the closed permission set in declaration order.
var All = []Permission{
	UsersCreate, UsersRead, UsersUpdate, UsersDelete, UsersManageRoles, UsersViewAll,
	MenuCreate, MenuRead, MenuUpdate, MenuDelete, MenuManageCategories, MenuToggleAvailability, MenuUpdatePricing,
	OrdersCreate, OrdersRead, OrdersUpdate, OrdersDelete, OrdersVoid, OrdersTransfer, OrdersSplit, OrdersViewAll,
	KitchenViewOrders, KitchenUpdateStatus, KitchenMarkReady,
	PaymentsProcess, PaymentsRefund, PaymentsVoid, PaymentsViewHistory,
	ReportsViewDaily, ReportsViewWeekly, ReportsViewMonthly, ReportsExport,
	AnalyticsViewDashboard, AnalyticsViewDetailed,
	SystemSettings, SystemBackup, SystemAuditLogs, SystemManageTaxes,
	InventoryView, InventoryUpdate, InventoryCreate, InventoryReports,
}
