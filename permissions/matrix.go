package permissions

import (
	"context"
	"sort"
	"strings"
	"time"
)

type permissionSet map[Permission]struct{}

// Matrix is the role to permission table. It is built once and never mutated.
type Matrix struct {
	roles  map[Role]permissionSet
	routes []routeRule
}

type routeRule struct {
	prefix   string
	required []Permission
}

// NewMatrix builds the default role matrix and route table.
func NewMatrix() *Matrix {
	return newMatrix(defaultRolePermissions(), defaultRoutePermissions())
}

func newMatrix(byRole map[Role][]Permission, routes map[string][]Permission) *Matrix {
	m := &Matrix{roles: make(map[Role]permissionSet, len(byRole))}
	for role, perms := range byRole {
		set := make(permissionSet, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		m.roles[role] = set
	}
	for prefix, required := range routes {
		m.routes = append(m.routes, routeRule{prefix: prefix, required: append([]Permission(nil), required...)})
	}
	// longest prefix first; ties broken alphabetically for a stable order
	sort.Slice(m.routes, func(i, j int) bool {
		if len(m.routes[i].prefix) != len(m.routes[j].prefix) {
			return len(m.routes[i].prefix) > len(m.routes[j].prefix)
		}
		return m.routes[i].prefix < m.routes[j].prefix
	})
	return m
}

func defaultRolePermissions() map[Role][]Permission {
	return map[Role][]Permission{
		RoleAdmin: All,
		RoleManager: {
			UsersCreate, UsersRead, UsersUpdate, UsersViewAll,
			MenuCreate, MenuRead, MenuUpdate, MenuDelete, MenuManageCategories, MenuToggleAvailability, MenuUpdatePricing,
			OrdersCreate, OrdersRead, OrdersUpdate, OrdersVoid, OrdersTransfer, OrdersSplit, OrdersViewAll,
			KitchenViewOrders, KitchenUpdateStatus, KitchenMarkReady,
			PaymentsProcess, PaymentsRefund, PaymentsVoid, PaymentsViewHistory,
			ReportsViewDaily, ReportsViewWeekly, ReportsViewMonthly, ReportsExport,
			AnalyticsViewDashboard, AnalyticsViewDetailed,
			SystemSettings, SystemManageTaxes,
			InventoryView, InventoryUpdate, InventoryCreate, InventoryReports,
		},
		RoleServer: {
			UsersRead,
			MenuRead, MenuToggleAvailability,
			OrdersCreate, OrdersRead, OrdersUpdate, OrdersTransfer, OrdersSplit,
			PaymentsProcess,
			ReportsViewDaily, AnalyticsViewDashboard,
			InventoryView,
		},
		RoleCashier: {
			UsersRead,
			MenuRead,
			OrdersRead, OrdersUpdate,
			PaymentsProcess, PaymentsRefund, PaymentsViewHistory,
			ReportsViewDaily, AnalyticsViewDashboard,
		},
		RoleKitchen: {
			MenuRead,
			KitchenViewOrders, KitchenUpdateStatus, KitchenMarkReady,
			OrdersRead,
			InventoryView,
		},
		RoleViewer: {
			UsersRead,
			MenuRead,
			OrdersRead, OrdersViewAll,
			ReportsViewDaily, ReportsViewWeekly, ReportsViewMonthly,
			AnalyticsViewDashboard, AnalyticsViewDetailed,
			InventoryView,
		},
	}
}

func defaultRoutePermissions() map[string][]Permission {
	return map[string][]Permission{
		"/dashboard":         {AnalyticsViewDashboard},
		"/menu":              {MenuRead},
		"/menu/manage":       {MenuCreate, MenuUpdate},
		"/orders":            {OrdersRead},
		"/orders/new":        {OrdersCreate},
		"/kitchen":           {KitchenViewOrders},
		"/payments":          {PaymentsProcess},
		"/reports":           {ReportsViewDaily},
		"/reports/analytics": {AnalyticsViewDetailed},
		"/admin/users":       {UsersManageRoles},
		"/admin/system":      {SystemSettings},
	}
}

// HasPermission reports whether role holds perm. Unknown roles hold nothing.
func (m *Matrix) HasPermission(role Role, perm Permission) bool {
	_, ok := m.roles[role][perm]
	return ok
}

func (m *Matrix) HasAnyPermission(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if m.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions is true for an empty list.
func (m *Matrix) HasAllPermissions(role Role, perms ...Permission) bool {
	for _, p := range perms {
		if !m.HasPermission(role, p) {
			return false
		}
	}
	return true
}

// Permissions returns a sorted copy of the role's permission set.
func (m *Matrix) Permissions(role Role) []Permission {
	set := m.roles[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoutePermissions returns the requirement of the longest configured prefix of path.
func (m *Matrix) RoutePermissions(path string) []Permission {
	for _, r := range m.routes {
		if strings.HasPrefix(path, r.prefix) {
			return append([]Permission(nil), r.required...)
		}
	}
	return nil
}

// CanAccessRoute allows paths no rule covers.
func (m *Matrix) CanAccessRoute(role Role, path string) bool {
	required := m.RoutePermissions(path)
	if len(required) == 0 {
		return true
	}
	return m.HasAnyPermission(role, required...)
}

// CanUpdateOrder lets servers edit their own orders without orders.update.
func (m *Matrix) CanUpdateOrder(role Role, isOwnOrder bool) bool {
	if m.HasPermission(role, OrdersUpdate) {
		return true
	}
	return isOwnOrder && role == RoleServer
}

// Subject is the caller a decision is made for.
type Subject struct {
	UserID    uint
	Role      Role
	IPAddress string
	UserAgent string
}

// Evaluator pairs the matrix with an audit sink.
type Evaluator struct {
	*Matrix
	sink AuditSink
}

func NewEvaluator(m *Matrix, sink AuditSink) *Evaluator {
	if sink == nil {
		sink = NopSink{}
	}
	return &Evaluator{Matrix: m, sink: sink}
}

// Check decides whether subject may use any of perms and emits one audit record.
func (e *Evaluator) Check(ctx context.Context, subject Subject, resource string, perms ...Permission) bool {
	granted := e.HasAnyPermission(subject.Role, perms...)
	var perm Permission
	if len(perms) > 0 {
		perm = perms[0]
	}
	audit := Audit{
		UserID:     subject.UserID,
		Role:       subject.Role,
		Permission: perm,
		Resource:   resource,
		Granted:    granted,
		Timestamp:  time.Now(),
		IPAddress:  subject.IPAddress,
		UserAgent:  subject.UserAgent,
	}
	e.emit(ctx, audit)
	return granted
}

func (e *Evaluator) emit(ctx context.Context, a Audit) {
	defer func() {
		// a broken sink must not change the decision
		_ = recover()
	}()
	e.sink.Record(ctx, a)
}
