package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Kitchen ")
	require.True(t, ok)
	assert.Equal(t, RoleKitchen, r)

	r, ok = ParseRole("chef")
	assert.False(t, ok)
	assert.Equal(t, Role(""), r)
}

func TestKitchenPermissions(t *testing.T) {
	m := NewMatrix()

	assert.True(t, m.HasPermission(RoleKitchen, KitchenUpdateStatus))
	assert.False(t, m.HasPermission(RoleKitchen, PaymentsProcess))
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	m := NewMatrix()
	unknown, _ := ParseRole("superuser")

	for _, p := range All {
		assert.False(t, m.HasPermission(unknown, p), p)
	}
	assert.False(t, m.HasAnyPermission(unknown, All...))
	assert.Empty(t, m.Permissions(unknown))
	assert.False(t, m.CanAccessRoute(unknown, "/orders"))
}

func TestAdminHoldsEverything(t *testing.T) {
	m := NewMatrix()
	assert.True(t, m.HasAllPermissions(RoleAdmin, All...))
	assert.Len(t, m.Permissions(RoleAdmin), len(All))
}

func TestManagerLacksDestructiveAdminPermissions(t *testing.T) {
	m := NewMatrix()
	assert.False(t, m.HasPermission(RoleManager, UsersDelete))
	assert.False(t, m.HasPermission(RoleManager, UsersManageRoles))
	assert.False(t, m.HasPermission(RoleManager, OrdersDelete))
	assert.False(t, m.HasPermission(RoleManager, SystemBackup))
	assert.True(t, m.HasPermission(RoleManager, OrdersVoid))
}

func TestAnyAndAll(t *testing.T) {
	m := NewMatrix()

	assert.True(t, m.HasAllPermissions(RoleViewer))
	assert.True(t, m.HasAllPermissions(Role("")))
	assert.False(t, m.HasAnyPermission(RoleViewer))
	assert.True(t, m.HasAnyPermission(RoleCashier, OrdersCreate, PaymentsRefund))
	assert.False(t, m.HasAllPermissions(RoleCashier, OrdersCreate, PaymentsRefund))
}

func TestRoutePermissionsLongestPrefix(t *testing.T) {
	m := NewMatrix()

	assert.Equal(t, []Permission{OrdersCreate}, m.RoutePermissions("/orders/new/dine-in"))
	assert.Equal(t, []Permission{OrdersRead}, m.RoutePermissions("/orders/42"))
	assert.Equal(t, []Permission{MenuCreate, MenuUpdate}, m.RoutePermissions("/menu/manage"))
	assert.Nil(t, m.RoutePermissions("/login"))
}

func TestCanAccessRoute(t *testing.T) {
	m := NewMatrix()

	assert.True(t, m.CanAccessRoute(RoleKitchen, "/kitchen"))
	assert.False(t, m.CanAccessRoute(RoleKitchen, "/payments"))
	assert.True(t, m.CanAccessRoute(RoleKitchen, "/help"))
	assert.True(t, m.CanAccessRoute(RoleServer, "/menu"))
	assert.False(t, m.CanAccessRoute(RoleServer, "/menu/manage"))
	assert.True(t, m.CanAccessRoute(RoleManager, "/menu/manage/items"))
	assert.False(t, m.CanAccessRoute(RoleViewer, "/orders/new"))
	assert.True(t, m.CanAccessRoute(RoleViewer, "/reports/analytics"))
}

func TestCanUpdateOrder(t *testing.T) {
	m := NewMatrix()

	assert.True(t, m.CanUpdateOrder(RoleCashier, false))
	assert.False(t, m.CanUpdateOrder(RoleKitchen, true))
	assert.True(t, m.CanUpdateOrder(RoleServer, true))
}

func TestCheckEmitsAudit(t *testing.T) {
	var got []Audit
	e := NewEvaluator(NewMatrix(), SinkFunc(func(_ context.Context, a Audit) {
		got = append(got, a)
	}))

	ok := e.Check(context.Background(), Subject{UserID: 7, Role: RoleKitchen}, "POST /api/payments/cash", PaymentsProcess)

	assert.False(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, uint(7), got[0].UserID)
	assert.Equal(t, PaymentsProcess, got[0].Permission)
	assert.Equal(t, "denied", got[0].Action())
}

func TestCheckSurvivesPanickingSink(t *testing.T) {
	e := NewEvaluator(NewMatrix(), SinkFunc(func(context.Context, Audit) {
		panic("sink down")
	}))

	assert.True(t, e.Check(context.Background(), Subject{Role: RoleAdmin}, "", SystemBackup))
}
