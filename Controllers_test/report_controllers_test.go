package Controllers_test

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/permissions"
)

func TestDashboardOverHTTP(t *testing.T) {
	app := newTestApp(t)
	app.dineIn(app.table1.ID, line(app.roll.ID, 1), line(app.tuna.ID, 1))

	w := app.do(http.MethodGet, "/api/analytics/dashboard", permissions.RoleKitchen, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodGet, "/api/analytics/dashboard", permissions.RoleViewer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var snap struct {
		ActiveOrders   int64 `json:"active_orders"`
		OccupiedTables int64 `json:"occupied_tables"`
		Hourly         []struct {
			Hour int `json:"hour"`
		} `json:"hourly"`
	}
	data(t, w, &snap)
	assert.EqualValues(t, 1, snap.ActiveOrders)
	assert.EqualValues(t, 1, snap.OccupiedTables)
	assert.Len(t, snap.Hourly, 24)
}

func TestDetailedAnalyticsPermissions(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"categories", "items", "servers", "hourly", "daily", "profitability", "voids"} {
		w := app.do(http.MethodGet, "/api/analytics/"+path, permissions.RoleServer, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
		w = app.do(http.MethodGet, "/api/analytics/"+path, permissions.RoleViewer, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := app.do(http.MethodGet, "/api/analytics/daily?from=2026-03-10&to=2026-03-01", permissions.RoleViewer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "from after to")
	w = app.do(http.MethodGet, "/api/analytics/daily?from=yesterday", permissions.RoleViewer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEndOfDayAndExport(t *testing.T) {
	app := newTestApp(t)
	order := app.dineIn(app.table1.ID, line(app.roll.ID, 1), line(app.tuna.ID, 1))
	path := fmt.Sprintf("/api/orders/%d", order.ID)
	w := app.do(http.MethodPost, path+"/send", permissions.RoleServer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, status := range []string{"preparing", "ready"} {
		w = app.do(http.MethodPatch, path+"/status", permissions.RoleKitchen, map[string]string{"status": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w = app.do(http.MethodPost, "/api/payments/cash", permissions.RoleCashier, map[string]interface{}{"order_id": order.ID, "cash_received": 27})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var completed models.Order
	require.NoError(t, app.db.First(&completed, order.ID).Error)
	assert.Equal(t, "completed", string(completed.Status), "paying a ready order closes it")

	w = app.do(http.MethodGet, "/api/reports/end-of-day", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report struct {
		Overview struct {
			TotalSales float64 `json:"total_sales"`
			OrderCount int     `json:"order_count"`
		} `json:"overview"`
	}
	data(t, w, &report)
	assert.Equal(t, 1, report.Overview.OrderCount)
	assert.InDelta(t, 27.00, report.Overview.TotalSales, 0.001)

	w = app.do(http.MethodGet, "/api/reports/end-of-day?date=10-03-2026", permissions.RoleCashier, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/reports/export?format=csv", permissions.RoleViewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "viewers cannot export")

	w = app.do(http.MethodGet, "/api/reports/export?format=csv", permissions.RoleManager, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "order_id,created_at"))
	assert.True(t, strings.HasPrefix(lines[1], fmt.Sprintf("%d,", order.ID)))

	w = app.do(http.MethodGet, "/api/reports/export?format=pdf", permissions.RoleManager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = app.do(http.MethodGet, "/api/reports/export?format=xlsx", permissions.RoleManager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTablesOverHTTP(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/tables", permissions.RoleServer, map[string]interface{}{"table_number": 3})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodPost, "/api/tables", permissions.RoleManager, map[string]interface{}{"table_number": 3, "section": "bar", "is_active": false})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var table models.RestaurantTable
	data(t, w, &table)
	assert.Equal(t, 4, table.Seats, "seats default to four")
	assert.False(t, table.IsActive)

	var stored models.RestaurantTable
	require.NoError(t, app.db.First(&stored, table.ID).Error)
	assert.False(t, stored.IsActive)

	w = app.do(http.MethodPost, "/api/tables", permissions.RoleManager, map[string]interface{}{"table_number": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodGet, "/api/tables?status=available", permissions.RoleServer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tables []models.RestaurantTable
	data(t, w, &tables)
	assert.Len(t, tables, 2, "inactive tables are never available")

	w = app.do(http.MethodGet, "/api/tables?section=patio", permissions.RoleServer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data(t, w, &tables)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].TableNumber)
}
