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

type receiptBody struct {
	Number     string  `json:"receipt_number"`
	Restaurant string  `json:"restaurant"`
	OrderID    uint    `json:"order_id"`
	Status     string  `json:"status"`
	Table      *int    `json:"table_number"`
	Total      float64 `json:"total"`
	AmountPaid float64 `json:"amount_paid"`
	Change     float64 `json:"change"`
	Lines      []struct {
		Name     string  `json:"name"`
		Quantity int     `json:"quantity"`
		Total    float64 `json:"total"`
	} `json:"lines"`
	Payments []struct {
		Method       string  `json:"method"`
		Amount       float64 `json:"amount"`
		CashReceived float64 `json:"cash_received"`
		Change       float64 `json:"change"`
	} `json:"payments"`
}

// settle walks an order through the kitchen and pays it in cash.
func (a *testApp) settle(order models.Order, cash float64) {
	a.t.Helper()
	path := fmt.Sprintf("/api/orders/%d", order.ID)
	w := a.do(http.MethodPost, path+"/send", permissions.RoleServer, nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	for _, status := range []string{"preparing", "ready"} {
		w = a.do(http.MethodPatch, path+"/status", permissions.RoleKitchen, map[string]string{"status": status})
		require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	}
	w = a.do(http.MethodPost, "/api/payments/cash", permissions.RoleCashier, map[string]interface{}{"order_id": order.ID, "cash_received": cash})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
}

func (a *testApp) printCount(orderID uint) int64 {
	a.t.Helper()
	var n int64
	require.NoError(a.t, a.db.Model(&models.ReceiptPrint{}).Where("order_id = ?", orderID).Count(&n).Error)
	return n
}

func TestOrderReceipt(t *testing.T) {
	app := newTestApp(t)
	order := app.dineIn(app.table1.ID, line(app.roll.ID, 1), line(app.tuna.ID, 1))
	app.settle(order, 30)
	path := fmt.Sprintf("/api/orders/%d/receipt", order.ID)

	w := app.do(http.MethodGet, path, permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var receipt receiptBody
	data(t, w, &receipt)
	assert.Regexp(t, fmt.Sprintf(`^RCP/\d{8}/%06d$`, order.ID), receipt.Number)
	assert.Equal(t, "Fuji Test Kitchen", receipt.Restaurant)
	assert.Equal(t, "completed", receipt.Status)
	require.NotNil(t, receipt.Table)
	assert.Equal(t, 1, *receipt.Table)
	require.Len(t, receipt.Lines, 2)
	assert.Equal(t, "California Roll", receipt.Lines[0].Name)
	assert.InDelta(t, 27.00, receipt.Total, 0.001)
	assert.InDelta(t, 3.00, receipt.Change, 0.001)
	require.Len(t, receipt.Payments, 1)
	assert.Equal(t, "cash", receipt.Payments[0].Method)
	assert.InDelta(t, 30.00, receipt.Payments[0].CashReceived, 0.001)
	assert.EqualValues(t, 0, app.printCount(order.ID), "viewing json is not a print")

	w = app.do(http.MethodGet, path+"?format=text", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	text := w.Body.String()
	assert.Contains(t, text, "TOTAL")
	assert.Contains(t, text, "27.00")
	assert.Contains(t, text, "Thank you for dining with us!")
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		assert.LessOrEqual(t, len(l), 32, l)
	}

	w = app.do(http.MethodGet, path+"?format=pdf", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
	assert.EqualValues(t, 2, app.printCount(order.ID))

	var prints []models.ReceiptPrint
	require.NoError(t, app.db.Order("id").Find(&prints).Error)
	assert.Equal(t, models.PrintMethodThermal, prints[0].PrintMethod)
	assert.Equal(t, models.PrintMethodPDF, prints[1].PrintMethod)
	require.NotNil(t, prints[1].UserID)
	assert.Equal(t, app.users[permissions.RoleCashier].ID, *prints[1].UserID)

	w = app.do(http.MethodGet, path+"?format=html", permissions.RoleCashier, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(http.MethodGet, "/api/orders/999/receipt", permissions.RoleCashier, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelledOrderHasNoReceipt(t *testing.T) {
	app := newTestApp(t)
	order := app.dineIn(app.table1.ID, line(app.roll.ID, 1))
	w := app.do(http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", order.ID), permissions.RoleManager,
		map[string]string{"status": "cancelled", "reason": "guest left"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodGet, fmt.Sprintf("/api/orders/%d/receipt", order.ID), permissions.RoleCashier, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = app.do(http.MethodPost, fmt.Sprintf("/api/orders/%d/receipt/print", order.ID), permissions.RoleCashier,
		map[string]string{"print_method": "browser"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.EqualValues(t, 0, app.printCount(order.ID))
}

func TestLogReceiptPrint(t *testing.T) {
	app := newTestApp(t)
	order := app.dineIn(app.table1.ID, line(app.roll.ID, 1))
	path := fmt.Sprintf("/api/orders/%d/receipt/print", order.ID)

	w := app.do(http.MethodPost, path, permissions.RoleServer, map[string]string{"print_method": "fax"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, path, permissions.RoleServer, map[string]string{"print_method": "browser"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec models.ReceiptPrint
	data(t, w, &rec)
	assert.Equal(t, order.ID, rec.OrderID)
	assert.Equal(t, models.PrintMethodBrowser, rec.PrintMethod)
	assert.EqualValues(t, 1, app.printCount(order.ID))

	w = app.do(http.MethodPost, "/api/orders/999/receipt/print", permissions.RoleServer, map[string]string{"print_method": "browser"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListReceipts(t *testing.T) {
	app := newTestApp(t)
	first := app.dineIn(app.table1.ID, line(app.roll.ID, 1), line(app.tuna.ID, 1))
	app.settle(first, 27)
	second := app.dineIn(app.table2.ID, line(app.roll.ID, 1))
	app.settle(second, 20)
	app.dineIn(app.table1.ID, line(app.tuna.ID, 1))

	w := app.do(http.MethodGet, "/api/receipts", permissions.RoleKitchen, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	type page struct {
		Receipts   []receiptBody `json:"receipts"`
		Total      int64         `json:"total"`
		Page       int           `json:"page"`
		PageSize   int           `json:"page_size"`
		TotalPages int           `json:"total_pages"`
	}

	w = app.do(http.MethodGet, "/api/receipts", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p page
	data(t, w, &p)
	assert.EqualValues(t, 2, p.Total, "open orders have no receipt yet")
	assert.Equal(t, 20, p.PageSize)
	require.Len(t, p.Receipts, 2)
	assert.Equal(t, second.ID, p.Receipts[0].OrderID, "newest first")

	w = app.do(http.MethodGet, "/api/receipts?page_size=1&page=2", permissions.RoleManager, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data(t, w, &p)
	assert.Equal(t, 2, p.TotalPages)
	require.Len(t, p.Receipts, 1)
	assert.Equal(t, first.ID, p.Receipts[0].OrderID)

	w = app.do(http.MethodGet, fmt.Sprintf("/api/receipts?order_id=%d", first.ID), permissions.RoleViewer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data(t, w, &p)
	require.Len(t, p.Receipts, 1)
	assert.InDelta(t, 27.00, p.Receipts[0].Total, 0.001)

	w = app.do(http.MethodGet, "/api/receipts?payment_method=credit", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data(t, w, &p)
	assert.Empty(t, p.Receipts)

	w = app.do(http.MethodGet, "/api/receipts?payment_method=cash&order_type=dine_in", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data(t, w, &p)
	assert.EqualValues(t, 2, p.Total)

	w = app.do(http.MethodGet, "/api/receipts?order_type=take_out", permissions.RoleCashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data(t, w, &p)
	assert.Empty(t, p.Receipts)

	for _, bad := range []string{"order_type=delivery", "payment_method=cheque", "from=2026-13-01", "order_id=abc"} {
		w = app.do(http.MethodGet, "/api/receipts?"+bad, permissions.RoleCashier, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}
