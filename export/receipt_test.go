package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fuji-pos/services"
)

func sampleReceipt() *services.Receipt {
	table := 4
	return &services.Receipt{
		Number:         "RCP/20260310/000001",
		Restaurant:     "Fuji Sushi & Grill Downtown Location",
		OrderID:        1,
		OrderType:      "dine_in",
		TableNumber:    &table,
		ServerName:     "Sam",
		IssuedAt:       time.Date(2026, 3, 10, 19, 30, 0, 0, time.UTC),
		Lines:          []services.ReceiptLine{{Name: "Dragon Roll with extra eel and avocado", Quantity: 2, UnitPrice: 14, Total: 28, Modifiers: []string{"Extra eel"}}},
		Subtotal:       28,
		Discount:       2.8,
		DiscountReason: "staff",
		Tax:            2.02,
		Total:          27.22,
		AmountPaid:     30,
		Change:         2.78,
		Payments:       []services.ReceiptPayment{{Method: "cash", Status: "completed", Amount: 27.22, CashReceived: 30, Change: 2.78}},
		Footer:         "Thank you for dining with us!",
	}
}

func TestWriteReceiptTextFitsThermalRoll(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReceiptText(&buf, sampleReceipt()))
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), receiptWidth, l)
	}
	assert.Contains(t, out, "Table 4")
	assert.Contains(t, out, "   + Extra eel")
	assert.Contains(t, out, "-2.80")
	assert.Contains(t, out, "Change                      2.78")
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], "Thank you for dining with us!"))
}

func TestWriteReceiptPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReceiptPDF(&buf, sampleReceipt()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
