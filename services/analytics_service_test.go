package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
)

// seedEvening places a paid dine-in order, an unpaid take-out and a voided
// dine-in on the evening business day.
func seedEvening(t *testing.T, f *fixture) *AnalyticsService {
	t.Helper()
	ctx := context.Background()

	paid := f.dineIn(t, f.table1.ID, item(f.roll.ID, 1), item(f.tuna.ID, 1))
	_, err := f.payments.ProcessCash(ctx, f.actor, CashPaymentInput{OrderID: paid.ID, CashReceived: 30, TipAmount: 3})
	require.NoError(t, err)

	takeOut, err := f.orders.CreateOrder(ctx, f.actor, CreateOrderInput{
		OrderType:    models.OrderTypeTakeOut,
		CustomerName: "Rina",
		Items:        []ItemInput{item(f.roll.ID, 2)},
	})
	require.NoError(t, err)

	voided := f.dineIn(t, f.table2.ID, item(f.tuna.ID, 1))
	_, err = f.orders.UpdateStatus(ctx, f.actor, voided.ID, orderflow.StatusCancelled, "customer left")
	require.NoError(t, err)

	ids := []uint{paid.ID, takeOut.ID, voided.ID}
	require.NoError(t, f.db.Model(&models.Order{}).Where("id IN ?", ids).UpdateColumn("created_at", evening).Error)

	svc := NewAnalyticsService(f.db, cache.NewMemoryStore(), f.settings)
	svc.Now = func() time.Time { return evening }
	return svc
}

func TestEndOfDay(t *testing.T) {
	f := newFixture(t)
	svc := seedEvening(t, f)

	report, err := svc.EndOfDay(context.Background(), evening)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", report.Date)

	o := report.Overview
	assert.Equal(t, 2, o.OrderCount)
	assert.Equal(t, 1, o.CancelledCount)
	assert.InDelta(t, 48.60, o.TotalSales, 0.001)
	assert.InDelta(t, 24.30, o.AverageTicket, 0.001)
	assert.InDelta(t, 3.60, o.TotalTax, 0.001)
	assert.Equal(t, 1, o.DineInOrders)
	assert.InDelta(t, 27.00, o.DineInSales, 0.001)
	assert.InDelta(t, 21.60, o.TakeOutSales, 0.001)

	require.Len(t, report.Payments, 1)
	assert.Equal(t, models.PaymentMethodCash, report.Payments[0].Method)
	assert.Equal(t, 1, report.Payments[0].Count)
	assert.InDelta(t, 27.00, report.Payments[0].Amount, 0.001)
	assert.InDelta(t, 3.00, report.Payments[0].Tips, 0.001)

	require.Len(t, report.TopItems, 2)
	assert.Equal(t, "California Roll", report.TopItems[0].Name)
	assert.Equal(t, 3, report.TopItems[0].Quantity)
	assert.InDelta(t, 30.00, report.TopItems[0].Revenue, 0.001)

	require.Len(t, report.Categories, 1)
	assert.Equal(t, "Rolls", report.Categories[0].Name)
	assert.InDelta(t, 45.00, report.Categories[0].Revenue, 0.001)

	require.Len(t, report.Servers, 1)
	assert.Equal(t, "Sam", report.Servers[0].Name)
	assert.Equal(t, 2, report.Servers[0].OrderCount)

	require.Len(t, report.Voids, 1)
	assert.Equal(t, "customer left", report.Voids[0].Reason)
	assert.Equal(t, 1, report.Voids[0].Count)
}

func TestEndOfDayWithNoOrders(t *testing.T) {
	f := newFixture(t)
	svc := seedEvening(t, f)

	report, err := svc.EndOfDay(context.Background(), evening.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Overview.OrderCount)
	assert.Zero(t, report.Overview.TotalSales)
	assert.Zero(t, report.Overview.AverageTicket)
	assert.Empty(t, report.Payments)
	assert.Empty(t, report.TopItems)
	assert.Empty(t, report.Voids)
}

func TestDashboardIsCachedAndRefreshed(t *testing.T) {
	f := newFixture(t)
	svc := seedEvening(t, f)
	ctx := context.Background()

	snap, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", snap.Date)
	assert.Equal(t, 2, snap.Overview.OrderCount)
	assert.EqualValues(t, 2, snap.ActiveOrders)
	assert.EqualValues(t, 1, snap.OccupiedTables)
	require.Len(t, snap.Hourly, 24)
	assert.Equal(t, 2, snap.Hourly[19].OrderCount)
	assert.Equal(t, "California Roll", snap.TopItems[0].Name)

	require.NoError(t, f.db.Model(&models.Order{}).Where("order_type = ?", models.OrderTypeTakeOut).UpdateColumn("total_amount", 31.60).Error)

	cached, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 48.60, cached.Overview.TotalSales, 0.001)

	monitor := NewDashboardMonitor(svc, time.Minute)
	fresh, err := monitor.RunOnce(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 58.60, fresh.Overview.TotalSales, 0.001)

	cached, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 58.60, cached.Overview.TotalSales, 0.001)
}

func TestProfitabilityAndDaily(t *testing.T) {
	f := newFixture(t)
	svc := seedEvening(t, f)
	ctx := context.Background()
	r := DayRange(evening, time.Local)

	margins, err := svc.Profitability(ctx, r)
	require.NoError(t, err)
	require.Len(t, margins, 2)
	assert.Equal(t, "California Roll", margins[0].Name)
	require.NotNil(t, margins[0].Margin)
	assert.Equal(t, 70.0, *margins[0].Margin)
	assert.InDelta(t, 21.00, *margins[0].Profit, 0.001)
	assert.Nil(t, margins[1].Margin, "items without a cost sort last")

	days, err := svc.Daily(ctx, DateRange{From: r.From.AddDate(0, 0, -2), To: r.To})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2026-03-10", days[0].Key)

	voids, err := svc.Voids(ctx, r)
	require.NoError(t, err)
	require.Len(t, voids, 1)

	completed, err := svc.CompletedOrders(ctx, r)
	require.NoError(t, err)
	assert.Empty(t, completed)
}

func TestParseDateRange(t *testing.T) {
	loc := time.Local
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, loc)
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, loc) }

	r, err := ParseDateRange("", "", loc, now)
	require.NoError(t, err)
	assert.Equal(t, day(10), r.From)
	assert.Equal(t, day(11), r.To)

	r, err = ParseDateRange("2026-03-01", "2026-03-05", loc, now)
	require.NoError(t, err)
	assert.Equal(t, day(1), r.From)
	assert.Equal(t, day(6), r.To)

	r, err = ParseDateRange("2026-03-01", "", loc, now)
	require.NoError(t, err)
	assert.Equal(t, day(11), r.To, "an open range runs through today")

	r, err = ParseDateRange("2026-03-20", "", loc, now)
	require.NoError(t, err)
	assert.Equal(t, day(21), r.To)

	_, err = ParseDateRange("03/01/2026", "", loc, now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ParseDateRange("2026-03-05", "2026-03-01", loc, now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
