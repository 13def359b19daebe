package pricing

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

func ptr(v float64) *float64 { return &v }

func at(hour int) time.Time {
	return time.Date(2024, 3, 1, hour, 30, 0, 0, time.UTC)
}

func TestResolvePriceServingType(t *testing.T) {
	wine := Prices{Base: 9, Glass: ptr(8), Bottle: ptr(30)}

	p, err := ResolvePrice(wine, Context{ServingType: "glass"})
	require.NoError(t, err)
	assert.Equal(t, 8.0, p)

	p, _ = ResolvePrice(wine, Context{ServingType: "bottle"})
	assert.Equal(t, 30.0, p)

	p, _ = ResolvePrice(wine, Context{})
	assert.Equal(t, 30.0, p)
}

func TestResolvePriceMealPeriod(t *testing.T) {
	bento := Prices{Base: 14, Lunch: ptr(11), Dinner: ptr(16)}

	p, _ := ResolvePrice(bento, Context{At: at(12)})
	assert.Equal(t, 11.0, p)

	p, _ = ResolvePrice(bento, Context{At: at(16)})
	assert.Equal(t, 16.0, p)

	p, _ = ResolvePrice(bento, Context{At: at(10)})
	assert.Equal(t, 16.0, p)

	p, _ = ResolvePrice(bento, Context{At: at(12), TimePeriod: "dinner"})
	assert.Equal(t, 16.0, p)

	p, _ = ResolvePrice(bento, Context{At: at(20), TimePeriod: "lunch"})
	assert.Equal(t, 11.0, p)

	p, _ = ResolvePrice(bento, Context{At: at(9), LunchStart: 9, LunchEnd: 10})
	assert.Equal(t, 11.0, p)
}

func TestResolvePriceModesNeverCoApply(t *testing.T) {
	odd := Prices{Base: 5, Glass: ptr(6), Bottle: ptr(20), Lunch: ptr(1), Dinner: ptr(2)}

	p, _ := ResolvePrice(odd, Context{ServingType: "glass", At: at(12)})
	assert.Equal(t, 6.0, p)

	partial := Prices{Base: 5, Glass: ptr(6)}
	p, _ = ResolvePrice(partial, Context{ServingType: "glass"})
	assert.Equal(t, 5.0, p)
}

func TestResolvePriceRejectsNegative(t *testing.T) {
	_, err := ResolvePrice(Prices{Base: -1}, Context{})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestComputeLineTotal(t *testing.T) {
	line, err := ComputeLineTotal(10, 3, []Modifier{{ID: 1, Name: "extra spicy", Price: 1}, {ID: 2, Name: "eel sauce", Price: 0.5}})
	require.NoError(t, err)
	assert.Equal(t, 11.5, line.UnitPrice)
	assert.Equal(t, 34.5, line.Total)

	_, err = ComputeLineTotal(10, 0, nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = ComputeLineTotal(10, 1, []Modifier{{Name: "bad", Price: -2}})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestComputeOrderTotalsExample(t *testing.T) {
	lines := []Line{{UnitPrice: 10, Quantity: 1, Total: 10}, {UnitPrice: 15, Quantity: 1, Total: 15}}

	totals, err := ComputeOrderTotals(lines, Adjustments{TaxRate: 0.08})
	require.NoError(t, err)
	assert.Equal(t, 25.00, totals.Subtotal)
	assert.Equal(t, 2.00, totals.Tax)
	assert.Equal(t, 0.0, totals.Gratuity)
	assert.Equal(t, 27.00, totals.Total)
}

func TestComputeOrderTotalsGratuityModes(t *testing.T) {
	lines := []Line{{Total: 100}}

	auto, err := ComputeOrderTotals(lines, Adjustments{TaxRate: 0.08, GratuityRate: ptr(0.18), GratuityAmount: 99})
	require.NoError(t, err)
	assert.Equal(t, 18.0, auto.Gratuity)

	manual, err := ComputeOrderTotals(lines, Adjustments{GratuityAmount: 12.5, ServiceChargeRate: 0.035, Discount: 10})
	require.NoError(t, err)
	assert.Equal(t, 12.5, manual.Gratuity)
	assert.Equal(t, 3.5, manual.ServiceCharge)
	assert.Equal(t, 106.0, manual.Total)
}

func TestComputeOrderTotalsRejectsBadAdjustments(t *testing.T) {
	lines := []Line{{Total: 20}}
	for name, adj := range map[string]Adjustments{
		"negative tax":       {TaxRate: -0.1},
		"negative discount":  {Discount: -1},
		"discount > sub":     {Discount: 20.5},
		"negative gratuity":  {GratuityAmount: -3},
		"negative grat rate": {GratuityRate: ptr(-0.1)},
	} {
		_, err := ComputeOrderTotals(lines, adj)
		assert.True(t, errors.Is(err, apperrors.ErrValidation), name)
	}
}

func TestTotalIdentityHolds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		var lines []Line
		for n := r.Intn(30) + 1; n > 0; n-- {
			l, err := ComputeLineTotal(float64(r.Intn(5000))/100, r.Intn(4)+1, []Modifier{{Price: float64(r.Intn(300)) / 100}})
			require.NoError(t, err)
			lines = append(lines, l)
		}
		var sub float64
		for _, l := range lines {
			sub += l.Total
		}
		adj := Adjustments{
			TaxRate:           float64(r.Intn(1200)) / 10000,
			ServiceChargeRate: float64(r.Intn(500)) / 10000,
			GratuityAmount:    float64(r.Intn(2000)) / 100,
			Discount:          math.Floor(sub*r.Float64()*100) / 100,
		}
		tot, err := ComputeOrderTotals(lines, adj)
		require.NoError(t, err)
		identity := tot.Subtotal - tot.Discount + tot.Tax + tot.Gratuity + tot.ServiceCharge
		assert.InDelta(t, identity, tot.Total, 0.01)
	}
}

func TestRound2HalfUp(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, 2.68, Round2(2.675))
	assert.Equal(t, 0.0, Round2(0.004))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 27.0, Round2(27))
}

func TestProfitMargin(t *testing.T) {
	m, ok := ProfitMargin(20, ptr(5))
	assert.True(t, ok)
	assert.Equal(t, 75.0, m)

	_, ok = ProfitMargin(0, ptr(5))
	assert.False(t, ok)

	_, ok = ProfitMargin(20, nil)
	assert.False(t, ok)
}
