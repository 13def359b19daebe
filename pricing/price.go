package pricing

import (
	"strings"
	"time"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

const (
	ServingGlass  = "glass"
	ServingBottle = "bottle"

	PeriodLunch  = "lunch"
	PeriodDinner = "dinner"

	DefaultLunchStart = 11
	DefaultLunchEnd   = 16
)

// Prices holds a menu item's price columns. Nil means the column is unset.
type Prices struct {
	Base   float64
	Glass  *float64
	Bottle *float64
	Lunch  *float64
	Dinner *float64
}

// Context selects among contextual prices.
type Context struct {
	ServingType string
	TimePeriod  string
	At          time.Time
	// LunchStart and LunchEnd bound the lunch window in hours, [start, end).
	LunchStart int
	LunchEnd   int
}

func (c Context) lunchWindow() (int, int) {
	if c.LunchStart == 0 && c.LunchEnd == 0 {
		return DefaultLunchStart, DefaultLunchEnd
	}
	return c.LunchStart, c.LunchEnd
}

// HasServingPrices reports whether the glass/bottle mode applies.
func (p Prices) HasServingPrices() bool {
	return p.Glass != nil && p.Bottle != nil
}

// HasMealPrices reports whether the lunch/dinner mode applies.
func (p Prices) HasMealPrices() bool {
	return p.Lunch != nil && p.Dinner != nil
}

// IsLunch reports whether the context falls in the lunch period.
func IsLunch(ctx Context) bool {
	switch strings.ToLower(ctx.TimePeriod) {
	case PeriodLunch:
		return true
	case PeriodDinner:
		return false
	}
	at := ctx.At
	if at.IsZero() {
		at = time.Now()
	}
	start, end := ctx.lunchWindow()
	h := at.Hour()
	return h >= start && h < end
}

// ResolvePrice picks the unit price: glass/bottle first, then lunch/dinner, then base.
func ResolvePrice(p Prices, ctx Context) (float64, error) {
	var price float64
	switch {
	case p.HasServingPrices():
		if strings.ToLower(ctx.ServingType) == ServingGlass {
			price = *p.Glass
		} else {
			price = *p.Bottle
		}
	case p.HasMealPrices():
		if IsLunch(ctx) {
			price = *p.Lunch
		} else {
			price = *p.Dinner
		}
	default:
		price = p.Base
	}
	if price < 0 {
		return 0, apperrors.Validation("resolved price %.2f is negative", price)
	}
	return price, nil
}

// ProfitMargin returns (price-cost)/price*100. ok is false when cost is unknown or price is not positive.
func ProfitMargin(price float64, cost *float64) (float64, bool) {
	if cost == nil || price <= 0 {
		return 0, false
	}
	return (price - *cost) / price * 100, true
}
