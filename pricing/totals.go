package pricing

import (
	"math"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

// Modifier is a priced add-on applied to a line.
type Modifier struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Line is a priced order line. Total keeps full precision.
type Line struct {
	UnitPrice float64
	Quantity  int
	Total     float64
}

// Adjustments carries the order-level rates and amounts.
type Adjustments struct {
	TaxRate float64
	// GratuityRate enables auto-gratuity; when nil GratuityAmount is used as entered.
	GratuityRate      *float64
	GratuityAmount    float64
	ServiceChargeRate float64
	Discount          float64
}

// Totals are rounded to cents. Total is the sum of the rounded parts.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	Discount      float64 `json:"discount_amount"`
	Tax           float64 `json:"tax_amount"`
	Gratuity      float64 `json:"gratuity_amount"`
	ServiceCharge float64 `json:"service_charge"`
	Total         float64 `json:"total_amount"`
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	// 1e-9 absorbs binary representation error such as 1.005*100 = 100.49999...
	if v < 0 {
		return -math.Floor(-v*100+0.5+1e-9) / 100
	}
	return math.Floor(v*100+0.5+1e-9) / 100
}

// UnitPrice adds modifier prices to a resolved price.
func UnitPrice(resolved float64, modifiers []Modifier) (float64, error) {
	if resolved < 0 {
		return 0, apperrors.Validation("price must not be negative")
	}
	unit := resolved
	for _, m := range modifiers {
		if m.Price < 0 {
			return 0, apperrors.Validation("modifier %q has a negative price", m.Name)
		}
		unit += m.Price
	}
	return unit, nil
}

// ComputeLineTotal returns (resolved + sum(modifiers)) * quantity.
func ComputeLineTotal(resolved float64, quantity int, modifiers []Modifier) (Line, error) {
	if quantity < 1 {
		return Line{}, apperrors.Validation("quantity must be a positive integer, got %d", quantity)
	}
	unit, err := UnitPrice(resolved, modifiers)
	if err != nil {
		return Line{}, err
	}
	return Line{UnitPrice: unit, Quantity: quantity, Total: unit * float64(quantity)}, nil
}

// ComputeOrderTotals aggregates lines at full precision then rounds each component.
func ComputeOrderTotals(lines []Line, adj Adjustments) (Totals, error) {
	if adj.TaxRate < 0 || adj.ServiceChargeRate < 0 || adj.GratuityAmount < 0 {
		return Totals{}, apperrors.Validation("rates and gratuity must not be negative")
	}
	if adj.GratuityRate != nil && *adj.GratuityRate < 0 {
		return Totals{}, apperrors.Validation("gratuity rate must not be negative")
	}

	var subtotal float64
	for _, l := range lines {
		if l.Total < 0 {
			return Totals{}, apperrors.Validation("line total must not be negative")
		}
		subtotal += l.Total
	}
	if adj.Discount < 0 {
		return Totals{}, apperrors.Validation("discount must not be negative")
	}
	if Round2(adj.Discount) > Round2(subtotal) {
		return Totals{}, apperrors.Validation("discount %.2f exceeds subtotal %.2f", adj.Discount, subtotal)
	}

	gratuity := adj.GratuityAmount
	if adj.GratuityRate != nil {
		gratuity = subtotal * *adj.GratuityRate
	}

	t := Totals{
		Subtotal:      Round2(subtotal),
		Discount:      Round2(adj.Discount),
		Tax:           Round2(subtotal * adj.TaxRate),
		Gratuity:      Round2(gratuity),
		ServiceCharge: Round2(subtotal * adj.ServiceChargeRate),
	}
	t.Total = Round2(t.Subtotal - t.Discount + t.Tax + t.Gratuity + t.ServiceCharge)
	return t, nil
}
