package analytics

import (
	"sort"

	"github.com/yeremiapane/fuji-pos/pricing"
)

const (
	orderTypeDineIn  = "dine_in"
	orderTypeTakeOut = "take_out"
	statusCancelled  = "cancelled"
)

// Overview is the realtime dashboard figure set.
type Overview struct {
	TotalSales     float64 `json:"total_sales"`
	OrderCount     int     `json:"order_count"`
	AverageTicket  float64 `json:"average_ticket"`
	TotalTax       float64 `json:"total_tax"`
	TotalGratuity  float64 `json:"total_gratuity"`
	TotalDiscount  float64 `json:"total_discount"`
	DineInOrders   int     `json:"dine_in_orders"`
	TakeOutOrders  int     `json:"take_out_orders"`
	DineInSales    float64 `json:"dine_in_sales"`
	TakeOutSales   float64 `json:"take_out_sales"`
	CancelledCount int     `json:"cancelled_orders"`
}

// BuildOverview totals non-cancelled orders; cancelled ones are only counted.
func BuildOverview(orders []OrderRow) Overview {
	var o Overview
	var sales, tax, gratuity, discount, dineIn, takeOut float64
	for _, r := range orders {
		if r.Status == statusCancelled {
			o.CancelledCount++
			continue
		}
		o.OrderCount++
		sales += r.Total
		tax += r.Tax
		gratuity += r.Gratuity
		discount += r.Discount
		switch r.OrderType {
		case orderTypeDineIn:
			o.DineInOrders++
			dineIn += r.Total
		case orderTypeTakeOut:
			o.TakeOutOrders++
			takeOut += r.Total
		}
	}
	o.TotalSales = pricing.Round2(sales)
	o.AverageTicket = pricing.Round2(safeDiv(sales, float64(o.OrderCount)))
	o.TotalTax = pricing.Round2(tax)
	o.TotalGratuity = pricing.Round2(gratuity)
	o.TotalDiscount = pricing.Round2(discount)
	o.DineInSales = pricing.Round2(dineIn)
	o.TakeOutSales = pricing.Round2(takeOut)
	return o
}

// HourBucket is one hour of the day.
type HourBucket struct {
	Hour          int     `json:"hour"`
	OrderCount    int     `json:"order_count"`
	TotalSales    float64 `json:"total_sales"`
	DineInCount   int     `json:"dine_in_count"`
	TakeOutCount  int     `json:"take_out_count"`
	AverageTicket float64 `json:"average_ticket"`
}

// HourlyPattern fills all 24 hours, empty ones with zeros.
func HourlyPattern(orders []OrderRow) []HourBucket {
	buckets := make([]HourBucket, 24)
	raw := make([]float64, 24)
	for h := range buckets {
		buckets[h].Hour = h
	}
	for _, r := range orders {
		if r.Status == statusCancelled {
			continue
		}
		h := r.CreatedAt.Hour()
		buckets[h].OrderCount++
		raw[h] += r.Total
		switch r.OrderType {
		case orderTypeDineIn:
			buckets[h].DineInCount++
		case orderTypeTakeOut:
			buckets[h].TakeOutCount++
		}
	}
	for h := range buckets {
		buckets[h].TotalSales = pricing.Round2(raw[h])
		buckets[h].AverageTicket = pricing.Round2(safeDiv(raw[h], float64(buckets[h].OrderCount)))
	}
	return buckets
}

// ItemCost is the menu data profitability needs.
type ItemCost struct {
	Name  string
	Price float64
	Cost  *float64
}

type ItemMargin struct {
	MenuItemID uint     `json:"menu_item_id"`
	Name       string   `json:"name"`
	Quantity   int      `json:"quantity"`
	Revenue    float64  `json:"revenue"`
	Margin     *float64 `json:"margin_percent"`
	Profit     *float64 `json:"estimated_profit"`
}

// ItemProfitability ranks sold items by margin. Items without a margin sort last.
func ItemProfitability(rows []ItemRow, menu map[uint]ItemCost) []ItemMargin {
	byItem := make(map[uint]*ItemMargin)
	revenue := make(map[uint]float64)
	for _, r := range rows {
		m, ok := byItem[r.MenuItemID]
		if !ok {
			m = &ItemMargin{MenuItemID: r.MenuItemID, Name: r.ItemName}
			byItem[r.MenuItemID] = m
		}
		m.Quantity += r.Quantity
		revenue[r.MenuItemID] += r.Revenue
	}

	out := make([]ItemMargin, 0, len(byItem))
	for id, m := range byItem {
		m.Revenue = pricing.Round2(revenue[id])
		if info, ok := menu[id]; ok {
			if info.Name != "" {
				m.Name = info.Name
			}
			if margin, ok := pricing.ProfitMargin(info.Price, info.Cost); ok {
				margin = pricing.Round2(margin)
				profit := pricing.Round2(revenue[id] - *info.Cost*float64(m.Quantity))
				m.Margin = &margin
				m.Profit = &profit
			}
		}
		out = append(out, *m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Margin == nil) != (b.Margin == nil) {
			return a.Margin != nil
		}
		if a.Margin != nil && *a.Margin != *b.Margin {
			return *a.Margin > *b.Margin
		}
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.Name < b.Name
	})
	return out
}

type VoidReason struct {
	Reason string  `json:"reason"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// VoidAnalysis counts cancelled orders by reason.
func VoidAnalysis(orders []OrderRow) []VoidReason {
	idx := make(map[string]int)
	var out []VoidReason
	var amounts []float64
	for _, r := range orders {
		if r.Status != statusCancelled {
			continue
		}
		reason := r.VoidReason
		if reason == "" {
			reason = "unspecified"
		}
		i, ok := idx[reason]
		if !ok {
			i = len(out)
			idx[reason] = i
			out = append(out, VoidReason{Reason: reason})
			amounts = append(amounts, 0)
		}
		out[i].Count++
		amounts[i] += r.Total
	}
	for i := range out {
		out[i].Amount = pricing.Round2(amounts[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
