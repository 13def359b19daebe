package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/yeremiapane/fuji-pos/pricing"
)

// OrderRow is one order as the aggregators see it.
type OrderRow struct {
	OrderID    uint
	OrderType  string
	Status     string
	ServerID   uint
	ServerName string
	Subtotal   float64
	Discount   float64
	Tax        float64
	Gratuity   float64
	Total      float64
	VoidReason string
	CreatedAt  time.Time
}

// ItemRow is one order line joined with its menu and server context.
type ItemRow struct {
	OrderID      uint
	MenuItemID   uint
	ItemName     string
	CategoryID   uint
	CategoryName string
	ServerID     uint
	ServerName   string
	Quantity     int
	Revenue      float64
	CreatedAt    time.Time
}

// Summary is one group of a rollup.
type Summary struct {
	Key           string  `json:"key"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	Revenue       float64 `json:"revenue"`
	OrderCount    int     `json:"order_count"`
	UniqueItems   int     `json:"unique_items"`
	AverageTicket float64 `json:"average_ticket"`
	Percentage    float64 `json:"percentage"`
}

type ItemKey func(ItemRow) (key, name string)

type OrderKey func(OrderRow) (key, name string)

var (
	ItemsByCategory ItemKey = func(r ItemRow) (string, string) {
		return strconv.FormatUint(uint64(r.CategoryID), 10), r.CategoryName
	}
	ItemsByItem ItemKey = func(r ItemRow) (string, string) {
		return strconv.FormatUint(uint64(r.MenuItemID), 10), r.ItemName
	}
	ItemsByServer ItemKey = func(r ItemRow) (string, string) {
		return strconv.FormatUint(uint64(r.ServerID), 10), r.ServerName
	}
	ItemsByHour ItemKey = func(r ItemRow) (string, string) { return hourKey(r.CreatedAt) }
	ItemsByDay  ItemKey = func(r ItemRow) (string, string) { return dayKey(r.CreatedAt) }

	OrdersByServer OrderKey = func(r OrderRow) (string, string) {
		return strconv.FormatUint(uint64(r.ServerID), 10), r.ServerName
	}
	OrdersByType OrderKey = func(r OrderRow) (string, string) { return r.OrderType, r.OrderType }
	OrdersByHour OrderKey = func(r OrderRow) (string, string) { return hourKey(r.CreatedAt) }
	OrdersByDay  OrderKey = func(r OrderRow) (string, string) { return dayKey(r.CreatedAt) }
)

func hourKey(t time.Time) (string, string) {
	h := fmt.Sprintf("%02d", t.Hour())
	return h, h + ":00"
}

func dayKey(t time.Time) (string, string) {
	d := t.Format("2006-01-02")
	return d, d
}

type accumulator struct {
	summary Summary
	orders  map[uint]struct{}
	items   map[uint]struct{}
	revenue float64
}

func newAccumulator(key, name string) *accumulator {
	return &accumulator{
		summary: Summary{Key: key, Name: name},
		orders:  make(map[uint]struct{}),
		items:   make(map[uint]struct{}),
	}
}

// SummarizeItems groups line rows by key.
func SummarizeItems(rows []ItemRow, key ItemKey) []Summary {
	groups := make(map[string]*accumulator)
	var total float64
	for _, r := range rows {
		k, name := key(r)
		acc, ok := groups[k]
		if !ok {
			acc = newAccumulator(k, name)
			groups[k] = acc
		}
		acc.summary.Quantity += r.Quantity
		acc.revenue += r.Revenue
		acc.orders[r.OrderID] = struct{}{}
		acc.items[r.MenuItemID] = struct{}{}
		total += r.Revenue
	}
	return finish(groups, total)
}

// SummarizeOrders groups order rows by key.
func SummarizeOrders(rows []OrderRow, key OrderKey) []Summary {
	groups := make(map[string]*accumulator)
	var total float64
	for _, r := range rows {
		k, name := key(r)
		acc, ok := groups[k]
		if !ok {
			acc = newAccumulator(k, name)
			groups[k] = acc
		}
		acc.revenue += r.Total
		acc.orders[r.OrderID] = struct{}{}
		total += r.Total
	}
	return finish(groups, total)
}

func finish(groups map[string]*accumulator, total float64) []Summary {
	out := make([]Summary, 0, len(groups))
	for _, acc := range groups {
		s := acc.summary
		s.OrderCount = len(acc.orders)
		s.UniqueItems = len(acc.items)
		s.Revenue = pricing.Round2(acc.revenue)
		s.AverageTicket = pricing.Round2(safeDiv(acc.revenue, float64(s.OrderCount)))
		s.Percentage = pricing.Round2(safeDiv(acc.revenue, total) * 100)
		out = append(out, s)
	}
	SortSummaries(out)
	return out
}

// SortSummaries orders by revenue descending, then name, then key.
func SortSummaries(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Revenue != s[j].Revenue {
			return s[i].Revenue > s[j].Revenue
		}
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		return s[i].Key < s[j].Key
	})
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
