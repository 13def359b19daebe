package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/analytics"
	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
)

const dashboardCachePrefix = "dashboard:"

// DateRange is a half-open [From, To) interval.
type DateRange struct {
	From time.Time
	To   time.Time
}

// DayRange covers the calendar day of t in loc.
func DayRange(t time.Time, loc *time.Location) DateRange {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return DateRange{From: start, To: start.AddDate(0, 0, 1)}
}

// ParseDateRange reads YYYY-MM-DD bounds, both inclusive. Missing bounds default to today.
func ParseDateRange(from, to string, loc *time.Location, now time.Time) (DateRange, error) {
	today := DayRange(now, loc)
	r := today
	if from != "" {
		d, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return r, apperrors.Validation("invalid from date %q, expected YYYY-MM-DD", from)
		}
		r.From = d
	}
	if to != "" {
		d, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return r, apperrors.Validation("invalid to date %q, expected YYYY-MM-DD", to)
		}
		r.To = d.AddDate(0, 0, 1)
	} else if from != "" && r.From.After(today.From) {
		r.To = r.From.AddDate(0, 0, 1)
	}
	if !r.From.Before(r.To) {
		return r, apperrors.Validation("from date must not be after to date")
	}
	return r, nil
}

type DashboardSnapshot struct {
	Date           string                 `json:"date"`
	Overview       analytics.Overview     `json:"overview"`
	Hourly         []analytics.HourBucket `json:"hourly"`
	TopItems       []analytics.Summary    `json:"top_items"`
	ActiveOrders   int64                  `json:"active_orders"`
	OccupiedTables int64                  `json:"occupied_tables"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

type MethodTotal struct {
	Method string  `json:"method"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
	Tips   float64 `json:"tips"`
}

type EndOfDayReport struct {
	Date       string                 `json:"date"`
	Overview   analytics.Overview     `json:"overview"`
	Payments   []MethodTotal          `json:"payments"`
	Categories []analytics.Summary    `json:"categories"`
	TopItems   []analytics.Summary    `json:"top_items"`
	Servers    []analytics.Summary    `json:"servers"`
	Voids      []analytics.VoidReason `json:"voids"`
}

// AnalyticsService loads rows for a date range and hands them to the analytics package.
type AnalyticsService struct {
	DB       *gorm.DB
	Cache    cache.Store
	Settings config.Settings
	Now      func() time.Time
}

func NewAnalyticsService(db *gorm.DB, store cache.Store, settings config.Settings) *AnalyticsService {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	return &AnalyticsService{DB: db, Cache: store, Settings: settings, Now: time.Now}
}

func (s *AnalyticsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Today is the current business day in the configured timezone.
func (s *AnalyticsService) Today() DateRange {
	return DayRange(s.now(), s.Settings.Location())
}

// Dashboard returns today's snapshot, served from cache for DashboardCacheTTL.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardSnapshot, error) {
	r := s.Today()
	key := dashboardCachePrefix + r.From.Format("2006-01-02")
	var snap DashboardSnapshot
	if cache.GetJSON(ctx, s.Cache, key, &snap) {
		return &snap, nil
	}
	fresh, err := s.buildDashboard(ctx, r)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.Cache, key, fresh, s.Settings.DashboardCacheTTL)
	return fresh, nil
}

// RefreshDashboard rebuilds today's snapshot and replaces the cached one.
func (s *AnalyticsService) RefreshDashboard(ctx context.Context) (*DashboardSnapshot, error) {
	r := s.Today()
	snap, err := s.buildDashboard(ctx, r)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.Cache, dashboardCachePrefix+r.From.Format("2006-01-02"), snap, s.Settings.DashboardCacheTTL)
	return snap, nil
}

func (s *AnalyticsService) buildDashboard(ctx context.Context, r DateRange) (*DashboardSnapshot, error) {
	orders, err := s.orderRows(ctx, r)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRows(ctx, r)
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	snap := &DashboardSnapshot{
		Date:        r.From.Format("2006-01-02"),
		Overview:    analytics.BuildOverview(orders),
		Hourly:      analytics.HourlyPattern(withoutCancelled(orders)),
		TopItems:    top(analytics.SummarizeItems(items, analytics.ItemsByItem), 5),
		GeneratedAt: s.now(),
	}
	if err := db.Model(&models.Order{}).Where("status NOT IN ?", terminalStatuses).Count(&snap.ActiveOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count active orders: %w", err)
	}
	if err := db.Model(&models.RestaurantTable{}).Where("is_occupied = ?", true).Count(&snap.OccupiedTables).Error; err != nil {
		return nil, fmt.Errorf("failed to count occupied tables: %w", err)
	}
	return snap, nil
}

func (s *AnalyticsService) Categories(ctx context.Context, r DateRange) ([]analytics.Summary, error) {
	items, err := s.itemRows(ctx, r)
	if err != nil {
		return nil, err
	}
	return analytics.SummarizeItems(items, analytics.ItemsByCategory), nil
}

func (s *AnalyticsService) Items(ctx context.Context, r DateRange) ([]analytics.Summary, error) {
	items, err := s.itemRows(ctx, r)
	if err != nil {
		return nil, err
	}
	return analytics.SummarizeItems(items, analytics.ItemsByItem), nil
}

func (s *AnalyticsService) Servers(ctx context.Context, r DateRange) ([]analytics.Summary, error) {
	orders, err := s.orderRows(ctx, r)
	if err != nil {
		return nil, err
	}
	return analytics.SummarizeOrders(withoutCancelled(orders), analytics.OrdersByServer), nil
}

func (s *AnalyticsService) Hourly(ctx context.Context, r DateRange) ([]analytics.HourBucket, error) {
	orders, err := s.orderRows(ctx, r)
	if err != nil {
		return nil, err
	}
	return analytics.HourlyPattern(withoutCancelled(orders)), nil
}

// Daily is one summary per day, oldest first.
func (s *AnalyticsService) Daily(ctx context.Context, r DateRange) ([]analytics.Summary, error) {
	orders, err := s.orderRows(ctx, r)
	if err != nil {
		return nil, err
	}
	days := analytics.SummarizeOrders(withoutCancelled(orders), analytics.OrdersByDay)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Key < days[j].Key })
	return days, nil
}

func (s *AnalyticsService) Profitability(ctx context.Context, r DateRange) ([]analytics.ItemMargin, error) {
	items, err := s.itemRows(ctx, r)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool)
	for _, it := range items {
		if it.MenuItemID != 0 && !seen[it.MenuItemID] {
			seen[it.MenuItemID] = true
			ids = append(ids, it.MenuItemID)
		}
	}
	menu := make(map[uint]analytics.ItemCost, len(ids))
	if len(ids) > 0 {
		var menuItems []models.MenuItem
		if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&menuItems).Error; err != nil {
			return nil, fmt.Errorf("failed to load menu costs: %w", err)
		}
		for _, m := range menuItems {
			menu[m.ID] = analytics.ItemCost{Name: m.Name, Price: m.BasePrice, Cost: m.Cost}
		}
	}
	return analytics.ItemProfitability(items, menu), nil
}

func (s *AnalyticsService) Voids(ctx context.Context, r DateRange) ([]analytics.VoidReason, error) {
	orders, err := s.orderRows(ctx, r)
	if err != nil {
		return nil, err
	}
	return analytics.VoidAnalysis(orders), nil
}

// EndOfDay assembles the closing report for the day containing day.
func (s *AnalyticsService) EndOfDay(ctx context.Context, day time.Time) (*EndOfDayReport, error) {
	r := DayRange(day, s.Settings.Location())
	orders, err := s.orderRows(ctx, r)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRows(ctx, r)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentsByMethod(ctx, r)
	if err != nil {
		return nil, err
	}
	return &EndOfDayReport{
		Date:       r.From.Format("2006-01-02"),
		Overview:   analytics.BuildOverview(orders),
		Payments:   payments,
		Categories: analytics.SummarizeItems(items, analytics.ItemsByCategory),
		TopItems:   top(analytics.SummarizeItems(items, analytics.ItemsByItem), 10),
		Servers:    analytics.SummarizeOrders(withoutCancelled(orders), analytics.OrdersByServer),
		Voids:      analytics.VoidAnalysis(orders),
	}, nil
}

// CompletedOrders loads completed orders with their items, oldest first.
func (s *AnalyticsService) CompletedOrders(ctx context.Context, r DateRange) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Preload("OrderItems", orderItemsByID).
		Preload("Server").
		Where("status = ? AND created_at >= ? AND created_at < ?", orderflow.StatusCompleted, dbTime(r.From), dbTime(r.To)).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load completed orders: %w", err)
	}
	return orders, nil
}

func (s *AnalyticsService) orderRows(ctx context.Context, r DateRange) ([]analytics.OrderRow, error) {
	var rows []analytics.OrderRow
	err := s.DB.WithContext(ctx).Table("orders").
		Select(`orders.id AS order_id, orders.order_type, orders.status,
			COALESCE(orders.server_id, 0) AS server_id, COALESCE(users.name, '') AS server_name,
			orders.subtotal, orders.discount_amount AS discount, orders.tax_amount AS tax,
			orders.gratuity_amount AS gratuity, orders.total_amount AS total,
			COALESCE(orders.void_reason, '') AS void_reason, orders.created_at`).
		Joins("LEFT JOIN users ON users.id = orders.server_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", dbTime(r.From), dbTime(r.To)).
		Order("orders.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load order rows: %w", err)
	}
	loc := s.Settings.Location()
	for i := range rows {
		rows[i].CreatedAt = rows[i].CreatedAt.In(loc)
	}
	return rows, nil
}

func (s *AnalyticsService) itemRows(ctx context.Context, r DateRange) ([]analytics.ItemRow, error) {
	var rows []analytics.ItemRow
	err := s.DB.WithContext(ctx).Table("order_items").
		Select(`order_items.order_id, COALESCE(order_items.menu_item_id, 0) AS menu_item_id,
			order_items.item_name, COALESCE(menu_items.category_id, 0) AS category_id,
			COALESCE(menu_categories.name, 'Uncategorized') AS category_name,
			COALESCE(orders.server_id, 0) AS server_id, COALESCE(users.name, '') AS server_name,
			order_items.quantity, order_items.total_price AS revenue, orders.created_at`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("LEFT JOIN menu_items ON menu_items.id = order_items.menu_item_id").
		Joins("LEFT JOIN menu_categories ON menu_categories.id = menu_items.category_id").
		Joins("LEFT JOIN users ON users.id = orders.server_id").
		Where("orders.created_at >= ? AND orders.created_at < ?", dbTime(r.From), dbTime(r.To)).
		Where("orders.status <> ? AND order_items.status <> ?", orderflow.StatusCancelled, orderflow.ItemCancelled).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load item rows: %w", err)
	}
	loc := s.Settings.Location()
	for i := range rows {
		rows[i].CreatedAt = rows[i].CreatedAt.In(loc)
	}
	return rows, nil
}

func (s *AnalyticsService) paymentsByMethod(ctx context.Context, r DateRange) ([]MethodTotal, error) {
	var out []MethodTotal
	err := s.DB.WithContext(ctx).Model(&models.Payment{}).
		Select("payment_method AS method, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount, COALESCE(SUM(tip_amount), 0) AS tips").
		Where("status = ? AND processed_at >= ? AND processed_at < ?", models.PaymentStatusCompleted, dbTime(r.From), dbTime(r.To)).
		Group("payment_method").
		Order("payment_method").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total payments: %w", err)
	}
	return out, nil
}

// dbTime matches the zone GORM stamps created_at with.
func dbTime(t time.Time) time.Time {
	return t.In(time.Local)
}

func withoutCancelled(rows []analytics.OrderRow) []analytics.OrderRow {
	out := make([]analytics.OrderRow, 0, len(rows))
	for _, r := range rows {
		if r.Status != string(orderflow.StatusCancelled) {
			out = append(out, r)
		}
	}
	return out
}

func top(s []analytics.Summary, n int) []analytics.Summary {
	if len(s) > n {
		return s[:n]
	}
	return s
}
