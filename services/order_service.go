package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/metrics"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/pricing"
)

var terminalStatuses = []orderflow.Status{orderflow.StatusCompleted, orderflow.StatusCancelled}

// Actor is the authenticated staff member performing an operation.
type Actor struct {
	UserID uint
	Role   permissions.Role
}

func (a Actor) ref() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

type ItemInput struct {
	MenuItemID          uint   `json:"menu_item_id" binding:"required"`
	Quantity            int    `json:"quantity" binding:"required,min=1"`
	ModifierIDs         []uint `json:"modifier_ids"`
	ServingType         string `json:"serving_type" binding:"omitempty,serving_type"`
	TimePeriod          string `json:"time_period" binding:"omitempty,oneof=lunch dinner"`
	SpecialInstructions string `json:"special_instructions"`
}

type CreateOrderInput struct {
	OrderType     string      `json:"order_type" binding:"required,order_type"`
	TableID       *uint       `json:"table_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	PartySize     int         `json:"party_size" binding:"min=0"`
	Notes         string      `json:"notes"`
	Items         []ItemInput `json:"items" binding:"dive"`
}

// CalculateInput overrides order rates. A manual gratuity amount disables auto-gratuity.
type CalculateInput struct {
	TaxRate           *float64 `json:"tax_rate" binding:"omitempty,min=0"`
	GratuityRate      *float64 `json:"gratuity_rate" binding:"omitempty,min=0"`
	GratuityAmount    *float64 `json:"gratuity_amount" binding:"omitempty,min=0"`
	ServiceChargeRate *float64 `json:"service_charge_rate" binding:"omitempty,min=0"`
}

type OrderFilter struct {
	Status    string
	OrderType string
	ServerID  uint
	TableID   uint
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type OrderEstimate struct {
	OrderID          uint      `json:"order_id"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	ReadyAt          time.Time `json:"ready_at"`
}

type KitchenQueue struct {
	Orders             []models.Order `json:"orders"`
	AverageWaitMinutes int            `json:"average_wait_minutes"`
}

// OrderService owns every write to orders, their items and table occupancy.
type OrderService struct {
	DB       *gorm.DB
	Settings config.Settings
	Now      func() time.Time
}

func NewOrderService(db *gorm.DB, settings config.Settings) *OrderService {
	return &OrderService{DB: db, Settings: settings, Now: time.Now}
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (*models.Order, error) {
	orderType := strings.ToLower(strings.TrimSpace(in.OrderType))
	customer := strings.TrimSpace(in.CustomerName)
	switch orderType {
	case models.OrderTypeDineIn:
		if in.TableID == nil {
			return nil, apperrors.Validation("dine-in orders require a table")
		}
	case models.OrderTypeTakeOut:
		if in.TableID != nil {
			return nil, apperrors.Validation("take-out orders cannot be seated at a table")
		}
		if customer == "" {
			return nil, apperrors.Validation("take-out orders require a customer name")
		}
	default:
		return nil, apperrors.Validation("order type must be dine_in or take_out")
	}
	if in.PartySize < 0 {
		return nil, apperrors.Validation("party size must not be negative")
	}

	order := models.Order{
		OrderType: orderType,
		Status:    orderflow.StatusPending,
		TableID:   in.TableID,
		PartySize: in.PartySize,
		ServerID:  actor.ref(),
		TaxRate:   s.Settings.TaxRate,
	}
	if customer != "" {
		order.CustomerName = &customer
	}
	if phone := strings.TrimSpace(in.CustomerPhone); phone != "" {
		order.CustomerPhone = &phone
	}
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		order.Notes = &notes
	}
	if s.Settings.AutoGratuityPartySize > 0 && in.PartySize >= s.Settings.AutoGratuityPartySize {
		rate := s.Settings.AutoGratuityRate
		order.GratuityRate = &rate
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.TableID != nil {
			var table models.RestaurantTable
			if err := tx.First(&table, *order.TableID).Error; err != nil {
				return lookupErr(err, "table", *order.TableID)
			}
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if order.TableID != nil {
			if err := s.occupyTable(tx, *order.TableID, order.ID, order.ServerID, order.ID); err != nil {
				return err
			}
		}
		for _, item := range in.Items {
			line, err := s.buildItem(tx, order.ID, item)
			if err != nil {
				return err
			}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to add order item: %w", err)
			}
			order.OrderItems = append(order.OrderItems, line)
		}
		if err := order.Recalculate(); err != nil {
			return err
		}
		return saveTotals(tx, &order, nil)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderCreated(order.OrderType)
	created, err := s.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	kds.BroadcastOrderUpdate(*created)
	if created.TableID != nil {
		s.broadcastTables(ctx, *created.TableID)
	}
	return created, nil
}

// AddItems prices and appends lines to a non-terminal order.
func (s *OrderService) AddItems(ctx context.Context, orderID uint, items []ItemInput) (*models.Order, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("at least one item is required")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}
		if err := ensureUnpaid(tx, order.ID); err != nil {
			return err
		}
		now := s.now()
		for _, item := range items {
			line, err := s.buildItem(tx, order.ID, item)
			if err != nil {
				return err
			}
			// the order is already in the kitchen
			if order.Status != orderflow.StatusPending {
				line.SentToKitchenAt = &now
			}
			if err := tx.Create(&line).Error; err != nil {
				return fmt.Errorf("failed to add order item: %w", err)
			}
			order.OrderItems = append(order.OrderItems, line)
		}
		if err := order.Recalculate(); err != nil {
			return err
		}
		return saveTotals(tx, order, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, orderID)
}

// RemoveItem deletes a line the kitchen has not started.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}
		if err := ensureUnpaid(tx, order.ID); err != nil {
			return err
		}
		idx := -1
		for i, it := range order.OrderItems {
			if it.ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return apperrors.NotFound("item %d is not on order %d", itemID, orderID)
		}
		if st := order.OrderItems[idx].Status; st != orderflow.ItemPending {
			return apperrors.Conflict("item %d is %s; only pending items can be removed", itemID, st)
		}

		res := tx.Where("id = ? AND order_id = ? AND status = ?", itemID, orderID, orderflow.ItemPending).
			Delete(&models.OrderItem{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove order item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("item %d changed while it was being removed", itemID)
		}
		order.OrderItems = append(order.OrderItems[:idx], order.OrderItems[idx+1:]...)

		// keep the discount within the smaller subtotal
		var subtotal float64
		for _, l := range order.Lines() {
			subtotal += l.Total
		}
		if order.DiscountAmount > pricing.Round2(subtotal) {
			order.DiscountAmount = pricing.Round2(subtotal)
		}
		if err := order.Recalculate(); err != nil {
			return err
		}
		return saveTotals(tx, order, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, orderID)
}

func (s *OrderService) ApplyDiscount(ctx context.Context, orderID uint, amount float64, reason string) (*models.Order, error) {
	if amount < 0 {
		return nil, apperrors.Validation("discount must not be negative")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" && amount > 0 {
		return nil, apperrors.Validation("a discount reason is required")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}
		if err := ensureUnpaid(tx, order.ID); err != nil {
			return err
		}
		order.DiscountAmount = pricing.Round2(amount)
		order.DiscountReason = nil
		if reason != "" {
			order.DiscountReason = &reason
		}
		if err := order.Recalculate(); err != nil {
			return err
		}
		return saveTotals(tx, order, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, orderID)
}

// Calculate applies rate overrides and recomputes totals.
func (s *OrderService) Calculate(ctx context.Context, orderID uint, in CalculateInput) (*models.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}
		if err := ensureUnpaid(tx, order.ID); err != nil {
			return err
		}
		if in.TaxRate != nil {
			order.TaxRate = *in.TaxRate
		}
		if in.ServiceChargeRate != nil {
			order.ServiceChargeRate = *in.ServiceChargeRate
		}
		switch {
		case in.GratuityAmount != nil:
			order.GratuityRate = nil
			order.GratuityAmount = *in.GratuityAmount
		case in.GratuityRate != nil:
			rate := *in.GratuityRate
			order.GratuityRate = &rate
		}
		if err := order.Recalculate(); err != nil {
			return err
		}
		return saveTotals(tx, order, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.afterChange(ctx, orderID)
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("OrderItems", orderItemsByID).
		Preload("Table").
		Preload("Server").
		First(&order, id).Error
	if err != nil {
		return nil, lookupErr(err, "order", id)
	}
	return &order, nil
}

// ListOrders returns one page of order history plus the total match count.
func (s *OrderService) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		st, ok := orderflow.ParseStatus(f.Status)
		if !ok {
			return nil, 0, apperrors.Validation("unknown order status %q", f.Status)
		}
		q = q.Where("status = ?", st)
	}
	if f.OrderType != "" {
		q = q.Where("order_type = ?", f.OrderType)
	}
	if f.ServerID != 0 {
		q = q.Where("server_id = ?", f.ServerID)
	}
	if f.TableID != 0 {
		q = q.Where("table_id = ?", f.TableID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	var orders []models.Order
	err := q.Preload("OrderItems", orderItemsByID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// ActiveOrders lists every non-terminal order, oldest first.
func (s *OrderService) ActiveOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Preload("OrderItems", orderItemsByID).
		Preload("Table").
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) Estimate(ctx context.Context, orderID uint) (*OrderEstimate, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("OrderItems.MenuItem").
		First(&order, orderID).Error
	if err != nil {
		return nil, lookupErr(err, "order", orderID)
	}
	minutes := orderflow.OrderEstimate(prepLines(order.OrderItems))
	start := s.now()
	if order.ConfirmedAt != nil {
		start = *order.ConfirmedAt
	}
	return &OrderEstimate{
		OrderID:          order.ID,
		EstimatedMinutes: minutes,
		ReadyAt:          start.Add(time.Duration(minutes) * time.Minute),
	}, nil
}

// KitchenQueue lists confirmed and preparing orders with their open lines.
func (s *OrderService) KitchenQueue(ctx context.Context) (*KitchenQueue, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).
		Where("status IN ?", []orderflow.Status{orderflow.StatusConfirmed, orderflow.StatusPreparing}).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
			return db.Where("status IN ?", []orderflow.Status{orderflow.ItemPending, orderflow.ItemPreparing}).Order("id")
		}).
		Preload("OrderItems.MenuItem").
		Preload("Table").
		Order("confirmed_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load kitchen queue: %w", err)
	}
	var open []models.OrderItem
	for _, o := range orders {
		open = append(open, o.OrderItems...)
	}
	return &KitchenQueue{Orders: orders, AverageWaitMinutes: orderflow.AverageWait(prepLines(open))}, nil
}

// buildItem resolves price and modifiers for one requested line.
func (s *OrderService) buildItem(tx *gorm.DB, orderID uint, in ItemInput) (models.OrderItem, error) {
	var menuItem models.MenuItem
	if err := tx.Preload("ItemModifiers.Modifier").First(&menuItem, in.MenuItemID).Error; err != nil {
		return models.OrderItem{}, lookupErr(err, "menu item", in.MenuItemID)
	}
	if !menuItem.IsAvailable {
		return models.OrderItem{}, apperrors.Validation("%s is not available", menuItem.Name)
	}

	offered := make(map[uint]models.ItemModifier, len(menuItem.ItemModifiers))
	for _, link := range menuItem.ItemModifiers {
		offered[link.ModifierID] = link
	}
	chosen := make(map[uint]struct{}, len(in.ModifierIDs))
	var mods []pricing.Modifier
	for _, id := range in.ModifierIDs {
		if _, dup := chosen[id]; dup {
			continue
		}
		link, ok := offered[id]
		if !ok {
			return models.OrderItem{}, apperrors.Validation("modifier %d is not offered for %s", id, menuItem.Name)
		}
		if !link.Modifier.IsActive {
			return models.OrderItem{}, apperrors.Validation("modifier %s is not available", link.Modifier.Name)
		}
		chosen[id] = struct{}{}
		mods = append(mods, pricing.Modifier{ID: id, Name: link.Modifier.Name, Price: link.Modifier.Price})
	}
	for _, link := range menuItem.ItemModifiers {
		if _, ok := chosen[link.ModifierID]; link.IsRequired && !ok {
			return models.OrderItem{}, apperrors.Validation("%s requires modifier %s", menuItem.Name, link.Modifier.Name)
		}
	}

	resolved, err := pricing.ResolvePrice(menuItem.Prices(), s.priceContext(in.ServingType, in.TimePeriod))
	if err != nil {
		return models.OrderItem{}, err
	}
	line, err := pricing.ComputeLineTotal(resolved, in.Quantity, mods)
	if err != nil {
		return models.OrderItem{}, err
	}

	unit := pricing.Round2(line.UnitPrice)
	menuItemID := menuItem.ID
	item := models.OrderItem{
		OrderID:    orderID,
		MenuItemID: &menuItemID,
		ItemName:   menuItem.Name,
		Quantity:   line.Quantity,
		UnitPrice:  unit,
		Modifiers:  mods,
		TotalPrice: pricing.Round2(unit * float64(line.Quantity)),
		Status:     orderflow.ItemPending,
	}
	if note := strings.TrimSpace(in.SpecialInstructions); note != "" {
		item.SpecialInstructions = &note
	}
	return item, nil
}

func (s *OrderService) priceContext(servingType, period string) pricing.Context {
	return newPriceContext(s.Settings, s.now(), servingType, period)
}

// newPriceContext evaluates the lunch window in the restaurant's timezone.
func newPriceContext(settings config.Settings, at time.Time, servingType, period string) pricing.Context {
	return pricing.Context{
		ServingType: servingType,
		TimePeriod:  period,
		At:          at.In(settings.Location()),
		LunchStart:  settings.LunchStartHour,
		LunchEnd:    settings.LunchEndHour,
	}
}

// afterChange reloads an order after commit and pushes it to connected displays.
func (s *OrderService) afterChange(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	kds.BroadcastOrderUpdate(*order)
	return order, nil
}

func (s *OrderService) broadcastTables(ctx context.Context, ids ...uint) {
	if len(ids) == 0 {
		return
	}
	var tables []models.RestaurantTable
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&tables).Error; err != nil {
		return
	}
	for _, t := range tables {
		kds.BroadcastTableUpdate(t)
	}
}

func orderItemsByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func loadOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Preload("OrderItems", orderItemsByID).First(&order, id).Error; err != nil {
		return nil, lookupErr(err, "order", id)
	}
	return &order, nil
}

func prepLines(items []models.OrderItem) []orderflow.PrepLine {
	lines := make([]orderflow.PrepLine, 0, len(items))
	for _, it := range items {
		if it.Status == orderflow.ItemCancelled {
			continue
		}
		prep := 0
		if it.MenuItem != nil {
			prep = it.MenuItem.PreparationTime
		}
		lines = append(lines, orderflow.PrepLine{PrepMinutes: prep, Quantity: it.Quantity})
	}
	return lines
}

// lookupErr maps a missing row to NotFound and wraps anything else.
func lookupErr(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("%s %d not found", what, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}

// guardedUpdate writes fields only if nobody changed the order since it was read.
func guardedUpdate(tx *gorm.DB, order *models.Order, fields map[string]interface{}) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(withVersionBump(fields))
	if res.Error != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Conflict("order %d was modified concurrently", order.ID)
	}
	order.Version++
	return nil
}

func saveTotals(tx *gorm.DB, order *models.Order, extra map[string]interface{}) error {
	fields := map[string]interface{}{
		"subtotal":            order.Subtotal,
		"discount_amount":     order.DiscountAmount,
		"discount_reason":     order.DiscountReason,
		"tax_rate":            order.TaxRate,
		"tax_amount":          order.TaxAmount,
		"gratuity_rate":       order.GratuityRate,
		"gratuity_amount":     order.GratuityAmount,
		"service_charge_rate": order.ServiceChargeRate,
		"service_charge":      order.ServiceCharge,
		"total_amount":        order.TotalAmount,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return guardedUpdate(tx, order, fields)
}
