package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/metrics"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
	"github.com/yeremiapane/fuji-pos/pricing"
)

// Split replaces an order with one new order per group. Either every group is
// created and the original deleted, or nothing changes.
func (s *OrderService) Split(ctx context.Context, orderID uint, groups []orderflow.SplitGroup) ([]models.Order, error) {
	var createdIDs []uint
	var touchedTables []uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}

		itemIDs := make([]uint, len(order.OrderItems))
		byID := make(map[uint]models.OrderItem, len(order.OrderItems))
		for i, it := range order.OrderItems {
			itemIDs[i] = it.ID
			byID[it.ID] = it
		}
		if err := orderflow.ValidateSplit(itemIDs, groups); err != nil {
			return err
		}
		for _, g := range groups {
			if g.TableID != nil && order.OrderType != models.OrderTypeDineIn {
				return apperrors.Validation("take-out split groups cannot name a table")
			}
		}

		var settled int64
		err = tx.Model(&models.Payment{}).
			Where("order_id = ? AND status IN ?", order.ID, []string{models.PaymentStatusCompleted, models.PaymentStatusRefunded}).
			Count(&settled).Error
		if err != nil {
			return fmt.Errorf("failed to check payments: %w", err)
		}
		if settled > 0 {
			return apperrors.Conflict("order %d already has payments and cannot be split", order.ID)
		}

		weights := make([]float64, len(groups))
		for i, g := range groups {
			for _, id := range g.ItemIDs {
				if it := byID[id]; it.Status != orderflow.ItemCancelled {
					weights[i] += it.UnitPrice * float64(it.Quantity)
				}
			}
		}
		discounts := orderflow.ProrateDiscount(order.DiscountAmount, weights)
		var gratuities []float64
		if order.GratuityRate == nil {
			gratuities = orderflow.ProrateDiscount(order.GratuityAmount, weights)
		}

		created := make([]*models.Order, len(groups))
		for i, g := range groups {
			child := s.splitChild(order, g)
			child.DiscountAmount = discounts[i]
			if limit := pricing.Round2(weights[i]); child.DiscountAmount > limit {
				child.DiscountAmount = limit
			}
			if gratuities != nil {
				child.GratuityAmount = gratuities[i]
			}
			if err := tx.Create(child).Error; err != nil {
				return fmt.Errorf("failed to create split order: %w", err)
			}

			res := tx.Model(&models.OrderItem{}).
				Where("id IN ? AND order_id = ?", g.ItemIDs, order.ID).
				Update("order_id", child.ID)
			if res.Error != nil {
				return fmt.Errorf("failed to move items: %w", res.Error)
			}
			if res.RowsAffected != int64(len(g.ItemIDs)) {
				return apperrors.Conflict("order %d items changed during the split", order.ID)
			}
			for _, id := range g.ItemIDs {
				it := byID[id]
				it.OrderID = child.ID
				child.OrderItems = append(child.OrderItems, it)
			}
			if err := child.Recalculate(); err != nil {
				return err
			}
			if err := saveTotals(tx, child, nil); err != nil {
				return err
			}
			created[i] = child
			createdIDs = append(createdIDs, child.ID)
		}

		// each table goes to the first group seated there
		claimed := make(map[uint]bool)
		for _, child := range created {
			if child.TableID == nil || claimed[*child.TableID] {
				continue
			}
			if err := s.occupyTable(tx, *child.TableID, child.ID, child.ServerID, order.ID); err != nil {
				return err
			}
			claimed[*child.TableID] = true
			touchedTables = append(touchedTables, *child.TableID)
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to drop pending payments: %w", err)
		}
		res := tx.Where("id = ? AND version = ?", order.ID, order.Version).Delete(&models.Order{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete split order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("order %d was modified concurrently", order.ID)
		}

		if order.TableID != nil && !claimed[*order.TableID] {
			if err := releaseTable(tx, *order.TableID, order.ID); err != nil {
				return err
			}
			touchedTables = append(touchedTables, *order.TableID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(createdIDs))
	for _, id := range createdIDs {
		o, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
		metrics.OrderCreated(o.OrderType)
	}
	kds.BroadcastOrderSplit(orderID, orders)
	s.broadcastTables(ctx, touchedTables...)
	return orders, nil
}

func (s *OrderService) splitChild(order *models.Order, g orderflow.SplitGroup) *models.Order {
	child := &models.Order{
		OrderType:         order.OrderType,
		Status:            order.Status,
		TableID:           order.TableID,
		CustomerName:      order.CustomerName,
		CustomerPhone:     order.CustomerPhone,
		ServerID:          order.ServerID,
		TaxRate:           order.TaxRate,
		GratuityRate:      order.GratuityRate,
		ServiceChargeRate: order.ServiceChargeRate,
		DiscountReason:    order.DiscountReason,
		ConfirmedAt:       order.ConfirmedAt,
	}
	if g.TableID != nil {
		child.TableID = g.TableID
	}
	if name := strings.TrimSpace(g.CustomerName); name != "" {
		child.CustomerName = &name
	}
	note := fmt.Sprintf("Split from order #%d", order.ID)
	if name := strings.TrimSpace(g.Name); name != "" {
		note += " (" + name + ")"
	}
	child.Notes = &note
	return child
}
