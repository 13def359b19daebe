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
)

// UpdateStatus moves an order along its lifecycle and applies the side effects of the new state.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID uint, to orderflow.Status, reason string) (*models.Order, error) {
	var releasedTable *uint
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.ValidateTransition(order.Status, to, reason); err != nil {
			return err
		}

		now := s.now()
		fields := map[string]interface{}{"status": to}
		switch to {
		case orderflow.StatusConfirmed:
			fields["confirmed_at"] = now
		case orderflow.StatusCompleted:
			if err := order.Recalculate(); err != nil {
				return err
			}
			for k, v := range map[string]interface{}{
				"subtotal":        order.Subtotal,
				"discount_amount": order.DiscountAmount,
				"tax_amount":      order.TaxAmount,
				"gratuity_amount": order.GratuityAmount,
				"service_charge":  order.ServiceCharge,
				"total_amount":    order.TotalAmount,
				"completed_at":    now,
				"cashier_id":      actor.ref(),
			} {
				fields[k] = v
			}
		case orderflow.StatusCancelled:
			r := strings.TrimSpace(reason)
			fields["void_reason"] = r
			fields["is_void"] = true
			fields["void_by"] = actor.ref()
		}

		// status is part of the guard so two racing transitions cannot both apply
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND version = ?", order.ID, order.Status, order.Version).
			Updates(withVersionBump(fields))
		if res.Error != nil {
			return fmt.Errorf("failed to update order status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("order %d changed status concurrently", order.ID)
		}

		items := tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID)
		switch to {
		case orderflow.StatusConfirmed:
			err = items.Where("status = ? AND sent_to_kitchen_at IS NULL", orderflow.ItemPending).
				Update("sent_to_kitchen_at", now).Error
		case orderflow.StatusPreparing:
			err = items.Where("status = ?", orderflow.ItemPending).
				Updates(map[string]interface{}{
					"status":             orderflow.ItemPreparing,
					"sent_to_kitchen_at": gorm.Expr("COALESCE(sent_to_kitchen_at, ?)", now),
				}).Error
		case orderflow.StatusReady:
			err = items.Where("status IN ?", []orderflow.Status{orderflow.ItemPending, orderflow.ItemPreparing}).
				Updates(map[string]interface{}{"status": orderflow.ItemReady, "prepared_at": now}).Error
		case orderflow.StatusCompleted:
			err = items.Where("status NOT IN ?", terminalStatuses).
				Updates(map[string]interface{}{"status": orderflow.ItemCompleted, "served_at": now}).Error
		case orderflow.StatusCancelled:
			err = items.Where("status <> ?", orderflow.ItemCompleted).
				Update("status", orderflow.ItemCancelled).Error
		}
		if err != nil {
			return fmt.Errorf("failed to update order items: %w", err)
		}

		if to.Terminal() && order.TableID != nil {
			if err := releaseTable(tx, *order.TableID, order.ID); err != nil {
				return err
			}
			releasedTable = order.TableID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransition(string(to))
	order, err := s.afterChange(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch to {
	case orderflow.StatusConfirmed, orderflow.StatusPreparing, orderflow.StatusReady:
		kds.BroadcastKitchenUpdate(order)
	}
	if releasedTable != nil {
		s.broadcastTables(ctx, *releasedTable)
	}
	return order, nil
}

// SendToKitchen confirms a pending order.
func (s *OrderService) SendToKitchen(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	return s.UpdateStatus(ctx, actor, orderID, orderflow.StatusConfirmed, "")
}

var itemRank = map[orderflow.Status]int{
	orderflow.ItemPending:   0,
	orderflow.ItemPreparing: 1,
	orderflow.ItemReady:     2,
	orderflow.ItemCompleted: 3,
}

// UpdateItemStatus lets the kitchen advance a single line.
func (s *OrderService) UpdateItemStatus(ctx context.Context, itemID uint, to orderflow.Status) (*models.OrderItem, error) {
	if err := orderflow.ValidateItemStatus(to); err != nil {
		return nil, err
	}
	var item models.OrderItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			return lookupErr(err, "order item", itemID)
		}
		var order models.Order
		if err := tx.Select("id", "status").First(&order, item.OrderID).Error; err != nil {
			return lookupErr(err, "order", item.OrderID)
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}
		if order.Status == orderflow.StatusPending {
			return apperrors.Conflict("order %d has not been sent to the kitchen", order.ID)
		}
		if item.Status == orderflow.ItemCancelled {
			return apperrors.Conflict("item %d is cancelled", item.ID)
		}
		if itemRank[to] <= itemRank[item.Status] {
			return apperrors.Validation("cannot move item from %s to %s", item.Status, to)
		}

		now := s.now()
		fields := map[string]interface{}{"status": to}
		if item.SentToKitchenAt == nil {
			fields["sent_to_kitchen_at"] = now
		}
		if to != orderflow.ItemPreparing && item.PreparedAt == nil {
			fields["prepared_at"] = now
		}
		if to == orderflow.ItemCompleted {
			fields["served_at"] = now
		}
		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND status = ?", item.ID, item.Status).
			Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to update order item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("item %d changed status concurrently", item.ID)
		}
		return tx.First(&item, itemID).Error
	})
	if err != nil {
		return nil, err
	}
	kds.BroadcastKitchenUpdate(item)
	return &item, nil
}

func withVersionBump(fields map[string]interface{}) map[string]interface{} {
	fields["version"] = gorm.Expr("version + 1")
	return fields
}
