package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
)

// Transfer moves a dine-in order to another table. Moving to the current table is a no-op.
func (s *OrderService) Transfer(ctx context.Context, orderID, tableID uint) (*models.Order, error) {
	if tableID == 0 {
		return nil, apperrors.Validation("a destination table is required")
	}
	var fromTable *uint
	noop := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := orderflow.EnsureMutable(order.Status); err != nil {
			return err
		}
		if order.OrderType != models.OrderTypeDineIn {
			return apperrors.Validation("only dine-in orders can be transferred")
		}
		if order.TableID != nil && *order.TableID == tableID {
			noop = true
			return nil
		}

		if err := s.occupyTable(tx, tableID, order.ID, order.ServerID, order.ID); err != nil {
			return err
		}
		if order.TableID != nil {
			if err := releaseTable(tx, *order.TableID, order.ID); err != nil {
				return err
			}
			fromTable = order.TableID
		}
		return guardedUpdate(tx, order, map[string]interface{}{"table_id": tableID})
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return s.GetOrder(ctx, orderID)
	}

	order, err := s.afterChange(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if fromTable != nil {
		s.broadcastTables(ctx, *fromTable, tableID)
	} else {
		s.broadcastTables(ctx, tableID)
	}
	return order, nil
}

// occupyTable points tableID at orderID. The table must be active and either free or held by holderID.
func (s *OrderService) occupyTable(tx *gorm.DB, tableID, orderID uint, serverID *uint, holderID uint) error {
	res := tx.Model(&models.RestaurantTable{}).
		Where("id = ? AND is_active = ? AND (is_occupied = ? OR current_order_id = ?)", tableID, true, false, holderID).
		Updates(map[string]interface{}{
			"is_occupied":      true,
			"current_order_id": orderID,
			"occupied_at":      s.now(),
			"server_id":        serverID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to occupy table %d: %w", tableID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var table models.RestaurantTable
	if err := tx.First(&table, tableID).Error; err != nil {
		return lookupErr(err, "table", tableID)
	}
	if !table.IsActive {
		return apperrors.Validation("table %d is not in service", table.TableNumber)
	}
	return apperrors.Conflict("table %d is occupied", table.TableNumber)
}

// releaseTable frees tableID if it still belongs to orderID. Another open order
// seated at the same table takes it over instead.
func releaseTable(tx *gorm.DB, tableID, orderID uint) error {
	var others []models.Order
	err := tx.Select("id", "server_id").
		Where("table_id = ? AND id <> ? AND status NOT IN ?", tableID, orderID, terminalStatuses).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&others).Error
	if err != nil {
		return fmt.Errorf("failed to look up orders at table %d: %w", tableID, err)
	}

	q := tx.Model(&models.RestaurantTable{}).Where("id = ? AND current_order_id = ?", tableID, orderID)
	if len(others) > 0 {
		err = q.Updates(map[string]interface{}{
			"current_order_id": others[0].ID,
			"server_id":        others[0].ServerID,
		}).Error
	} else {
		err = q.Updates(map[string]interface{}{
			"is_occupied":      false,
			"current_order_id": nil,
			"occupied_at":      nil,
			"server_id":        nil,
		}).Error
	}
	if err != nil {
		return fmt.Errorf("failed to release table %d: %w", tableID, err)
	}
	return nil
}
