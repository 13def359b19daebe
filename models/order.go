package models

import (
	"time"

	"github.com/yeremiapane/fuji-pos/orderflow"
	"github.com/yeremiapane/fuji-pos/pricing"
)

const (
	OrderTypeDineIn  = "dine_in"
	OrderTypeTakeOut = "take_out"
)

type Order struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	OrderType         string           `gorm:"type:varchar(20);not null" json:"order_type"`
	Status            orderflow.Status `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TableID           *uint            `gorm:"index" json:"table_id"`
	Table             *RestaurantTable `gorm:"foreignKey:TableID" json:"table,omitempty"`
	CustomerName      *string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone     *string          `gorm:"type:varchar(50)" json:"customer_phone"`
	PartySize         int              `gorm:"not null;default:0" json:"party_size"`
	ServerID          *uint            `gorm:"index" json:"server_id"`
	Server            *User            `gorm:"foreignKey:ServerID" json:"server,omitempty"`
	CashierID         *uint            `json:"cashier_id"`
	Subtotal          float64          `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	DiscountAmount    float64          `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	DiscountReason    *string          `gorm:"type:varchar(255)" json:"discount_reason"`
	TaxRate           float64          `gorm:"type:decimal(6,4);not null;default:0" json:"tax_rate"`
	TaxAmount         float64          `gorm:"type:decimal(10,2);not null;default:0" json:"tax_amount"`
	GratuityRate      *float64         `gorm:"type:decimal(6,4)" json:"gratuity_rate"`
	GratuityAmount    float64          `gorm:"type:decimal(10,2);not null;default:0" json:"gratuity_amount"`
	ServiceChargeRate float64          `gorm:"type:decimal(6,4);not null;default:0" json:"service_charge_rate"`
	ServiceCharge     float64          `gorm:"type:decimal(10,2);not null;default:0" json:"service_charge"`
	TotalAmount       float64          `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	AmountPaid        float64          `gorm:"type:decimal(10,2);not null;default:0" json:"amount_paid"`
	ChangeAmount      float64          `gorm:"type:decimal(10,2);not null;default:0" json:"change_amount"`
	Notes             *string          `gorm:"type:text" json:"notes"`
	IsVoid            bool             `gorm:"not null;default:false" json:"is_void"`
	VoidReason        *string          `gorm:"type:varchar(255)" json:"void_reason"`
	VoidBy            *uint            `json:"void_by"`
	Version           uint             `gorm:"not null;default:0" json:"version"`
	ConfirmedAt       *time.Time       `json:"confirmed_at"`
	CompletedAt       *time.Time       `json:"completed_at"`
	CreatedAt         time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	OrderItems        []OrderItem      `gorm:"foreignKey:OrderID" json:"order_items"`
}

// Lines converts the order's items for total computation.
func (o *Order) Lines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(o.OrderItems))
	for _, it := range o.OrderItems {
		if it.Status == orderflow.ItemCancelled {
			continue
		}
		lines = append(lines, pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity, Total: it.UnitPrice * float64(it.Quantity)})
	}
	return lines
}

func (o *Order) Adjustments() pricing.Adjustments {
	return pricing.Adjustments{
		TaxRate:           o.TaxRate,
		GratuityRate:      o.GratuityRate,
		GratuityAmount:    o.GratuityAmount,
		ServiceChargeRate: o.ServiceChargeRate,
		Discount:          o.DiscountAmount,
	}
}

// ApplyTotals copies computed totals onto the order.
func (o *Order) ApplyTotals(t pricing.Totals) {
	o.Subtotal = t.Subtotal
	o.DiscountAmount = t.Discount
	o.TaxAmount = t.Tax
	o.GratuityAmount = t.Gratuity
	o.ServiceCharge = t.ServiceCharge
	o.TotalAmount = t.Total
}

// Recalculate recomputes totals from the loaded items.
func (o *Order) Recalculate() error {
	t, err := pricing.ComputeOrderTotals(o.Lines(), o.Adjustments())
	if err != nil {
		return err
	}
	o.ApplyTotals(t)
	return nil
}

type OrderItem struct {
	ID                  uint               `gorm:"primaryKey" json:"id"`
	OrderID             uint               `gorm:"not null;index" json:"order_id"`
	MenuItemID          *uint              `gorm:"index" json:"menu_item_id"`
	MenuItem            *MenuItem          `gorm:"foreignKey:MenuItemID;constraint:OnDelete:SET NULL" json:"menu_item,omitempty"`
	ItemName            string             `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity            int                `gorm:"not null" json:"quantity"`
	UnitPrice           float64            `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Modifiers           []pricing.Modifier `gorm:"serializer:json" json:"modifiers"`
	SpecialInstructions *string            `gorm:"type:text" json:"special_instructions"`
	TotalPrice          float64            `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status              orderflow.Status   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	SentToKitchenAt     *time.Time         `json:"sent_to_kitchen_at"`
	PreparedAt          *time.Time         `json:"prepared_at"`
	ServedAt            *time.Time         `json:"served_at"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}
