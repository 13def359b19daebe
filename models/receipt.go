package models

import "time"

const (
	PrintMethodBrowser = "browser"
	PrintMethodThermal = "thermal"
	PrintMethodPDF     = "pdf"
)

// ReceiptPrint records each time a receipt was printed or downloaded.
type ReceiptPrint struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	UserID      *uint     `gorm:"index" json:"user_id"`
	PrintMethod string    `gorm:"type:varchar(20);not null" json:"print_method"`
	CreatedAt   time.Time `json:"created_at"`
}
