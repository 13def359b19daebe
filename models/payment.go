package models

import "time"

const (
	PaymentMethodCash     = "cash"
	PaymentMethodCredit   = "credit"
	PaymentMethodDebit    = "debit"
	PaymentMethodGiftCard = "gift_card"
	PaymentMethodQRIS     = "qris"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment is a settlement attempt against an order.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OrderID         uint       `gorm:"not null;index" json:"order_id"`
	PaymentMethod   string     `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount          float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	TipAmount       float64    `gorm:"type:decimal(10,2);not null;default:0" json:"tip_amount"`
	CashReceived    float64    `gorm:"type:decimal(10,2);not null;default:0" json:"cash_received"`
	ChangeGiven     float64    `gorm:"type:decimal(10,2);not null;default:0" json:"change_given"`
	CardLastFour    *string    `gorm:"type:varchar(4)" json:"card_last_four"`
	IntentReference string     `gorm:"type:varchar(64);uniqueIndex" json:"intent_reference"`
	TransactionID   *string    `gorm:"type:varchar(100)" json:"transaction_id"`
	QRString        *string    `gorm:"type:text" json:"qr_string,omitempty"`
	ProcessedBy     *uint      `json:"processed_by"`
	ProcessedAt     *time.Time `json:"processed_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
	RefundReason    *string    `gorm:"type:varchar(255)" json:"refund_reason"`

	// service charge rate the order had before a card intent raised it
	PriorServiceChargeRate *float64 `gorm:"type:decimal(6,4)" json:"-"`

	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
