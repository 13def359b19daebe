package models

import "time"

// AuditLog records a permission decision.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	Role       string    `gorm:"type:varchar(20)" json:"role"`
	Permission string    `gorm:"type:varchar(50);index" json:"permission"`
	Resource   string    `gorm:"type:varchar(255)" json:"resource"`
	Action     string    `gorm:"type:varchar(10)" json:"action"`
	IPAddress  string    `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent  string    `gorm:"type:varchar(255)" json:"user_agent"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&MenuCategory{},
		&MenuItem{},
		&Modifier{},
		&ItemModifier{},
		&RestaurantTable{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&AuditLog{},
		&ReceiptPrint{},
	}
}
