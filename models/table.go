package models

import "time"

type RestaurantTable struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TableNumber    int        `gorm:"uniqueIndex;not null" json:"table_number"`
	Section        string     `gorm:"type:varchar(50)" json:"section"`
	Seats          int        `gorm:"not null;default:4" json:"seats"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	IsOccupied     bool       `gorm:"not null;default:false" json:"is_occupied"`
	CurrentOrderID *uint      `gorm:"index" json:"current_order_id"`
	OccupiedAt     *time.Time `json:"occupied_at"`
	ServerID       *uint      `json:"server_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
