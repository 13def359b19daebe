package models

import (
	"time"

	"github.com/yeremiapane/fuji-pos/permissions"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"`
	Role       string    `gorm:"type:varchar(20);not null;default:'viewer'" json:"role"`
	PinCode    *string   `gorm:"type:varchar(10)" json:"-"`
	HourlyRate *float64  `gorm:"type:decimal(10,2)" json:"hourly_rate,omitempty"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PermissionRole parses the stored role; unknown values hold no permissions.
func (u User) PermissionRole() permissions.Role {
	r, _ := permissions.ParseRole(u.Role)
	return r
}
