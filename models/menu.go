package models

import (
	"time"

	"github.com/yeremiapane/fuji-pos/pricing"
)

type MenuCategory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	CategoryType string    `gorm:"type:varchar(50)" json:"category_type"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	Icon         *string   `gorm:"type:varchar(50)" json:"icon,omitempty"`
	Color        *string   `gorm:"type:varchar(20)" json:"color,omitempty"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CategoryID      uint           `gorm:"not null;index" json:"category_id"`
	Category        *MenuCategory  `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	SKU             *string        `gorm:"type:varchar(50)" json:"sku,omitempty"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Description     string         `gorm:"type:text" json:"description"`
	BasePrice       float64        `gorm:"type:decimal(10,2);not null" json:"base_price"`
	GlassPrice      *float64       `gorm:"type:decimal(10,2)" json:"glass_price,omitempty"`
	BottlePrice     *float64       `gorm:"type:decimal(10,2)" json:"bottle_price,omitempty"`
	LunchPrice      *float64       `gorm:"type:decimal(10,2)" json:"lunch_price,omitempty"`
	DinnerPrice     *float64       `gorm:"type:decimal(10,2)" json:"dinner_price,omitempty"`
	Cost            *float64       `gorm:"type:decimal(10,2)" json:"cost,omitempty"`
	PreparationTime int            `gorm:"not null;default:15" json:"preparation_time"`
	Calories        *int           `json:"calories,omitempty"`
	SpicyLevel      *int           `json:"spicy_level,omitempty"`
	IsRaw           bool           `gorm:"not null;default:false" json:"is_raw"`
	IsVegetarian    bool           `gorm:"not null;default:false" json:"is_vegetarian"`
	IsGlutenFree    bool           `gorm:"not null;default:false" json:"is_gluten_free"`
	Allergens       []string       `gorm:"serializer:json" json:"allergens"`
	DisplayOrder    int            `gorm:"not null;default:0" json:"display_order"`
	IsAvailable     bool           `gorm:"not null;default:true" json:"is_available"`
	IsFeatured      bool           `gorm:"not null;default:false" json:"is_featured"`
	ItemModifiers   []ItemModifier `gorm:"foreignKey:MenuItemID" json:"modifiers,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Prices exposes the price columns to the pricing package.
func (m MenuItem) Prices() pricing.Prices {
	return pricing.Prices{
		Base:   m.BasePrice,
		Glass:  m.GlassPrice,
		Bottle: m.BottlePrice,
		Lunch:  m.LunchPrice,
		Dinner: m.DinnerPrice,
	}
}

type Modifier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null" json:"name"`
	Price         float64   `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	ModifierGroup string    `gorm:"type:varchar(50);not null;default:'other'" json:"modifier_group"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ItemModifier links a modifier to a menu item.
type ItemModifier struct {
	MenuItemID uint     `gorm:"primaryKey" json:"menu_item_id"`
	ModifierID uint     `gorm:"primaryKey" json:"modifier_id"`
	Modifier   Modifier `gorm:"foreignKey:ModifierID" json:"modifier"`
	IsRequired bool     `gorm:"not null;default:false" json:"is_required"`
	IsDefault  bool     `gorm:"not null;default:false" json:"is_default"`
}
