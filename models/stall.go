package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stall is a single food vendor unit with its own menu and staff
type Stall struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	MotherStall        string          `gorm:"not null" json:"mother_stall"`
	StallAdminID       *uint           `gorm:"index" json:"stall_admin_id,omitempty"`
	StallAdmin         *User           `gorm:"foreignKey:StallAdminID" json:"stall_admin,omitempty"`
	Menu               []MenuItem      `gorm:"foreignKey:StallID" json:"menu,omitempty"`
	Cashiers           []StallCashier  `gorm:"foreignKey:StallID" json:"cashiers,omitempty"`
	MinimumOrderAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"minimum_order_amount"` // floor for online orders only
	ImageKey           *string         `json:"image_key,omitempty"`
	ThumbnailKey       *string         `json:"thumbnail_key,omitempty"`
	BannerKey          *string         `json:"banner_key,omitempty"`
	Street             string          `json:"street,omitempty"`
	Area               string          `json:"area,omitempty"`
	City               string          `json:"city,omitempty"`
	PostalCode         string          `json:"postal_code,omitempty"`
	DeliveryTimeMin    int             `json:"delivery_time_min,omitempty"`
	DeliveryTimeMax    int             `json:"delivery_time_max,omitempty"`
	Version            uint            `gorm:"not null;default:0" json:"-"` // optimistic concurrency on menu mutations
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Stall model
func (Stall) TableName() string {
	return "stalls"
}

// MenuItem is a keyed menu entry owned by a stall. CurrentStock must never
// go negative; order creation decrements it with a conditional update.
type MenuItem struct {
	ID                     uint            `gorm:"primaryKey" json:"id"`
	StallID                uint            `gorm:"not null;index" json:"stall_id"`
	FoodName               string          `gorm:"not null" json:"food_name"`
	FoodPrice              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"food_price"`
	IsAvailable            bool            `gorm:"not null;default:true" json:"is_available"`
	CurrentStock           int             `gorm:"not null;default:0;check:current_stock >= 0" json:"current_stock"`
	Description            string          `json:"description,omitempty"`
	ImageKey               *string         `json:"image_key,omitempty"`
	ThumbnailKey           *string         `json:"thumbnail_key,omitempty"`
	IsAvailableForDelivery bool            `gorm:"not null;default:true" json:"is_available_for_delivery"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}

// StallCashier links a cashier staff account to its stall
type StallCashier struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	StallID uint `gorm:"not null;index" json:"stall_id"`
	UserID  uint `gorm:"not null;uniqueIndex" json:"user_id"`
	User    User `gorm:"foreignKey:UserID" json:"user"`
}

// TableName specifies the table name for the StallCashier model
func (StallCashier) TableName() string {
	return "stall_cashiers"
}
