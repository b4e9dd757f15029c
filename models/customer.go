package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer types distinguish card-present (NFC) accounts created by staff
// from self-registered online accounts.
const (
	CustomerTypeNFC    = "nfc"
	CustomerTypeOnline = "online"
)

// Customer holds a spendable balance and the histories that audit it.
// Balance is only mutated by recharges and order debits.
type Customer struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"not null" json:"name"`
	Phone           string          `gorm:"uniqueIndex;not null" json:"phone"`
	Email           *string         `gorm:"uniqueIndex" json:"email,omitempty"`
	Password        string          `json:"-"`
	CardUID         *string         `gorm:"uniqueIndex" json:"card_uid,omitempty"`
	Balance         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	CustomerType    string          `gorm:"not null" json:"customer_type"` // "nfc" or "online"
	CreatedByID     *uint           `gorm:"index" json:"created_by_id,omitempty"`
	CreatedBy       *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	IsPhoneVerified bool            `gorm:"not null;default:false" json:"is_phone_verified"`
	OTP             *string         `json:"-"`
	OTPExpires      *time.Time      `json:"-"`
	Addresses       []Address       `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"`
	RechargeHistory []RechargeEntry `gorm:"foreignKey:CustomerID" json:"recharge_history,omitempty"`
	OrderHistory    []OrderHistoryEntry `gorm:"foreignKey:CustomerID" json:"order_history,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// Address is a delivery address owned by an online customer
type Address struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	CustomerID           uint   `gorm:"not null;index" json:"-"`
	Label                string `gorm:"not null" json:"label"`
	Street               string `gorm:"not null" json:"street"`
	Area                 string `gorm:"not null" json:"area"`
	City                 string `gorm:"not null" json:"city"`
	PostalCode           string `json:"postal_code,omitempty"`
	DeliveryInstructions string `json:"delivery_instructions,omitempty"`
	IsDefault            bool   `gorm:"not null;default:false" json:"is_default"`
}

// TableName specifies the table name for the Address model
func (Address) TableName() string {
	return "addresses"
}

// ErrMultipleDefaultAddresses rejects address sets with more than one default.
var ErrMultipleDefaultAddresses = errors.New("only one address can be set as default")

// NormalizeAddresses enforces the single-default invariant on an address set:
// zero defaults promotes the first address, more than one is rejected.
// Every address mutation path must run its result through this.
func NormalizeAddresses(addresses []Address) ([]Address, error) {
	defaults := 0
	for _, addr := range addresses {
		if addr.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return nil, ErrMultipleDefaultAddresses
	}
	if defaults == 0 && len(addresses) > 0 {
		addresses[0].IsDefault = true
	}
	return addresses, nil
}

// RechargeEntry is an append-only record of a balance top-up
type RechargeEntry struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	CustomerID            uint            `gorm:"not null;index" json:"-"`
	RechargerID           uint            `gorm:"not null" json:"recharger_id"`
	RechargerName         string          `json:"recharger_name"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceBeforeRecharge decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_before_recharge"`
	CreatedAt             time.Time       `json:"created_at"`
}

// TableName specifies the table name for the RechargeEntry model
func (RechargeEntry) TableName() string {
	return "recharge_entries"
}

// OrderHistoryEntry is a compact append-only record of an order debit
type OrderHistoryEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CustomerID    uint            `gorm:"not null;index" json:"-"`
	OrderID       uint            `gorm:"not null" json:"order_id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	OrderServedBy *uint           `json:"order_served_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderHistoryEntry model
func (OrderHistoryEntry) TableName() string {
	return "order_history_entries"
}
