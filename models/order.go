package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order types
const (
	OrderTypeNFC    = "nfc"    // placed in person by stall staff
	OrderTypeOnline = "online" // placed remotely, optionally delivered
)

// Payment methods
const (
	PaymentMethodNFC        = "NFC" // card-on-file balance
	PaymentMethodCOD        = "COD" // cash on delivery
	PaymentMethodSSLCommerz = "SSLCOMMERZ"
)

// Order statuses
const (
	OrderStatusPending        = "PENDING"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusPreparing      = "PREPARING"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

// Payment statuses
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

// Gateway payment statuses
const (
	GatewayStatusPending   = "PENDING"
	GatewayStatusValidated = "VALIDATED"
	GatewayStatusFailed    = "FAILED"
	GatewayStatusCancelled = "CANCELLED"
)

var validOrderStatuses = map[string]bool{
	OrderStatusPending:        true,
	OrderStatusConfirmed:      true,
	OrderStatusPreparing:      true,
	OrderStatusReady:          true,
	OrderStatusOutForDelivery: true,
	OrderStatusDelivered:      true,
	OrderStatusCancelled:      true,
}

// IsValidOrderStatus reports whether s is one of the enumerated order statuses
func IsValidOrderStatus(s string) bool {
	return validOrderStatuses[s]
}

// IsTerminalOrderStatus reports whether no further transitions may leave s
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order is created once, atomically with its ledger and stock mutations, and
// mutated in place thereafter. Orders are never deleted.
type Order struct {
	ID                    uint             `gorm:"primaryKey" json:"id"`
	CustomerID            uint             `gorm:"not null;index" json:"customer_id"`
	Customer              Customer         `gorm:"foreignKey:CustomerID" json:"customer"`
	StallID               uint             `gorm:"not null;index" json:"stall_id"`
	Stall                 Stall            `gorm:"foreignKey:StallID" json:"-"`
	Items                 []OrderItem      `gorm:"foreignKey:OrderID" json:"order_items"`
	TotalAmount           decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	VAT                   decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"vat"`
	OrderServedByID       *uint            `gorm:"index" json:"order_served_by,omitempty"` // staff who handled an NFC order
	OrderServedBy         *User            `gorm:"foreignKey:OrderServedByID" json:"order_served_by_user,omitempty"`
	OrderType             string           `gorm:"not null" json:"order_type"`
	OrderStatus           string           `gorm:"not null;default:'PENDING'" json:"order_status"`
	PaymentMethod         string           `gorm:"not null" json:"payment_method"`
	PaymentStatus         string           `gorm:"not null;default:'PENDING'" json:"payment_status"`
	GatewayPayment        *GatewayPayment  `gorm:"foreignKey:OrderID" json:"ssl_commerz_payment,omitempty"`
	DeliveryStreet        *string          `json:"delivery_street,omitempty"`
	DeliveryArea          *string          `json:"delivery_area,omitempty"`
	DeliveryCity          *string          `json:"delivery_city,omitempty"`
	DeliveryPostalCode    *string          `json:"delivery_postal_code,omitempty"`
	DeliveryInstructions  *string          `json:"delivery_instructions,omitempty"`
	DeliveryFee           decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0" json:"delivery_fee"`
	EstimatedDeliveryTime *time.Time       `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time       `json:"actual_delivery_time,omitempty"`
	CancelReason          *string          `json:"cancel_reason,omitempty"`
	OrderDate             time.Time        `gorm:"not null;index" json:"order_date"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a snapshot copy of a menu entry at order time, not a live
// menu reference
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	OrderID   uint            `gorm:"not null;index" json:"-"`
	FoodName  string          `gorm:"not null" json:"food_name"`
	FoodPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"food_price"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// GatewayPayment tracks an SSLCommerz payment session. TransactionID is the
// sole correlation key for asynchronous gateway callbacks; it is unique when
// set and absent for non-gateway orders.
type GatewayPayment struct {
	ID                uint             `gorm:"primaryKey" json:"-"`
	OrderID           uint             `gorm:"not null;uniqueIndex" json:"-"`
	TransactionID     *string          `gorm:"uniqueIndex" json:"transaction_id,omitempty"`
	Status            string           `gorm:"not null;default:'PENDING'" json:"status"`
	Amount            *decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount,omitempty"`
	CardType          *string          `json:"card_type,omitempty"`
	BankTransactionID *string          `json:"bank_transaction_id,omitempty"`
	CardIssuer        *string          `json:"card_issuer,omitempty"`
	CardBrand         *string          `json:"card_brand,omitempty"`
	Currency          *string          `json:"currency,omitempty"`
	ValidatedOn       *time.Time       `json:"validated_on,omitempty"`
	CreatedAt         time.Time        `json:"-"`
	UpdatedAt         time.Time        `json:"-"`
}

// TableName specifies the table name for the GatewayPayment model
func (GatewayPayment) TableName() string {
	return "gateway_payments"
}

// AllModels lists every model for AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Customer{},
		&Address{},
		&RechargeEntry{},
		&OrderHistoryEntry{},
		&Stall{},
		&MenuItem{},
		&StallCashier{},
		&Order{},
		&OrderItem{},
		&GatewayPayment{},
	}
}
