package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
)

// NotFoundError identifies a referenced entity that does not exist
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// BusinessError identifies a rejected operation with the specific reason
// (insufficient stock or funds, below minimum order, invalid status)
type BusinessError struct {
	Code    string
	Message string
}

func (e *BusinessError) Error() string { return e.Message }

// OrderItemInput is one requested line of an order
type OrderItemInput struct {
	FoodName  string
	FoodPrice decimal.Decimal
	Quantity  int
}

// CreateOrderInput carries a validated order request into the engine
type CreateOrderInput struct {
	CustomerID           uint
	StallID              uint
	Items                []OrderItemInput
	TotalAmount          decimal.Decimal
	VAT                  decimal.Decimal
	OrderType            string
	OrderServedByID      *uint
	PaymentMethod        string
	DeliveryStreet       string
	DeliveryArea         string
	DeliveryCity         string
	DeliveryPostalCode   string
	DeliveryInstructions string
	DeliveryFee          decimal.Decimal
}

// CreateOrderResult is the committed order plus the data the caller needs
// for its post-commit notification
type CreateOrderResult struct {
	Order    *models.Order
	Customer *models.Customer
}

// CreateOrder validates an order against live inventory and customer funds,
// then applies the balance debit, the stock decrements, the order insert and
// the customer order-history append as one transaction. Validation is
// fail-fast and whole-order: the first insufficient item rejects everything
// and nothing is applied.
func CreateOrder(db *gorm.DB, input CreateOrderInput) (*CreateOrderResult, error) {
	var customer models.Customer
	if err := db.First(&customer, input.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Code: "CUSTOMER_NOT_FOUND", Message: "Customer not found"}
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	var stall models.Stall
	if err := db.Preload("Menu").First(&stall, input.StallID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Code: "STALL_NOT_FOUND", Message: "Stall not found"}
		}
		return nil, fmt.Errorf("failed to load stall: %w", err)
	}

	// Minimum order amount applies to online (delivery) orders only
	if input.OrderType == models.OrderTypeOnline && input.TotalAmount.LessThan(stall.MinimumOrderAmount) {
		return nil, &BusinessError{
			Code:    "BELOW_MINIMUM_ORDER",
			Message: fmt.Sprintf("Minimum order amount is %s", stall.MinimumOrderAmount.StringFixed(2)),
		}
	}

	menuByName := make(map[string]*models.MenuItem, len(stall.Menu))
	for i := range stall.Menu {
		menuByName[stall.Menu[i].FoodName] = &stall.Menu[i]
	}

	// First insufficient item short-circuits the whole order
	for _, item := range input.Items {
		menuItem, ok := menuByName[item.FoodName]
		if !ok || menuItem.CurrentStock < item.Quantity {
			return nil, &BusinessError{
				Code:    "INSUFFICIENT_STOCK",
				Message: fmt.Sprintf("Insufficient stock of %s", item.FoodName),
			}
		}
	}

	finalAmount := input.TotalAmount
	if input.OrderType == models.OrderTypeOnline {
		finalAmount = finalAmount.Add(input.DeliveryFee)
	}

	if input.PaymentMethod == models.PaymentMethodNFC && customer.Balance.LessThan(finalAmount) {
		return nil, &BusinessError{
			Code:    "INSUFFICIENT_FUNDS",
			Message: "Insufficient funds in NFC card",
		}
	}

	order := &models.Order{
		CustomerID:      customer.ID,
		StallID:         stall.ID,
		TotalAmount:     finalAmount,
		VAT:             input.VAT,
		OrderServedByID: input.OrderServedByID,
		OrderType:       input.OrderType,
		PaymentMethod:   input.PaymentMethod,
		OrderStatus:     models.OrderStatusConfirmed,
		PaymentStatus:   models.PaymentStatusPending,
		DeliveryFee:     input.DeliveryFee,
		OrderDate:       time.Now(),
	}
	if input.PaymentMethod == models.PaymentMethodCOD {
		order.OrderStatus = models.OrderStatusPending
	}
	if input.PaymentMethod == models.PaymentMethodNFC {
		order.PaymentStatus = models.PaymentStatusPaid
	}
	if input.PaymentMethod == models.PaymentMethodSSLCommerz {
		order.GatewayPayment = &models.GatewayPayment{Status: models.GatewayStatusPending}
	}
	if input.OrderType == models.OrderTypeOnline {
		order.DeliveryStreet = &input.DeliveryStreet
		order.DeliveryArea = &input.DeliveryArea
		order.DeliveryCity = &input.DeliveryCity
		if input.DeliveryPostalCode != "" {
			order.DeliveryPostalCode = &input.DeliveryPostalCode
		}
		if input.DeliveryInstructions != "" {
			order.DeliveryInstructions = &input.DeliveryInstructions
		}
	}
	for _, item := range input.Items {
		order.Items = append(order.Items, models.OrderItem{
			FoodName:  item.FoodName,
			FoodPrice: item.FoodPrice,
			Quantity:  item.Quantity,
		})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// The debit and the decrements are conditional single-statement
		// updates, so concurrent orders racing the same balance or menu
		// item serialize at the storage layer and the invariants
		// balance >= 0 and stock >= 0 hold even across process replicas.
		if input.PaymentMethod == models.PaymentMethodNFC {
			res := tx.Model(&models.Customer{}).
				Where("id = ? AND balance >= ?", customer.ID, finalAmount).
				UpdateColumn("balance", gorm.Expr("balance - ?", finalAmount))
			if res.Error != nil {
				return fmt.Errorf("failed to debit balance: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return &BusinessError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient funds in NFC card"}
			}
		}

		for _, item := range input.Items {
			menuItem := menuByName[item.FoodName]
			res := tx.Model(&models.MenuItem{}).
				Where("id = ? AND current_stock >= ?", menuItem.ID, item.Quantity).
				UpdateColumn("current_stock", gorm.Expr("current_stock - ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to decrement stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return &BusinessError{
					Code:    "INSUFFICIENT_STOCK",
					Message: fmt.Sprintf("Insufficient stock of %s", item.FoodName),
				}
			}
		}

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		history := models.OrderHistoryEntry{
			CustomerID:    customer.ID,
			OrderID:       order.ID,
			TotalAmount:   finalAmount,
			OrderServedBy: input.OrderServedByID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to append order history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload the customer so the caller sees the post-debit balance
	if err := db.First(&customer, customer.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload customer: %w", err)
	}

	return &CreateOrderResult{Order: order, Customer: &customer}, nil
}

// AttachTransactionID stores the gateway session's transaction id on the
// order's payment record. It runs as a follow-up step once session
// initiation succeeds.
func AttachTransactionID(db *gorm.DB, orderID uint, tranID string) error {
	res := db.Model(&models.GatewayPayment{}).
		Where("order_id = ?", orderID).
		Update("transaction_id", tranID)
	if res.Error != nil {
		return fmt.Errorf("failed to store transaction id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no gateway payment record for order %d", orderID)
	}
	return nil
}

// UpdateOrderStatus validates and applies one status transition. Moving a
// cash-on-delivery order to DELIVERED flips its payment status to PAID.
func UpdateOrderStatus(db *gorm.DB, orderID uint, status string) (*models.Order, error) {
	if !models.IsValidOrderStatus(status) {
		return nil, &BusinessError{Code: "INVALID_ORDER_STATUS", Message: "Invalid order status"}
	}

	var order models.Order
	if err := db.Preload("Customer").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Code: "ORDER_NOT_FOUND", Message: "Order not found"}
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if models.IsTerminalOrderStatus(order.OrderStatus) && order.OrderStatus != status {
		return nil, &BusinessError{
			Code:    "INVALID_STATUS_TRANSITION",
			Message: fmt.Sprintf("Order is already %s", order.OrderStatus),
		}
	}

	order.OrderStatus = status
	if status == models.OrderStatusDelivered {
		now := time.Now()
		order.ActualDeliveryTime = &now
		if order.PaymentMethod == models.PaymentMethodCOD {
			// Cash collected on hand-off
			order.PaymentStatus = models.PaymentStatusPaid
		}
	}

	if err := db.Save(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return &order, nil
}

// FindOrderByTransactionID resolves a gateway callback to its order. The
// caller is an external server, so the transaction id is the only usable key.
func FindOrderByTransactionID(db *gorm.DB, tranID string) (*models.Order, error) {
	if tranID == "" {
		return nil, &NotFoundError{Code: "ORDER_NOT_FOUND", Message: "Order not found"}
	}

	var payment models.GatewayPayment
	if err := db.Where("transaction_id = ?", tranID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Code: "ORDER_NOT_FOUND", Message: "Order not found"}
		}
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}

	var order models.Order
	if err := db.Preload("Customer").Preload("GatewayPayment").First(&order, payment.OrderID).Error; err != nil {
		return nil, fmt.Errorf("failed to load order for transaction: %w", err)
	}
	return &order, nil
}

// ApplyGatewaySuccess finalizes a validated gateway payment. Re-applying the
// same terminal state is safe: duplicate gateway deliveries land in the same
// place without error.
func ApplyGatewaySuccess(db *gorm.DB, tranID string, validated *ValidatedPayment) (*models.Order, error) {
	order, err := FindOrderByTransactionID(db, tranID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	amount, amountErr := decimal.NewFromString(validated.Amount)

	order.PaymentStatus = models.PaymentStatusPaid
	order.OrderStatus = models.OrderStatusConfirmed
	order.GatewayPayment.Status = models.GatewayStatusValidated
	order.GatewayPayment.ValidatedOn = &now
	if amountErr == nil {
		order.GatewayPayment.Amount = &amount
	}
	setIfPresent(&order.GatewayPayment.CardType, validated.CardType)
	setIfPresent(&order.GatewayPayment.BankTransactionID, validated.BankTransactionID)
	setIfPresent(&order.GatewayPayment.CardIssuer, validated.CardIssuer)
	setIfPresent(&order.GatewayPayment.CardBrand, validated.CardBrand)
	setIfPresent(&order.GatewayPayment.Currency, validated.Currency)

	// Payment record and order row settle together or not at all
	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order.GatewayPayment).Error; err != nil {
			return fmt.Errorf("failed to save gateway payment: %w", err)
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"payment_status": order.PaymentStatus,
				"order_status":   order.OrderStatus,
			}).Error; err != nil {
			return fmt.Errorf("failed to finalize order payment: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return order, nil
}

// GatewayCallback carries the raw fields of a fail or cancel callback
type GatewayCallback struct {
	TransactionID     string
	Amount            string
	CardType          string
	BankTransactionID string
}

// ApplyGatewayFailure records a failed or cancelled gateway payment. Like the
// success path it tolerates duplicate deliveries.
func ApplyGatewayFailure(db *gorm.DB, callback GatewayCallback, cancelled bool) (*models.Order, error) {
	order, err := FindOrderByTransactionID(db, callback.TransactionID)
	if err != nil {
		return nil, err
	}

	order.PaymentStatus = models.PaymentStatusFailed
	if cancelled {
		order.GatewayPayment.Status = models.GatewayStatusCancelled
	} else {
		order.GatewayPayment.Status = models.GatewayStatusFailed
	}
	if amount, err := decimal.NewFromString(callback.Amount); err == nil {
		order.GatewayPayment.Amount = &amount
	}
	setIfPresent(&order.GatewayPayment.CardType, callback.CardType)
	setIfPresent(&order.GatewayPayment.BankTransactionID, callback.BankTransactionID)

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order.GatewayPayment).Error; err != nil {
			return fmt.Errorf("failed to save gateway payment: %w", err)
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("payment_status", order.PaymentStatus).Error; err != nil {
			return fmt.Errorf("failed to record payment failure: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return order, nil
}

func setIfPresent(dst **string, value string) {
	if value != "" {
		v := value
		*dst = &v
	}
}
