package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/utils"
)

// OrderItemRequest is one line of an order request
type OrderItemRequest struct {
	FoodName  string          `json:"foodName" binding:"required"`
	FoodPrice decimal.Decimal `json:"foodPrice" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
}

// CreateNFCOrderRequest represents a counter order placed by stall staff
// against a scanned card
type CreateNFCOrderRequest struct {
	CardUID     string             `json:"cardUid" binding:"required"`
	Items       []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount decimal.Decimal    `json:"totalAmount" binding:"required"`
	VAT         decimal.Decimal    `json:"vat"`
}

// CreateOnlineOrderRequest represents an order placed by an online customer
type CreateOnlineOrderRequest struct {
	StallID              uint               `json:"stallId" binding:"required"`
	Items                []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	TotalAmount          decimal.Decimal    `json:"totalAmount" binding:"required"`
	VAT                  decimal.Decimal    `json:"vat"`
	DeliveryFee          decimal.Decimal    `json:"deliveryFee"`
	PaymentMethod        string             `json:"paymentMethod" binding:"required"`
	DeliveryStreet       string             `json:"deliveryStreet" binding:"required"`
	DeliveryArea         string             `json:"deliveryArea" binding:"required"`
	DeliveryCity         string             `json:"deliveryCity" binding:"required"`
	DeliveryPostalCode   string             `json:"deliveryPostalCode"`
	DeliveryInstructions string             `json:"deliveryInstructions"`
}

// UpdateOrderStatusRequest carries a status transition
type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus" binding:"required"`
}

func toItemInputs(items []OrderItemRequest) []services.OrderItemInput {
	inputs := make([]services.OrderItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, services.OrderItemInput{
			FoodName:  item.FoodName,
			FoodPrice: item.FoodPrice,
			Quantity:  item.Quantity,
		})
	}
	return inputs
}

// CreateNFCOrder handles POST /api/orders/nfc - a counter sale debited
// from the customer's card balance, placed by stall staff
func CreateNFCOrder(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}
	if staff.StallID == nil {
		respondError(c, http.StatusForbidden, "NO_STALL", "Your account is not linked to a stall")
		return
	}

	var req CreateNFCOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.Where("card_uid = ?", req.CardUID).First(&customer).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "No customer found for this card")
		return
	}

	result, err := services.CreateOrder(db, services.CreateOrderInput{
		CustomerID:      customer.ID,
		StallID:         *staff.StallID,
		Items:           toItemInputs(req.Items),
		TotalAmount:     req.TotalAmount,
		VAT:             req.VAT,
		OrderType:       models.OrderTypeNFC,
		OrderServedByID: &staff.UserID,
		PaymentMethod:   models.PaymentMethodNFC,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := services.GetSMSService().Send(result.Customer.Phone,
		"Your order of "+result.Order.TotalAmount.StringFixed(2)+" at "+staff.MotherStall+
			" has been placed. Items: "+orderItemsSummary(result.Order.Items)+
			". Remaining balance: "+result.Customer.Balance.StringFixed(2)); err != nil {
		log.Printf("Failed to send order SMS to %s: %v", result.Customer.Phone, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"order":   result.Order,
			"balance": result.Customer.Balance,
		},
	})
}

// CreateOnlineOrder handles POST /api/orders/online. COD orders confirm
// over SMS; gateway orders return a hosted payment URL and stay PENDING
// until the gateway calls back.
func CreateOnlineOrder(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req CreateOnlineOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	if req.PaymentMethod != models.PaymentMethodCOD && req.PaymentMethod != models.PaymentMethodSSLCommerz {
		respondError(c, http.StatusBadRequest, "INVALID_PAYMENT_METHOD", "Payment method must be COD or SSLCOMMERZ")
		return
	}

	db := config.GetDB()
	result, err := services.CreateOrder(db, services.CreateOrderInput{
		CustomerID:           customerID,
		StallID:              req.StallID,
		Items:                toItemInputs(req.Items),
		TotalAmount:          req.TotalAmount,
		VAT:                  req.VAT,
		OrderType:            models.OrderTypeOnline,
		PaymentMethod:        req.PaymentMethod,
		DeliveryStreet:       req.DeliveryStreet,
		DeliveryArea:         req.DeliveryArea,
		DeliveryCity:         req.DeliveryCity,
		DeliveryPostalCode:   req.DeliveryPostalCode,
		DeliveryInstructions: req.DeliveryInstructions,
		DeliveryFee:          req.DeliveryFee,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if req.PaymentMethod == models.PaymentMethodSSLCommerz {
		cfg := config.GetConfig()
		session, err := services.GetPaymentService().Initiate(result.Order, result.Customer, services.CallbackURLs{
			Success: cfg.BaseURL + "/api/payment/success",
			Fail:    cfg.BaseURL + "/api/payment/fail",
			Cancel:  cfg.BaseURL + "/api/payment/cancel",
		})
		if err != nil {
			log.Printf("Failed to initiate gateway session for order %d: %v", result.Order.ID, err)
			respondError(c, http.StatusBadGateway, "GATEWAY_ERROR", "Failed to initiate payment session")
			return
		}
		if err := services.AttachTransactionID(db, result.Order.ID, session.TransactionID); err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to record payment session")
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data": gin.H{
				"order":      result.Order,
				"gatewayUrl": session.RedirectURL,
			},
		})
		return
	}

	if err := services.GetSMSService().Send(result.Customer.Phone,
		"Your order #"+strconv.FormatUint(uint64(result.Order.ID), 10)+
			" has been placed. Items: "+orderItemsSummary(result.Order.Items)+
			". Payable on delivery: "+result.Order.TotalAmount.StringFixed(2)); err != nil {
		log.Printf("Failed to send order SMS to %s: %v", result.Customer.Phone, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"order": result.Order,
		},
	})
}

// GetOrdersByStall handles GET /api/orders/stall/:stallId - staff order
// feed, newest first, optionally restricted to one day (date=YYYY-MM-DD) or
// a range (startDate/endDate, both inclusive, either side open-ended)
func GetOrdersByStall(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	stallID, err := strconv.ParseUint(c.Param("stallId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "stallId must be a number")
		return
	}

	if staff.Role.IsStallStaff() && (staff.StallID == nil || *staff.StallID != uint(stallID)) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You may only view orders for your own stall")
		return
	}

	db := config.GetDB()
	page := utils.ParsePagination(c)

	query := db.Model(&models.Order{}).Where("stall_id = ?", stallID)
	if date := c.Query("date"); date != "" {
		day, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "date must be formatted YYYY-MM-DD")
			return
		}
		query = query.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}
	if start := c.Query("startDate"); start != "" {
		from, err := time.ParseInLocation("2006-01-02", start, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "startDate must be formatted YYYY-MM-DD")
			return
		}
		query = query.Where("created_at >= ?", from)
	}
	if end := c.Query("endDate"); end != "" {
		to, err := time.ParseInLocation("2006-01-02", end, time.Local)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "endDate must be formatted YYYY-MM-DD")
			return
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}
	if status := c.Query("orderStatus"); status != "" {
		if !models.IsValidOrderStatus(status) {
			respondError(c, http.StatusBadRequest, "INVALID_ORDER_STATUS", "Invalid order status")
			return
		}
		query = query.Where("order_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count orders")
		return
	}

	var orders []models.Order
	if err := query.
		Preload("Customer").Preload("Items").Preload("GatewayPayment").
		Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&orders).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"orders":     orders,
			"pagination": page.Meta(total),
		},
	})
}

// GetOrder handles GET /api/orders/:id
func GetOrder(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.Preload("Customer").Preload("Items").Preload("GatewayPayment").
		First(&order, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	if staff.Role.IsStallStaff() && (staff.StallID == nil || *staff.StallID != order.StallID) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You may only view orders for your own stall")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PATCH /api/orders/:id/status. Delivering a COD
// order settles its payment; status changes notify the customer over SMS.
func UpdateOrderStatus(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Order id must be a number")
		return
	}

	db := config.GetDB()
	var existing models.Order
	if err := db.First(&existing, orderID).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}
	if staff.Role.IsStallStaff() && (staff.StallID == nil || *staff.StallID != existing.StallID) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You may only manage orders for your own stall")
		return
	}

	order, err := services.UpdateOrderStatus(db, uint(orderID), req.OrderStatus)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := services.GetSMSService().Send(order.Customer.Phone, orderStatusMessage(order)); err != nil {
		log.Printf("Failed to send status SMS to %s: %v", order.Customer.Phone, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// orderStatusMessage produces the notification text for a status change.
// Every status notifies; a handful get friendlier wording.
func orderStatusMessage(order *models.Order) string {
	id := strconv.FormatUint(uint64(order.ID), 10)
	switch order.OrderStatus {
	case models.OrderStatusConfirmed:
		return "Your order #" + id + " has been confirmed."
	case models.OrderStatusOutForDelivery:
		return "Your order #" + id + " is out for delivery."
	case models.OrderStatusDelivered:
		return "Your order #" + id + " has been delivered. Thank you!"
	case models.OrderStatusCancelled:
		return "Your order #" + id + " has been cancelled."
	default:
		return "Your order #" + id + " status has been updated to " + order.OrderStatus + "."
	}
}

func orderItemsSummary(items []models.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, strconv.Itoa(item.Quantity)+" x "+item.FoodName)
	}
	return strings.Join(parts, ", ")
}

// PaymentSuccess handles the gateway's server-side success callback. The
// callback is untrusted on its own: the val_id is re-validated against the
// gateway before the order is marked paid. The browser is always redirected
// to the storefront.
func PaymentSuccess(c *gin.Context) {
	cfg := config.GetConfig()
	tranID := c.PostForm("tran_id")
	valID := c.PostForm("val_id")
	if tranID == "" || valID == "" {
		c.Redirect(http.StatusFound, cfg.FrontendURL+"/payment/error")
		return
	}

	validated, err := services.GetPaymentService().Validate(valID)
	if err != nil {
		log.Printf("Gateway validation failed for tran %s: %v", tranID, err)
		c.Redirect(http.StatusFound, cfg.FrontendURL+"/payment/failed")
		return
	}

	if _, err := services.ApplyGatewaySuccess(config.GetDB(), tranID, validated); err != nil {
		log.Printf("Failed to reconcile gateway success for tran %s: %v", tranID, err)
		c.Redirect(http.StatusFound, cfg.FrontendURL+"/payment/error")
		return
	}

	c.Redirect(http.StatusFound, cfg.FrontendURL+"/payment/success")
}

// PaymentFail handles the gateway's failure callback
func PaymentFail(c *gin.Context) {
	gatewayFailure(c, false, "/payment/failed")
}

// PaymentCancel handles the gateway's cancellation callback
func PaymentCancel(c *gin.Context) {
	gatewayFailure(c, true, "/payment/cancelled")
}

// gatewayFailure records a fail/cancel callback and sends the browser to
// redirectPath. A tran_id that matches no order is a no-op: the shopper still
// lands on the failure page. Only unexpected internal errors divert to the
// error page.
func gatewayFailure(c *gin.Context, cancelled bool, redirectPath string) {
	cfg := config.GetConfig()
	tranID := c.PostForm("tran_id")
	if tranID != "" {
		callback := services.GatewayCallback{
			TransactionID:     tranID,
			Amount:            c.PostForm("amount"),
			CardType:          c.PostForm("card_type"),
			BankTransactionID: c.PostForm("bank_tran_id"),
		}
		if _, err := services.ApplyGatewayFailure(config.GetDB(), callback, cancelled); err != nil {
			var notFound *services.NotFoundError
			if !errors.As(err, &notFound) {
				log.Printf("Failed to reconcile gateway failure for tran %s: %v", tranID, err)
				c.Redirect(http.StatusFound, cfg.FrontendURL+"/payment/error")
				return
			}
		}
	}

	c.Redirect(http.StatusFound, cfg.FrontendURL+redirectPath)
}
