package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/utils"
)

// CreateNFCCustomerRequest represents the body for registering a card customer
type CreateNFCCustomerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Phone   string  `json:"phone" binding:"required"`
	Email   *string `json:"email" binding:"omitempty,email"`
	CardUID string  `json:"cardUid" binding:"required"`
}

// RechargeRequest represents the body for a balance top-up
type RechargeRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// CardRequest carries a card UID for assignment
type CardRequest struct {
	CardUID string `json:"cardUid" binding:"required"`
}

// CreateNFCCustomer handles POST /api/customers - registers an NFC-card
// customer with a zero balance
func CreateNFCCustomer(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req CreateNFCCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()

	var existing models.Customer
	if err := db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		respondError(c, http.StatusBadRequest, "CUSTOMER_EXISTS", "A customer with this phone number already exists")
		return
	}
	if err := db.Where("card_uid = ?", req.CardUID).First(&existing).Error; err == nil {
		respondError(c, http.StatusBadRequest, "CARD_IN_USE", "This card is already assigned to another customer")
		return
	}

	customer := models.Customer{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		CardUID:         &req.CardUID,
		Balance:         decimal.Zero,
		CustomerType:    models.CustomerTypeNFC,
		CreatedByID:     &staff.UserID,
		IsPhoneVerified: true,
	}

	if err := db.Create(&customer).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create customer")
		return
	}

	if err := services.GetSMSService().Send(customer.Phone,
		"Hello, "+customer.Name+". Your customer account has been successfully created and you have a current balance of "+customer.Balance.StringFixed(2)); err != nil {
		log.Printf("Failed to send welcome SMS to %s: %v", customer.Phone, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    customerResponse(&customer),
	})
}

// RechargeCustomer handles POST /api/customers/:id/recharge - tops up a
// balance, appends a recharge history entry and confirms over SMS
func RechargeCustomer(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		respondError(c, http.StatusBadRequest, "INVALID_AMOUNT", "Recharge amount must be greater than zero")
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	balanceBefore := customer.Balance

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Customer{}).
			Where("id = ?", customer.ID).
			UpdateColumn("balance", gorm.Expr("balance + ?", req.Amount)).Error; err != nil {
			return err
		}
		entry := models.RechargeEntry{
			CustomerID:            customer.ID,
			RechargerID:           staff.UserID,
			RechargerName:         staff.Name,
			Amount:                req.Amount,
			BalanceBeforeRecharge: balanceBefore,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to recharge customer")
		return
	}

	if err := db.First(&customer, customer.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload customer")
		return
	}

	if err := services.GetSMSService().Send(customer.Phone,
		"Your card has been recharged with "+req.Amount.StringFixed(2)+". New balance: "+customer.Balance.StringFixed(2)); err != nil {
		log.Printf("Failed to send recharge SMS to %s: %v", customer.Phone, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"customer":      customerResponse(&customer),
			"amount":        req.Amount,
			"balanceBefore": balanceBefore,
		},
	})
}

// GetCustomers handles GET /api/customers - paginated list with an
// optional customerType filter
func GetCustomers(c *gin.Context) {
	db := config.GetDB()
	page := utils.ParsePagination(c)

	query := db.Model(&models.Customer{})
	if customerType := c.Query("customerType"); customerType != "" {
		query = query.Where("customer_type = ?", customerType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count customers")
		return
	}

	var customers []models.Customer
	if err := query.Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&customers).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch customers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"customers":  customers,
			"pagination": page.Meta(total),
		},
	})
}

// GetCustomerByCardOrPhone handles GET /api/customers/lookup - finds a
// customer by cardUid or phone, with full histories preloaded
func GetCustomerByCardOrPhone(c *gin.Context) {
	cardUID := c.Query("cardUid")
	phone := c.Query("phone")
	if cardUID == "" && phone == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Provide cardUid or phone")
		return
	}

	db := config.GetDB()
	query := db.Preload("Addresses").Preload("RechargeHistory").Preload("OrderHistory")
	if cardUID != "" {
		query = query.Where("card_uid = ?", cardUID)
	} else {
		query = query.Where("phone = ?", phone)
	}

	var customer models.Customer
	if err := query.First(&customer).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customer,
	})
}

// DeleteCustomer handles DELETE /api/customers/:id - soft-deletes a customer
func DeleteCustomer(c *gin.Context) {
	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	if err := db.Delete(&customer).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete customer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Customer deleted",
		},
	})
}

// RemoveCard handles POST /api/customers/:id/remove-card - detaches the
// NFC card from a customer and zeroes the remaining balance
func RemoveCard(c *gin.Context) {
	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	if customer.CardUID == nil {
		respondError(c, http.StatusBadRequest, "NO_CARD", "Customer has no card assigned")
		return
	}

	if err := db.Model(&customer).UpdateColumns(map[string]interface{}{
		"card_uid": gorm.Expr("NULL"),
		"balance":  decimal.Zero,
	}).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove card")
		return
	}
	customer.CardUID = nil
	customer.Balance = decimal.Zero

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customerResponse(&customer),
	})
}

// AddCard handles POST /api/customers/:id/add-card - assigns a new card
// to a customer that currently has none
func AddCard(c *gin.Context) {
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	if customer.CardUID != nil {
		respondError(c, http.StatusBadRequest, "CARD_ALREADY_ASSIGNED", "Customer already has a card; remove it first")
		return
	}

	var existing models.Customer
	if err := db.Where("card_uid = ?", req.CardUID).First(&existing).Error; err == nil {
		respondError(c, http.StatusBadRequest, "CARD_IN_USE", "This card is already assigned to another customer")
		return
	}

	if err := db.Model(&customer).UpdateColumn("card_uid", req.CardUID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to assign card")
		return
	}
	customer.CardUID = &req.CardUID

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customerResponse(&customer),
	})
}
