package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/utils"
)

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// AddressRequest represents a delivery address payload
type AddressRequest struct {
	Label                string `json:"label" binding:"required"`
	Street               string `json:"street" binding:"required"`
	Area                 string `json:"area" binding:"required"`
	City                 string `json:"city" binding:"required"`
	PostalCode           string `json:"postalCode"`
	DeliveryInstructions string `json:"deliveryInstructions"`
	IsDefault            bool   `json:"isDefault"`
}

// GetProfile handles GET /api/profile - the authenticated customer's
// account with addresses and histories
func GetProfile(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.Preload("Addresses").Preload("OrderHistory").First(&customer, customerID).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customer,
	})
}

// UpdateProfile handles PATCH /api/profile
func UpdateProfile(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.First(&customer, customerID).Error; err != nil {
		respondError(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil && *req.Name != "" {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if len(updates) > 0 {
		if err := db.Model(&customer).Updates(updates).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update profile")
			return
		}
	}

	if err := db.First(&customer, customerID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customerResponse(&customer),
	})
}

// ensureSingleDefault re-checks the address set after a mutation and
// promotes the first address when no default remains.
func ensureSingleDefault(tx *gorm.DB, customerID uint) error {
	var addresses []models.Address
	if err := tx.Where("customer_id = ?", customerID).Order("id").Find(&addresses).Error; err != nil {
		return err
	}

	normalized, err := models.NormalizeAddresses(addresses)
	if err != nil {
		return err
	}
	if len(normalized) > 0 && normalized[0].IsDefault {
		if err := tx.Model(&models.Address{}).
			Where("id = ?", normalized[0].ID).
			UpdateColumn("is_default", true).Error; err != nil {
			return err
		}
	}
	return nil
}

// AddAddress handles POST /api/profile/addresses
func AddAddress(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	address := models.Address{
		CustomerID:           customerID,
		Label:                req.Label,
		Street:               req.Street,
		Area:                 req.Area,
		City:                 req.City,
		PostalCode:           req.PostalCode,
		DeliveryInstructions: req.DeliveryInstructions,
		IsDefault:            req.IsDefault,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("customer_id = ?", customerID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&address).Error; err != nil {
			return err
		}
		return ensureSingleDefault(tx, customerID)
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add address")
		return
	}

	var addresses []models.Address
	if err := db.Where("customer_id = ?", customerID).Order("id").Find(&addresses).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload addresses")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"addresses": addresses,
		},
	})
}

// UpdateAddress handles PATCH /api/profile/addresses/:addressId
func UpdateAddress(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var address models.Address
	if err := db.Where("id = ? AND customer_id = ?", c.Param("addressId"), customerID).First(&address).Error; err != nil {
		respondError(c, http.StatusNotFound, "ADDRESS_NOT_FOUND", "Address not found")
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if req.IsDefault {
			if err := tx.Model(&models.Address{}).
				Where("customer_id = ? AND id <> ?", customerID, address.ID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&address).Updates(map[string]interface{}{
			"label":                 req.Label,
			"street":                req.Street,
			"area":                  req.Area,
			"city":                  req.City,
			"postal_code":           req.PostalCode,
			"delivery_instructions": req.DeliveryInstructions,
			"is_default":            req.IsDefault,
		}).Error; err != nil {
			return err
		}
		return ensureSingleDefault(tx, customerID)
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update address")
		return
	}

	var addresses []models.Address
	if err := db.Where("customer_id = ?", customerID).Order("id").Find(&addresses).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload addresses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"addresses": addresses,
		},
	})
}

// DeleteAddress handles DELETE /api/profile/addresses/:addressId.
// Deleting the default address promotes the oldest remaining one.
func DeleteAddress(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	var address models.Address
	if err := db.Where("id = ? AND customer_id = ?", c.Param("addressId"), customerID).First(&address).Error; err != nil {
		respondError(c, http.StatusNotFound, "ADDRESS_NOT_FOUND", "Address not found")
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&address).Error; err != nil {
			return err
		}
		return ensureSingleDefault(tx, customerID)
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete address")
		return
	}

	var addresses []models.Address
	if err := db.Where("customer_id = ?", customerID).Order("id").Find(&addresses).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload addresses")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"addresses": addresses,
		},
	})
}

// GetMyOrders handles GET /api/profile/orders - the customer's orders,
// newest first
func GetMyOrders(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	page := utils.ParsePagination(c)

	query := db.Model(&models.Order{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count orders")
		return
	}

	var orders []models.Order
	if err := db.Where("customer_id = ?", customerID).
		Preload("Items").Preload("GatewayPayment").
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

// GetMyOrder handles GET /api/profile/orders/:id - one of the customer's
// own orders with full details
func GetMyOrder(c *gin.Context) {
	customerID, err := middleware.GetCustomerID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.Where("id = ? AND customer_id = ?", c.Param("id"), customerID).
		Preload("Items").Preload("GatewayPayment").
		First(&order).Error; err != nil {
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}
