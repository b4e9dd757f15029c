package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/utils"
)

// RegisterCustomerRequest represents the self-registration body for
// online customers
type RegisterCustomerRequest struct {
	Name     string  `json:"name" binding:"required"`
	Phone    string  `json:"phone" binding:"required"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password string  `json:"password" binding:"required,min=6"`
}

// VerifyPhoneRequest confirms a registration OTP
type VerifyPhoneRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

func customerResponse(customer *models.Customer) gin.H {
	data := gin.H{
		"id":              customer.ID,
		"name":            customer.Name,
		"phone":           customer.Phone,
		"balance":         customer.Balance,
		"customerType":    customer.CustomerType,
		"isPhoneVerified": customer.IsPhoneVerified,
	}
	if customer.Email != nil {
		data["email"] = *customer.Email
	}
	if customer.CardUID != nil {
		data["cardUid"] = *customer.CardUID
	}
	return data
}

// RegisterOnlineCustomer handles POST /api/online/register - creates an
// unverified online customer and sends a verification OTP over SMS
func RegisterOnlineCustomer(c *gin.Context) {
	var req RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()

	var existing models.Customer
	if err := db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		respondError(c, http.StatusBadRequest, "CUSTOMER_EXISTS", "An account with this phone number already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	otp, err := utils.GenerateOTP(4)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate OTP")
		return
	}
	expires := time.Now().Add(otpLifetime)

	customer := models.Customer{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Password:        string(hash),
		CustomerType:    models.CustomerTypeOnline,
		IsPhoneVerified: false,
		OTP:             &otp,
		OTPExpires:      &expires,
	}

	if err := db.Create(&customer).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	if err := services.GetSMSService().Send(customer.Phone, "Your verification code is "+otp+". It expires in 10 minutes."); err != nil {
		log.Printf("Failed to send verification SMS to %s: %v", customer.Phone, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"message":  "Account created. Verify your phone number with the OTP sent over SMS.",
			"customer": customerResponse(&customer),
		},
	})
}

// VerifyPhone handles POST /api/online/verify-phone - confirms the OTP,
// marks the phone verified and issues a token
func VerifyPhone(c *gin.Context) {
	var req VerifyPhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.Where("phone = ? AND customer_type = ?", req.Phone, models.CustomerTypeOnline).First(&customer).Error; err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP")
		return
	}

	if customer.OTP == nil || customer.OTPExpires == nil || *customer.OTP != req.OTP || time.Now().After(*customer.OTPExpires) {
		respondError(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP")
		return
	}

	if err := db.Model(&customer).Updates(map[string]interface{}{
		"is_phone_verified": true,
		"otp":               gorm.Expr("NULL"),
		"otp_expires":       gorm.Expr("NULL"),
	}).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to verify phone")
		return
	}
	customer.IsPhoneVerified = true

	token, err := middleware.IssueCustomerToken(config.GetConfig(), &customer)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":    token,
			"customer": customerResponse(&customer),
		},
	})
}

// LoginOnlineCustomer handles POST /api/online/login. Unverified phones
// are rejected until the registration OTP is confirmed.
func LoginOnlineCustomer(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.Where("phone = ? AND customer_type = ?", req.Phone, models.CustomerTypeOnline).First(&customer).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid phone number or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.Password), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid phone number or password")
		return
	}

	if !customer.IsPhoneVerified {
		respondError(c, http.StatusForbidden, "PHONE_NOT_VERIFIED", "Verify your phone number before logging in")
		return
	}

	token, err := middleware.IssueCustomerToken(config.GetConfig(), &customer)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token":    token,
			"customer": customerResponse(&customer),
		},
	})
}

// ForgotCustomerPassword handles POST /api/online/forgot-password
func ForgotCustomerPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.Where("phone = ? AND customer_type = ?", req.Phone, models.CustomerTypeOnline).First(&customer).Error; err == nil {
		otp, err := utils.GenerateOTP(4)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate OTP")
			return
		}
		expires := time.Now().Add(otpLifetime)
		customer.OTP = &otp
		customer.OTPExpires = &expires
		if err := db.Save(&customer).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store OTP")
			return
		}

		if err := services.GetSMSService().Send(customer.Phone, "Your password reset code is "+otp+". It expires in 10 minutes."); err != nil {
			log.Printf("Failed to send password reset SMS to %s: %v", customer.Phone, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "If an account exists for this phone number, an OTP has been sent",
		},
	})
}

// ResetCustomerPassword handles POST /api/online/reset-password
func ResetCustomerPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var customer models.Customer
	if err := db.Where("phone = ? AND customer_type = ?", req.Phone, models.CustomerTypeOnline).First(&customer).Error; err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP")
		return
	}

	if customer.OTP == nil || customer.OTPExpires == nil || *customer.OTP != req.OTP || time.Now().After(*customer.OTPExpires) {
		respondError(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset password")
		return
	}

	if err := db.Model(&customer).Updates(map[string]interface{}{
		"password":    string(hash),
		"otp":         gorm.Expr("NULL"),
		"otp_expires": gorm.Expr("NULL"),
	}).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Password has been reset",
		},
	})
}
