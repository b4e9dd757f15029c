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

const otpLifetime = 10 * time.Minute

// RegisterStaffRequest represents the request body for creating a staff account
type RegisterStaffRequest struct {
	Name        string  `json:"name" binding:"required"`
	Phone       string  `json:"phone" binding:"required"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Password    string  `json:"password" binding:"required,min=6"`
	Role        string  `json:"role" binding:"required"`
	MotherStall *string `json:"motherStall"`
}

// LoginRequest represents the request body for staff login
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ForgotPasswordRequest asks for a password-reset OTP to be sent
type ForgotPasswordRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// ResetPasswordRequest completes an OTP password reset
type ResetPasswordRequest struct {
	Phone       string `json:"phone" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func staffResponse(user *models.User) gin.H {
	data := gin.H{
		"id":    user.ID,
		"name":  user.Name,
		"phone": user.Phone,
		"role":  user.Role,
	}
	if user.Email != nil {
		data["email"] = *user.Email
	}
	if user.MotherStall != nil {
		data["motherStall"] = *user.MotherStall
	}
	if user.StallID != nil {
		data["stallId"] = *user.StallID
	}
	return data
}

// RegisterStaff handles POST /api/auth/register - creates a staff account.
// Who may create whom is governed by the role hierarchy: masterAdmin
// creates rechargers, rechargerAdmins and stallAdmins; rechargerAdmin
// creates rechargers; stallAdmin creates cashiers for its own stall.
func RegisterStaff(c *gin.Context) {
	creator, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req RegisterStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	targetRole, err := models.ParseRole(req.Role)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ROLE", "Unknown role: "+req.Role)
		return
	}

	if !creator.Role.CanCreate(targetRole) {
		respondError(c, http.StatusForbidden, "FORBIDDEN",
			"User role: "+string(creator.Role)+" is not allowed to create "+string(targetRole)+" accounts")
		return
	}

	db := config.GetDB()

	var existing models.User
	if err := db.Where("phone = ?", req.Phone).First(&existing).Error; err == nil {
		respondError(c, http.StatusBadRequest, "USER_EXISTS", "An account with this phone number already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	user := models.User{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: string(hash),
		Role:     targetRole,
	}

	// Stall cashiers inherit their creator's stall; a stall admin's stall
	// is linked when the stall itself is created.
	if targetRole == models.RoleStallCashier {
		if creator.StallID == nil {
			respondError(c, http.StatusBadRequest, "NO_STALL", "Creator has no stall to assign the cashier to")
			return
		}
		user.StallID = creator.StallID
		motherStall := creator.MotherStall
		user.MotherStall = &motherStall
	} else if targetRole == models.RoleStallAdmin {
		if req.MotherStall == nil || *req.MotherStall == "" {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "motherStall is required for stall admins")
			return
		}
		user.MotherStall = req.MotherStall
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if targetRole == models.RoleStallCashier {
			return tx.Create(&models.StallCashier{
				StallID: *user.StallID,
				UserID:  user.ID,
			}).Error
		}
		return nil
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    staffResponse(&user),
	})
}

// Login handles POST /api/auth/login - staff login with phone and password
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid phone number or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid phone number or password")
		return
	}

	token, err := middleware.IssueStaffToken(config.GetConfig(), &user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"token": token,
			"user":  staffResponse(&user),
		},
	})
}

// ForgotPassword handles POST /api/auth/forgot-password - sends a reset OTP
// over SMS. The response does not reveal whether the phone exists.
func ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("phone = ?", req.Phone).First(&user).Error; err == nil {
		otp, err := utils.GenerateOTP(4)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate OTP")
			return
		}
		expires := time.Now().Add(otpLifetime)
		user.OTP = &otp
		user.OTPExpires = &expires
		if err := db.Save(&user).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store OTP")
			return
		}

		if err := services.GetSMSService().Send(user.Phone, "Your password reset code is "+otp+". It expires in 10 minutes."); err != nil {
			log.Printf("Failed to send password reset SMS to %s: %v", user.Phone, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "If an account exists for this phone number, an OTP has been sent",
		},
	})
}

// ResetPassword handles POST /api/auth/reset-password - verifies the OTP
// and replaces the password
func ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var user models.User
	if err := db.Where("phone = ?", req.Phone).First(&user).Error; err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP")
		return
	}

	if user.OTP == nil || user.OTPExpires == nil || *user.OTP != req.OTP || time.Now().After(*user.OTPExpires) {
		respondError(c, http.StatusBadRequest, "INVALID_OTP", "Invalid or expired OTP")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reset password")
		return
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
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
