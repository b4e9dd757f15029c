package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/utils"
)

// MenuItemRequest represents the body for creating or updating a menu item
type MenuItemRequest struct {
	FoodName               string          `json:"foodName" binding:"required"`
	FoodPrice              decimal.Decimal `json:"foodPrice" binding:"required"`
	IsAvailable            *bool           `json:"isAvailable"`
	CurrentStock           *int            `json:"currentStock"`
	Description            string          `json:"description"`
	IsAvailableForDelivery *bool           `json:"isAvailableForDelivery"`
}

func uploadStallImage(c *gin.Context, field, folder string) (*string, bool) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		// field absent is fine
		return nil, true
	}
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		} else {
			respondError(c, http.StatusBadRequest, "INVALID_FILE", err.Error())
		}
		return nil, false
	}
	key, err := services.GetS3Service().UploadImage(fileHeader, folder)
	if err != nil {
		log.Printf("Failed to upload %s image: %v", field, err)
		respondError(c, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to upload image")
		return nil, false
	}
	return &key, true
}

func stallImageURLs(stall *models.Stall) gin.H {
	urls := gin.H{}
	s3 := services.GetS3Service()
	if stall.ImageKey != nil {
		if url, err := s3.GetPresignedURL(*stall.ImageKey); err == nil {
			urls["image"] = url
		}
	}
	if stall.ThumbnailKey != nil {
		if url, err := s3.GetPresignedURL(*stall.ThumbnailKey); err == nil {
			urls["thumbnail"] = url
		}
	}
	if stall.BannerKey != nil {
		if url, err := s3.GetPresignedURL(*stall.BannerKey); err == nil {
			urls["banner"] = url
		}
	}
	return urls
}

// canManageStall reports whether the staff member may mutate the stall
func canManageStall(staff *middleware.StaffContext, stall *models.Stall) bool {
	if staff.Role == models.RoleMasterAdmin {
		return true
	}
	if staff.Role == models.RoleStallAdmin && stall.StallAdminID != nil && *stall.StallAdminID == staff.UserID {
		return true
	}
	return false
}

// CreateStall handles POST /api/stalls - creates a stall and links its
// admin account. Accepts multipart form data with optional image and
// banner files.
func CreateStall(c *gin.Context) {
	motherStall := c.PostForm("motherStall")
	if motherStall == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "motherStall is required")
		return
	}

	db := config.GetDB()

	var existing models.Stall
	if err := db.Where("mother_stall = ?", motherStall).First(&existing).Error; err == nil {
		respondError(c, http.StatusBadRequest, "STALL_EXISTS", "A stall with this name already exists")
		return
	}

	stall := models.Stall{
		MotherStall: motherStall,
		Street:      c.PostForm("street"),
		Area:        c.PostForm("area"),
		City:        c.PostForm("city"),
		PostalCode:  c.PostForm("postalCode"),
	}

	if v := c.PostForm("minimumOrderAmount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil || amount.IsNegative() {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "minimumOrderAmount must be a non-negative number")
			return
		}
		stall.MinimumOrderAmount = amount
	}
	if v := c.PostForm("deliveryTimeMin"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			stall.DeliveryTimeMin = n
		}
	}
	if v := c.PostForm("deliveryTimeMax"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			stall.DeliveryTimeMax = n
		}
	}

	var admin models.User
	if v := c.PostForm("stallAdminId"); v != "" {
		adminID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "stallAdminId must be a number")
			return
		}
		if err := db.First(&admin, adminID).Error; err != nil {
			respondError(c, http.StatusNotFound, "USER_NOT_FOUND", "Stall admin account not found")
			return
		}
		if admin.Role != models.RoleStallAdmin {
			respondError(c, http.StatusBadRequest, "INVALID_ROLE", "Linked account must be a stallAdmin")
			return
		}
		id := uint(adminID)
		stall.StallAdminID = &id
	}

	imageKey, ok := uploadStallImage(c, "image", "stalls")
	if !ok {
		return
	}
	stall.ImageKey = imageKey
	bannerKey, ok := uploadStallImage(c, "banner", "stalls/banners")
	if !ok {
		return
	}
	stall.BannerKey = bannerKey

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&stall).Error; err != nil {
			return err
		}
		if stall.StallAdminID != nil {
			return tx.Model(&admin).Updates(map[string]interface{}{
				"stall_id":     stall.ID,
				"mother_stall": stall.MotherStall,
			}).Error
		}
		return nil
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create stall")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    stall,
	})
}

// UpdateStall handles PATCH /api/stalls/:id - edits stall details; images
// are replaced when new files are supplied
func UpdateStall(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	var stall models.Stall
	if err := db.First(&stall, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "STALL_NOT_FOUND", "Stall not found")
		return
	}

	if !canManageStall(staff, &stall) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to manage this stall")
		return
	}

	updates := map[string]interface{}{}
	for form, column := range map[string]string{
		"street":     "street",
		"area":       "area",
		"city":       "city",
		"postalCode": "postal_code",
	} {
		if v := c.PostForm(form); v != "" {
			updates[column] = v
		}
	}
	if v := c.PostForm("minimumOrderAmount"); v != "" {
		amount, err := decimal.NewFromString(v)
		if err != nil || amount.IsNegative() {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "minimumOrderAmount must be a non-negative number")
			return
		}
		updates["minimum_order_amount"] = amount
	}
	if v := c.PostForm("deliveryTimeMin"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			updates["delivery_time_min"] = n
		}
	}
	if v := c.PostForm("deliveryTimeMax"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			updates["delivery_time_max"] = n
		}
	}

	if imageKey, ok := uploadStallImage(c, "image", "stalls"); !ok {
		return
	} else if imageKey != nil {
		if stall.ImageKey != nil {
			if err := services.GetS3Service().DeleteImage(*stall.ImageKey); err != nil {
				log.Printf("Failed to delete old stall image %s: %v", *stall.ImageKey, err)
			}
		}
		updates["image_key"] = *imageKey
	}
	if bannerKey, ok := uploadStallImage(c, "banner", "stalls/banners"); !ok {
		return
	} else if bannerKey != nil {
		if stall.BannerKey != nil {
			if err := services.GetS3Service().DeleteImage(*stall.BannerKey); err != nil {
				log.Printf("Failed to delete old stall banner %s: %v", *stall.BannerKey, err)
			}
		}
		updates["banner_key"] = *bannerKey
	}

	if len(updates) > 0 {
		if err := db.Model(&stall).Updates(updates).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update stall")
			return
		}
	}

	if err := db.First(&stall, stall.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload stall")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stall,
	})
}

// orderAggregate is a count/revenue pair over a stall's non-cancelled orders
type orderAggregate struct {
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

func stallOrderAggregate(db *gorm.DB, stallID uint, since time.Time) (orderAggregate, error) {
	var agg orderAggregate
	err := db.Model(&models.Order{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("stall_id = ? AND created_at >= ? AND order_status <> ?", stallID, since, models.OrderStatusCancelled).
		Scan(&agg).Error
	return agg, err
}

// GetStalls handles GET /api/stalls - staff listing with admin accounts and
// today's / this month's order aggregates per stall
func GetStalls(c *gin.Context) {
	db := config.GetDB()
	var stalls []models.Stall
	if err := db.Preload("StallAdmin").Preload("Menu").Order("mother_stall").Find(&stalls).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stalls")
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	results := make([]gin.H, 0, len(stalls))
	for i := range stalls {
		today, err := stallOrderAggregate(db, stalls[i].ID, startOfDay)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute order totals")
			return
		}
		month, err := stallOrderAggregate(db, stalls[i].ID, startOfMonth)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute order totals")
			return
		}
		results = append(results, gin.H{
			"stall": stalls[i],
			"today": today,
			"month": month,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// GetPublicStalls handles GET /api/public/stalls - the storefront list
// with presigned image URLs
func GetPublicStalls(c *gin.Context) {
	db := config.GetDB()
	var stalls []models.Stall
	if err := db.Preload("Menu", "is_available = ?", true).Order("mother_stall").Find(&stalls).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch stalls")
		return
	}

	results := make([]gin.H, 0, len(stalls))
	for i := range stalls {
		results = append(results, gin.H{
			"stall":  stalls[i],
			"images": stallImageURLs(&stalls[i]),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    results,
	})
}

// GetStall handles GET /api/stalls/:id - stall detail with today's and
// this month's order aggregates
func GetStall(c *gin.Context) {
	db := config.GetDB()
	var stall models.Stall
	if err := db.Preload("StallAdmin").Preload("Menu").Preload("Cashiers.User").First(&stall, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "STALL_NOT_FOUND", "Stall not found")
		return
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	today, err := stallOrderAggregate(db, stall.ID, startOfDay)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute order totals")
		return
	}
	month, err := stallOrderAggregate(db, stall.ID, startOfMonth)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute order totals")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"stall":  stall,
			"images": stallImageURLs(&stall),
			"today":  today,
			"month":  month,
		},
	})
}

// GetStallMenu handles GET /api/public/stalls/:id/menu
func GetStallMenu(c *gin.Context) {
	db := config.GetDB()
	var stall models.Stall
	if err := db.Preload("Menu", "is_available = ?", true).First(&stall, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "STALL_NOT_FOUND", "Stall not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"motherStall": stall.MotherStall,
			"menu":        stall.Menu,
		},
	})
}

// bumpStallVersion performs the optimistic-concurrency check for menu
// mutations: the stall row's version must not have moved since it was read.
func bumpStallVersion(tx *gorm.DB, stall *models.Stall) error {
	result := tx.Model(&models.Stall{}).
		Where("id = ? AND version = ?", stall.ID, stall.Version).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddMenuItem handles POST /api/stalls/:id/menu
func AddMenuItem(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var stall models.Stall
	if err := db.First(&stall, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "STALL_NOT_FOUND", "Stall not found")
		return
	}

	if !canManageStall(staff, &stall) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to manage this stall")
		return
	}

	var duplicate models.MenuItem
	if err := db.Where("stall_id = ? AND food_name = ?", stall.ID, req.FoodName).First(&duplicate).Error; err == nil {
		respondError(c, http.StatusBadRequest, "MENU_ITEM_EXISTS", "A menu item with this name already exists")
		return
	}

	item := models.MenuItem{
		StallID:                stall.ID,
		FoodName:               req.FoodName,
		FoodPrice:              req.FoodPrice,
		Description:            req.Description,
		IsAvailable:            true,
		IsAvailableForDelivery: true,
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	if req.CurrentStock != nil {
		if *req.CurrentStock < 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "currentStock cannot be negative")
			return
		}
		item.CurrentStock = *req.CurrentStock
	}
	if req.IsAvailableForDelivery != nil {
		item.IsAvailableForDelivery = *req.IsAvailableForDelivery
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := bumpStallVersion(tx, &stall); err != nil {
			return err
		}
		return tx.Create(&item).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusConflict, "CONFLICT", "The menu was modified concurrently; retry the request")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add menu item")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    item,
	})
}

// UpdateMenuItem handles PATCH /api/stalls/:id/menu/:itemId
func UpdateMenuItem(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	db := config.GetDB()
	var stall models.Stall
	if err := db.First(&stall, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "STALL_NOT_FOUND", "Stall not found")
		return
	}

	if !canManageStall(staff, &stall) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to manage this stall")
		return
	}

	var item models.MenuItem
	if err := db.Where("id = ? AND stall_id = ?", c.Param("itemId"), stall.ID).First(&item).Error; err != nil {
		respondError(c, http.StatusNotFound, "MENU_ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	updates := map[string]interface{}{
		"food_name":   req.FoodName,
		"food_price":  req.FoodPrice,
		"description": req.Description,
	}
	if req.IsAvailable != nil {
		updates["is_available"] = *req.IsAvailable
	}
	if req.CurrentStock != nil {
		if *req.CurrentStock < 0 {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "currentStock cannot be negative")
			return
		}
		updates["current_stock"] = *req.CurrentStock
	}
	if req.IsAvailableForDelivery != nil {
		updates["is_available_for_delivery"] = *req.IsAvailableForDelivery
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := bumpStallVersion(tx, &stall); err != nil {
			return err
		}
		return tx.Model(&item).Updates(updates).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusConflict, "CONFLICT", "The menu was modified concurrently; retry the request")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update menu item")
		return
	}

	if err := db.First(&item, item.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to reload menu item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    item,
	})
}

// RemoveMenuItem handles DELETE /api/stalls/:id/menu/:itemId
func RemoveMenuItem(c *gin.Context) {
	staff, err := middleware.GetStaff(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	db := config.GetDB()
	var stall models.Stall
	if err := db.First(&stall, c.Param("id")).Error; err != nil {
		respondError(c, http.StatusNotFound, "STALL_NOT_FOUND", "Stall not found")
		return
	}

	if !canManageStall(staff, &stall) {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to manage this stall")
		return
	}

	var item models.MenuItem
	if err := db.Where("id = ? AND stall_id = ?", c.Param("itemId"), stall.ID).First(&item).Error; err != nil {
		respondError(c, http.StatusNotFound, "MENU_ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := bumpStallVersion(tx, &stall); err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, http.StatusConflict, "CONFLICT", "The menu was modified concurrently; retry the request")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove menu item")
		return
	}

	if item.ImageKey != nil {
		if err := services.GetS3Service().DeleteImage(*item.ImageKey); err != nil {
			log.Printf("Failed to delete menu item image %s: %v", *item.ImageKey, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"message": "Menu item removed",
		},
	})
}
