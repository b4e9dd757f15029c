package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondServiceError maps the order service's typed errors onto HTTP
// statuses; anything else is treated as an internal failure.
func respondServiceError(c *gin.Context, err error) {
	var notFound *services.NotFoundError
	if errors.As(err, &notFound) {
		respondError(c, http.StatusNotFound, notFound.Code, notFound.Message)
		return
	}
	var business *services.BusinessError
	if errors.As(err, &business) {
		respondError(c, http.StatusBadRequest, business.Code, business.Message)
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
}
