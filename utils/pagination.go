package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Pagination holds the page window requested by a list endpoint
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PageMeta is the pagination block returned alongside list responses
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// ParsePagination reads page/limit query parameters, clamping them to
// sane values
func ParsePagination(c *gin.Context) Pagination {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if err != nil || page < 1 {
		page = defaultPage
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Pagination{Page: page, Limit: limit}
}

// Offset returns the row offset for the requested page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta builds the response metadata for a total row count
func (p Pagination) Meta(total int64) PageMeta {
	totalPages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		totalPages++
	}
	return PageMeta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}
