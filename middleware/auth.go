package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
)

// CustomClaims contains the application data carried inside a token.
// Staff tokens fill the role/stall fields; online-customer tokens fill
// the customer fields.
type CustomClaims struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Role         string `json:"role,omitempty"`
	StallID      *uint  `json:"stall_id,omitempty"`
	MotherStall  string `json:"mother_stall,omitempty"`
	CustomerID   uint   `json:"customer_id,omitempty"`
	CustomerType string `json:"customer_type,omitempty"`
}

// Validate satisfies the validator.CustomClaims interface
func (c *CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// StaffContext is the authenticated staff identity stored in the gin context
type StaffContext struct {
	UserID      uint
	Name        string
	Phone       string
	Role        models.Role
	StallID     *uint
	MotherStall string
}

const tokenLifetime = 30 * 24 * time.Hour

// IssueStaffToken signs a bearer token for a staff account
func IssueStaffToken(cfg *config.Config, user *models.User) (string, error) {
	claims := &CustomClaims{
		Name:  user.Name,
		Phone: user.Phone,
		Role:  string(user.Role),
	}
	if user.StallID != nil {
		claims.StallID = user.StallID
	}
	if user.MotherStall != nil {
		claims.MotherStall = *user.MotherStall
	}
	return signToken(cfg, strconv.FormatUint(uint64(user.ID), 10), claims)
}

// IssueCustomerToken signs a bearer token for an online customer
func IssueCustomerToken(cfg *config.Config, customer *models.Customer) (string, error) {
	claims := &CustomClaims{
		Name:         customer.Name,
		Phone:        customer.Phone,
		CustomerID:   customer.ID,
		CustomerType: models.CustomerTypeOnline,
	}
	return signToken(cfg, strconv.FormatUint(uint64(customer.ID), 10), claims)
}

func signToken(cfg *config.Config, subject string, claims *CustomClaims) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(cfg.JWTSecret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", err
	}

	now := time.Now()
	registered := jwt.Claims{
		Issuer:   cfg.JWTIssuer,
		Audience: jwt.Audience{cfg.JWTIssuer},
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(tokenLifetime)),
	}

	return jwt.Signed(signer).Claims(registered).Claims(claims).CompactSerialize()
}

// NewTokenValidator builds the HS256 token validator used by the
// authentication middlewares
func NewTokenValidator(cfg *config.Config) *validator.Validator {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTIssuer},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}
	return jwtValidator
}

func extractClaims(v *validator.Validator, c *gin.Context) (*validator.ValidatedClaims, *CustomClaims, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		unauthorized(c, "MISSING_TOKEN", "Authentication token is required")
		return nil, nil, false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	parsed, err := v.ValidateToken(c.Request.Context(), token)
	if err != nil {
		log.Printf("Encountered error while validating JWT: %v", err)
		unauthorized(c, "INVALID_TOKEN", "Invalid token")
		return nil, nil, false
	}

	validated, ok := parsed.(*validator.ValidatedClaims)
	if !ok {
		unauthorized(c, "INVALID_TOKEN", "Invalid token")
		return nil, nil, false
	}
	custom, ok := validated.CustomClaims.(*CustomClaims)
	if !ok {
		unauthorized(c, "INVALID_TOKEN", "Invalid token")
		return nil, nil, false
	}
	return validated, custom, true
}

// AuthenticateStaff verifies a staff bearer token and stores the staff
// identity in the context. Online-customer tokens are rejected here.
func AuthenticateStaff(cfg *config.Config) gin.HandlerFunc {
	jwtValidator := NewTokenValidator(cfg)

	return func(c *gin.Context) {
		validated, custom, ok := extractClaims(jwtValidator, c)
		if !ok {
			return
		}

		if custom.CustomerType == models.CustomerTypeOnline {
			unauthorized(c, "INVALID_TOKEN", "Invalid access token for this route")
			return
		}

		role, err := models.ParseRole(custom.Role)
		if err != nil {
			unauthorized(c, "INVALID_TOKEN", "Invalid access token for this route")
			return
		}

		userID, err := strconv.ParseUint(validated.RegisteredClaims.Subject, 10, 64)
		if err != nil {
			unauthorized(c, "INVALID_TOKEN", "Invalid token")
			return
		}

		c.Set("staff", &StaffContext{
			UserID:      uint(userID),
			Name:        custom.Name,
			Phone:       custom.Phone,
			Role:        role,
			StallID:     custom.StallID,
			MotherStall: custom.MotherStall,
		})
		c.Next()
	}
}

// AuthenticateOnlineCustomer verifies an online-customer bearer token and
// stores the customer id in the context
func AuthenticateOnlineCustomer(cfg *config.Config) gin.HandlerFunc {
	jwtValidator := NewTokenValidator(cfg)

	return func(c *gin.Context) {
		_, custom, ok := extractClaims(jwtValidator, c)
		if !ok {
			return
		}

		if custom.CustomerType != models.CustomerTypeOnline {
			unauthorized(c, "INVALID_TOKEN", "Invalid access token for this route")
			return
		}

		c.Set("customer_id", custom.CustomerID)
		c.Set("customer_phone", custom.Phone)
		c.Next()
	}
}

// RequireRoles rejects staff whose role is not in the allowed set
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		staff, err := GetStaff(c)
		if err != nil {
			unauthorized(c, "MISSING_CLAIMS", "Could not retrieve token claims")
			return
		}

		for _, role := range roles {
			if staff.Role == role {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "User role: " + string(staff.Role) + " is not authorized to access this route",
			},
		})
		c.Abort()
	}
}

// GetStaff extracts the authenticated staff identity from the gin context
func GetStaff(c *gin.Context) (*StaffContext, error) {
	value, exists := c.Get("staff")
	if !exists {
		return nil, &AuthError{Code: "MISSING_STAFF", Message: "Staff identity not found in context"}
	}
	staff, ok := value.(*StaffContext)
	if !ok {
		return nil, &AuthError{Code: "INVALID_STAFF", Message: "Staff identity is not in the expected format"}
	}
	return staff, nil
}

// GetCustomerID extracts the authenticated online customer's id from the
// gin context
func GetCustomerID(c *gin.Context) (uint, error) {
	value, exists := c.Get("customer_id")
	if !exists {
		return 0, &AuthError{Code: "MISSING_CUSTOMER_ID", Message: "Customer ID not found in context"}
	}
	customerID, ok := value.(uint)
	if !ok {
		return 0, &AuthError{Code: "INVALID_CUSTOMER_ID", Message: "Customer ID is not in the expected format"}
	}
	return customerID, nil
}

func unauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	c.Abort()
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
