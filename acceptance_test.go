package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
)

// setupAcceptanceStack wires the full router against an in-memory database
// and mocked external services, the same way main() wires production.
func setupAcceptanceStack(t *testing.T) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	config.SetDB(db)

	cfg := &config.Config{
		JWTSecret:   "acceptance-test-secret",
		JWTIssuer:   "https://venue-manager.test/",
		BaseURL:     "https://api.venue-manager.test",
		FrontendURL: "https://shop.venue-manager.test",
	}
	config.SetConfig(cfg)

	services.NewMockSMSService().SetAsMockForTesting()
	services.NewMockPaymentService().SetAsMockForTesting()
	services.NewMockS3Service().SetAsMockForTesting()

	return setupRouter(cfg), db
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doForm(router *gin.Engine, method, path, token string, form url.Values) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, router *gin.Engine, path, phone, password string) string {
	w := doJSON(router, "POST", path, "", gin.H{"phone": phone, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

// TestCounterOrderAcceptance walks the full card-present flow through real
// HTTP: bootstrap the master admin, set up a stall with staff and a menu,
// register a card customer, recharge, and place a counter order against
// the card balance.
func TestCounterOrderAcceptance(t *testing.T) {
	router, db := setupAcceptanceStack(t)

	// The first master admin is seeded directly; every later account is
	// created through the API.
	hash, err := bcrypt.GenerateFromPassword([]byte("master-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Name: "Boss", Phone: "01700000001", Password: string(hash), Role: models.RoleMasterAdmin,
	}).Error)
	masterToken := loginToken(t, router, "/api/auth/login", "01700000001", "master-pass")

	// Master registers a stall admin, then creates the stall linked to it
	w := doJSON(router, "POST", "/api/auth/register", masterToken, gin.H{
		"name": "Stall Boss", "phone": "01700000002", "password": "stall-pass",
		"role": "stallAdmin", "motherStall": "Burger Hut",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var stallAdmin models.User
	require.NoError(t, db.Where("phone = ?", "01700000002").First(&stallAdmin).Error)

	w = doForm(router, "POST", "/api/stalls", masterToken, url.Values{
		"motherStall":  {"Burger Hut"},
		"stallAdminId": {strconv.FormatUint(uint64(stallAdmin.ID), 10)},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var stall models.Stall
	require.NoError(t, db.Where("mother_stall = ?", "Burger Hut").First(&stall).Error)

	// The stall admin stocks the menu
	stallToken := loginToken(t, router, "/api/auth/login", "01700000002", "stall-pass")
	w = doJSON(router, "POST", "/api/stalls/"+strconv.FormatUint(uint64(stall.ID), 10)+"/menu", stallToken, gin.H{
		"foodName": "Burger", "foodPrice": "10", "currentStock": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Master registers a card customer and tops up the balance
	w = doJSON(router, "POST", "/api/customers", masterToken, gin.H{
		"name": "Card Holder", "phone": "01800000001", "cardUid": "04A1B2C3",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var customer models.Customer
	require.NoError(t, db.Where("phone = ?", "01800000001").First(&customer).Error)

	w = doJSON(router, "POST", "/api/customers/"+strconv.FormatUint(uint64(customer.ID), 10)+"/recharge",
		masterToken, gin.H{"amount": "100"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The stall admin rings up a counter order against the card
	w = doJSON(router, "POST", "/api/orders/nfc", stallToken, gin.H{
		"cardUid": "04A1B2C3",
		"items": []gin.H{
			{"foodName": "Burger", "foodPrice": "10", "quantity": 3},
		},
		"totalAmount": "30",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, db.First(&customer, customer.ID).Error)
	assert.True(t, customer.Balance.Equal(decimal.NewFromInt(70)), "balance should be 70, got %s", customer.Balance)

	var item models.MenuItem
	require.NoError(t, db.Where("stall_id = ?", stall.ID).First(&item).Error)
	assert.Equal(t, 2, item.CurrentStock)
}

// TestOnlineOrderAcceptance walks the self-service flow: an online customer
// registers, verifies their phone, places a cash-on-delivery order, and the
// stall staff delivers it.
func TestOnlineOrderAcceptance(t *testing.T) {
	router, db := setupAcceptanceStack(t)

	stall := models.Stall{MotherStall: "Burger Hut", MinimumOrderAmount: decimal.NewFromInt(20)}
	require.NoError(t, db.Create(&stall).Error)
	require.NoError(t, db.Create(&models.MenuItem{
		StallID: stall.ID, FoodName: "Burger", FoodPrice: decimal.NewFromInt(10),
		IsAvailable: true, IsAvailableForDelivery: true, CurrentStock: 10,
	}).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("cashier-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	motherStall := stall.MotherStall
	require.NoError(t, db.Create(&models.User{
		Name: "Cashier", Phone: "01700000003", Password: string(hash),
		Role: models.RoleStallCashier, StallID: &stall.ID, MotherStall: &motherStall,
	}).Error)

	// Register and verify the customer; the OTP lands in the database and
	// goes out over the mocked SMS channel
	w := doJSON(router, "POST", "/api/online/register", "", gin.H{
		"name": "Web Shopper", "phone": "01800000002", "password": "shopper-pass",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var customer models.Customer
	require.NoError(t, db.Where("phone = ?", "01800000002").First(&customer).Error)
	require.NotNil(t, customer.OTP)

	w = doJSON(router, "POST", "/api/online/verify-phone", "", gin.H{
		"phone": "01800000002", "otp": *customer.OTP,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	customerToken := loginToken(t, router, "/api/online/login", "01800000002", "shopper-pass")

	// Place a cash-on-delivery order
	w = doJSON(router, "POST", "/api/orders/online", customerToken, gin.H{
		"stallId": stall.ID,
		"items": []gin.H{
			{"foodName": "Burger", "foodPrice": "10", "quantity": 2},
		},
		"totalAmount":    "20",
		"deliveryFee":    "5",
		"paymentMethod":  "COD",
		"deliveryStreet": "12 Lake Road",
		"deliveryArea":   "Banani",
		"deliveryCity":   "Dhaka",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	require.NoError(t, db.Where("customer_id = ?", customer.ID).First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	// Stall staff walks the order to delivered; COD settles on delivery
	cashierToken := loginToken(t, router, "/api/auth/login", "01700000003", "cashier-pass")
	orderPath := "/api/orders/" + strconv.FormatUint(uint64(order.ID), 10) + "/status"
	for _, status := range []string{
		models.OrderStatusConfirmed, models.OrderStatusOutForDelivery, models.OrderStatusDelivered,
	} {
		w = doJSON(router, "PATCH", orderPath, cashierToken, gin.H{"orderStatus": status})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	require.NoError(t, db.First(&order, order.ID).Error)
	assert.Equal(t, models.OrderStatusDelivered, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.NotNil(t, order.ActualDeliveryTime)

	// The customer sees the settled order in their history
	w = doJSON(router, "GET", "/api/profile/orders", customerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "DELIVERED")
}
