package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/middleware"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/services"
)

// testEnv wires an in-memory database, a test configuration and mocked
// external services for controller tests
type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	sms     *services.MockSMSService
	payment *services.MockPaymentService
	s3      *services.MockS3Service
}

func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	config.SetDB(db)

	cfg := &config.Config{
		JWTSecret:   "controller-test-secret",
		JWTIssuer:   "https://venue-manager.test/",
		BaseURL:     "https://api.venue-manager.test",
		FrontendURL: "https://shop.venue-manager.test",
	}
	config.SetConfig(cfg)

	sms := services.NewMockSMSService()
	sms.SetAsMockForTesting()
	payment := services.NewMockPaymentService()
	payment.SetAsMockForTesting()
	s3 := services.NewMockS3Service()
	s3.SetAsMockForTesting()

	return &testEnv{db: db, cfg: cfg, sms: sms, payment: payment, s3: s3}
}

func (e *testEnv) staffToken(t *testing.T, user *models.User) string {
	token, err := middleware.IssueStaffToken(e.cfg, user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) customerToken(t *testing.T, customer *models.Customer) string {
	token, err := middleware.IssueCustomerToken(e.cfg, customer)
	require.NoError(t, err)
	return token
}

func performJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
