package services

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appConfig "github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
)

// PaymentSession is the result of initiating a hosted checkout
type PaymentSession struct {
	SessionKey    string
	RedirectURL   string
	TransactionID string
}

// ValidatedPayment is the authoritative record returned by the gateway's
// server-to-server validation endpoint. Callback payloads must not be
// trusted for the PAID decision without it.
type ValidatedPayment struct {
	Status            string `json:"status"`
	TransactionID     string `json:"tran_id"`
	Amount            string `json:"amount"`
	CardType          string `json:"card_type"`
	BankTransactionID string `json:"bank_tran_id"`
	CardIssuer        string `json:"card_issuer"`
	CardBrand         string `json:"card_brand"`
	Currency          string `json:"currency"`
}

// CallbackURLs carries the three redirect targets handed to the gateway
type CallbackURLs struct {
	Success string
	Fail    string
	Cancel  string
}

// PaymentInterface defines the interface to the SSLCommerz gateway
type PaymentInterface interface {
	Initiate(order *models.Order, customer *models.Customer, urls CallbackURLs) (*PaymentSession, error)
	Validate(valID string) (*ValidatedPayment, error)
	Refund(bankTranID, amount, reason string) error
}

// PaymentService talks to the SSLCommerz HTTP API
type PaymentService struct {
	client        *http.Client
	apiURL        string
	storeID       string
	storePassword string
}

var paymentServiceInstance PaymentInterface

// InitPaymentService initializes the payment gateway client from configuration
func InitPaymentService() PaymentInterface {
	cfg := appConfig.GetConfig()

	paymentServiceInstance = &PaymentService{
		client:        &http.Client{Timeout: 30 * time.Second},
		apiURL:        cfg.SSLCommerzAPIURL,
		storeID:       cfg.SSLCommerzStoreID,
		storePassword: cfg.SSLCommerzPassword,
	}
	return paymentServiceInstance
}

// GetPaymentService returns the initialized payment service instance
func GetPaymentService() PaymentInterface {
	return paymentServiceInstance
}

// SetPaymentService sets the payment service instance (primarily for testing)
func SetPaymentService(service PaymentInterface) {
	paymentServiceInstance = service
}

// GenerateTransactionID mints a cryptographically random transaction id.
// It is the sole lookup key correlating an asynchronous callback to its
// order, so it must never come from a guessable sequence.
func GenerateTransactionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

type initiateResponse struct {
	Status         string `json:"status"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
}

// Initiate builds a payment-session request and returns the gateway's hosted
// redirect URL along with the freshly minted transaction id
func (p *PaymentService) Initiate(order *models.Order, customer *models.Customer, urls CallbackURLs) (*PaymentSession, error) {
	tranID, err := GenerateTransactionID()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("store_id", p.storeID)
	form.Set("store_passwd", p.storePassword)
	form.Set("total_amount", order.TotalAmount.StringFixed(2))
	form.Set("currency", "BDT")
	form.Set("tran_id", tranID)
	form.Set("success_url", urls.Success)
	form.Set("fail_url", urls.Fail)
	form.Set("cancel_url", urls.Cancel)
	form.Set("shipping_method", "NO")
	form.Set("product_name", "Food Order")
	form.Set("product_category", "Food")
	form.Set("product_profile", "general")
	form.Set("cus_name", customer.Name)
	form.Set("cus_phone", customer.Phone)
	form.Set("cus_country", "Bangladesh")
	if customer.Email != nil && *customer.Email != "" {
		form.Set("cus_email", *customer.Email)
	} else {
		form.Set("cus_email", "customer@example.com")
	}
	if order.DeliveryStreet != nil {
		form.Set("cus_add1", *order.DeliveryStreet)
		form.Set("ship_add1", *order.DeliveryStreet)
	}
	if order.DeliveryArea != nil {
		form.Set("cus_add2", *order.DeliveryArea)
		form.Set("ship_add2", *order.DeliveryArea)
	}
	if order.DeliveryCity != nil {
		form.Set("cus_city", *order.DeliveryCity)
		form.Set("ship_city", *order.DeliveryCity)
	}
	if order.DeliveryPostalCode != nil && *order.DeliveryPostalCode != "" {
		form.Set("cus_postcode", *order.DeliveryPostalCode)
		form.Set("ship_postcode", *order.DeliveryPostalCode)
	} else {
		form.Set("cus_postcode", "1000")
		form.Set("ship_postcode", "1000")
	}
	form.Set("ship_name", customer.Name)
	form.Set("ship_country", "Bangladesh")

	resp, err := p.client.Post(p.apiURL+"/gwprocess/v4/api.php", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payment initiation request failed: %w", err)
	}
	defer resp.Body.Close()

	var body initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode payment initiation response: %w", err)
	}
	if body.GatewayPageURL == "" {
		return nil, fmt.Errorf("payment initiation rejected: %s", body.FailedReason)
	}

	return &PaymentSession{
		SessionKey:    body.SessionKey,
		RedirectURL:   body.GatewayPageURL,
		TransactionID: tranID,
	}, nil
}

// Validate re-submits the callback's validation id to the gateway's
// verification endpoint and returns the authoritative record
func (p *PaymentService) Validate(valID string) (*ValidatedPayment, error) {
	form := url.Values{}
	form.Set("store_id", p.storeID)
	form.Set("store_passwd", p.storePassword)
	form.Set("val_id", valID)

	resp, err := p.client.Post(p.apiURL+"/validator/api/validationserverAPI.php", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("payment validation request failed: %w", err)
	}
	defer resp.Body.Close()

	var validated ValidatedPayment
	if err := json.NewDecoder(resp.Body).Decode(&validated); err != nil {
		return nil, fmt.Errorf("failed to decode payment validation response: %w", err)
	}
	if validated.Status != "VALID" && validated.Status != "VALIDATED" {
		return nil, fmt.Errorf("payment validation rejected with status %q", validated.Status)
	}
	return &validated, nil
}

// Refund requests a refund against a settled bank transaction
func (p *PaymentService) Refund(bankTranID, amount, reason string) error {
	form := url.Values{}
	form.Set("store_id", p.storeID)
	form.Set("store_passwd", p.storePassword)
	form.Set("bank_tran_id", bankTranID)
	form.Set("refund_amount", amount)
	form.Set("refund_remarks", reason)

	resp, err := p.client.Post(p.apiURL+"/api/refund.php", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("refund request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refund rejected with status %d", resp.StatusCode)
	}
	return nil
}
