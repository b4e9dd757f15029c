package services

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	appConfig "github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/config"
)

// SMSInterface defines the interface for outbound SMS notifications.
// Sends are best-effort: callers sequence them after their transaction
// commits and log failures instead of propagating them.
type SMSInterface interface {
	Send(phone, message string) error
}

// SMSService posts messages to the bulk SMS provider
type SMSService struct {
	client *http.Client
	apiURL string
	token  string
}

var smsServiceInstance SMSInterface

// InitSMSService initializes the SMS service from configuration
func InitSMSService() SMSInterface {
	cfg := appConfig.GetConfig()

	smsServiceInstance = &SMSService{
		// Bounded timeout so a provider outage degrades to a logged
		// failure instead of hanging the request
		client: &http.Client{Timeout: 10 * time.Second},
		apiURL: cfg.SMSAPIURL,
		token:  cfg.SMSAPIToken,
	}
	return smsServiceInstance
}

// GetSMSService returns the initialized SMS service instance
func GetSMSService() SMSInterface {
	return smsServiceInstance
}

// SetSMSService sets the SMS service instance (primarily for testing)
func SetSMSService(service SMSInterface) {
	smsServiceInstance = service
}

// Send delivers one SMS through the provider's form API
func (s *SMSService) Send(phone, message string) error {
	form := url.Values{}
	form.Set("token", s.token)
	form.Set("to", phone)
	form.Set("message", message)

	resp, err := s.client.Post(s.apiURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("SMS provider returned status %d", resp.StatusCode)
	}
	return nil
}
