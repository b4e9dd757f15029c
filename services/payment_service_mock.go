package services

import (
	"fmt"
	"sync"

	"github.com/zeeshan-nvmx/NFC-CARD-VENUE-MANAGER-E-COM/models"
)

// MockPaymentService is a mock implementation of PaymentService for testing
type MockPaymentService struct {
	sessions      map[string]uint // transaction id -> order id
	validPayments map[string]*ValidatedPayment
	failInitiate  bool
	failValidate  bool
	mu            sync.Mutex
}

// NewMockPaymentService creates a new mock payment service
func NewMockPaymentService() *MockPaymentService {
	return &MockPaymentService{
		sessions:      make(map[string]uint),
		validPayments: make(map[string]*ValidatedPayment),
	}
}

// SetAsMockForTesting sets this mock as the global payment service instance for testing
func (m *MockPaymentService) SetAsMockForTesting() {
	SetPaymentService(m)
}

// FailInitiate makes every subsequent Initiate return an error
func (m *MockPaymentService) FailInitiate(fail bool) {
	m.mu.Lock()
	m.failInitiate = fail
	m.mu.Unlock()
}

// FailValidate makes every subsequent Validate return an error
func (m *MockPaymentService) FailValidate(fail bool) {
	m.mu.Lock()
	m.failValidate = fail
	m.mu.Unlock()
}

// RegisterValidation primes the mock so Validate(valID) succeeds with the
// given record (for testing callback reconciliation)
func (m *MockPaymentService) RegisterValidation(valID string, payment *ValidatedPayment) {
	m.mu.Lock()
	m.validPayments[valID] = payment
	m.mu.Unlock()
}

// Initiate simulates opening a hosted checkout session
func (m *MockPaymentService) Initiate(order *models.Order, customer *models.Customer, urls CallbackURLs) (*PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInitiate {
		return nil, fmt.Errorf("gateway unavailable")
	}

	tranID, err := GenerateTransactionID()
	if err != nil {
		return nil, err
	}
	m.sessions[tranID] = order.ID

	return &PaymentSession{
		SessionKey:    "mock-session-" + tranID[:8],
		RedirectURL:   "https://sandbox.sslcommerz.com/gw/" + tranID,
		TransactionID: tranID,
	}, nil
}

// Validate simulates the server-to-server validation endpoint
func (m *MockPaymentService) Validate(valID string) (*ValidatedPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failValidate {
		return nil, fmt.Errorf("gateway unavailable")
	}
	payment, ok := m.validPayments[valID]
	if !ok {
		return nil, fmt.Errorf("payment validation rejected with status %q", "INVALID")
	}
	return payment, nil
}

// Refund simulates a refund request
func (m *MockPaymentService) Refund(bankTranID, amount, reason string) error {
	return nil
}

// SessionCount returns how many sessions were initiated (for testing assertions)
func (m *MockPaymentService) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
