package services

import (
	"errors"
	"sync"
)

var errSMSUnavailable = errors.New("sms provider unavailable")

// SentSMS records a single message handed to the mock
type SentSMS struct {
	Phone   string
	Message string
}

// MockSMSService is a mock implementation of SMSService for testing
type MockSMSService struct {
	sent    []SentSMS
	failAll bool
	mu      sync.Mutex
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

// SetAsMockForTesting sets this mock as the global SMS service instance for testing
func (m *MockSMSService) SetAsMockForTesting() {
	SetSMSService(m)
}

// FailAll makes every subsequent Send return an error
func (m *MockSMSService) FailAll(fail bool) {
	m.mu.Lock()
	m.failAll = fail
	m.mu.Unlock()
}

// Send records the message instead of delivering it
func (m *MockSMSService) Send(phone, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errSMSUnavailable
	}
	m.sent = append(m.sent, SentSMS{Phone: phone, Message: message})
	return nil
}

// Sent returns a copy of all recorded messages (for testing assertions)
func (m *MockSMSService) Sent() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.sent))
	copy(out, m.sent)
	return out
}

// Clear removes all recorded messages
func (m *MockSMSService) Clear() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}
