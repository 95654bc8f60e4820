package mock

import (
	"context"
	"sync"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the default canned response is returned.
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	// Response is the canned text returned when CompleteFunc is nil.
	// Defaults to a three-element JSON array so query expansion tests
	// exercise the parse path.
	Response string

	mu        sync.Mutex
	callCount int
	lastUser  string
}

// NewMockCompleter creates a mock completer with a default canned response.
// Note: Returns concrete type to allow test assertions.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{
		Response: `["dapagliflozin eligibility criteria", "SGLT2 inhibitor NICE guidance", "local diabetes prescribing policy"]`,
	}
}

// Complete returns the injected or canned response.
func (m *MockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastUser = user
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, system, user)
	}

	return m.Response, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastUserMessage returns the user message from the most recent call.
func (m *MockCompleter) LastUserMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUser
}

// Reset clears the call count and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastUser = ""
	m.CompleteFunc = nil
}
