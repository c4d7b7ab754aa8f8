package notify

import (
	"context"
	"sync"

	"github.com/brojonat/solsweep/service/sweep"
)

// MockDispatcher is a mock implementation of Dispatcher for testing.
type MockDispatcher struct {
	mu            sync.RWMutex
	dispatched    []*sweep.WalletSnapshot
	dispatchError error
	closed        bool
}

// NewMockDispatcher creates a new mock dispatcher for testing.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{
		dispatched: make([]*sweep.WalletSnapshot, 0),
	}
}

// Dispatch records the snapshot and returns any configured error.
func (m *MockDispatcher) Dispatch(ctx context.Context, snapshot *sweep.WalletSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dispatchError != nil {
		return m.dispatchError
	}

	m.dispatched = append(m.dispatched, snapshot)
	return nil
}

// Close marks the dispatcher as closed.
func (m *MockDispatcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Dispatched returns all dispatched snapshots (for testing).
func (m *MockDispatcher) Dispatched() []*sweep.WalletSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid race conditions
	out := make([]*sweep.WalletSnapshot, len(m.dispatched))
	copy(out, m.dispatched)
	return out
}

// DispatchedCount returns the number of dispatched snapshots.
func (m *MockDispatcher) DispatchedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.dispatched)
}

// SetDispatchError configures the mock to return an error on Dispatch.
func (m *MockDispatcher) SetDispatchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchError = err
}

// IsClosed returns whether the dispatcher has been closed.
func (m *MockDispatcher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
