package events

import (
	"context"
	"sync"
)

//go:generate mockgen -source=publisher.go -destination=mocks/publisher_mock.go -package=mocks

// Publisher delivers registry notifications to interested consumers.
// Publish is called after the mutation has been applied; implementations must
// not re-order events from a single registry instance.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Memory is an in-process publisher that records events in order. It is the
// default when no broker is configured and the capture sink for unit tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// NewMemory constructs an empty in-memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of everything published so far, in order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Reset discards captured events. Use between tests to ensure isolation.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
