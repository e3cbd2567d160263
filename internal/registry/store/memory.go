package store

import (
	"context"
	"sync"

	"namereg/internal/registry/models"
	"namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
)

// Memory is an in-memory record store. It keeps the primary name→record map
// and the derived owner→names index under one RWMutex, so every mutation is
// atomic with respect to readers: no caller can observe a transfer where a
// name is missing from both owners' lists, or present in both.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*models.Record
	owned   map[domain.Identity][]string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*models.Record),
		owned:   make(map[domain.Identity][]string),
	}
}

// Create stores a new record and indexes it under its owner.
// Returns sentinel.ErrConflict if the name is already claimed.
func (m *Memory) Create(_ context.Context, record *models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.Name]; ok {
		return sentinel.ErrConflict
	}
	m.records[record.Name] = record.Clone()
	m.owned[record.Owner] = append(m.owned[record.Owner], record.Name)
	return nil
}

// Find returns a copy of the record for the given name.
func (m *Memory) Find(_ context.Context, name string) (*models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

// UpdateTarget sets the record's resolution target.
func (m *Memory) UpdateTarget(_ context.Context, name string, target domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.Target = target
	return nil
}

// UpdateContentHash sets the record's content hash.
func (m *Memory) UpdateContentHash(_ context.Context, name string, contentHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.ContentHash = contentHash
	return nil
}

// Transfer reassigns ownership and moves the name between the two owners'
// index entries in the same critical section.
func (m *Memory) Transfer(_ context.Context, name string, newOwner domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldOwner := record.Owner
	record.Owner = newOwner
	m.removeOwned(oldOwner, name)
	m.owned[newOwner] = append(m.owned[newOwner], name)
	return nil
}

// ListByOwner returns the names currently held by the identity. The order is
// insertion order, except that transfers elsewhere in the list may have
// reshuffled it (removal swaps with the last element).
func (m *Memory) ListByOwner(_ context.Context, owner domain.Identity) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := m.owned[owner]
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

// removeOwned deletes name from the owner's list by locating the first match
// and swapping it with the last element before shrinking. Names are unique per
// owner, so first-match removal is safe. Callers must hold the write lock.
func (m *Memory) removeOwned(owner domain.Identity, name string) {
	names := m.owned[owner]
	for i, n := range names {
		if n == name {
			last := len(names) - 1
			names[i] = names[last]
			names = names[:last]
			break
		}
	}
	if len(names) == 0 {
		delete(m.owned, owner)
		return
	}
	m.owned[owner] = names
}
