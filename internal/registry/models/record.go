package models

import (
	"time"

	"namereg/pkg/domain"
)

// MaxNameLength bounds registered names, measured in bytes.
const MaxNameLength = 64

// Record is the aggregate stored per registered name.
//
// Invariants:
//   - Name is non-empty, at most MaxNameLength bytes, matched byte-for-byte
//     (case-sensitive)
//   - Owner and Target are never the null identity
//   - ContentHash is non-empty
//   - RegisteredAt is immutable after construction
//   - A record is created exactly once per name and never removed; only Owner,
//     Target, and ContentHash change afterwards, each exclusively by the
//     current owner
type Record struct {
	Name         string          `json:"name"`
	Owner        domain.Identity `json:"owner"`
	Target       domain.Identity `json:"target"`
	ContentHash  string          `json:"content_hash"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// NewRecord constructs a record, enforcing the creation invariants in the
// order callers observe failures: name shape, then target, then content hash.
func NewRecord(name string, owner, target domain.Identity, contentHash string, now time.Time) (*Record, error) {
	if name == "" {
		return nil, &NameEmptyError{}
	}
	if len(name) > MaxNameLength {
		return nil, &NameTooLongError{Name: name}
	}
	if target.IsZero() {
		return nil, &InvalidTargetError{Target: target}
	}
	if contentHash == "" {
		return nil, &InvalidContentHashError{Hash: contentHash}
	}
	return &Record{
		Name:         name,
		Owner:        owner,
		Target:       target,
		ContentHash:  contentHash,
		RegisteredAt: now,
	}, nil
}

// Clone returns a copy so callers can hand records out without sharing the
// store's backing memory.
func (r *Record) Clone() *Record {
	cp := *r
	return &cp
}
