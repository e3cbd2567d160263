// Package domain holds the small value types shared across module boundaries.
package domain

import "errors"

// ErrEmptyIdentity is returned when parsing an identity from an empty string.
var ErrEmptyIdentity = errors.New("identity must not be empty")

// Identity names a caller, owner, or resolution target. It is an opaque,
// case-sensitive string supplied by the surrounding system (a JWT subject over
// HTTP); the registry only ever compares identities for equality.
//
// The zero value is the distinguished "null identity": it never owns anything
// and is rejected wherever an operation requires a real identity.
type Identity string

// Zero is the null identity.
const Zero Identity = ""

// ParseIdentity validates an externally supplied identity string.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return Zero, ErrEmptyIdentity
	}
	return Identity(s), nil
}

// IsZero reports whether the identity is the null identity.
func (i Identity) IsZero() bool { return i == Zero }

func (i Identity) String() string { return string(i) }
