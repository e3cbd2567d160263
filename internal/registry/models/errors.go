package models

import (
	"fmt"

	"namereg/pkg/domain"
)

// Operation failures are typed and carry the offending name or identity so
// callers and logs can tell exactly what was rejected. None are retryable;
// each reflects a caller precondition violation and is surfaced unchanged.
// Match with errors.As.

// NameEmptyError rejects the empty name.
type NameEmptyError struct{}

func (e *NameEmptyError) Error() string { return "registry: name must not be empty" }

// NameTooLongError rejects names longer than MaxNameLength bytes.
type NameTooLongError struct {
	Name string
}

func (e *NameTooLongError) Error() string {
	return fmt.Sprintf("registry: name %q exceeds %d bytes", e.Name, MaxNameLength)
}

// NameAlreadyRegisteredError rejects registration of a claimed name.
type NameAlreadyRegisteredError struct {
	Name string
}

func (e *NameAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("registry: name %q is already registered", e.Name)
}

// NameNotFoundError rejects operations on unregistered names.
type NameNotFoundError struct {
	Name string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("registry: name %q is not registered", e.Name)
}

// NotOwnerError rejects mutations attempted by anyone but the current owner.
type NotOwnerError struct {
	Name   string
	Caller domain.Identity
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("registry: caller %q does not own name %q", e.Caller, e.Name)
}

// InvalidTargetError rejects the null identity as a target or new owner.
type InvalidTargetError struct {
	Target domain.Identity
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("registry: invalid target identity %q", e.Target)
}

// InvalidContentHashError rejects an empty content hash.
type InvalidContentHashError struct {
	Hash string
}

func (e *InvalidContentHashError) Error() string {
	return fmt.Sprintf("registry: invalid content hash %q", e.Hash)
}

// AlreadyOwnerError rejects transfers to the current owner.
type AlreadyOwnerError struct {
	Name  string
	Owner domain.Identity
}

func (e *AlreadyOwnerError) Error() string {
	return fmt.Sprintf("registry: %q already owns name %q", e.Owner, e.Name)
}
