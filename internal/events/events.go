// Package events defines the notifications the registry emits on successful
// mutations, plus the publishers that carry them. Events are transport-agnostic
// so sinks (Kafka, in-memory test capture) can fan out without touching domain
// logic. Nothing is emitted on failed operations.
package events

import (
	"time"

	"github.com/google/uuid"

	"namereg/pkg/domain"
)

// Kind classifies registry notifications.
type Kind string

const (
	KindNameRegistered  Kind = "name_registered"
	KindNameUpdated     Kind = "name_updated"
	KindNameTransferred Kind = "name_transferred"
)

// Event captures a successful registry mutation. Only the fields relevant to
// the kind are populated; JSON omits the rest.
type Event struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	Owner     domain.Identity `json:"owner,omitempty"`

	// Update fields: the post-update pair, carried by both update paths.
	Target      domain.Identity `json:"target,omitempty"`
	ContentHash string          `json:"content_hash,omitempty"`

	// Transfer fields.
	OldOwner domain.Identity `json:"old_owner,omitempty"`
	NewOwner domain.Identity `json:"new_owner,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// NameRegistered builds the notification for a fresh registration.
func NameRegistered(name string, owner domain.Identity, contentHash string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindNameRegistered,
		Name:        name,
		Owner:       owner,
		ContentHash: contentHash,
		Timestamp:   at,
	}
}

// NameUpdated builds the notification emitted by both update paths, carrying
// the full post-update target/content-hash pair.
func NameUpdated(name string, target domain.Identity, contentHash string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        KindNameUpdated,
		Name:        name,
		Target:      target,
		ContentHash: contentHash,
		Timestamp:   at,
	}
}

// NameTransferred builds the notification for an ownership transfer.
func NameTransferred(name string, oldOwner, newOwner domain.Identity, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      KindNameTransferred,
		Name:      name,
		OldOwner:  oldOwner,
		NewOwner:  newOwner,
		Timestamp: at,
	}
}
