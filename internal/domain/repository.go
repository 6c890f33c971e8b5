package domain

import (
	"context"
	"time"
)

// ListingStore is the keyed registry of active listings, at most one per ListingKey.
// Implementations must make single-key writes atomically visible to readers.
type ListingStore interface {
	// Get returns ErrNotFound when the key has no listing.
	Get(ctx context.Context, key ListingKey) (*Listing, error)
	// Put overwrites the listing at its key unconditionally.
	Put(ctx context.Context, listing *Listing) error
	// Remove deletes the listing at key; removing an absent key is a no-op.
	Remove(ctx context.Context, key ListingKey) error
	ListByCollection(ctx context.Context, collection string) ([]*Listing, error)
	// WithinTx runs fn so that every Put/Remove made through the ctx passed to fn
	// is rolled back if fn returns an error.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ListingCache is a read-through cache in front of the ListingStore.
type ListingCache interface {
	// Get returns nil, nil on a cache miss.
	Get(ctx context.Context, key ListingKey) (*Listing, error)
	Set(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, key ListingKey) error
}

// AssetAuthority owns the ground truth of custody for one asset kind and executes transfers.
type AssetAuthority interface {
	Kind() AssetKind
	// CheckHolds reports whether principal holds at least qty units of the asset.
	CheckHolds(ctx context.Context, principal, collection, assetID string, qty int64) (bool, error)
	// IsApproved reports whether operator may move owner's asset.
	IsApproved(ctx context.Context, owner, operator, collection, assetID string) (bool, error)
	// Transfer moves qty units from one principal to another on the operator's authority.
	Transfer(ctx context.Context, operator, from, to, collection, assetID string, qty int64) error
}

// AssetResolver dispatches an asset kind to its authority.
type AssetResolver interface {
	Authority(kind AssetKind) (AssetAuthority, error)
}

// Payment is a receipt for value forwarded by the settlement rail.
type Payment struct {
	ID        string
	From      string
	To        string
	Amount    int64
	CreatedAt time.Time
}

// Settlement moves value between principals.
type Settlement interface {
	Forward(ctx context.Context, from, to string, amount int64) (*Payment, error)
	// Reverse compensates a previously forwarded payment.
	Reverse(ctx context.Context, payment *Payment) error
}

// Role is an administrative capability checked by the AccessGate.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RolePauser     Role = "pauser"
)

// IsValid checks if the Role is one of the defined constants.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RolePauser:
		return true
	}
	return false
}

// AccessGate answers pause state and administrative role questions.
type AccessGate interface {
	IsPaused() bool
	HasRole(role Role, principal string) bool
	IsOwner(principal string) bool
}

// EventLog is the append-only notification channel for listing transitions.
type EventLog interface {
	Append(ctx context.Context, event Event) error
}
