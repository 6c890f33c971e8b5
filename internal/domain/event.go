package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a listing state transition. It doubles as the messaging subject suffix.
type EventType string

const (
	EventListed   EventType = "listing.listed"
	EventCanceled EventType = "listing.canceled"
	EventBought   EventType = "listing.bought"
)

// Event is an append-only record of a listing state transition, consumed by off-system indexers.
// Listed is re-emitted on price updates with the same shape as on creation.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Seller     string    `json:"seller,omitempty"`
	Buyer      string    `json:"buyer,omitempty"`
	Collection string    `json:"collection"`
	AssetKind  AssetKind `json:"asset_kind,omitempty"`
	AssetID    string    `json:"asset_id"`
	Amount     int64     `json:"amount,omitempty"`
	UnitPrice  int64     `json:"unit_price,omitempty"`
}

func newEvent(t EventType) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
	}
}

// NewListedEvent announces a listing's current terms.
func NewListedEvent(l *Listing) Event {
	e := newEvent(EventListed)
	e.Seller = l.Seller
	e.Collection = l.Collection
	e.AssetKind = l.AssetKind
	e.AssetID = l.AssetID
	e.Amount = l.RemainingAmount
	e.UnitPrice = l.UnitPrice
	return e
}

// NewCanceledEvent records that a seller withdrew a listing.
func NewCanceledEvent(l *Listing) Event {
	e := newEvent(EventCanceled)
	e.Seller = l.Seller
	e.Collection = l.Collection
	e.AssetID = l.AssetID
	return e
}

// NewBoughtEvent records a purchase of amount units at the listing's unit price.
func NewBoughtEvent(buyer string, l *Listing, amount int64) Event {
	e := newEvent(EventBought)
	e.Buyer = buyer
	e.Seller = l.Seller
	e.Collection = l.Collection
	e.AssetKind = l.AssetKind
	e.AssetID = l.AssetID
	e.Amount = amount
	e.UnitPrice = l.UnitPrice
	return e
}
