package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// --- Asset Kind Enum ---

// AssetKind tells the engine which asset authority owns custody of a listed asset.
type AssetKind string

const (
	// AssetKindUnique is a single-holder asset; listings always carry exactly one unit.
	AssetKindUnique AssetKind = "unique"
	// AssetKindFungible is a balance-based asset; listings may offer part of a balance.
	AssetKindFungible AssetKind = "fungible"
)

// IsValid checks if the AssetKind is one of the defined constants.
func (k AssetKind) IsValid() bool {
	switch k {
	case AssetKindUnique, AssetKindFungible:
		return true
	}
	return false
}

// ParseAssetKind converts a wire tag into an AssetKind.
func ParseAssetKind(s string) (AssetKind, error) {
	kind := AssetKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetKind, s)
	}
	return kind, nil
}

// --- Listing Entity ---

// ListingKey identifies the single listing slot of an asset.
type ListingKey struct {
	Collection string
	AssetID    string
}

func (k ListingKey) String() string {
	return k.Collection + "/" + k.AssetID
}

// Validate checks that both parts of the key are set.
func (k ListingKey) Validate() error {
	if k.Collection == "" || k.AssetID == "" {
		return fmt.Errorf("%w: collection and asset_id are required", ErrInvalidInput)
	}
	return nil
}

// Listing is a seller's standing offer to sell RemainingAmount units of one asset at UnitPrice each.
// A stored Listing always has UnitPrice > 0 and RemainingAmount > 0; unique assets always have
// RemainingAmount == 1.
type Listing struct {
	Collection      string
	AssetID         string
	Seller          string
	AssetKind       AssetKind
	UnitPrice       int64
	RemainingAmount int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewListing creates a listing for the given terms. Unique assets are always listed with one unit.
func NewListing(seller, collection, assetID string, kind AssetKind, amount, unitPrice int64) (*Listing, error) {
	if seller == "" {
		return nil, fmt.Errorf("%w: seller cannot be empty", ErrInvalidInput)
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssetKind, kind)
	}
	if unitPrice <= 0 {
		return nil, ErrPriceMustBeAboveZero
	}
	if kind == AssetKindUnique {
		amount = 1
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	now := time.Now().UTC()
	l := &Listing{
		Collection:      collection,
		AssetID:         assetID,
		Seller:          seller,
		AssetKind:       kind,
		UnitPrice:       unitPrice,
		RemainingAmount: amount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := l.Key().Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Key returns the listing slot this listing occupies.
func (l *Listing) Key() ListingKey {
	return ListingKey{Collection: l.Collection, AssetID: l.AssetID}
}

// Clone returns a copy that can be mutated without affecting the original.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

// Validate reports whether the listing satisfies the stored-listing invariants.
func (l *Listing) Validate() error {
	if err := l.Key().Validate(); err != nil {
		return err
	}
	if !l.AssetKind.IsValid() {
		return ErrInvalidAssetKind
	}
	if l.UnitPrice <= 0 {
		return ErrPriceMustBeAboveZero
	}
	if l.RemainingAmount <= 0 {
		return fmt.Errorf("%w: remaining amount must be positive", ErrInvalidInput)
	}
	if l.AssetKind == AssetKindUnique && l.RemainingAmount != 1 {
		return fmt.Errorf("%w: unique asset listing must carry exactly one unit", ErrInvalidInput)
	}
	return nil
}

// TotalPrice returns unitPrice*amount, rejecting overflow.
func TotalPrice(unitPrice, amount int64) (int64, error) {
	if unitPrice <= 0 || amount <= 0 {
		return 0, fmt.Errorf("%w: price and amount must be positive", ErrInvalidInput)
	}
	if amount > math.MaxInt64/unitPrice {
		return 0, fmt.Errorf("%w: total price overflows", ErrInvalidInput)
	}
	return unitPrice * amount, nil
}
