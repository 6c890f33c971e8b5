package domain

import "errors"

// --- Exchange errors ---

var (
	// ErrPriceMustBeAboveZero indicates a listing price of zero or less.
	ErrPriceMustBeAboveZero = errors.New("price must be above zero")
	// ErrAlreadyListed indicates the asset already has an active listing.
	ErrAlreadyListed = errors.New("asset already listed")
	// ErrNotListed indicates the asset has no active listing.
	ErrNotListed = errors.New("asset not listed")
	// ErrNotOwner indicates the caller does not hold the asset.
	ErrNotOwner = errors.New("caller is not the asset owner")
	// ErrNotApprovedForMarketplace indicates the marketplace may not move the asset on the seller's behalf.
	ErrNotApprovedForMarketplace = errors.New("marketplace not approved to transfer asset")
	// ErrAmountGreaterThanListedAmount indicates a purchase for more units than remain listed.
	ErrAmountGreaterThanListedAmount = errors.New("amount greater than listed amount")
	// ErrPriceNotMet indicates the tendered payment is below unit price times amount.
	ErrPriceNotMet = errors.New("price not met")
	// ErrInvalidAssetKind indicates an unrecognized asset kind.
	ErrInvalidAssetKind = errors.New("invalid asset kind")
)

// --- Operational errors ---

var (
	ErrPaused            = errors.New("marketplace is paused")
	ErrReentrantCall     = errors.New("reentrant call rejected")
	ErrInvalidInput      = errors.New("invalid input data")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("caller lacks the required role")
	// ErrNotFound is returned by stores for a missing entity.
	ErrNotFound = errors.New("entity not found")
	// ErrRepository indicates a generic data persistence error.
	ErrRepository = errors.New("repository error")
)
