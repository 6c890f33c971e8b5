package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
)

type balanceKey struct {
	collection string
	assetID    string
	holder     string
}

// FungibleRegistry tracks balance-based assets: per-holder balances of every asset id plus
// collection-wide operator approvals.
type FungibleRegistry struct {
	mu        sync.RWMutex
	balances  map[balanceKey]int64
	operators map[operatorKey]bool
}

func NewFungibleRegistry() *FungibleRegistry {
	return &FungibleRegistry{
		balances:  make(map[balanceKey]int64),
		operators: make(map[operatorKey]bool),
	}
}

func (r *FungibleRegistry) Kind() domain.AssetKind { return domain.AssetKindFungible }

// Mint credits amount units of an asset id to holder.
func (r *FungibleRegistry) Mint(_ context.Context, collection, assetID, holder string, amount int64) error {
	if collection == "" || assetID == "" || holder == "" {
		return fmt.Errorf("%w: collection, asset_id and holder are required", domain.ErrInvalidInput)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: mint amount must be positive", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[balanceKey{collection, assetID, holder}] += amount
	return nil
}

func (r *FungibleRegistry) BalanceOf(_ context.Context, holder, collection, assetID string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[balanceKey{collection, assetID, holder}]
}

// SetApprovalForAll lets operator move any of owner's balances in collection.
func (r *FungibleRegistry) SetApprovalForAll(_ context.Context, owner, collection, operator string, approved bool) error {
	if owner == "" || operator == "" {
		return fmt.Errorf("%w: owner and operator are required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators[operatorKey{collection, owner, operator}] = approved
	return nil
}

// CheckHolds requires qty > 0 and a balance of at least qty.
func (r *FungibleRegistry) CheckHolds(_ context.Context, principal, collection, assetID string, qty int64) (bool, error) {
	if qty <= 0 {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[balanceKey{collection, assetID, principal}] >= qty, nil
}

func (r *FungibleRegistry) IsApproved(_ context.Context, owner, operator, collection, _ string) (bool, error) {
	if owner == operator {
		return true, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.operators[operatorKey{collection, owner, operator}], nil
}

func (r *FungibleRegistry) Transfer(_ context.Context, operator, from, to, collection, assetID string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", domain.ErrInvalidInput)
	}
	if to == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if operator != from && !r.operators[operatorKey{collection, from, operator}] {
		return domain.ErrNotApprovedForMarketplace
	}
	src := balanceKey{collection, assetID, from}
	if r.balances[src] < qty {
		return fmt.Errorf("%w: %s holds %d of %s/%s, needs %d", domain.ErrNotOwner, from, r.balances[src], collection, assetID, qty)
	}
	r.balances[src] -= qty
	if r.balances[src] == 0 {
		delete(r.balances, src)
	}
	r.balances[balanceKey{collection, assetID, to}] += qty
	return nil
}
