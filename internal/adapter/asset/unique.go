package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
)

type tokenKey struct {
	collection string
	assetID    string
}

type operatorKey struct {
	collection string
	owner      string
	operator   string
}

// UniqueRegistry tracks single-holder assets: one owner per token, per-token approvals and
// collection-wide operator approvals.
type UniqueRegistry struct {
	mu        sync.RWMutex
	owners    map[tokenKey]string
	approvals map[tokenKey]string
	operators map[operatorKey]bool
}

func NewUniqueRegistry() *UniqueRegistry {
	return &UniqueRegistry{
		owners:    make(map[tokenKey]string),
		approvals: make(map[tokenKey]string),
		operators: make(map[operatorKey]bool),
	}
}

func (r *UniqueRegistry) Kind() domain.AssetKind { return domain.AssetKindUnique }

// Mint assigns a new token to owner.
func (r *UniqueRegistry) Mint(_ context.Context, collection, assetID, owner string) error {
	if collection == "" || assetID == "" || owner == "" {
		return fmt.Errorf("%w: collection, asset_id and owner are required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := tokenKey{collection, assetID}
	if _, exists := r.owners[k]; exists {
		return fmt.Errorf("%w: token %s/%s already minted", domain.ErrInvalidInput, collection, assetID)
	}
	r.owners[k] = owner
	return nil
}

// OwnerOf returns domain.ErrNotFound for unminted tokens.
func (r *UniqueRegistry) OwnerOf(_ context.Context, collection, assetID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[tokenKey{collection, assetID}]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

// Approve lets operator move one token. Only the current owner may approve.
func (r *UniqueRegistry) Approve(_ context.Context, caller, collection, assetID, operator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := tokenKey{collection, assetID}
	if r.owners[k] != caller {
		return domain.ErrNotOwner
	}
	r.approvals[k] = operator
	return nil
}

// SetApprovalForAll lets operator move every token owner holds in collection.
func (r *UniqueRegistry) SetApprovalForAll(_ context.Context, owner, collection, operator string, approved bool) error {
	if owner == "" || operator == "" {
		return fmt.Errorf("%w: owner and operator are required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operators[operatorKey{collection, owner, operator}] = approved
	return nil
}

// CheckHolds is true only when principal is the token's owner and qty is one.
func (r *UniqueRegistry) CheckHolds(_ context.Context, principal, collection, assetID string, qty int64) (bool, error) {
	if qty != 1 {
		return false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[tokenKey{collection, assetID}]
	return ok && owner == principal, nil
}

func (r *UniqueRegistry) IsApproved(_ context.Context, owner, operator, collection, assetID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isApprovedLocked(owner, operator, tokenKey{collection, assetID}), nil
}

func (r *UniqueRegistry) isApprovedLocked(owner, operator string, k tokenKey) bool {
	if owner == operator {
		return true
	}
	if r.approvals[k] == operator {
		return true
	}
	return r.operators[operatorKey{k.collection, owner, operator}]
}

// Transfer moves the token and clears its per-token approval.
func (r *UniqueRegistry) Transfer(_ context.Context, operator, from, to, collection, assetID string, qty int64) error {
	if qty != 1 {
		return fmt.Errorf("%w: unique assets transfer exactly one unit, got %d", domain.ErrInvalidInput, qty)
	}
	if to == "" {
		return fmt.Errorf("%w: recipient is required", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := tokenKey{collection, assetID}
	if owner, ok := r.owners[k]; !ok || owner != from {
		return fmt.Errorf("%w: %s does not own %s/%s", domain.ErrNotOwner, from, collection, assetID)
	}
	if !r.isApprovedLocked(from, operator, k) {
		return domain.ErrNotApprovedForMarketplace
	}
	r.owners[k] = to
	delete(r.approvals, k)
	return nil
}
