package asset

import (
	"fmt"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
)

// Resolver dispatches each asset kind to the authority registered for it.
type Resolver struct {
	authorities map[domain.AssetKind]domain.AssetAuthority
}

func NewResolver(authorities ...domain.AssetAuthority) *Resolver {
	r := &Resolver{authorities: make(map[domain.AssetKind]domain.AssetAuthority, len(authorities))}
	for _, a := range authorities {
		r.authorities[a.Kind()] = a
	}
	return r
}

func (r *Resolver) Authority(kind domain.AssetKind) (domain.AssetAuthority, error) {
	a, ok := r.authorities[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAssetKind, kind)
	}
	return a, nil
}
