package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.uber.org/zap"
)

type UniqueAssets interface {
	Mint(ctx context.Context, collection, assetID, owner string) error
	SetApprovalForAll(ctx context.Context, owner, collection, operator string, approved bool) error
}

type FungibleAssets interface {
	Mint(ctx context.Context, collection, assetID, holder string, amount int64) error
	SetApprovalForAll(ctx context.Context, owner, collection, operator string, approved bool) error
}

// AssetHandler exposes the in-process asset registries: minting for administrators and
// approval-for-all for holders.
type AssetHandler struct {
	unique   UniqueAssets
	fungible FungibleAssets
	gate     domain.AccessGate
	logger   *logger.Logger
}

func NewAssetHandler(unique UniqueAssets, fungible FungibleAssets, gate domain.AccessGate, log *logger.Logger) *AssetHandler {
	return &AssetHandler{unique: unique, fungible: fungible, gate: gate, logger: log.Named("AssetHandler")}
}

type mintRequest struct {
	AssetKind  string `json:"asset_kind"`
	Collection string `json:"collection"`
	AssetID    string `json:"asset_id"`
	Holder     string `json:"holder"`
	Amount     int64  `json:"amount"`
}

func (h *AssetHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserIDFrom(r.Context())
	if !h.gate.IsOwner(caller) && !h.gate.HasRole(domain.RoleSuperAdmin, caller) && !h.gate.HasRole(domain.RoleAdmin, caller) {
		writeDomainError(w, fmt.Errorf("%w: %s may not mint", domain.ErrUnauthorized, caller))
		return
	}

	var req mintRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := domain.ParseAssetKind(req.AssetKind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch kind {
	case domain.AssetKindUnique:
		req.Amount = 1
		err = h.unique.Mint(r.Context(), req.Collection, req.AssetID, req.Holder)
	default:
		err = h.fungible.Mint(r.Context(), req.Collection, req.AssetID, req.Holder, req.Amount)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.logger.Info("Asset minted",
		zap.String("caller", caller),
		zap.String("asset_kind", string(kind)),
		zap.String("collection", req.Collection),
		zap.String("asset_id", req.AssetID),
		zap.String("holder", req.Holder),
		zap.Int64("amount", req.Amount))
	req.AssetKind = string(kind)
	writeJSON(w, http.StatusCreated, req)
}

type approvalRequest struct {
	AssetKind  string `json:"asset_kind"`
	Collection string `json:"collection"`
	Operator   string `json:"operator"`
	Approved   bool   `json:"approved"`
}

func (h *AssetHandler) HandleSetApproval(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := domain.ParseAssetKind(req.AssetKind)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Collection == "" || req.Operator == "" {
		writeError(w, http.StatusBadRequest, "collection and operator are required")
		return
	}

	owner := middleware.UserIDFrom(r.Context())
	if kind == domain.AssetKindUnique {
		err = h.unique.SetApprovalForAll(r.Context(), owner, req.Collection, req.Operator, req.Approved)
	} else {
		err = h.fungible.SetApprovalForAll(r.Context(), owner, req.Collection, req.Operator, req.Approved)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	req.AssetKind = string(kind)
	writeJSON(w, http.StatusOK, req)
}
