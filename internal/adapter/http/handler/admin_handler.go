package handler

import (
	"context"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"go.uber.org/zap"
)

// Admin manages the pause switch, roles and ownership.
type Admin interface {
	IsPaused() bool
	Owner() string
	Pause(caller string) error
	Unpause(caller string) error
	GrantRole(caller string, role domain.Role, principal string) error
	RevokeRole(caller string, role domain.Role, principal string) error
	TransferOwnership(caller, newOwner string) error
}

// Wallet is the settlement ledger as seen by principals.
type Wallet interface {
	Deposit(ctx context.Context, principal string, amount int64) (int64, error)
	Balance(ctx context.Context, principal string) int64
}

type AdminHandler struct {
	admin  Admin
	wallet Wallet
	logger *logger.Logger
}

func NewAdminHandler(admin Admin, wallet Wallet, log *logger.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, wallet: wallet, logger: log.Named("AdminHandler")}
}

type statusResponse struct {
	Paused bool   `json:"paused"`
	Owner  string `json:"owner"`
}

func (h *AdminHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Paused: h.admin.IsPaused(), Owner: h.admin.Owner()})
}

func (h *AdminHandler) HandlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Pause(middleware.UserIDFrom(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

func (h *AdminHandler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Unpause(middleware.UserIDFrom(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

type roleRequest struct {
	Role      string `json:"role"`
	Principal string `json:"principal"`
	Grant     bool   `json:"grant"`
}

func (h *AdminHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller := middleware.UserIDFrom(r.Context())
	role := domain.Role(req.Role)

	var err error
	if req.Grant {
		err = h.admin.GrantRole(caller, role, req.Principal)
	} else {
		err = h.admin.RevokeRole(caller, role, req.Principal)
	}
	if err != nil {
		h.logger.Warn("Role change rejected", zap.String("caller", caller), zap.String("role", req.Role), zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type ownerRequest struct {
	NewOwner string `json:"new_owner"`
}

func (h *AdminHandler) HandleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.admin.TransferOwnership(middleware.UserIDFrom(r.Context()), req.NewOwner); err != nil {
		writeDomainError(w, err)
		return
	}
	h.HandleStatus(w, r)
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

type balanceResponse struct {
	Principal string `json:"principal"`
	Balance   int64  `json:"balance"`
}

func (h *AdminHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	principal := middleware.UserIDFrom(r.Context())
	balance, err := h.wallet.Deposit(r.Context(), principal, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Principal: principal, Balance: balance})
}

func (h *AdminHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	principal := middleware.UserIDFrom(r.Context())
	writeJSON(w, http.StatusOK, balanceResponse{Principal: principal, Balance: h.wallet.Balance(r.Context(), principal)})
}
