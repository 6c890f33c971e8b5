package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/usecase"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Exchange is the part of the usecase layer the listing handler drives.
type Exchange interface {
	List(ctx context.Context, in usecase.ListInput) (*domain.Listing, error)
	Cancel(ctx context.Context, caller, collection, assetID string) (*domain.Listing, error)
	UpdatePrice(ctx context.Context, caller, collection, assetID string, newPrice int64) (*domain.Listing, error)
	Purchase(ctx context.Context, in usecase.PurchaseInput) (*usecase.PurchaseResult, error)
	GetListing(ctx context.Context, collection, assetID string) (*domain.Listing, error)
	ListByCollection(ctx context.Context, collection string) ([]*domain.Listing, error)
}

type ListingHandler struct {
	exchange Exchange
	metrics  *metrics.MetricsManager
	logger   *logger.Logger
}

func NewListingHandler(exchange Exchange, m *metrics.MetricsManager, log *logger.Logger) *ListingHandler {
	return &ListingHandler{exchange: exchange, metrics: m, logger: log.Named("ListingHandler")}
}

type ListingResponse struct {
	Collection      string    `json:"collection"`
	AssetID         string    `json:"asset_id"`
	Seller          string    `json:"seller"`
	AssetKind       string    `json:"asset_kind"`
	UnitPrice       int64     `json:"unit_price"`
	RemainingAmount int64     `json:"remaining_amount"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toListingResponse(l *domain.Listing) ListingResponse {
	return ListingResponse{
		Collection:      l.Collection,
		AssetID:         l.AssetID,
		Seller:          l.Seller,
		AssetKind:       string(l.AssetKind),
		UnitPrice:       l.UnitPrice,
		RemainingAmount: l.RemainingAmount,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

type createListingRequest struct {
	Collection string `json:"collection"`
	AssetID    string `json:"asset_id"`
	AssetKind  string `json:"asset_kind"`
	Amount     int64  `json:"amount"`
	UnitPrice  int64  `json:"unit_price"`
}

func (h *ListingHandler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decode(r, &req); err != nil {
		h.logger.Warn("Failed to decode request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := domain.ParseAssetKind(req.AssetKind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	l, err := h.exchange.List(r.Context(), usecase.ListInput{
		Seller:     middleware.UserIDFrom(r.Context()),
		Collection: req.Collection,
		AssetID:    req.AssetID,
		AssetKind:  kind,
		Amount:     req.Amount,
		UnitPrice:  req.UnitPrice,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.metrics.ListingsCreated.Inc()
	writeJSON(w, http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) HandleCancelListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.exchange.Cancel(r.Context(), middleware.UserIDFrom(r.Context()),
		chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.metrics.ListingsCanceled.Inc()
	writeJSON(w, http.StatusOK, toListingResponse(l))
}

type updatePriceRequest struct {
	UnitPrice int64 `json:"unit_price"`
}

func (h *ListingHandler) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l, err := h.exchange.UpdatePrice(r.Context(), middleware.UserIDFrom(r.Context()),
		chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"), req.UnitPrice)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.metrics.PriceUpdates.Inc()
	writeJSON(w, http.StatusOK, toListingResponse(l))
}

type purchaseRequest struct {
	Recipient string `json:"recipient,omitempty"`
	Amount    int64  `json:"amount"`
	Payment   int64  `json:"payment"`
}

type PurchaseResponse struct {
	Collection      string `json:"collection"`
	AssetID         string `json:"asset_id"`
	Seller          string `json:"seller"`
	Amount          int64  `json:"amount"`
	RemainingAmount int64  `json:"remaining_amount"`
	PaymentID       string `json:"payment_id"`
	Paid            int64  `json:"paid"`
}

func (h *ListingHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.exchange.Purchase(r.Context(), usecase.PurchaseInput{
		Buyer:      middleware.UserIDFrom(r.Context()),
		Recipient:  req.Recipient,
		Collection: chi.URLParam(r, "collection"),
		AssetID:    chi.URLParam(r, "assetID"),
		Amount:     req.Amount,
		Payment:    req.Payment,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	kind := string(res.Listing.AssetKind)
	h.metrics.Purchases.WithLabelValues(kind).Inc()
	h.metrics.UnitsSold.WithLabelValues(kind).Add(float64(res.Amount))

	writeJSON(w, http.StatusOK, PurchaseResponse{
		Collection:      res.Listing.Collection,
		AssetID:         res.Listing.AssetID,
		Seller:          res.Listing.Seller,
		Amount:          res.Amount,
		RemainingAmount: res.RemainingAmount,
		PaymentID:       res.Payment.ID,
		Paid:            res.Payment.Amount,
	})
}

func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.exchange.GetListing(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "assetID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) HandleListCollection(w http.ResponseWriter, r *http.Request) {
	listings, err := h.exchange.ListByCollection(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listings": out})
}
