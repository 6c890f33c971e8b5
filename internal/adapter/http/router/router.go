package router

import (
	"net/http"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// New builds the marketplace HTTP API.
func New(lh *handler.ListingHandler, ah *handler.AdminHandler, sh *handler.AssetHandler, m *metrics.MetricsManager, jwtSecret string, log *logger.Logger) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Tracing)
	mux.Use(middleware.Logger(log))
	mux.Use(middleware.Metrics(m))

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	SetupListingRoutes(mux, lh, jwtSecret, log)
	SetupAdminRoutes(mux, ah, jwtSecret, log)
	SetupAssetRoutes(mux, sh, jwtSecret, log)
	return mux
}

func SetupListingRoutes(mux *chi.Mux, h *handler.ListingHandler, jwtSecret string, log *logger.Logger) {
	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, log))

		r.Post("/api/listings", h.HandleCreateListing)
		r.Delete("/api/listings/{collection}/{assetID}", h.HandleCancelListing)
		r.Patch("/api/listings/{collection}/{assetID}/price", h.HandleUpdatePrice)
		r.Post("/api/listings/{collection}/{assetID}/purchase", h.HandlePurchase)
	})

	mux.Get("/api/listings/{collection}/{assetID}", h.HandleGetListing)
	mux.Get("/api/collections/{collection}/listings", h.HandleListCollection)
}

func SetupAdminRoutes(mux *chi.Mux, h *handler.AdminHandler, jwtSecret string, log *logger.Logger) {
	mux.Get("/api/admin/status", h.HandleStatus)

	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, log))

		r.Post("/api/admin/pause", h.HandlePause)
		r.Post("/api/admin/unpause", h.HandleUnpause)
		r.Post("/api/admin/roles", h.HandleSetRole)
		r.Post("/api/admin/owner", h.HandleTransferOwnership)

		r.Post("/api/wallet/deposit", h.HandleDeposit)
		r.Get("/api/wallet/balance", h.HandleBalance)
	})
}

func SetupAssetRoutes(mux *chi.Mux, h *handler.AssetHandler, jwtSecret string, log *logger.Logger) {
	mux.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret, log))

		r.Post("/api/assets/mint", h.HandleMint)
		r.Post("/api/assets/approval", h.HandleSetApproval)
	})
}
