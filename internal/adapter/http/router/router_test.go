package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/access"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/asset"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/eventlog"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/handler"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/adapter/settlement"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret"
	testOperator = "marketplace"
)

type testAPI struct {
	srv      *httptest.Server
	unique   *asset.UniqueRegistry
	fungible *asset.FungibleRegistry
	events   *eventlog.Recorder
	metrics  *metrics.MetricsManager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logger.NewNop()
	unique := asset.NewUniqueRegistry()
	fungible := asset.NewFungibleRegistry()
	ledger := settlement.NewLedger(log)
	gate := access.NewGate("owner", log)
	events := eventlog.NewRecorder()
	m := metrics.NewMetricsManager("marketplace-test")

	uc := usecase.NewExchangeUsecase(memory.NewListingStore(), nil, asset.NewResolver(unique, fungible), ledger, gate, events, testOperator, log)
	mux := New(handler.NewListingHandler(uc, m, log), handler.NewAdminHandler(gate, ledger, log),
		handler.NewAssetHandler(unique, fungible, gate, log), m, testSecret, log)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, unique: unique, fungible: fungible, events: events, metrics: m}
}

func token(t *testing.T, userID string, secret string, ttl time.Duration) string {
	t.Helper()
	claims := middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func (a *testAPI) do(t *testing.T, method, path, user string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user, testSecret, time.Hour))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAPI_ListBuyFlow(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, api.fungible.Mint(ctx, "C", "1", "alice", 10))
	require.NoError(t, api.fungible.SetApprovalForAll(ctx, "alice", "C", testOperator, true))

	resp, body := api.do(t, http.MethodPost, "/api/listings", "alice", map[string]interface{}{
		"collection": "C", "asset_id": "1", "asset_kind": "fungible", "amount": 10, "unit_price": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Equal(t, "alice", body["seller"])

	resp, body = api.do(t, http.MethodPost, "/api/wallet/deposit", "bob", map[string]interface{}{"amount": 100})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 100, body["balance"])

	resp, body = api.do(t, http.MethodPost, "/api/listings/C/1/purchase", "bob", map[string]interface{}{"amount": 4, "payment": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 6, body["remaining_amount"])
	assert.EqualValues(t, 20, body["paid"])

	resp, body = api.do(t, http.MethodGet, "/api/listings/C/1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 6, body["remaining_amount"])

	resp, body = api.do(t, http.MethodPost, "/api/listings/C/1/purchase", "bob", map[string]interface{}{"amount": 7, "payment": 35})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ErrAmountGreaterThanListedAmount.Error(), body["error"])

	resp, body = api.do(t, http.MethodGet, "/api/collections/C/listings", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["listings"], 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(api.metrics.ListingsCreated))
	assert.Equal(t, 4.0, testutil.ToFloat64(api.metrics.UnitsSold.WithLabelValues("fungible")))
	assert.Len(t, api.events.OfType(domain.EventBought), 1)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()
	require.NoError(t, api.unique.Mint(ctx, "C", "1", "alice"))
	require.NoError(t, api.unique.SetApprovalForAll(ctx, "alice", "C", testOperator, true))

	resp, _ := api.do(t, http.MethodGet, "/api/listings/C/1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/listings", "bob", map[string]interface{}{
		"collection": "C", "asset_id": "1", "asset_kind": "unique", "amount": 1, "unit_price": 5,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/listings", "alice", map[string]interface{}{
		"collection": "C", "asset_id": "1", "asset_kind": "semi", "amount": 1, "unit_price": 5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/listings", "alice", map[string]interface{}{
		"collection": "C", "asset_id": "1", "asset_kind": "unique", "amount": 1, "unit_price": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/listings", "alice", map[string]interface{}{
		"collection": "C", "asset_id": "1", "asset_kind": "unique", "amount": 1, "unit_price": 5,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/listings/C/1/purchase", "bob", map[string]interface{}{"amount": 1, "payment": 4})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPatch, "/api/listings/C/1/price", "bob", map[string]interface{}{"unit_price": 9})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/listings", "alice", map[string]interface{}{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_RequiresValidToken(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodDelete, "/api/listings/C/1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for name, tok := range map[string]string{
		"wrong secret": token(t, "alice", "other-secret", time.Hour),
		"expired":      token(t, "alice", testSecret, -time.Minute),
		"no user id":   token(t, "", testSecret, time.Hour),
	} {
		req, err := http.NewRequest(http.MethodDelete, api.srv.URL+"/api/listings/C/1", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestAPI_AdminPauseAndRoles(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodPost, "/api/admin/pause", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := api.do(t, http.MethodPost, "/api/admin/roles", "owner", map[string]interface{}{"role": "pauser", "principal": "pat", "grant": true})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = api.do(t, http.MethodPost, "/api/admin/pause", "pat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["paused"])

	resp, _ = api.do(t, http.MethodPost, "/api/listings", "alice", map[string]interface{}{
		"collection": "C", "asset_id": "1", "asset_kind": "unique", "amount": 1, "unit_price": 5,
	})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp, _ = api.do(t, http.MethodPost, "/api/admin/unpause", "pat", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "pausers cannot unpause")

	resp, body = api.do(t, http.MethodPost, "/api/admin/unpause", "owner", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["paused"])

	resp, body = api.do(t, http.MethodPost, "/api/admin/owner", "owner", map[string]interface{}{"new_owner": "olga"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "olga", body["owner"])

	resp, body = api.do(t, http.MethodGet, "/api/admin/status", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "olga", body["owner"])
}

func TestAPI_MintApproveAndList(t *testing.T) {
	api := newTestAPI(t)

	resp, _ := api.do(t, http.MethodPost, "/api/assets/mint", "alice", map[string]interface{}{
		"asset_kind": "unique", "collection": "C", "asset_id": "1", "holder": "alice",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "only administrators mint")

	resp, body := api.do(t, http.MethodPost, "/api/assets/mint", "owner", map[string]interface{}{
		"asset_kind": "unique", "collection": "C", "asset_id": "1", "holder": "alice",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.EqualValues(t, 1, body["amount"])

	listReq := map[string]interface{}{"collection": "C", "asset_id": "1", "asset_kind": "unique", "amount": 1, "unit_price": 5}
	resp, _ = api.do(t, http.MethodPost, "/api/listings", "alice", listReq)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "marketplace not approved yet")

	resp, body = api.do(t, http.MethodPost, "/api/assets/approval", "alice", map[string]interface{}{
		"asset_kind": "unique", "collection": "C", "operator": testOperator, "approved": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = api.do(t, http.MethodPost, "/api/listings", "alice", listReq)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
