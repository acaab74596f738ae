package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	stockapp "github.com/openpos/settlement/internal/application/stock"
	"github.com/openpos/settlement/internal/domain/stock"
	"github.com/openpos/settlement/internal/interfaces/http/middleware"
	"github.com/openpos/settlement/internal/interfaces/http/router"
)

type stockRig struct {
	engine *gin.Engine
	repo   *fakeStockRepo
}

func newStockRig(t *testing.T) *stockRig {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newFakeStockRepo()
	service := stockapp.NewService(repo, nopPublisher{}, zap.NewNop())

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.New(engine).Register(NewStockHandler(service)).Setup()

	return &stockRig{engine: engine, repo: repo}
}

func (rig *stockRig) adjust(t *testing.T, productID, locationID uuid.UUID, delta, unitPrice float64) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, rig.engine, http.MethodPost, "/api/v1/stock/adjust", map[string]any{
		"product_id":  productID.String(),
		"location_id": locationID.String(),
		"delta":       delta,
		"unit_price":  unitPrice,
	})
}

func TestStockAdjustEndpoint(t *testing.T) {
	rig := newStockRig(t)
	productID, locationID := uuid.New(), uuid.New()

	w := rig.adjust(t, productID, locationID, 50, 9)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "50", data["quantity"])

	balance, err := rig.repo.FindByProductAndLocation(context.Background(), productID, locationID)
	require.NoError(t, err)
	assert.True(t, balance.TotalValue.Equal(decimal.NewFromInt(450)))
}

func TestStockAdjustEndpointRejectsOversell(t *testing.T) {
	rig := newStockRig(t)
	productID, locationID := uuid.New(), uuid.New()

	require.Equal(t, http.StatusOK, rig.adjust(t, productID, locationID, 5, 9).Code)

	w := rig.adjust(t, productID, locationID, -8, 9)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
}

func TestStockThresholdAndLowStockEndpoints(t *testing.T) {
	rig := newStockRig(t)
	productID, locationID := uuid.New(), uuid.New()

	require.Equal(t, http.StatusOK, rig.adjust(t, productID, locationID, 3, 9).Code)

	w := doRequest(t, rig.engine, http.MethodPut, "/api/v1/stock/thresholds", map[string]any{
		"product_id":   productID.String(),
		"location_id":  locationID.String(),
		"min_quantity": 10,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, true, resp.Data.(map[string]any)["below_minimum"])

	w = doRequest(t, rig.engine, http.MethodGet, "/api/v1/stock/balances/low", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
}

func TestStockBalanceLookupEndpoints(t *testing.T) {
	rig := newStockRig(t)
	productID, locationID := uuid.New(), uuid.New()

	// Unknown pair reports zero quantity, not 404
	w := doRequest(t, rig.engine, http.MethodGet,
		"/api/v1/stock/balance?product_id="+productID.String()+"&location_id="+locationID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "0", resp.Data.(map[string]any)["quantity"])

	w = doRequest(t, rig.engine, http.MethodGet, "/api/v1/stock/balance?product_id=junk", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	b, err := stock.NewBalance(productID, locationID)
	require.NoError(t, err)
	require.NoError(t, b.Adjust(decimal.NewFromInt(12), mustMoney(4)))
	require.NoError(t, rig.repo.Save(context.Background(), b))

	w = doRequest(t, rig.engine, http.MethodGet, "/api/v1/stock/balances", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeResponse(t, w)
	assert.Equal(t, int64(1), resp.Meta.Total)
}
