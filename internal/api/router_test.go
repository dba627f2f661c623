package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/auth"
	"github.com/wms-platform/slotting-simulator/pkg/contracts/openapi"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
)

var jwtSecret = []byte("router-secret")

type stubStock struct {
	created []time.Time
}

func (s *stubStock) CreateStock(ctx context.Context, date time.Time) error {
	s.created = append(s.created, date)
	return nil
}

func (s *stubStock) UpdateStock(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	return domain.MultipleRearrangementResult{}, nil
}

func (s *stubStock) RearrangeToExistingSlots(ctx context.Context) error { return nil }

func (s *stubStock) RecoverCapacity(ctx context.Context) (domain.MultipleRearrangementResult, error) {
	return domain.MultipleRearrangementResult{}, nil
}

type stubPicklists struct{}

func (stubPicklists) ReserveDay(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	return domain.MultipleRearrangementResult{}, nil
}

func (stubPicklists) Picklists(ctx context.Context, date time.Time, better bool, count int, seed int64) ([]domain.Picklist, error) {
	return []domain.Picklist{}, nil
}

func (stubPicklists) RouteLengths(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error) {
	return lists, nil
}

func newTestRouter(t *testing.T, stock *stubStock) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	contract, err := openapi.NewValidator("../../api/openapi.yaml")
	require.NoError(t, err)

	return NewRouter(RouterConfig{
		ServiceName: "slotting-simulator",
		Logger:      logging.Discard(),
		Metrics:     metrics.New(metrics.DefaultConfig("slotting-simulator")),
		JWTSecret:   jwtSecret,
		Contract:    contract,
		ReadinessChecks: map[string]func(ctx context.Context) error{
			"store": func(context.Context) error { return nil },
		},
	}, Services{
		Stock:     stock,
		Picklists: stubPicklists{},
	})
}

func perform(router *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubStock{})

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/ready", "").Code)

	perform(router, http.MethodGet, "/api/picklist/get-picklists?date=2022-11-07", "")
	w := perform(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	stock := &stubStock{}
	router := newTestRouter(t, stock)

	w := perform(router, http.MethodPost, "/api/stock/create-stock?date=2022-11-07", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewer, err := auth.IssueToken(jwtSecret, "analyst", auth.RoleViewer, time.Hour)
	require.NoError(t, err)
	w = perform(router, http.MethodPost, "/api/stock/create-stock?date=2022-11-07", viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := auth.IssueToken(jwtSecret, "planner", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	w = perform(router, http.MethodPost, "/api/stock/create-stock?date=2022-11-07", admin)
	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, stock.created, 1)
	assert.Equal(t, time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC), stock.created[0])

	w = perform(router, http.MethodGet, "/api/picklist/get-picklists?date=2022-11-07", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ContractValidation(t *testing.T) {
	router := newTestRouter(t, &stubStock{})

	w := perform(router, http.MethodGet, "/api/picklist/get-picklists?date=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"date"`)

	w = perform(router, http.MethodGet, "/api/picklist/get-picklists?date=2022-11-07&count=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ReadinessFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{
		ServiceName: "slotting-simulator",
		Logger:      logging.Discard(),
		ReadinessChecks: map[string]func(ctx context.Context) error{
			"runs": func(context.Context) error { return errors.New("mongodb unreachable") },
		},
	}, Services{})

	w := perform(router, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "mongodb unreachable")
}
