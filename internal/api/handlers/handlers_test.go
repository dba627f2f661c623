package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

type mockSimulationService struct {
	simulatePickingFn      func(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error)
	getRunFn               func(ctx context.Context, runID string) (*domain.SimulationRun, error)
	listRunsFn             func(ctx context.Context, limit int) ([]*domain.SimulationRun, error)
	getDistancesFn         func(ctx context.Context, pairs []domain.DistanceResult) ([]domain.DistanceResult, error)
	calculatePickSpeedFn   func(ctx context.Context) (float64, error)
	saleFigureStatisticsFn func(ctx context.Context) (*domain.SaleFigureStatistics, error)
}

func (m *mockSimulationService) SimulatePicking(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
	if m.simulatePickingFn == nil {
		panic("SimulatePicking not implemented")
	}
	return m.simulatePickingFn(ctx, req)
}

func (m *mockSimulationService) GetRun(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	if m.getRunFn == nil {
		panic("GetRun not implemented")
	}
	return m.getRunFn(ctx, runID)
}

func (m *mockSimulationService) ListRuns(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	if m.listRunsFn == nil {
		panic("ListRuns not implemented")
	}
	return m.listRunsFn(ctx, limit)
}

func (m *mockSimulationService) GetDistances(ctx context.Context, pairs []domain.DistanceResult) ([]domain.DistanceResult, error) {
	if m.getDistancesFn == nil {
		panic("GetDistances not implemented")
	}
	return m.getDistancesFn(ctx, pairs)
}

func (m *mockSimulationService) CalculatePickSpeed(ctx context.Context) (float64, error) {
	if m.calculatePickSpeedFn == nil {
		panic("CalculatePickSpeed not implemented")
	}
	return m.calculatePickSpeedFn(ctx)
}

func (m *mockSimulationService) SaleFigureStatistics(ctx context.Context) (*domain.SaleFigureStatistics, error) {
	if m.saleFigureStatisticsFn == nil {
		panic("SaleFigureStatistics not implemented")
	}
	return m.saleFigureStatisticsFn(ctx)
}

type mockRunStarter struct {
	startFn func(ctx context.Context, req domain.SimulationRequest) (string, string, error)
}

func (m *mockRunStarter) Start(ctx context.Context, req domain.SimulationRequest) (string, string, error) {
	return m.startFn(ctx, req)
}

type mockPicklistService struct {
	reserveDayFn   func(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error)
	picklistsFn    func(ctx context.Context, date time.Time, better bool, count int, seed int64) ([]domain.Picklist, error)
	routeLengthsFn func(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error)
}

func (m *mockPicklistService) ReserveDay(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	if m.reserveDayFn == nil {
		panic("ReserveDay not implemented")
	}
	return m.reserveDayFn(ctx, date)
}

func (m *mockPicklistService) Picklists(ctx context.Context, date time.Time, better bool, count int, seed int64) ([]domain.Picklist, error) {
	if m.picklistsFn == nil {
		panic("Picklists not implemented")
	}
	return m.picklistsFn(ctx, date, better, count, seed)
}

func (m *mockPicklistService) RouteLengths(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error) {
	if m.routeLengthsFn == nil {
		panic("RouteLengths not implemented")
	}
	return m.routeLengthsFn(ctx, lists)
}

type mockStockService struct {
	createStockFn     func(ctx context.Context, date time.Time) error
	updateStockFn     func(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error)
	rearrangeFn       func(ctx context.Context) error
	recoverCapacityFn func(ctx context.Context) (domain.MultipleRearrangementResult, error)
}

func (m *mockStockService) CreateStock(ctx context.Context, date time.Time) error {
	if m.createStockFn == nil {
		panic("CreateStock not implemented")
	}
	return m.createStockFn(ctx, date)
}

func (m *mockStockService) UpdateStock(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	if m.updateStockFn == nil {
		panic("UpdateStock not implemented")
	}
	return m.updateStockFn(ctx, date)
}

func (m *mockStockService) RearrangeToExistingSlots(ctx context.Context) error {
	if m.rearrangeFn == nil {
		panic("RearrangeToExistingSlots not implemented")
	}
	return m.rearrangeFn(ctx)
}

func (m *mockStockService) RecoverCapacity(ctx context.Context) (domain.MultipleRearrangementResult, error) {
	if m.recoverCapacityFn == nil {
		panic("RecoverCapacity not implemented")
	}
	return m.recoverCapacityFn(ctx)
}

type mockArticleService struct {
	getAttributesFn        func(ctx context.Context, ids []string, useContentAPI bool) ([]domain.ArticleAttributes, error)
	calculatePalletSizesFn func(ctx context.Context) error
}

func (m *mockArticleService) GetAttributes(ctx context.Context, ids []string, useContentAPI bool) ([]domain.ArticleAttributes, error) {
	if m.getAttributesFn == nil {
		panic("GetAttributes not implemented")
	}
	return m.getAttributesFn(ctx, ids, useContentAPI)
}

func (m *mockArticleService) CalculatePalletSizes(ctx context.Context) error {
	if m.calculatePalletSizesFn == nil {
		panic("CalculatePalletSizes not implemented")
	}
	return m.calculatePalletSizesFn(ctx)
}

type testServices struct {
	simulation *mockSimulationService
	starter    RunStarter
	picklists  *mockPicklistService
	stock      *mockStockService
	articles   *mockArticleService
}

func newTestRouter(services testServices) *gin.Engine {
	gin.SetMode(gin.TestMode)
	Register()

	logger := logging.Discard()
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig("test", logger))
	api := router.Group("/api")

	if services.simulation == nil {
		services.simulation = &mockSimulationService{}
	}
	NewSimulationHandlers(services.simulation, services.starter, logger).RegisterRoutes(api, nil)
	if services.picklists == nil {
		services.picklists = &mockPicklistService{}
	}
	NewPicklistHandlers(services.picklists, logger).RegisterRoutes(api, nil)
	if services.stock == nil {
		services.stock = &mockStockService{}
	}
	NewStockHandlers(services.stock, logger).RegisterRoutes(api, nil)
	if services.articles == nil {
		services.articles = &mockArticleService{}
	}
	NewArticleHandlers(services.articles, logger).RegisterRoutes(api, nil)
	return router
}

func perform(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.APIErrorResponse {
	t.Helper()
	var body middleware.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

var monday = time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC)

func TestSimulatePicking(t *testing.T) {
	var received domain.SimulationRequest
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		simulatePickingFn: func(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
			received = req
			run := domain.NewSimulationRun("run-1", req)
			run.Results = append(run.Results, domain.SimulationResult{Date: req.StartDate, Length: 42, PicklistCount: 2})
			return run, nil
		},
	}})

	w := perform(router, http.MethodPost,
		"/api/simulation/simulate-picking?strategy=classes&date=2022-11-07&numberOfDays=3&betterPicklists=true&seed=7", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-1", w.Header().Get("X-Simulation-Run-ID"))
	assert.Equal(t, domain.StrategyClasses, received.Strategy)
	assert.Equal(t, monday, received.StartDate)
	assert.Equal(t, 3, received.NumberOfDays)
	assert.Equal(t, 2, received.NumberOfClasses)
	assert.True(t, received.BetterPicklists)
	assert.Equal(t, int64(7), received.Seed)

	var results []domain.SimulationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 42.0, results[0].Length)
}

func TestSimulatePicking_InvalidQuery(t *testing.T) {
	router := newTestRouter(testServices{})

	w := perform(router, http.MethodPost,
		"/api/simulation/simulate-picking?strategy=Fastest&date=07.11.2022&numberOfDays=0", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "must be a known slotting strategy", body.Details["strategy"])
	assert.Contains(t, body.Details, "date")
	assert.Equal(t, "is required", body.Details["numberOfDays"])
}

func TestSimulatePicking_DomainError(t *testing.T) {
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		simulatePickingFn: func(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
			return nil, fmt.Errorf("day 2: %w", domain.ErrCapacityExhausted)
		},
	}})

	w := perform(router, http.MethodPost,
		"/api/simulation/simulate-picking?strategy=Random&date=2022-11-07&numberOfDays=3", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStartRun(t *testing.T) {
	w := perform(newTestRouter(testServices{}), http.MethodPost,
		"/api/simulation/runs?strategy=Random&date=2022-11-07&numberOfDays=3", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	router := newTestRouter(testServices{starter: &mockRunStarter{
		startFn: func(ctx context.Context, req domain.SimulationRequest) (string, string, error) {
			return "run-9", "simulation-run-9", nil
		},
	}})
	w = perform(router, http.MethodPost, "/api/simulation/runs?strategy=Random&date=2022-11-07&numberOfDays=3", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	var started RunStarted
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.Equal(t, RunStarted{RunID: "run-9", WorkflowID: "simulation-run-9"}, started)
}

func TestGetRun_NotFound(t *testing.T) {
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		getRunFn: func(ctx context.Context, runID string) (*domain.SimulationRun, error) {
			return nil, fmt.Errorf("run %s: %w", runID, domain.ErrRunNotFound)
		},
	}})

	w := perform(router, http.MethodGet, "/api/simulation/runs/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decodeError(t, w).Code)
}

func TestListRuns(t *testing.T) {
	var limit int
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		listRunsFn: func(ctx context.Context, l int) ([]*domain.SimulationRun, error) {
			limit = l
			return nil, nil
		},
	}})

	w := perform(router, http.MethodGet, "/api/simulation/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, limit)
	assert.JSONEq(t, "[]", w.Body.String())

	w = perform(router, http.MethodGet, "/api/simulation/runs?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportRun(t *testing.T) {
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		getRunFn: func(ctx context.Context, runID string) (*domain.SimulationRun, error) {
			run := domain.NewSimulationRun(runID, domain.SimulationRequest{Strategy: domain.StrategyRandom, StartDate: monday, NumberOfDays: 1})
			run.Results = append(run.Results, domain.SimulationResult{Date: monday, Length: 10})
			run.Complete()
			return run, nil
		},
	}})

	w := perform(router, http.MethodGet, "/api/simulation/runs/run-1/export?format=pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "simulation-run-1.pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))

	w = perform(router, http.MethodGet, "/api/simulation/runs/run-1/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

	w = perform(router, http.MethodGet, "/api/simulation/runs/run-1/export?format=csv", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDistances(t *testing.T) {
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		getDistancesFn: func(ctx context.Context, pairs []domain.DistanceResult) ([]domain.DistanceResult, error) {
			for i := range pairs {
				pairs[i].Distance = 120
				pairs[i].Speed = 120 / float64(pairs[i].Time)
			}
			return pairs, nil
		},
	}})

	w := perform(router, http.MethodPost, "/api/simulation/get-distances",
		`[{"origin":"11-1-48;1;1","destination":"11-1-48;2;1","time":60}]`)
	require.Equal(t, http.StatusOK, w.Code)

	var result []domain.DistanceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result, 1)
	assert.Equal(t, 2.0, result[0].Speed)

	w = perform(router, http.MethodPost, "/api/simulation/get-distances", `{"origin":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatistics(t *testing.T) {
	router := newTestRouter(testServices{simulation: &mockSimulationService{
		calculatePickSpeedFn: func(ctx context.Context) (float64, error) { return 1.5, nil },
		saleFigureStatisticsFn: func(ctx context.Context) (*domain.SaleFigureStatistics, error) {
			return &domain.SaleFigureStatistics{IntersectionCount: 3, AverageRankDisplacement: 2.5}, nil
		},
	}})

	w := perform(router, http.MethodGet, "/api/simulation/calculate-pick-speed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.5", w.Body.String())

	w = perform(router, http.MethodGet, "/api/simulation/sale-figure-statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"intersectionCount":3,"averageRankDisplacement":2.5}`, w.Body.String())
}

func TestPicklists(t *testing.T) {
	var gotDate time.Time
	var gotCount int
	router := newTestRouter(testServices{picklists: &mockPicklistService{
		reserveDayFn: func(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
			gotDate = date
			return domain.MultipleRearrangementResult{HighToGround: domain.RearrangementResult{Count: 2, Length: 30}}, nil
		},
		picklistsFn: func(ctx context.Context, date time.Time, better bool, count int, seed int64) ([]domain.Picklist, error) {
			gotCount = count
			return nil, nil
		},
		routeLengthsFn: func(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error) {
			for i := range lists {
				lists[i].Length = float64(len(lists[i].Entries)) * 10
			}
			return lists, nil
		},
	}})

	w := perform(router, http.MethodPost, "/api/picklist/set-reservations?date=2022-11-07", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, monday, gotDate)
	assert.JSONEq(t, `{"highzoneGroundzone":{"count":2,"length":30},"groundzoneGroundzone":{"count":0,"length":0}}`, w.Body.String())

	w = perform(router, http.MethodPost, "/api/picklist/set-reservations", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/api/picklist/get-picklists?date=2022-11-07&count=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotCount)
	assert.JSONEq(t, "[]", w.Body.String())

	w = perform(router, http.MethodPost, "/api/picklist/get-lengths-for-picklists",
		`[{"entries":[{"slotCode":"11-1-48;1;1"},{"slotCode":"11-1-48;2;1"}]}]`)
	require.Equal(t, http.StatusOK, w.Code)
	var lists []domain.Picklist
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lists))
	require.Len(t, lists, 1)
	assert.Equal(t, 20.0, lists[0].Length)
}

func TestStockCommands(t *testing.T) {
	var created time.Time
	rearranged := false
	router := newTestRouter(testServices{stock: &mockStockService{
		createStockFn: func(ctx context.Context, date time.Time) error {
			created = date
			return nil
		},
		updateStockFn: func(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
			return domain.MultipleRearrangementResult{}, domain.ErrCapacityExhausted
		},
		rearrangeFn: func(ctx context.Context) error {
			rearranged = true
			return nil
		},
		recoverCapacityFn: func(ctx context.Context) (domain.MultipleRearrangementResult, error) {
			return domain.MultipleRearrangementResult{GroundToGround: domain.RearrangementResult{Count: 4, Length: 12}}, nil
		},
	}})

	w := perform(router, http.MethodPost, "/api/stock/create-stock?date=2022-11-07", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, monday, created)

	w = perform(router, http.MethodPost, "/api/stock/update-stock?date=2022-11-07", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = perform(router, http.MethodPost, "/api/stock/rearrange", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, rearranged)

	w = perform(router, http.MethodPost, "/api/stock/recover-capacity", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"groundzoneGroundzone":{"count":4,"length":12}`)
}

func TestGetAttributes(t *testing.T) {
	var gotIDs []string
	var gotContent bool
	router := newTestRouter(testServices{articles: &mockArticleService{
		getAttributesFn: func(ctx context.Context, ids []string, useContentAPI bool) ([]domain.ArticleAttributes, error) {
			gotIDs = ids
			gotContent = useContentAPI
			if useContentAPI {
				return nil, domain.ErrContentAPIDisabled
			}
			return []domain.ArticleAttributes{
				domain.NewArticleAttributes(decimal.NewFromInt(10), decimal.NewFromInt(20), decimal.NewFromInt(30)),
			}, nil
		},
		calculatePalletSizesFn: func(ctx context.Context) error { return nil },
	}})

	w := perform(router, http.MethodGet, "/api/article/get-attributes/100_1,200_2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"100_1", "200_2"}, gotIDs)
	assert.False(t, gotContent)

	var attributes []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &attributes))
	require.Len(t, attributes, 1)
	assert.Equal(t, "200", attributes[0]["footprintMin"])
	assert.Equal(t, "600", attributes[0]["footprintMax"])

	w = perform(router, http.MethodGet, "/api/article/get-attributes/100_1?useContentApi=true", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = perform(router, http.MethodPost, "/api/article/calculate-pallet-sizes", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
