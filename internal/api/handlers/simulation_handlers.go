package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/report"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

// SimulationService runs simulations and answers layout statistics
type SimulationService interface {
	SimulatePicking(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error)
	GetRun(ctx context.Context, runID string) (*domain.SimulationRun, error)
	ListRuns(ctx context.Context, limit int) ([]*domain.SimulationRun, error)
	GetDistances(ctx context.Context, pairs []domain.DistanceResult) ([]domain.DistanceResult, error)
	CalculatePickSpeed(ctx context.Context) (float64, error)
	SaleFigureStatistics(ctx context.Context) (*domain.SaleFigureStatistics, error)
}

// RunStarter starts a simulation as a durable workflow
type RunStarter interface {
	Start(ctx context.Context, req domain.SimulationRequest) (runID, workflowID string, err error)
}

// RunStarted is the response of an asynchronous simulation start
type RunStarted struct {
	RunID      string `json:"runId"`
	WorkflowID string `json:"workflowId"`
}

// SimulationHandlers contains handlers for simulation operations
type SimulationHandlers struct {
	service SimulationService
	starter RunStarter
	logger  *logging.Logger
}

// NewSimulationHandlers creates a new SimulationHandlers. starter may be nil
// when no workflow engine is configured.
func NewSimulationHandlers(service SimulationService, starter RunStarter, logger *logging.Logger) *SimulationHandlers {
	return &SimulationHandlers{
		service: service,
		starter: starter,
		logger:  logger.WithComponent("simulation-handlers"),
	}
}

// RegisterRoutes registers simulation routes. admin guards mutating routes.
func (h *SimulationHandlers) RegisterRoutes(router *gin.RouterGroup, admin gin.HandlerFunc) {
	admin = passThrough(admin)
	simulation := router.Group("/simulation")
	{
		simulation.POST("/simulate-picking", admin, h.SimulatePicking)
		simulation.GET("/runs", h.ListRuns)
		simulation.POST("/runs", admin, h.StartRun)
		simulation.GET("/runs/:id", h.GetRun)
		simulation.GET("/runs/:id/export", h.ExportRun)
		simulation.POST("/get-distances", h.GetDistances)
		simulation.GET("/calculate-pick-speed", h.CalculatePickSpeed)
		simulation.GET("/sale-figure-statistics", h.SaleFigureStatistics)
	}
}

func (h *SimulationHandlers) bindRequest(c *gin.Context) (domain.SimulationRequest, bool) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query SimulationQuery
	if appErr := middleware.BindQuery(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return domain.SimulationRequest{}, false
	}
	req, err := query.Request()
	if err != nil {
		responder.RespondWithError(err)
		return domain.SimulationRequest{}, false
	}

	middleware.AddSpanAttributes(c, map[string]any{
		"simulation.strategy": string(req.Strategy),
		"simulation.days":     req.NumberOfDays,
	})
	return req, true
}

// SimulatePicking runs a simulation and returns its day results
func (h *SimulationHandlers) SimulatePicking(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	run, err := h.service.SimulatePicking(c.Request.Context(), req)
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}

	c.Header("X-Simulation-Run-ID", run.ID)
	c.JSON(http.StatusOK, run.Results)
}

// StartRun starts a simulation workflow and returns immediately
func (h *SimulationHandlers) StartRun(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)
	if h.starter == nil {
		responder.RespondServiceUnavailable("workflow engine")
		return
	}

	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	runID, workflowID, err := h.starter.Start(c.Request.Context(), req)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusAccepted, RunStarted{RunID: runID, WorkflowID: workflowID})
}

// ListRuns returns the most recent runs
func (h *SimulationHandlers) ListRuns(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query RunsQuery
	if appErr := middleware.BindQuery(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	runs, err := h.service.ListRuns(c.Request.Context(), query.Limit)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	if runs == nil {
		runs = []*domain.SimulationRun{}
	}
	c.JSON(http.StatusOK, runs)
}

// GetRun returns a stored run
func (h *SimulationHandlers) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ExportRun renders a stored run as XLSX or PDF
func (h *SimulationHandlers) ExportRun(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	data, err := report.Build(run, format)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(run.ID)))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// GetDistances computes distance and speed for each pair
func (h *SimulationHandlers) GetDistances(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var pairs []domain.DistanceResult
	if appErr := middleware.BindAndValidate(c, &pairs); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.GetDistances(c.Request.Context(), pairs)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CalculatePickSpeed returns the historic pick speed
func (h *SimulationHandlers) CalculatePickSpeed(c *gin.Context) {
	speed, err := h.service.CalculatePickSpeed(c.Request.Context())
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, speed)
}

// SaleFigureStatistics compares historic and actual top sellers
func (h *SimulationHandlers) SaleFigureStatistics(c *gin.Context) {
	stats, err := h.service.SaleFigureStatistics(c.Request.Context())
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
