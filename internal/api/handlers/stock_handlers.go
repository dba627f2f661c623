package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

// StockService maintains warehouse holdings
type StockService interface {
	CreateStock(ctx context.Context, date time.Time) error
	UpdateStock(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error)
	RearrangeToExistingSlots(ctx context.Context) error
	RecoverCapacity(ctx context.Context) (domain.MultipleRearrangementResult, error)
}

// StockHandlers contains handlers for stock maintenance
type StockHandlers struct {
	service StockService
	logger  *logging.Logger
}

// NewStockHandlers creates a new StockHandlers
func NewStockHandlers(service StockService, logger *logging.Logger) *StockHandlers {
	return &StockHandlers{
		service: service,
		logger:  logger.WithComponent("stock-handlers"),
	}
}

// RegisterRoutes registers stock routes, all of them guarded by admin
func (h *StockHandlers) RegisterRoutes(router *gin.RouterGroup, admin gin.HandlerFunc) {
	stock := router.Group("/stock", passThrough(admin))
	{
		stock.POST("/create-stock", h.CreateStock)
		stock.POST("/update-stock", h.UpdateStock)
		stock.POST("/rearrange", h.Rearrange)
		stock.POST("/recover-capacity", h.RecoverCapacity)
	}
}

func (h *StockHandlers) bindDate(c *gin.Context) (time.Time, bool) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query DateQuery
	if appErr := middleware.BindQuery(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return time.Time{}, false
	}
	date, err := parseDate(query.Date)
	if err != nil {
		responder.RespondWithError(err)
		return time.Time{}, false
	}
	return date, true
}

// CreateStock rebuilds holdings from the movement history
func (h *StockHandlers) CreateStock(c *gin.Context) {
	date, ok := h.bindDate(c)
	if !ok {
		return
	}
	if err := h.service.CreateStock(c.Request.Context(), date); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStock stores a day's arrivals at their booked slots
func (h *StockHandlers) UpdateStock(c *gin.Context) {
	date, ok := h.bindDate(c)
	if !ok {
		return
	}
	result, err := h.service.UpdateStock(c.Request.Context(), date)
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Rearrange moves stock off slots that are not laid out
func (h *StockHandlers) Rearrange(c *gin.Context) {
	if err := h.service.RearrangeToExistingSlots(c.Request.Context()); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecoverCapacity frees ground zone slots
func (h *StockHandlers) RecoverCapacity(c *gin.Context) {
	result, err := h.service.RecoverCapacity(c.Request.Context())
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
