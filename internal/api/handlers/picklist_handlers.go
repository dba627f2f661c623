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

// PicklistService reserves pick pools and builds pick lists
type PicklistService interface {
	ReserveDay(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error)
	Picklists(ctx context.Context, date time.Time, better bool, count int, seed int64) ([]domain.Picklist, error)
	RouteLengths(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error)
}

// PicklistHandlers contains handlers for pick list operations
type PicklistHandlers struct {
	service PicklistService
	logger  *logging.Logger
}

// NewPicklistHandlers creates a new PicklistHandlers
func NewPicklistHandlers(service PicklistService, logger *logging.Logger) *PicklistHandlers {
	return &PicklistHandlers{
		service: service,
		logger:  logger.WithComponent("picklist-handlers"),
	}
}

// RegisterRoutes registers pick list routes. admin guards mutating routes.
func (h *PicklistHandlers) RegisterRoutes(router *gin.RouterGroup, admin gin.HandlerFunc) {
	admin = passThrough(admin)
	picklists := router.Group("/picklist")
	{
		picklists.POST("/set-reservations", admin, h.SetReservations)
		picklists.GET("/get-picklists", h.GetPicklists)
		picklists.POST("/get-lengths-for-picklists", h.GetLengthsForPicklists)
	}
}

// SetReservations reserves the pick pool of a day
func (h *PicklistHandlers) SetReservations(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query DateQuery
	if appErr := middleware.BindQuery(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	date, err := parseDate(query.Date)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	result, err := h.service.ReserveDay(c.Request.Context(), date)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPicklists builds the pick lists of a day
func (h *PicklistHandlers) GetPicklists(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query PicklistQuery
	if appErr := middleware.BindQuery(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	date, err := parseDate(query.Date)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]any{
		"picklist.date":   query.Date,
		"picklist.better": query.BetterPicklists,
	})

	lists, err := h.service.Picklists(c.Request.Context(), date, query.BetterPicklists, query.Count, query.Seed)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	if lists == nil {
		lists = []domain.Picklist{}
	}
	c.JSON(http.StatusOK, lists)
}

// GetLengthsForPicklists scores the route length of supplied pick lists
func (h *PicklistHandlers) GetLengthsForPicklists(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var lists []domain.Picklist
	if appErr := middleware.BindAndValidate(c, &lists); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.RouteLengths(c.Request.Context(), lists)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, result)
}
