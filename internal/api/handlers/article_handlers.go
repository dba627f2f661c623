package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

// ArticleService answers article dimension queries
type ArticleService interface {
	GetAttributes(ctx context.Context, ids []string, useContentAPI bool) ([]domain.ArticleAttributes, error)
	CalculatePalletSizes(ctx context.Context) error
}

// ArticleHandlers contains handlers for article operations
type ArticleHandlers struct {
	service ArticleService
	logger  *logging.Logger
}

// NewArticleHandlers creates a new ArticleHandlers
func NewArticleHandlers(service ArticleService, logger *logging.Logger) *ArticleHandlers {
	return &ArticleHandlers{
		service: service,
		logger:  logger.WithComponent("article-handlers"),
	}
}

// RegisterRoutes registers article routes. admin guards mutating routes.
func (h *ArticleHandlers) RegisterRoutes(router *gin.RouterGroup, admin gin.HandlerFunc) {
	admin = passThrough(admin)
	articles := router.Group("/article")
	{
		articles.GET("/get-attributes/:articles", h.GetAttributes)
		articles.POST("/calculate-pallet-sizes", admin, h.CalculatePalletSizes)
	}
}

// GetAttributes returns the dimensions of comma separated number_variant ids
func (h *ArticleHandlers) GetAttributes(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var query struct {
		UseContentAPI bool `form:"useContentApi"`
	}
	if appErr := middleware.BindQuery(c, &query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	var ids []string
	for _, id := range strings.Split(c.Param("articles"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		responder.RespondValidationError("no articles requested", map[string]string{"articles": "is required"})
		return
	}

	attributes, err := h.service.GetAttributes(c.Request.Context(), ids, query.UseContentAPI)
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, attributes)
}

// CalculatePalletSizes recomputes every article's pallet size
func (h *ArticleHandlers) CalculatePalletSizes(c *gin.Context) {
	if err := h.service.CalculatePalletSizes(c.Request.Context()); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondWithError(err)
		return
	}
	c.Status(http.StatusNoContent)
}
