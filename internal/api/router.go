package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/slotting-simulator/internal/api/handlers"
	"github.com/wms-platform/slotting-simulator/pkg/auth"
	"github.com/wms-platform/slotting-simulator/pkg/contracts/openapi"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/middleware"
)

// Services bundles the application services behind the HTTP surface
type Services struct {
	Simulation handlers.SimulationService
	Picklists  handlers.PicklistService
	Stock      handlers.StockService
	Articles   handlers.ArticleService
	Starter    handlers.RunStarter
}

// RouterConfig configures the HTTP router
type RouterConfig struct {
	ServiceName   string
	Logger        *logging.Logger
	Metrics       *metrics.Metrics
	EnableTracing bool

	// CORSOrigins lists the browser origins allowed to call the API
	CORSOrigins []string

	// JWTSecret enables admin authentication of mutating routes when set
	JWTSecret []byte

	// Contract, when set, validates /api requests against the OpenAPI document
	Contract *openapi.Validator

	ReadinessChecks map[string]func(ctx context.Context) error
}

// NewRouter builds the gin engine serving the simulator API
func NewRouter(config RouterConfig, services Services) *gin.Engine {
	handlers.Register()

	router := gin.New()
	middlewareConfig := middleware.DefaultConfig(config.ServiceName, config.Logger)
	middlewareConfig.Metrics = config.Metrics
	middlewareConfig.EnableTracing = config.EnableTracing
	middlewareConfig.CORSOrigins = config.CORSOrigins
	middleware.Setup(router, middlewareConfig)

	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, config.ReadinessChecks))
	if config.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(config.Metrics))
	}

	api := router.Group("/api")
	if config.Contract != nil {
		api.Use(openapi.RequestValidator(config.Contract))
	}

	var admin gin.HandlerFunc
	if len(config.JWTSecret) > 0 {
		admin = auth.RequireAdmin(config.JWTSecret)
	}

	handlers.NewSimulationHandlers(services.Simulation, services.Starter, config.Logger).RegisterRoutes(api, admin)
	handlers.NewPicklistHandlers(services.Picklists, config.Logger).RegisterRoutes(api, admin)
	handlers.NewStockHandlers(services.Stock, config.Logger).RegisterRoutes(api, admin)
	handlers.NewArticleHandlers(services.Articles, config.Logger).RegisterRoutes(api, admin)

	return router
}
