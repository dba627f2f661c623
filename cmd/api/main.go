package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wms-platform/slotting-simulator/internal/api"
	"github.com/wms-platform/slotting-simulator/internal/bootstrap"
	"github.com/wms-platform/slotting-simulator/internal/workflows"
	"github.com/wms-platform/slotting-simulator/pkg/contracts/openapi"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/temporal"
	"github.com/wms-platform/slotting-simulator/pkg/tracing"
)

const serviceName = "slotting-simulator"

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting slotting-simulator API")

	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	app, err := bootstrap.Build(ctx, config.App, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize simulator")
		os.Exit(1)
	}
	defer app.Close(context.Background())

	var contract *openapi.Validator
	if config.OpenAPISpecPath != "" {
		contract, err = openapi.NewValidator(config.OpenAPISpecPath)
		if err != nil {
			logger.WithError(err).Error("Failed to load API contract", "path", config.OpenAPISpecPath)
			os.Exit(1)
		}
		logger.Info("API contract loaded", "path", config.OpenAPISpecPath)
	}

	services := api.Services{
		Simulation: app.Simulation,
		Picklists:  app.Simulation,
		Stock:      app.Simulation,
		Articles:   app.Articles,
	}

	// Background runs need a Temporal frontend
	if config.App.Temporal.HostPort != "" {
		temporalClient, err := temporal.NewClient(ctx, config.App.Temporal)
		if err != nil {
			logger.WithError(err).Error("Failed to create Temporal client")
			os.Exit(1)
		}
		defer temporalClient.Close()
		services.Starter = workflows.NewStarter(app.Simulation, temporalClient, temporal.TaskQueues.Simulation, logger)
		logger.Info("Connected to Temporal", "hostPort", config.App.Temporal.HostPort)
	}

	if len(config.JWTSecret) == 0 {
		logger.Warn("JWT_SECRET is not set, mutating routes are unauthenticated")
	}

	router := api.NewRouter(api.RouterConfig{
		ServiceName:     serviceName,
		Logger:          logger,
		Metrics:         m,
		EnableTracing:   tracingConfig.Enabled,
		CORSOrigins:     config.CORSOrigins,
		JWTSecret:       config.JWTSecret,
		Contract:        contract,
		ReadinessChecks: app.ReadinessChecks,
	}, services)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Minute,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr, "store", config.App.StoreBackend)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	OpenAPISpecPath string
	JWTSecret       []byte
	CORSOrigins     []string
	App             *bootstrap.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		OpenAPISpecPath: getEnv("OPENAPI_SPEC_PATH", "api/openapi.yaml"),
		JWTSecret:       []byte(os.Getenv("JWT_SECRET")),
		CORSOrigins:     splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		App:             bootstrap.LoadConfig("slotting-api"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma separated list, dropping blanks
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
