package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wms-platform/slotting-simulator/internal/activities"
	"github.com/wms-platform/slotting-simulator/internal/bootstrap"
	"github.com/wms-platform/slotting-simulator/internal/workflows"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/temporal"
	"github.com/wms-platform/slotting-simulator/pkg/tracing"
)

const serviceName = "slotting-simulator-worker"

func main() {
	_ = godotenv.Load()

	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting slotting-simulator worker")

	config := loadConfig()
	ctx := context.Background()

	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "false") == "true"
	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	app, err := bootstrap.Build(ctx, config.App, logger, m)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize simulator")
		os.Exit(1)
	}
	defer app.Close(context.Background())

	temporalClient, err := temporal.NewClient(ctx, config.App.Temporal)
	if err != nil {
		logger.WithError(err).Error("Failed to create Temporal client")
		os.Exit(1)
	}
	defer temporalClient.Close()
	logger.Info("Connected to Temporal", "hostPort", config.App.Temporal.HostPort)

	simulationActivities := activities.NewSimulationActivities(app.Simulation, m)

	w := temporalClient.NewWorker(temporal.DefaultWorkerOptions(temporal.TaskQueues.Simulation))

	w.RegisterWorkflow(workflows.SimulationWorkflow)
	logger.Info("Registered workflow", "workflow", temporal.WorkflowNames.Simulation)

	w.RegisterActivity(simulationActivities.PrepareStock)
	w.RegisterActivity(simulationActivities.SimulateDay)
	w.RegisterActivity(simulationActivities.CompleteRun)
	w.RegisterActivity(simulationActivities.FailRun)
	logger.Info("Registered activities")

	// Worker metrics are scraped from a side listener
	metricsServer := &http.Server{
		Addr:              config.MetricsAddr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Metrics server error")
		}
	}()

	go func() {
		if err := w.Run(nil); err != nil {
			logger.WithError(err).Error("Worker failed")
			os.Exit(1)
		}
	}()
	logger.Info("Worker started", "taskQueue", temporal.TaskQueues.Simulation)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	w.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Metrics server forced to shutdown")
	}
	logger.Info("Worker stopped")
}

// Config holds worker configuration
type Config struct {
	MetricsAddr string
	App         *bootstrap.Config
}

func loadConfig() *Config {
	config := &Config{
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		App:         bootstrap.LoadConfig("slotting-worker"),
	}
	if config.App.Temporal.HostPort == "" {
		config.App.Temporal.HostPort = temporal.DefaultConfig().HostPort
	}
	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
