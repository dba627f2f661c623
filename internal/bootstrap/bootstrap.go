package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/application"
	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/clients"
	kafkaPublisher "github.com/wms-platform/slotting-simulator/internal/infrastructure/kafka"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/layout"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/slotting-simulator/internal/infrastructure/mongodb"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/postgres"
	"github.com/wms-platform/slotting-simulator/pkg/cloudevents"
	"github.com/wms-platform/slotting-simulator/pkg/kafka"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/mongodb"
	"github.com/wms-platform/slotting-simulator/pkg/resilience"
	"github.com/wms-platform/slotting-simulator/pkg/temporal"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ShutdownTimeout bounds graceful shutdown of the binaries
const ShutdownTimeout = 10 * time.Second

// Config holds the process configuration shared by the simulator binaries
type Config struct {
	StoreBackend string
	DatabaseURL  string
	MaxDBConns   int32
	SeedPath     string

	DistanceMatrixPath string
	SlotIndexPath      string
	SettingsPath       string

	// MongoDB is nil when runs are kept in memory
	MongoDB *mongodb.Config
	// Kafka is nil when results are not published
	Kafka         *kafka.Config
	ContentAPIURL string

	Temporal *temporal.Config
}

// LoadConfig reads the configuration from the environment
func LoadConfig(identity string) *Config {
	config := &Config{
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MaxDBConns:         int32(getEnvInt("DATABASE_MAX_CONNS", 10)),
		SeedPath:           getEnv("SEED_PATH", ""),
		DistanceMatrixPath: getEnv("DISTANCE_MATRIX_PATH", ""),
		SlotIndexPath:      getEnv("SLOT_INDEX_PATH", ""),
		SettingsPath:       getEnv("SETTINGS_PATH", ""),
		ContentAPIURL:      getEnv("CONTENT_API_URL", ""),
		Temporal: &temporal.Config{
			HostPort:  getEnv("TEMPORAL_HOST", ""),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			Identity:  identity,
		},
	}

	if uri := getEnv("MONGODB_URI", ""); uri != "" {
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = uri
		mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)
		config.MongoDB = mongoConfig
	}

	if brokers := kafka.ParseBrokers(getEnv("KAFKA_BROKERS", "")); len(brokers) > 0 {
		kafkaConfig := kafka.DefaultConfig()
		kafkaConfig.Brokers = brokers
		kafkaConfig.ClientID = identity
		config.Kafka = kafkaConfig
	}

	return config
}

// App holds the wired simulator components
type App struct {
	Settings   *config.Settings
	Store      domain.WarehouseStore
	Engine     *application.Engine
	Simulation *application.SimulationService
	Articles   *application.ArticleService

	// ReadinessChecks probes every external dependency in use
	ReadinessChecks map[string]func(ctx context.Context) error

	closers []func(ctx context.Context) error
}

// Build connects the configured backends and wires the application services.
// On error everything opened so far is closed again.
func Build(ctx context.Context, cfg *Config, logger *logging.Logger, m *metrics.Metrics) (*App, error) {
	app := &App{ReadinessChecks: map[string]func(ctx context.Context) error{}}
	built := false
	defer func() {
		if !built {
			app.Close(context.Background())
		}
	}()

	var err error
	app.Settings = config.DefaultSettings()
	if cfg.SettingsPath != "" {
		if app.Settings, err = config.Load(cfg.SettingsPath); err != nil {
			return nil, err
		}
	}

	var fixture *memory.Fixture
	if cfg.SeedPath != "" {
		if fixture, err = memory.LoadFixture(cfg.SeedPath); err != nil {
			return nil, err
		}
	}

	if app.Store, err = app.openStore(ctx, cfg, fixture, logger); err != nil {
		return nil, err
	}

	warehouseLayout, err := loadLayout(cfg, fixture)
	if err != nil {
		return nil, err
	}
	oracle, err := application.NewDistanceOracle(warehouseLayout.Matrix, warehouseLayout.Index, application.OracleConfig{
		DepotNode:     app.Settings.DepotNode,
		Scale:         app.Settings.DistanceScale,
		LegacySlotIDs: app.Settings.LegacyDepotSlotIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build distance oracle: %w", err)
	}

	runs, err := app.openRuns(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}

	var publisher domain.ResultPublisher
	if cfg.Kafka != nil {
		publisher = app.openPublisher(cfg, logger, m)
		logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)
	}

	var content domain.AttributeLookup
	if cfg.ContentAPIURL != "" {
		breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("content-api"), logger.Logger, m)
		content = clients.NewContentClient(cfg.ContentAPIURL, breaker, m).WithRetry(resilience.DefaultRetryConfig())
	}

	app.Engine = application.NewEngine(app.Store, oracle, app.Settings, m, logger)
	app.Simulation = application.NewSimulationService(app.Engine, runs, publisher, m, logger)
	app.Articles = application.NewArticleService(app.Store, content, app.Settings, logger)
	built = true
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg *Config, fixture *memory.Fixture, logger *logging.Logger) (domain.WarehouseStore, error) {
	switch cfg.StoreBackend {
	case BackendMemory:
		if fixture == nil {
			logger.Warn("No seed fixture configured, starting with an empty warehouse")
			return memory.NewStore(), nil
		}
		return memory.NewStoreFromFixture(fixture)

	case BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pool.Close()
			return nil
		})

		store := postgres.NewStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if fixture != nil {
			if err := store.Seed(ctx, fixture); err != nil {
				return nil, err
			}
			logger.Info("Seeded warehouse", "path", cfg.SeedPath)
		}
		a.ReadinessChecks["postgres"] = store.HealthCheck
		logger.Info("Connected to PostgreSQL")
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) openRuns(ctx context.Context, cfg *Config, logger *logging.Logger, m *metrics.Metrics) (domain.SimulationRunRepository, error) {
	if cfg.MongoDB == nil {
		return memory.NewRunRepository(), nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	instrumented := mongodb.NewInstrumentedClient(client, m, logger)
	a.closers = append(a.closers, instrumented.Close)
	a.ReadinessChecks["mongodb"] = instrumented.HealthCheck

	runs, err := mongoRepo.NewRunRepository(ctx, instrumented)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)
	return runs, nil
}

func (a *App) openPublisher(cfg *Config, logger *logging.Logger, m *metrics.Metrics) *kafkaPublisher.ResultPublisher {
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("kafka"), logger.Logger, m)
	producer := kafka.NewInstrumentedProducer(kafka.NewProducer(cfg.Kafka), m, logger, breaker)
	a.closers = append(a.closers, func(context.Context) error { return producer.Close() })

	return kafkaPublisher.NewResultPublisher(producer, cloudevents.NewEventFactory("/slotting-simulator"), kafka.Topics.SimulationEvents)
}

// loadLayout prefers the configured layout files over a layout embedded in the fixture
func loadLayout(cfg *Config, fixture *memory.Fixture) (*layout.Layout, error) {
	if cfg.DistanceMatrixPath != "" || cfg.SlotIndexPath != "" {
		return layout.Load(cfg.DistanceMatrixPath, cfg.SlotIndexPath)
	}
	if fixture != nil && fixture.Layout != nil {
		return &layout.Layout{Matrix: fixture.Layout.Matrix, Index: fixture.Layout.Index}, nil
	}
	return nil, fmt.Errorf("%w: DISTANCE_MATRIX_PATH and SLOT_INDEX_PATH are required", domain.ErrInvalidDistanceData)
}

// Close releases the backends in reverse order of opening
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i](ctx)
	}
	a.closers = nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
