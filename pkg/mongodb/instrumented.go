package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/tracing"
)

// InstrumentedClient wraps a Client with metrics and tracing
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates a new instrumented MongoDB client. m may be nil.
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Collection(name),
		name:       name,
		database:   c.client.config.Database,
		metrics:    c.metrics,
		logger:     c.logger,
		tracer:     c.tracer,
	}
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings the database inside a span
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	_, err := tracing.TracedOperation(ctx, c.tracer, "mongodb.ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.HealthCheck(ctx)
	}, tracing.DatabaseSpanAttributes("mongodb", c.client.config.Database, "ping", "")...)
	return err
}

// InstrumentedCollection wraps a Collection with metrics and tracing
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// observe runs op inside a client span and records its outcome. op returns
// the number of documents it touched.
func (c *InstrumentedCollection) observe(ctx context.Context, operation string, op func(ctx context.Context) (int64, error)) error {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DatabaseSpanAttributes("mongodb", c.database, operation, c.name)...),
	)
	defer span.End()

	affected, err := op(ctx)
	duration := time.Since(start)

	success := err == nil || errors.Is(err, mongo.ErrNoDocuments)
	c.metrics.RecordMongoDBOperation(c.name, operation, success, duration)
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, success, affected)
	}

	if !success {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Int64("db.rows_affected", affected))
	}
	return err
}

// ReplaceOne replaces a single document
func (c *InstrumentedCollection) ReplaceOne(ctx context.Context, filter, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "replaceOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.ReplaceOne(ctx, filter, replacement, opts...)
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	return result, err
}

// UpdateOne updates a single document
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "updateOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.UpdateOne(ctx, filter, update, opts...)
		if err != nil {
			return 0, err
		}
		return result.ModifiedCount, nil
	})
	return result, err
}

// FindOne decodes the first matching document into target
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter, target interface{}, opts ...*options.FindOneOptions) error {
	return c.observe(ctx, "findOne", func(ctx context.Context) (int64, error) {
		if err := c.collection.FindOne(ctx, filter, opts...).Decode(target); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// FindAll decodes every matching document into results, a pointer to a slice
func (c *InstrumentedCollection) FindAll(ctx context.Context, filter, results interface{}, opts ...*options.FindOptions) error {
	return c.observe(ctx, "find", func(ctx context.Context) (int64, error) {
		cursor, err := c.collection.Find(ctx, filter, opts...)
		if err != nil {
			return 0, err
		}
		return 0, cursor.All(ctx, results)
	})
}

// CreateIndexes creates the given indexes
func (c *InstrumentedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	return c.observe(ctx, "createIndexes", func(ctx context.Context) (int64, error) {
		names, err := c.collection.Indexes().CreateMany(ctx, models)
		return int64(len(names)), err
	})
}
