package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/slotting-simulator/pkg/cloudevents"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/resilience"
	"github.com/wms-platform/slotting-simulator/pkg/tracing"
)

// InstrumentedProducer wraps an EventPublisher with metrics, tracing and
// an optional circuit breaker
type InstrumentedProducer struct {
	producer       EventPublisher
	metrics        *metrics.Metrics
	logger         *logging.Logger
	tracer         trace.Tracer
	circuitBreaker *resilience.CircuitBreaker
}

var _ EventPublisher = (*InstrumentedProducer)(nil)

// NewInstrumentedProducer creates a new instrumented producer. m and cb may be nil.
func NewInstrumentedProducer(producer EventPublisher, m *metrics.Metrics, logger *logging.Logger, cb *resilience.CircuitBreaker) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer:       producer,
		metrics:        m,
		logger:         logger,
		tracer:         otel.Tracer("kafka-producer"),
		circuitBreaker: cb,
	}
}

// PublishEvent publishes a CloudEvent with metrics and tracing
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.SimulationCloudEvent) error {
	start := time.Now()

	attrs := append(tracing.MessagingSpanAttributes("kafka", topic, "publish"),
		attribute.String("messaging.kafka.event_type", event.Type),
		attribute.String("messaging.message_id", event.ID),
	)
	if event.RunID != "" {
		attrs = append(attrs, attribute.String("simulation.run_id", event.RunID))
	}
	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	publish := func(ctx context.Context) error {
		return p.producer.PublishEvent(ctx, topic, event)
	}
	var err error
	if p.circuitBreaker != nil {
		err = p.circuitBreaker.Execute(ctx, publish)
	} else {
		err = publish(ctx)
	}
	duration := time.Since(start)

	success := err == nil
	p.metrics.RecordKafkaPublish(topic, event.Type, success, duration)
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// Close closes the wrapped producer
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}
