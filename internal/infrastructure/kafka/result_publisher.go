package kafka

import (
	"context"
	"fmt"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/cloudevents"
	"github.com/wms-platform/slotting-simulator/pkg/kafka"
)

// ResultPublisher announces simulation progress as CloudEvents on Kafka.
// Implements domain.ResultPublisher.
type ResultPublisher struct {
	producer     kafka.EventPublisher
	eventFactory *cloudevents.EventFactory
	topic        string
}

var _ domain.ResultPublisher = (*ResultPublisher)(nil)

// NewResultPublisher creates a new Kafka-based result publisher
func NewResultPublisher(
	producer kafka.EventPublisher,
	eventFactory *cloudevents.EventFactory,
	topic string,
) *ResultPublisher {
	return &ResultPublisher{
		producer:     producer,
		eventFactory: eventFactory,
		topic:        topic,
	}
}

// PublishDayResult publishes the metrics of one simulated day
func (p *ResultPublisher) PublishDayResult(ctx context.Context, runID string, result domain.SimulationResult) error {
	event := p.eventFactory.CreateDaySimulatedEvent(ctx, "", cloudevents.DaySimulatedData{
		RunID:              runID,
		Date:               result.Date,
		Length:             result.Length,
		PicklistCount:      result.PicklistCount,
		PicklistEntryCount: result.PicklistEntryCount,
		HighToGroundCount:  result.RearrangementCountHighzoneGroundzone,
		HighToGroundLength: result.RearrangementLengthHighzoneGroundzone,
		InGroundZoneCount:  result.RearrangementCountInGroundzone,
		InGroundZoneLength: result.RearrangementLengthInGroundzone,
	})
	return p.publish(ctx, event)
}

// PublishRunCompleted publishes the outcome of a finished or failed run
func (p *ResultPublisher) PublishRunCompleted(ctx context.Context, run *domain.SimulationRun) error {
	data := cloudevents.RunFinishedData{
		RunID:       run.ID,
		Status:      string(run.Status),
		Days:        len(run.Results),
		TotalLength: run.TotalLength(),
		Error:       run.Error,
		StartedAt:   run.StartedAt,
	}
	if run.CompletedAt != nil {
		data.CompletedAt = *run.CompletedAt
	}
	event := p.eventFactory.CreateRunFinishedEvent(ctx, string(run.Request.Strategy), data)
	return p.publish(ctx, event)
}

func (p *ResultPublisher) publish(ctx context.Context, event *cloudevents.SimulationCloudEvent) error {
	if err := p.producer.PublishEvent(ctx, p.topic, event); err != nil {
		return fmt.Errorf("failed to publish event to kafka: %w", err)
	}
	return nil
}
