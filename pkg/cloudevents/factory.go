package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

type workflowIDKey struct{}

// ContextWithWorkflowID returns a context whose events carry the workflow extension
func ContextWithWorkflowID(ctx context.Context, workflowID string) context.Context {
	return context.WithValue(ctx, workflowIDKey{}, workflowID)
}

// WorkflowIDFromContext returns the workflow id set by ContextWithWorkflowID
func WorkflowIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(workflowIDKey{}).(string); ok {
		return id
	}
	return ""
}

// EventFactory creates CloudEvents for one source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// Source returns the source stamped on created events
func (f *EventFactory) Source() string {
	return f.source
}

// CreateEvent creates a new event, carrying the correlation id found in ctx
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *SimulationCloudEvent {
	return &SimulationCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   logging.RequestIDFromContext(ctx),
		WorkflowID:      WorkflowIDFromContext(ctx),
	}
}

// CreateDaySimulatedEvent creates a DaySimulated event
func (f *EventFactory) CreateDaySimulatedEvent(ctx context.Context, strategy string, data DaySimulatedData) *SimulationCloudEvent {
	event := f.CreateEvent(ctx, DaySimulated, "run/"+data.RunID+"/day/"+data.Date.Format(time.DateOnly), data)
	event.RunID = data.RunID
	event.Strategy = strategy
	return event
}

// CreateRunFinishedEvent creates a RunCompleted or RunFailed event depending on data.Error
func (f *EventFactory) CreateRunFinishedEvent(ctx context.Context, strategy string, data RunFinishedData) *SimulationCloudEvent {
	eventType := RunCompleted
	if data.Error != "" {
		eventType = RunFailed
	}
	event := f.CreateEvent(ctx, eventType, "run/"+data.RunID, data)
	event.RunID = data.RunID
	event.Strategy = strategy
	return event
}
