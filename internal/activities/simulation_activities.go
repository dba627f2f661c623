package activities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/workflows"
	"github.com/wms-platform/slotting-simulator/pkg/cloudevents"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
)

// SimulationService is the part of the application service the activities drive
type SimulationService interface {
	PrepareStock(ctx context.Context, date time.Time) error
	SimulateDay(ctx context.Context, runID string, req domain.SimulationRequest, dayIndex int, state *domain.RunState) (*domain.SimulationResult, error)
	RecordDay(ctx context.Context, runID string, result domain.SimulationResult) error
	CompleteRun(ctx context.Context, runID string) (*domain.SimulationRun, error)
	FailRun(ctx context.Context, runID string, cause error) error
}

// SimulationActivities contains the activities of the simulation workflow
type SimulationActivities struct {
	service SimulationService
	metrics *metrics.Metrics
}

// NewSimulationActivities creates a new SimulationActivities instance
func NewSimulationActivities(service SimulationService, m *metrics.Metrics) *SimulationActivities {
	return &SimulationActivities{
		service: service,
		metrics: m,
	}
}

// PrepareStock builds the stock of the start date
func (a *SimulationActivities) PrepareStock(ctx context.Context, date time.Time) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Preparing stock", "date", date.Format(time.DateOnly))

	started := time.Now()
	err := a.service.PrepareStock(ctx, date)
	a.metrics.RecordActivityCompleted("PrepareStock", err == nil, time.Since(started))
	if err != nil {
		logger.Error("Failed to prepare stock", "date", date.Format(time.DateOnly), "error", err)
		return workflows.ActivityError(fmt.Errorf("failed to prepare stock: %w", err))
	}
	return nil
}

// SimulateDay simulates one day and records its result on the run
func (a *SimulationActivities) SimulateDay(ctx context.Context, input workflows.SimulateDayInput) (workflows.SimulateDayOutput, error) {
	ctx = withWorkflowID(ctx)
	logger := activity.GetLogger(ctx)
	logger.Info("Simulating day", "runId", input.RunID, "day", input.DayIndex)

	started := time.Now()
	state := input.State
	result, err := a.service.SimulateDay(ctx, input.RunID, input.Request, input.DayIndex, &state)
	if err == nil && result != nil {
		err = a.service.RecordDay(ctx, input.RunID, *result)
	}
	a.metrics.RecordActivityCompleted("SimulateDay", err == nil, time.Since(started))
	if err != nil {
		logger.Error("Failed to simulate day", "runId", input.RunID, "day", input.DayIndex, "error", err)
		return workflows.SimulateDayOutput{}, workflows.ActivityError(err)
	}

	if result == nil {
		logger.Warn("No pick lists for day", "runId", input.RunID, "day", input.DayIndex)
	}
	return workflows.SimulateDayOutput{Result: result, State: state}, nil
}

// CompleteRun marks the run as completed and summarizes it
func (a *SimulationActivities) CompleteRun(ctx context.Context, runID string) (*workflows.SimulationWorkflowResult, error) {
	ctx = withWorkflowID(ctx)
	logger := activity.GetLogger(ctx)

	run, err := a.service.CompleteRun(ctx, runID)
	if err != nil {
		logger.Error("Failed to complete run", "runId", runID, "error", err)
		return nil, workflows.ActivityError(err)
	}

	logger.Info("Run completed", "runId", runID, "results", len(run.Results))
	return &workflows.SimulationWorkflowResult{
		RunID:       run.ID,
		Status:      run.Status,
		Days:        run.Request.NumberOfDays,
		Results:     len(run.Results),
		TotalLength: run.TotalLength(),
	}, nil
}

// FailRun records the failure reason on the run
func (a *SimulationActivities) FailRun(ctx context.Context, input workflows.FailRunInput) error {
	ctx = withWorkflowID(ctx)
	logger := activity.GetLogger(ctx)
	logger.Warn("Marking run as failed", "runId", input.RunID, "reason", input.Reason)

	if err := a.service.FailRun(ctx, input.RunID, errors.New(input.Reason)); err != nil {
		return workflows.ActivityError(err)
	}
	return nil
}

// withWorkflowID stamps events published during the activity with its workflow
func withWorkflowID(ctx context.Context) context.Context {
	return cloudevents.ContextWithWorkflowID(ctx, activity.GetInfo(ctx).WorkflowExecution.ID)
}
