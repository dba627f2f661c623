package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/temporal"
)

// RunRecorder creates and fails persisted simulation runs
type RunRecorder interface {
	StartRun(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error)
	FailRun(ctx context.Context, runID string, cause error) error
}

// WorkflowStarter starts workflow executions
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
}

// Starter persists a run and hands it to the simulation workflow
type Starter struct {
	runs      RunRecorder
	temporal  WorkflowStarter
	taskQueue string
	logger    *logging.Logger
}

// NewStarter creates a new Starter
func NewStarter(runs RunRecorder, starter WorkflowStarter, taskQueue string, logger *logging.Logger) *Starter {
	if taskQueue == "" {
		taskQueue = temporal.TaskQueues.Simulation
	}
	return &Starter{
		runs:      runs,
		temporal:  starter,
		taskQueue: taskQueue,
		logger:    logger.WithComponent("workflow-starter"),
	}
}

// WorkflowID returns the workflow id of a run
func WorkflowID(runID string) string {
	return "simulation-" + runID
}

// Start persists a running simulation and starts its workflow
func (s *Starter) Start(ctx context.Context, req domain.SimulationRequest) (string, string, error) {
	run, err := s.runs.StartRun(ctx, req)
	if err != nil {
		return "", "", err
	}

	workflowID := WorkflowID(run.ID)
	input := SimulationWorkflowInput{RunID: run.ID, Request: run.Request}
	if _, err := s.temporal.StartWorkflow(ctx, workflowID, s.taskQueue, temporal.WorkflowNames.Simulation, input); err != nil {
		err = fmt.Errorf("failed to start simulation workflow: %w", err)
		if failErr := s.runs.FailRun(ctx, run.ID, err); failErr != nil {
			s.logger.WithError(failErr).Warn("Failed to mark run as failed", "runId", run.ID)
		}
		return "", "", err
	}

	s.logger.Info("Simulation workflow started", "runId", run.ID, "workflowId", workflowID)
	return run.ID, workflowID, nil
}
