package workflows_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/workflows"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/temporal"
)

type mockRunRecorder struct {
	StartRunFn func(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error)
	FailRunFn  func(ctx context.Context, runID string, cause error) error
}

func (m *mockRunRecorder) StartRun(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
	if m.StartRunFn == nil {
		panic("StartRun not implemented")
	}
	return m.StartRunFn(ctx, req)
}

func (m *mockRunRecorder) FailRun(ctx context.Context, runID string, cause error) error {
	if m.FailRunFn == nil {
		panic("FailRun not implemented")
	}
	return m.FailRunFn(ctx, runID, cause)
}

type startCall struct {
	workflowID string
	taskQueue  string
	name       string
	args       []interface{}
}

type mockWorkflowStarter struct {
	calls []startCall
	err   error
}

func (m *mockWorkflowStarter) StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error) {
	m.calls = append(m.calls, startCall{workflowID: workflowID, taskQueue: taskQueue, name: workflowName, args: args})
	return nil, m.err
}

func newRecorder(failures *[]string) *mockRunRecorder {
	return &mockRunRecorder{
		StartRunFn: func(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
			if err := req.Validate(); err != nil {
				return nil, err
			}
			return domain.NewSimulationRun("run-1", req), nil
		},
		FailRunFn: func(ctx context.Context, runID string, cause error) error {
			*failures = append(*failures, runID+": "+cause.Error())
			return nil
		},
	}
}

func TestStarter_StartsWorkflowForRun(t *testing.T) {
	var failures []string
	temporalClient := &mockWorkflowStarter{}
	starter := workflows.NewStarter(newRecorder(&failures), temporalClient, "", logging.Discard())

	runID, workflowID, err := starter.Start(context.Background(), workflowInput(2).Request)

	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	assert.Equal(t, "simulation-run-1", workflowID)
	require.Len(t, temporalClient.calls, 1)

	call := temporalClient.calls[0]
	assert.Equal(t, temporal.TaskQueues.Simulation, call.taskQueue)
	assert.Equal(t, temporal.WorkflowNames.Simulation, call.name)
	require.Len(t, call.args, 1)
	input, ok := call.args[0].(workflows.SimulationWorkflowInput)
	require.True(t, ok)
	assert.Equal(t, "run-1", input.RunID)
	assert.Equal(t, 2, input.Request.NumberOfDays)
	assert.Empty(t, failures)
}

func TestStarter_InvalidRequestStartsNothing(t *testing.T) {
	var failures []string
	temporalClient := &mockWorkflowStarter{}
	starter := workflows.NewStarter(newRecorder(&failures), temporalClient, "custom-queue", logging.Discard())

	request := workflowInput(2).Request
	request.Strategy = "Unknown"
	_, _, err := starter.Start(context.Background(), request)

	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)
	assert.Empty(t, temporalClient.calls)
}

func TestStarter_StartFailureFailsRun(t *testing.T) {
	var failures []string
	temporalClient := &mockWorkflowStarter{err: errors.New("frontend unavailable")}
	starter := workflows.NewStarter(newRecorder(&failures), temporalClient, "custom-queue", logging.Discard())

	_, _, err := starter.Start(context.Background(), workflowInput(1).Request)

	require.Error(t, err)
	assert.Equal(t, "custom-queue", temporalClient.calls[0].taskQueue)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "run-1: failed to start simulation workflow")
}
