package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/temporal"
)

// SimulationWorkflowInput represents the input for the simulation workflow
type SimulationWorkflowInput struct {
	RunID   string                   `json:"runId"`
	Request domain.SimulationRequest `json:"request"`
}

// SimulateDayInput represents the input for the SimulateDay activity
type SimulateDayInput struct {
	RunID    string                   `json:"runId"`
	Request  domain.SimulationRequest `json:"request"`
	DayIndex int                      `json:"dayIndex"`
	State    domain.RunState          `json:"state"`
}

// SimulateDayOutput carries the day result and the state for the next day.
// Result is nil when no pick list could be built.
type SimulateDayOutput struct {
	Result *domain.SimulationResult `json:"result,omitempty"`
	State  domain.RunState          `json:"state"`
}

// FailRunInput represents the input for the FailRun activity
type FailRunInput struct {
	RunID  string `json:"runId"`
	Reason string `json:"reason"`
}

// SimulationWorkflowResult represents the result of the simulation workflow
type SimulationWorkflowResult struct {
	RunID       string           `json:"runId"`
	Status      domain.RunStatus `json:"status"`
	Days        int              `json:"days"`
	Results     int              `json:"results"`
	TotalLength float64          `json:"totalLength"`
}

// SimulationWorkflow simulates the days of a run one after another. The run
// record is created before the workflow starts; the workflow completes or
// fails it.
func SimulationWorkflow(ctx workflow.Context, input SimulationWorkflowInput) (*SimulationWorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting simulation workflow",
		"runId", input.RunID,
		"strategy", string(input.Request.Strategy),
		"days", input.Request.NumberOfDays,
	)

	ctx = workflow.WithActivityOptions(ctx, SimulationActivityOptions())

	fail := func(step string, err error) (*SimulationWorkflowResult, error) {
		logger.Error("Simulation workflow failed", "runId", input.RunID, "step", step, "error", err)
		failCtx, _ := workflow.NewDisconnectedContext(ctx)
		reason := fmt.Sprintf("%s: %v", step, err)
		if failErr := workflow.ExecuteActivity(failCtx, "FailRun", FailRunInput{RunID: input.RunID, Reason: reason}).Get(failCtx, nil); failErr != nil {
			logger.Warn("Failed to mark run as failed", "runId", input.RunID, "error", failErr)
		}
		return nil, fmt.Errorf("simulation %s failed at %s: %w", input.RunID, step, err)
	}

	if err := workflow.ExecuteActivity(ctx, "PrepareStock", input.Request.StartDate).Get(ctx, nil); err != nil {
		return fail("prepare stock", err)
	}

	state := domain.RunState{}
	for day := 0; day < input.Request.NumberOfDays; day++ {
		var output SimulateDayOutput
		err := workflow.ExecuteActivity(ctx, "SimulateDay", SimulateDayInput{
			RunID:    input.RunID,
			Request:  input.Request,
			DayIndex: day,
			State:    state,
		}).Get(ctx, &output)
		if err != nil {
			return fail(fmt.Sprintf("day %d", day), err)
		}
		state = output.State
	}

	var result SimulationWorkflowResult
	if err := workflow.ExecuteActivity(ctx, "CompleteRun", input.RunID).Get(ctx, &result); err != nil {
		return fail("complete run", err)
	}

	logger.Info("Simulation workflow completed",
		"runId", input.RunID,
		"results", result.Results,
		"totalLength", result.TotalLength,
	)
	return &result, nil
}

// SimulationActivityOptions returns the activity options of the simulation
// workflow. A simulated day can take minutes on a large warehouse.
func SimulationActivityOptions() workflow.ActivityOptions {
	opts := temporal.DefaultActivityOptions()
	opts.RetryPolicy.NonRetryableErrorTypes = NonRetryableErrorTypes
	return opts.Workflow()
}
