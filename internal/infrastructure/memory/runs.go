package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// RunRepository keeps simulation runs in memory
type RunRepository struct {
	mu   sync.RWMutex
	runs map[string]*domain.SimulationRun
}

var _ domain.SimulationRunRepository = (*RunRepository)(nil)

// NewRunRepository creates an empty RunRepository
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]*domain.SimulationRun)}
}

func (r *RunRepository) Save(ctx context.Context, run *domain.SimulationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = cloneRun(run)
	return nil
}

func (r *RunRepository) AppendResult(ctx context.Context, runID string, result domain.SimulationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	run.Results = append(run.Results, result)
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id string) (*domain.SimulationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return cloneRun(run), nil
}

// FindRecent returns up to limit runs, most recently started first
func (r *RunRepository) FindRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*domain.SimulationRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, cloneRun(run))
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func cloneRun(run *domain.SimulationRun) *domain.SimulationRun {
	copied := *run
	copied.Results = append([]domain.SimulationResult(nil), run.Results...)
	if run.CompletedAt != nil {
		completed := *run.CompletedAt
		copied.CompletedAt = &completed
	}
	return &copied
}
