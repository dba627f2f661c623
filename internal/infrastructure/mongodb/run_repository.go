package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/mongodb"
)

// RunsCollection stores one document per simulation run
const RunsCollection = "simulation_runs"

// RunRepository implements domain.SimulationRunRepository using MongoDB
type RunRepository struct {
	collection *mongodb.InstrumentedCollection
}

var _ domain.SimulationRunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository and ensures its indexes
func NewRunRepository(ctx context.Context, client *mongodb.InstrumentedClient) (*RunRepository, error) {
	repo := &RunRepository{collection: client.Collection(RunsCollection)}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RunRepository) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "startedAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "startedAt", Value: -1}}},
	}
	if err := r.collection.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create run indexes: %w", err)
	}
	return nil
}

// Save upserts the whole run document
func (r *RunRepository) Save(ctx context.Context, run *domain.SimulationRun) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run, opts); err != nil {
		return fmt.Errorf("failed to save simulation run: %w", err)
	}
	return nil
}

// AppendResult pushes one day result onto the run
func (r *RunRepository) AppendResult(ctx context.Context, runID string, result domain.SimulationResult) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": runID}, mongodb.BuildPushUpdate("results", result))
	if err != nil {
		return fmt.Errorf("failed to append simulation result: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return nil
}

// FindByID loads a run
func (r *RunRepository) FindByID(ctx context.Context, id string) (*domain.SimulationRun, error) {
	var run domain.SimulationRun
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, &run); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to find simulation run: %w", err)
	}
	if run.Results == nil {
		run.Results = []domain.SimulationResult{}
	}
	return &run, nil
}

// FindRecent returns the latest runs, newest first
func (r *RunRepository) FindRecent(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	opts := options.Find().SetSort(mongodb.SortDescending("startedAt"))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	var runs []*domain.SimulationRun
	if err := r.collection.FindAll(ctx, bson.M{}, &runs, opts); err != nil {
		return nil, fmt.Errorf("failed to list simulation runs: %w", err)
	}
	if runs == nil {
		runs = []*domain.SimulationRun{}
	}
	return runs, nil
}
