package application

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/tracing"
)

// SimulationService runs multi-day slotting simulations and the related
// warehouse statistics.
type SimulationService struct {
	engine    *Engine
	runs      domain.SimulationRunRepository
	publisher domain.ResultPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *logging.Logger
}

// NewSimulationService creates a new SimulationService. publisher may be nil.
func NewSimulationService(
	engine *Engine,
	runs domain.SimulationRunRepository,
	publisher domain.ResultPublisher,
	m *metrics.Metrics,
	logger *logging.Logger,
) *SimulationService {
	return &SimulationService{
		engine:    engine,
		runs:      runs,
		publisher: publisher,
		metrics:   m,
		tracer:    tracing.Tracer(),
		logger:    logger.WithComponent("simulation"),
	}
}

// Engine returns the underlying engine
func (s *SimulationService) Engine() *Engine {
	return s.engine
}

// PrepareStock builds the stock of date and moves stock off slots without a layout
func (s *SimulationService) PrepareStock(ctx context.Context, date time.Time) error {
	if err := s.engine.Rearranger.CreateStock(ctx, date); err != nil {
		return err
	}
	return s.engine.Rearranger.RearrangeToExistingSlots(ctx)
}

// SimulatePicking runs a complete simulation and returns the persisted run
func (s *SimulationService) SimulatePicking(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
	run, err := s.StartRun(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := s.logger.WithRun(run.ID)

	if err := s.PrepareStock(ctx, run.Request.StartDate); err != nil {
		return nil, s.failRun(ctx, run, fmt.Errorf("failed to prepare stock: %w", err))
	}

	state := domain.NewRunState()
	for i := 0; i < run.Request.NumberOfDays; i++ {
		result, err := s.SimulateDay(ctx, run.ID, run.Request, i, state)
		if err != nil {
			return nil, s.failRun(ctx, run, err)
		}
		if result == nil {
			continue
		}
		if err := s.RecordDay(ctx, run.ID, *result); err != nil {
			return nil, s.failRun(ctx, run, err)
		}
		run.Results = append(run.Results, *result)
	}

	run.Complete()
	if err := s.finishRun(ctx, run); err != nil {
		return nil, err
	}
	logger.Info("Simulation completed", "days", run.Request.NumberOfDays, "results", len(run.Results), "length", run.TotalLength())
	return run, nil
}

// StartRun validates the request and persists a new running simulation. A
// zero seed is replaced by a time based one so that the run can be replayed.
func (s *SimulationService) StartRun(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	run := domain.NewSimulationRun(uuid.NewString(), req)
	if err := s.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save simulation run: %w", err)
	}

	s.logger.Info("Simulation started",
		"runId", run.ID,
		"strategy", string(req.Strategy),
		"startDate", req.StartDate.Format(time.DateOnly),
		"days", req.NumberOfDays,
		"betterPicklists", req.BetterPicklists,
	)
	return run, nil
}

// SimulateDay runs day dayIndex of a simulation. It returns nil when no pick
// list could be built for the day.
func (s *SimulationService) SimulateDay(
	ctx context.Context,
	runID string,
	req domain.SimulationRequest,
	dayIndex int,
	state *domain.RunState,
) (*domain.SimulationResult, error) {
	date := req.DayDate(dayIndex)
	ctx = logging.ContextWithRunID(ctx, runID)
	ctx, span := s.tracer.Start(ctx, "simulation.day",
		trace.WithAttributes(tracing.SimulationDayAttributes(runID, string(req.Strategy), date, dayIndex)...))
	defer span.End()

	result, err := s.simulateDay(ctx, req, dayIndex, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *SimulationService) simulateDay(
	ctx context.Context,
	req domain.SimulationRequest,
	dayIndex int,
	state *domain.RunState,
) (*domain.SimulationResult, error) {
	started := time.Now()
	date := req.DayDate(dayIndex)
	rng := dayRand(req.Seed, dayIndex)

	var rearrangements domain.MultipleRearrangementResult
	if dayIndex > 0 {
		opts := SlottingOptions{
			NumberOfClasses:     req.NumberOfClasses,
			OptimizedGroundZone: req.OptimizedGroundZone,
			ExactForecast:       req.ExactForecast,
		}
		recovered, err := s.engine.Slotting.Apply(ctx, req.Strategy, date, opts, state, rng)
		if err != nil {
			return nil, err
		}
		rearrangements.Add(recovered)
		if err := s.engine.Rearranger.RearrangeToExistingSlots(ctx); err != nil {
			return nil, err
		}
	}

	pool, reserved, err := s.engine.Reservations.ReservePool(ctx, date)
	if err != nil {
		return nil, err
	}
	rearrangements.Add(reserved)

	lists, err := s.buildPicklists(ctx, pool, req.BetterPicklists, 0, rng)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		s.logger.Info("No pick lists today", "date", date.Format(time.DateOnly))
		return nil, nil
	}

	if err := s.engine.Picklists.Process(ctx, lists); err != nil {
		return nil, fmt.Errorf("failed to process pick lists: %w", err)
	}

	lists, err = s.engine.Picklists.RouteLengths(ctx, lists)
	if err != nil {
		return nil, err
	}
	length := 0.0
	entries := 0
	for _, list := range lists {
		length += list.Length
		entries += len(list.Entries)
	}

	upkeep, err := s.engine.Rearranger.UpkeepGroundZone(ctx)
	if err != nil {
		return nil, err
	}
	inGround := upkeep
	inGround.Add(rearrangements.GroundToGround)

	result := &domain.SimulationResult{
		Date:                                  date,
		Length:                                length,
		PicklistEntryCount:                    entries,
		PicklistCount:                         len(lists),
		RearrangementCountHighzoneGroundzone:  rearrangements.HighToGround.Count,
		RearrangementLengthHighzoneGroundzone: rearrangements.HighToGround.Length,
		RearrangementCountInGroundzone:        inGround.Count,
		RearrangementLengthInGroundzone:       inGround.Length,
	}

	s.metrics.RecordSimulatedDay(string(req.Strategy), length)
	s.logger.DayCompleted(ctx, date, len(lists), length, time.Since(started))
	return result, nil
}

// RecordDay appends a day result to the run and publishes it
func (s *SimulationService) RecordDay(ctx context.Context, runID string, result domain.SimulationResult) error {
	if err := s.runs.AppendResult(ctx, runID, result); err != nil {
		return fmt.Errorf("failed to append day result: %w", err)
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishDayResult(ctx, runID, result); err != nil {
		s.logger.WithError(err).Warn("Failed to publish day result",
			"runId", runID, "date", result.Date.Format(time.DateOnly))
	}
	return nil
}

// CompleteRun marks a stored run as completed
func (s *SimulationService) CompleteRun(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation run: %w", err)
	}
	run.Complete()
	if err := s.finishRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// FailRun marks a stored run as failed with cause
func (s *SimulationService) FailRun(ctx context.Context, runID string, cause error) error {
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load simulation run: %w", err)
	}
	_ = s.failRun(ctx, run, cause)
	return nil
}

// GetRun returns a stored simulation run
func (s *SimulationService) GetRun(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	return s.runs.FindByID(ctx, runID)
}

// ListRuns returns the most recent simulation runs
func (s *SimulationService) ListRuns(ctx context.Context, limit int) ([]*domain.SimulationRun, error) {
	return s.runs.FindRecent(ctx, limit)
}

func (s *SimulationService) finishRun(ctx context.Context, run *domain.SimulationRun) error {
	if err := s.runs.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save simulation run: %w", err)
	}
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishRunCompleted(ctx, run); err != nil {
		s.logger.WithError(err).Warn("Failed to publish run completion", "runId", run.ID)
	}
	return nil
}

// failRun records cause on the run and returns it
func (s *SimulationService) failRun(ctx context.Context, run *domain.SimulationRun, cause error) error {
	s.logger.WithRun(run.ID).WithError(cause).Error("Simulation failed")
	run.Fail(cause)
	if err := s.finishRun(ctx, run); err != nil {
		s.logger.WithError(err).Error("Failed to persist failed run", "runId", run.ID)
	}
	return cause
}

// ReserveDay reserves the pick pool of date and returns the rearrangements it caused
func (s *SimulationService) ReserveDay(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	_, result, err := s.engine.Reservations.ReservePool(ctx, date)
	return result, err
}

// Picklists reserves the pick pool of date and builds at most count pick
// lists from it, 0 meaning all, scored by route length.
func (s *SimulationService) Picklists(ctx context.Context, date time.Time, better bool, count int, seed int64) ([]domain.Picklist, error) {
	pool, _, err := s.engine.Reservations.ReservePool(ctx, date)
	if err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	lists, err := s.buildPicklists(ctx, pool, better, count, dayRand(seed, 0))
	if err != nil {
		return nil, err
	}
	return s.engine.Picklists.RouteLengths(ctx, lists)
}

// RouteLengths scores externally supplied pick lists
func (s *SimulationService) RouteLengths(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error) {
	return s.engine.Picklists.RouteLengths(ctx, lists)
}

func (s *SimulationService) buildPicklists(ctx context.Context, pool *domain.PickPool, better bool, count int, rng *rand.Rand) ([]domain.Picklist, error) {
	if better {
		return s.engine.Picklists.Clustered(ctx, pool, count, rng)
	}
	return s.engine.Picklists.Sequential(ctx, pool, count)
}

// UpdateStock stores the arrivals of date at their booked slots
func (s *SimulationService) UpdateStock(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	result, err := s.engine.Slotting.Apply(ctx, domain.StrategyCurrent, date, SlottingOptions{}, domain.NewRunState(), dayRand(1, 0))
	if err != nil {
		return result, err
	}
	return result, s.engine.Rearranger.RearrangeToExistingSlots(ctx)
}

// CreateStock rebuilds the holdings of date from the movement history
func (s *SimulationService) CreateStock(ctx context.Context, date time.Time) error {
	return s.engine.Rearranger.CreateStock(ctx, date)
}

// RearrangeToExistingSlots moves stock off slots that are not laid out
func (s *SimulationService) RearrangeToExistingSlots(ctx context.Context) error {
	return s.engine.Rearranger.RearrangeToExistingSlots(ctx)
}

// RecoverCapacity runs one ground zone capacity recovery
func (s *SimulationService) RecoverCapacity(ctx context.Context) (domain.MultipleRearrangementResult, error) {
	return s.engine.Rearranger.RecoverGroundZoneCapacity(ctx)
}

// GetDistances fills in the scaled distance and speed of each pair
func (s *SimulationService) GetDistances(ctx context.Context, pairs []domain.DistanceResult) ([]domain.DistanceResult, error) {
	oracle := s.engine.Locator.Oracle()
	for i := range pairs {
		distance, err := oracle.Distance(pairs[i].Origin, pairs[i].Destination)
		if err != nil {
			return nil, fmt.Errorf("failed to compute distance %s -> %s: %w", pairs[i].Origin, pairs[i].Destination, err)
		}
		pairs[i].Distance = distance
		pairs[i].Speed = 0
		if pairs[i].Time != 0 {
			pairs[i].Speed = distance / float64(pairs[i].Time)
		}
	}
	return pairs, nil
}

// CalculatePickSpeed returns the historic picking speed in distance units
// per second. Lists without duration, longer than the configured maximum or
// with slots outside the distance index are ignored.
func (s *SimulationService) CalculatePickSpeed(ctx context.Context) (float64, error) {
	settings := s.engine.Settings.PickSpeed
	picklists, err := s.engine.Store.HistoricPicklists(ctx, settings.From)
	if err != nil {
		return 0, fmt.Errorf("failed to read historic pick lists: %w", err)
	}

	oracle := s.engine.Locator.Oracle()
	totalLength := 0.0
	totalSeconds := 0.0
	for _, picklist := range picklists {
		if picklist.Duration <= 0 || picklist.Duration > settings.MaxDuration {
			continue
		}
		codes, err := s.engine.Store.PicklistSlotCodes(ctx, picklist.PicklistID)
		if err != nil {
			return 0, fmt.Errorf("failed to read slots of pick list %d: %w", picklist.PicklistID, err)
		}
		length, err := oracle.RouteLengthForCodes(codes)
		if err != nil {
			s.logger.Debug("Skipping pick list outside distance index", "picklistId", picklist.PicklistID)
			continue
		}
		totalLength += length
		totalSeconds += picklist.Duration.Seconds()
	}

	if totalSeconds == 0 {
		return 0, nil
	}
	return totalLength / totalSeconds, nil
}

// SaleFigureStatistics compares the historic top sellers with the actual
// ones: how many articles both lists share, and the mean displacement of
// each historic top seller's position in the actual list.
func (s *SimulationService) SaleFigureStatistics(ctx context.Context) (*domain.SaleFigureStatistics, error) {
	settings := s.engine.Settings.SaleFigures
	history, err := s.engine.Store.TopSellers(ctx, settings.History, settings.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read historic sale figures: %w", err)
	}
	actual, err := s.engine.Store.TopSellers(ctx, settings.Actual, settings.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read actual sale figures: %w", err)
	}
	return compareTopSellers(history, actual, settings.MissingPenalty), nil
}

func compareTopSellers(history, actual []domain.ArticleKey, missingPenalty int) *domain.SaleFigureStatistics {
	positions := make(map[domain.ArticleKey]int, len(actual))
	for i, article := range actual {
		if _, ok := positions[article]; !ok {
			positions[article] = i
		}
	}

	stats := &domain.SaleFigureStatistics{}
	displacement := 0
	for i, article := range history {
		position, ok := positions[article]
		if !ok {
			displacement += missingPenalty
			continue
		}
		stats.IntersectionCount++
		displacement += int(math.Abs(float64(position - i)))
	}
	if len(history) > 0 {
		stats.AverageRankDisplacement = float64(displacement) / float64(len(history))
	}
	return stats
}

// dayRand returns the random source of one simulated day
func dayRand(seed int64, dayIndex int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(dayIndex)))
}
