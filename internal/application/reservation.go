package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

// ReservationService resolves a pick slot for every line of a day's pick
// pool and reserves the picked quantity there.
type ReservationService struct {
	store      domain.WarehouseStore
	locator    *SlotLocator
	rearranger *RearrangementEngine
	settings   *config.Settings
	logger     *logging.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	store domain.WarehouseStore,
	locator *SlotLocator,
	rearranger *RearrangementEngine,
	settings *config.Settings,
	logger *logging.Logger,
) *ReservationService {
	return &ReservationService{
		store:      store,
		locator:    locator,
		rearranger: rearranger,
		settings:   settings,
		logger:     logger.WithComponent("reservation"),
	}
}

// ReservePool selects the pick pool of date and reserves a ground zone slot
// for each line, pulling stock down from the high zone when needed. Lines
// without stock anywhere are dropped. When capacity recovery moved stock
// inside the ground zone, the pass is restarted once on the new layout.
func (s *ReservationService) ReservePool(ctx context.Context, date time.Time) (*domain.PickPool, domain.MultipleRearrangementResult, error) {
	var total domain.MultipleRearrangementResult

	pool, result, complete, err := s.reservePass(ctx, date, true)
	total.Add(result)
	if err != nil {
		return nil, total, err
	}
	if complete {
		return pool, total, nil
	}

	s.logger.Info("Ground zone rearranged during reservation, restarting pass",
		"date", date.Format(time.DateOnly), "groundzoneMoves", result.GroundToGround.Count)

	pool, result, _, err = s.reservePass(ctx, date, false)
	total.Add(result)
	if err != nil {
		return nil, total, err
	}
	return pool, total, nil
}

// reservePass runs one reservation pass. It reports complete=false when it
// stopped early because abortOnGroundMoves was set and recovery moved stock
// inside the ground zone.
func (s *ReservationService) reservePass(
	ctx context.Context,
	date time.Time,
	abortOnGroundMoves bool,
) (*domain.PickPool, domain.MultipleRearrangementResult, bool, error) {
	var result domain.MultipleRearrangementResult

	if err := s.store.ClearReservations(ctx); err != nil {
		return nil, result, false, fmt.Errorf("failed to clear reservations: %w", err)
	}
	lines, err := s.store.SelectPickPool(ctx, date)
	if err != nil {
		return nil, result, false, fmt.Errorf("failed to select pick pool: %w", err)
	}

	pool := &domain.PickPool{Date: date, Lines: make([]domain.OrderLine, 0, len(lines))}
	for _, line := range lines {
		slot, lineResult, err := s.resolvePickSlot(ctx, line)
		result.Add(lineResult)
		if err != nil {
			return nil, result, false, err
		}
		if slot == nil {
			s.logger.Debug("No stock for order line, dropping it",
				"article", line.Article.String(), "quantity", line.Quantity, "orderId", line.OrderID)
			continue
		}

		line.SlotID = slot.ID
		line.SlotCode = slot.Code
		if err := s.store.Reserve(ctx, line.Reservation()); err != nil {
			s.logger.WithError(err).Warn("Failed to reserve pick slot",
				"slotId", slot.ID, "article", line.Article.String(), "quantity", line.Quantity)
		}
		pool.Lines = append(pool.Lines, line)

		if abortOnGroundMoves && lineResult.GroundToGround.Count > 0 {
			return pool, result, false, nil
		}
	}
	return pool, result, true, nil
}

// resolvePickSlot returns the ground slot to pick line from, or nil when the
// article has no sufficient stock in either zone.
func (s *ReservationService) resolvePickSlot(ctx context.Context, line domain.OrderLine) (*domain.Slot, domain.MultipleRearrangementResult, error) {
	var result domain.MultipleRearrangementResult

	slot, err := s.store.FindPickSlot(ctx, line.Article, line.Quantity)
	if err != nil {
		return nil, result, fmt.Errorf("failed to find pick slot for %s: %w", line.Article, err)
	}
	if slot != nil {
		return slot, result, nil
	}

	supply, err := s.store.FindHighZoneSupply(ctx, line.Article, line.Quantity)
	if err != nil {
		return nil, result, fmt.Errorf("failed to find high zone supply for %s: %w", line.Article, err)
	}
	if supply == nil {
		return nil, result, nil
	}

	destination, recovered, err := s.rearranger.FindWithRecovery(ctx, func(ctx context.Context) (int, error) {
		return s.locator.NextFreeSlotByDistance(ctx, supply.SlotID, domain.ZoneGround)
	})
	result.Add(recovered)
	if err != nil {
		return nil, result, err
	}

	distance, err := s.locator.MoveDistance(ctx, supply.SlotID, destination)
	if err != nil {
		return nil, result, err
	}
	if err := s.rearranger.MoveHolding(ctx, *supply, destination); err != nil {
		return nil, result, err
	}
	result.HighToGround.Record(distance)
	s.logger.Debug("Pulled stock down from high zone",
		"article", line.Article.String(), "origin", supply.SlotID, "destination", destination)

	slot, err = s.store.FindPickSlot(ctx, line.Article, line.Quantity)
	if err != nil {
		return nil, result, fmt.Errorf("failed to find pick slot for %s: %w", line.Article, err)
	}
	if slot == nil {
		s.logger.Warn("Pulled stock not pickable, dropping order line",
			"article", line.Article.String(), "quantity", line.Quantity, "slotId", destination)
	}
	return slot, result, nil
}
