package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

// SlotLocator combines the slot directory with the distance oracle to answer
// slot-id based distance questions.
type SlotLocator struct {
	slots  domain.SlotDirectory
	oracle *DistanceOracle
	logger *logging.Logger
}

// NewSlotLocator creates a new SlotLocator
func NewSlotLocator(slots domain.SlotDirectory, oracle *DistanceOracle, logger *logging.Logger) *SlotLocator {
	return &SlotLocator{
		slots:  slots,
		oracle: oracle,
		logger: logger.WithComponent("slot-locator"),
	}
}

// Oracle returns the underlying distance oracle
func (l *SlotLocator) Oracle() *DistanceOracle {
	return l.oracle
}

// CodeOf resolves a slot id to its code
func (l *SlotLocator) CodeOf(ctx context.Context, slotID int) (string, error) {
	slot, err := l.slots.GetSlot(ctx, slotID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve slot %d: %w", slotID, err)
	}
	return slot.Code, nil
}

// MoveDistance returns the travel distance of a stock move between two slots.
// Moves between slots outside the distance index count as zero so that the
// move itself, which has already happened, stays in the statistics.
func (l *SlotLocator) MoveDistance(ctx context.Context, origin, destination int) (float64, error) {
	from, err := l.CodeOf(ctx, origin)
	if err != nil {
		return 0, err
	}
	to, err := l.CodeOf(ctx, destination)
	if err != nil {
		return 0, err
	}
	distance, err := l.oracle.Distance(from, to)
	if errors.Is(err, domain.ErrUnknownSlotCode) {
		l.logger.Warn("Move outside distance index, counting zero distance",
			"origin", from, "destination", to)
		return 0, nil
	}
	return distance, err
}

// NextFreeSlotByDistance returns the free laid-out slot of zone that is
// closest to origin, or 0 when the zone is full. An origin outside the
// distance index searches from the depot.
func (l *SlotLocator) NextFreeSlotByDistance(ctx context.Context, origin int, zone domain.Zone) (int, error) {
	code, err := l.CodeOf(ctx, origin)
	if err != nil {
		return 0, err
	}

	node, err := l.oracle.IndexOf(code)
	if err != nil {
		l.logger.Debug("Origin outside distance index, searching from depot", "slotId", origin, "code", code)
		node = l.oracle.Depot()
	}

	free, err := l.slots.ListFreeSlotBaseCodes(ctx, zone)
	if err != nil {
		return 0, fmt.Errorf("failed to list free slots: %w", err)
	}
	if len(free) == 0 {
		return 0, nil
	}
	freeSet := make(map[string]struct{}, len(free))
	for _, base := range free {
		freeSet[base] = struct{}{}
	}

	for _, base := range l.oracle.NearestFromNode(node) {
		if _, ok := freeSet[base]; !ok {
			continue
		}
		ids, err := l.slots.ListFreeSlotIDsByBaseCode(ctx, base, zone)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve free slot %s: %w", base, err)
		}
		if len(ids) > 0 {
			return ids[0], nil
		}
	}
	return 0, nil
}
