package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
)

const (
	kindGroundToGround = "groundzone_groundzone"
	kindHighToGround   = "highzone_groundzone"
)

// RearrangementEngine builds stock and moves it between slots to keep the
// ground zone compact.
type RearrangementEngine struct {
	store    domain.WarehouseStore
	locator  *SlotLocator
	settings *config.Settings
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewRearrangementEngine creates a new RearrangementEngine
func NewRearrangementEngine(
	store domain.WarehouseStore,
	locator *SlotLocator,
	settings *config.Settings,
	m *metrics.Metrics,
	logger *logging.Logger,
) *RearrangementEngine {
	return &RearrangementEngine{
		store:    store,
		locator:  locator,
		settings: settings,
		metrics:  m,
		logger:   logger.WithComponent("rearrangement"),
	}
}

// CreateStock rebuilds all holdings from the movement history up to date
func (e *RearrangementEngine) CreateStock(ctx context.Context, date time.Time) error {
	if err := e.store.ClearHoldings(ctx); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}

	slotIDs, err := e.store.ListSlotIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list slots: %w", err)
	}

	err = forEachChunk(ctx, slotIDs, e.settings.ChunkSize, func(ctx context.Context, slotID int) error {
		incoming, err := e.store.IncomingBefore(ctx, slotID, date)
		if err != nil {
			return fmt.Errorf("failed to read incoming bookings of slot %d: %w", slotID, err)
		}
		if len(incoming) == 0 {
			return nil
		}
		outgoing, err := e.store.OutgoingBefore(ctx, slotID, date)
		if err != nil {
			return fmt.Errorf("failed to read outgoing bookings of slot %d: %w", slotID, err)
		}

		departed := make(map[domain.ArticleKey]int, len(outgoing))
		for _, out := range outgoing {
			departed[out.Article] += out.Quantity
		}
		for _, in := range incoming {
			remaining := in.Quantity - departed[in.Article]
			if remaining > 0 {
				e.storeBestEffort(ctx, domain.Holding{SlotID: slotID, Article: in.Article, Quantity: remaining})
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("Stock created", "date", date.Format(time.DateOnly), "slots", len(slotIDs))
	return nil
}

// RearrangeToExistingSlots moves stock held at slots without a physical
// layout to the nearest free laid-out slot of the same zone.
func (e *RearrangementEngine) RearrangeToExistingSlots(ctx context.Context) error {
	slots, err := e.store.ListNotLaidOutSlotsWithStock(ctx)
	if err != nil {
		return fmt.Errorf("failed to list slots without layout: %w", err)
	}

	holdings := make([][]domain.Holding, len(slots))
	positions := make([]int, len(slots))
	for i := range slots {
		positions[i] = i
	}
	err = forEachChunk(ctx, positions, e.settings.ChunkSize, func(ctx context.Context, i int) error {
		stock, err := e.store.Holdings(ctx, slots[i].ID)
		if err != nil {
			return fmt.Errorf("failed to read holdings of slot %d: %w", slots[i].ID, err)
		}
		holdings[i] = stock
		return nil
	})
	if err != nil {
		return err
	}

	moved := 0
	for i, slot := range slots {
		for _, holding := range holdings[i] {
			destination, err := e.store.FindNearestFreeLaidOutSlot(ctx, slot)
			if err != nil {
				return fmt.Errorf("failed to find laid-out slot for %s: %w", slot.Code, err)
			}
			if destination == 0 {
				e.logger.Warn("No free laid-out slot left, stock stays in place",
					"slotId", slot.ID, "article", holding.Article.String(), "quantity", holding.Quantity)
				continue
			}
			if err := e.MoveHolding(ctx, holding, destination); err != nil {
				return err
			}
			moved++
		}
	}

	if moved > 0 {
		e.logger.Info("Rearranged stock to existing slots", "moves", moved)
	}
	return nil
}

// MoveHolding books the holding out of its slot and into destination
func (e *RearrangementEngine) MoveHolding(ctx context.Context, holding domain.Holding, destination int) error {
	if err := e.store.Remove(ctx, holding); err != nil {
		return fmt.Errorf("failed to remove %s from slot %d: %w", holding.Article, holding.SlotID, err)
	}
	e.storeBestEffort(ctx, holding.At(destination))
	return nil
}

// ConsolidateLowFillSlots empties ground slots holding less than the low
// stock threshold into a same-aisle slot with the same article, or into the
// mixed-article overflow slot.
func (e *RearrangementEngine) ConsolidateLowFillSlots(ctx context.Context) (domain.RearrangementResult, error) {
	var result domain.RearrangementResult

	lowStock, err := e.store.ListLowStockGroundSlots(ctx, e.settings.LowStockThreshold)
	if err != nil {
		return result, fmt.Errorf("failed to list low stock slots: %w", err)
	}
	mixed, err := e.mixedSlotSet(ctx)
	if err != nil {
		return result, err
	}

	for _, slot := range lowStock {
		if _, ok := mixed[slot.ID]; ok {
			continue
		}
		stock, err := e.store.Holdings(ctx, slot.ID)
		if err != nil {
			return result, fmt.Errorf("failed to read holdings of slot %d: %w", slot.ID, err)
		}
		for _, holding := range stock {
			destination, err := e.store.FindSameArticleSlotInAisle(ctx, slot, holding)
			if err != nil {
				return result, fmt.Errorf("failed to find same aisle slot: %w", err)
			}
			if destination == 0 {
				destination, err = e.nextMixedSlot(ctx)
				if err != nil {
					return result, err
				}
			}
			if destination == 0 {
				e.logger.Warn("No mixed-article slot available, skipping consolidation",
					"slotId", slot.ID, "article", holding.Article.String())
				continue
			}

			if err := e.moveAndRecord(ctx, &result, holding, destination); err != nil {
				return result, err
			}
		}
	}

	e.metrics.RecordRearrangements(kindGroundToGround, result.Count)
	e.logger.Rearrangement(ctx, "consolidate-low-fill", result.Count, result.Length)
	return result, nil
}

// CondenseSameArticleHoldings merges ground slots of the same article whose
// combined fill ratio fits into a single slot.
func (e *RearrangementEngine) CondenseSameArticleHoldings(ctx context.Context) (domain.RearrangementResult, error) {
	var result domain.RearrangementResult

	slotIDs, err := e.store.ListLowFillRatioSlotIDs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list low fill ratio slots: %w", err)
	}

	var articles []domain.ArticleKey
	seen := make(map[domain.ArticleKey]struct{})
	for _, slotID := range slotIDs {
		stock, err := e.store.Holdings(ctx, slotID)
		if err != nil {
			return result, fmt.Errorf("failed to read holdings of slot %d: %w", slotID, err)
		}
		for _, holding := range stock {
			if _, ok := seen[holding.Article]; !ok {
				seen[holding.Article] = struct{}{}
				articles = append(articles, holding.Article)
			}
			if err := e.condenseArticle(ctx, &result, holding.Article); err != nil {
				return result, err
			}
		}
	}

	for _, article := range articles {
		if err := e.condenseArticle(ctx, &result, article); err != nil {
			return result, err
		}
	}

	e.metrics.RecordRearrangements(kindGroundToGround, result.Count)
	e.logger.Rearrangement(ctx, "condense", result.Count, result.Length)
	return result, nil
}

func (e *RearrangementEngine) condenseArticle(ctx context.Context, result *domain.RearrangementResult, article domain.ArticleKey) error {
	slots, err := e.store.GroundSlotsForArticle(ctx, article)
	if err != nil {
		return fmt.Errorf("failed to list ground slots of %s: %w", article, err)
	}
	if len(slots) < 2 {
		return nil
	}

	for _, subset := range fillRatioSubsets(slots) {
		if len(subset) < 2 {
			continue
		}
		target := fullestSlot(subset)
		for _, slot := range subset {
			if slot.ID == target.ID {
				continue
			}
			quantity, err := e.heldQuantity(ctx, slot.ID, article)
			if err != nil {
				return err
			}
			if quantity == 0 {
				continue
			}
			holding := domain.Holding{SlotID: slot.ID, Article: article, Quantity: quantity}
			if err := e.moveAndRecord(ctx, result, holding, target.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillRatioSubsets buckets slots, given in ascending fill ratio order, into
// consecutive groups whose summed fill ratio stays at or below one. A slot
// that does not fit starts the next group.
func fillRatioSubsets(slots []domain.Slot) [][]domain.Slot {
	var subsets [][]domain.Slot
	var current []domain.Slot
	sum := 0.0

	for _, slot := range slots {
		if len(current) > 0 && sum+slot.FillRatio > 1 {
			subsets = append(subsets, current)
			current = nil
			sum = 0
		}
		current = append(current, slot)
		sum += slot.FillRatio
	}
	if len(current) > 0 {
		subsets = append(subsets, current)
	}
	return subsets
}

// fullestSlot returns the first slot with the highest fill ratio
func fullestSlot(slots []domain.Slot) domain.Slot {
	best := slots[0]
	for _, slot := range slots[1:] {
		if slot.FillRatio > best.FillRatio {
			best = slot
		}
	}
	return best
}

// PromoteFrequentArticles reduces articles spread over several ground slots
// to their fullest slot, moving the surplus holdings to the nearest free high
// zone slot, while ground zone occupancy is at or above the configured target.
func (e *RearrangementEngine) PromoteFrequentArticles(ctx context.Context) (domain.RearrangementResult, error) {
	var result domain.RearrangementResult

	articles, err := e.store.ArticlesWithMultipleGroundSlots(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list spread articles: %w", err)
	}
	mixed, err := e.mixedSlotSet(ctx)
	if err != nil {
		return result, err
	}

	defer func() {
		e.metrics.RecordRearrangements(kindHighToGround, result.Count)
		e.logger.Rearrangement(ctx, "promote", result.Count, result.Length)
	}()

	for _, article := range articles {
		below, err := e.groundZoneBelowTarget(ctx)
		if err != nil || below {
			return result, err
		}

		slots, err := e.store.GroundSlotsForArticle(ctx, article)
		if err != nil {
			return result, fmt.Errorf("failed to list ground slots of %s: %w", article, err)
		}

		surplus := make([]domain.Slot, 0, len(slots))
		for _, slot := range slots {
			if _, ok := mixed[slot.ID]; !ok {
				surplus = append(surplus, slot)
			}
		}
		if len(surplus) > 0 {
			surplus = surplus[:len(surplus)-1]
		}

		for _, slot := range surplus {
			stock, err := e.store.Holdings(ctx, slot.ID)
			if err != nil {
				return result, fmt.Errorf("failed to read holdings of slot %d: %w", slot.ID, err)
			}
			for _, holding := range stock {
				destination, err := e.locator.NextFreeSlotByDistance(ctx, holding.SlotID, domain.ZoneHigh)
				if err != nil {
					return result, err
				}
				if destination == 0 {
					e.logger.Warn("High zone full, stopping promotion", "article", article.String())
					return result, nil
				}
				if err := e.moveAndRecord(ctx, &result, holding, destination); err != nil {
					return result, err
				}
			}

			below, err := e.groundZoneBelowTarget(ctx)
			if err != nil || below {
				return result, err
			}
		}
	}
	return result, nil
}

func (e *RearrangementEngine) groundZoneBelowTarget(ctx context.Context) (bool, error) {
	occupancy, err := e.store.GroundZoneOccupancy(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read ground zone occupancy: %w", err)
	}
	return occupancy < e.settings.FillRatioGroundZone, nil
}

// RecoverGroundZoneCapacity frees ground zone slots by consolidating,
// condensing and promoting, in that order.
func (e *RearrangementEngine) RecoverGroundZoneCapacity(ctx context.Context) (domain.MultipleRearrangementResult, error) {
	var result domain.MultipleRearrangementResult
	e.logger.Info("Ground zone full, recovering capacity")

	consolidated, err := e.ConsolidateLowFillSlots(ctx)
	if err != nil {
		return result, err
	}
	result.GroundToGround.Add(consolidated)

	condensed, err := e.CondenseSameArticleHoldings(ctx)
	if err != nil {
		return result, err
	}
	result.GroundToGround.Add(condensed)

	promoted, err := e.PromoteFrequentArticles(ctx)
	if err != nil {
		return result, err
	}
	result.HighToGround.Add(promoted)

	return result, nil
}

// FindWithRecovery runs find and, while it yields no slot, recovers ground
// zone capacity and retries, up to the configured number of attempts.
func (e *RearrangementEngine) FindWithRecovery(
	ctx context.Context,
	find func(ctx context.Context) (int, error),
) (int, domain.MultipleRearrangementResult, error) {
	var recovered domain.MultipleRearrangementResult
	for attempt := 0; ; attempt++ {
		destination, err := find(ctx)
		if err != nil {
			return 0, recovered, err
		}
		if destination != 0 {
			return destination, recovered, nil
		}
		if attempt >= e.settings.MaxRecoveryAttempts {
			return 0, recovered, fmt.Errorf("%w: after %d attempts", domain.ErrCapacityExhausted, attempt)
		}

		result, err := e.RecoverGroundZoneCapacity(ctx)
		if err != nil {
			return 0, recovered, fmt.Errorf("failed to recover ground zone capacity: %w", err)
		}
		recovered.Add(result)
	}
}

// UpkeepGroundZone runs the end-of-day consolidation and condensation
func (e *RearrangementEngine) UpkeepGroundZone(ctx context.Context) (domain.RearrangementResult, error) {
	result, err := e.ConsolidateLowFillSlots(ctx)
	if err != nil {
		return result, err
	}
	condensed, err := e.CondenseSameArticleHoldings(ctx)
	if err != nil {
		return result, err
	}
	result.Add(condensed)
	return result, nil
}

func (e *RearrangementEngine) moveAndRecord(ctx context.Context, result *domain.RearrangementResult, holding domain.Holding, destination int) error {
	distance, err := e.locator.MoveDistance(ctx, holding.SlotID, destination)
	if err != nil {
		return err
	}
	if err := e.MoveHolding(ctx, holding, destination); err != nil {
		return err
	}
	result.Record(distance)
	return nil
}

func (e *RearrangementEngine) heldQuantity(ctx context.Context, slotID int, article domain.ArticleKey) (int, error) {
	stock, err := e.store.Holdings(ctx, slotID)
	if err != nil {
		return 0, fmt.Errorf("failed to read holdings of slot %d: %w", slotID, err)
	}
	for _, holding := range stock {
		if holding.Article == article {
			return holding.Quantity, nil
		}
	}
	return 0, nil
}

func (e *RearrangementEngine) mixedSlotSet(ctx context.Context) (map[int]struct{}, error) {
	ids, err := e.store.ListMixedSlotIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mixed-article slots: %w", err)
	}
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// nextMixedSlot returns the emptiest mixed-article slot, 0 if none exists
func (e *RearrangementEngine) nextMixedSlot(ctx context.Context) (int, error) {
	ids, err := e.store.ListMixedSlotIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list mixed-article slots: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

// storeBestEffort books stock into a slot; write failures are logged and ignored
func (e *RearrangementEngine) storeBestEffort(ctx context.Context, holding domain.Holding) {
	if err := e.store.Store(ctx, holding); err != nil {
		e.logger.WithError(err).Warn("Failed to store holding",
			"slotId", holding.SlotID, "article", holding.Article.String(), "quantity", holding.Quantity)
	}
}
