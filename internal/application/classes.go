package application

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

// ClassRange is a contiguous window of an ordered list that forms one class
type ClassRange struct {
	Class  int
	Offset int
	Limit  int
}

// PartitionClasses splits total ordered items into len(thresholds)+1
// contiguous classes. Each threshold is the cumulative upper bound of a class
// as a fraction of total; the last class takes the remainder.
func PartitionClasses(total int, thresholds []float64) []ClassRange {
	ranges := make([]ClassRange, 0, len(thresholds)+1)
	offset := 0
	for i, upper := range thresholds {
		end := int(math.Round(float64(total) * upper))
		end = max(offset, min(end, total))
		ranges = append(ranges, ClassRange{Class: i + 1, Offset: offset, Limit: end - offset})
		offset = end
	}
	ranges = append(ranges, ClassRange{Class: len(thresholds) + 1, Offset: offset, Limit: total - offset})
	return ranges
}

// ClassAssigner maintains sales ranks and the class tags of slots and articles
type ClassAssigner struct {
	store    domain.WarehouseStore
	settings *config.Settings
	logger   *logging.Logger
}

// NewClassAssigner creates a new ClassAssigner
func NewClassAssigner(store domain.WarehouseStore, settings *config.Settings, logger *logging.Logger) *ClassAssigner {
	return &ClassAssigner{
		store:    store,
		settings: settings,
		logger:   logger.WithComponent("class-assigner"),
	}
}

// AssignSalesRanks ranks articles by sales, either the exact figures of the
// month of date or the rolling window ending at date.
func (a *ClassAssigner) AssignSalesRanks(ctx context.Context, date time.Time, exact bool) error {
	if err := a.store.ClearRanks(ctx); err != nil {
		return fmt.Errorf("failed to clear sales ranks: %w", err)
	}

	var (
		ranking []domain.ArticleKey
		err     error
	)
	if exact {
		ranking, err = a.store.ExactSalesRanking(ctx, date.Month(), date.Year())
	} else {
		ranking, err = a.store.RollingSalesRanking(ctx, date)
	}
	if err != nil {
		return fmt.Errorf("failed to compute sales ranking: %w", err)
	}

	positions := make([]int, len(ranking))
	for i := range ranking {
		positions[i] = i
	}
	err = forEachChunk(ctx, positions, a.settings.ChunkSize, func(ctx context.Context, i int) error {
		if err := a.store.SetRank(ctx, ranking[i], i+1); err != nil {
			return fmt.Errorf("failed to set rank of %s: %w", ranking[i], err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.Info("Sales ranks assigned", "date", date.Format(time.DateOnly), "exact", exact, "ranked", len(ranking))
	return nil
}

// AssignSlotClassesBySalesRank gives every ranked article its own class of
// slots, walking slots outward from the depot. A class is only closed once
// it contains at least one ground zone slot. Slots left over receive the
// class after the last rank.
func (a *ClassAssigner) AssignSlotClassesBySalesRank(ctx context.Context) error {
	if err := a.store.ClearSlotClasses(ctx); err != nil {
		return fmt.Errorf("failed to clear slot classes: %w", err)
	}

	ranked, err := a.store.CountRankedArticles(ctx)
	if err != nil {
		return fmt.Errorf("failed to count ranked articles: %w", err)
	}
	total, err := a.store.CountArticles(ctx)
	if err != nil {
		return fmt.Errorf("failed to count articles: %w", err)
	}
	laidOut, err := a.store.CountLaidOutSlots(ctx)
	if err != nil {
		return fmt.Errorf("failed to count laid-out slots: %w", err)
	}

	classSize := 1
	if total > 0 {
		classSize = max(1, int(math.Round(float64(laidOut)/float64(total))))
	}

	slots, err := a.store.ListUnclassedSlotsByDistance(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unclassed slots: %w", err)
	}

	classes := make(map[int]int, len(slots))
	classToSet := 1
	counter := 0
	groundIncluded := false
	for _, slot := range slots {
		if classToSet == ranked+1 {
			break
		}
		if slot.IsGroundZone() {
			groundIncluded = true
		}
		classes[slot.ID] = classToSet
		counter++
		if counter >= classSize && groundIncluded {
			counter = 0
			groundIncluded = false
			classToSet++
		}
	}

	for _, slot := range slots {
		if _, ok := classes[slot.ID]; !ok {
			classes[slot.ID] = ranked + 1
		}
	}

	if err := a.applySlotClasses(ctx, classes); err != nil {
		return err
	}

	a.logger.Info("Slot classes assigned by sales rank", "ranked", ranked, "classSize", classSize, "slots", len(slots))
	return nil
}

// AssignSlotClasses partitions laid-out slots by depot distance into
// numberOfClasses classes.
func (a *ClassAssigner) AssignSlotClasses(ctx context.Context, numberOfClasses int) error {
	thresholds, err := a.settings.ClassThresholds(numberOfClasses)
	if err != nil {
		return err
	}
	if err := a.store.ClearSlotClasses(ctx); err != nil {
		return fmt.Errorf("failed to clear slot classes: %w", err)
	}
	total, err := a.store.CountLaidOutSlots(ctx)
	if err != nil {
		return fmt.Errorf("failed to count laid-out slots: %w", err)
	}

	classes := make(map[int]int, total)
	for _, r := range PartitionClasses(total, thresholds) {
		ids, err := a.store.ListSlotIDsForClassing(ctx, r.Limit, r.Offset)
		if err != nil {
			return fmt.Errorf("failed to list slots of class %d: %w", r.Class, err)
		}
		for _, id := range ids {
			classes[id] = r.Class
		}
	}
	return a.applySlotClasses(ctx, classes)
}

// AssignArticleClasses partitions articles by sales rank into
// numberOfClasses classes.
func (a *ClassAssigner) AssignArticleClasses(ctx context.Context, numberOfClasses int) error {
	thresholds, err := a.settings.ClassThresholds(numberOfClasses)
	if err != nil {
		return err
	}
	if err := a.store.ClearClasses(ctx); err != nil {
		return fmt.Errorf("failed to clear article classes: %w", err)
	}
	total, err := a.store.CountArticles(ctx)
	if err != nil {
		return fmt.Errorf("failed to count articles: %w", err)
	}

	type assignment struct {
		article domain.ArticleKey
		class   int
	}
	var assignments []assignment
	for _, r := range PartitionClasses(total, thresholds) {
		articles, err := a.store.ListArticlesForClassing(ctx, r.Limit, r.Offset)
		if err != nil {
			return fmt.Errorf("failed to list articles of class %d: %w", r.Class, err)
		}
		for _, article := range articles {
			assignments = append(assignments, assignment{article: article, class: r.Class})
		}
	}

	return forEachChunk(ctx, assignments, a.settings.ChunkSize, func(ctx context.Context, item assignment) error {
		if err := a.store.SetClass(ctx, item.article, item.class); err != nil {
			return fmt.Errorf("failed to set class of %s: %w", item.article, err)
		}
		return nil
	})
}

func (a *ClassAssigner) applySlotClasses(ctx context.Context, classes map[int]int) error {
	ids := make([]int, 0, len(classes))
	for id := range classes {
		ids = append(ids, id)
	}
	return forEachChunk(ctx, ids, a.settings.ChunkSize, func(ctx context.Context, id int) error {
		if err := a.store.SetSlotClass(ctx, id, classes[id]); err != nil {
			return fmt.Errorf("failed to set class of slot %d: %w", id, err)
		}
		return nil
	})
}
