package application

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

// SlottingOptions carries the per-run switches of the class based strategies
type SlottingOptions struct {
	NumberOfClasses     int
	OptimizedGroundZone bool
	ExactForecast       bool
}

// SlottingEngine assigns incoming goods to destination slots
type SlottingEngine struct {
	store      domain.WarehouseStore
	locator    *SlotLocator
	rearranger *RearrangementEngine
	classes    *ClassAssigner
	settings   *config.Settings
	logger     *logging.Logger
}

// NewSlottingEngine creates a new SlottingEngine
func NewSlottingEngine(
	store domain.WarehouseStore,
	locator *SlotLocator,
	rearranger *RearrangementEngine,
	classes *ClassAssigner,
	settings *config.Settings,
	logger *logging.Logger,
) *SlottingEngine {
	return &SlottingEngine{
		store:      store,
		locator:    locator,
		rearranger: rearranger,
		classes:    classes,
		settings:   settings,
		logger:     logger.WithComponent("slotting"),
	}
}

// Apply stores the arrivals of date according to strategy. The returned
// result holds the moves of any capacity recovery the strategy triggered.
func (e *SlottingEngine) Apply(
	ctx context.Context,
	strategy domain.Strategy,
	date time.Time,
	opts SlottingOptions,
	state *domain.RunState,
	rng *rand.Rand,
) (domain.MultipleRearrangementResult, error) {
	var (
		recovered domain.MultipleRearrangementResult
		err       error
	)
	switch strategy {
	case domain.StrategyCurrent:
		recovered, err = e.slotCurrent(ctx, date)
	case domain.StrategyRandom:
		err = e.slotRandom(ctx, date, rng)
	case domain.StrategyRandomWithPreferredGroundZone:
		err = e.slotRandomPreferGround(ctx, date, rng)
	case domain.StrategyPreferredLowDistance:
		err = e.slotLowDistance(ctx, date)
	case domain.StrategyDistanceBySalesRank:
		err = e.slotBySalesRank(ctx, date, opts, state)
	case domain.StrategyClasses:
		err = e.slotByClasses(ctx, date, opts, state, rng)
	default:
		return recovered, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}
	if err != nil {
		return recovered, fmt.Errorf("failed to apply %s slotting for %s: %w", strategy, date.Format(time.DateOnly), err)
	}
	return recovered, nil
}

// destinationFunc picks the destination of a single arrival that is above
// the low stock threshold.
type destinationFunc func(ctx context.Context, arrival domain.IncomingGoods) (int, error)

func (e *SlottingEngine) storeArrivals(ctx context.Context, date time.Time, pick destinationFunc) error {
	arrivals, err := e.store.ArrivalsOn(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to read arrivals: %w", err)
	}

	for _, arrival := range arrivals {
		var destination int
		if arrival.Quantity <= e.settings.LowStockThreshold {
			destination, err = e.mixedSlot(ctx)
		} else {
			destination, err = pick(ctx, arrival)
		}
		if err != nil {
			return err
		}

		holding := arrival.Holding().At(destination)
		if err := e.store.Store(ctx, holding); err != nil {
			e.logger.WithError(err).Warn("Failed to store arrival",
				"slotId", destination, "article", arrival.Article.String(), "quantity", arrival.Quantity)
		}
	}

	e.logger.Debug("Arrivals stored", "date", date.Format(time.DateOnly), "count", len(arrivals))
	return nil
}

func (e *SlottingEngine) mixedSlot(ctx context.Context) (int, error) {
	destination, err := e.rearranger.nextMixedSlot(ctx)
	if err != nil {
		return 0, err
	}
	if destination == 0 {
		return 0, domain.ErrNoMixedSlot
	}
	return destination, nil
}

// slotCurrent keeps goods at their booked slot unless it already holds
// stock, in which case the nearest free slot of the same zone is used.
func (e *SlottingEngine) slotCurrent(ctx context.Context, date time.Time) (domain.MultipleRearrangementResult, error) {
	var recovered domain.MultipleRearrangementResult
	err := e.storeArrivals(ctx, date, func(ctx context.Context, arrival domain.IncomingGoods) (int, error) {
		stock, err := e.store.Holdings(ctx, arrival.SlotID)
		if err != nil {
			return 0, fmt.Errorf("failed to read holdings of slot %d: %w", arrival.SlotID, err)
		}
		if len(stock) == 0 {
			return arrival.SlotID, nil
		}

		slot, err := e.store.GetSlot(ctx, arrival.SlotID)
		if err != nil {
			return 0, fmt.Errorf("failed to get slot %d: %w", arrival.SlotID, err)
		}
		destination, result, err := e.rearranger.FindWithRecovery(ctx, func(ctx context.Context) (int, error) {
			return e.locator.NextFreeSlotByDistance(ctx, slot.ID, slot.Zone)
		})
		recovered.Add(result)
		return destination, err
	})
	return recovered, err
}

func (e *SlottingEngine) slotRandom(ctx context.Context, date time.Time, rng *rand.Rand) error {
	free, err := e.randomPool(ctx, domain.ZoneAny)
	if err != nil {
		return err
	}
	return e.storeArrivals(ctx, date, func(ctx context.Context, arrival domain.IncomingGoods) (int, error) {
		return drawSlot(&free, rng)
	})
}

func (e *SlottingEngine) slotRandomPreferGround(ctx context.Context, date time.Time, rng *rand.Rand) error {
	ground, err := e.randomPool(ctx, domain.ZoneGround)
	if err != nil {
		return err
	}

	var anyZone []int
	fallback := false
	return e.storeArrivals(ctx, date, func(ctx context.Context, arrival domain.IncomingGoods) (int, error) {
		if len(ground) > 0 {
			return drawSlot(&ground, rng)
		}
		if !fallback {
			anyZone, err = e.randomPool(ctx, domain.ZoneAny)
			if err != nil {
				return 0, err
			}
			fallback = true
		}
		return drawSlot(&anyZone, rng)
	})
}

// randomPool lists the free slots of zone that a random draw may hit.
// Mixed-article slots are reserved for low stock arrivals.
func (e *SlottingEngine) randomPool(ctx context.Context, zone domain.Zone) ([]int, error) {
	free, err := e.store.ListFreeSlotIDs(ctx, domain.FreeSlotQuery{Zone: zone})
	if err != nil {
		return nil, fmt.Errorf("failed to list free slots: %w", err)
	}
	mixed, err := e.rearranger.mixedSlotSet(ctx)
	if err != nil {
		return nil, err
	}
	pool := free[:0]
	for _, id := range free {
		if _, ok := mixed[id]; !ok {
			pool = append(pool, id)
		}
	}
	return pool, nil
}

func (e *SlottingEngine) slotLowDistance(ctx context.Context, date time.Time) error {
	free, err := e.store.ListFreeSlotIDs(ctx, domain.FreeSlotQuery{Zone: domain.ZoneAny, OrderByDistance: true})
	if err != nil {
		return fmt.Errorf("failed to list free slots: %w", err)
	}
	return e.storeArrivals(ctx, date, func(ctx context.Context, arrival domain.IncomingGoods) (int, error) {
		if len(free) == 0 {
			return 0, domain.ErrNoDestinationSlot
		}
		destination := free[0]
		free = free[1:]
		return destination, nil
	})
}

// slotBySalesRank refreshes ranks and rank-sized slot classes once per month
// and places each article in the class matching its rank.
func (e *SlottingEngine) slotBySalesRank(ctx context.Context, date time.Time, opts SlottingOptions, state *domain.RunState) error {
	if state.NeedsSalesRankRefresh(date) {
		if err := e.classes.AssignSalesRanks(ctx, date, opts.ExactForecast); err != nil {
			return err
		}
		if err := e.classes.AssignSlotClassesBySalesRank(ctx); err != nil {
			return err
		}
		state.MarkSalesRanked(date)
	}

	maxClass, err := e.store.MaxSlotClass(ctx)
	if err != nil {
		return fmt.Errorf("failed to read highest slot class: %w", err)
	}

	return e.storeArrivals(ctx, date, func(ctx context.Context, arrival domain.IncomingGoods) (int, error) {
		class := arrival.Rank
		if class == 0 {
			class = maxClass
		}

		zone := domain.ZoneAny
		if opts.OptimizedGroundZone {
			var err error
			zone, err = e.forecastZone(ctx, arrival.Article, date, opts.ExactForecast)
			if err != nil {
				return 0, err
			}
		}

		free, err := e.store.ListFreeSlotIDsInClass(ctx, class, zone)
		if err != nil {
			return 0, fmt.Errorf("failed to list free slots of class %d: %w", class, err)
		}
		if len(free) > 0 {
			return free[0], nil
		}
		return e.adjacentClassSlot(ctx, class, zone)
	})
}

// forecastZone places goods in the ground zone only while its current stock
// does not already cover the forecast demand.
func (e *SlottingEngine) forecastZone(ctx context.Context, article domain.ArticleKey, date time.Time, exact bool) (domain.Zone, error) {
	stock, err := e.store.GroundZoneStock(ctx, article)
	if err != nil {
		return "", fmt.Errorf("failed to read ground zone stock of %s: %w", article, err)
	}

	var demand int
	if exact {
		demand, err = e.store.ExactSales(ctx, article, date)
	} else {
		demand, err = e.store.ExpectedSales(ctx, article, date)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read sales forecast of %s: %w", article, err)
	}

	if stock <= demand {
		return domain.ZoneGround, nil
	}
	return domain.ZoneHigh, nil
}

// slotByClasses partitions slots once per run and articles once per month,
// then draws a random free slot of the article's class.
func (e *SlottingEngine) slotByClasses(ctx context.Context, date time.Time, opts SlottingOptions, state *domain.RunState, rng *rand.Rand) error {
	if !state.ClassesAssigned {
		if err := e.classes.AssignSlotClasses(ctx, opts.NumberOfClasses); err != nil {
			return err
		}
		state.ClassesAssigned = true
	}
	if state.NeedsSalesRankRefresh(date) {
		if err := e.classes.AssignSalesRanks(ctx, date, false); err != nil {
			return err
		}
		if err := e.classes.AssignArticleClasses(ctx, opts.NumberOfClasses); err != nil {
			return err
		}
		state.MarkSalesRanked(date)
	}

	maxClass, err := e.store.MaxSlotClass(ctx)
	if err != nil {
		return fmt.Errorf("failed to read highest slot class: %w", err)
	}

	return e.storeArrivals(ctx, date, func(ctx context.Context, arrival domain.IncomingGoods) (int, error) {
		class, err := e.store.ClassOf(ctx, arrival.Article)
		if err != nil {
			return 0, fmt.Errorf("failed to read class of %s: %w", arrival.Article, err)
		}
		if class == 0 {
			class = maxClass
		}

		free, err := e.store.ListFreeSlotIDsInClass(ctx, class, domain.ZoneAny)
		if err != nil {
			return 0, fmt.Errorf("failed to list free slots of class %d: %w", class, err)
		}
		if len(free) > 0 {
			return free[rng.Intn(len(free))], nil
		}
		return e.adjacentClassSlot(ctx, class, domain.ZoneAny)
	})
}

// adjacentClassSlot falls back to the nearest lower class, then the nearest
// higher one.
func (e *SlottingEngine) adjacentClassSlot(ctx context.Context, class int, zone domain.Zone) (int, error) {
	destination, err := e.store.NextFreeSlotInLowerClass(ctx, class, zone)
	if err != nil {
		return 0, fmt.Errorf("failed to find slot below class %d: %w", class, err)
	}
	if destination != 0 {
		return destination, nil
	}
	destination, err = e.store.NextFreeSlotInHigherClass(ctx, class, zone)
	if err != nil {
		return 0, fmt.Errorf("failed to find slot above class %d: %w", class, err)
	}
	if destination == 0 {
		return 0, fmt.Errorf("%w: class %d", domain.ErrNoDestinationSlot, class)
	}
	return destination, nil
}

// drawSlot removes and returns a uniformly chosen slot of free
func drawSlot(free *[]int, rng *rand.Rand) (int, error) {
	if len(*free) == 0 {
		return 0, domain.ErrNoDestinationSlot
	}
	i := rng.Intn(len(*free))
	destination := (*free)[i]
	*free = append((*free)[:i], (*free)[i+1:]...)
	return destination, nil
}
