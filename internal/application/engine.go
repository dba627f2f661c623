package application

import (
	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
)

// Engine wires the slotting, rearrangement, reservation and pick list
// components over one warehouse store.
type Engine struct {
	Store        domain.WarehouseStore
	Settings     *config.Settings
	Locator      *SlotLocator
	Rearranger   *RearrangementEngine
	Classes      *ClassAssigner
	Slotting     *SlottingEngine
	Reservations *ReservationService
	Picklists    *PicklistBuilder
}

// NewEngine creates a new Engine
func NewEngine(
	store domain.WarehouseStore,
	oracle *DistanceOracle,
	settings *config.Settings,
	m *metrics.Metrics,
	logger *logging.Logger,
) *Engine {
	locator := NewSlotLocator(store, oracle, logger)
	rearranger := NewRearrangementEngine(store, locator, settings, m, logger)
	classes := NewClassAssigner(store, settings, logger)

	return &Engine{
		Store:        store,
		Settings:     settings,
		Locator:      locator,
		Rearranger:   rearranger,
		Classes:      classes,
		Slotting:     NewSlottingEngine(store, locator, rearranger, classes, settings, logger),
		Reservations: NewReservationService(store, locator, rearranger, settings, logger),
		Picklists:    NewPicklistBuilder(store, locator, settings, m, logger),
	}
}
