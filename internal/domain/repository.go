package domain

import (
	"context"
	"time"
)

// FreeSlotQuery filters slots that are laid out and hold no stock
type FreeSlotQuery struct {
	Zone            Zone
	OrderByDistance bool
}

// SlotDirectory provides slot lookups and class bookkeeping
type SlotDirectory interface {
	GetSlot(ctx context.Context, slotID int) (*Slot, error)
	GetSlotByCode(ctx context.Context, code string) (*Slot, error)
	ListSlotIDs(ctx context.Context) ([]int, error)
	// ListNotLaidOutSlotsWithStock returns slots without physical layout that still hold stock
	ListNotLaidOutSlotsWithStock(ctx context.Context) ([]Slot, error)
	// ListLowStockGroundSlots returns ground slots holding less than threshold in total, ordered by unit and aisle
	ListLowStockGroundSlots(ctx context.Context, threshold int) ([]Slot, error)
	// FindNearestFreeLaidOutSlot returns the free laid-out slot of origin's zone closest by unit, aisle and position, 0 if none
	FindNearestFreeLaidOutSlot(ctx context.Context, origin Slot) (int, error)
	ListFreeSlotIDs(ctx context.Context, query FreeSlotQuery) ([]int, error)
	ListFreeSlotBaseCodes(ctx context.Context, zone Zone) ([]string, error)
	ListFreeSlotIDsByBaseCode(ctx context.Context, baseCode string, zone Zone) ([]int, error)
	// FindSameArticleSlotInAisle returns another ground slot of origin's unit and aisle holding the article, smallest total first, 0 if none
	FindSameArticleSlotInAisle(ctx context.Context, origin Slot, holding Holding) (int, error)
	// ListMixedSlotIDs returns the mixed-article overflow slots ordered by held quantity
	ListMixedSlotIDs(ctx context.Context) ([]int, error)
	// ListLowFillRatioSlotIDs returns ground slots filled below half a pallet, emptiest first
	ListLowFillRatioSlotIDs(ctx context.Context) ([]int, error)
	// GroundZoneOccupancy is the share of laid-out ground slots holding stock
	GroundZoneOccupancy(ctx context.Context) (float64, error)
	CountLaidOutSlots(ctx context.Context) (int, error)
	// ListSlotIDsForClassing pages laid-out slots ordered by distance and code
	ListSlotIDsForClassing(ctx context.Context, limit, offset int) ([]int, error)
	ListUnclassedSlotsByDistance(ctx context.Context) ([]Slot, error)
	ListFreeSlotIDsInClass(ctx context.Context, class int, zone Zone) ([]int, error)
	NextFreeSlotInLowerClass(ctx context.Context, class int, zone Zone) (int, error)
	NextFreeSlotInHigherClass(ctx context.Context, class int, zone Zone) (int, error)
	SetSlotClass(ctx context.Context, slotID, class int) error
	ClearSlotClasses(ctx context.Context) error
	MaxSlotClass(ctx context.Context) (int, error)
}

// StockStore reads and mutates current holdings
type StockStore interface {
	ClearHoldings(ctx context.Context) error
	Holdings(ctx context.Context, slotID int) ([]Holding, error)
	// Store adds the quantity to the (slot, article) holding
	Store(ctx context.Context, holding Holding) error
	// Remove subtracts the quantity, clamping at zero; an emptied holding is deleted
	Remove(ctx context.Context, holding Holding) error
	// FindPickSlot returns the laid-out ground slot with enough unreserved stock, smallest stock first, nil if none
	FindPickSlot(ctx context.Context, article ArticleKey, quantity int) (*Slot, error)
	// FindHighZoneSupply returns the laid-out high zone holding with at least quantity, smallest first, nil if none
	FindHighZoneSupply(ctx context.Context, article ArticleKey, quantity int) (*Holding, error)
	// GroundSlotsForArticle returns the ground slots holding the article with their fill ratio, ascending
	GroundSlotsForArticle(ctx context.Context, article ArticleKey) ([]Slot, error)
	// ArticlesWithMultipleGroundSlots returns articles spread over several ground slots, most spread first
	ArticlesWithMultipleGroundSlots(ctx context.Context) ([]ArticleKey, error)
	GroundZoneStock(ctx context.Context, article ArticleKey) (int, error)
}

// MovementHistory exposes the recorded stock bookings
type MovementHistory interface {
	// IncomingBefore sums bookings into the slot on or before date per article
	IncomingBefore(ctx context.Context, slotID int, date time.Time) ([]Holding, error)
	// OutgoingBefore sums bookings out of the slot strictly before date per article
	OutgoingBefore(ctx context.Context, slotID int, date time.Time) ([]Holding, error)
	// ArrivalsOn returns external arrivals booked on date
	ArrivalsOn(ctx context.Context, date time.Time) ([]IncomingGoods, error)
	// MaxArrivalQuantity returns the largest external arrival of the article
	MaxArrivalQuantity(ctx context.Context, article ArticleKey) (int, error)
}

// ReservationStore tracks quantities earmarked for order lines
type ReservationStore interface {
	Reserve(ctx context.Context, reservation Reservation) error
	// Release subtracts the quantity, clamping at zero
	Release(ctx context.Context, reservation Reservation) error
	ClearReservations(ctx context.Context) error
}

// ArticleDirectory provides the article master and its rank/class bookkeeping
type ArticleDirectory interface {
	Attributes(ctx context.Context, article ArticleKey) (*ArticleAttributes, error)
	ListArticles(ctx context.Context) ([]ArticleKey, error)
	SetPalletSize(ctx context.Context, article ArticleKey, size int) error
	// CountArticles counts articles with a known pallet size
	CountArticles(ctx context.Context) (int, error)
	CountRankedArticles(ctx context.Context) (int, error)
	SetRank(ctx context.Context, article ArticleKey, rank int) error
	ClearRanks(ctx context.Context) error
	// ListArticlesForClassing pages articles with a pallet size ordered by rank
	ListArticlesForClassing(ctx context.Context, limit, offset int) ([]ArticleKey, error)
	SetClass(ctx context.Context, article ArticleKey, class int) error
	// ClassOf returns the article class, 0 when unassigned
	ClassOf(ctx context.Context, article ArticleKey) (int, error)
	ClearClasses(ctx context.Context) error
}

// SalesHistory exposes recorded sales figures
type SalesHistory interface {
	// RollingSalesRanking orders articles by sales in the months around date's month, before date
	RollingSalesRanking(ctx context.Context, date time.Time) ([]ArticleKey, error)
	ExactSalesRanking(ctx context.Context, month time.Month, year int) ([]ArticleKey, error)
	// ExpectedSales sums last year's sales in the 30 days following date
	ExpectedSales(ctx context.Context, article ArticleKey, date time.Time) (int, error)
	// ExactSales sums the sales in the 30 days following date
	ExactSales(ctx context.Context, article ArticleKey, date time.Time) (int, error)
	TopSellers(ctx context.Context, window SalesWindow, limit int) ([]ArticleKey, error)
}

// PickPoolSource provides order lines and recorded pick lists
type PickPoolSource interface {
	// SelectPickPool returns the lines picked on date ordered by due time and pick time
	SelectPickPool(ctx context.Context, date time.Time) ([]OrderLine, error)
	HistoricPicklists(ctx context.Context, since time.Time) ([]HistoricPicklist, error)
	PicklistSlotCodes(ctx context.Context, picklistID int) ([]string, error)
}

// WarehouseStore bundles every storage contract of the simulated warehouse
type WarehouseStore interface {
	SlotDirectory
	StockStore
	MovementHistory
	ReservationStore
	ArticleDirectory
	SalesHistory
	PickPoolSource
}

// SimulationRunRepository persists simulation runs
type SimulationRunRepository interface {
	Save(ctx context.Context, run *SimulationRun) error
	AppendResult(ctx context.Context, runID string, result SimulationResult) error
	FindByID(ctx context.Context, id string) (*SimulationRun, error)
	FindRecent(ctx context.Context, limit int) ([]*SimulationRun, error)
}

// ResultPublisher announces simulation progress to other systems
type ResultPublisher interface {
	PublishDayResult(ctx context.Context, runID string, result SimulationResult) error
	PublishRunCompleted(ctx context.Context, run *SimulationRun) error
}

// AttributeLookup resolves package dimensions from an external product catalogue
type AttributeLookup interface {
	LookupAttributes(ctx context.Context, articles []ArticleKey) ([]ArticleAttributes, error)
}
