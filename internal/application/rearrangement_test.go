package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
)

func TestFillRatioSubsets(t *testing.T) {
	slots := []domain.Slot{
		{ID: 1, FillRatio: 0.2},
		{ID: 2, FillRatio: 0.3},
		{ID: 3, FillRatio: 0.5},
		{ID: 4, FillRatio: 0.6},
		{ID: 5, FillRatio: 1.4},
	}

	subsets := fillRatioSubsets(slots)

	require.Len(t, subsets, 3)
	assert.Len(t, subsets[0], 3)
	assert.Equal(t, 4, subsets[1][0].ID)
	assert.Equal(t, 5, subsets[2][0].ID)
	assert.Empty(t, fillRatioSubsets(nil))
}

func TestCreateStock_FromMovementHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	addSlot(store, 2, domain.ZoneGround)
	addArticle(store, articleX, 10, 20)
	store.AddMovement(domain.Movement{Date: testDay.AddDate(0, 0, -3), OriginSlotID: 0, DestinationSlotID: 1, Article: articleX, Quantity: 12})
	store.AddMovement(domain.Movement{Date: testDay.AddDate(0, 0, -1), OriginSlotID: 1, DestinationSlotID: 2, Article: articleX, Quantity: 5})
	store.AddMovement(domain.Movement{Date: testDay, OriginSlotID: 1, DestinationSlotID: 0, Article: articleX, Quantity: 7})
	store.AddMovement(domain.Movement{Date: testDay.AddDate(0, 0, 1), OriginSlotID: 0, DestinationSlotID: 2, Article: articleX, Quantity: 9})
	putStock(t, store, 1, articleY, 3)
	engine := newTestEngine(t, store, 2)

	require.NoError(t, engine.Rearranger.CreateStock(ctx, testDay))

	assert.Equal(t, 7, heldAt(t, store, 1, articleX))
	assert.Equal(t, 5, heldAt(t, store, 2, articleX))
	assert.Zero(t, heldAt(t, store, 1, articleY))
}

func TestRearrangeToExistingSlots(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddSlot(domain.NewSlot(1, "GRO-01;01;09;1", domain.ZoneGround, false, 0))
	store.AddSlot(domain.NewSlot(2, "GRO-01;01;02;1", domain.ZoneGround, true, 2))
	store.AddSlot(domain.NewSlot(3, "GRO-01;01;07;1", domain.ZoneGround, true, 7))
	store.AddSlot(domain.NewSlot(4, "GRO-01;01;08;1", domain.ZoneHigh, true, 8))
	putStock(t, store, 1, articleX, 4)
	engine := newTestEngine(t, store, 9)

	require.NoError(t, engine.Rearranger.RearrangeToExistingSlots(ctx))

	assert.Zero(t, heldAt(t, store, 1, articleX))
	assert.Equal(t, 4, heldAt(t, store, 3, articleX))
}

// spreadWarehouse holds article X in three low ground slots of one aisle
func spreadWarehouse(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	for id := 1; id <= 4; id++ {
		addSlot(store, id, domain.ZoneGround)
	}
	addSlot(store, 5, domain.ZoneHigh)
	addSlot(store, 6, domain.ZoneHigh)
	addArticle(store, articleX, 10, 10)
	putStock(t, store, 1, articleX, 2)
	putStock(t, store, 2, articleX, 3)
	putStock(t, store, 3, articleX, 8)
	return store
}

func TestConsolidateLowFillSlots_MergesWithinAisle(t *testing.T) {
	store := spreadWarehouse(t)
	engine := newTestEngine(t, store, 6)

	result, err := engine.Rearranger.ConsolidateLowFillSlots(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 2.0, result.Length)
	assert.Zero(t, heldAt(t, store, 1, articleX))
	assert.Zero(t, heldAt(t, store, 2, articleX))
	assert.Equal(t, 13, heldAt(t, store, 3, articleX))
}

func TestConsolidateLowFillSlots_UsesMixedSlot(t *testing.T) {
	store := memory.NewStore()
	store.AddSlot(domain.NewSlot(1, "GRO-01;01;01;1", domain.ZoneGround, true, 1))
	store.AddSlot(domain.NewSlot(2, "GRO-01;01;02;1", domain.ZoneGround, true, 2))
	store.AddSlot(domain.NewSlot(7, "GRO-01;01;02;7", domain.ZoneGround, true, 2))
	addArticle(store, articleX, 10, 10)
	putStock(t, store, 1, articleX, 2)
	engine := newTestEngine(t, store, 2)

	result, err := engine.Rearranger.ConsolidateLowFillSlots(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Zero(t, heldAt(t, store, 1, articleX))
	assert.Equal(t, 2, heldAt(t, store, 2, articleX)+heldAt(t, store, 7, articleX))
}

func TestCondenseSameArticleHoldings(t *testing.T) {
	store := memory.NewStore()
	for id := 1; id <= 3; id++ {
		addSlot(store, id, domain.ZoneGround)
	}
	addArticle(store, articleX, 10, 100)
	putStock(t, store, 1, articleX, 10)
	putStock(t, store, 2, articleX, 30)
	putStock(t, store, 3, articleX, 45)
	engine := newTestEngine(t, store, 3)

	result, err := engine.Rearranger.CondenseSameArticleHoldings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 85, heldAt(t, store, 3, articleX))
}

func TestRecoverGroundZoneCapacity_Converges(t *testing.T) {
	ctx := context.Background()
	store := spreadWarehouse(t)
	engine := newTestEngine(t, store, 6)

	first, err := engine.Rearranger.RecoverGroundZoneCapacity(ctx)
	require.NoError(t, err)
	second, err := engine.Rearranger.RecoverGroundZoneCapacity(ctx)
	require.NoError(t, err)

	assert.Positive(t, first.Total().Count)
	assert.Less(t, second.Total().Count, first.Total().Count)
	assert.Zero(t, second.Total().Count)
}

func TestRecoverGroundZoneCapacity_StopsOnceBelowFillTarget(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for id := 1; id <= 4; id++ {
		addSlot(store, id, domain.ZoneGround)
	}
	addSlot(store, 5, domain.ZoneHigh)
	addSlot(store, 6, domain.ZoneHigh)
	addArticle(store, articleX, 10, 10)
	addArticle(store, articleY, 10, 10)
	putStock(t, store, 1, articleX, 9)
	putStock(t, store, 2, articleX, 9)
	putStock(t, store, 3, articleY, 9)
	putStock(t, store, 4, articleY, 9)
	engine := newTestEngine(t, store, 6)

	first, err := engine.Rearranger.RecoverGroundZoneCapacity(ctx)
	require.NoError(t, err)
	second, err := engine.Rearranger.RecoverGroundZoneCapacity(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, first.HighToGround.Count)
	assert.Zero(t, second.Total().Count)

	occupancy, err := store.GroundZoneOccupancy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.75, occupancy)
}

func TestPromoteFrequentArticles_NoMovesBelowFillTarget(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for id := 1; id <= 3; id++ {
		addSlot(store, id, domain.ZoneGround)
	}
	addSlot(store, 4, domain.ZoneHigh)
	addArticle(store, articleX, 10, 10)
	putStock(t, store, 1, articleX, 9)
	putStock(t, store, 2, articleX, 10)
	engine := newTestEngine(t, store, 4)

	result, err := engine.Rearranger.PromoteFrequentArticles(ctx)

	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Equal(t, 9, heldAt(t, store, 1, articleX))
	assert.Zero(t, heldAt(t, store, 4, articleX))
}

func TestPromoteFrequentArticles_MovesSurplusToHighZone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	addSlot(store, 2, domain.ZoneGround)
	addSlot(store, 3, domain.ZoneHigh)
	addArticle(store, articleX, 10, 10)
	putStock(t, store, 1, articleX, 9)
	putStock(t, store, 2, articleX, 10)
	engine := newTestEngine(t, store, 3)

	result, err := engine.Rearranger.PromoteFrequentArticles(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 9, heldAt(t, store, 3, articleX))
	assert.Equal(t, 10, heldAt(t, store, 2, articleX))
}

func TestFindWithRecovery(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, memory.NewStore(), 1)

	t.Run("Gives up after configured attempts", func(t *testing.T) {
		calls := 0
		_, _, err := engine.Rearranger.FindWithRecovery(ctx, func(context.Context) (int, error) {
			calls++
			return 0, nil
		})

		assert.ErrorIs(t, err, domain.ErrCapacityExhausted)
		assert.Equal(t, engine.Settings.MaxRecoveryAttempts+1, calls)
	})

	t.Run("Returns slot found after recovery", func(t *testing.T) {
		calls := 0
		slotID, _, err := engine.Rearranger.FindWithRecovery(ctx, func(context.Context) (int, error) {
			calls++
			if calls == 2 {
				return 7, nil
			}
			return 0, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 7, slotID)
	})

	t.Run("Propagates lookup errors", func(t *testing.T) {
		boom := errors.New("boom")
		_, _, err := engine.Rearranger.FindWithRecovery(ctx, func(context.Context) (int, error) {
			return 0, boom
		})

		assert.ErrorIs(t, err, boom)
	})
}

func TestMoveDistance_OutsideIndexCountsZero(t *testing.T) {
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	store.AddSlot(domain.NewSlot(2, "XYZ-99;99;99;1", domain.ZoneGround, true, 0))
	engine := newTestEngine(t, store, 1)

	distance, err := engine.Locator.MoveDistance(context.Background(), 1, 2)

	require.NoError(t, err)
	assert.Zero(t, distance)
}
