package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
)

// threeSlotWarehouse holds 10 of article X in ground slots 1 and 2 and high slot 5
func threeSlotWarehouse(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	addSlot(store, 2, domain.ZoneGround)
	addSlot(store, 5, domain.ZoneHigh)
	addArticle(store, articleX, 10, 20)
	putStock(t, store, 1, articleX, 10)
	putStock(t, store, 2, articleX, 10)
	putStock(t, store, 5, articleX, 10)
	return store
}

func TestReservePool_PicksNearestSlotWithStock(t *testing.T) {
	ctx := context.Background()
	store := threeSlotWarehouse(t)
	store.AddOrderLine(orderLine(articleX, 4, 1, testDay.Add(9*time.Hour)))
	engine := newTestEngine(t, store, 5)

	pool, result, err := engine.Reservations.ReservePool(ctx, testDay)

	require.NoError(t, err)
	require.Len(t, pool.Lines, 1)
	assert.Equal(t, 1, pool.Lines[0].SlotID)
	assert.Equal(t, slotCode(1), pool.Lines[0].SlotCode)
	assert.Zero(t, result.Total().Count)

	assert.Equal(t, 10, heldAt(t, store, 1, articleX))
	assert.Equal(t, 10, heldAt(t, store, 2, articleX))
	assert.Equal(t, 10, heldAt(t, store, 5, articleX))

	// 6 unreserved units remain in slot 1, so a larger pick falls to slot 2
	slot, err := store.FindPickSlot(ctx, articleX, 7)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, 2, slot.ID)
}

func TestReservePool_PrefersNearerSlotOverLowerID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.AddSlot(domain.NewSlot(1, slotCode(1), domain.ZoneGround, true, 2))
	store.AddSlot(domain.NewSlot(2, slotCode(2), domain.ZoneGround, true, 1))
	addSlot(store, 5, domain.ZoneHigh)
	addArticle(store, articleX, 10, 20)
	putStock(t, store, 1, articleX, 10)
	putStock(t, store, 2, articleX, 10)
	putStock(t, store, 5, articleX, 10)
	store.AddOrderLine(orderLine(articleX, 4, 1, testDay.Add(9*time.Hour)))
	engine := newTestEngine(t, store, 5)

	pool, _, err := engine.Reservations.ReservePool(ctx, testDay)

	require.NoError(t, err)
	require.Len(t, pool.Lines, 1)
	assert.Equal(t, 2, pool.Lines[0].SlotID)
	assert.Equal(t, 10, heldAt(t, store, 1, articleX))
	assert.Equal(t, 10, heldAt(t, store, 5, articleX))
}

func TestReservePool_PullsStockFromHighZone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	addSlot(store, 2, domain.ZoneGround)
	addSlot(store, 4, domain.ZoneHigh)
	addArticle(store, articleX, 10, 20)
	addArticle(store, articleY, 10, 20)
	putStock(t, store, 1, articleY, 10)
	putStock(t, store, 4, articleX, 8)
	store.AddOrderLine(orderLine(articleX, 3, 1, testDay.Add(9*time.Hour)))
	engine := newTestEngine(t, store, 4)

	pool, result, err := engine.Reservations.ReservePool(ctx, testDay)

	require.NoError(t, err)
	require.Len(t, pool.Lines, 1)
	assert.Equal(t, 2, pool.Lines[0].SlotID)
	assert.Equal(t, 8, heldAt(t, store, 2, articleX))
	assert.Zero(t, heldAt(t, store, 4, articleX))
	assert.Equal(t, 1, result.HighToGround.Count)
	assert.Equal(t, 2.0, result.HighToGround.Length)
}

func TestReservePool_DropsLinesWithoutStock(t *testing.T) {
	ctx := context.Background()
	store := threeSlotWarehouse(t)
	store.AddOrderLine(orderLine(articleY, 1, 1, testDay.Add(8*time.Hour)))
	store.AddOrderLine(orderLine(articleX, 2, 2, testDay.Add(9*time.Hour)))
	store.AddOrderLine(orderLine(articleX, 2, 3, testDay.AddDate(0, 0, 1)))
	engine := newTestEngine(t, store, 5)

	pool, _, err := engine.Reservations.ReservePool(ctx, testDay)

	require.NoError(t, err)
	require.Len(t, pool.Lines, 1)
	assert.Equal(t, articleX, pool.Lines[0].Article)
}

func TestReservePool_FailsWhenGroundZoneStaysFull(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	addSlot(store, 3, domain.ZoneHigh)
	addArticle(store, articleX, 10, 20)
	addArticle(store, articleY, 10, 20)
	putStock(t, store, 1, articleY, 20)
	putStock(t, store, 3, articleX, 5)
	store.AddOrderLine(orderLine(articleX, 5, 1, testDay.Add(9*time.Hour)))
	engine := newTestEngine(t, store, 3)

	_, _, err := engine.Reservations.ReservePool(ctx, testDay)

	assert.ErrorIs(t, err, domain.ErrCapacityExhausted)
}
