package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
)

func TestPartitionClasses_CoversAllItems(t *testing.T) {
	tables := [][]float64{
		{},
		{0.2},
		{0.2, 0.5},
		{0.1, 0.3, 0.6},
		{0.01, 0.02, 0.03, 0.99},
		{0.5, 1},
	}
	totals := []int{0, 1, 2, 3, 7, 10, 99, 1000}

	for _, thresholds := range tables {
		for _, total := range totals {
			ranges := PartitionClasses(total, thresholds)
			require.Len(t, ranges, len(thresholds)+1)

			offset := 0
			sum := 0
			for i, r := range ranges {
				assert.Equal(t, i+1, r.Class)
				assert.Equal(t, offset, r.Offset, "classes must be contiguous")
				assert.GreaterOrEqual(t, r.Limit, 0)
				offset += r.Limit
				sum += r.Limit
			}
			assert.Equal(t, total, sum, "total %d thresholds %v", total, thresholds)
		}
	}
}

func TestPartitionClasses_Sizes(t *testing.T) {
	ranges := PartitionClasses(10, []float64{0.2, 0.5})

	assert.Equal(t, []ClassRange{
		{Class: 1, Offset: 0, Limit: 2},
		{Class: 2, Offset: 2, Limit: 3},
		{Class: 3, Offset: 5, Limit: 5},
	}, ranges)
}

func TestClassAssigner_AssignSlotClasses(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	for id := 1; id <= 5; id++ {
		addSlot(store, id, domain.ZoneGround)
	}
	engine := newTestEngine(t, store, 5)

	require.NoError(t, engine.Classes.AssignSlotClasses(ctx, 2))

	// 5 slots with a 0.2 threshold: the nearest slot forms class 1
	inClassOne, err := store.ListFreeSlotIDsInClass(ctx, 1, domain.ZoneAny)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, inClassOne)

	inClassTwo, err := store.ListFreeSlotIDsInClass(ctx, 2, domain.ZoneAny)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{2, 3, 4, 5}, inClassTwo)

	maxClass, err := store.MaxSlotClass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, maxClass)
}

func TestClassAssigner_AssignSlotClassesBySalesRank(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	zones := []domain.Zone{
		domain.ZoneHigh, domain.ZoneHigh, domain.ZoneHigh, domain.ZoneGround,
		domain.ZoneGround, domain.ZoneHigh, domain.ZoneHigh, domain.ZoneHigh,
	}
	for i, zone := range zones {
		addSlot(store, i+1, zone)
	}
	addArticle(store, articleX, 10, 20)
	addArticle(store, articleY, 10, 20)
	addArticle(store, articleZ, 10, 20)
	require.NoError(t, store.SetRank(ctx, articleX, 1))
	require.NoError(t, store.SetRank(ctx, articleY, 2))
	engine := newTestEngine(t, store, len(zones))

	require.NoError(t, engine.Classes.AssignSlotClassesBySalesRank(ctx))

	// 8 slots over 3 articles gives classes of 3, but class 1 only closes
	// at its first ground slot
	expected := map[int][]int{1: {1, 2, 3, 4}, 2: {5, 6, 7}, 3: {8}}
	for class, ids := range expected {
		inClass, err := store.ListFreeSlotIDsInClass(ctx, class, domain.ZoneAny)
		require.NoError(t, err)
		assert.Equal(t, ids, inClass, "class %d", class)
	}

	maxClass, err := store.MaxSlotClass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, maxClass)
}

func TestClassAssigner_UnknownClassCount(t *testing.T) {
	store := memory.NewStore()
	engine := newTestEngine(t, store, 1)

	err := engine.Classes.AssignSlotClasses(context.Background(), 7)

	assert.ErrorIs(t, err, domain.ErrInvalidClassTable)
}
