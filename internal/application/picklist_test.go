package application

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
)

// poolAt builds a reserved pool with one line of quantity 1 per slot id
func poolAt(article domain.ArticleKey, slotIDs ...int) *domain.PickPool {
	pool := &domain.PickPool{Date: testDay}
	for i, slotID := range slotIDs {
		line := orderLine(article, 1, i+1, testDay.Add(time.Duration(i)*time.Minute))
		line.SlotID = slotID
		line.SlotCode = slotCode(slotID)
		pool.Lines = append(pool.Lines, line)
	}
	return pool
}

func listArea(t *testing.T, store *memory.Store, list domain.Picklist) decimal.Decimal {
	t.Helper()
	area := decimal.Zero
	for _, entry := range list.Entries {
		attributes, err := store.Attributes(context.Background(), entry.Article)
		require.NoError(t, err)
		area = area.Add(attributes.FootprintMax.Mul(decimal.NewFromInt(int64(entry.Quantity))))
	}
	return area
}

func TestSequential_SplitsAtCartCapacity(t *testing.T) {
	store := memory.NewStore()
	addArticle(store, articleX, 40, 20)
	engine := newTestEngine(t, store, 3)
	pool := poolAt(articleX, 1, 2, 3)

	lists, err := engine.Picklists.Sequential(context.Background(), pool, 0)

	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Len(t, lists[0].Entries, 2)
	assert.Len(t, lists[1].Entries, 1)
	assert.True(t, listArea(t, store, lists[0]).Equal(decimal.NewFromInt(80)))
	assert.True(t, listArea(t, store, lists[1]).Equal(decimal.NewFromInt(40)))
	assert.Zero(t, pool.Len())
}

func TestSequential_DropsOversizedLine(t *testing.T) {
	store := memory.NewStore()
	addArticle(store, articleX, 40, 20)
	engine := newTestEngine(t, store, 3)
	pool := poolAt(articleX, 1, 2)
	pool.Lines[0].Quantity = 3

	lists, err := engine.Picklists.Sequential(context.Background(), pool, 0)

	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, 2, lists[0].Entries[0].SlotID)
}

func TestSequential_LimitsListCount(t *testing.T) {
	store := memory.NewStore()
	addArticle(store, articleX, 60, 20)
	engine := newTestEngine(t, store, 3)
	pool := poolAt(articleX, 1, 2, 3)

	lists, err := engine.Picklists.Sequential(context.Background(), pool, 1)

	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, 2, pool.Len())
}

func TestSequential_UnknownArticle(t *testing.T) {
	engine := newTestEngine(t, memory.NewStore(), 3)

	_, err := engine.Picklists.Sequential(context.Background(), poolAt(articleY, 1), 0)

	assert.ErrorIs(t, err, domain.ErrArticleNotFound)
}

func TestClustered_DeterministicForSeed(t *testing.T) {
	store := memory.NewStore()
	addArticle(store, articleX, 20, 20)
	engine := newTestEngine(t, store, 5)
	slots := []int{1, 5, 2, 4, 3, 1, 5, 2, 4, 3}

	first, err := engine.Picklists.Clustered(context.Background(), poolAt(articleX, slots...), 0, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := engine.Picklists.Clustered(context.Background(), poolAt(articleX, slots...), 0, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, first, second)

	capacity := engine.Settings.Cart.Capacity()
	entries := 0
	for _, list := range first {
		assert.False(t, listArea(t, store, list).GreaterThan(capacity))
		entries += len(list.Entries)
	}
	assert.Equal(t, len(slots), entries)
}

func TestClustered_GroupsNearbySlots(t *testing.T) {
	store := memory.NewStore()
	addArticle(store, articleX, 50, 20)
	engine := newTestEngine(t, store, 10)
	pool := poolAt(articleX, 1, 10, 2, 9)

	lists, err := engine.Picklists.Clustered(context.Background(), pool, 0, rand.New(rand.NewSource(7)))

	require.NoError(t, err)
	require.Len(t, lists, 2)
	for _, list := range lists {
		require.Len(t, list.Entries, 2)
		assert.Equal(t, 1, absDiff(list.Entries[0].SlotID, list.Entries[1].SlotID))
	}
}

func TestClustered_LeavesRemainderInPool(t *testing.T) {
	store := memory.NewStore()
	addArticle(store, articleX, 50, 20)
	engine := newTestEngine(t, store, 4)
	pool := poolAt(articleX, 1, 2, 3, 4)

	lists, err := engine.Picklists.Clustered(context.Background(), pool, 1, rand.New(rand.NewSource(1)))

	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Len(t, lists[0].Entries, 2)
	assert.Equal(t, 2, pool.Len())
}

func TestRouteLengths_ResolvesSlotCodes(t *testing.T) {
	store := memory.NewStore()
	addSlot(store, 3, domain.ZoneGround)
	engine := newTestEngine(t, store, 3)
	lists := []domain.Picklist{
		{Entries: []domain.PicklistEntry{{SlotID: 3, Article: articleX, Quantity: 1}}},
		{Entries: []domain.PicklistEntry{{SlotID: legacySlotID, Article: articleX, Quantity: 1}}},
		{},
	}

	scored, err := engine.Picklists.RouteLengths(context.Background(), lists)

	require.NoError(t, err)
	assert.Equal(t, 6.0, scored[0].Length)
	assert.Equal(t, slotCode(3), scored[0].Entries[0].SlotCode)
	assert.Zero(t, scored[1].Length)
	assert.Zero(t, scored[2].Length)
}

func TestProcess_BooksOutAndReleases(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	addSlot(store, 1, domain.ZoneGround)
	addSlot(store, 2, domain.ZoneGround)
	addArticle(store, articleX, 10, 20)
	putStock(t, store, 1, articleX, 5)
	putStock(t, store, 2, articleX, 1)
	require.NoError(t, store.Reserve(ctx, domain.Reservation{SlotID: 1, Article: articleX, Quantity: 3}))
	engine := newTestEngine(t, store, 2)

	lists := []domain.Picklist{{Entries: []domain.PicklistEntry{
		{SlotID: 1, Article: articleX, Quantity: 3},
		{SlotID: 2, Article: articleX, Quantity: 4},
	}}}
	require.NoError(t, engine.Picklists.Process(ctx, lists))

	assert.Equal(t, 2, heldAt(t, store, 1, articleX))
	assert.Zero(t, heldAt(t, store, 2, articleX))

	slot, err := store.FindPickSlot(ctx, articleX, 2)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, 1, slot.ID)
}
