package application

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
)

const (
	modeSequential = "sequential"
	modeClustered  = "clustered"
)

// PicklistBuilder groups a reserved pick pool into capacity bounded pick
// lists and books picked stock out of the warehouse.
type PicklistBuilder struct {
	store    domain.WarehouseStore
	locator  *SlotLocator
	settings *config.Settings
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewPicklistBuilder creates a new PicklistBuilder
func NewPicklistBuilder(
	store domain.WarehouseStore,
	locator *SlotLocator,
	settings *config.Settings,
	m *metrics.Metrics,
	logger *logging.Logger,
) *PicklistBuilder {
	return &PicklistBuilder{
		store:    store,
		locator:  locator,
		settings: settings,
		metrics:  m,
		logger:   logger.WithComponent("picklist-builder"),
	}
}

// Sequential fills pick lists with pool lines in pool order. A line that
// does not fit closes the current list; a line that does not fit an empty
// list is dropped. count limits the number of lists, 0 means unlimited.
func (b *PicklistBuilder) Sequential(ctx context.Context, pool *domain.PickPool, count int) ([]domain.Picklist, error) {
	capacity := b.settings.Cart.Capacity()
	footprints := make(map[domain.ArticleKey]decimal.Decimal)

	var lists []domain.Picklist
	for pool.Len() > 0 {
		var (
			entries []domain.PicklistEntry
			area    = decimal.Zero
		)
		for pool.Len() > 0 {
			line := pool.Lines[0]
			footprint, err := b.cachedFootprint(ctx, footprints, line.Article)
			if err != nil {
				return nil, err
			}
			line.FootprintMax = footprint

			lineArea := line.Area()
			if area.Add(lineArea).GreaterThan(capacity) {
				if area.IsZero() {
					b.logger.Warn("Order line exceeds cart capacity, dropping it",
						"article", line.Article.String(), "quantity", line.Quantity, "area", lineArea.String())
					pool.RemoveAt(0)
				}
				break
			}
			area = area.Add(lineArea)
			entries = append(entries, line.Entry())
			pool.RemoveAt(0)
		}

		if len(entries) == 0 {
			continue
		}
		lists = append(lists, domain.Picklist{Entries: entries})
		if count != 0 && len(lists) == count {
			break
		}
	}

	b.metrics.RecordPicklists(modeSequential, len(lists))
	return lists, nil
}

// slotIndex maps distance nodes to the pool lines picked there. keys keeps
// first insertion order so that iteration is deterministic.
type slotIndex struct {
	keys    []int
	entries map[int][]domain.OrderLine
}

func (idx *slotIndex) add(node int, line domain.OrderLine) {
	if _, ok := idx.entries[node]; !ok {
		idx.keys = append(idx.keys, node)
	}
	idx.entries[node] = append(idx.entries[node], line)
}

func (idx *slotIndex) remove(node, i int) {
	lines := slices.Delete(idx.entries[node], i, i+1)
	if len(lines) > 0 {
		idx.entries[node] = lines
		return
	}
	delete(idx.entries, node)
	idx.keys = slices.DeleteFunc(idx.keys, func(k int) bool { return k == node })
}

func (idx *slotIndex) empty() bool {
	return len(idx.keys) == 0
}

// Clustered grows each pick list from a random seed line by repeatedly
// draining the node with the lowest summed distance to the nodes already on
// the list. Lines left over when count is reached are written back to pool.
func (b *PicklistBuilder) Clustered(ctx context.Context, pool *domain.PickPool, count int, rng *rand.Rand) ([]domain.Picklist, error) {
	idx, err := b.buildIndex(ctx, pool)
	if err != nil {
		return nil, err
	}
	capacity := b.settings.Cart.Capacity()

	var lists []domain.Picklist
	for !idx.empty() {
		entries := b.nextCluster(idx, capacity, rng)
		if len(entries) == 0 {
			continue
		}
		lists = append(lists, domain.Picklist{Entries: entries})
		if count != 0 && len(lists) == count {
			break
		}
	}

	pool.Lines = pool.Lines[:0]
	for _, node := range idx.keys {
		pool.Lines = append(pool.Lines, idx.entries[node]...)
	}

	b.metrics.RecordPicklists(modeClustered, len(lists))
	return lists, nil
}

// buildIndex resolves footprints in chunks and groups pool lines by node
func (b *PicklistBuilder) buildIndex(ctx context.Context, pool *domain.PickPool) (*slotIndex, error) {
	footprints := make([]decimal.Decimal, pool.Len())
	positions := make([]int, pool.Len())
	for i := range positions {
		positions[i] = i
	}
	err := forEachChunk(ctx, positions, b.settings.ChunkSize, func(ctx context.Context, i int) error {
		footprint, err := b.footprint(ctx, pool.Lines[i].Article)
		if err != nil {
			return err
		}
		footprints[i] = footprint
		return nil
	})
	if err != nil {
		return nil, err
	}

	idx := &slotIndex{entries: make(map[int][]domain.OrderLine)}
	for i, line := range pool.Lines {
		line.FootprintMax = footprints[i]
		if line.SlotCode == "" {
			code, err := b.locator.CodeOf(ctx, line.SlotID)
			if err != nil {
				return nil, err
			}
			line.SlotCode = code
		}
		node, err := b.locator.Oracle().NodeOfEntry(line.SlotID, line.SlotCode)
		if err != nil {
			return nil, fmt.Errorf("failed to index order line: %w", err)
		}
		idx.add(node, line)
	}
	return idx, nil
}

func (b *PicklistBuilder) nextCluster(idx *slotIndex, capacity decimal.Decimal, rng *rand.Rand) []domain.PicklistEntry {
	seedNode := idx.keys[rng.Intn(len(idx.keys))]
	seedPos := rng.Intn(len(idx.entries[seedNode]))
	seed := idx.entries[seedNode][seedPos]
	idx.remove(seedNode, seedPos)

	area := seed.Area()
	if area.Add(seed.Area()).GreaterThan(capacity) {
		return nil
	}
	entries := []domain.PicklistEntry{seed.Entry()}
	nodes := []int{seedNode}

	for {
		next := b.nearestNode(idx, nodes)
		if next == -1 {
			return entries
		}

		lines := idx.entries[next]
		for i := len(lines) - 1; i >= 0; i-- {
			line := lines[i]
			if area.Add(line.Area()).GreaterThan(capacity) {
				if area.IsZero() {
					idx.remove(next, i)
				}
				return entries
			}
			area = area.Add(line.Area())
			entries = append(entries, line.Entry())
			nodes = append(nodes, next)
			idx.remove(next, i)
		}
	}
}

// nearestNode returns the indexed node with the lowest summed distance to
// the list's nodes, or -1 when the index is empty. A node at distance zero
// from any listed node is taken immediately.
func (b *PicklistBuilder) nearestNode(idx *slotIndex, listed []int) int {
	oracle := b.locator.Oracle()
	best := -1
	bestSum := int64(math.MaxInt64)

	for _, node := range idx.keys {
		var sum int64
		for _, other := range listed {
			distance := oracle.NodeDistance(node, other)
			if distance == 0 {
				return node
			}
			sum += distance
		}
		if sum < bestSum {
			bestSum = sum
			best = node
		}
	}
	return best
}

// RouteLengths scores every pick list, resolving missing slot codes first
func (b *PicklistBuilder) RouteLengths(ctx context.Context, lists []domain.Picklist) ([]domain.Picklist, error) {
	for i := range lists {
		for j := range lists[i].Entries {
			entry := &lists[i].Entries[j]
			if entry.SlotCode != "" || b.settings.IsLegacyDepotSlot(entry.SlotID) {
				continue
			}
			code, err := b.locator.CodeOf(ctx, entry.SlotID)
			if err != nil {
				return nil, err
			}
			entry.SlotCode = code
		}

		length, err := b.locator.Oracle().RouteLength(lists[i].Entries)
		if err != nil {
			return nil, fmt.Errorf("failed to compute route length of pick list %d: %w", i, err)
		}
		lists[i].Length = length
	}
	return lists, nil
}

// Process books picked quantities out of their slots and releases the
// reservations. Missing or insufficient stock is logged and picked anyway.
func (b *PicklistBuilder) Process(ctx context.Context, lists []domain.Picklist) error {
	return forEachChunk(ctx, lists, b.settings.ChunkSize, func(ctx context.Context, list domain.Picklist) error {
		for _, entry := range list.Entries {
			if err := b.pick(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *PicklistBuilder) pick(ctx context.Context, entry domain.PicklistEntry) error {
	stock, err := b.store.Holdings(ctx, entry.SlotID)
	if err != nil {
		return fmt.Errorf("failed to read holdings of slot %d: %w", entry.SlotID, err)
	}
	available := 0
	for _, holding := range stock {
		if holding.Article == entry.Article {
			available = holding.Quantity
			break
		}
	}
	if available < entry.Quantity {
		b.logger.Warn("Insufficient stock to pick",
			"slotId", entry.SlotID, "article", entry.Article.String(),
			"quantity", entry.Quantity, "available", available)
	}

	if err := b.store.Remove(ctx, entry.Holding()); err != nil {
		return fmt.Errorf("failed to book out %s from slot %d: %w", entry.Article, entry.SlotID, err)
	}
	reservation := domain.Reservation{SlotID: entry.SlotID, Article: entry.Article, Quantity: entry.Quantity}
	if err := b.store.Release(ctx, reservation); err != nil {
		b.logger.WithError(err).Warn("Failed to release reservation",
			"slotId", entry.SlotID, "article", entry.Article.String())
	}
	return nil
}

func (b *PicklistBuilder) cachedFootprint(ctx context.Context, cache map[domain.ArticleKey]decimal.Decimal, article domain.ArticleKey) (decimal.Decimal, error) {
	if footprint, ok := cache[article]; ok {
		return footprint, nil
	}
	footprint, err := b.footprint(ctx, article)
	if err != nil {
		return decimal.Zero, err
	}
	cache[article] = footprint
	return footprint, nil
}

func (b *PicklistBuilder) footprint(ctx context.Context, article domain.ArticleKey) (decimal.Decimal, error) {
	attributes, err := b.store.Attributes(ctx, article)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read attributes of %s: %w", article, err)
	}
	if attributes == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrArticleNotFound, article)
	}
	return attributes.FootprintMax, nil
}
