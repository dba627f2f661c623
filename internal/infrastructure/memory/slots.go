package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// GetSlot returns the slot with id slotID
func (s *Store) GetSlot(ctx context.Context, slotID int) (*domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotID)
	}
	copied := *slot
	return &copied, nil
}

// GetSlotByCode returns the slot with the given short code
func (s *Store) GetSlotByCode(ctx context.Context, code string) (*domain.Slot, error) {
	s.mu.RLock()
	id, ok := s.byCode[code]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSlotNotFound, code)
	}
	return s.GetSlot(ctx, id)
}

func (s *Store) ListSlotIDs(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]int(nil), s.slotIDs...), nil
}

func (s *Store) ListNotLaidOutSlotsWithStock(ctx context.Context) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.LaidOut && !s.isFree(slot.ID) {
			result = append(result, *slot)
		}
	})
	return result, nil
}

// ListLowStockGroundSlots returns ground slots holding fewer than threshold
// units in total, ordered by unit and aisle.
func (s *Store) ListLowStockGroundSlots(ctx context.Context, threshold int) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if slot.IsGroundZone() && !s.isFree(slot.ID) && s.heldQuantity(slot.ID) < threshold {
			result = append(result, *slot)
		}
	})
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Unit != result[j].Unit {
			return result[i].Unit < result[j].Unit
		}
		return result[i].Aisle < result[j].Aisle
	})
	return result, nil
}

// FindNearestFreeLaidOutSlot returns the free laid-out slot of the origin's
// zone closest by unit, aisle and position, or 0.
func (s *Store) FindNearestFreeLaidOutSlot(ctx context.Context, origin domain.Slot) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, aisle, position := codeNumber(origin.Unit), codeNumber(origin.Aisle), codeNumber(origin.Position)
	best := 0
	var bestKey [3]int
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.LaidOut || slot.Zone != origin.Zone || !s.isFree(slot.ID) {
			return
		}
		key := [3]int{
			absInt(codeNumber(slot.Unit) - unit),
			absInt(codeNumber(slot.Aisle) - aisle),
			absInt(codeNumber(slot.Position) - position),
		}
		if best == 0 || lessKey(key, bestKey) {
			best = slot.ID
			bestKey = key
		}
	})
	return best, nil
}

func lessKey(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func (s *Store) ListFreeSlotIDs(ctx context.Context, query domain.FreeSlotQuery) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var free []*domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut && query.Zone.Matches(slot.Zone) && s.isFree(slot.ID) {
			free = append(free, slot)
		}
	})
	if query.OrderByDistance {
		sort.SliceStable(free, func(i, j int) bool { return free[i].Distance < free[j].Distance })
	}
	return slotIDs(free), nil
}

func (s *Store) ListFreeSlotBaseCodes(ctx context.Context, zone domain.Zone) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bases []string
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut && zone.Matches(slot.Zone) && s.isFree(slot.ID) {
			bases = append(bases, slot.BaseCode())
		}
	})
	return bases, nil
}

func (s *Store) ListFreeSlotIDsByBaseCode(ctx context.Context, baseCode string, zone domain.Zone) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut && zone.Matches(slot.Zone) && s.isFree(slot.ID) && slot.BaseCode() == baseCode {
			ids = append(ids, slot.ID)
		}
	})
	return ids, nil
}

// FindSameArticleSlotInAisle returns another ground slot of the origin's unit
// and aisle holding the same article, preferring the smallest holding.
func (s *Store) FindSameArticleSlotInAisle(ctx context.Context, origin domain.Slot, holding domain.Holding) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, bestQuantity := 0, 0
	s.eachSlot(func(slot *domain.Slot) {
		if slot.ID == holding.SlotID || !slot.IsGroundZone() || slot.Unit != origin.Unit || slot.Aisle != origin.Aisle {
			return
		}
		quantity, ok := s.holdings[slot.ID][holding.Article]
		if !ok {
			return
		}
		if best == 0 || quantity < bestQuantity {
			best, bestQuantity = slot.ID, quantity
		}
	})
	return best, nil
}

// ListMixedSlotIDs returns the laid-out ground slots sharing a base code with
// a mixed-article marker slot, emptiest first.
func (s *Store) ListMixedSlotIDs(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bases := make(map[string]struct{})
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut && slot.IsMixedMarker() {
			bases[slot.BaseCode()] = struct{}{}
		}
	})

	var mixed []*domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if _, ok := bases[slot.BaseCode()]; ok && slot.LaidOut && slot.IsGroundZone() {
			mixed = append(mixed, slot)
		}
	})
	sort.SliceStable(mixed, func(i, j int) bool {
		return s.heldQuantity(mixed[i].ID) < s.heldQuantity(mixed[j].ID)
	})
	return slotIDs(mixed), nil
}

// ListLowFillRatioSlotIDs returns ground slots whose summed fill ratio is
// below one half, lowest first. Holdings of articles without a pallet size
// are ignored.
func (s *Store) ListLowFillRatioSlotIDs(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		id    int
		ratio float64
	}
	var candidates []candidate
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.IsGroundZone() {
			return
		}
		ratio, known := 0.0, false
		for article, quantity := range s.holdings[slot.ID] {
			if size := s.palletSize(article); size > 0 {
				ratio += float64(quantity) / float64(size)
				known = true
			}
		}
		if known && ratio < 0.5 {
			candidates = append(candidates, candidate{id: slot.ID, ratio: ratio})
		}
	})
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].ratio < candidates[j].ratio })

	ids := make([]int, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

// GroundZoneOccupancy returns the share of laid-out ground slots holding stock
func (s *Store) GroundZoneOccupancy(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total, taken := 0, 0
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut && slot.IsGroundZone() {
			total++
			if !s.isFree(slot.ID) {
				taken++
			}
		}
	})
	if total == 0 {
		return 0, nil
	}
	return float64(taken) / float64(total), nil
}

func (s *Store) CountLaidOutSlots(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut {
			count++
		}
	})
	return count, nil
}

func (s *Store) ListSlotIDsForClassing(ctx context.Context, limit, offset int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.laidOutByDistance(func(*domain.Slot) bool { return true })
	return slotIDs(window(ordered, limit, offset)), nil
}

func (s *Store) ListUnclassedSlotsByDistance(ctx context.Context) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.laidOutByDistance(func(slot *domain.Slot) bool { return slot.Class == 0 })
	result := make([]domain.Slot, len(ordered))
	for i, slot := range ordered {
		result[i] = *slot
	}
	return result, nil
}

// ListFreeSlotIDsInClass returns the free slots of class, nearest first and
// ground zone before high zone at equal distance.
func (s *Store) ListFreeSlotIDsInClass(ctx context.Context, class int, zone domain.Zone) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var free []*domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if slot.Class == class && zone.Matches(slot.Zone) && s.isFree(slot.ID) {
			free = append(free, slot)
		}
	})
	sort.SliceStable(free, func(i, j int) bool {
		if free[i].Distance != free[j].Distance {
			return free[i].Distance < free[j].Distance
		}
		return free[i].IsGroundZone() && !free[j].IsGroundZone()
	})
	return slotIDs(free), nil
}

// NextFreeSlotInLowerClass returns a free slot of the highest class not
// above class, farthest first, or 0.
func (s *Store) NextFreeSlotInLowerClass(ctx context.Context, class int, zone domain.Zone) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if slot.Class == 0 || slot.Class > class || !zone.Matches(slot.Zone) || !s.isFree(slot.ID) {
			return
		}
		if best == nil || slot.Class > best.Class ||
			(slot.Class == best.Class && slot.Distance > best.Distance) ||
			(slot.Class == best.Class && slot.Distance == best.Distance && slot.IsGroundZone() && !best.IsGroundZone()) {
			best = slot
		}
	})
	if best == nil {
		return 0, nil
	}
	return best.ID, nil
}

// NextFreeSlotInHigherClass returns a free slot of the lowest class not
// below class, nearest first, or 0.
func (s *Store) NextFreeSlotInHigherClass(ctx context.Context, class int, zone domain.Zone) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if slot.Class < class || !zone.Matches(slot.Zone) || !s.isFree(slot.ID) {
			return
		}
		if best == nil || slot.Class < best.Class ||
			(slot.Class == best.Class && slot.Distance < best.Distance) ||
			(slot.Class == best.Class && slot.Distance == best.Distance && slot.IsGroundZone() && !best.IsGroundZone()) {
			best = slot
		}
	})
	if best == nil {
		return 0, nil
	}
	return best.ID, nil
}

func (s *Store) SetSlotClass(ctx context.Context, slotID, class int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotID)
	}
	slot.Class = class
	return nil
}

func (s *Store) ClearSlotClasses(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, slot := range s.slots {
		slot.Class = 0
	}
	return nil
}

func (s *Store) MaxSlotClass(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := 0
	for _, slot := range s.slots {
		highest = max(highest, slot.Class)
	}
	return highest, nil
}

func (s *Store) laidOutByDistance(keep func(*domain.Slot) bool) []*domain.Slot {
	var ordered []*domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if slot.LaidOut && keep(slot) {
			ordered = append(ordered, slot)
		}
	})
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Distance != ordered[j].Distance {
			return ordered[i].Distance < ordered[j].Distance
		}
		return ordered[i].Code < ordered[j].Code
	})
	return ordered
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) || limit <= 0 {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

func slotIDs(slots []*domain.Slot) []int {
	ids := make([]int, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
	}
	return ids
}
