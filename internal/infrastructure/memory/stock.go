package memory

import (
	"context"
	"sort"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func (s *Store) ClearHoldings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings = make(map[int]map[domain.ArticleKey]int)
	return nil
}

// Holdings returns the stock of a slot ordered by article
func (s *Store) Holdings(ctx context.Context, slotID int) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.holdings[slotID]
	result := make([]domain.Holding, 0, len(entries))
	for _, article := range sortedArticles(entries) {
		result = append(result, domain.Holding{SlotID: slotID, Article: article, Quantity: entries[article]})
	}
	return result, nil
}

// Store adds the holding's quantity to its slot
func (s *Store) Store(ctx context.Context, holding domain.Holding) error {
	if holding.Quantity <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	addQuantity(s.holdings, holding.SlotID, holding.Article, holding.Quantity)
	return nil
}

// Remove subtracts the holding's quantity from its slot, clamping at zero
func (s *Store) Remove(ctx context.Context, holding domain.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subtractQuantity(s.holdings, holding.SlotID, holding.Article, holding.Quantity)
	return nil
}

// FindPickSlot returns the laid-out ground slot with the least stock of
// article that still has quantity unreserved units, or nil. Ties go to the
// nearest slot, then the lowest id.
func (s *Store) FindPickSlot(ctx context.Context, article domain.ArticleKey, quantity int) (*domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Slot
	bestQuantity := 0
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.LaidOut || !slot.IsGroundZone() {
			return
		}
		held, ok := s.holdings[slot.ID][article]
		if !ok || held-s.reservations[slot.ID][article] < quantity {
			return
		}
		if best == nil || held < bestQuantity ||
			(held == bestQuantity && closerSlot(slot, best)) {
			best, bestQuantity = slot, held
		}
	})
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

// FindHighZoneSupply returns the smallest laid-out high zone holding of
// article with at least quantity units, or nil.
func (s *Store) FindHighZoneSupply(ctx context.Context, article domain.ArticleKey, quantity int) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.Holding
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.LaidOut || slot.Zone != domain.ZoneHigh {
			return
		}
		held, ok := s.holdings[slot.ID][article]
		if !ok || held < quantity {
			return
		}
		if best == nil || held < best.Quantity {
			best = &domain.Holding{SlotID: slot.ID, Article: article, Quantity: held}
		}
	})
	return best, nil
}

// GroundSlotsForArticle returns the ground slots holding article with their
// fill ratio set, emptiest first.
func (s *Store) GroundSlotsForArticle(ctx context.Context, article domain.ArticleKey) ([]domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.palletSize(article)
	var result []domain.Slot
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.IsGroundZone() {
			return
		}
		held, ok := s.holdings[slot.ID][article]
		if !ok {
			return
		}
		copied := *slot
		if size > 0 {
			copied.FillRatio = float64(held) / float64(size)
		}
		result = append(result, copied)
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].FillRatio < result[j].FillRatio })
	return result, nil
}

// ArticlesWithMultipleGroundSlots returns articles stored in more than one
// ground slot, most spread first.
func (s *Store) ArticlesWithMultipleGroundSlots(ctx context.Context) ([]domain.ArticleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spread := make(map[domain.ArticleKey]int)
	s.eachSlot(func(slot *domain.Slot) {
		if !slot.IsGroundZone() {
			return
		}
		for article := range s.holdings[slot.ID] {
			spread[article]++
		}
	})
	for article, count := range spread {
		if count < 2 {
			delete(spread, article)
		}
	}
	return rankByVolume(spread), nil
}

func (s *Store) GroundZoneStock(ctx context.Context, article domain.ArticleKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	s.eachSlot(func(slot *domain.Slot) {
		if slot.IsGroundZone() {
			total += s.holdings[slot.ID][article]
		}
	})
	return total, nil
}

func (s *Store) Reserve(ctx context.Context, reservation domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addQuantity(s.reservations, reservation.SlotID, reservation.Article, reservation.Quantity)
	return nil
}

func (s *Store) Release(ctx context.Context, reservation domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	subtractQuantity(s.reservations, reservation.SlotID, reservation.Article, reservation.Quantity)
	return nil
}

func (s *Store) ClearReservations(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reservations = make(map[int]map[domain.ArticleKey]int)
	return nil
}

func closerSlot(a, b *domain.Slot) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}
