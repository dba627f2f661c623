package memory

import (
	"context"
	"sort"
	"time"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// IncomingBefore sums the bookings into slotID up to and including date
func (s *Store) IncomingBefore(ctx context.Context, slotID int, date time.Time) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := day(date)
	return s.sumMovements(slotID, func(m domain.Movement) bool {
		return m.DestinationSlotID == slotID && !day(m.Date).After(cutoff)
	}), nil
}

// OutgoingBefore sums the bookings out of slotID strictly before date
func (s *Store) OutgoingBefore(ctx context.Context, slotID int, date time.Time) ([]domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := day(date)
	return s.sumMovements(slotID, func(m domain.Movement) bool {
		return m.OriginSlotID == slotID && day(m.Date).Before(cutoff)
	}), nil
}

func (s *Store) sumMovements(slotID int, keep func(domain.Movement) bool) []domain.Holding {
	totals := make(map[domain.ArticleKey]int)
	for _, movement := range s.movements {
		if keep(movement) {
			totals[movement.Article] += movement.Quantity
		}
	}
	result := make([]domain.Holding, 0, len(totals))
	for _, article := range sortedArticles(totals) {
		result = append(result, domain.Holding{SlotID: slotID, Article: article, Quantity: totals[article]})
	}
	return result
}

// ArrivalsOn returns goods booked on date from outside the warehouse into a
// known slot, summed per slot and article.
func (s *Store) ArrivalsOn(ctx context.Context, date time.Time) ([]domain.IncomingGoods, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		slotID  int
		article domain.ArticleKey
	}
	totals := make(map[key]int)
	var order []key
	target := day(date)
	for _, movement := range s.movements {
		if !day(movement.Date).Equal(target) || !s.isExternalArrival(movement) {
			continue
		}
		if _, ok := s.articles[movement.Article]; !ok {
			continue
		}
		k := key{slotID: movement.DestinationSlotID, article: movement.Article}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += movement.Quantity
	}
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].slotID != order[j].slotID {
			return order[i].slotID < order[j].slotID
		}
		return articleLess(order[i].article, order[j].article)
	})

	result := make([]domain.IncomingGoods, 0, len(order))
	for _, k := range order {
		result = append(result, domain.IncomingGoods{
			SlotID:   k.slotID,
			Article:  k.article,
			Quantity: totals[k],
			Rank:     s.articles[k.article].rank,
		})
	}
	return result, nil
}

// MaxArrivalQuantity returns the largest single external arrival of article
func (s *Store) MaxArrivalQuantity(ctx context.Context, article domain.ArticleKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	largest := 0
	for _, movement := range s.movements {
		if movement.Article == article && s.isOutsideOrigin(movement) {
			largest = max(largest, movement.Quantity)
		}
	}
	return largest, nil
}

func (s *Store) isOutsideOrigin(m domain.Movement) bool {
	_, known := s.slots[m.OriginSlotID]
	return !known
}

func (s *Store) isExternalArrival(m domain.Movement) bool {
	_, destinationKnown := s.slots[m.DestinationSlotID]
	return destinationKnown && s.isOutsideOrigin(m)
}

// RollingSalesRanking ranks articles by sales before date in the months
// around date's month.
func (s *Store) RollingSalesRanking(ctx context.Context, date time.Time) ([]domain.ArticleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	month := int(date.Month())
	return s.rankSales(func(f domain.SalesFigure) bool {
		m := int(f.Date.Month())
		return m >= month-1 && m <= month+1 && f.Date.Before(date)
	}), nil
}

func (s *Store) ExactSalesRanking(ctx context.Context, month time.Month, year int) ([]domain.ArticleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rankSales(func(f domain.SalesFigure) bool {
		return f.Date.Month() == month && f.Date.Year() == year
	}), nil
}

// ExpectedSales sums last year's sales of article in the 30 days from date
func (s *Store) ExpectedSales(ctx context.Context, article domain.ArticleKey, date time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := day(date).AddDate(-1, 0, 0)
	return s.salesBetween(article, from, from.AddDate(0, 0, 30)), nil
}

// ExactSales sums the sales of article in the 30 days from date
func (s *Store) ExactSales(ctx context.Context, article domain.ArticleKey, date time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	from := day(date)
	return s.salesBetween(article, from, from.AddDate(0, 0, 30)), nil
}

func (s *Store) TopSellers(ctx context.Context, window domain.SalesWindow, limit int) ([]domain.ArticleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranking := s.rankSales(func(f domain.SalesFigure) bool { return window.Contains(f.Date) })
	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking, nil
}

func (s *Store) rankSales(keep func(domain.SalesFigure) bool) []domain.ArticleKey {
	volume := make(map[domain.ArticleKey]int)
	for _, figure := range s.sales {
		if keep(figure) {
			volume[figure.Article] += figure.Quantity
		}
	}
	return rankByVolume(volume)
}

func (s *Store) salesBetween(article domain.ArticleKey, from, to time.Time) int {
	total := 0
	for _, figure := range s.sales {
		d := day(figure.Date)
		if figure.Article == article && !d.Before(from) && !d.After(to) {
			total += figure.Quantity
		}
	}
	return total
}

// SelectPickPool returns the lines picked on date ordered by due time, then
// pick time.
func (s *Store) SelectPickPool(ctx context.Context, date time.Time) ([]domain.OrderLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := day(date)
	var lines []domain.OrderLine
	for _, line := range s.orders {
		if day(line.PickTime).Equal(target) {
			lines = append(lines, line)
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].DueTime.Equal(lines[j].DueTime) {
			return lines[i].DueTime.Before(lines[j].DueTime)
		}
		return lines[i].PickTime.Before(lines[j].PickTime)
	})
	return lines, nil
}

// HistoricPicklists returns the duration of every pick list picked after
// since, measured from its first to its last pick.
func (s *Store) HistoricPicklists(ctx context.Context, since time.Time) ([]domain.HistoricPicklist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type span struct{ first, last time.Time }
	spans := make(map[int]*span)
	for _, line := range s.orders {
		if !line.PickTime.After(since) {
			continue
		}
		sp, ok := spans[line.PicklistID]
		if !ok {
			spans[line.PicklistID] = &span{first: line.PickTime, last: line.PickTime}
			continue
		}
		if line.PickTime.Before(sp.first) {
			sp.first = line.PickTime
		}
		if line.PickTime.After(sp.last) {
			sp.last = line.PickTime
		}
	}

	result := make([]domain.HistoricPicklist, 0, len(spans))
	for id, sp := range spans {
		result = append(result, domain.HistoricPicklist{PicklistID: id, Duration: sp.last.Sub(sp.first)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PicklistID < result[j].PicklistID })
	return result, nil
}

// PicklistSlotCodes returns the distinct slot codes of a historic pick list
func (s *Store) PicklistSlotCodes(ctx context.Context, picklistID int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var codes []string
	for _, line := range s.orders {
		if line.PicklistID != picklistID {
			continue
		}
		slot, ok := s.slots[line.SlotID]
		if !ok {
			continue
		}
		if _, dup := seen[slot.Code]; !dup {
			seen[slot.Code] = struct{}{}
			codes = append(codes, slot.Code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}
