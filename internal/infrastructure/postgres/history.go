package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func (s *Store) IncomingBefore(ctx context.Context, slotID int, date time.Time) ([]domain.Holding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT article_number, variant, SUM(quantity)
		FROM movements
		WHERE destination_slot_id = $1 AND moved_on <= $2
		GROUP BY article_number, variant
		ORDER BY article_number, variant
	`, slotID, day(date))
	holdings, err := collectHoldings(slotID, rows, err)
	if err != nil {
		return nil, fmt.Errorf("failed to sum incoming bookings of slot %d: %w", slotID, err)
	}
	return holdings, nil
}

func (s *Store) OutgoingBefore(ctx context.Context, slotID int, date time.Time) ([]domain.Holding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT article_number, variant, SUM(quantity)
		FROM movements
		WHERE origin_slot_id = $1 AND moved_on < $2
		GROUP BY article_number, variant
		ORDER BY article_number, variant
	`, slotID, day(date))
	holdings, err := collectHoldings(slotID, rows, err)
	if err != nil {
		return nil, fmt.Errorf("failed to sum outgoing bookings of slot %d: %w", slotID, err)
	}
	return holdings, nil
}

// ArrivalsOn sums the bookings of date whose origin lies outside the
// warehouse and whose destination and article are known.
func (s *Store) ArrivalsOn(ctx context.Context, date time.Time) ([]domain.IncomingGoods, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.destination_slot_id, m.article_number, m.variant, SUM(m.quantity), a.rank
		FROM movements m
		INNER JOIN slots d ON d.id = m.destination_slot_id
		INNER JOIN articles a ON a.article_number = m.article_number AND a.variant = m.variant
		WHERE m.moved_on = $1
			AND NOT EXISTS (SELECT 1 FROM slots o WHERE o.id = m.origin_slot_id)
		GROUP BY m.destination_slot_id, m.article_number, m.variant, a.rank
		ORDER BY m.destination_slot_id, m.article_number, m.variant
	`, day(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query arrivals: %w", err)
	}
	arrivals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.IncomingGoods, error) {
		var goods domain.IncomingGoods
		err := row.Scan(&goods.SlotID, &goods.Article.Number, &goods.Article.Variant, &goods.Quantity, &goods.Rank)
		return goods, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan arrivals: %w", err)
	}
	return arrivals, nil
}

func (s *Store) MaxArrivalQuantity(ctx context.Context, article domain.ArticleKey) (int, error) {
	var largest int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(m.quantity), 0)
		FROM movements m
		WHERE m.article_number = $1
			AND m.variant = $2
			AND NOT EXISTS (SELECT 1 FROM slots o WHERE o.id = m.origin_slot_id)
	`, article.Number, article.Variant).Scan(&largest)
	if err != nil {
		return 0, fmt.Errorf("failed to query largest arrival of %s: %w", article, err)
	}
	return largest, nil
}

func (s *Store) RollingSalesRanking(ctx context.Context, date time.Time) ([]domain.ArticleKey, error) {
	month := int(date.Month())
	return s.salesRanking(ctx, `
		EXTRACT(MONTH FROM sold_on) BETWEEN $1 AND $2 AND sold_on < $3
	`, month-1, month+1, date)
}

func (s *Store) ExactSalesRanking(ctx context.Context, month time.Month, year int) ([]domain.ArticleKey, error) {
	return s.salesRanking(ctx, `
		EXTRACT(MONTH FROM sold_on) = $1 AND EXTRACT(YEAR FROM sold_on) = $2
	`, int(month), year)
}

func (s *Store) TopSellers(ctx context.Context, window domain.SalesWindow, limit int) ([]domain.ArticleKey, error) {
	ranking, err := s.salesRanking(ctx, `
		EXTRACT(MONTH FROM sold_on) BETWEEN $1 AND $2 AND EXTRACT(YEAR FROM sold_on) BETWEEN $3 AND $4
	`, int(window.FromMonth), int(window.ToMonth), window.FromYear, window.ToYear)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking, nil
}

// salesRanking orders the articles of the figures matching filter by sold
// quantity, highest first.
func (s *Store) salesRanking(ctx context.Context, filter string, args ...any) ([]domain.ArticleKey, error) {
	ranking, err := collectArticles(s.pool.Query(ctx, `
		SELECT article_number, variant
		FROM sales_figures
		WHERE `+filter+`
		GROUP BY article_number, variant
		ORDER BY SUM(quantity) DESC, article_number, variant
	`, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to rank sales: %w", err)
	}
	return ranking, nil
}

func (s *Store) ExpectedSales(ctx context.Context, article domain.ArticleKey, date time.Time) (int, error) {
	from := day(date).AddDate(-1, 0, 0)
	return s.salesBetween(ctx, article, from, from.AddDate(0, 0, 30))
}

func (s *Store) ExactSales(ctx context.Context, article domain.ArticleKey, date time.Time) (int, error) {
	from := day(date)
	return s.salesBetween(ctx, article, from, from.AddDate(0, 0, 30))
}

func (s *Store) salesBetween(ctx context.Context, article domain.ArticleKey, from, to time.Time) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM sales_figures
		WHERE article_number = $1 AND variant = $2 AND sold_on BETWEEN $3 AND $4
	`, article.Number, article.Variant, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales of %s: %w", article, err)
	}
	return total, nil
}

func (s *Store) SelectPickPool(ctx context.Context, date time.Time) ([]domain.OrderLine, error) {
	from := day(date)
	rows, err := s.pool.Query(ctx, `
		SELECT slot_id, quantity, position_id, order_id, article_number, variant, picklist_id, pick_time, due_time
		FROM pick_pool
		WHERE pick_time >= $1 AND pick_time < $2
		ORDER BY due_time, pick_time, id
	`, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query pick pool: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderLine, error) {
		var line domain.OrderLine
		err := row.Scan(&line.SlotID, &line.Quantity, &line.PositionID, &line.OrderID,
			&line.Article.Number, &line.Article.Variant, &line.PicklistID, &line.PickTime, &line.DueTime)
		line.PickTime, line.DueTime = line.PickTime.UTC(), line.DueTime.UTC()
		return line, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pick pool: %w", err)
	}
	return lines, nil
}

func (s *Store) HistoricPicklists(ctx context.Context, since time.Time) ([]domain.HistoricPicklist, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT picklist_id, EXTRACT(EPOCH FROM MAX(pick_time) - MIN(pick_time))::float8
		FROM pick_pool
		WHERE pick_time > $1
		GROUP BY picklist_id
		ORDER BY picklist_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query historic pick lists: %w", err)
	}
	picklists, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoricPicklist, error) {
		var (
			picklist domain.HistoricPicklist
			seconds  float64
		)
		err := row.Scan(&picklist.PicklistID, &seconds)
		picklist.Duration = time.Duration(seconds * float64(time.Second))
		return picklist, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan historic pick lists: %w", err)
	}
	return picklists, nil
}

func (s *Store) PicklistSlotCodes(ctx context.Context, picklistID int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT s.code COLLATE "C" AS slot_code
		FROM pick_pool p
		INNER JOIN slots s ON s.id = p.slot_id
		WHERE p.picklist_id = $1
		ORDER BY slot_code
	`, picklistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots of pick list %d: %w", picklistID, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
