package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func (s *Store) ClearHoldings(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM holdings`); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	return nil
}

func (s *Store) Holdings(ctx context.Context, slotID int) ([]domain.Holding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT article_number, variant, quantity
		FROM holdings
		WHERE slot_id = $1
		ORDER BY article_number, variant
	`, slotID)
	holdings, err := collectHoldings(slotID, rows, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings of slot %d: %w", slotID, err)
	}
	return holdings, nil
}

func (s *Store) Store(ctx context.Context, holding domain.Holding) error {
	if holding.Quantity <= 0 {
		return nil
	}
	if err := s.upsertQuantity(ctx, "holdings", holding.SlotID, holding.Article, holding.Quantity); err != nil {
		return fmt.Errorf("failed to store %s at slot %d: %w", holding.Article, holding.SlotID, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, holding domain.Holding) error {
	if err := s.subtractQuantity(ctx, "holdings", holding.SlotID, holding.Article, holding.Quantity); err != nil {
		return fmt.Errorf("failed to remove %s from slot %d: %w", holding.Article, holding.SlotID, err)
	}
	return nil
}

func (s *Store) FindPickSlot(ctx context.Context, article domain.ArticleKey, quantity int) (*domain.Slot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM holdings h
		INNER JOIN slots s ON s.id = h.slot_id
		LEFT JOIN reservations r ON r.slot_id = h.slot_id
			AND r.article_number = h.article_number
			AND r.variant = h.variant
		WHERE s.laid_out
			AND s.zone = 'ground'
			AND h.article_number = $1
			AND h.variant = $2
			AND h.quantity - COALESCE(r.quantity, 0) >= $3
		ORDER BY h.quantity, s.distance, s.id
		LIMIT 1
	`, article.Number, article.Variant, quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query pick slot of %s: %w", article, err)
	}
	return &slot, nil
}

func (s *Store) FindHighZoneSupply(ctx context.Context, article domain.ArticleKey, quantity int) (*domain.Holding, error) {
	holding := domain.Holding{Article: article}
	err := s.pool.QueryRow(ctx, `
		SELECT h.slot_id, h.quantity
		FROM holdings h
		INNER JOIN slots s ON s.id = h.slot_id
		WHERE s.laid_out
			AND s.zone = 'high'
			AND h.article_number = $1
			AND h.variant = $2
			AND h.quantity >= $3
		ORDER BY h.quantity, s.id
		LIMIT 1
	`, article.Number, article.Variant, quantity).Scan(&holding.SlotID, &holding.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query high zone supply of %s: %w", article, err)
	}
	return &holding, nil
}

func (s *Store) GroundSlotsForArticle(ctx context.Context, article domain.ArticleKey) ([]domain.Slot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`,
			CASE WHEN COALESCE(a.pallet_size, 0) > 0 THEN h.quantity::float8 / a.pallet_size ELSE 0 END AS fill_ratio
		FROM holdings h
		INNER JOIN slots s ON s.id = h.slot_id
		LEFT JOIN articles a ON a.article_number = h.article_number AND a.variant = h.variant
		WHERE s.zone = 'ground' AND h.article_number = $1 AND h.variant = $2
		ORDER BY fill_ratio, s.id
	`, article.Number, article.Variant)
	if err != nil {
		return nil, fmt.Errorf("failed to query ground slots of %s: %w", article, err)
	}
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		var (
			slot domain.Slot
			zone string
		)
		if err := rows.Scan(&slot.ID, &slot.Code, &zone, &slot.LaidOut, &slot.Unit, &slot.Aisle,
			&slot.Position, &slot.Distance, &slot.Class, &slot.FillRatio); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slot.Zone = domain.Zone(zone)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *Store) ArticlesWithMultipleGroundSlots(ctx context.Context) ([]domain.ArticleKey, error) {
	articles, err := collectArticles(s.pool.Query(ctx, `
		SELECT h.article_number, h.variant
		FROM holdings h
		INNER JOIN slots s ON s.id = h.slot_id
		WHERE s.zone = 'ground'
		GROUP BY h.article_number, h.variant
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, h.article_number, h.variant
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to query spread articles: %w", err)
	}
	return articles, nil
}

func (s *Store) GroundZoneStock(ctx context.Context, article domain.ArticleKey) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(h.quantity), 0)
		FROM holdings h
		INNER JOIN slots s ON s.id = h.slot_id
		WHERE s.zone = 'ground' AND h.article_number = $1 AND h.variant = $2
	`, article.Number, article.Variant).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to query ground zone stock of %s: %w", article, err)
	}
	return total, nil
}

func (s *Store) Reserve(ctx context.Context, reservation domain.Reservation) error {
	if err := s.upsertQuantity(ctx, "reservations", reservation.SlotID, reservation.Article, reservation.Quantity); err != nil {
		return fmt.Errorf("failed to reserve %s at slot %d: %w", reservation.Article, reservation.SlotID, err)
	}
	return nil
}

func (s *Store) Release(ctx context.Context, reservation domain.Reservation) error {
	if err := s.subtractQuantity(ctx, "reservations", reservation.SlotID, reservation.Article, reservation.Quantity); err != nil {
		return fmt.Errorf("failed to release %s at slot %d: %w", reservation.Article, reservation.SlotID, err)
	}
	return nil
}

func (s *Store) ClearReservations(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM reservations`); err != nil {
		return fmt.Errorf("failed to clear reservations: %w", err)
	}
	return nil
}

// upsertQuantity adds quantity to a (slot, article) row of table
func (s *Store) upsertQuantity(ctx context.Context, table string, slotID int, article domain.ArticleKey, quantity int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+table+` (slot_id, article_number, variant, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot_id, article_number, variant)
		DO UPDATE SET quantity = `+table+`.quantity + EXCLUDED.quantity
	`, slotID, article.Number, article.Variant, quantity)
	return err
}

// subtractQuantity lowers a (slot, article) row of table, deleting it once it
// would reach zero.
func (s *Store) subtractQuantity(ctx context.Context, table string, slotID int, article domain.ArticleKey, quantity int) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM `+table+`
			WHERE slot_id = $1 AND article_number = $2 AND variant = $3 AND quantity <= $4
		`, slotID, article.Number, article.Variant, quantity)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE `+table+` SET quantity = quantity - $4
			WHERE slot_id = $1 AND article_number = $2 AND variant = $3
		`, slotID, article.Number, article.Variant, quantity)
		return err
	})
}
