package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func (s *Store) GetSlot(ctx context.Context, slotID int) (*domain.Slot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots s WHERE s.id = $1`, slotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotID)
		}
		return nil, fmt.Errorf("failed to query slot %d: %w", slotID, err)
	}
	return &slot, nil
}

func (s *Store) GetSlotByCode(ctx context.Context, code string) (*domain.Slot, error) {
	slot, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots s WHERE s.code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSlotNotFound, code)
		}
		return nil, fmt.Errorf("failed to query slot %s: %w", code, err)
	}
	return &slot, nil
}

func (s *Store) ListSlotIDs(ctx context.Context) ([]int, error) {
	return collectInts(s.pool.Query(ctx, `SELECT id FROM slots ORDER BY id`))
}

func (s *Store) ListNotLaidOutSlotsWithStock(ctx context.Context) ([]domain.Slot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE NOT s.laid_out AND NOT `+isFree+`
		ORDER BY s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots without layout: %w", err)
	}
	return collectSlots(rows)
}

func (s *Store) ListLowStockGroundSlots(ctx context.Context, threshold int) ([]domain.Slot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		INNER JOIN (
			SELECT slot_id, SUM(quantity) AS total
			FROM holdings
			GROUP BY slot_id
		) h ON h.slot_id = s.id
		WHERE s.zone = 'ground' AND h.total < $1
		ORDER BY s.unit COLLATE "C", s.aisle COLLATE "C", s.id
	`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock slots: %w", err)
	}
	return collectSlots(rows)
}

func (s *Store) FindNearestFreeLaidOutSlot(ctx context.Context, origin domain.Slot) (int, error) {
	id, err := scanOptionalInt(s.pool.QueryRow(ctx, `
		SELECT s.id
		FROM slots s
		WHERE s.laid_out AND s.zone = $1 AND `+isFree+`
		ORDER BY abs(s.unit_no - $2), abs(s.aisle_no - $3), abs(s.position_no - $4), s.id
		LIMIT 1
	`, string(origin.Zone), codeNumber(origin.Unit), codeNumber(origin.Aisle), codeNumber(origin.Position)))
	if err != nil {
		return 0, fmt.Errorf("failed to query nearest free slot: %w", err)
	}
	return id, nil
}

func (s *Store) ListFreeSlotIDs(ctx context.Context, query domain.FreeSlotQuery) ([]int, error) {
	order := `s.id`
	if query.OrderByDistance {
		order = `s.distance, s.id`
	}
	ids, err := collectInts(s.pool.Query(ctx, `
		SELECT s.id
		FROM slots s
		WHERE s.laid_out AND ($1::text = '' OR s.zone = $1) AND `+isFree+`
		ORDER BY `+order, string(query.Zone)))
	if err != nil {
		return nil, fmt.Errorf("failed to query free slots: %w", err)
	}
	return ids, nil
}

func (s *Store) ListFreeSlotBaseCodes(ctx context.Context, zone domain.Zone) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+baseCode+`
		FROM slots s
		WHERE s.laid_out AND ($1::text = '' OR s.zone = $1) AND `+isFree+`
		ORDER BY s.id
	`, string(zone))
	if err != nil {
		return nil, fmt.Errorf("failed to query free base codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) ListFreeSlotIDsByBaseCode(ctx context.Context, code string, zone domain.Zone) ([]int, error) {
	ids, err := collectInts(s.pool.Query(ctx, `
		SELECT s.id
		FROM slots s
		WHERE s.laid_out AND ($2::text = '' OR s.zone = $2) AND `+isFree+` AND `+baseCode+` = $1
		ORDER BY s.id
	`, code, string(zone)))
	if err != nil {
		return nil, fmt.Errorf("failed to query free slots of %s: %w", code, err)
	}
	return ids, nil
}

func (s *Store) FindSameArticleSlotInAisle(ctx context.Context, origin domain.Slot, holding domain.Holding) (int, error) {
	id, err := scanOptionalInt(s.pool.QueryRow(ctx, `
		SELECT s.id
		FROM slots s
		INNER JOIN holdings h ON h.slot_id = s.id
		WHERE s.id <> $1
			AND s.zone = 'ground'
			AND s.unit = $2
			AND s.aisle = $3
			AND h.article_number = $4
			AND h.variant = $5
		ORDER BY h.quantity, s.id
		LIMIT 1
	`, holding.SlotID, origin.Unit, origin.Aisle, holding.Article.Number, holding.Article.Variant))
	if err != nil {
		return 0, fmt.Errorf("failed to query same article slot: %w", err)
	}
	return id, nil
}

func (s *Store) ListMixedSlotIDs(ctx context.Context) ([]int, error) {
	ids, err := collectInts(s.pool.Query(ctx, `
		WITH bases AS (
			SELECT DISTINCT `+baseCode+` AS base
			FROM slots s
			WHERE s.laid_out AND s.code LIKE '%;7'
		)
		SELECT s.id
		FROM slots s
		LEFT JOIN (
			SELECT slot_id, SUM(quantity) AS total
			FROM holdings
			GROUP BY slot_id
		) h ON h.slot_id = s.id
		WHERE s.laid_out AND s.zone = 'ground' AND `+baseCode+` IN (SELECT base FROM bases)
		ORDER BY COALESCE(h.total, 0), s.id
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to query mixed slots: %w", err)
	}
	return ids, nil
}

func (s *Store) ListLowFillRatioSlotIDs(ctx context.Context) ([]int, error) {
	ids, err := collectInts(s.pool.Query(ctx, `
		SELECT h.slot_id
		FROM holdings h
		INNER JOIN slots s ON s.id = h.slot_id
		INNER JOIN articles a ON a.article_number = h.article_number AND a.variant = h.variant
		WHERE s.zone = 'ground' AND a.pallet_size > 0
		GROUP BY h.slot_id
		HAVING SUM(h.quantity::float8 / a.pallet_size) < 0.5
		ORDER BY SUM(h.quantity::float8 / a.pallet_size), h.slot_id
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to query low fill ratio slots: %w", err)
	}
	return ids, nil
}

func (s *Store) GroundZoneOccupancy(ctx context.Context) (float64, error) {
	var total, taken int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT `+isFree+`)
		FROM slots s
		WHERE s.laid_out AND s.zone = 'ground'
	`).Scan(&total, &taken)
	if err != nil {
		return 0, fmt.Errorf("failed to query ground zone occupancy: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(taken) / float64(total), nil
}

func (s *Store) CountLaidOutSlots(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM slots WHERE laid_out`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

func (s *Store) ListSlotIDsForClassing(ctx context.Context, limit, offset int) ([]int, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := collectInts(s.pool.Query(ctx, `
		SELECT id FROM slots
		WHERE laid_out
		ORDER BY distance, code COLLATE "C"
		LIMIT $1 OFFSET $2
	`, limit, offset))
	if err != nil {
		return nil, fmt.Errorf("failed to page slots: %w", err)
	}
	return ids, nil
}

func (s *Store) ListUnclassedSlotsByDistance(ctx context.Context) ([]domain.Slot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots s
		WHERE s.laid_out AND s.class = 0
		ORDER BY s.distance, s.code COLLATE "C"
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassed slots: %w", err)
	}
	return collectSlots(rows)
}

func (s *Store) ListFreeSlotIDsInClass(ctx context.Context, class int, zone domain.Zone) ([]int, error) {
	ids, err := collectInts(s.pool.Query(ctx, `
		SELECT s.id
		FROM slots s
		WHERE s.class = $1 AND ($2::text = '' OR s.zone = $2) AND `+isFree+`
		ORDER BY s.distance, (s.zone = 'ground') DESC, s.id
	`, class, string(zone)))
	if err != nil {
		return nil, fmt.Errorf("failed to query free slots of class %d: %w", class, err)
	}
	return ids, nil
}

func (s *Store) NextFreeSlotInLowerClass(ctx context.Context, class int, zone domain.Zone) (int, error) {
	id, err := scanOptionalInt(s.pool.QueryRow(ctx, `
		SELECT s.id
		FROM slots s
		WHERE s.class <> 0 AND s.class <= $1 AND ($2::text = '' OR s.zone = $2) AND `+isFree+`
		ORDER BY s.class DESC, s.distance DESC, (s.zone = 'ground') DESC, s.id
		LIMIT 1
	`, class, string(zone)))
	if err != nil {
		return 0, fmt.Errorf("failed to query lower class slot: %w", err)
	}
	return id, nil
}

func (s *Store) NextFreeSlotInHigherClass(ctx context.Context, class int, zone domain.Zone) (int, error) {
	id, err := scanOptionalInt(s.pool.QueryRow(ctx, `
		SELECT s.id
		FROM slots s
		WHERE s.class >= $1 AND ($2::text = '' OR s.zone = $2) AND `+isFree+`
		ORDER BY s.class, s.distance, (s.zone = 'ground') DESC, s.id
		LIMIT 1
	`, class, string(zone)))
	if err != nil {
		return 0, fmt.Errorf("failed to query higher class slot: %w", err)
	}
	return id, nil
}

func (s *Store) SetSlotClass(ctx context.Context, slotID, class int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE slots SET class = $2 WHERE id = $1`, slotID, class)
	if err != nil {
		return fmt.Errorf("failed to set class of slot %d: %w", slotID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", domain.ErrSlotNotFound, slotID)
	}
	return nil
}

func (s *Store) ClearSlotClasses(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `UPDATE slots SET class = 0 WHERE class <> 0`); err != nil {
		return fmt.Errorf("failed to clear slot classes: %w", err)
	}
	return nil
}

func (s *Store) MaxSlotClass(ctx context.Context) (int, error) {
	var class int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(class), 0) FROM slots`).Scan(&class); err != nil {
		return 0, fmt.Errorf("failed to query max slot class: %w", err)
	}
	return class, nil
}
