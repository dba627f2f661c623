package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
)

var seededTables = []string{"slots", "articles", "holdings", "reservations", "movements", "sales_figures", "pick_pool"}

// Seed replaces the warehouse contents with fixture in a single transaction
func (s *Store) Seed(ctx context.Context, fixture *memory.Fixture) error {
	copies, err := fixtureCopies(fixture)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range seededTables {
			if _, err := tx.Exec(ctx, `TRUNCATE `+table); err != nil {
				return fmt.Errorf("failed to truncate %s: %w", table, err)
			}
		}
		for _, c := range copies {
			if len(c.rows) == 0 {
				continue
			}
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
				return fmt.Errorf("failed to copy %s: %w", c.table, err)
			}
		}
		return nil
	})
}

type tableCopy struct {
	table   string
	columns []string
	rows    [][]any
}

func fixtureCopies(fixture *memory.Fixture) ([]tableCopy, error) {
	slots := tableCopy{
		table:   "slots",
		columns: []string{"id", "code", "zone", "laid_out", "unit", "aisle", "position", "unit_no", "aisle_no", "position_no", "distance"},
	}
	for _, f := range fixture.Slots {
		slot := f.Slot()
		if !slot.Zone.IsValid() {
			return nil, fmt.Errorf("slot %d has invalid zone %q", slot.ID, slot.Zone)
		}
		slots.rows = append(slots.rows, []any{
			slot.ID, slot.Code, string(slot.Zone), slot.LaidOut, slot.Unit, slot.Aisle, slot.Position,
			codeNumber(slot.Unit), codeNumber(slot.Aisle), codeNumber(slot.Position), slot.Distance,
		})
	}

	articles := tableCopy{
		table:   "articles",
		columns: []string{"article_number", "variant", "length", "width", "height", "pallet_size"},
	}
	for _, f := range fixture.Articles {
		key, attributes := f.Key(), f.Attributes()
		articles.rows = append(articles.rows, []any{
			key.Number, key.Variant, attributes.Length.InexactFloat64(), attributes.Width.InexactFloat64(), attributes.Height.InexactFloat64(), f.PalletSize,
		})
	}

	holdings := tableCopy{
		table:   "holdings",
		columns: []string{"slot_id", "article_number", "variant", "quantity"},
	}
	totals := make(map[[3]int]int)
	var order [][3]int
	for _, f := range fixture.Holdings {
		h := f.Holding()
		if h.Quantity <= 0 {
			continue
		}
		key := [3]int{h.SlotID, h.Article.Number, h.Article.Variant}
		if _, ok := totals[key]; !ok {
			order = append(order, key)
		}
		totals[key] += h.Quantity
	}
	for _, key := range order {
		holdings.rows = append(holdings.rows, []any{key[0], key[1], key[2], totals[key]})
	}

	movements := tableCopy{
		table:   "movements",
		columns: []string{"moved_on", "origin_slot_id", "destination_slot_id", "article_number", "variant", "quantity"},
	}
	for _, f := range fixture.Movements {
		m, err := f.Movement()
		if err != nil {
			return nil, err
		}
		movements.rows = append(movements.rows, []any{
			day(m.Date), m.OriginSlotID, m.DestinationSlotID, m.Article.Number, m.Article.Variant, m.Quantity,
		})
	}

	sales := tableCopy{
		table:   "sales_figures",
		columns: []string{"sold_on", "article_number", "variant", "quantity"},
	}
	for _, f := range fixture.Sales {
		figure, err := f.SalesFigure()
		if err != nil {
			return nil, err
		}
		sales.rows = append(sales.rows, []any{day(figure.Date), figure.Article.Number, figure.Article.Variant, figure.Quantity})
	}

	pool := tableCopy{
		table: "pick_pool",
		columns: []string{"slot_id", "quantity", "position_id", "order_id", "article_number", "variant",
			"picklist_id", "pick_time", "due_time"},
	}
	for _, f := range fixture.Orders {
		line, err := f.OrderLine()
		if err != nil {
			return nil, err
		}
		pool.rows = append(pool.rows, []any{
			line.SlotID, line.Quantity, line.PositionID, line.OrderID, line.Article.Number, line.Article.Variant,
			line.PicklistID, line.PickTime, line.DueTime,
		})
	}

	return []tableCopy{slots, articles, holdings, movements, sales, pool}, nil
}
