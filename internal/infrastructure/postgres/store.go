package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

//go:embed schema.sql
var schema string

// Store is a PostgreSQL backed warehouse. Every query mirrors the ordering
// and tie breaking of the in-memory store so both backends simulate alike.
type Store struct {
	pool *pgxpool.Pool
}

var _ domain.WarehouseStore = (*Store)(nil)

// Connect opens a connection pool and verifies it with a ping
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return pool, nil
}

// NewStore creates a Store on top of pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the warehouse tables when they do not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// slotColumns must stay in sync with scanSlot
const slotColumns = `s.id, s.code, s.zone, s.laid_out, s.unit, s.aisle, s.position, s.distance, s.class`

// isFree matches slots of alias s without any holding
const isFree = `NOT EXISTS (SELECT 1 FROM holdings fh WHERE fh.slot_id = s.id)`

// baseCode strips the two character sub-position suffix of s.code
const baseCode = `CASE WHEN length(s.code) < 2 THEN s.code ELSE left(s.code, -2) END`

func scanSlot(row pgx.Row) (domain.Slot, error) {
	var (
		slot domain.Slot
		zone string
	)
	err := row.Scan(&slot.ID, &slot.Code, &zone, &slot.LaidOut, &slot.Unit, &slot.Aisle, &slot.Position, &slot.Distance, &slot.Class)
	slot.Zone = domain.Zone(zone)
	return slot, err
}

func collectSlots(rows pgx.Rows) ([]domain.Slot, error) {
	defer rows.Close()

	var slots []domain.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func collectInts(rows pgx.Rows, err error) ([]int, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func collectArticles(rows pgx.Rows, err error) ([]domain.ArticleKey, error) {
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ArticleKey, error) {
		var key domain.ArticleKey
		err := row.Scan(&key.Number, &key.Variant)
		return key, err
	})
}

func collectHoldings(slotID int, rows pgx.Rows, err error) ([]domain.Holding, error) {
	if err != nil {
		return nil, err
	}
	holdings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Holding, error) {
		holding := domain.Holding{SlotID: slotID}
		err := row.Scan(&holding.Article.Number, &holding.Article.Variant, &holding.Quantity)
		return holding, err
	})
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []domain.Holding{}
	}
	return holdings, nil
}

// scanOptionalInt reads a single int, returning 0 when no row matched
func scanOptionalInt(row pgx.Row) (int, error) {
	var n int
	if err := row.Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func codeNumber(part string) int {
	n, _ := strconv.Atoi(part)
	return n
}
