package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func (s *Store) Attributes(ctx context.Context, article domain.ArticleKey) (*domain.ArticleAttributes, error) {
	var length, width, height string
	err := s.pool.QueryRow(ctx, `
		SELECT length::text, width::text, height::text
		FROM articles
		WHERE article_number = $1 AND variant = $2
	`, article.Number, article.Variant).Scan(&length, &width, &height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query attributes of %s: %w", article, err)
	}

	dimensions := make([]decimal.Decimal, 3)
	for i, raw := range []string{length, width, height} {
		if dimensions[i], err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("failed to parse dimension %q of %s: %w", raw, article, err)
		}
	}
	attributes := domain.NewArticleAttributes(dimensions[0], dimensions[1], dimensions[2])
	return &attributes, nil
}

func (s *Store) ListArticles(ctx context.Context) ([]domain.ArticleKey, error) {
	articles, err := collectArticles(s.pool.Query(ctx, `
		SELECT article_number, variant FROM articles ORDER BY article_number, variant
	`))
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

func (s *Store) SetPalletSize(ctx context.Context, article domain.ArticleKey, size int) error {
	return s.updateArticle(ctx, article, `pallet_size = $3`, size)
}

func (s *Store) CountArticles(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM articles WHERE pallet_size <> 0`)
}

func (s *Store) CountRankedArticles(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM articles WHERE rank > 0`)
}

// SetRank ranks a known article; unknown articles are ignored
func (s *Store) SetRank(ctx context.Context, article domain.ArticleKey, rank int) error {
	err := s.updateArticle(ctx, article, `rank = $3`, rank)
	if errors.Is(err, domain.ErrArticleNotFound) {
		return nil
	}
	return err
}

func (s *Store) ClearRanks(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `UPDATE articles SET rank = 0 WHERE rank <> 0`); err != nil {
		return fmt.Errorf("failed to clear ranks: %w", err)
	}
	return nil
}

// ListArticlesForClassing pages articles with a pallet size in rank order,
// unranked ones last.
func (s *Store) ListArticlesForClassing(ctx context.Context, limit, offset int) ([]domain.ArticleKey, error) {
	if limit <= 0 {
		return nil, nil
	}
	articles, err := collectArticles(s.pool.Query(ctx, `
		SELECT article_number, variant
		FROM articles
		WHERE pallet_size <> 0
		ORDER BY rank = 0, rank, article_number, variant
		LIMIT $1 OFFSET $2
	`, limit, offset))
	if err != nil {
		return nil, fmt.Errorf("failed to page articles: %w", err)
	}
	return articles, nil
}

func (s *Store) SetClass(ctx context.Context, article domain.ArticleKey, class int) error {
	return s.updateArticle(ctx, article, `class = $3`, class)
}

func (s *Store) ClassOf(ctx context.Context, article domain.ArticleKey) (int, error) {
	class, err := scanOptionalInt(s.pool.QueryRow(ctx, `
		SELECT class FROM articles WHERE article_number = $1 AND variant = $2
	`, article.Number, article.Variant))
	if err != nil {
		return 0, fmt.Errorf("failed to query class of %s: %w", article, err)
	}
	return class, nil
}

func (s *Store) ClearClasses(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `UPDATE articles SET class = 0 WHERE class <> 0`); err != nil {
		return fmt.Errorf("failed to clear article classes: %w", err)
	}
	return nil
}

func (s *Store) updateArticle(ctx context.Context, article domain.ArticleKey, assignment string, value int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE articles SET `+assignment+`
		WHERE article_number = $1 AND variant = $2
	`, article.Number, article.Variant, value)
	if err != nil {
		return fmt.Errorf("failed to update article %s: %w", article, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrArticleNotFound, article)
	}
	return nil
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}
