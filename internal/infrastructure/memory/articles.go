package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// Attributes returns the dimensions of article, nil when unknown
func (s *Store) Attributes(ctx context.Context, article domain.ArticleKey) (*domain.ArticleAttributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.articles[article]
	if !ok || record.attributes == nil {
		return nil, nil
	}
	copied := *record.attributes
	return &copied, nil
}

func (s *Store) ListArticles(ctx context.Context) ([]domain.ArticleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.ArticleKey, 0, len(s.articles))
	for key := range s.articles {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return articleLess(keys[i], keys[j]) })
	return keys, nil
}

func (s *Store) SetPalletSize(ctx context.Context, article domain.ArticleKey, size int) error {
	return s.updateArticle(article, func(r *articleRecord) { r.palletSize = size })
}

// CountArticles counts articles with a pallet size
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, record := range s.articles {
		if record.palletSize != 0 {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountRankedArticles(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, record := range s.articles {
		if record.rank > 0 {
			count++
		}
	}
	return count, nil
}

// SetRank ranks a known article; unknown articles are ignored
func (s *Store) SetRank(ctx context.Context, article domain.ArticleKey, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.articles[article]; ok {
		record.rank = rank
	}
	return nil
}

func (s *Store) ClearRanks(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.articles {
		record.rank = 0
	}
	return nil
}

// ListArticlesForClassing pages through articles with a pallet size in rank
// order, unranked articles last.
func (s *Store) ListArticlesForClassing(ctx context.Context, limit, offset int) ([]domain.ArticleKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []domain.ArticleKey
	for key, record := range s.articles {
		if record.palletSize != 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := s.articles[keys[i]].rank, s.articles[keys[j]].rank
		if ri != rj {
			if ri == 0 || rj == 0 {
				return rj == 0
			}
			return ri < rj
		}
		return articleLess(keys[i], keys[j])
	})
	return window(keys, limit, offset), nil
}

func (s *Store) SetClass(ctx context.Context, article domain.ArticleKey, class int) error {
	return s.updateArticle(article, func(r *articleRecord) { r.class = class })
}

// ClassOf returns the class of article, 0 when unclassed
func (s *Store) ClassOf(ctx context.Context, article domain.ArticleKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if record, ok := s.articles[article]; ok {
		return record.class, nil
	}
	return 0, nil
}

func (s *Store) ClearClasses(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.articles {
		record.class = 0
	}
	return nil
}

func (s *Store) updateArticle(article domain.ArticleKey, update func(*articleRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.articles[article]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrArticleNotFound, article)
	}
	update(record)
	return nil
}
