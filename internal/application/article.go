package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

// ArticleService answers article dimension queries and maintains pallet sizes
type ArticleService struct {
	store    domain.WarehouseStore
	content  domain.AttributeLookup
	settings *config.Settings
	logger   *logging.Logger
}

// NewArticleService creates a new ArticleService. content may be nil when
// no product content API is configured.
func NewArticleService(
	store domain.WarehouseStore,
	content domain.AttributeLookup,
	settings *config.Settings,
	logger *logging.Logger,
) *ArticleService {
	return &ArticleService{
		store:    store,
		content:  content,
		settings: settings,
		logger:   logger.WithComponent("articles"),
	}
}

// GetAttributes returns the dimensions of the given "number_variant"
// identifiers, from the article master or from the product content API.
func (s *ArticleService) GetAttributes(ctx context.Context, ids []string, useContentAPI bool) ([]domain.ArticleAttributes, error) {
	articles := make([]domain.ArticleKey, 0, len(ids))
	for _, id := range ids {
		article, err := domain.ParseArticleKey(id)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	if useContentAPI {
		if s.content == nil {
			return nil, domain.ErrContentAPIDisabled
		}
		attributes, err := s.content.LookupAttributes(ctx, articles)
		if err != nil {
			return nil, fmt.Errorf("failed to look up article attributes: %w", err)
		}
		return attributes, nil
	}

	result := make([]domain.ArticleAttributes, 0, len(articles))
	for _, article := range articles {
		attributes, err := s.store.Attributes(ctx, article)
		if err != nil {
			return nil, fmt.Errorf("failed to read attributes of %s: %w", article, err)
		}
		if attributes == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrArticleNotFound, article)
		}
		result = append(result, *attributes)
	}
	return result, nil
}

// CalculatePalletSizes sets every article's pallet size to the largest
// quantity it ever arrived with.
func (s *ArticleService) CalculatePalletSizes(ctx context.Context) error {
	articles, err := s.store.ListArticles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	err = forEachChunk(ctx, articles, s.settings.ChunkSize, func(ctx context.Context, article domain.ArticleKey) error {
		size, err := s.store.MaxArrivalQuantity(ctx, article)
		if err != nil {
			return fmt.Errorf("failed to read arrivals of %s: %w", article, err)
		}
		if err := s.store.SetPalletSize(ctx, article, size); err != nil {
			return fmt.Errorf("failed to set pallet size of %s: %w", article, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Pallet sizes calculated", "articles", len(articles))
	return nil
}
