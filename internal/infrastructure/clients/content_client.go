package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/metrics"
	"github.com/wms-platform/slotting-simulator/pkg/resilience"
)

// DecimalValue is one value of a content attribute
type DecimalValue struct {
	Value decimal.Decimal `json:"value"`
}

// ContentAttributes holds the package dimensions published by the content API
type ContentAttributes struct {
	SingleItemPackageLength []DecimalValue `json:"singleItemPackageLength"`
	SingleItemPackageWidth  []DecimalValue `json:"singleItemPackageWidth"`
	SingleItemPackageHeight []DecimalValue `json:"singleItemPackageHeight"`
}

// ProductDTO is one product of the content API response
type ProductDTO struct {
	Ean        string             `json:"ean"`
	Attributes *ContentAttributes `json:"attributes"`
}

// ContentClient looks up package dimensions in the product content API.
// Implements domain.AttributeLookup.
type ContentClient struct {
	baseURL        string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	retry          *resilience.RetryConfig
	metrics        *metrics.Metrics
}

var _ domain.AttributeLookup = (*ContentClient)(nil)

// NewContentClient creates a new ContentClient. m may be nil.
func NewContentClient(baseURL string, cb *resilience.CircuitBreaker, m *metrics.Metrics) *ContentClient {
	return &ContentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		circuitBreaker: cb,
		metrics:        m,
	}
}

// WithRetry retries failed lookups with config. An open circuit is never retried.
func (c *ContentClient) WithRetry(config *resilience.RetryConfig) *ContentClient {
	retry := *config
	retry.Retryable = func(err error) bool { return !errors.Is(err, resilience.ErrCircuitOpen) }
	c.retry = &retry
	return c
}

// LookupAttributes fetches the dimensions of all articles in one request
func (c *ContentClient) LookupAttributes(ctx context.Context, articles []domain.ArticleKey) ([]domain.ArticleAttributes, error) {
	if len(articles) == 0 {
		return []domain.ArticleAttributes{}, nil
	}

	call := func(ctx context.Context) ([]ProductDTO, error) {
		return resilience.ExecuteWithResult(ctx, c.circuitBreaker, func(ctx context.Context) ([]ProductDTO, error) {
			return c.fetchProducts(ctx, articles)
		})
	}
	var products []ProductDTO
	var err error
	if c.retry != nil {
		products, err = resilience.RetryWithResult(ctx, c.retry, call)
	} else {
		products, err = call(ctx)
	}
	c.metrics.RecordContentAPIRequest(err == nil)
	if err != nil {
		return nil, err
	}

	result := make([]domain.ArticleAttributes, 0, len(products))
	for _, product := range products {
		attributes, err := product.toAttributes()
		if err != nil {
			return nil, err
		}
		result = append(result, attributes)
	}
	return result, nil
}

func (c *ContentClient) fetchProducts(ctx context.Context, articles []domain.ArticleKey) ([]ProductDTO, error) {
	ids := make([]string, len(articles))
	for i, article := range articles {
		ids[i] = article.String()
	}

	query := url.Values{}
	query.Set("articleNumbers", strings.Join(ids, ","))
	query.Set("page", "1")
	query.Set("productsPerPage", strconv.Itoa(len(ids)))
	endpoint := fmt.Sprintf("%s/products?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("content api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var products []ProductDTO
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("failed to decode products response: %w", err)
	}
	return products, nil
}

func (p ProductDTO) toAttributes() (domain.ArticleAttributes, error) {
	if p.Attributes == nil {
		return domain.ArticleAttributes{}, fmt.Errorf("content api product %s has no attributes", p.Ean)
	}
	length, okLength := first(p.Attributes.SingleItemPackageLength)
	width, okWidth := first(p.Attributes.SingleItemPackageWidth)
	height, okHeight := first(p.Attributes.SingleItemPackageHeight)
	if !okLength || !okWidth || !okHeight {
		return domain.ArticleAttributes{}, fmt.Errorf("content api product %s lacks package dimensions", p.Ean)
	}
	return domain.NewArticleAttributes(length, width, height), nil
}

func first(values []DecimalValue) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	return values[0].Value, true
}
