package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ArticleKey identifies an article variant
type ArticleKey struct {
	Number  int `json:"number" bson:"number"`
	Variant int `json:"variant" bson:"variant"`
}

// String renders the key as "number_variant"
func (a ArticleKey) String() string {
	return fmt.Sprintf("%d_%d", a.Number, a.Variant)
}

// ParseArticleKey parses an identifier of the form "number_variant"
func ParseArticleKey(s string) (ArticleKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "_")
	if len(parts) != 2 {
		return ArticleKey{}, fmt.Errorf("%w: %q", ErrInvalidArticleID, s)
	}
	number, err := strconv.Atoi(parts[0])
	if err != nil {
		return ArticleKey{}, fmt.Errorf("%w: %q", ErrInvalidArticleID, s)
	}
	variant, err := strconv.Atoi(parts[1])
	if err != nil {
		return ArticleKey{}, fmt.Errorf("%w: %q", ErrInvalidArticleID, s)
	}
	return ArticleKey{Number: number, Variant: variant}, nil
}

// ArticleAttributes holds the physical package dimensions of an article
type ArticleAttributes struct {
	Length       decimal.Decimal `json:"length"`
	Width        decimal.Decimal `json:"width"`
	Height       decimal.Decimal `json:"height"`
	FootprintMin decimal.Decimal `json:"footprintMin"`
	FootprintMax decimal.Decimal `json:"footprintMax"`
}

// NewArticleAttributes derives the smallest and largest face areas of a package
func NewArticleAttributes(length, width, height decimal.Decimal) ArticleAttributes {
	faces := []decimal.Decimal{
		length.Mul(width),
		length.Mul(height),
		width.Mul(height),
	}
	return ArticleAttributes{
		Length:       length,
		Width:        width,
		Height:       height,
		FootprintMin: decimal.Min(faces[0], faces[1:]...),
		FootprintMax: decimal.Max(faces[0], faces[1:]...),
	}
}

// Article is an entry of the article master
type Article struct {
	Key        ArticleKey        `json:"key"`
	Attributes ArticleAttributes `json:"attributes"`
	PalletSize int               `json:"palletSize"`
	Rank       int               `json:"rank,omitempty"`
	Class      int               `json:"class,omitempty"`
}
