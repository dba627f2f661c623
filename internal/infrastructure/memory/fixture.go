package memory

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// Fixture describes a warehouse to seed a Store with. YAML and JSON are both
// accepted; dates are "2006-01-02" or RFC 3339.
type Fixture struct {
	Slots     []SlotFixture     `yaml:"slots" json:"slots"`
	Articles  []ArticleFixture  `yaml:"articles" json:"articles"`
	Holdings  []HoldingFixture  `yaml:"holdings" json:"holdings"`
	Movements []MovementFixture `yaml:"movements" json:"movements"`
	Sales     []SalesFixture    `yaml:"sales" json:"sales"`
	Orders    []OrderFixture    `yaml:"orders" json:"orders"`

	// Layout optionally embeds the distance matrix so a fixture is self contained
	Layout *LayoutFixture `yaml:"layout,omitempty" json:"layout,omitempty"`
}

type LayoutFixture struct {
	Matrix [][]int64      `yaml:"matrix" json:"matrix"`
	Index  map[string]int `yaml:"index" json:"index"`
}

type SlotFixture struct {
	ID       int         `yaml:"id" json:"id"`
	Code     string      `yaml:"code" json:"code"`
	Zone     domain.Zone `yaml:"zone" json:"zone"`
	LaidOut  bool        `yaml:"laidOut" json:"laidOut"`
	Distance float64     `yaml:"distance" json:"distance"`
}

type ArticleFixture struct {
	Number     int     `yaml:"number" json:"number"`
	Variant    int     `yaml:"variant" json:"variant"`
	Length     float64 `yaml:"length" json:"length"`
	Width      float64 `yaml:"width" json:"width"`
	Height     float64 `yaml:"height" json:"height"`
	PalletSize int     `yaml:"palletSize" json:"palletSize"`
}

type HoldingFixture struct {
	SlotID   int `yaml:"slotId" json:"slotId"`
	Number   int `yaml:"number" json:"number"`
	Variant  int `yaml:"variant" json:"variant"`
	Quantity int `yaml:"quantity" json:"quantity"`
}

type MovementFixture struct {
	Date        string `yaml:"date" json:"date"`
	Origin      int    `yaml:"origin" json:"origin"`
	Destination int    `yaml:"destination" json:"destination"`
	Number      int    `yaml:"number" json:"number"`
	Variant     int    `yaml:"variant" json:"variant"`
	Quantity    int    `yaml:"quantity" json:"quantity"`
}

type SalesFixture struct {
	Date     string `yaml:"date" json:"date"`
	Number   int    `yaml:"number" json:"number"`
	Variant  int    `yaml:"variant" json:"variant"`
	Quantity int    `yaml:"quantity" json:"quantity"`
}

type OrderFixture struct {
	SlotID     int    `yaml:"slotId" json:"slotId"`
	Number     int    `yaml:"number" json:"number"`
	Variant    int    `yaml:"variant" json:"variant"`
	Quantity   int    `yaml:"quantity" json:"quantity"`
	PositionID int    `yaml:"positionId" json:"positionId"`
	OrderID    int    `yaml:"orderId" json:"orderId"`
	PicklistID int    `yaml:"picklistId" json:"picklistId"`
	PickTime   string `yaml:"pickTime" json:"pickTime"`
	DueTime    string `yaml:"dueTime" json:"dueTime"`
}

// LoadFixture reads a fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &fixture, nil
}

// Slot converts the fixture into a domain slot
func (f SlotFixture) Slot() domain.Slot {
	return domain.NewSlot(f.ID, f.Code, f.Zone, f.LaidOut, f.Distance)
}

func (f ArticleFixture) Key() domain.ArticleKey {
	return domain.ArticleKey{Number: f.Number, Variant: f.Variant}
}

// Attributes derives the package dimensions of the article
func (f ArticleFixture) Attributes() domain.ArticleAttributes {
	return domain.NewArticleAttributes(
		decimal.NewFromFloat(f.Length),
		decimal.NewFromFloat(f.Width),
		decimal.NewFromFloat(f.Height),
	)
}

func (f HoldingFixture) Holding() domain.Holding {
	return domain.Holding{
		SlotID:   f.SlotID,
		Article:  domain.ArticleKey{Number: f.Number, Variant: f.Variant},
		Quantity: f.Quantity,
	}
}

func (f MovementFixture) Movement() (domain.Movement, error) {
	date, err := parseDate(f.Date)
	if err != nil {
		return domain.Movement{}, err
	}
	return domain.Movement{
		Date:              date,
		OriginSlotID:      f.Origin,
		DestinationSlotID: f.Destination,
		Article:           domain.ArticleKey{Number: f.Number, Variant: f.Variant},
		Quantity:          f.Quantity,
	}, nil
}

func (f SalesFixture) SalesFigure() (domain.SalesFigure, error) {
	date, err := parseDate(f.Date)
	if err != nil {
		return domain.SalesFigure{}, err
	}
	return domain.SalesFigure{
		Date:     date,
		Article:  domain.ArticleKey{Number: f.Number, Variant: f.Variant},
		Quantity: f.Quantity,
	}, nil
}

// OrderLine converts the fixture into a pick pool line. A missing due time
// defaults to the pick time.
func (f OrderFixture) OrderLine() (domain.OrderLine, error) {
	pickTime, err := parseDate(f.PickTime)
	if err != nil {
		return domain.OrderLine{}, err
	}
	dueTime := pickTime
	if f.DueTime != "" {
		if dueTime, err = parseDate(f.DueTime); err != nil {
			return domain.OrderLine{}, err
		}
	}
	return domain.OrderLine{
		SlotID:     f.SlotID,
		Quantity:   f.Quantity,
		PositionID: f.PositionID,
		OrderID:    f.OrderID,
		Article:    domain.ArticleKey{Number: f.Number, Variant: f.Variant},
		PicklistID: f.PicklistID,
		PickTime:   pickTime,
		DueTime:    dueTime,
	}, nil
}

// NewStoreFromFixture creates a Store seeded with fixture
func NewStoreFromFixture(fixture *Fixture) (*Store, error) {
	store := NewStore()

	for _, slot := range fixture.Slots {
		store.AddSlot(slot.Slot())
	}
	for _, article := range fixture.Articles {
		store.AddArticle(article.Key(), article.Attributes(), article.PalletSize)
	}
	for _, holding := range fixture.Holdings {
		h := holding.Holding()
		addQuantity(store.holdings, h.SlotID, h.Article, h.Quantity)
	}
	for _, movement := range fixture.Movements {
		m, err := movement.Movement()
		if err != nil {
			return nil, err
		}
		store.AddMovement(m)
	}
	for _, sale := range fixture.Sales {
		figure, err := sale.SalesFigure()
		if err != nil {
			return nil, err
		}
		store.AddSalesFigure(figure)
	}
	for _, order := range fixture.Orders {
		line, err := order.OrderLine()
		if err != nil {
			return nil, err
		}
		store.AddOrderLine(line)
	}
	return store, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid fixture date %q: %w", value, err)
	}
	return t, nil
}
