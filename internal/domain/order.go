package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLine is an outstanding order position in the day's pick pool
type OrderLine struct {
	SlotID       int             `json:"slotId"`
	SlotCode     string          `json:"slotCode,omitempty"`
	Quantity     int             `json:"quantity"`
	PositionID   int             `json:"positionId"`
	OrderID      int             `json:"orderId"`
	Article      ArticleKey      `json:"article"`
	PicklistID   int             `json:"picklistId"`
	PickTime     time.Time       `json:"pickTime"`
	DueTime      time.Time       `json:"dueTime"`
	FootprintMax decimal.Decimal `json:"footprintMax"`
}

// Reservation returns the reservation the line places on its slot
func (o OrderLine) Reservation() Reservation {
	return Reservation{SlotID: o.SlotID, Article: o.Article, Quantity: o.Quantity}
}

// Area is the cart area consumed by the line
func (o OrderLine) Area() decimal.Decimal {
	return o.FootprintMax.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// Entry converts the line into a pick list entry
func (o OrderLine) Entry() PicklistEntry {
	return PicklistEntry{
		SlotID:     o.SlotID,
		SlotCode:   o.SlotCode,
		Quantity:   o.Quantity,
		Article:    o.Article,
		PicklistID: o.PicklistID,
		PickTime:   o.PickTime,
	}
}

// PicklistEntry is an order line bound to a concrete pick slot
type PicklistEntry struct {
	SlotID     int        `json:"slotId"`
	SlotCode   string     `json:"slotCode"`
	Quantity   int        `json:"quantity"`
	Article    ArticleKey `json:"article"`
	PicklistID int        `json:"picklistId,omitempty"`
	PickTime   time.Time  `json:"pickTime,omitempty"`
}

// Holding returns the stock the entry consumes
func (e PicklistEntry) Holding() Holding {
	return Holding{SlotID: e.SlotID, Article: e.Article, Quantity: e.Quantity}
}

// Picklist is a capacity-bounded group of entries walked in one trip
type Picklist struct {
	Entries []PicklistEntry `json:"entries"`
	Length  float64         `json:"length"`
}

// HistoricPicklist is a pick list recorded by the real warehouse
type HistoricPicklist struct {
	PicklistID int           `json:"picklistId"`
	Duration   time.Duration `json:"duration"`
}

// PickPool holds the order lines outstanding for one simulated day.
// It is owned by a single day's run and is not safe for concurrent use.
type PickPool struct {
	Date  time.Time
	Lines []OrderLine
}

// Len returns the number of outstanding lines
func (p *PickPool) Len() int {
	return len(p.Lines)
}

// RemoveAt drops the line at index i, keeping the order of the rest
func (p *PickPool) RemoveAt(i int) {
	p.Lines = append(p.Lines[:i], p.Lines[i+1:]...)
}
