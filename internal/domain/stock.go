package domain

import "time"

// Holding is the quantity of one article stored at one slot
type Holding struct {
	SlotID   int        `json:"slotId"`
	Article  ArticleKey `json:"article"`
	Quantity int        `json:"quantity"`
}

// At returns a copy of the holding relocated to slotID
func (h Holding) At(slotID int) Holding {
	h.SlotID = slotID
	return h
}

// Reservation earmarks part of a holding for an order line
type Reservation struct {
	SlotID   int        `json:"slotId"`
	Article  ArticleKey `json:"article"`
	Quantity int        `json:"quantity"`
}

// Movement is a historical stock booking between two slots.
// An origin that is not a known slot denotes an external arrival.
type Movement struct {
	Date              time.Time  `json:"date"`
	OriginSlotID      int        `json:"originSlotId"`
	DestinationSlotID int        `json:"destinationSlotId"`
	Article           ArticleKey `json:"article"`
	Quantity          int        `json:"quantity"`
}

// IncomingGoods is one day's external arrival for a slot and article
type IncomingGoods struct {
	SlotID   int        `json:"slotId"`
	Article  ArticleKey `json:"article"`
	Quantity int        `json:"quantity"`
	// Rank is the article's current sales rank, 0 when unranked
	Rank int `json:"rank"`
}

// Holding converts the arrival into a holding at its current destination
func (g IncomingGoods) Holding() Holding {
	return Holding{SlotID: g.SlotID, Article: g.Article, Quantity: g.Quantity}
}

// SalesFigure is a historical sale quantity
type SalesFigure struct {
	Date     time.Time  `json:"date"`
	Article  ArticleKey `json:"article"`
	Quantity int        `json:"quantity"`
}

// SalesWindow selects sales figures by inclusive month and year ranges
type SalesWindow struct {
	FromMonth time.Month `json:"fromMonth" yaml:"fromMonth"`
	ToMonth   time.Month `json:"toMonth" yaml:"toMonth"`
	FromYear  int        `json:"fromYear" yaml:"fromYear"`
	ToYear    int        `json:"toYear" yaml:"toYear"`
}

// Contains reports whether t falls into the window
func (w SalesWindow) Contains(t time.Time) bool {
	return t.Month() >= w.FromMonth && t.Month() <= w.ToMonth &&
		t.Year() >= w.FromYear && t.Year() <= w.ToYear
}
