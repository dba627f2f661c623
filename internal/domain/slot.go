package domain

import (
	"strings"
)

// Zone distinguishes pick-eligible front storage from bulk reserve storage
type Zone string

const (
	// ZoneAny is used as a query filter meaning "ground or high"
	ZoneAny    Zone = ""
	ZoneGround Zone = "ground"
	ZoneHigh   Zone = "high"
)

// IsValid checks if the zone names a concrete storage zone
func (z Zone) IsValid() bool {
	return z == ZoneGround || z == ZoneHigh
}

// Matches reports whether a slot zone satisfies the filter z
func (z Zone) Matches(other Zone) bool {
	return z == ZoneAny || z == other
}

// mixedSubPosition marks the sub-position reserved for mixed-article overflow
const mixedSubPosition = ";7"

// Slot is an addressable storage location
type Slot struct {
	ID        int     `json:"id" bson:"id"`
	Code      string  `json:"code" bson:"code"`
	Zone      Zone    `json:"zone" bson:"zone"`
	LaidOut   bool    `json:"laidOut" bson:"laidOut"`
	Unit      string  `json:"unit,omitempty" bson:"unit,omitempty"`
	Aisle     string  `json:"aisle,omitempty" bson:"aisle,omitempty"`
	Position  string  `json:"position,omitempty" bson:"position,omitempty"`
	Distance  float64 `json:"distance" bson:"distance"`
	FillRatio float64 `json:"fillRatio,omitempty" bson:"fillRatio,omitempty"`
	Class     int     `json:"class,omitempty" bson:"class,omitempty"`
}

// NewSlot builds a slot and derives unit, aisle and position from its code
func NewSlot(id int, code string, zone Zone, laidOut bool, distance float64) Slot {
	unit, aisle, position := ParseSlotCode(code)
	return Slot{
		ID:       id,
		Code:     code,
		Zone:     zone,
		LaidOut:  laidOut,
		Unit:     unit,
		Aisle:    aisle,
		Position: position,
		Distance: distance,
	}
}

// IsGroundZone reports whether the slot is pick-eligible
func (s Slot) IsGroundZone() bool {
	return s.Zone == ZoneGround
}

// BaseCode returns the slot code without its two character sub-position suffix
func (s Slot) BaseCode() string {
	return BaseCode(s.Code)
}

// IsMixedMarker reports whether the code addresses the mixed-article sub-position
func (s Slot) IsMixedMarker() bool {
	return strings.HasSuffix(s.Code, mixedSubPosition)
}

// BaseCode strips the two character sub-position suffix of a slot code.
// Codes shorter than the suffix are returned unchanged.
func BaseCode(code string) string {
	if len(code) < 2 {
		return code
	}
	return code[:len(code)-2]
}

// ParseSlotCode extracts unit, aisle and position from a code shaped like
// "GRO-48;12;3;1": the unit is the two characters after the site prefix, aisle
// and position are the second and third ';' separated fields.
func ParseSlotCode(code string) (unit, aisle, position string) {
	if len(code) >= 6 {
		unit = code[4:6]
	}
	parts := strings.Split(code, ";")
	if len(parts) > 1 {
		aisle = parts[1]
	}
	if len(parts) > 2 {
		position = parts[2]
	}
	return unit, aisle, position
}
