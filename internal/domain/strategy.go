package domain

import (
	"fmt"
	"strings"
)

// Strategy selects how incoming goods are assigned to slots
type Strategy string

const (
	StrategyCurrent                       Strategy = "Current"
	StrategyRandom                        Strategy = "Random"
	StrategyRandomWithPreferredGroundZone Strategy = "RandomWithPreferredGroundZone"
	StrategyPreferredLowDistance          Strategy = "PreferredLowDistance"
	StrategyDistanceBySalesRank           Strategy = "DistanceBySalesRank"
	StrategyClasses                       Strategy = "Classes"
)

// Strategies lists every supported slotting strategy
var Strategies = []Strategy{
	StrategyCurrent,
	StrategyRandom,
	StrategyRandomWithPreferredGroundZone,
	StrategyPreferredLowDistance,
	StrategyDistanceBySalesRank,
	StrategyClasses,
}

// IsValid checks if the strategy is known
func (s Strategy) IsValid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStrategy resolves a strategy name case-insensitively
func ParseStrategy(name string) (Strategy, error) {
	for _, known := range Strategies {
		if strings.EqualFold(string(known), strings.TrimSpace(name)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
}
