package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// CartSettings describes the physical pick cart
type CartSettings struct {
	Length        int `yaml:"length"`
	Width         int `yaml:"width"`
	Areas         int `yaml:"areas"`
	ClusterFactor int `yaml:"clusterFactor"`
}

// Capacity is the footprint area a single pick list may occupy
func (c CartSettings) Capacity() decimal.Decimal {
	return decimal.NewFromInt(int64(c.ClusterFactor * c.Length * c.Width * c.Areas))
}

// PickSpeedSettings bounds the historic pick lists used for speed calculation
type PickSpeedSettings struct {
	From        time.Time     `yaml:"from"`
	MaxDuration time.Duration `yaml:"maxDuration"`
}

// SaleFigureSettings configures the top seller comparison
type SaleFigureSettings struct {
	History        domain.SalesWindow `yaml:"history"`
	Actual         domain.SalesWindow `yaml:"actual"`
	Limit          int                `yaml:"limit"`
	MissingPenalty int                `yaml:"missingPenalty"`
}

// Settings holds the tunables of the simulation engine
type Settings struct {
	LowStockThreshold   int                `yaml:"lowStockThreshold"`
	FillRatioGroundZone float64            `yaml:"fillRatioGroundZone"`
	ChunkSize           int                `yaml:"chunkSize"`
	Cart                CartSettings       `yaml:"cart"`
	Classes             map[int][]float64  `yaml:"classes"`
	DepotNode           int                `yaml:"depotNode"`
	DistanceScale       float64            `yaml:"distanceScale"`
	LegacyDepotSlotIDs  []int              `yaml:"legacyDepotSlotIDs"`
	MaxRecoveryAttempts int                `yaml:"maxRecoveryAttempts"`
	PickSpeed           PickSpeedSettings  `yaml:"pickSpeedWindow"`
	SaleFigures         SaleFigureSettings `yaml:"saleFigureWindow"`
}

// DefaultSettings returns the settings used when no file is configured
func DefaultSettings() *Settings {
	return &Settings{
		LowStockThreshold:   5,
		FillRatioGroundZone: 0.9,
		ChunkSize:           100,
		Cart: CartSettings{
			Length:        60,
			Width:         40,
			Areas:         6,
			ClusterFactor: 1,
		},
		Classes: map[int][]float64{
			2: {0.2},
			3: {0.2, 0.5},
		},
		DepotNode:           2082,
		DistanceScale:       100,
		LegacyDepotSlotIDs:  []int{114384, 114378},
		MaxRecoveryAttempts: 2,
		PickSpeed: PickSpeedSettings{
			From:        time.Date(2022, time.October, 1, 0, 0, 0, 0, time.UTC),
			MaxDuration: 8 * time.Hour,
		},
		SaleFigures: SaleFigureSettings{
			History:        domain.SalesWindow{FromMonth: time.October, ToMonth: time.December, FromYear: 0, ToYear: 2021},
			Actual:         domain.SalesWindow{FromMonth: time.October, ToMonth: time.December, FromYear: 2022, ToYear: 2022},
			Limit:          1000,
			MissingPenalty: 1001,
		},
	}
}

// Load reads settings from a YAML file on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return Parse(data, settings)
}

// Parse decodes YAML settings into base and validates the result
func Parse(data []byte, base *Settings) (*Settings, error) {
	if base == nil {
		base = DefaultSettings()
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

// Validate checks the settings for values the engine cannot work with
func (s *Settings) Validate() error {
	if s.ChunkSize < 1 {
		return fmt.Errorf("chunkSize must be positive, got %d", s.ChunkSize)
	}
	if s.DistanceScale <= 0 {
		return fmt.Errorf("distanceScale must be positive, got %v", s.DistanceScale)
	}
	if s.MaxRecoveryAttempts < 1 {
		return fmt.Errorf("maxRecoveryAttempts must be positive, got %d", s.MaxRecoveryAttempts)
	}
	for count, thresholds := range s.Classes {
		if err := validateThresholds(count, thresholds); err != nil {
			return err
		}
	}
	return nil
}

// ClassThresholds returns the fractional upper bounds for a class count
func (s *Settings) ClassThresholds(numberOfClasses int) ([]float64, error) {
	thresholds, ok := s.Classes[numberOfClasses]
	if !ok {
		return nil, fmt.Errorf("%w: no thresholds for %d classes (configured: %v)",
			domain.ErrInvalidClassTable, numberOfClasses, s.classCounts())
	}
	return thresholds, nil
}

// IsLegacyDepotSlot reports whether the slot id resolves to the depot
func (s *Settings) IsLegacyDepotSlot(slotID int) bool {
	for _, id := range s.LegacyDepotSlotIDs {
		if id == slotID {
			return true
		}
	}
	return false
}

func (s *Settings) classCounts() []int {
	counts := make([]int, 0, len(s.Classes))
	for count := range s.Classes {
		counts = append(counts, count)
	}
	sort.Ints(counts)
	return counts
}

func validateThresholds(count int, thresholds []float64) error {
	if count < 1 {
		return fmt.Errorf("%w: class count %d", domain.ErrInvalidClassTable, count)
	}
	if len(thresholds) != count-1 {
		return fmt.Errorf("%w: %d classes need %d thresholds, got %d", domain.ErrInvalidClassTable, count, count-1, len(thresholds))
	}
	previous := 0.0
	for _, threshold := range thresholds {
		if threshold <= previous || threshold > 1 {
			return fmt.Errorf("%w: thresholds must increase within (0, 1]: %v", domain.ErrInvalidClassTable, thresholds)
		}
		previous = threshold
	}
	return nil
}
