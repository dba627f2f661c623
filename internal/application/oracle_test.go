package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func TestNewDistanceOracle_Validation(t *testing.T) {
	tests := []struct {
		name   string
		matrix [][]int64
		index  map[string]int
		cfg    OracleConfig
	}{
		{
			name:   "Ragged matrix",
			matrix: [][]int64{{0, 1}, {1}},
			cfg:    OracleConfig{DepotNode: 0, Scale: 1},
		},
		{
			name:   "Depot outside matrix",
			matrix: [][]int64{{0}},
			cfg:    OracleConfig{DepotNode: 3, Scale: 1},
		},
		{
			name:   "Zero scale",
			matrix: [][]int64{{0}},
			cfg:    OracleConfig{DepotNode: 0},
		},
		{
			name:   "Index outside matrix",
			matrix: [][]int64{{0}},
			index:  map[string]int{"GRO-01;01;01": 4},
			cfg:    OracleConfig{DepotNode: 0, Scale: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDistanceOracle(tt.matrix, tt.index, tt.cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidDistanceData)
		})
	}
}

func TestDistanceOracle_Distance(t *testing.T) {
	oracle := lineOracle(t, 4)

	distance, err := oracle.Distance(slotCode(1), slotCode(4))
	require.NoError(t, err)
	assert.Equal(t, 3.0, distance)

	_, err = oracle.Distance(slotCode(1), "GRO-99;99;99;1")
	assert.ErrorIs(t, err, domain.ErrUnknownSlotCode)
}

func TestDistanceOracle_RouteLength(t *testing.T) {
	oracle := lineOracle(t, 4)

	t.Run("Single stop is a round trip", func(t *testing.T) {
		length, err := oracle.RouteLength([]domain.PicklistEntry{{SlotID: 3, SlotCode: slotCode(3)}})
		require.NoError(t, err)

		oneWay, err := oracle.Distance(slotCode(3), slotCode(1))
		require.NoError(t, err)
		assert.Equal(t, 2.0, oneWay)
		assert.Equal(t, 6.0, length)
	})

	t.Run("Empty list has zero length", func(t *testing.T) {
		length, err := oracle.RouteLength(nil)
		require.NoError(t, err)
		assert.Zero(t, length)
	})

	t.Run("Stops on a line", func(t *testing.T) {
		length, err := oracle.RouteLengthForCodes([]string{slotCode(4), slotCode(1), slotCode(2)})
		require.NoError(t, err)
		assert.Equal(t, 8.0, length)
	})

	t.Run("Legacy slot resolves to depot", func(t *testing.T) {
		length, err := oracle.RouteLength([]domain.PicklistEntry{{SlotID: legacySlotID, SlotCode: "OLD-1"}})
		require.NoError(t, err)
		assert.Zero(t, length)
	})

	t.Run("Unknown slot fails", func(t *testing.T) {
		_, err := oracle.RouteLength([]domain.PicklistEntry{{SlotID: 5, SlotCode: "GRO-99;99;99;1"}})
		assert.ErrorIs(t, err, domain.ErrUnknownSlotCode)
	})
}

func TestDistanceOracle_NearestFromNode(t *testing.T) {
	oracle := lineOracle(t, 4)

	codes := oracle.NearestFromNode(2)

	expected := []string{
		domain.BaseCode(slotCode(2)),
		domain.BaseCode(slotCode(1)),
		domain.BaseCode(slotCode(3)),
		domain.BaseCode(slotCode(4)),
	}
	assert.Equal(t, expected, codes)
}

func TestDistanceOracle_NearestSlotsByDistance(t *testing.T) {
	oracle := lineOracle(t, 4)

	codes, err := oracle.NearestSlotsByDistance(slotCode(4))
	require.NoError(t, err)
	assert.Equal(t, []string{
		domain.BaseCode(slotCode(4)),
		domain.BaseCode(slotCode(3)),
		domain.BaseCode(slotCode(2)),
		domain.BaseCode(slotCode(1)),
	}, codes)

	_, err = oracle.NearestSlotsByDistance("XXX-99;99;99")
	assert.ErrorIs(t, err, domain.ErrUnknownSlotCode)
}
