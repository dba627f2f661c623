package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	for _, strategy := range Strategies {
		parsed, err := ParseStrategy(string(strategy))
		require.NoError(t, err)
		assert.Equal(t, strategy, parsed)
	}

	parsed, err := ParseStrategy("distancebysalesrank")
	require.NoError(t, err)
	assert.Equal(t, StrategyDistanceBySalesRank, parsed)

	_, err = ParseStrategy("Fastest")
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestSimulationRequest_Validate(t *testing.T) {
	start := time.Date(2022, time.October, 4, 0, 0, 0, 0, time.UTC)

	req := SimulationRequest{Strategy: StrategyClasses, StartDate: start, NumberOfDays: 3}
	require.NoError(t, req.Validate())
	assert.Equal(t, 2, req.NumberOfClasses)
	assert.Equal(t, start.AddDate(0, 0, 2), req.DayDate(2))

	bad := SimulationRequest{Strategy: "Nope", StartDate: start, NumberOfDays: 1}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidStrategy)

	noDays := SimulationRequest{Strategy: StrategyCurrent, StartDate: start}
	assert.ErrorIs(t, noDays.Validate(), ErrInvalidRequest)

	noDate := SimulationRequest{Strategy: StrategyCurrent, NumberOfDays: 1}
	assert.ErrorIs(t, noDate.Validate(), ErrInvalidRequest)
}

func TestRunState_NeedsSalesRankRefresh(t *testing.T) {
	state := NewRunState()
	jan := time.Date(2023, time.January, 3, 0, 0, 0, 0, time.UTC)

	assert.True(t, state.NeedsSalesRankRefresh(jan), "fresh run always ranks, even in January")

	state.MarkSalesRanked(jan)
	assert.False(t, state.NeedsSalesRankRefresh(jan.AddDate(0, 0, 20)))
	assert.True(t, state.NeedsSalesRankRefresh(jan.AddDate(0, 1, 0)))
	assert.True(t, state.NeedsSalesRankRefresh(jan.AddDate(1, 0, 0)), "same month of another year")
}

func TestMultipleRearrangementResult_Add(t *testing.T) {
	var total MultipleRearrangementResult
	total.HighToGround.Record(2.5)
	total.Add(MultipleRearrangementResult{
		HighToGround:   RearrangementResult{Count: 1, Length: 1.5},
		GroundToGround: RearrangementResult{Count: 3, Length: 6},
	})

	assert.Equal(t, 2, total.HighToGround.Count)
	assert.InDelta(t, 4.0, total.HighToGround.Length, 1e-9)
	assert.Equal(t, RearrangementResult{Count: 5, Length: 10}, total.Total())
}

func TestPickPool_RemoveAt(t *testing.T) {
	pool := &PickPool{Lines: []OrderLine{{OrderID: 1}, {OrderID: 2}, {OrderID: 3}}}
	pool.RemoveAt(1)

	require.Equal(t, 2, pool.Len())
	assert.Equal(t, 1, pool.Lines[0].OrderID)
	assert.Equal(t, 3, pool.Lines[1].OrderID)
}
