package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
)

func TestFixtureCopies(t *testing.T) {
	fixture := &memory.Fixture{
		Slots: []memory.SlotFixture{
			{ID: 1, Code: "GRO-48;12;03;1", Zone: "ground", LaidOut: true, Distance: 4},
		},
		Articles: []memory.ArticleFixture{
			{Number: 100, Variant: 1, Length: 30, Width: 20, Height: 10, PalletSize: 20},
		},
		Holdings: []memory.HoldingFixture{
			{SlotID: 1, Number: 100, Variant: 1, Quantity: 3},
			{SlotID: 1, Number: 100, Variant: 1, Quantity: 5},
			{SlotID: 1, Number: 200, Variant: 1, Quantity: 0},
		},
		Movements: []memory.MovementFixture{
			{Date: "2022-11-07T10:00:00Z", Origin: 0, Destination: 1, Number: 100, Variant: 1, Quantity: 12},
		},
		Orders: []memory.OrderFixture{
			{SlotID: 1, Number: 100, Variant: 1, Quantity: 4, PicklistID: 9, PickTime: "2022-11-07"},
		},
	}

	copies, err := fixtureCopies(fixture)
	require.NoError(t, err)

	byTable := make(map[string]tableCopy)
	for _, c := range copies {
		byTable[c.table] = c
		for _, row := range c.rows {
			assert.Len(t, row, len(c.columns), c.table)
		}
	}

	slot := byTable["slots"].rows[0]
	assert.Equal(t, "48", slot[4])
	assert.Equal(t, 12, slot[8])
	assert.Equal(t, 3, slot[9])

	require.Len(t, byTable["holdings"].rows, 1)
	assert.Equal(t, []any{1, 100, 1, 8}, byTable["holdings"].rows[0])

	require.Len(t, byTable["movements"].rows, 1)
	assert.Equal(t, time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC), byTable["movements"].rows[0][0])
	assert.Equal(t, time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC), byTable["pick_pool"].rows[0][7])
	assert.Empty(t, byTable["sales_figures"].rows)
}

func TestFixtureCopies_Errors(t *testing.T) {
	_, err := fixtureCopies(&memory.Fixture{
		Slots: []memory.SlotFixture{{ID: 1, Code: "GRO-48;12;03;1", Zone: "roof"}},
	})
	assert.ErrorContains(t, err, "invalid zone")

	_, err = fixtureCopies(&memory.Fixture{
		Sales: []memory.SalesFixture{{Date: "yesterday", Number: 1, Variant: 1, Quantity: 1}},
	})
	assert.ErrorContains(t, err, "invalid fixture date")
}

func TestCodeNumber(t *testing.T) {
	assert.Equal(t, 12, codeNumber("12"))
	assert.Equal(t, 3, codeNumber("03"))
	assert.Equal(t, 0, codeNumber("A1"))
	assert.Equal(t, 0, codeNumber(""))
}
