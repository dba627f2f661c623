package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func TestLoadFixture(t *testing.T) {
	ctx := context.Background()
	fixture, err := LoadFixture(filepath.Join("testdata", "warehouse.yaml"))
	require.NoError(t, err)

	store, err := NewStoreFromFixture(fixture)
	require.NoError(t, err)

	ids, err := store.ListSlotIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)

	slot, err := store.GetSlotByCode(ctx, "GRO-48;12;02;1")
	require.NoError(t, err)
	assert.Equal(t, 2, slot.ID)
	assert.Equal(t, "48", slot.Unit)
	assert.Equal(t, "12", slot.Aisle)

	attributes, err := store.Attributes(ctx, domain.ArticleKey{Number: 100, Variant: 1})
	require.NoError(t, err)
	require.NotNil(t, attributes)
	assert.True(t, attributes.FootprintMax.Equal(decimal.NewFromInt(600)))

	holdings, err := store.Holdings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, 8, holdings[0].Quantity)

	lines, err := store.SelectPickPool(ctx, time.Date(2022, time.November, 7, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, lines[0].PickTime, lines[0].DueTime)
}

func TestLoadFixture_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warehouse.json")
	content := `{"slots": [{"id": 7, "code": "GRO-01;01;01;1", "zone": "ground", "laidOut": true, "distance": 3}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	fixture, err := LoadFixture(path)
	require.NoError(t, err)
	store, err := NewStoreFromFixture(fixture)
	require.NoError(t, err)

	slot, err := store.GetSlot(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneGround, slot.Zone)
	assert.Equal(t, 3.0, slot.Distance)
}

func TestNewStoreFromFixture_InvalidDate(t *testing.T) {
	fixture := &Fixture{Sales: []SalesFixture{{Date: "07.11.2022", Number: 1}}}

	_, err := NewStoreFromFixture(fixture)

	assert.Error(t, err)
}

func TestLoadFixture_MissingFile(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}

func TestLoadFixture_EmbeddedLayout(t *testing.T) {
	fixture, err := LoadFixture(filepath.Join("testdata", "warehouse.yaml"))
	require.NoError(t, err)

	require.NotNil(t, fixture.Layout)
	assert.Len(t, fixture.Layout.Matrix, 4)
	assert.Equal(t, 2, fixture.Layout.Index["GRO-48;12;02"])
}
