package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/config"
	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
	"github.com/wms-platform/slotting-simulator/pkg/logging"
)

const legacySlotID = 999

var (
	articleX = domain.ArticleKey{Number: 100, Variant: 1}
	articleY = domain.ArticleKey{Number: 200, Variant: 1}
	testDay  = time.Date(2022, time.November, 7, 0, 0, 0, 0, time.UTC)
)

// slotCode returns the code of the slot placed on matrix node
func slotCode(node int) string {
	return fmt.Sprintf("GRO-01;01;%02d;1", node)
}

// lineOracle places nodes 0..n on a line 10 cost units apart, node 0 being the depot
func lineOracle(t *testing.T, n int) *DistanceOracle {
	t.Helper()
	matrix := make([][]int64, n+1)
	for i := range matrix {
		matrix[i] = make([]int64, n+1)
		for j := range matrix[i] {
			matrix[i][j] = int64(absDiff(i, j) * 10)
		}
	}
	index := make(map[string]int, n)
	for node := 1; node <= n; node++ {
		index[domain.BaseCode(slotCode(node))] = node
	}
	oracle, err := NewDistanceOracle(matrix, index, OracleConfig{DepotNode: 0, Scale: 10, LegacySlotIDs: []int{legacySlotID}})
	require.NoError(t, err)
	return oracle
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func testSettings() *config.Settings {
	settings := config.DefaultSettings()
	settings.DepotNode = 0
	settings.DistanceScale = 10
	settings.LegacyDepotSlotIDs = []int{legacySlotID}
	settings.ChunkSize = 2
	settings.Cart = config.CartSettings{Length: 10, Width: 10, Areas: 1, ClusterFactor: 1}
	return settings
}

func newTestEngine(t *testing.T, store *memory.Store, nodes int) *Engine {
	t.Helper()
	return NewEngine(store, lineOracle(t, nodes), testSettings(), nil, logging.Discard())
}

// addSlot registers slot id on node id
func addSlot(store *memory.Store, id int, zone domain.Zone) {
	store.AddSlot(domain.NewSlot(id, slotCode(id), zone, true, float64(id)))
}

// addArticle registers an article whose largest face is footprint
func addArticle(store *memory.Store, article domain.ArticleKey, footprint int64, palletSize int) {
	attributes := domain.NewArticleAttributes(decimal.NewFromInt(footprint), decimal.NewFromInt(1), decimal.NewFromInt(1))
	store.AddArticle(article, attributes, palletSize)
}

func putStock(t *testing.T, s *memory.Store, slotID int, article domain.ArticleKey, quantity int) {
	t.Helper()
	require.NoError(t, s.Store(context.Background(), domain.Holding{SlotID: slotID, Article: article, Quantity: quantity}))
}

func heldAt(t *testing.T, s *memory.Store, slotID int, article domain.ArticleKey) int {
	t.Helper()
	holdings, err := s.Holdings(context.Background(), slotID)
	require.NoError(t, err)
	for _, holding := range holdings {
		if holding.Article == article {
			return holding.Quantity
		}
	}
	return 0
}

func orderLine(article domain.ArticleKey, quantity, picklistID int, pickTime time.Time) domain.OrderLine {
	return domain.OrderLine{
		Article:    article,
		Quantity:   quantity,
		PicklistID: picklistID,
		OrderID:    picklistID,
		PickTime:   pickTime,
		DueTime:    pickTime,
	}
}
