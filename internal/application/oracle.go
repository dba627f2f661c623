package application

import (
	"fmt"
	"math"
	"sort"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// OracleConfig configures route scoring on a distance matrix
type OracleConfig struct {
	// DepotNode is the matrix node every route starts and ends at
	DepotNode int
	// Scale converts matrix cost units into distance units
	Scale float64
	// LegacySlotIDs resolve to the depot when their code is unknown
	LegacySlotIDs []int
}

// DistanceOracle answers distance and route questions over a precomputed
// travel cost matrix. It is immutable after construction and safe for
// concurrent use.
type DistanceOracle struct {
	matrix  [][]int64
	index   map[string]int
	reverse map[int][]string
	depot   int
	scale   float64
	legacy  map[int]struct{}
}

// NewDistanceOracle validates the matrix and index and builds the oracle.
// index maps slot base codes (a slot code without its sub-position) to matrix nodes.
func NewDistanceOracle(matrix [][]int64, index map[string]int, cfg OracleConfig) (*DistanceOracle, error) {
	size := len(matrix)
	for i, row := range matrix {
		if len(row) != size {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", domain.ErrInvalidDistanceData, i, len(row), size)
		}
	}
	if cfg.DepotNode < 0 || cfg.DepotNode >= size {
		return nil, fmt.Errorf("%w: depot node %d outside matrix of size %d", domain.ErrInvalidDistanceData, cfg.DepotNode, size)
	}
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("%w: scale must be positive", domain.ErrInvalidDistanceData)
	}

	reverse := make(map[int][]string, len(index))
	for code, node := range index {
		if node < 0 || node >= size {
			return nil, fmt.Errorf("%w: code %q points to node %d", domain.ErrInvalidDistanceData, code, node)
		}
		reverse[node] = append(reverse[node], code)
	}
	for node := range reverse {
		sort.Strings(reverse[node])
	}

	legacy := make(map[int]struct{}, len(cfg.LegacySlotIDs))
	for _, id := range cfg.LegacySlotIDs {
		legacy[id] = struct{}{}
	}

	return &DistanceOracle{
		matrix:  matrix,
		index:   index,
		reverse: reverse,
		depot:   cfg.DepotNode,
		scale:   cfg.Scale,
		legacy:  legacy,
	}, nil
}

// Depot returns the depot node
func (o *DistanceOracle) Depot() int {
	return o.depot
}

// IndexOf resolves a full slot code to its matrix node
func (o *DistanceOracle) IndexOf(slotCode string) (int, error) {
	node, ok := o.index[domain.BaseCode(slotCode)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownSlotCode, slotCode)
	}
	return node, nil
}

// NodeOfEntry resolves the node of a pick list entry; legacy slots without a
// known code resolve to the depot.
func (o *DistanceOracle) NodeOfEntry(slotID int, slotCode string) (int, error) {
	node, err := o.IndexOf(slotCode)
	if err == nil {
		return node, nil
	}
	if _, ok := o.legacy[slotID]; ok {
		return o.depot, nil
	}
	return 0, fmt.Errorf("slot %d: %w", slotID, err)
}

// NodeDistance returns the raw cost between two nodes
func (o *DistanceOracle) NodeDistance(from, to int) int64 {
	return o.matrix[from][to]
}

// Distance returns the scaled distance between two slot codes
func (o *DistanceOracle) Distance(origin, destination string) (float64, error) {
	from, err := o.IndexOf(origin)
	if err != nil {
		return 0, err
	}
	to, err := o.IndexOf(destination)
	if err != nil {
		return 0, err
	}
	return float64(o.matrix[from][to]) / o.scale, nil
}

// NearestSlotsByDistance lists every known base code ordered by ascending
// distance from origin. Codes sharing a node are listed together.
func (o *DistanceOracle) NearestSlotsByDistance(origin string) ([]string, error) {
	node, err := o.IndexOf(origin)
	if err != nil {
		return nil, err
	}
	return o.NearestFromNode(node), nil
}

// NearestFromNode lists every known base code ordered by ascending distance from node
func (o *DistanceOracle) NearestFromNode(node int) []string {
	nodes := make([]int, len(o.matrix))
	for i := range nodes {
		nodes[i] = i
	}
	row := o.matrix[node]
	sort.SliceStable(nodes, func(a, b int) bool {
		return row[nodes[a]] < row[nodes[b]]
	})

	codes := make([]string, 0, len(o.index))
	for _, n := range nodes {
		codes = append(codes, o.reverse[n]...)
	}
	return codes
}

// RouteLength scores a pick list as a closed tour from the depot through
// every entry's slot. An empty list has length 0.
func (o *DistanceOracle) RouteLength(entries []domain.PicklistEntry) (float64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	nodes := make([]int, 0, len(entries))
	for _, entry := range entries {
		node, err := o.NodeOfEntry(entry.SlotID, entry.SlotCode)
		if err != nil {
			return 0, err
		}
		nodes = append(nodes, node)
	}
	return o.tourLength(nodes), nil
}

// RouteLengthForCodes scores a tour through the given slot codes
func (o *DistanceOracle) RouteLengthForCodes(codes []string) (float64, error) {
	entries := make([]domain.PicklistEntry, len(codes))
	for i, code := range codes {
		entries[i] = domain.PicklistEntry{SlotCode: code}
	}
	return o.RouteLength(entries)
}

// tourLength builds a tour with the path-cheapest-arc heuristic: starting at
// the depot, repeatedly extend the path to the unvisited stop reachable by the
// cheapest arc (first stop wins ties), then close the tour at the depot.
func (o *DistanceOracle) tourLength(stops []int) float64 {
	visited := make([]bool, len(stops))
	current := o.depot
	var total int64

	for range stops {
		next := -1
		best := int64(math.MaxInt64)
		for i, stop := range stops {
			if visited[i] {
				continue
			}
			if cost := o.matrix[current][stop]; cost < best {
				best = cost
				next = i
			}
		}
		visited[next] = true
		total += best
		current = stops[next]
	}
	total += o.matrix[current][o.depot]

	return float64(total) / o.scale
}
