package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// Layout is the warehouse travel cost matrix and the slot code index into it
type Layout struct {
	Matrix [][]int64
	Index  map[string]int
}

// Load reads the distance matrix and slot index JSON files
func Load(matrixPath, indexPath string) (*Layout, error) {
	matrix, err := LoadMatrix(matrixPath)
	if err != nil {
		return nil, err
	}
	index, err := LoadIndex(indexPath)
	if err != nil {
		return nil, err
	}
	return &Layout{Matrix: matrix, Index: index}, nil
}

// LoadMatrix reads a square matrix of travel costs stored as nested JSON arrays
func LoadMatrix(path string) ([][]int64, error) {
	var matrix [][]int64
	if err := readJSON(path, &matrix); err != nil {
		return nil, fmt.Errorf("failed to load distance matrix: %w", err)
	}
	if len(matrix) == 0 {
		return nil, fmt.Errorf("distance matrix %s is empty", path)
	}
	return matrix, nil
}

// LoadIndex reads the slot base code to matrix node map
func LoadIndex(path string) (map[string]int, error) {
	var index map[string]int
	if err := readJSON(path, &index); err != nil {
		return nil, fmt.Errorf("failed to load slot index: %w", err)
	}
	if index == nil {
		index = map[string]int{}
	}
	return index, nil
}

func readJSON(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
