package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	matrixPath := writeFile(t, dir, "distances.json", `[[0, 4, 9], [4, 0, 5], [9, 5, 0]]`)
	indexPath := writeFile(t, dir, "index.json", `{"GRO-48;12;01": 1, "GRO-48;12;02": 2}`)

	layout, err := Load(matrixPath, indexPath)
	require.NoError(t, err)

	require.Len(t, layout.Matrix, 3)
	assert.Equal(t, int64(5), layout.Matrix[1][2])
	assert.Equal(t, 2, layout.Index["GRO-48;12;02"])
}

func TestLoadMatrix_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMatrix(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = LoadMatrix(writeFile(t, dir, "empty.json", `[]`))
	assert.ErrorContains(t, err, "is empty")

	_, err = LoadMatrix(writeFile(t, dir, "broken.json", `[[0, "x"]]`))
	assert.ErrorContains(t, err, "failed to decode")
}

func TestLoadIndex_Null(t *testing.T) {
	index, err := LoadIndex(writeFile(t, t.TempDir(), "null.json", `null`))
	require.NoError(t, err)
	assert.Empty(t, index)
}
