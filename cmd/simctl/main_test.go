package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/slotting-simulator/internal/domain"
	"github.com/wms-platform/slotting-simulator/pkg/auth"
)

const fixturePath = "../../internal/infrastructure/memory/testdata/warehouse.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func settingsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depotNode: 0\ndistanceScale: 10\n"), 0o600))
	return path
}

func TestRun_JSONOutput(t *testing.T) {
	out, err := execute(t, "run",
		"--fixture", fixturePath,
		"--settings", settingsFile(t),
		"--strategy", "current",
		"--date", "2022-11-07",
		"--seed", "3",
		"-o", "json",
	)
	require.NoError(t, err)

	var run domain.SimulationRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, domain.StrategyCurrent, run.Request.Strategy)
	assert.Equal(t, int64(3), run.Request.Seed)
}

func TestRun_TableOutputAndReport(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "run.xlsx")
	out, err := execute(t, "run",
		"--fixture", fixturePath,
		"--settings", settingsFile(t),
		"--date", "2022-11-07",
		"--seed", "3",
		"--report", reportPath,
	)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "run "))
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "TOTAL")

	info, err := os.Stat(reportPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRun_RejectsBadInput(t *testing.T) {
	_, err := execute(t, "run", "--fixture", fixturePath, "--date", "2022-11-07", "--strategy", "Alphabetical")
	assert.ErrorIs(t, err, domain.ErrInvalidStrategy)

	_, err = execute(t, "run", "--fixture", fixturePath, "--date", "07.11.2022")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--date")

	_, err = execute(t, "run", "--date", "2022-11-07")
	require.Error(t, err)
}

func TestToken(t *testing.T) {
	out, err := execute(t, "token", "--secret", "s3cret", "--subject", "planner", "--role", "viewer")
	require.NoError(t, err)

	claims, err := auth.ParseJWT(strings.TrimSpace(out), []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "planner", claims.Subject)
	assert.Equal(t, auth.RoleViewer, claims.Role)
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token")
	assert.ErrorIs(t, err, auth.ErrEmptySecret)
}
