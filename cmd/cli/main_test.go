package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/inputs"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/results"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dieselDoc = `project_settings:
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Gen
generator_params:
  gen_names: [Diesel]
  gen_nominal_capacity: [%CAP%]
  gen_max_units: [1]
  gen_nominal_efficiency: [0.3]
  gen_specific_investment_cost: [0]
  gen_specific_om_cost: [0]
  gen_lifetime: [1]
  fuel_lhv: [9500]
  fuel_specific_cost: [[1.0]]
`

func scaffold(t *testing.T, capacity string, withDemand bool) string {
	t.Helper()
	root := t.TempDir()
	path := config.ProjectPath(root, "village")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(dieselDoc, "%CAP%", capacity, 1)), 0o644))
	if !withDemand {
		return root
	}
	var sb strings.Builder
	sb.WriteString("Periods,2024\n")
	for p := 1; p <= 24; p++ {
		sb.WriteString(strconv.Itoa(p) + ",500\n")
	}
	dir := inputs.Dir(root, "village")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demand.csv"), []byte(sb.String()), 0o644))
	return root
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{nil, exitOK},
		{fmt.Errorf("load: %w", model.ErrInvalidConfiguration), exitConfig},
		{fmt.Errorf("demand: %w", model.ErrMissingTimeSeries), exitInput},
		{fmt.Errorf("open: %w", os.ErrNotExist), exitInput},
		{model.ErrSolverUnavailable, exitUnavailable},
		{&model.SolverStatusError{Solver: "gonum", Status: "infeasible", Err: model.ErrInfeasibleModel}, exitInfeasible},
		{model.ErrUnboundedModel, exitInfeasible},
		{errors.New("boom"), exitInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, exitCode(tc.err), "%v", tc.err)
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitConfig, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage:")
	assert.Equal(t, exitConfig, run([]string{"backtest"}, &stdout, &stderr))
}

func TestOptimizeWritesSummary(t *testing.T) {
	root := scaffold(t, "1000", true)
	var stdout, stderr bytes.Buffer
	code := run([]string{"optimize", "--project", "village", "--root", root, "--log-level", "error"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var summary results.Summary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	assert.Equal(t, "gonum", summary.Solver)
	assert.Equal(t, "4.21", summary.Costs.Fuel.StringFixed(2))
}

func TestExportWritesLedger(t *testing.T) {
	root := scaffold(t, "1000", true)
	out := filepath.Join(t.TempDir(), "out", "dispatch.csv")
	var stdout, stderr bytes.Buffer
	code := run([]string{"export", "-p", "village", "--root", root, "--out", out, "--log-level", "error"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "Wrote 24 rows")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 25)
	assert.True(t, strings.HasPrefix(lines[0], "index,scenario,year,period"))
}

func TestValidate(t *testing.T) {
	root := scaffold(t, "1000", true)
	var stdout, stderr bytes.Buffer
	code := run([]string{"validate", "--project", "village", "--root", root}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "project village is valid")
}

func TestRunExitCodes(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, exitConfig, run([]string{"optimize"}, &stdout, &stderr), "missing --project")

	root := scaffold(t, "1000", false)
	assert.Equal(t, exitInput, run([]string{"optimize", "-p", "village", "--root", root}, &stdout, &stderr))
	assert.Equal(t, exitInput, run([]string{"optimize", "-p", "nowhere", "--root", root}, &stdout, &stderr))

	root = scaffold(t, "1000", true)
	assert.Equal(t, exitUnavailable, run([]string{"optimize", "-p", "village", "--root", root, "--solver", "cplex"}, &stdout, &stderr))

	// One 100 W unit cannot cover 500 Wh per hour.
	root = scaffold(t, "100", true)
	assert.Equal(t, exitInfeasible, run([]string{"optimize", "-p", "village", "--root", root, "--log-level", "error"}, &stdout, &stderr))
}
