package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"microgrid-planner/internal/analysis"
	"microgrid-planner/internal/api/handlers"
	"microgrid-planner/internal/api/models"
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/inputs"
	"microgrid-planner/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dieselProject = `
project_settings:
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

const hybridProject = `
project_settings:
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Gen
resource_assessment:
  res_names: [PV]
  res_nominal_capacity: [1000]
renewables_params:
  res_inverter_efficiency: [1.0]
  res_specific_investment_cost: [0.01]
  res_specific_om_cost: [0]
  res_lifetime: [1]
  res_unit_co2_emission: [0]
generator_params:
  gen_names: [Diesel]
  gen_nominal_capacity: [1000]
  gen_nominal_efficiency: [0.3]
  gen_specific_investment_cost: [0]
  gen_specific_om_cost: [0]
  gen_lifetime: [1]
  fuel_lhv: [9500]
  fuel_specific_cost: [[1.0]]
  fuel_co2_emission: [2.6]
`

func init() {
	gin.SetMode(gin.TestMode)
}

func writeProject(t *testing.T, root, name, doc string, demand float64, pv bool) {
	t.Helper()
	path := config.ProjectPath(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimLeft(doc, "\n")), 0o644))

	var sb strings.Builder
	sb.WriteString("Periods,2024\n")
	for p := 1; p <= 24; p++ {
		sb.WriteString(strconv.Itoa(p) + "," + strconv.FormatFloat(demand, 'f', -1, 64) + "\n")
	}
	dir := inputs.Dir(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demand.csv"), []byte(sb.String()), 0o644))
	if !pv {
		return
	}
	sb.Reset()
	sb.WriteString("Periods,PV\n")
	for p := 1; p <= 24; p++ {
		v := "0"
		if h := p - 1; h >= 9 && h <= 16 {
			v = "2000"
		}
		sb.WriteString(strconv.Itoa(p) + "," + v + "\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources.csv"), []byte(sb.String()), 0o644))
}

type testServer struct {
	router *gin.Engine
	store  *handlers.RunStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	writeProject(t, root, "diesel", strings.Replace(dieselProject, "%CAP%", "1000", 1), 500, false)
	writeProject(t, root, "tiny", strings.Replace(dieselProject, "%CAP%", "100", 1), 500, false)
	writeProject(t, root, "hybrid", hybridProject, 1000, true)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	store := handlers.NewRunStore(time.Hour)
	t.Cleanup(store.Close)
	return &testServer{
		router: NewRouter(Options{
			ProjectsRoot:  root,
			DefaultSolver: "gonum",
			Store:         store,
			Gatherer:      reg,
		}),
		store: store,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorDetail {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestOptimizeAndRunLookup(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/optimize", models.OptimizeRequest{Project: "diesel", IncludeLedger: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.OptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	assert.Equal(t, "optimal", resp.Status)
	assert.Empty(t, resp.Violations)
	assert.Equal(t, "4.21", resp.Summary.Costs.Fuel.StringFixed(2))
	require.Len(t, resp.Ledger, 24)
	assert.Equal(t, "IDLE", resp.Ledger[0].Action)
	assert.Equal(t, 1, s.store.Len())

	rec = s.do(t, http.MethodGet, "/api/v1/runs/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.RunInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "optimize", info.Kind)
	assert.Equal(t, "diesel", info.Project)
	assert.Contains(t, info.Variables, "generator_energy_production")

	rec = s.do(t, http.MethodGet, "/api/v1/runs/"+resp.ID+"/variables/Generator%20Energy%20Production", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v models.VariableResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, []int{1, 1, 1, 24}, v.Shape)
	assert.InDelta(t, 500, v.Data[3], 1e-4)

	rec = s.do(t, http.MethodGet, "/api/v1/runs/"+resp.ID+"/variables/battery_soc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_VARIABLE", decodeError(t, rec).Code)
}

func TestOptimizeErrors(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing project field", map[string]string{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown project", models.OptimizeRequest{Project: "nowhere"}, http.StatusNotFound, "PROJECT_NOT_FOUND"},
		{"path in name", models.OptimizeRequest{Project: "../diesel"}, http.StatusBadRequest, "INVALID_CONFIGURATION"},
		{"unknown solver", models.OptimizeRequest{Project: "diesel", Solver: "cplex"}, http.StatusServiceUnavailable, "SOLVER_UNAVAILABLE"},
		{"infeasible", models.OptimizeRequest{Project: "tiny"}, http.StatusUnprocessableEntity, "INFEASIBLE_MODEL"},
		{"ledger scenario", models.OptimizeRequest{Project: "diesel", IncludeLedger: true, Scenario: 2}, http.StatusUnprocessableEntity, "SHAPE_MISMATCH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/optimize", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}

	rec := s.do(t, http.MethodPost, "/api/v1/optimize", models.OptimizeRequest{Project: "tiny"})
	detail := decodeError(t, rec)
	assert.Equal(t, "gonum", detail.Details["solver"])
	assert.Zero(t, s.store.Len(), "failed runs are not stored")
}

func TestPareto(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/pareto", models.ParetoRequest{Project: "hybrid", Points: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ParetoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 3)
	require.Len(t, resp.Summaries, 3)
	for i := 1; i < len(resp.Points); i++ {
		assert.GreaterOrEqual(t, resp.Points[i].CO2, resp.Points[i-1].CO2)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/runs/"+resp.ID+"/variables/res_units?point=0", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/runs/"+resp.ID+"/variables/res_units?point=9", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/pareto", models.ParetoRequest{Project: "hybrid", Points: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/runs/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decodeError(t, rec).Code)
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var projects struct {
		Projects []models.ProjectInfo `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projects))
	require.Len(t, projects.Projects, 3)
	assert.Equal(t, "diesel", projects.Projects[0].Name)
	assert.Equal(t, []string{"Diesel"}, projects.Projects[0].Generators)
	assert.Equal(t, []string{"PV"}, projects.Projects[1].Renewables)

	rec = s.do(t, http.MethodGet, "/api/v1/solvers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"gonum","available":true`)
}

func TestProjectProfile(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/projects/hybrid/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile analysis.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.Len(t, profile.Demand, 1)
	assert.Equal(t, 2024, profile.Demand[0].Year)
	assert.Equal(t, 24000.0, profile.Demand[0].Total)
	require.Len(t, profile.Sources, 1)
	assert.InDelta(t, 8*2000.0/24/1000, profile.Sources[0].CapacityFactor, 1e-9)

	rec = s.do(t, http.MethodGet, "/api/v1/projects/nowhere/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/optimize", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/optimize", models.OptimizeRequest{Project: "diesel"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "microgrid_planner_runs_stored")
	assert.Contains(t, rec.Body.String(), `microgrid_planner_solves_total{solver="gonum",status="optimal"}`)
}
