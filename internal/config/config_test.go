package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"microgrid-planner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
project_settings:
  time_horizon: 2
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0.1
  system_configuration: RES+Bat
resource_assessment:
  res_names: [PV]
  res_nominal_capacity: [1000]
renewables_params:
  res_inverter_efficiency: [0.95]
  res_specific_investment_cost: [1.2]
  res_specific_om_cost: [0.02]
  res_lifetime: [25]
battery_params:
  battery_nominal_capacity: 5000
  battery_specific_investment_cost: 0.5
  battery_specific_electronic_investment_cost: 0.1
  battery_specific_om_cost: 0.02
  battery_charge_battery_efficiency: 0.9
  battery_discharge_battery_efficiency: 0.9
  battery_initial_soc: 1
  battery_depth_of_discharge: 0.2
  maximum_battery_charge_time: 4
  maximum_battery_discharge_time: 4
  battery_cycles: 3000
  battery_expected_lifetime: 10
generator_params:
  gen_names: [Diesel]
`

func writeProject(t *testing.T, root, name, body string) {
	t.Helper()
	path := ProjectPath(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadProjectAppliesDefaults(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "village", sampleYAML)

	c, err := LoadProject(root, "village")
	require.NoError(t, err)

	assert.Equal(t, "village", c.Project.Name)
	assert.Equal(t, GoalNPC, c.Project.OptimizationGoal)
	assert.Equal(t, 2, c.Advanced.StepDuration)
	assert.Equal(t, 1, c.Advanced.NumSteps)
	assert.Equal(t, []float64{1}, c.Advanced.ScenarioWeights)
	assert.Equal(t, 1, c.Resource.ResSources)
	assert.True(t, c.GeneratorDemandCapEnabled())
	assert.False(t, c.HasGenerator())
	assert.Empty(t, c.Generator.GenNames, "generator params are zeroed without a generator")
	assert.Equal(t, "gonum", c.Solver.Name)

	year, err := c.StartYear()
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, "village", sampleYAML)
	c, err := LoadProject(root, "village")
	require.NoError(t, err)

	out := ProjectPath(root, "copy")
	require.NoError(t, c.Save(out))
	again, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, c, again)

	names, err := ListProjects(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"copy", "village"}, names)
}

func TestValidateCollectsErrors(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	c.Project.DiscountRate = 1.5
	c.Renewables.ResLifetime = []int{25, 30}
	c.Advanced.UnitCommitment = true
	c.ApplyDefaults()

	err = c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "discount_rate")
	assert.Contains(t, err.Error(), "res_lifetime has 2 entries")
	assert.Contains(t, err.Error(), "unit_commitment requires milp_formulation")
}

func TestValidateRules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"greenfield lifetime", func(c *Config) { c.Project.TimeHorizon = 30 }, "shorter than time_horizon"},
		{"weights", func(c *Config) {
			c.Advanced.MultiScenarioOptimization = true
			c.Advanced.NumScenarios = 2
			c.Advanced.ScenarioWeights = []float64{0.5, 0.6}
		}, "sum to"},
		{"variable cost limit", func(c *Config) { c.Project.OptimizationGoal = GoalVariableCost }, "investment_cost_limit"},
		{"pareto points", func(c *Config) {
			c.Advanced.MultiobjectiveOptimization = true
			c.Advanced.ParetoPoints = 1
		}, "pareto_points"},
		{"grid year", func(c *Config) {
			c.Advanced.GridConnection = true
			c.Grid.MaximumGridPower = 1000
			c.Grid.YearGridConnection = 5
		}, "year_grid_connection"},
		{"bad start date", func(c *Config) { c.Project.StartDate = "soon" }, "start_date"},
		{"independence without dod", func(c *Config) {
			c.Project.BatteryIndependence = 1
			c.Battery.BatteryDepthOfDischarge = 0
			c.Battery.BatteryInitialSOC = 1
		}, "battery_depth_of_discharge > 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Parse([]byte(sampleYAML))
			require.NoError(t, err)
			tc.mutate(c)
			c.ApplyDefaults()
			err = c.Validate()
			require.ErrorIs(t, err, model.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestBrownfieldAllowsShortLifetime(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	c.Project.TimeHorizon = 30
	c.Advanced.Brownfield = true
	c.ApplyDefaults()
	assert.NoError(t, c.Validate())
}

func TestGetSetting(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	c.ApplyDefaults()

	v, err := c.GetSetting("project_settings", "time_horizon")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = c.GetSetting("project_settings", "nope")
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestBroadcastPrices(t *testing.T) {
	c := &Config{}
	c.Grid.GridElectricityPurchasePrice = []float64{0.2}
	c.Generator.FuelSpecificCost = [][]float64{{1, 1.1, 1.2}}
	assert.Equal(t, 0.2, c.PurchasePrice(4))
	assert.Equal(t, 0.0, c.SellPrice(0))
	assert.Equal(t, 1.1, c.FuelCost(0, 1))
}

func TestLoadProjectRejectsPathNames(t *testing.T) {
	_, err := LoadProject(t.TempDir(), "../etc")
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}
