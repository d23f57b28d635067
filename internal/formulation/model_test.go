package formulation

import (
	"context"
	"math"
	"testing"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resBatYAML = `
project_settings:
  name: village
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Bat
resource_assessment:
  res_names: [PV]
  res_nominal_capacity: [1000]
renewables_params:
  res_inverter_efficiency: [1.0]
  res_specific_investment_cost: [0]
  res_specific_om_cost: [0]
  res_lifetime: [1]
battery_params:
  battery_nominal_capacity: 5000
  battery_specific_investment_cost: 0
  battery_specific_electronic_investment_cost: 0
  battery_specific_om_cost: 0
  battery_charge_battery_efficiency: 0.9
  battery_discharge_battery_efficiency: 0.9
  battery_initial_soc: 1
  battery_depth_of_discharge: 0.2
  maximum_battery_charge_time: 4
  maximum_battery_discharge_time: 4
  battery_cycles: 3000
  battery_expected_lifetime: 1
`

const dieselYAML = `
project_settings:
  name: diesel
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Gen
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

const hybridYAML = `
project_settings:
  name: hybrid
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Gen
advanced_settings:
  multiobjective_optimization: true
  pareto_points: 3
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

// fuelPerWh is 1 currency/L over 9500 Wh/L at 30% efficiency.
const fuelPerWh = 1.0 / (0.3 * 9500)

func loadConfig(t *testing.T, raw string, mutate func(c *config.Config)) *config.Config {
	t.Helper()
	c, err := config.Parse([]byte(raw))
	require.NoError(t, err)
	if mutate != nil {
		mutate(c)
	}
	c.ApplyDefaults()
	require.NoError(t, c.Validate())
	return c
}

// series builds single-scenario inputs. solar is the PV resource per unit
// in hours 9 to 16 of every day.
func series(c *config.Config, demand func(t int) float64, solar float64) *model.TimeSeries {
	P := c.Project.TimeResolution
	Y := c.Project.TimeHorizon
	S := c.Advanced.NumScenarios
	R := len(c.Resource.ResNames)

	d := model.NewArray(model.DemandDims, []int{S, P, Y})
	for s := 0; s < S; s++ {
		for y := 0; y < Y; y++ {
			for t := 0; t < P; t++ {
				d.Set(demand(t), s, t, y)
			}
		}
	}
	res := model.NewArray(model.ResourceDims, []int{S, R, P})
	for s := 0; s < S; s++ {
		for r := 0; r < R; r++ {
			for t := 0; t < P; t++ {
				if h := t % 24; h >= 9 && h <= 16 {
					res.Set(solar, s, r, t)
				}
			}
		}
	}
	return &model.TimeSeries{Demand: d, Resource: res}
}

func flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func newModel(t *testing.T, c *config.Config, ts *model.TimeSeries) *Model {
	t.Helper()
	m, err := New(c, ts)
	require.NoError(t, err)
	return m
}

func solve(t *testing.T, m *Model) *Solution {
	t.Helper()
	sol, err := m.Solve(context.Background(), solver.NewGonum(nil), solver.Options{})
	require.NoError(t, err)
	return sol
}

func variable(t *testing.T, m *Model, name string) *model.Array {
	t.Helper()
	a, err := m.GetSolutionVariable(name)
	require.NoError(t, err)
	return a
}

func scalar(t *testing.T, sol *Solution, name string) float64 {
	t.Helper()
	v, err := sol.Scalar(name)
	require.NoError(t, err)
	return v
}

// assertBalance recomputes the energy balance of every (scenario, year,
// period) from the solved arrays.
func assertBalance(t *testing.T, m *Model) {
	t.Helper()
	sol, err := m.Solution()
	require.NoError(t, err)
	s := m.Sets()
	for sc := range s.Scenarios {
		for y := range s.Years {
			k := s.StepIndex(y)
			for p := range s.Periods {
				supply := 0.0
				for r := range s.RenewableSources {
					supply += variable(t, m, VarResProduction).At(sc, k, r, p)
					supply -= variable(t, m, VarCurtailment).At(sc, y, r, p)
					supply += m.ExistingResProduction(sc, y, r, p)
				}
				if sol.Has(VarBatteryOutflow) {
					supply += variable(t, m, VarBatteryOutflow).At(sc, y, p)
					supply -= variable(t, m, VarBatteryInflow).At(sc, y, p)
				}
				for g := range s.GeneratorTypes {
					supply += variable(t, m, VarGeneratorProduction).At(sc, y, g, p)
				}
				if sol.Has(VarFromGrid) {
					supply += variable(t, m, VarFromGrid).At(sc, y, p)
				}
				if sol.Has(VarToGrid) {
					supply -= variable(t, m, VarToGrid).At(sc, y, p)
				}
				if sol.Has(VarLostLoad) {
					supply += variable(t, m, VarLostLoad).At(sc, y, p)
				}
				require.InDelta(t, m.TimeSeries().Demand.At(sc, p, y), supply, 1e-6, "balance at s=%d y=%d t=%d", sc, y, p)
			}
		}
	}
}

func TestSolarBatteryDay(t *testing.T) {
	c := loadConfig(t, resBatYAML, nil)
	m := newModel(t, c, series(c, flat(1000), 2000))
	sol := solve(t, m)

	curt := variable(t, m, VarCurtailment)
	for _, v := range curt.Data {
		assert.GreaterOrEqual(t, v, -1e-9)
	}
	assertBalance(t, m)

	soc := variable(t, m, VarBatterySOC)
	capWh := variable(t, m, VarBatteryUnits).At(0) * c.Battery.BatteryNominalCapacity
	for p := 0; p < 24; p++ {
		assert.LessOrEqual(t, soc.At(0, 0, p), capWh+1e-6)
		assert.GreaterOrEqual(t, soc.At(0, 0, p), 0.2*capWh-1e-6)
	}

	assert.InDelta(t, 0, sol.Objective, 1e-6)
	assert.InDelta(t, 0, scalar(t, sol, VarSalvage), 1e-6)
	assert.Equal(t, "optimal", sol.Status)
	assert.Equal(t, "gonum", sol.Solver)
}

func TestSolarBatteryEveningNeedsCharging(t *testing.T) {
	c := loadConfig(t, resBatYAML, func(c *config.Config) {
		c.Battery.BatterySpecificInvestmentCost = 0.0001
	})
	m := newModel(t, c, series(c, flat(1000), 2000))
	solve(t, m)

	// the initial charge covers the morning; the evening must come from PV
	assert.GreaterOrEqual(t, variable(t, m, VarResUnits).At(0, 0), 1.0)
	assert.InDelta(t, 2.5, variable(t, m, VarBatteryUnits).At(0), 1e-6)
	assertBalance(t, m)
}

func TestDieselOnlyLP(t *testing.T) {
	c := loadConfig(t, dieselYAML, nil)
	m := newModel(t, c, series(c, flat(500), 0))
	sol := solve(t, m)

	assert.InDelta(t, 24*500*fuelPerWh, sol.Objective, 1e-6)
	assert.InDelta(t, sol.Objective, scalar(t, sol, VarNPC), 1e-6)
	assert.GreaterOrEqual(t, variable(t, m, VarGeneratorUnits).At(0, 0), 0.5-1e-9)
	assertBalance(t, m)
}

func TestDieselUnitCommitment(t *testing.T) {
	c := loadConfig(t, dieselYAML, func(c *config.Config) {
		c.Advanced.MILPFormulation = true
		c.Advanced.UnitCommitment = true
		c.Generator.GenSpecificInvestmentCost = []float64{0.001}
		c.Generator.GenMinOutput = []float64{0.3}
		c.Generator.GenCostIncrease = []float64{0.2}
	})
	m := newModel(t, c, series(c, flat(500), 0))
	sol := solve(t, m)

	// every hour runs one machine partial-loaded at 500 Wh:
	// 500·0.8·mc + 1000·0.2·mc, plus 1 unit of 1000 W at 0.001/W
	want := 1 + 24*600*fuelPerWh
	assert.InDelta(t, want, sol.Objective, 1e-5)
	assert.InDelta(t, 1, variable(t, m, VarGeneratorUnits).At(0, 0), 1e-6)
	assert.InDelta(t, 0, variable(t, m, VarGeneratorFullLoad).At(0, 0), 1e-6)
	for _, v := range variable(t, m, VarGeneratorPartialLoad).Data {
		assert.InDelta(t, 1, v, 1e-6)
	}
	assert.True(t, m.Problem().IsMIP())
}

func TestUndersizedGeneratorIsInfeasible(t *testing.T) {
	c := loadConfig(t, dieselYAML, func(c *config.Config) {
		c.Generator.GenNominalCapacity = []float64{100}
		c.Generator.GenMaxUnits = []float64{1}
	})
	m := newModel(t, c, series(c, flat(500), 0))
	_, err := m.Solve(context.Background(), solver.NewGonum(nil), solver.Options{})
	require.ErrorIs(t, err, model.ErrInfeasibleModel)

	_, err = m.GetSolutionVariable(VarGeneratorUnits)
	require.ErrorIs(t, err, model.ErrModelNotSolved)
}

func TestBrownfieldExistingPV(t *testing.T) {
	daytime := func(t int) float64 {
		if h := t % 24; h >= 9 && h <= 16 {
			return 1000
		}
		return 0
	}
	brownfield := func(age int) func(c *config.Config) {
		return func(c *config.Config) {
			c.Advanced.Brownfield = true
			c.Renewables.ResSpecificInvestmentCost = []float64{1}
			c.Renewables.ResLifetime = []int{25}
			c.Renewables.ResExistingCapacity = []float64{1000}
			c.Renewables.ResExistingYears = []int{age}
			c.Battery.BatterySpecificInvestmentCost = 1
		}
	}

	t.Run("retired", func(t *testing.T) {
		c := loadConfig(t, resBatYAML, brownfield(30))
		m := newModel(t, c, series(c, daytime, 2000))
		solve(t, m)
		for p := 0; p < 24; p++ {
			assert.Zero(t, m.ExistingResProduction(0, 0, 0, p))
		}
		assert.InDelta(t, 0.5, variable(t, m, VarResUnits).At(0, 0), 1e-6)
		assertBalance(t, m)
	})

	t.Run("active", func(t *testing.T) {
		c := loadConfig(t, resBatYAML, brownfield(10))
		m := newModel(t, c, series(c, daytime, 2000))
		sol := solve(t, m)
		assert.InDelta(t, 2000, m.ExistingResProduction(0, 0, 0, 12), 1e-9)
		assert.InDelta(t, 0, variable(t, m, VarResUnits).At(0, 0), 1e-6)
		assert.InDelta(t, 0, sol.Objective, 1e-6)
		assertBalance(t, m)
	})
}

func TestParetoFront(t *testing.T) {
	c := loadConfig(t, hybridYAML, nil)
	m := newModel(t, c, series(c, flat(1000), 2000))
	points, sols, err := m.SolveMultiObjective(context.Background(), solver.NewGonum(nil), solver.Options{})
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.Len(t, sols, 3)

	co2PerWh := 2.6 * fuelPerWh
	// night is always diesel; PV can displace at most the 8 daytime hours
	minCO2 := 16000 * co2PerWh
	maxCO2 := 24000 * co2PerWh
	assert.InDelta(t, minCO2, points[0].CO2, 1e-4)
	assert.InDelta(t, maxCO2, points[2].CO2, 1e-4)
	assert.InDelta(t, 5+16000*fuelPerWh, points[0].NPC, 1e-4)
	assert.InDelta(t, 2.5+20000*fuelPerWh, points[1].NPC, 1e-4)
	assert.InDelta(t, 24000*fuelPerWh, points[2].NPC, 1e-4)

	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].CO2, points[i-1].CO2)
		assert.LessOrEqual(t, points[i].NPC, points[i-1].NPC+1e-6)
	}
	for i, sol := range sols {
		assert.InDelta(t, points[i].CO2, sol.CO2, 1e-9)
	}

	kept, err := m.Solution()
	require.NoError(t, err)
	assert.InDelta(t, 24000*fuelPerWh, kept.Objective, 1e-6)
	assert.False(t, m.Problem().HasConstraint(ConstraintCO2Cap))
	assert.Equal(t, m.costObjective().Terms, m.Problem().Objective().Terms)
}

func TestParetoRequiresMultiObjective(t *testing.T) {
	c := loadConfig(t, dieselYAML, nil)
	m := newModel(t, c, series(c, flat(500), 0))
	_, _, err := m.SolveMultiObjective(context.Background(), solver.NewGonum(nil), solver.Options{})
	require.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestGridConnectionYear(t *testing.T) {
	c := loadConfig(t, dieselYAML, func(c *config.Config) {
		c.Project.TimeHorizon = 5
		c.Project.TimeResolution = 4
		c.Generator.GenLifetime = []int{5}
		c.Advanced.GridConnection = true
		c.Grid.YearGridConnection = 3
		c.Grid.MaximumGridPower = 1000
		c.Grid.GridElectricityPurchasePrice = []float64{0.0001}
	})
	m := newModel(t, c, series(c, flat(100), 0))
	solve(t, m)

	from := variable(t, m, VarFromGrid)
	for y := 0; y < 5; y++ {
		for p := 0; p < 4; p++ {
			if y < 2 {
				assert.Zero(t, from.At(0, y, p), "year %d", y+1)
			} else {
				assert.InDelta(t, 100, from.At(0, y, p), 1e-6, "year %d", y+1)
			}
		}
	}
	assertBalance(t, m)
}

func TestRenewablePenetrationFloor(t *testing.T) {
	c := loadConfig(t, hybridYAML, func(c *config.Config) {
		c.Advanced.MultiobjectiveOptimization = false
		c.Project.RenewablePenetration = 0.25
	})
	m := newModel(t, c, series(c, flat(1000), 2000))
	solve(t, m)

	renewable := variable(t, m, VarResProduction).Sum() - variable(t, m, VarCurtailment).Sum()
	total := renewable + variable(t, m, VarGeneratorProduction).Sum()
	assert.GreaterOrEqual(t, renewable/total, 0.25-1e-6)
	assert.InDelta(t, 0.375, variable(t, m, VarResUnits).At(0, 0), 1e-6)
}

func TestVariableCostGoal(t *testing.T) {
	c := loadConfig(t, hybridYAML, func(c *config.Config) {
		c.Advanced.MultiobjectiveOptimization = false
		c.Project.OptimizationGoal = config.GoalVariableCost
		c.Project.InvestmentCostLimit = 2
	})
	m := newModel(t, c, series(c, flat(1000), 2000))
	sol := solve(t, m)

	require.True(t, m.Problem().HasConstraint(ConstraintInvestmentLimit))
	// PV is free to run, so the investment cap binds at 0.2 units
	assert.InDelta(t, 2, scalar(t, sol, VarInvestment), 1e-6)
	assert.InDelta(t, (24000-8*400)*fuelPerWh, sol.Objective, 1e-6)
	assert.InDelta(t, sol.Objective, scalar(t, sol, VarTotalVariable), 1e-6)
}

func TestSolveIsDeterministic(t *testing.T) {
	c := loadConfig(t, hybridYAML, nil)
	objective := func() float64 {
		m := newModel(t, c, series(c, flat(1000), 2000))
		return solve(t, m).Objective
	}
	a, b := objective(), objective()
	assert.LessOrEqual(t, math.Abs(a-b), 1e-6*math.Max(1, math.Abs(a)))
}

func TestScenarioNPCDecomposition(t *testing.T) {
	c := loadConfig(t, hybridYAML, func(c *config.Config) {
		c.Project.DiscountRate = 0.1
		c.Advanced.MultiobjectiveOptimization = false
		c.Renewables.ResLifetime = []int{20}
		c.Renewables.ResSpecificInvestmentCost = []float64{0.001}
	})
	m := newModel(t, c, series(c, flat(1000), 2000))
	sol := solve(t, m)

	inv := scalar(t, sol, VarInvestment)
	salvage := scalar(t, sol, VarSalvage)
	act := variable(t, m, VarScenarioVarAct).At(0)
	assert.InDelta(t, inv+act-salvage, variable(t, m, VarScenarioNPC).At(0), 1e-6)
	assert.InDelta(t, sol.Objective, scalar(t, sol, VarNPC), 1e-6)
	assert.Greater(t, salvage, 0.0)
}

func TestSolutionAccessors(t *testing.T) {
	c := loadConfig(t, dieselYAML, nil)
	m := newModel(t, c, series(c, flat(500), 0))

	_, err := m.Solution()
	require.ErrorIs(t, err, model.ErrModelNotSolved)

	sol := solve(t, m)
	byName := variable(t, m, VarGeneratorProduction)
	byDisplay, err := m.GetSolutionVariable("Generator Energy Production")
	require.NoError(t, err)
	assert.Equal(t, byName, byDisplay)

	_, err = m.GetSolutionVariable("battery_soc")
	require.ErrorIs(t, err, model.ErrUnknownVariable)

	byName.Data[0] = -1
	again := variable(t, m, VarGeneratorProduction)
	assert.NotEqual(t, -1.0, again.Data[0])

	assert.Contains(t, sol.Names(), VarNPC)
	assert.NotContains(t, sol.Names(), VarBatterySOC)

	goal, err := m.GetSettings("optimization_goal", false)
	require.NoError(t, err)
	assert.Equal(t, "NPC", goal)
}

func TestBuildRejectsMissingSeries(t *testing.T) {
	c := loadConfig(t, dieselYAML, nil)
	m := newModel(t, c, &model.TimeSeries{})
	require.ErrorIs(t, m.Build(), model.ErrMissingTimeSeries)

	ts := series(c, flat(500), 0)
	ts.Demand = model.NewArray(model.DemandDims, []int{1, 12, 1})
	m = newModel(t, c, ts)
	require.ErrorIs(t, m.Build(), model.ErrShapeMismatch)
}

func TestBuildIsIdempotent(t *testing.T) {
	c := loadConfig(t, resBatYAML, nil)
	m := newModel(t, c, series(c, flat(1000), 2000))
	require.NoError(t, m.Build())
	n := m.Problem().NumConstraints()
	require.NoError(t, m.Build())
	assert.Equal(t, n, m.Problem().NumConstraints())
	assert.True(t, m.Problem().HasConstraint("state_of_charge[0,0,0]"))
	assert.False(t, m.Problem().IsMIP())
}
