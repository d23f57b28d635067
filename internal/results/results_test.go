package results

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/solver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const solarBatteryYAML = `
project_settings:
  name: village
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  currency: USD
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
  battery_specific_investment_cost: 0.0001
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
`

const fuelPerWh = 1.0 / (0.3 * 9500)

func solved(t *testing.T, raw string, demand, solar float64) *formulation.Model {
	t.Helper()
	c, err := config.Parse([]byte(raw))
	require.NoError(t, err)
	c.ApplyDefaults()
	require.NoError(t, c.Validate())

	P := c.Project.TimeResolution
	R := len(c.Resource.ResNames)
	d := model.NewArray(model.DemandDims, []int{1, P, 1})
	res := model.NewArray(model.ResourceDims, []int{1, R, P})
	for p := 0; p < P; p++ {
		d.Set(demand, 0, p, 0)
		for r := 0; r < R; r++ {
			if h := p % 24; h >= 9 && h <= 16 {
				res.Set(solar, 0, r, p)
			}
		}
	}
	m, err := formulation.New(c, &model.TimeSeries{Demand: d, Resource: res})
	require.NoError(t, err)
	_, err = m.Solve(context.Background(), solver.NewGonum(nil), solver.Options{})
	require.NoError(t, err)
	return m
}

func TestSummarizeDiesel(t *testing.T) {
	m := solved(t, dieselYAML, 500, 0)
	s, err := Summarize(m, nil)
	require.NoError(t, err)

	assert.Equal(t, "diesel", s.Project)
	assert.Equal(t, "gonum", s.Solver)
	require.Len(t, s.Sizing, 1)
	assert.Equal(t, []int{2024}, s.Sizing[0].Years)
	assert.Nil(t, s.Sizing[0].Battery)
	require.Len(t, s.Sizing[0].Generators, 1)
	assert.GreaterOrEqual(t, s.Sizing[0].Generators[0].Size, 500-1e-6)

	require.Len(t, s.Energy, 1)
	e := s.Energy[0]
	assert.Equal(t, 1, e.Scenario)
	assert.Equal(t, 2024, e.Year)
	assert.InDelta(t, 12000, e.Demand, 1e-9)
	assert.InDelta(t, 12000, e.Generator, 1e-4)
	assert.Zero(t, e.RenewableShare)

	assert.Equal(t, "4.21", s.Costs.Fuel.StringFixed(2))
	assert.Equal(t, "4.21", s.Costs.NetPresentCost.StringFixed(2))
	assert.True(t, s.Costs.Investment.IsZero())
	// 4.2105 currency over 12 kWh
	assert.Equal(t, "0.3509", s.LCOE.String())
}

func TestSummarizeSolarBattery(t *testing.T) {
	m := solved(t, solarBatteryYAML, 1000, 2000)
	s, err := Summarize(m, nil)
	require.NoError(t, err)

	assert.Equal(t, "USD", s.Currency)
	require.NotNil(t, s.Sizing[0].Battery)
	assert.InDelta(t, s.Sizing[0].Battery.Units*5000, s.Sizing[0].Battery.Size, 1e-9)
	require.Len(t, s.Sizing[0].Renewables, 1)
	assert.Equal(t, "PV", s.Sizing[0].Renewables[0].Name)

	e := s.Energy[0]
	assert.InDelta(t, e.Demand, e.Renewable+e.BatteryOutflow-e.BatteryInflow, 1e-3)
	assert.InDelta(t, 1, e.RenewableShare, 1e-9)
}

func TestVerifyCleanSolutions(t *testing.T) {
	for name, m := range map[string]*formulation.Model{
		"diesel":        solved(t, dieselYAML, 500, 0),
		"solar battery": solved(t, solarBatteryYAML, 1000, 2000),
	} {
		t.Run(name, func(t *testing.T) {
			violations, err := Verify(m, nil)
			require.NoError(t, err)
			assert.Empty(t, violations)
		})
	}
}

func TestVerifyReportsTampering(t *testing.T) {
	m := solved(t, solarBatteryYAML, 1000, 2000)
	v, err := newView(m, nil)
	require.NoError(t, err)

	v.batSOC.Set(v.batSOC.At(0, 0, 5)+1e6, 0, 0, 5)
	v.curtailment.Set(-50, 0, 0, 0, 12)

	props := map[string]bool{}
	for _, violation := range v.check() {
		props[violation.Property] = true
		assert.NotEmpty(t, violation.Error())
	}
	assert.True(t, props[PropertySOCBounds])
	assert.True(t, props[PropertyCurtailment])
	assert.True(t, props[PropertyEnergyBalance])
	assert.False(t, props[PropertyNPC])
}

func TestVerifyUnsolved(t *testing.T) {
	c, err := config.Parse([]byte(dieselYAML))
	require.NoError(t, err)
	c.ApplyDefaults()
	m, err := formulation.New(c, nil)
	require.NoError(t, err)

	_, err = Verify(m, nil)
	require.ErrorIs(t, err, model.ErrModelNotSolved)
	_, err = Summarize(nil, nil)
	require.ErrorIs(t, err, model.ErrModelNotSolved)
}

func TestBuildLedger(t *testing.T) {
	m := solved(t, solarBatteryYAML, 1000, 2000)
	ledger, err := BuildLedger(m, nil, 0)
	require.NoError(t, err)
	require.Len(t, ledger, 24)

	sizing, err := Summarize(m, nil)
	require.NoError(t, err)
	assert.InDelta(t, sizing.Sizing[0].Battery.Size, ledger[0].SOCStart, 1e-6, "initial SOC is full")

	actions := map[model.Action]int{}
	for i, row := range ledger {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, i+1, row.Period)
		assert.Equal(t, 2024, row.Year)
		if i > 0 {
			assert.Equal(t, ledger[i-1].SOCEnd, row.SOCStart)
		}
		assert.InDelta(t, row.Demand, row.Renewable+row.BatteryOutflow-row.BatteryInflow, 1e-4)
		actions[row.Action]++
	}
	assert.Positive(t, actions[model.ActionDischarging], "night is served from storage")

	_, err = BuildLedger(m, nil, 1)
	require.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestLedgerCostMatchesFuel(t *testing.T) {
	m := solved(t, dieselYAML, 500, 0)
	ledger, err := BuildLedger(m, nil, 0)
	require.NoError(t, err)

	for _, row := range ledger {
		assert.Equal(t, model.ActionIdle, row.Action)
		assert.InDelta(t, 500*fuelPerWh, row.Cost, 1e-6)
	}
	assert.InDelta(t, 12000*fuelPerWh, ledger[len(ledger)-1].CumCost, 1e-4)
}

func TestWriteLedgerCSV(t *testing.T) {
	ledger := []LedgerRow{
		{Index: 0, Scenario: 1, Year: 2024, Period: 1, Demand: 1000, Action: model.ActionCharging, BatteryInflow: 250},
		{Index: 1, Scenario: 1, Year: 2024, Period: 2, Demand: 1000, Action: model.ActionIdle, Cost: 1.5, CumCost: 1.5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteLedger(&buf, ledger))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ledgerHeader, records[0])
	assert.Equal(t, "CHARGING", records[1][11])
	assert.Equal(t, "250.000000", records[1][12])
	assert.Equal(t, "1.500000", records[2][17])

	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, WriteLedgerCSV(path, ledger))
}
