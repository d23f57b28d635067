package analysis

import (
	"testing"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSources = `
project_settings:
  name: village
  time_horizon: 2
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Gen
resource_assessment:
  res_names: [PV, Wind]
  res_nominal_capacity: [1000, 2000]
renewables_params:
  res_inverter_efficiency: [0.5, 1.0]
  res_specific_investment_cost: [0, 0]
  res_specific_om_cost: [0, 0]
  res_lifetime: [2, 2]
generator_params:
  gen_names: [Diesel]
  gen_nominal_capacity: [1000]
  gen_nominal_efficiency: [0.3]
  gen_specific_investment_cost: [0]
  gen_specific_om_cost: [0]
  gen_lifetime: [2]
  fuel_lhv: [9500]
  fuel_specific_cost: [[1.0]]
`

func TestDescribe(t *testing.T) {
	s := Describe([]float64{4, 1, 3, 2, 5})
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 15.0, s.Total)
	assert.GreaterOrEqual(t, s.P05, 1.0)
	assert.LessOrEqual(t, s.P05, 2.0)
	assert.GreaterOrEqual(t, s.P95, 4.0)
	assert.LessOrEqual(t, s.P95, 5.0)

	assert.Equal(t, Stats{}, Describe(nil))
}

func TestProfileProject(t *testing.T) {
	c, err := config.Parse([]byte(twoSources))
	require.NoError(t, err)
	c.ApplyDefaults()
	require.NoError(t, c.Validate())

	d := model.NewArray(model.DemandDims, []int{1, 24, 2})
	res := model.NewArray(model.ResourceDims, []int{1, 2, 24})
	for y := 0; y < 2; y++ {
		for p := 0; p < 24; p++ {
			v := 500.0
			if p == 19 {
				v = 1000 * float64(y+1)
			}
			d.Set(v, 0, p, y)
		}
	}
	for p := 0; p < 24; p++ {
		if p >= 9 && p <= 16 {
			res.Set(1200, 0, 0, p) // PV: 8 h at 600 Wh after the inverter
		}
		res.Set(500, 0, 1, p) // Wind: flat 500 Wh on a 2000 W unit
	}

	profile, err := ProfileProject(c, &model.TimeSeries{Demand: d, Resource: res})
	require.NoError(t, err)
	assert.Equal(t, "village", profile.Project)

	require.Len(t, profile.Demand, 2)
	assert.Equal(t, 2024, profile.Demand[0].Year)
	assert.Equal(t, 2025, profile.Demand[1].Year)
	assert.Equal(t, 20, profile.Demand[0].PeakPeriod)
	assert.Equal(t, 2000.0, profile.Demand[1].Max)
	assert.InDelta(t, (23*500.0+1000)/24/1000, profile.Demand[0].LoadFactor, 1e-9)

	require.Len(t, profile.Sources, 2)
	assert.Equal(t, "Wind", profile.Sources[0].Name)
	assert.InDelta(t, 0.25, profile.Sources[0].CapacityFactor, 1e-9)
	assert.Equal(t, "PV", profile.Sources[1].Name)
	assert.InDelta(t, 8*600.0/24/1000, profile.Sources[1].CapacityFactor, 1e-9)
	assert.Equal(t, 4800.0, profile.Sources[1].Total)
}

func TestProfileProjectMissingDemand(t *testing.T) {
	c, err := config.Parse([]byte(twoSources))
	require.NoError(t, err)
	c.ApplyDefaults()

	_, err = ProfileProject(c, &model.TimeSeries{})
	require.ErrorIs(t, err, model.ErrMissingTimeSeries)
}
