package config

import (
	"errors"
	"fmt"
	"math"

	"microgrid-planner/internal/model"
)

// Validate checks the bundle against its schema and cross-field rules.
// Every violated rule is reported; the result wraps model.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", model.ErrInvalidConfiguration)
	}
	v := &validator{}
	c.validateProject(v)
	c.validateAdvanced(v)
	c.validateRenewables(v)
	if c.HasBattery() {
		c.validateBattery(v)
	}
	if c.HasGenerator() {
		c.validateGenerators(v)
	}
	if c.HasGrid() {
		c.validateGrid(v)
	}
	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", model.ErrInvalidConfiguration, errors.Join(v.errs...))
}

type validator struct {
	errs []error
}

func (v *validator) failf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) fraction(name string, x float64) {
	if x < 0 || x > 1 || math.IsNaN(x) {
		v.failf("%s must be in [0, 1], got %v", name, x)
	}
}

func (v *validator) efficiency(name string, x float64) {
	if x <= 0 || x > 1 || math.IsNaN(x) {
		v.failf("%s must be in (0, 1], got %v", name, x)
	}
}

func (v *validator) nonNegative(name string, x float64) {
	if x < 0 || math.IsNaN(x) {
		v.failf("%s must be >= 0, got %v", name, x)
	}
}

func (v *validator) positive(name string, x float64) {
	if x <= 0 || math.IsNaN(x) {
		v.failf("%s must be > 0, got %v", name, x)
	}
}

// length checks a required per-technology vector.
func (v *validator) length(name string, got, want int) {
	if got != want {
		v.failf("%s has %d entries, want %d", name, got, want)
	}
}

// optional checks a vector that may be empty.
func (v *validator) optional(name string, got, want int) {
	if got != 0 && got != want {
		v.failf("%s has %d entries, want 0 or %d", name, got, want)
	}
}

func (c *Config) validateProject(v *validator) {
	p := c.Project
	if p.TimeHorizon < 1 {
		v.failf("project_settings.time_horizon must be >= 1, got %d", p.TimeHorizon)
	}
	if _, err := c.StartYear(); err != nil {
		v.failf("project_settings.%v", err)
	}
	if p.TimeResolution < 1 {
		v.failf("project_settings.time_resolution must be >= 1, got %d", p.TimeResolution)
	}
	v.fraction("project_settings.discount_rate", p.DiscountRate)
	switch p.OptimizationGoal {
	case GoalNPC:
	case GoalVariableCost:
		if p.InvestmentCostLimit <= 0 {
			v.failf("project_settings.investment_cost_limit must be > 0 with the %s goal", GoalVariableCost)
		}
	default:
		v.failf("project_settings.optimization_goal %q is not one of %s, %s", p.OptimizationGoal, GoalNPC, GoalVariableCost)
	}
	switch p.SystemConfiguration {
	case SystemResBatGen, SystemResBat, SystemResGen:
	default:
		v.failf("project_settings.system_configuration %q is not one of %s, %s, %s",
			p.SystemConfiguration, SystemResBatGen, SystemResBat, SystemResGen)
	}
	v.fraction("project_settings.renewable_penetration", p.RenewablePenetration)
	if p.BatteryIndependence < 0 {
		v.failf("project_settings.battery_independence must be >= 0, got %d", p.BatteryIndependence)
	}
	if p.BatteryIndependence > 0 && !c.HasBattery() {
		v.failf("project_settings.battery_independence requires a configuration with battery")
	}
	if p.BatteryIndependence > 0 && c.HasBattery() && c.Battery.BatteryDepthOfDischarge <= 0 {
		v.failf("project_settings.battery_independence requires battery_depth_of_discharge > 0")
	}
	if p.BatteryIndependence > 0 && 24*p.BatteryIndependence > p.TimeResolution {
		v.failf("project_settings.battery_independence of %d days exceeds one year of %d periods",
			p.BatteryIndependence, p.TimeResolution)
	}
	v.fraction("project_settings.lost_load_fraction", p.LostLoadFraction)
	v.nonNegative("project_settings.lost_load_specific_cost", p.LostLoadSpecificCost)
	v.nonNegative("project_settings.land_availability", p.LandAvailability)
}

func (c *Config) validateAdvanced(v *validator) {
	a := c.Advanced
	if a.UnitCommitment && !a.MILPFormulation {
		v.failf("advanced_settings.unit_commitment requires milp_formulation")
	}
	if a.StepDuration < 1 {
		v.failf("advanced_settings.step_duration must be >= 1, got %d", a.StepDuration)
	}
	if a.NumScenarios < 1 {
		v.failf("advanced_settings.num_scenarios must be >= 1, got %d", a.NumScenarios)
	}
	v.length("advanced_settings.scenario_weights", len(a.ScenarioWeights), a.NumScenarios)
	sum := 0.0
	for i, w := range a.ScenarioWeights {
		v.fraction(fmt.Sprintf("advanced_settings.scenario_weights[%d]", i), w)
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		v.failf("advanced_settings.scenario_weights sum to %v, want 1", sum)
	}
	if a.MultiobjectiveOptimization && a.ParetoPoints < 2 {
		v.failf("advanced_settings.pareto_points must be >= 2, got %d", a.ParetoPoints)
	}
	if a.GridConnectionType != GridPurchaseOnly && a.GridConnectionType != GridPurchaseSell {
		v.failf("advanced_settings.grid_connection_type %q is not one of %s, %s",
			a.GridConnectionType, GridPurchaseOnly, GridPurchaseSell)
	}
	if a.WACCCalculation {
		v.fraction("advanced_settings.cost_of_equity", a.CostOfEquity)
		v.fraction("advanced_settings.cost_of_debt", a.CostOfDebt)
		v.fraction("advanced_settings.tax", a.Tax)
		v.fraction("advanced_settings.equity_share", a.EquityShare)
		v.fraction("advanced_settings.debt_share", a.DebtShare)
		if s := a.EquityShare + a.DebtShare; math.Abs(s-1) > 1e-6 {
			v.failf("advanced_settings.equity_share + debt_share = %v, want 1", s)
		}
	}
}

func (c *Config) validateLifetime(v *validator, name string, life, existingYears int) {
	if life < 1 {
		v.failf("%s must be >= 1, got %d", name, life)
		return
	}
	if !c.Advanced.Brownfield && life < c.Project.TimeHorizon {
		v.failf("%s %d is shorter than time_horizon %d", name, life, c.Project.TimeHorizon)
	}
	if existingYears < 0 {
		v.failf("%s: existing years must be >= 0, got %d", name, existingYears)
	}
}

func (c *Config) validateRenewables(v *validator) {
	r := c.Resource
	n := len(r.ResNames)
	if r.ResSources != n {
		v.failf("resource_assessment.res_sources is %d but %d res_names are given", r.ResSources, n)
	}
	if n == 0 && !c.HasGenerator() && !c.HasGrid() {
		v.failf("resource_assessment.res_names is empty and nothing else can serve demand")
	}
	seen := map[string]bool{}
	for _, name := range r.ResNames {
		if seen[name] {
			v.failf("resource_assessment.res_names has duplicate %q", name)
		}
		seen[name] = true
	}
	rp := c.Renewables
	start := len(v.errs)
	v.length("resource_assessment.res_nominal_capacity", len(r.ResNominalCapacity), n)
	v.length("renewables_params.res_inverter_efficiency", len(rp.ResInverterEfficiency), n)
	v.length("renewables_params.res_specific_investment_cost", len(rp.ResSpecificInvestmentCost), n)
	v.length("renewables_params.res_specific_om_cost", len(rp.ResSpecificOMCost), n)
	v.length("renewables_params.res_lifetime", len(rp.ResLifetime), n)
	v.optional("renewables_params.res_specific_area", len(rp.ResSpecificArea), n)
	v.optional("renewables_params.res_unit_co2_emission", len(rp.ResUnitCO2Emission), n)
	v.optional("renewables_params.res_existing_capacity", len(rp.ResExistingCapacity), n)
	v.optional("renewables_params.res_existing_years", len(rp.ResExistingYears), n)
	v.optional("renewables_params.res_max_units", len(rp.ResMaxUnits), n)
	if c.Project.LandAvailability > 0 {
		v.length("renewables_params.res_specific_area", len(rp.ResSpecificArea), n)
	}
	if len(v.errs) > start {
		return
	}
	for i, name := range r.ResNames {
		v.positive(fmt.Sprintf("res_nominal_capacity[%s]", name), r.ResNominalCapacity[i])
		v.efficiency(fmt.Sprintf("res_inverter_efficiency[%s]", name), rp.ResInverterEfficiency[i])
		v.nonNegative(fmt.Sprintf("res_specific_investment_cost[%s]", name), rp.ResSpecificInvestmentCost[i])
		v.fraction(fmt.Sprintf("res_specific_om_cost[%s]", name), rp.ResSpecificOMCost[i])
		v.nonNegative(fmt.Sprintf("res_specific_area[%s]", name), At(rp.ResSpecificArea, i))
		v.nonNegative(fmt.Sprintf("res_unit_co2_emission[%s]", name), At(rp.ResUnitCO2Emission, i))
		v.nonNegative(fmt.Sprintf("res_existing_capacity[%s]", name), At(rp.ResExistingCapacity, i))
		v.nonNegative(fmt.Sprintf("res_max_units[%s]", name), At(rp.ResMaxUnits, i))
		c.validateLifetime(v, fmt.Sprintf("res_lifetime[%s]", name), rp.ResLifetime[i], AtInt(rp.ResExistingYears, i))
	}
}

func (c *Config) validateBattery(v *validator) {
	b := c.Battery
	v.positive("battery_params.battery_nominal_capacity", b.BatteryNominalCapacity)
	v.nonNegative("battery_params.battery_specific_investment_cost", b.BatterySpecificInvestmentCost)
	v.nonNegative("battery_params.battery_specific_electronic_investment_cost", b.BatterySpecificElectronicInvestmentCost)
	if b.BatterySpecificElectronicInvestmentCost > b.BatterySpecificInvestmentCost {
		v.failf("battery_params.battery_specific_electronic_investment_cost exceeds battery_specific_investment_cost")
	}
	v.fraction("battery_params.battery_specific_om_cost", b.BatterySpecificOMCost)
	v.efficiency("battery_params.battery_charge_battery_efficiency", b.BatteryChargeEfficiency)
	v.efficiency("battery_params.battery_discharge_battery_efficiency", b.BatteryDischargeEfficiency)
	v.fraction("battery_params.battery_initial_soc", b.BatteryInitialSOC)
	v.fraction("battery_params.battery_depth_of_discharge", b.BatteryDepthOfDischarge)
	if b.BatteryDepthOfDischarge >= 1 {
		v.failf("battery_params.battery_depth_of_discharge must be < 1")
	}
	if b.BatteryInitialSOC < b.BatteryDepthOfDischarge {
		v.failf("battery_params.battery_initial_soc %v is below depth of discharge %v",
			b.BatteryInitialSOC, b.BatteryDepthOfDischarge)
	}
	v.positive("battery_params.maximum_battery_charge_time", b.MaximumBatteryChargeTime)
	v.positive("battery_params.maximum_battery_discharge_time", b.MaximumBatteryDischargeTime)
	v.positive("battery_params.battery_cycles", b.BatteryCycles)
	v.nonNegative("battery_params.battery_unit_co2_emission", b.BatteryUnitCO2Emission)
	v.nonNegative("battery_params.battery_existing_capacity", b.BatteryExistingCapacity)
	v.nonNegative("battery_params.battery_max_units", b.BatteryMaxUnits)
	c.validateLifetime(v, "battery_params.battery_expected_lifetime", b.BatteryExpectedLifetime, b.BatteryExistingYears)
}

func (c *Config) validateGenerators(v *validator) {
	g := c.Generator
	n := len(g.GenNames)
	if g.GenTypes != n {
		v.failf("generator_params.gen_types is %d but %d gen_names are given", g.GenTypes, n)
	}
	if n == 0 {
		v.failf("generator_params.gen_names is empty for %s", c.Project.SystemConfiguration)
	}
	start := len(v.errs)
	v.length("generator_params.gen_nominal_capacity", len(g.GenNominalCapacity), n)
	v.length("generator_params.gen_nominal_efficiency", len(g.GenNominalEfficiency), n)
	v.length("generator_params.gen_specific_investment_cost", len(g.GenSpecificInvestmentCost), n)
	v.length("generator_params.gen_specific_om_cost", len(g.GenSpecificOMCost), n)
	v.length("generator_params.gen_lifetime", len(g.GenLifetime), n)
	v.length("generator_params.fuel_lhv", len(g.FuelLHV), n)
	v.length("generator_params.fuel_specific_cost", len(g.FuelSpecificCost), n)
	v.optional("generator_params.fuel_names", len(g.FuelNames), n)
	v.optional("generator_params.gen_unit_co2_emission", len(g.GenUnitCO2Emission), n)
	v.optional("generator_params.fuel_co2_emission", len(g.FuelCO2Emission), n)
	v.optional("generator_params.gen_existing_capacity", len(g.GenExistingCapacity), n)
	v.optional("generator_params.gen_existing_years", len(g.GenExistingYears), n)
	v.optional("generator_params.gen_max_units", len(g.GenMaxUnits), n)
	if c.PartialLoad() {
		v.length("generator_params.gen_min_output", len(g.GenMinOutput), n)
		v.length("generator_params.gen_cost_increase", len(g.GenCostIncrease), n)
	} else {
		v.optional("generator_params.gen_min_output", len(g.GenMinOutput), n)
		v.optional("generator_params.gen_cost_increase", len(g.GenCostIncrease), n)
	}
	if len(v.errs) > start {
		return
	}
	for i, name := range g.GenNames {
		v.positive(fmt.Sprintf("gen_nominal_capacity[%s]", name), g.GenNominalCapacity[i])
		v.efficiency(fmt.Sprintf("gen_nominal_efficiency[%s]", name), g.GenNominalEfficiency[i])
		v.nonNegative(fmt.Sprintf("gen_specific_investment_cost[%s]", name), g.GenSpecificInvestmentCost[i])
		v.fraction(fmt.Sprintf("gen_specific_om_cost[%s]", name), g.GenSpecificOMCost[i])
		v.positive(fmt.Sprintf("fuel_lhv[%s]", name), g.FuelLHV[i])
		v.nonNegative(fmt.Sprintf("gen_unit_co2_emission[%s]", name), At(g.GenUnitCO2Emission, i))
		v.nonNegative(fmt.Sprintf("fuel_co2_emission[%s]", name), At(g.FuelCO2Emission, i))
		v.nonNegative(fmt.Sprintf("gen_existing_capacity[%s]", name), At(g.GenExistingCapacity, i))
		v.nonNegative(fmt.Sprintf("gen_max_units[%s]", name), At(g.GenMaxUnits, i))
		v.fraction(fmt.Sprintf("gen_min_output[%s]", name), At(g.GenMinOutput, i))
		v.fraction(fmt.Sprintf("gen_cost_increase[%s]", name), At(g.GenCostIncrease, i))
		c.validateLifetime(v, fmt.Sprintf("gen_lifetime[%s]", name), g.GenLifetime[i], AtInt(g.GenExistingYears, i))

		row := g.FuelSpecificCost[i]
		if len(row) != 1 && len(row) != c.Project.TimeHorizon {
			v.failf("fuel_specific_cost[%s] has %d years, want 1 or %d", name, len(row), c.Project.TimeHorizon)
		}
		for y, cost := range row {
			v.nonNegative(fmt.Sprintf("fuel_specific_cost[%s][%d]", name, y), cost)
		}
	}
}

func (c *Config) validateGrid(v *validator) {
	g := c.Grid
	if g.YearGridConnection < 1 || g.YearGridConnection > c.Project.TimeHorizon {
		v.failf("grid_params.year_grid_connection must be in [1, %d], got %d", c.Project.TimeHorizon, g.YearGridConnection)
	}
	v.positive("grid_params.maximum_grid_power", g.MaximumGridPower)
	v.nonNegative("grid_params.grid_distance", g.GridDistance)
	v.nonNegative("grid_params.grid_connection_cost", g.GridConnectionCost)
	v.fraction("grid_params.grid_maintenance_cost", g.GridMaintenanceCost)
	v.nonNegative("grid_params.national_grid_specific_co2_emissions", g.NationalGridSpecificCO2Emission)
	for _, pr := range []struct {
		name   string
		prices []float64
	}{
		{"grid_electricity_purchase_price", g.GridElectricityPurchasePrice},
		{"grid_electricity_sell_price", g.GridElectricitySellPrice},
	} {
		name, prices := pr.name, pr.prices
		if len(prices) > 1 && len(prices) != c.Project.TimeHorizon {
			v.failf("grid_params.%s has %d years, want 1 or %d", name, len(prices), c.Project.TimeHorizon)
		}
		for _, p := range prices {
			v.nonNegative("grid_params."+name, p)
		}
	}
}
