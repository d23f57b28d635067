package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"microgrid-planner/internal/model"

	"gopkg.in/yaml.v3"
)

// Optimization goals.
const (
	GoalNPC          = "NPC"
	GoalVariableCost = "VariableCost"
)

// System configurations.
const (
	SystemResBatGen = "RES+Bat+Gen"
	SystemResBat    = "RES+Bat"
	SystemResGen    = "RES+Gen"
)

// Grid connection types.
const (
	GridPurchaseOnly = "PurchaseOnly"
	GridPurchaseSell = "PurchaseSell"
)

// DefaultTimeResolution is the number of hourly periods in a year.
const DefaultTimeResolution = 8760

// Config is the on-disk parameter bundle (YAML).
type Config struct {
	Project    ProjectSettings    `yaml:"project_settings" json:"project_settings"`
	Advanced   AdvancedSettings   `yaml:"advanced_settings" json:"advanced_settings"`
	Resource   ResourceAssessment `yaml:"resource_assessment" json:"resource_assessment"`
	Renewables RenewablesParams   `yaml:"renewables_params" json:"renewables_params"`
	Battery    BatteryParams      `yaml:"battery_params" json:"battery_params"`
	Generator  GeneratorParams    `yaml:"generator_params" json:"generator_params"`
	Grid       GridParams         `yaml:"grid_params" json:"grid_params"`
	Archetypes ArchetypesParams   `yaml:"archetypes_params" json:"archetypes_params"`
	Solver     SolverSettings     `yaml:"solver" json:"solver"`
}

type ProjectSettings struct {
	Name                 string  `yaml:"name,omitempty" json:"name,omitempty"`
	TimeHorizon          int     `yaml:"time_horizon" json:"time_horizon"`
	StartDate            string  `yaml:"start_date" json:"start_date"`
	TimeResolution       int     `yaml:"time_resolution" json:"time_resolution"`
	DiscountRate         float64 `yaml:"discount_rate" json:"discount_rate"`
	Currency             string  `yaml:"currency" json:"currency"`
	OptimizationGoal     string  `yaml:"optimization_goal" json:"optimization_goal"`
	InvestmentCostLimit  float64 `yaml:"investment_cost_limit" json:"investment_cost_limit"`
	SystemConfiguration  string  `yaml:"system_configuration" json:"system_configuration"`
	RenewablePenetration float64 `yaml:"renewable_penetration" json:"renewable_penetration"`
	// BatteryIndependence is in days.
	BatteryIndependence  int     `yaml:"battery_independence" json:"battery_independence"`
	LostLoadFraction     float64 `yaml:"lost_load_fraction" json:"lost_load_fraction"`
	LostLoadSpecificCost float64 `yaml:"lost_load_specific_cost" json:"lost_load_specific_cost"`
	LandAvailability     float64 `yaml:"land_availability" json:"land_availability"`
}

type AdvancedSettings struct {
	Brownfield                 bool      `yaml:"brownfield" json:"brownfield"`
	MILPFormulation            bool      `yaml:"milp_formulation" json:"milp_formulation"`
	UnitCommitment             bool      `yaml:"unit_commitment" json:"unit_commitment"`
	CapacityExpansion          bool      `yaml:"capacity_expansion" json:"capacity_expansion"`
	StepDuration               int       `yaml:"step_duration" json:"step_duration"`
	NumSteps                   int       `yaml:"num_steps" json:"num_steps"`
	GridConnection             bool      `yaml:"grid_connection" json:"grid_connection"`
	GridConnectionType         string    `yaml:"grid_connection_type" json:"grid_connection_type"`
	GridAvailabilitySimulation bool      `yaml:"grid_availability_simulation" json:"grid_availability_simulation"`
	WACCCalculation            bool      `yaml:"wacc_calculation" json:"wacc_calculation"`
	CostOfEquity               float64   `yaml:"cost_of_equity" json:"cost_of_equity"`
	CostOfDebt                 float64   `yaml:"cost_of_debt" json:"cost_of_debt"`
	Tax                        float64   `yaml:"tax" json:"tax"`
	EquityShare                float64   `yaml:"equity_share" json:"equity_share"`
	DebtShare                  float64   `yaml:"debt_share" json:"debt_share"`
	MultiobjectiveOptimization bool      `yaml:"multiobjective_optimization" json:"multiobjective_optimization"`
	ParetoPoints               int       `yaml:"pareto_points" json:"pareto_points"`
	MultiScenarioOptimization  bool      `yaml:"multi_scenario_optimization" json:"multi_scenario_optimization"`
	NumScenarios               int       `yaml:"num_scenarios" json:"num_scenarios"`
	ScenarioWeights            []float64 `yaml:"scenario_weights" json:"scenario_weights"`
	// GeneratorDemandCap bounds generator output by same-period demand.
	// Defaults to true.
	GeneratorDemandCap *bool `yaml:"generator_demand_cap,omitempty" json:"generator_demand_cap,omitempty"`
}

type ResourceAssessment struct {
	ResSources         int       `yaml:"res_sources" json:"res_sources"`
	ResNames           []string  `yaml:"res_names" json:"res_names"`
	ResNominalCapacity []float64 `yaml:"res_nominal_capacity" json:"res_nominal_capacity"`
}

// RenewablesParams are per-source vectors aligned with res_names.
// Optional vectors may be left empty, meaning zero for every source.
type RenewablesParams struct {
	ResInverterEfficiency     []float64 `yaml:"res_inverter_efficiency" json:"res_inverter_efficiency"`
	ResSpecificArea           []float64 `yaml:"res_specific_area,omitempty" json:"res_specific_area,omitempty"`
	ResSpecificInvestmentCost []float64 `yaml:"res_specific_investment_cost" json:"res_specific_investment_cost"`
	ResSpecificOMCost         []float64 `yaml:"res_specific_om_cost" json:"res_specific_om_cost"`
	ResLifetime               []int     `yaml:"res_lifetime" json:"res_lifetime"`
	ResUnitCO2Emission        []float64 `yaml:"res_unit_co2_emission,omitempty" json:"res_unit_co2_emission,omitempty"`
	ResExistingCapacity       []float64 `yaml:"res_existing_capacity,omitempty" json:"res_existing_capacity,omitempty"`
	ResExistingYears          []int     `yaml:"res_existing_years,omitempty" json:"res_existing_years,omitempty"`
	ResMaxUnits               []float64 `yaml:"res_max_units,omitempty" json:"res_max_units,omitempty"`
}

type BatteryParams struct {
	BatteryNominalCapacity                  float64 `yaml:"battery_nominal_capacity" json:"battery_nominal_capacity"`
	BatterySpecificInvestmentCost           float64 `yaml:"battery_specific_investment_cost" json:"battery_specific_investment_cost"`
	BatterySpecificElectronicInvestmentCost float64 `yaml:"battery_specific_electronic_investment_cost" json:"battery_specific_electronic_investment_cost"`
	BatterySpecificOMCost                   float64 `yaml:"battery_specific_om_cost" json:"battery_specific_om_cost"`
	BatteryDischargeEfficiency              float64 `yaml:"battery_discharge_battery_efficiency" json:"battery_discharge_battery_efficiency"`
	BatteryChargeEfficiency                 float64 `yaml:"battery_charge_battery_efficiency" json:"battery_charge_battery_efficiency"`
	BatteryInitialSOC                       float64 `yaml:"battery_initial_soc" json:"battery_initial_soc"`
	BatteryDepthOfDischarge                 float64 `yaml:"battery_depth_of_discharge" json:"battery_depth_of_discharge"`
	MaximumBatteryDischargeTime             float64 `yaml:"maximum_battery_discharge_time" json:"maximum_battery_discharge_time"`
	MaximumBatteryChargeTime                float64 `yaml:"maximum_battery_charge_time" json:"maximum_battery_charge_time"`
	BatteryCycles                           float64 `yaml:"battery_cycles" json:"battery_cycles"`
	BatteryExpectedLifetime                 int     `yaml:"battery_expected_lifetime" json:"battery_expected_lifetime"`
	BatteryUnitCO2Emission                  float64 `yaml:"battery_unit_co2_emission" json:"battery_unit_co2_emission"`
	BatteryExistingCapacity                 float64 `yaml:"battery_existing_capacity,omitempty" json:"battery_existing_capacity,omitempty"`
	BatteryExistingYears                    int     `yaml:"battery_existing_years,omitempty" json:"battery_existing_years,omitempty"`
	BatteryMaxUnits                         float64 `yaml:"battery_max_units,omitempty" json:"battery_max_units,omitempty"`
}

// GeneratorParams are per-type vectors aligned with gen_names.
type GeneratorParams struct {
	GenTypes                  int       `yaml:"gen_types" json:"gen_types"`
	GenNames                  []string  `yaml:"gen_names" json:"gen_names"`
	GenNominalCapacity        []float64 `yaml:"gen_nominal_capacity" json:"gen_nominal_capacity"`
	GenNominalEfficiency      []float64 `yaml:"gen_nominal_efficiency" json:"gen_nominal_efficiency"`
	GenSpecificInvestmentCost []float64 `yaml:"gen_specific_investment_cost" json:"gen_specific_investment_cost"`
	GenSpecificOMCost         []float64 `yaml:"gen_specific_om_cost" json:"gen_specific_om_cost"`
	GenLifetime               []int     `yaml:"gen_lifetime" json:"gen_lifetime"`
	GenUnitCO2Emission        []float64 `yaml:"gen_unit_co2_emission,omitempty" json:"gen_unit_co2_emission,omitempty"`
	GenExistingCapacity       []float64 `yaml:"gen_existing_capacity,omitempty" json:"gen_existing_capacity,omitempty"`
	GenExistingYears          []int     `yaml:"gen_existing_years,omitempty" json:"gen_existing_years,omitempty"`
	GenMaxUnits               []float64 `yaml:"gen_max_units,omitempty" json:"gen_max_units,omitempty"`
	FuelNames                 []string  `yaml:"fuel_names,omitempty" json:"fuel_names,omitempty"`
	// FuelLHV is in Wh/L.
	FuelLHV []float64 `yaml:"fuel_lhv" json:"fuel_lhv"`
	// FuelCO2Emission is in kg/L.
	FuelCO2Emission []float64 `yaml:"fuel_co2_emission,omitempty" json:"fuel_co2_emission,omitempty"`
	// FuelSpecificCost is [generator][year] in currency/L; a single-value
	// row applies to every year.
	FuelSpecificCost [][]float64 `yaml:"fuel_specific_cost" json:"fuel_specific_cost"`
	GenMinOutput     []float64   `yaml:"gen_min_output,omitempty" json:"gen_min_output,omitempty"`
	GenCostIncrease  []float64   `yaml:"gen_cost_increase,omitempty" json:"gen_cost_increase,omitempty"`
}

type GridParams struct {
	YearGridConnection              int     `yaml:"year_grid_connection" json:"year_grid_connection"`
	GridDistance                    float64 `yaml:"grid_distance" json:"grid_distance"`
	GridConnectionCost              float64 `yaml:"grid_connection_cost" json:"grid_connection_cost"`
	GridMaintenanceCost             float64 `yaml:"grid_maintenance_cost" json:"grid_maintenance_cost"`
	MaximumGridPower                float64 `yaml:"maximum_grid_power" json:"maximum_grid_power"`
	NationalGridSpecificCO2Emission float64 `yaml:"national_grid_specific_co2_emissions" json:"national_grid_specific_co2_emissions"`
	// Prices are per year in currency/Wh; a single value applies to every year.
	GridElectricityPurchasePrice []float64 `yaml:"grid_electricity_purchase_price,omitempty" json:"grid_electricity_purchase_price,omitempty"`
	GridElectricitySellPrice     []float64 `yaml:"grid_electricity_sell_price,omitempty" json:"grid_electricity_sell_price,omitempty"`
}

// ArchetypesParams feed the demand generator; the optimizer ignores them.
type ArchetypesParams struct {
	DemandCalculation bool        `yaml:"demand_calculation" json:"demand_calculation"`
	Latitude          float64     `yaml:"latitude,omitempty" json:"latitude,omitempty"`
	Archetypes        []Archetype `yaml:"archetypes,omitempty" json:"archetypes,omitempty"`
}

type Archetype struct {
	Name  string `yaml:"name" json:"name"`
	Count int    `yaml:"count" json:"count"`
}

// SolverSettings select the backend and its tuning profile.
type SolverSettings struct {
	Name        string            `yaml:"name" json:"name"`
	Profile     string            `yaml:"profile" json:"profile"`
	TimeLimit   float64           `yaml:"time_limit,omitempty" json:"time_limit,omitempty"`
	MIPGap      float64           `yaml:"mip_gap,omitempty" json:"mip_gap,omitempty"`
	NodeLimit   int               `yaml:"node_limit,omitempty" json:"node_limit,omitempty"`
	Tolerance   float64           `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	ProblemFile string            `yaml:"problem_file,omitempty" json:"problem_file,omitempty"`
	LogPath     string            `yaml:"log_path,omitempty" json:"log_path,omitempty"`
	Extra       map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Load reads, defaults and validates a configuration document.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked parses a configuration document without defaults or
// validation. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes a YAML (or JSON) document.
func Parse(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	return &c, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// HasBattery reports whether the system configuration includes storage.
func (c *Config) HasBattery() bool {
	return c.Project.SystemConfiguration != SystemResGen
}

// HasGenerator reports whether the system configuration includes generators.
func (c *Config) HasGenerator() bool {
	return c.Project.SystemConfiguration != SystemResBat
}

// HasGrid reports whether the national grid tie is modeled.
func (c *Config) HasGrid() bool {
	return c.Advanced.GridConnection
}

// PartialLoad reports whether unit commitment with partial-load curves is on.
func (c *Config) PartialLoad() bool {
	return c.Advanced.MILPFormulation && c.Advanced.UnitCommitment && c.HasGenerator()
}

// GeneratorDemandCapEnabled defaults to true when unset.
func (c *Config) GeneratorDemandCapEnabled() bool {
	return c.Advanced.GeneratorDemandCap == nil || *c.Advanced.GeneratorDemandCap
}

// StartYear parses the calendar year of start_date.
func (c *Config) StartYear() (int, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006"} {
		if t, err := time.Parse(layout, c.Project.StartDate); err == nil {
			return t.Year(), nil
		}
	}
	return 0, fmt.Errorf("start_date %q is not an ISO-8601 date", c.Project.StartDate)
}

// FuelCost returns the fuel specific cost of generator g in year index y (0-based).
func (c *Config) FuelCost(g, y int) float64 {
	return broadcast(c.Generator.FuelSpecificCost[g], y)
}

// PurchasePrice returns the grid purchase price in year index y (0-based).
func (c *Config) PurchasePrice(y int) float64 {
	return broadcast(c.Grid.GridElectricityPurchasePrice, y)
}

// SellPrice returns the grid sell price in year index y (0-based).
func (c *Config) SellPrice(y int) float64 {
	return broadcast(c.Grid.GridElectricitySellPrice, y)
}

func broadcast(v []float64, i int) float64 {
	switch {
	case len(v) == 0:
		return 0
	case len(v) == 1:
		return v[0]
	case i < len(v):
		return v[i]
	}
	return v[len(v)-1]
}

// At returns v[i], or 0 for an empty optional vector.
func At(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// AtInt returns v[i], or 0 for an empty optional vector.
func AtInt(v []int, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// ApplyDefaults fills unset fields and derived values. It is idempotent.
func (c *Config) ApplyDefaults() {
	p := &c.Project
	a := &c.Advanced

	if p.TimeResolution == 0 {
		p.TimeResolution = DefaultTimeResolution
	}
	if p.Currency == "" {
		p.Currency = "USD"
	}
	if p.OptimizationGoal == "" {
		p.OptimizationGoal = GoalNPC
	}
	if p.SystemConfiguration == "" {
		p.SystemConfiguration = SystemResBatGen
	}

	if !a.CapacityExpansion || a.StepDuration <= 0 || a.StepDuration > p.TimeHorizon {
		a.StepDuration = p.TimeHorizon
	}
	a.NumSteps = model.NumSteps(p.TimeHorizon, a.StepDuration)

	if !a.MultiScenarioOptimization {
		a.NumScenarios = 1
		a.ScenarioWeights = nil
	} else if a.NumScenarios <= 0 {
		a.NumScenarios = 1
	}
	if len(a.ScenarioWeights) == 0 {
		a.ScenarioWeights = make([]float64, a.NumScenarios)
		for i := range a.ScenarioWeights {
			a.ScenarioWeights[i] = 1 / float64(a.NumScenarios)
		}
	}
	if a.ParetoPoints == 0 {
		a.ParetoPoints = 3
	}
	if a.GridConnectionType == "" {
		a.GridConnectionType = GridPurchaseOnly
	}
	if a.GeneratorDemandCap == nil {
		on := true
		a.GeneratorDemandCap = &on
	}
	if a.WACCCalculation && a.EquityShare+a.DebtShare == 0 {
		a.DebtShare = 1
	}

	if c.Resource.ResSources == 0 {
		c.Resource.ResSources = len(c.Resource.ResNames)
	}
	if c.Generator.GenTypes == 0 {
		c.Generator.GenTypes = len(c.Generator.GenNames)
	}
	if c.HasGrid() && c.Grid.YearGridConnection == 0 {
		c.Grid.YearGridConnection = 1
	}

	if !c.HasBattery() {
		c.Battery = BatteryParams{}
	}
	if !c.HasGenerator() {
		c.Generator = GeneratorParams{}
	}

	if c.Solver.Name == "" {
		c.Solver.Name = "gonum"
	}
	if c.Solver.Profile == "" {
		c.Solver.Profile = "default"
	}
}
