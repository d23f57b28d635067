package formulation

// Variable names.
const (
	VarResUnits             = "res_units"
	VarResProduction        = "res_energy_production"
	VarCurtailment          = "curtailment"
	VarBatteryUnits         = "battery_units"
	VarBatteryInflow        = "battery_inflow"
	VarBatteryOutflow       = "battery_outflow"
	VarBatterySOC           = "battery_soc"
	VarGeneratorUnits       = "generator_units"
	VarGeneratorProduction  = "generator_energy_production"
	VarGeneratorFullLoad    = "generator_full_load"
	VarGeneratorPartialLoad = "generator_partial_load"
	VarGeneratorPartialEner = "generator_energy_partial_load"
	VarFromGrid             = "energy_from_grid"
	VarToGrid               = "energy_to_grid"
	VarSingleFlowGrid       = "single_flow_grid"
	VarLostLoad             = "lost_load"

	VarInvestment        = "total_investment_cost"
	VarOMAct             = "operation_maintenance_cost_act"
	VarOMNonAct          = "operation_maintenance_cost_nonact"
	VarReplacementAct    = "battery_replacement_cost_act"
	VarReplacementNonAct = "battery_replacement_cost_nonact"
	VarFuelAct           = "total_fuel_cost_act"
	VarFuelNonAct        = "total_fuel_cost_nonact"
	VarLostLoadCostAct   = "scenario_lost_load_cost_act"
	VarLostLoadCostNon   = "scenario_lost_load_cost_nonact"
	VarGridCostAct       = "scenario_grid_cost_act"
	VarGridCostNonAct    = "scenario_grid_cost_nonact"
	VarScenarioVarAct    = "total_scenario_variable_cost_act"
	VarScenarioVarNon    = "total_scenario_variable_cost_nonact"
	VarSalvage           = "salvage_value"
	VarScenarioNPC       = "scenario_net_present_cost"
	VarNPC               = "net_present_cost"
	VarTotalVariable     = "total_variable_cost"

	VarResEmission          = "res_emission"
	VarBatteryEmission      = "battery_emission"
	VarGeneratorEmission    = "generator_emission"
	VarFuelEmission         = "fuel_emission"
	VarGridEmission         = "grid_emission"
	VarScenarioGridEmission = "scenario_grid_emission"
	VarScenarioCO2          = "scenario_co2_emission"
)

// Constraint names that are mutated after Build.
const (
	ConstraintInvestmentLimit = "investment_cost_limit"
	ConstraintCO2Cap          = "co2_cap"
)

// displayNames maps the stable human-readable result names to variables.
var displayNames = map[string]string{
	"Units of Renewables":                             VarResUnits,
	"Energy Production by Renewables":                 VarResProduction,
	"Curtailment by Renewables":                       VarCurtailment,
	"Battery Units":                                   VarBatteryUnits,
	"Battery Inflow":                                  VarBatteryInflow,
	"Battery Outflow":                                 VarBatteryOutflow,
	"Battery State of Charge":                         VarBatterySOC,
	"Generator Units":                                 VarGeneratorUnits,
	"Generator Energy Production":                     VarGeneratorProduction,
	"Generator Full Load Units":                       VarGeneratorFullLoad,
	"Generator Partial Load":                          VarGeneratorPartialLoad,
	"Generator Energy Partial Load":                   VarGeneratorPartialEner,
	"Energy from Grid":                                VarFromGrid,
	"Energy to Grid":                                  VarToGrid,
	"Single Flow Grid":                                VarSingleFlowGrid,
	"Lost Load":                                       VarLostLoad,
	"Total Investment Cost":                           VarInvestment,
	"Operation and Maintenance Cost":                  VarOMAct,
	"Operation and Maintenance Cost (Non Actualized)": VarOMNonAct,
	"Battery Replacement Cost":                        VarReplacementAct,
	"Total Fuel Cost":                                 VarFuelAct,
	"Lost Load Cost":                                  VarLostLoadCostAct,
	"Grid Cost":                                       VarGridCostAct,
	"Total Scenario Variable Cost":                    VarScenarioVarAct,
	"Salvage Value":                                   VarSalvage,
	"Scenario Net Present Cost":                       VarScenarioNPC,
	"Net Present Cost":                                VarNPC,
	"Total Variable Cost":                             VarTotalVariable,
	"Renewables Emission":                             VarResEmission,
	"Battery Emission":                                VarBatteryEmission,
	"Generator Emission":                              VarGeneratorEmission,
	"Fuel Emission":                                   VarFuelEmission,
	"Grid Emission":                                   VarGridEmission,
	"Scenario Grid Emission":                          VarScenarioGridEmission,
	"Scenario CO2 Emission":                           VarScenarioCO2,
}

// DisplayNames lists the human-readable names accepted by the accessor.
func DisplayNames() map[string]string {
	out := make(map[string]string, len(displayNames))
	for k, v := range displayNames {
		out[k] = v
	}
	return out
}
