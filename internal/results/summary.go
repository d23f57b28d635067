package results

import (
	"microgrid-planner/internal/formulation"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// Capacity is the installed size of one technology in one step.
type Capacity struct {
	Name  string  `json:"name"`
	Units float64 `json:"units"`
	// Size is units·nominal: W for converters, Wh for storage.
	Size float64 `json:"size"`
}

// StepSizing lists installed capacity per investment step. Existing
// brownfield capacity is not included.
type StepSizing struct {
	Step       int        `json:"step"`
	Years      []int      `json:"years"`
	Renewables []Capacity `json:"renewables,omitempty"`
	Battery    *Capacity  `json:"battery,omitempty"`
	Generators []Capacity `json:"generators,omitempty"`
}

// YearEnergy is the energy-use breakdown of one scenario and year, in Wh.
type YearEnergy struct {
	Scenario       int     `json:"scenario"`
	Year           int     `json:"year"`
	Demand         float64 `json:"demand"`
	Renewable      float64 `json:"renewable"`
	Curtailment    float64 `json:"curtailment"`
	BatteryInflow  float64 `json:"battery_inflow"`
	BatteryOutflow float64 `json:"battery_outflow"`
	Generator      float64 `json:"generator"`
	GridImport     float64 `json:"grid_import"`
	GridExport     float64 `json:"grid_export"`
	LostLoad       float64 `json:"lost_load"`
	// RenewableShare is renewable / (renewable + generator + grid import).
	RenewableShare float64 `json:"renewable_share"`
}

// CostBreakdown reports the cost variables in currency, rounded to cents.
// Per-scenario components are scenario-weighted and actualized.
type CostBreakdown struct {
	Investment           decimal.Decimal `json:"investment"`
	OperationMaintenance decimal.Decimal `json:"operation_maintenance"`
	BatteryReplacement   decimal.Decimal `json:"battery_replacement"`
	Fuel                 decimal.Decimal `json:"fuel"`
	LostLoad             decimal.Decimal `json:"lost_load"`
	Grid                 decimal.Decimal `json:"grid"`
	Salvage              decimal.Decimal `json:"salvage"`
	NetPresentCost       decimal.Decimal `json:"net_present_cost"`
	TotalVariableCost    decimal.Decimal `json:"total_variable_cost"`
}

// Summary is the post-processed view of one solution.
type Summary struct {
	Project   string  `json:"project"`
	Currency  string  `json:"currency,omitempty"`
	Solver    string  `json:"solver"`
	Status    string  `json:"status"`
	Objective float64 `json:"objective"`
	CO2       float64 `json:"co2,omitempty"`

	Sizing []StepSizing  `json:"sizing"`
	Energy []YearEnergy  `json:"energy"`
	Costs  CostBreakdown `json:"costs"`
	// LCOE is NPC over discounted scenario-weighted demand, currency/kWh.
	LCOE decimal.Decimal `json:"lcoe"`
}

func cents(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

// Summarize post-processes sol, or the model's kept solution when sol is nil.
func Summarize(m *formulation.Model, sol *formulation.Solution) (*Summary, error) {
	v, err := newView(m, sol)
	if err != nil {
		return nil, err
	}
	cfg := m.Config()
	out := &Summary{
		Project:   cfg.Project.Name,
		Currency:  cfg.Project.Currency,
		Solver:    v.sol.Solver,
		Status:    v.sol.Status,
		Objective: v.sol.Objective,
		CO2:       v.sol.CO2,
		Sizing:    v.sizing(),
		Energy:    v.energy(),
		Costs:     v.costs(),
	}
	out.LCOE = v.lcoe()
	return out, nil
}

func (v *view) sizing() []StepSizing {
	cfg := v.m.Config()
	var out []StepSizing
	for k, step := range v.sets.Steps {
		st := StepSizing{Step: step}
		for _, y := range v.sets.YearsOfStep(k) {
			st.Years = append(st.Years, v.sets.Years[y])
		}
		for r, name := range v.sets.RenewableSources {
			u := v.resUnits.At(k, r)
			st.Renewables = append(st.Renewables, Capacity{Name: name, Units: u, Size: u * cfg.Resource.ResNominalCapacity[r]})
		}
		if v.batUnits != nil {
			u := v.batUnits.At(k)
			st.Battery = &Capacity{Name: "Battery", Units: u, Size: u * cfg.Battery.BatteryNominalCapacity}
		}
		for g, name := range v.sets.GeneratorTypes {
			u := v.genUnits.At(k, g)
			st.Generators = append(st.Generators, Capacity{Name: name, Units: u, Size: u * cfg.Generator.GenNominalCapacity[g]})
		}
		out = append(out, st)
	}
	return out
}

func (v *view) energy() []YearEnergy {
	var out []YearEnergy
	for s, scenario := range v.sets.Scenarios {
		for y, year := range v.sets.Years {
			e := YearEnergy{Scenario: scenario, Year: year}
			for t := range v.sets.Periods {
				p := v.period(s, y, t)
				e.Demand += p.demand
				e.Renewable += p.renewable
				e.Curtailment += p.curtailment
				e.BatteryInflow += p.batIn
				e.BatteryOutflow += p.batOut
				e.Generator += p.generator
				e.GridImport += p.fromGrid
				e.GridExport += p.toGrid
				e.LostLoad += p.lostLoad
			}
			if supply := e.Renewable + e.Generator + e.GridImport; supply > 0 {
				e.RenewableShare = e.Renewable / supply
			}
			out = append(out, e)
		}
	}
	return out
}

func (v *view) costs() CostBreakdown {
	weighted := func(name string) float64 {
		sum := 0.0
		for s := range v.sets.Scenarios {
			sum += v.par.ScenarioWeights[s] * v.perScenario(name, s)
		}
		return sum
	}
	return CostBreakdown{
		Investment:           cents(v.scalar(formulation.VarInvestment)),
		OperationMaintenance: cents(v.scalar(formulation.VarOMAct)),
		BatteryReplacement:   cents(weighted(formulation.VarReplacementAct)),
		Fuel:                 cents(weighted(formulation.VarFuelAct)),
		LostLoad:             cents(weighted(formulation.VarLostLoadCostAct)),
		Grid:                 cents(weighted(formulation.VarGridCostAct)),
		Salvage:              cents(v.scalar(formulation.VarSalvage)),
		NetPresentCost:       cents(v.scalar(formulation.VarNPC)),
		TotalVariableCost:    cents(v.scalar(formulation.VarTotalVariable)),
	}
}

// lcoe divides NPC by Σ_s w_s Σ_y DF_y·demand_s,y in kWh, rounded to four
// places. Zero demand gives zero.
func (v *view) lcoe() decimal.Decimal {
	yearly := make([]float64, 0, len(v.sets.Scenarios)*len(v.sets.Years))
	P := len(v.sets.Periods)
	col := make([]float64, P)
	for s := range v.sets.Scenarios {
		for y := range v.sets.Years {
			for t := 0; t < P; t++ {
				col[t] = v.ts.Demand.At(s, t, y)
			}
			yearly = append(yearly, v.par.ScenarioWeights[s]*v.par.YearDF[y]*floats.Sum(col)/1000)
		}
	}
	kwh := floats.Sum(yearly)
	if kwh <= 0 {
		return decimal.Zero
	}
	npc := decimal.NewFromFloat(v.scalar(formulation.VarNPC))
	return npc.Div(decimal.NewFromFloat(kwh)).Round(4)
}
