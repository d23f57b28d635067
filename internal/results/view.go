// Package results post-processes a solved formulation: sizing, energy and
// cost breakdowns, invariant checks, and the hourly dispatch ledger.
package results

import (
	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/model"
)

// view is a solution's arrays next to the model they came from. Arrays the
// formulation did not produce are nil.
type view struct {
	m   *formulation.Model
	sol *formulation.Solution

	sets *model.Sets
	par  *formulation.Parameters
	ts   *model.TimeSeries

	resUnits, resProd, curtailment  *model.Array
	batUnits, batIn, batOut, batSOC *model.Array
	genUnits, genProd               *model.Array
	genFull, genPartial, genPE      *model.Array
	fromGrid, toGrid, lostLoad      *model.Array
}

func newView(m *formulation.Model, sol *formulation.Solution) (*view, error) {
	if m == nil {
		return nil, model.ErrModelNotSolved
	}
	if sol == nil {
		var err error
		if sol, err = m.Solution(); err != nil {
			return nil, err
		}
	}
	v := &view{m: m, sol: sol, sets: m.Sets(), par: m.Parameters(), ts: m.TimeSeries()}
	get := func(name string) *model.Array {
		if !sol.Has(name) {
			return nil
		}
		a, _ := sol.Variable(name)
		return a
	}
	v.resUnits = get(formulation.VarResUnits)
	v.resProd = get(formulation.VarResProduction)
	v.curtailment = get(formulation.VarCurtailment)
	v.batUnits = get(formulation.VarBatteryUnits)
	v.batIn = get(formulation.VarBatteryInflow)
	v.batOut = get(formulation.VarBatteryOutflow)
	v.batSOC = get(formulation.VarBatterySOC)
	v.genUnits = get(formulation.VarGeneratorUnits)
	v.genProd = get(formulation.VarGeneratorProduction)
	v.genFull = get(formulation.VarGeneratorFullLoad)
	v.genPartial = get(formulation.VarGeneratorPartialLoad)
	v.genPE = get(formulation.VarGeneratorPartialEner)
	v.fromGrid = get(formulation.VarFromGrid)
	v.toGrid = get(formulation.VarToGrid)
	v.lostLoad = get(formulation.VarLostLoad)
	return v, nil
}

func (v *view) scalar(name string) float64 {
	x, err := v.sol.Scalar(name)
	if err != nil {
		return 0
	}
	return x
}

// perScenario returns a scenario-indexed variable's value, zero when absent.
func (v *view) perScenario(name string, s int) float64 {
	if !v.sol.Has(name) {
		return 0
	}
	a, err := v.sol.Variable(name)
	if err != nil {
		return 0
	}
	return a.At(s)
}

func at(a *model.Array, idx ...int) float64 {
	if a == nil {
		return 0
	}
	return a.At(idx...)
}

// renewable returns delivered renewable energy of source r, existing
// capacity included and curtailment removed.
func (v *view) renewable(s, y, r, t int) float64 {
	k := v.sets.StepIndex(y)
	return v.resProd.At(s, k, r, t) + v.m.ExistingResProduction(s, y, r, t) - v.curtailment.At(s, y, r, t)
}

// batteryCapacity is installed storage in Wh for 0-based year y.
func (v *view) batteryCapacity(y int) float64 {
	if v.batUnits == nil {
		return 0
	}
	nom := v.m.Config().Battery.BatteryNominalCapacity
	return v.batUnits.At(v.sets.StepIndex(y))*nom + v.par.BatteryExisting[y]
}

// period holds every flow of one (scenario, year, period).
type period struct {
	demand      float64
	renewable   float64
	curtailment float64
	batIn       float64
	batOut      float64
	generator   float64
	fromGrid    float64
	toGrid      float64
	lostLoad    float64
}

func (v *view) period(s, y, t int) period {
	p := period{
		demand:   v.ts.Demand.At(s, t, y),
		batIn:    at(v.batIn, s, y, t),
		batOut:   at(v.batOut, s, y, t),
		fromGrid: at(v.fromGrid, s, y, t),
		toGrid:   at(v.toGrid, s, y, t),
		lostLoad: at(v.lostLoad, s, y, t),
	}
	for r := range v.sets.RenewableSources {
		p.renewable += v.renewable(s, y, r, t)
		p.curtailment += v.curtailment.At(s, y, r, t)
	}
	for g := range v.sets.GeneratorTypes {
		p.generator += v.genProd.At(s, y, g, t)
	}
	return p
}

// variableCost is the non-actualized operating cost of one period: fuel,
// battery wear, grid trade and lost load.
func (v *view) variableCost(s, y, t int) float64 {
	cfg := v.m.Config()
	k := v.sets.StepIndex(y)
	cost := 0.0
	for g := range v.sets.GeneratorTypes {
		mc := v.par.MarginalCost[g][y]
		if v.genFull == nil {
			cost += v.genProd.At(s, y, g, t) * mc
			continue
		}
		cost += v.genFull.At(k, g) * cfg.Generator.GenNominalCapacity[g] * mc
		cost += v.genPE.At(s, y, g, t) * v.par.PartialMarginalCost[g][y]
		cost += v.genPartial.At(s, y, g, t) * v.par.StartCost[g][y]
	}
	if v.batIn != nil {
		cost += (v.batIn.At(s, y, t) + v.batOut.At(s, y, t)) * v.par.BatteryReplacementCost
	}
	if v.fromGrid != nil {
		cost += v.fromGrid.At(s, y, t) * cfg.PurchasePrice(y)
		cost -= at(v.toGrid, s, y, t) * cfg.SellPrice(y)
	}
	cost += at(v.lostLoad, s, y, t) * cfg.Project.LostLoadSpecificCost
	return cost
}
