package formulation

import (
	"microgrid-planner/internal/lp"
)

// bind emits v = e.
func bind(b *builder, name string, v lp.Var, e *lp.Expr) {
	b.add(name, lp.NewExpr().Add(v, 1).AddExpr(e, -1), lp.Equal, 0)
}

// yearWeight is the discount factor of 0-based year y when actualized,
// otherwise 1.
func (m *Model) yearWeight(y int, actualized bool) float64 {
	if actualized {
		return m.par.YearDF[y]
	}
	return 1
}

// capacityCost calls fn for every technology unit array element with its
// capital cost per unit.
func (m *Model) capacityCost(fn func(unit func(k int) lp.Var, perUnit float64, lifetime int)) {
	v := m.v
	for r := range m.sets.RenewableSources {
		r := r
		per := m.cfg.Resource.ResNominalCapacity[r] * m.cfg.Renewables.ResSpecificInvestmentCost[r]
		fn(func(k int) lp.Var { return v.resUnits.At(k, r) }, per, m.cfg.Renewables.ResLifetime[r])
	}
	if v.batUnits != nil {
		bp := m.cfg.Battery
		fn(func(k int) lp.Var { return v.batUnits.At(k) },
			bp.BatteryNominalCapacity*bp.BatterySpecificInvestmentCost, bp.BatteryExpectedLifetime)
	}
	gp := m.cfg.Generator
	for g := range m.sets.GeneratorTypes {
		g := g
		fn(func(k int) lp.Var { return v.genUnits.At(k, g) },
			gp.GenNominalCapacity[g]*gp.GenSpecificInvestmentCost[g], gp.GenLifetime[g])
	}
}

func (m *Model) investmentExpr() *lp.Expr {
	e := lp.NewExpr()
	T := len(m.sets.Steps)
	m.capacityCost(func(unit func(int) lp.Var, perUnit float64, _ int) {
		addDeltaTerms(e, T, unit, func(k int) float64 { return m.par.StepDF[k] }, perUnit)
	})
	if m.cfg.HasGrid() {
		e.AddConst(m.par.GridInvestment * m.par.ConnectionYearDF(m.cfg.Grid.YearGridConnection))
	}
	return e
}

// omExpr is fixed O&M: installed and existing capacity priced at CAPEX
// density times the O&M share, plus grid maintenance from connection.
func (m *Model) omExpr(actualized bool) *lp.Expr {
	s := m.sets
	v := m.v
	e := lp.NewExpr()
	rp := m.cfg.Renewables
	bp := m.cfg.Battery
	gp := m.cfg.Generator
	for y := range s.Years {
		w := m.yearWeight(y, actualized)
		k := s.StepIndex(y)
		for r := range s.RenewableSources {
			perW := rp.ResSpecificInvestmentCost[r] * rp.ResSpecificOMCost[r]
			nom := m.cfg.Resource.ResNominalCapacity[r]
			e.Add(v.resUnits.At(k, r), w*nom*perW)
			e.AddConst(w * m.par.ResExistingUnits[r] * m.par.ResExistingActive[y][r] * nom * perW)
		}
		if v.batUnits != nil {
			perWh := bp.BatterySpecificInvestmentCost * bp.BatterySpecificOMCost
			e.Add(v.batUnits.At(k), w*bp.BatteryNominalCapacity*perWh)
			e.AddConst(w * m.par.BatteryExisting[y] * perWh)
		}
		for g := range s.GeneratorTypes {
			perW := gp.GenSpecificInvestmentCost[g] * gp.GenSpecificOMCost[g]
			e.Add(v.genUnits.At(k, g), w*gp.GenNominalCapacity[g]*perW)
			e.AddConst(w * m.par.GenExisting[y][g] * perW)
		}
		if m.cfg.HasGrid() && m.par.GridConnected[y] {
			e.AddConst(w * m.cfg.Grid.GridMaintenanceCost * m.par.GridInvestment)
		}
	}
	return e
}

func (m *Model) replacementExpr(sc int, actualized bool) *lp.Expr {
	s := m.sets
	v := m.v
	e := lp.NewExpr()
	urc := m.par.BatteryReplacementCost
	for y := range s.Years {
		w := m.yearWeight(y, actualized) * urc
		for t := range s.Periods {
			e.Add(v.batIn.At(sc, y, t), w).Add(v.batOut.At(sc, y, t), w)
		}
	}
	return e
}

func (m *Model) fuelExpr(sc int, actualized bool) *lp.Expr {
	s := m.sets
	v := m.v
	e := lp.NewExpr()
	partial := m.cfg.PartialLoad()
	gp := m.cfg.Generator
	for y := range s.Years {
		w := m.yearWeight(y, actualized)
		k := s.StepIndex(y)
		for g := range s.GeneratorTypes {
			mc := m.par.MarginalCost[g][y]
			for t := range s.Periods {
				if !partial {
					e.Add(v.genProd.At(sc, y, g, t), w*mc)
					continue
				}
				e.Add(v.genFull.At(k, g), w*gp.GenNominalCapacity[g]*mc)
				e.Add(v.genPartialEner.At(sc, y, g, t), w*m.par.PartialMarginalCost[g][y])
				e.Add(v.genPartial.At(sc, y, g, t), w*m.par.StartCost[g][y])
			}
		}
	}
	return e
}

func (m *Model) lostLoadExpr(sc int, actualized bool) *lp.Expr {
	s := m.sets
	e := lp.NewExpr()
	c := m.cfg.Project.LostLoadSpecificCost
	for y := range s.Years {
		w := m.yearWeight(y, actualized) * c
		for t := range s.Periods {
			e.Add(m.v.lostLoad.At(sc, y, t), w)
		}
	}
	return e
}

func (m *Model) gridCostExpr(sc int, actualized bool) *lp.Expr {
	s := m.sets
	v := m.v
	e := lp.NewExpr()
	for y := range s.Years {
		w := m.yearWeight(y, actualized)
		buy := w * m.cfg.PurchasePrice(y)
		sell := w * m.cfg.SellPrice(y)
		for t := range s.Periods {
			e.Add(v.fromGrid.At(sc, y, t), buy)
			if v.toGrid != nil {
				e.Add(v.toGrid.At(sc, y, t), -sell)
			}
		}
	}
	return e
}

// salvageExpr credits each cohort's residual life share of its CAPEX,
// discounted from the end of the horizon.
func (m *Model) salvageExpr() *lp.Expr {
	e := lp.NewExpr()
	Y := len(m.sets.Years)
	T := len(m.sets.Steps)
	sd := m.sets.StepDuration
	m.capacityCost(func(unit func(int) lp.Var, perUnit float64, lifetime int) {
		addDeltaTerms(e, T, unit, func(k int) float64 {
			return SalvageFraction(lifetime, Y, sd, k)
		}, perUnit*m.par.HorizonDF)
	})
	return e
}

func (m *Model) addCostConstraints(b *builder) {
	v := m.v
	bind(b, "total_investment_cost", v.investment, m.investmentExpr())
	bind(b, "operation_maintenance_cost_act", v.omAct, m.omExpr(true))
	bind(b, "operation_maintenance_cost_nonact", v.omNonAct, m.omExpr(false))
	bind(b, "salvage_value", v.salvage, m.salvageExpr())

	components := []struct {
		group          string
		actVar, nonVar *lp.VarArray
		expr           func(sc int, actualized bool) *lp.Expr
	}{
		{"battery_replacement_cost", v.replacementAct, v.replacementNonAct, m.replacementExpr},
		{"total_fuel_cost", v.fuelAct, v.fuelNonAct, m.fuelExpr},
		{"scenario_lost_load_cost", v.lostLoadCostAct, v.lostLoadCostNon, m.lostLoadExpr},
		{"scenario_grid_cost", v.gridCostAct, v.gridCostNonAct, m.gridCostExpr},
	}

	npc := lp.NewExpr()
	total := lp.NewExpr()
	for sc := range m.sets.Scenarios {
		act := lp.NewExpr().Add(v.omAct, 1)
		non := lp.NewExpr().Add(v.omNonAct, 1)
		for _, c := range components {
			if c.actVar == nil {
				continue
			}
			bind(b, cname(c.group+"_act", sc), c.actVar.At(sc), c.expr(sc, true))
			bind(b, cname(c.group+"_nonact", sc), c.nonVar.At(sc), c.expr(sc, false))
			act.Add(c.actVar.At(sc), 1)
			non.Add(c.nonVar.At(sc), 1)
		}
		bind(b, cname("total_scenario_variable_cost_act", sc), v.scenarioVarAct.At(sc), act)
		bind(b, cname("total_scenario_variable_cost_nonact", sc), v.scenarioVarNon.At(sc), non)

		// scenario NPC = investment + variable cost − salvage
		bind(b, cname("scenario_net_present_cost", sc), v.scenarioNPC.At(sc),
			lp.NewExpr().Add(v.investment, 1).Add(v.scenarioVarAct.At(sc), 1).Add(v.salvage, -1))

		w := m.par.ScenarioWeights[sc]
		npc.Add(v.scenarioNPC.At(sc), w)
		total.Add(v.scenarioVarNon.At(sc), w)
	}
	bind(b, "net_present_cost", v.npc, npc)
	bind(b, "total_variable_cost", v.totalVariable, total)
}
