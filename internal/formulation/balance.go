package formulation

import (
	"microgrid-planner/internal/lp"
)

// addEnergyBalance closes supply against demand for every (scenario, year,
// period). Existing renewable production is a constant and moves to the
// right-hand side.
func (m *Model) addEnergyBalance(b *builder) {
	s := m.sets
	v := m.v
	R := len(s.RenewableSources)
	G := len(s.GeneratorTypes)
	for sc := range s.Scenarios {
		for y := range s.Years {
			k := s.StepIndex(y)
			for t := range s.Periods {
				e := lp.NewExpr()
				rhs := m.ts.Demand.At(sc, t, y)
				for r := 0; r < R; r++ {
					e.Add(v.resProd.At(sc, k, r, t), 1).Add(v.curtailment.At(sc, y, r, t), -1)
					rhs -= m.ExistingResProduction(sc, y, r, t)
				}
				if v.batUnits != nil {
					e.Add(v.batOut.At(sc, y, t), 1).Add(v.batIn.At(sc, y, t), -1)
				}
				for g := 0; g < G; g++ {
					e.Add(v.genProd.At(sc, y, g, t), 1)
				}
				if v.fromGrid != nil {
					e.Add(v.fromGrid.At(sc, y, t), 1)
				}
				if v.toGrid != nil {
					e.Add(v.toGrid.At(sc, y, t), -1)
				}
				if v.lostLoad != nil {
					e.Add(v.lostLoad.At(sc, y, t), 1)
				}
				b.add(cname("energy_balance", sc, y, t), e, lp.Equal, rhs)
			}
		}
	}
}

// addPenetrationFloor enforces (1−α)·renewable ≥ α·(generator + grid import)
// over the horizon of each scenario.
func (m *Model) addPenetrationFloor(b *builder) {
	alpha := m.par.Penetration
	if alpha <= 0 {
		return
	}
	s := m.sets
	v := m.v
	R := len(s.RenewableSources)
	G := len(s.GeneratorTypes)
	for sc := range s.Scenarios {
		e := lp.NewExpr()
		existing := 0.0
		for y := range s.Years {
			k := s.StepIndex(y)
			for t := range s.Periods {
				for r := 0; r < R; r++ {
					e.Add(v.resProd.At(sc, k, r, t), 1-alpha).Add(v.curtailment.At(sc, y, r, t), -(1 - alpha))
					existing += m.ExistingResProduction(sc, y, r, t)
				}
				for g := 0; g < G; g++ {
					e.Add(v.genProd.At(sc, y, g, t), -alpha)
				}
				if v.fromGrid != nil {
					e.Add(v.fromGrid.At(sc, y, t), -alpha)
				}
			}
		}
		b.add(cname("renewable_penetration", sc), e, lp.GreaterEq, -(1-alpha)*existing)
	}
}
