package formulation

import (
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/lp"
)

// ExistingResProduction is the fixed production of existing renewable
// capacity for (scenario, year, source, period); zero once retired or
// outside brownfield mode.
func (m *Model) ExistingResProduction(s, y, r, t int) float64 {
	units := m.par.ResExistingUnits[r] * m.par.ResExistingActive[y][r]
	if units == 0 {
		return 0
	}
	return units * m.ts.Resource.At(s, r, t) * m.cfg.Renewables.ResInverterEfficiency[r]
}

func (m *Model) addRenewableConstraints(b *builder) {
	s := m.sets
	v := m.v
	R := len(s.RenewableSources)
	T := len(s.Steps)
	eff := m.cfg.Renewables.ResInverterEfficiency

	// res_energy_production = res_units · RESOURCE · η
	for sc := range s.Scenarios {
		for k := 0; k < T; k++ {
			for r := 0; r < R; r++ {
				for t := range s.Periods {
					e := lp.NewExpr().
						Add(v.resProd.At(sc, k, r, t), 1).
						Add(v.resUnits.At(k, r), -m.ts.Resource.At(sc, r, t)*eff[r])
					b.add(cname("res_energy", sc, k, r, t), e, lp.Equal, 0)
				}
			}
		}
	}

	// curtailment ≤ production, existing capacity included
	for sc := range s.Scenarios {
		for y := range s.Years {
			k := s.StepIndex(y)
			for r := 0; r < R; r++ {
				for t := range s.Periods {
					e := lp.NewExpr().
						Add(v.curtailment.At(sc, y, r, t), 1).
						Add(v.resProd.At(sc, k, r, t), -1)
					b.add(cname("res_curtailment", sc, y, r, t), e, lp.LessEq, m.ExistingResProduction(sc, y, r, t))
				}
			}
		}
	}

	addMonotonicity(b, "res_capacity_expansion", T, R, func(k, r int) lp.Var { return v.resUnits.At(k, r) })

	if land := m.cfg.Project.LandAvailability; land > 0 {
		e := lp.NewExpr()
		for r := 0; r < R; r++ {
			area := m.cfg.Resource.ResNominalCapacity[r] * config.At(m.cfg.Renewables.ResSpecificArea, r)
			addDeltaTerms(e, T, func(k int) lp.Var { return v.resUnits.At(k, r) }, func(int) float64 { return 1 }, area)
		}
		b.add("res_land_availability", e, lp.LessEq, land)
	}
}
