package formulation

import (
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/lp"
)

func (m *Model) addGeneratorConstraints(b *builder) {
	s := m.sets
	v := m.v
	gp := m.cfg.Generator
	G := len(s.GeneratorTypes)
	T := len(s.Steps)
	partial := m.cfg.PartialLoad()

	for sc := range s.Scenarios {
		for y := range s.Years {
			k := s.StepIndex(y)
			for g := 0; g < G; g++ {
				nom := gp.GenNominalCapacity[g]
				for t := range s.Periods {
					prod := v.genProd.At(sc, y, g, t)
					b.add(cname("generator_max_output", sc, y, g, t),
						lp.NewExpr().Add(prod, 1).Add(v.genUnits.At(k, g), -nom),
						lp.LessEq, m.par.GenExisting[y][g])
					if !partial {
						continue
					}
					pl := v.genPartial.At(sc, y, g, t)
					pe := v.genPartialEner.At(sc, y, g, t)
					// production = full_load·nominal + partial-load energy
					b.add(cname("generator_partial_split", sc, y, g, t),
						lp.NewExpr().Add(prod, 1).Add(v.genFull.At(k, g), -nom).Add(pe, -1),
						lp.Equal, 0)
					b.add(cname("generator_partial_min", sc, y, g, t),
						lp.NewExpr().Add(pe, 1).Add(pl, -nom*config.At(gp.GenMinOutput, g)),
						lp.GreaterEq, 0)
					b.add(cname("generator_partial_max", sc, y, g, t),
						lp.NewExpr().Add(pe, 1).Add(pl, -nom),
						lp.LessEq, 0)
				}
			}
		}
	}

	if partial {
		for k := 0; k < T; k++ {
			for g := 0; g < G; g++ {
				b.add(cname("generator_full_load_units", k, g),
					lp.NewExpr().Add(v.genUnits.At(k, g), 1).Add(v.genFull.At(k, g), -1),
					lp.LessEq, 1)
			}
		}
	}

	addMonotonicity(b, "generator_capacity_expansion", T, G, func(k, g int) lp.Var { return v.genUnits.At(k, g) })
}
