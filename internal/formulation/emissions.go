package formulation

import (
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/lp"
)

// addEmissionConstraints accounts embodied emissions of the capacity
// installed by the last step, plus fuel and grid emissions per scenario.
func (m *Model) addEmissionConstraints(b *builder) {
	s := m.sets
	v := m.v
	last := len(s.Steps) - 1

	res := lp.NewExpr()
	for r := range s.RenewableSources {
		res.Add(v.resUnits.At(last, r), m.cfg.Resource.ResNominalCapacity[r]*config.At(m.cfg.Renewables.ResUnitCO2Emission, r))
	}
	bind(b, "res_emission", v.resEmission, res)

	if v.batUnits != nil {
		bp := m.cfg.Battery
		bind(b, "battery_emission", v.batEmission,
			lp.NewExpr().Add(v.batUnits.At(last), bp.BatteryNominalCapacity*bp.BatteryUnitCO2Emission))
	}

	gp := m.cfg.Generator
	if v.genUnits != nil {
		gen := lp.NewExpr()
		for g := range s.GeneratorTypes {
			gen.Add(v.genUnits.At(last, g), gp.GenNominalCapacity[g]*config.At(gp.GenUnitCO2Emission, g))
		}
		bind(b, "generator_emission", v.genEmission, gen)
	}

	for sc := range s.Scenarios {
		total := lp.NewExpr().Add(v.resEmission, 1)
		if v.batUnits != nil {
			total.Add(v.batEmission, 1)
		}
		if v.genUnits != nil {
			fuel := lp.NewExpr()
			for g := range s.GeneratorTypes {
				perWh := config.At(gp.FuelCO2Emission, g) / (gp.FuelLHV[g] * gp.GenNominalEfficiency[g])
				for y := range s.Years {
					for t := range s.Periods {
						fuel.Add(v.genProd.At(sc, y, g, t), perWh)
					}
				}
			}
			bind(b, cname("fuel_emission", sc), v.fuelEmission.At(sc), fuel)
			total.Add(v.genEmission, 1).Add(v.fuelEmission.At(sc), 1)
		}
		if v.fromGrid != nil {
			co2 := m.cfg.Grid.NationalGridSpecificCO2Emission
			sum := lp.NewExpr()
			for y := range s.Years {
				for t := range s.Periods {
					bind(b, cname("grid_emission", sc, y, t), v.gridEmission.At(sc, y, t),
						lp.NewExpr().Add(v.fromGrid.At(sc, y, t), co2))
					sum.Add(v.gridEmission.At(sc, y, t), 1)
				}
			}
			bind(b, cname("scenario_grid_emission", sc), v.scenGridEmis.At(sc), sum)
			total.Add(v.scenGridEmis.At(sc), 1)
		}
		bind(b, cname("scenario_co2_emission", sc), v.scenarioCO2.At(sc), total)
	}
}

// co2Expr is the scenario-weighted emission total.
func (m *Model) co2Expr() *lp.Expr {
	e := lp.NewExpr()
	for sc := range m.sets.Scenarios {
		e.Add(m.v.scenarioCO2.At(sc), m.par.ScenarioWeights[sc])
	}
	return e
}
