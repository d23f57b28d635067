package formulation

import (
	"microgrid-planner/internal/lp"
)

// batteryCapacity returns cap_installed for 0-based year y as
// units[step(y)]·nominal + existing.
func (m *Model) batteryCapacity(y int) (lp.Var, float64, float64) {
	return m.v.batUnits.At(m.sets.StepIndex(y)), m.cfg.Battery.BatteryNominalCapacity, m.par.BatteryExisting[y]
}

func (m *Model) addBatteryConstraints(b *builder) {
	s := m.sets
	v := m.v
	bp := m.cfg.Battery
	T := len(s.Steps)
	P := len(s.Periods)
	etaIn := bp.BatteryChargeEfficiency
	etaOut := bp.BatteryDischargeEfficiency
	dod := bp.BatteryDepthOfDischarge

	for sc := range s.Scenarios {
		for y := range s.Years {
			units, nom, exist := m.batteryCapacity(y)
			for t := 0; t < P; t++ {
				soc := v.batSOC.At(sc, y, t)

				// SOC[t] = SOC[t−1] + η_ch·in − out/η_dis
				e := lp.NewExpr().
					Add(soc, 1).
					Add(v.batIn.At(sc, y, t), -etaIn).
					Add(v.batOut.At(sc, y, t), 1/etaOut)
				rhs := 0.0
				switch {
				case t > 0:
					e.Add(v.batSOC.At(sc, y, t-1), -1)
				case y > 0:
					e.Add(v.batSOC.At(sc, y-1, P-1), -1)
				default:
					u0, nom0, exist0 := m.batteryCapacity(0)
					e.Add(u0, -bp.BatteryInitialSOC*nom0)
					rhs = bp.BatteryInitialSOC * exist0
				}
				b.add(cname("state_of_charge", sc, y, t), e, lp.Equal, rhs)

				// DOD·cap ≤ SOC ≤ cap
				b.add(cname("soc_min", sc, y, t),
					lp.NewExpr().Add(soc, 1).Add(units, -dod*nom), lp.GreaterEq, dod*exist)
				b.add(cname("soc_max", sc, y, t),
					lp.NewExpr().Add(soc, 1).Add(units, -nom), lp.LessEq, exist)

				// power caps
				b.add(cname("battery_max_inflow", sc, y, t),
					lp.NewExpr().Add(v.batIn.At(sc, y, t), 1).Add(units, -nom/bp.MaximumBatteryChargeTime),
					lp.LessEq, exist/bp.MaximumBatteryChargeTime)
				b.add(cname("battery_max_outflow", sc, y, t),
					lp.NewExpr().Add(v.batOut.At(sc, y, t), 1).Add(units, -nom/bp.MaximumBatteryDischargeTime),
					lp.LessEq, exist/bp.MaximumBatteryDischargeTime)
			}
		}
	}

	if m.par.BatteryMinCapacity > 0 {
		units, nom, exist := m.batteryCapacity(0)
		b.add("battery_min_capacity", lp.NewExpr().Add(units, nom), lp.GreaterEq, m.par.BatteryMinCapacity-exist)
	}

	addMonotonicity(b, "battery_capacity_expansion", T, 1, func(k, _ int) lp.Var { return v.batUnits.At(k) })
}
