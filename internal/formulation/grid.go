package formulation

import (
	"microgrid-planner/internal/lp"
)

// addGridConstraints links purchase and sale to single_flow_grid. Plain
// availability limits are variable bounds.
func (m *Model) addGridConstraints(b *builder) {
	if !m.singleFlowGrid() {
		return
	}
	s := m.sets
	v := m.v
	maxP := m.cfg.Grid.MaximumGridPower
	for sc := range s.Scenarios {
		for y := range s.Years {
			if !m.par.GridConnected[y] {
				continue
			}
			for t := range s.Periods {
				limit := m.ts.GridAvailability.At(sc, t, y) * maxP
				sf := v.singleFlow.At(sc, y, t)
				b.add(cname("grid_purchase_flow", sc, y, t),
					lp.NewExpr().Add(v.fromGrid.At(sc, y, t), 1).Add(sf, -limit),
					lp.LessEq, 0)
				b.add(cname("grid_sale_flow", sc, y, t),
					lp.NewExpr().Add(v.toGrid.At(sc, y, t), 1).Add(sf, limit),
					lp.LessEq, limit)
			}
		}
	}
}
