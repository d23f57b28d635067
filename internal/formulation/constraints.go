package formulation

import (
	"strconv"
	"strings"

	"microgrid-planner/internal/lp"
)

// builder accumulates constraints and keeps the first error.
type builder struct {
	prob *lp.Problem
	err  error
}

func (b *builder) add(name string, e *lp.Expr, sense lp.Sense, rhs float64) {
	if b.err != nil {
		return
	}
	b.err = b.prob.AddConstraint(name, e, sense, rhs)
}

// cname renders group[i,j,...].
func cname(group string, idx ...int) string {
	if len(idx) == 0 {
		return group
	}
	var sb strings.Builder
	sb.WriteString(group)
	sb.WriteByte('[')
	for i, k := range idx {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(k))
	}
	sb.WriteByte(']')
	return sb.String()
}

// addConstraints emits every constraint group in a fixed order.
func (m *Model) addConstraints() error {
	b := &builder{prob: m.prob}
	if m.v.resUnits != nil {
		m.addRenewableConstraints(b)
	}
	if m.cfg.HasBattery() {
		m.addBatteryConstraints(b)
	}
	if m.v.genUnits != nil {
		m.addGeneratorConstraints(b)
	}
	if m.cfg.HasGrid() {
		m.addGridConstraints(b)
	}
	m.addEnergyBalance(b)
	m.addPenetrationFloor(b)
	m.addCostConstraints(b)
	if m.v.emissions {
		m.addEmissionConstraints(b)
	}
	return b.err
}

// addMonotonicity emits units[k,i] − units[k−1,i] ≥ 0 for every step k ≥ 1.
func addMonotonicity(b *builder, group string, steps, inner int, unit func(k, i int) lp.Var) {
	for k := 1; k < steps; k++ {
		for i := 0; i < inner; i++ {
			e := lp.NewExpr().Add(unit(k, i), 1).Add(unit(k-1, i), -1)
			b.add(cname(group, k, i), e, lp.GreaterEq, 0)
		}
	}
}

// addDeltaTerms adds Σ_k weight[k]·Δunits[k]·scale, where Δunits[0] = units[0].
// unit(k) returns the variable of step k.
func addDeltaTerms(e *lp.Expr, steps int, unit func(k int) lp.Var, weight func(k int) float64, scale float64) {
	for k := 0; k < steps; k++ {
		w := weight(k) * scale
		e.Add(unit(k), w)
		if k > 0 {
			e.Add(unit(k-1), -w)
		}
	}
}
