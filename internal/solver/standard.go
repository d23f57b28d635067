package solver

import (
	"math"

	"microgrid-planner/internal/lp"
)

// standardForm is min cᵀy s.t. Ay = b, y ≥ 0, obtained from a bounded
// problem by shifting, reflecting and splitting columns and adding slacks.
type standardForm struct {
	c    []float64
	rows [][]entry
	b    []float64
	n    int

	cols     []columnMap
	objConst float64
}

type entry struct {
	col  int
	coef float64
}

// columnMap recovers x = offset + sign·y[pos] − y[neg].
type columnMap struct {
	offset float64
	sign   float64
	pos    int
	neg    int
}

type lowering int

const (
	lowered lowering = iota
	loweredInfeasible
	loweredUnbounded
)

func isFixed(lo, hi float64) bool {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return false
	}
	return hi-lo <= 1e-12*math.Max(1, math.Abs(lo))
}

// lowerProblem builds the standard form of p under the given bounds.
func lowerProblem(p *lp.Problem, lo, hi []float64, tol float64) (*standardForm, lowering) {
	sf := &standardForm{cols: make([]columnMap, p.NumVars())}
	newCol := func() int {
		sf.n++
		return sf.n - 1
	}
	var upperRows [][]entry
	var upperRHS []float64

	for j := range sf.cols {
		l, u := lo[j], hi[j]
		cm := columnMap{pos: -1, neg: -1, sign: 1}
		switch {
		case math.IsInf(l, 1) || math.IsInf(u, -1) || l > u+tol:
			return nil, loweredInfeasible
		case isFixed(l, u):
			cm.offset = l
		case !math.IsInf(l, -1):
			cm.offset = l
			cm.pos = newCol()
			if !math.IsInf(u, 1) {
				upperRows = append(upperRows, []entry{{col: cm.pos, coef: 1}})
				upperRHS = append(upperRHS, u-l)
			}
		case !math.IsInf(u, 1):
			cm.offset = u
			cm.sign = -1
			cm.pos = newCol()
		default:
			cm.pos = newCol()
			cm.neg = newCol()
		}
		sf.cols[j] = cm
	}

	for _, con := range p.Constraints() {
		rhs := con.RHS
		row := make([]entry, 0, len(con.Terms)+1)
		for _, t := range con.Terms {
			cm := sf.cols[t.Var]
			rhs -= t.Coef * cm.offset
			if cm.pos >= 0 {
				row = append(row, entry{col: cm.pos, coef: t.Coef * cm.sign})
			}
			if cm.neg >= 0 {
				row = append(row, entry{col: cm.neg, coef: -t.Coef})
			}
		}
		if len(row) == 0 {
			scale := tol * math.Max(1, math.Abs(con.RHS))
			ok := true
			switch con.Sense {
			case lp.LessEq:
				ok = 0 <= rhs+scale
			case lp.GreaterEq:
				ok = 0 >= rhs-scale
			default:
				ok = math.Abs(rhs) <= scale
			}
			if !ok {
				return nil, loweredInfeasible
			}
			continue
		}
		switch con.Sense {
		case lp.LessEq:
			row = append(row, entry{col: newCol(), coef: 1})
		case lp.GreaterEq:
			row = append(row, entry{col: newCol(), coef: -1})
		}
		sf.rows = append(sf.rows, row)
		sf.b = append(sf.b, rhs)
	}
	for i, row := range upperRows {
		row = append(row, entry{col: newCol(), coef: 1})
		sf.rows = append(sf.rows, row)
		sf.b = append(sf.b, upperRHS[i])
	}

	sf.c = make([]float64, sf.n)
	obj := p.Objective()
	sf.objConst = obj.Const
	for _, t := range obj.Terms {
		cm := sf.cols[t.Var]
		sf.objConst += t.Coef * cm.offset
		if cm.pos >= 0 {
			sf.c[cm.pos] += t.Coef * cm.sign
		}
		if cm.neg >= 0 {
			sf.c[cm.neg] -= t.Coef
		}
	}
	return sf, lowered
}

// restore maps a standard-form point back to the original columns.
func (sf *standardForm) restore(y []float64) []float64 {
	x := make([]float64, len(sf.cols))
	for j, cm := range sf.cols {
		v := cm.offset
		if cm.pos >= 0 {
			v += cm.sign * y[cm.pos]
		}
		if cm.neg >= 0 {
			v -= y[cm.neg]
		}
		x[j] = v
	}
	return x
}

// compact drops columns that appear in no row. Such a column is zero at the
// optimum unless its cost is negative, in which case the problem is unbounded.
// It returns the kept column indices.
func (sf *standardForm) compact(tol float64) ([]int, bool) {
	used := make([]bool, sf.n)
	for _, row := range sf.rows {
		for _, e := range row {
			if e.coef != 0 {
				used[e.col] = true
			}
		}
	}
	keep := make([]int, 0, sf.n)
	for j := 0; j < sf.n; j++ {
		if used[j] {
			keep = append(keep, j)
			continue
		}
		if sf.c[j] < -tol {
			return nil, false
		}
	}
	return keep, true
}
