package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	pivotTol   = 1e-9
	optTol     = 1e-9
	ratioTol   = 1e-12
	dropTol    = 1e-13
	blandAfter = 50
	reprices   = 3
)

// maxTableauCells bounds the dense tableau the built-in kernel will allocate.
const maxTableauCells = 1 << 25

// kernel solves min cᵀy s.t. Ay = b, y ≥ 0. Tests may swap it.
var kernel = tableauSimplex

// tableau is a two-phase dense simplex tableau. Columns from n on are
// artificials; they start basic and never re-enter once they leave.
type tableau struct {
	t       *mat.Dense
	rhs     []float64
	d       []float64
	basis   []int
	isBasic []bool
	n       int
	nz      []int
}

// tableauSimplex equilibrates A, runs phase one on the artificial sum, drives
// the remaining artificials out of the basis and then minimizes cᵀy. A and b
// are not modified.
func tableauSimplex(ctx context.Context, c []float64, a *mat.Dense, b []float64, tol float64) ([]float64, Status, error) {
	m, n := a.Dims()
	a = mat.DenseCopyOf(a)
	b = append([]float64(nil), b...)
	c = append([]float64(nil), c...)
	colMax := equilibrate(a, b, c)

	for i := 0; i < m; i++ {
		if b[i] < 0 {
			floats.Scale(-1, a.RawRowView(i))
			b[i] = -b[i]
		}
	}

	tb := newTableau(a, b)
	limit := 50*(m+n) + 1000

	cost1 := make([]float64, len(tb.d))
	for j := n; j < len(cost1); j++ {
		cost1[j] = 1
	}
	status, err := tb.solve(ctx, cost1, limit)
	if err != nil || status != StatusOptimal {
		if status == StatusUnbounded {
			status = StatusError
		}
		return nil, status, err
	}
	infeas := 0.0
	for i, j := range tb.basis {
		if j >= n {
			infeas += math.Max(tb.rhs[i], 0)
		}
	}
	if infeas > tol*math.Max(1, floats.Max(b)) {
		return nil, StatusInfeasible, nil
	}
	tb.dropArtificials()

	cost2 := make([]float64, len(tb.d))
	copy(cost2, c)
	status, err = tb.solve(ctx, cost2, limit)
	if err != nil || status != StatusOptimal {
		return nil, status, err
	}

	y := make([]float64, n)
	for i, j := range tb.basis {
		if j < n {
			y[j] = math.Max(tb.rhs[i], 0) / colMax[j]
		}
	}
	return y, StatusOptimal, nil
}

// equilibrate scales every row and then every column of a to a unit max
// norm, and the objective to a unit max norm. It returns the column maxima;
// the unscaled point is y[j] = y'[j] / colMax[j].
func equilibrate(a *mat.Dense, b, c []float64) []float64 {
	m, n := a.Dims()
	for i := 0; i < m; i++ {
		row := a.RawRowView(i)
		s := floats.Norm(row, math.Inf(1))
		if s == 0 {
			continue
		}
		floats.Scale(1/s, row)
		b[i] /= s
	}
	colMax := make([]float64, n)
	for i := 0; i < m; i++ {
		for j, v := range a.RawRowView(i) {
			colMax[j] = math.Max(colMax[j], math.Abs(v))
		}
	}
	for j := range colMax {
		if colMax[j] == 0 {
			colMax[j] = 1
		}
	}
	for i := 0; i < m; i++ {
		floats.Div(a.RawRowView(i), colMax)
	}
	floats.Div(c, colMax)
	if s := floats.Norm(c, math.Inf(1)); s > 0 {
		floats.Scale(1/s, c)
	}
	return colMax
}

// newTableau picks a starting basis: a column with a single positive entry
// serves its row, every other row gets an artificial.
func newTableau(a *mat.Dense, b []float64) *tableau {
	m, n := a.Dims()
	basis := make([]int, m)
	for i := range basis {
		basis[i] = -1
	}
	for j := 0; j < n; j++ {
		row, nnz := -1, 0
		for i := 0; i < m && nnz < 2; i++ {
			if a.At(i, j) != 0 {
				row = i
				nnz++
			}
		}
		if nnz == 1 && a.At(row, j) > 0 && basis[row] < 0 {
			basis[row] = j
		}
	}
	arts := 0
	for _, j := range basis {
		if j < 0 {
			arts++
		}
	}

	cols := n + arts
	tb := &tableau{
		t:       mat.NewDense(m, cols, nil),
		rhs:     b,
		d:       make([]float64, cols),
		basis:   basis,
		isBasic: make([]bool, cols),
		n:       n,
		nz:      make([]int, 0, cols),
	}
	next := n
	for i := 0; i < m; i++ {
		row := tb.t.RawRowView(i)
		copy(row, a.RawRowView(i))
		if basis[i] < 0 {
			row[next] = 1
			basis[i] = next
			next++
		} else if piv := row[basis[i]]; piv != 1 {
			floats.Scale(1/piv, row)
			tb.rhs[i] /= piv
		}
		tb.isBasic[basis[i]] = true
	}
	return tb
}

// solve prices cost against the current basis and pivots to optimality. The
// reduced costs are rebuilt from scratch at the end and the loop resumes if
// rounding hid an improving column.
func (tb *tableau) solve(ctx context.Context, cost []float64, limit int) (Status, error) {
	for round := 0; round < reprices; round++ {
		tb.price(cost)
		if tb.entering(false) < 0 {
			return StatusOptimal, nil
		}
		status, err := tb.iterate(ctx, limit)
		if err != nil || status != StatusOptimal {
			return status, err
		}
	}
	return StatusOptimal, nil
}

func (tb *tableau) price(cost []float64) {
	copy(tb.d, cost)
	for i, j := range tb.basis {
		if cj := cost[j]; cj != 0 {
			floats.AddScaled(tb.d, -cj, tb.t.RawRowView(i))
		}
	}
	for _, j := range tb.basis {
		tb.d[j] = 0
	}
}

// iterate uses Dantzig pricing and falls back to Bland's rule after a run of
// degenerate pivots, until the next pivot that makes progress.
func (tb *tableau) iterate(ctx context.Context, limit int) (Status, error) {
	degenerate := 0
	for iter := 0; ; iter++ {
		if iter%64 == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		if iter >= limit {
			return StatusLimit, nil
		}
		bland := degenerate > blandAfter
		q := tb.entering(bland)
		if q < 0 {
			return StatusOptimal, nil
		}
		r := tb.leaving(q, bland)
		if r < 0 {
			return StatusUnbounded, nil
		}
		if math.Max(tb.rhs[r], 0)/tb.t.At(r, q) <= ratioTol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.pivot(r, q)
	}
}

func (tb *tableau) entering(bland bool) int {
	q, best := -1, -optTol
	for j := 0; j < tb.n; j++ {
		if tb.isBasic[j] || tb.d[j] >= best {
			continue
		}
		if bland {
			return j
		}
		q, best = j, tb.d[j]
	}
	return q
}

// leaving runs the ratio test on column q. Near-ties go to an artificial,
// then to the largest pivot; under Bland's rule to the lowest basic index.
func (tb *tableau) leaving(q int, bland bool) int {
	m, _ := tb.t.Dims()
	r, theta := -1, math.Inf(1)
	for i := 0; i < m; i++ {
		a := tb.t.At(i, q)
		if a <= pivotTol {
			continue
		}
		ratio := math.Max(tb.rhs[i], 0) / a
		switch {
		case r < 0 || ratio < theta-ratioTol:
			r, theta = i, ratio
		case ratio <= theta+ratioTol:
			if tb.prefer(i, r, q, bland) {
				r = i
			}
			theta = math.Min(theta, ratio)
		}
	}
	return r
}

func (tb *tableau) prefer(i, r, q int, bland bool) bool {
	if bland {
		return tb.basis[i] < tb.basis[r]
	}
	ai, ar := tb.basis[i] >= tb.n, tb.basis[r] >= tb.n
	if ai != ar {
		return ai
	}
	return tb.t.At(i, q) > tb.t.At(r, q)
}

func (tb *tableau) pivot(r, q int) {
	m, _ := tb.t.Dims()
	prow := tb.t.RawRowView(r)
	inv := 1 / prow[q]
	tb.nz = tb.nz[:0]
	for k, v := range prow {
		if v == 0 {
			continue
		}
		v *= inv
		if math.Abs(v) < dropTol {
			v = 0
		} else {
			tb.nz = append(tb.nz, k)
		}
		prow[k] = v
	}
	prow[q] = 1
	tb.rhs[r] *= inv

	for i := 0; i < m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		f := row[q]
		if f == 0 {
			continue
		}
		for _, k := range tb.nz {
			v := row[k] - f*prow[k]
			if math.Abs(v) < dropTol {
				v = 0
			}
			row[k] = v
		}
		row[q] = 0
		tb.rhs[i] -= f * tb.rhs[r]
	}
	if f := tb.d[q]; f != 0 {
		for _, k := range tb.nz {
			tb.d[k] -= f * prow[k]
		}
	}
	tb.d[q] = 0

	tb.isBasic[tb.basis[r]] = false
	tb.basis[r] = q
	tb.isBasic[q] = true
}

// dropArtificials pivots zero-valued artificials out of the basis. A row
// with no usable structural entry is redundant; its artificial stays basic
// at zero and never limits a ratio test.
func (tb *tableau) dropArtificials() {
	for i, j := range tb.basis {
		if j < tb.n {
			continue
		}
		row := tb.t.RawRowView(i)
		q, best := -1, pivotTol
		for k := 0; k < tb.n; k++ {
			if !tb.isBasic[k] && math.Abs(row[k]) > best {
				q, best = k, math.Abs(row[k])
			}
		}
		tb.rhs[i] = 0
		if q >= 0 {
			tb.pivot(i, q)
		}
	}
}
