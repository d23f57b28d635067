package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/lp"
	"microgrid-planner/internal/model"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const (
	defaultTolerance = 1e-8
	defaultNodeLimit = 100000
	integralityTol   = 1e-6
)

// Gonum is the built-in backend: a two-phase dense simplex over gonum
// matrices for LPs and a depth-first branch-and-bound on top of it for
// MILPs. It needs no external executable and refuses models whose tableau
// would exceed maxTableauCells.
type Gonum struct {
	log *zap.Logger
}

func NewGonum(logger *zap.Logger) *Gonum {
	return &Gonum{log: logging.OrNop(logger).Named("gonum")}
}

func (g *Gonum) Name() string { return "gonum" }

func (g *Gonum) Available() error { return nil }

func (g *Gonum) Solve(ctx context.Context, p *lp.Problem, opts Options) (*Result, error) {
	tol := opts.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	log := g.log
	if opts.LogPath != "" {
		tee, closeFn, err := logging.WithFile(g.log, opts.LogPath)
		if err != nil {
			return nil, fmt.Errorf("open solver log: %w", err)
		}
		defer closeFn() //nolint:errcheck
		log = tee
	}

	lo, hi := bounds(p)
	if !p.IsMIP() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := solveRelaxation(ctx, p, lo, hi, tol)
		if err != nil {
			return nil, err
		}
		log.Info("lp finished",
			zap.String("status", string(out.status)),
			zap.String("raw", out.raw),
			zap.Float64("objective", out.obj),
			zap.Int("variables", p.NumVars()),
			zap.Int("constraints", p.NumConstraints()))
		return &Result{Status: out.status, RawStatus: out.raw, Objective: out.obj, Values: out.x, Nodes: 1}, nil
	}
	return g.branchAndBound(ctx, log, p, lo, hi, opts, tol)
}

func bounds(p *lp.Problem) ([]float64, []float64) {
	vars := p.Variables()
	lo := make([]float64, len(vars))
	hi := make([]float64, len(vars))
	for j, v := range vars {
		lo[j], hi[j] = v.Lower, v.Upper
		if v.Kind != lp.Continuous {
			lo[j] = math.Ceil(lo[j] - integralityTol)
			hi[j] = math.Floor(hi[j] + integralityTol)
		}
	}
	return lo, hi
}

type relaxation struct {
	status Status
	raw    string
	obj    float64
	x      []float64
}

// solveRelaxation solves the continuous relaxation of p under lo/hi.
func solveRelaxation(ctx context.Context, p *lp.Problem, lo, hi []float64, tol float64) (relaxation, error) {
	sf, state := lowerProblem(p, lo, hi, tol)
	switch state {
	case loweredInfeasible:
		return relaxation{status: StatusInfeasible, raw: "infeasible (bounds)"}, nil
	case loweredUnbounded:
		return relaxation{status: StatusUnbounded, raw: "unbounded"}, nil
	}
	keep, ok := sf.compact(tol)
	if !ok {
		return relaxation{status: StatusUnbounded, raw: "unbounded (free descent direction)"}, nil
	}

	y := make([]float64, sf.n)
	if m, n := len(sf.rows), len(keep); m > 0 && n > 0 {
		if cells := m * (n + m); cells > maxTableauCells {
			return relaxation{}, fmt.Errorf("%w: gonum needs a %dx%d tableau (%d cells, limit %d); use highs or gurobi",
				model.ErrSolverUnavailable, m, n+m, cells, maxTableauCells)
		}
		colIdx := make([]int, sf.n)
		for k, j := range keep {
			colIdx[j] = k
		}
		a := mat.NewDense(m, n, nil)
		for i, row := range sf.rows {
			for _, e := range row {
				if e.coef != 0 {
					a.Set(i, colIdx[e.col], a.At(i, colIdx[e.col])+e.coef)
				}
			}
		}
		c := make([]float64, n)
		for k, j := range keep {
			c[k] = sf.c[j]
		}
		yk, status, err := safeKernel(ctx, c, a, sf.b, tol)
		switch {
		case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
			return relaxation{}, err
		case err != nil:
			return relaxation{status: StatusError, raw: err.Error()}, nil
		case status == StatusLimit:
			return relaxation{status: StatusLimit, raw: "simplex iteration limit"}, nil
		case status != StatusOptimal:
			return relaxation{status: status, raw: string(status)}, nil
		}
		for k, j := range keep {
			y[j] = yk[k]
		}
	} else if m > 0 {
		for i, b := range sf.b {
			if math.Abs(b) > tol*math.Max(1, math.Abs(b)) {
				return relaxation{status: StatusInfeasible, raw: fmt.Sprintf("infeasible (empty row %d)", i)}, nil
			}
		}
	}

	x := sf.restore(y)
	for j := range x {
		x[j] = math.Min(math.Max(x[j], lo[j]), hi[j])
	}
	return relaxation{
		status: StatusOptimal,
		raw:    "optimal",
		obj:    p.Objective().Eval(x),
		x:      x,
	}, nil
}

// safeKernel converts kernel panics into errors.
func safeKernel(ctx context.Context, c []float64, a *mat.Dense, b []float64, tol float64) (y []float64, status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: simplex: %v", model.ErrSolverError, r)
		}
	}()
	return kernel(ctx, c, a, b, tol)
}

type bbNode struct {
	lo, hi []float64
	depth  int
}

// branchAndBound explores the down branch first on the most fractional
// integer column and prunes nodes whose relaxation cannot improve the
// incumbent by more than the gap.
func (g *Gonum) branchAndBound(ctx context.Context, log *zap.Logger, p *lp.Problem, lo, hi []float64, opts Options, tol float64) (*Result, error) {
	nodeLimit := opts.NodeLimit
	if nodeLimit <= 0 {
		nodeLimit = defaultNodeLimit
	}
	gap := opts.MIPGap
	if gap <= 0 {
		gap = 1e-9
	}
	vars := p.Variables()

	best := math.Inf(1)
	var bestX []float64
	stack := []bbNode{{lo: lo, hi: hi}}
	nodes := 0
	limited := false

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if nodes >= nodeLimit {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		out, err := solveRelaxation(ctx, p, nd.lo, nd.hi, tol)
		if err != nil {
			return nil, err
		}
		switch out.status {
		case StatusOptimal:
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			if nodes == 1 {
				return &Result{Status: StatusUnbounded, RawStatus: out.raw, Nodes: nodes}, nil
			}
			continue
		default:
			return &Result{Status: out.status, RawStatus: out.raw, Nodes: nodes}, nil
		}
		if bestX != nil && out.obj >= best-math.Max(1e-9, gap*math.Abs(best)) {
			continue
		}

		branch, frac := -1, 0.0
		for j, v := range vars {
			if v.Kind == lp.Continuous {
				continue
			}
			f := math.Abs(out.x[j] - math.Round(out.x[j]))
			if f > integralityTol && f > frac {
				branch, frac = j, f
			}
		}
		if branch < 0 {
			x := out.x
			for j, v := range vars {
				if v.Kind != lp.Continuous {
					x[j] = math.Round(x[j])
				}
			}
			best, bestX = p.Objective().Eval(x), x
			log.Debug("incumbent", zap.Float64("objective", best), zap.Int("node", nodes), zap.Int("depth", nd.depth))
			continue
		}

		v := out.x[branch]
		upLo := append([]float64(nil), nd.lo...)
		upLo[branch] = math.Ceil(v)
		downHi := append([]float64(nil), nd.hi...)
		downHi[branch] = math.Floor(v)
		stack = append(stack,
			bbNode{lo: upLo, hi: nd.hi, depth: nd.depth + 1},
			bbNode{lo: nd.lo, hi: downHi, depth: nd.depth + 1},
		)
	}

	log.Info("branch and bound finished",
		zap.Int("nodes", nodes),
		zap.Bool("incumbent", bestX != nil),
		zap.Bool("node_limit", limited),
		zap.Float64("objective", best))
	switch {
	case bestX != nil && !limited:
		return &Result{Status: StatusOptimal, RawStatus: "optimal", Objective: best, Values: bestX, Nodes: nodes}, nil
	case limited:
		return &Result{Status: StatusLimit, RawStatus: fmt.Sprintf("node limit %d reached", nodeLimit), Objective: best, Values: bestX, Nodes: nodes}, nil
	}
	return &Result{Status: StatusInfeasible, RawStatus: "integer infeasible", Nodes: nodes}, nil
}
