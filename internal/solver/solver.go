package solver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/lp"
	"microgrid-planner/internal/metrics"
	"microgrid-planner/internal/model"

	"go.uber.org/zap"
)

// Status is a backend-neutral termination status.
type Status string

const (
	StatusOptimal               Status = "optimal"
	StatusInfeasible            Status = "infeasible"
	StatusUnbounded             Status = "unbounded"
	StatusInfeasibleOrUnbounded Status = "infeasible_or_unbounded"
	StatusLimit                 Status = "limit"
	StatusError                 Status = "error"
)

// Result is what a backend returns. Values is indexed by lp.Var.
type Result struct {
	Status    Status
	RawStatus string
	Objective float64
	Values    []float64
	Nodes     int
	Duration  time.Duration
}

// Options are the pass-through knobs of a solve.
type Options struct {
	Profile     string
	TimeLimit   time.Duration
	MIPGap      float64
	NodeLimit   int
	Tolerance   float64
	ProblemFile string
	LogPath     string
	Extra       map[string]string
}

// OptionsFromConfig converts the solver section of a parameter bundle.
func OptionsFromConfig(s config.SolverSettings) Options {
	return Options{
		Profile:     s.Profile,
		TimeLimit:   time.Duration(s.TimeLimit * float64(time.Second)),
		MIPGap:      s.MIPGap,
		NodeLimit:   s.NodeLimit,
		Tolerance:   s.Tolerance,
		ProblemFile: s.ProblemFile,
		LogPath:     s.LogPath,
		Extra:       s.Extra,
	}
}

// Backend solves a minimization problem.
type Backend interface {
	Name() string
	// Available reports model.ErrSolverUnavailable when the backend cannot run here.
	Available() error
	Solve(ctx context.Context, p *lp.Problem, opts Options) (*Result, error)
}

var registry = map[string]func(*zap.Logger) Backend{
	"gonum":  func(l *zap.Logger) Backend { return NewGonum(l) },
	"highs":  func(l *zap.Logger) Backend { return NewHighs(l) },
	"gurobi": func(l *zap.Logger) Backend { return NewGurobi(l) },
}

// Names lists the known backend names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the named backend if it is known and available.
func Lookup(name string, logger *zap.Logger) (Backend, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown solver %q (known: %v)", model.ErrSolverUnavailable, name, Names())
	}
	b := ctor(logger)
	if err := b.Available(); err != nil {
		return nil, err
	}
	return b, nil
}

// Info describes a backend for listings.
type Info struct {
	Name      string   `json:"name"`
	Available bool     `json:"available"`
	Reason    string   `json:"reason,omitempty"`
	Profiles  []string `json:"profiles"`
}

// Describe reports every known backend and whether it can run here.
func Describe() []Info {
	out := make([]Info, 0, len(registry))
	for _, name := range Names() {
		info := Info{Name: name, Available: true, Profiles: Profiles()}
		if err := registry[name](nil).Available(); err != nil {
			info.Available = false
			info.Reason = err.Error()
		}
		out = append(out, info)
	}
	return out
}

// Run solves p with b: it writes the optional problem file, records
// metrics, and maps any non-optimal status to a *model.SolverStatusError.
func Run(ctx context.Context, b Backend, p *lp.Problem, opts Options, logger *zap.Logger) (*Result, error) {
	log := logging.OrNop(logger).Named("solver")
	if _, err := profileOptions(b.Name(), opts); err != nil {
		return nil, err
	}
	if opts.ProblemFile != "" {
		if err := writeProblemFile(p, opts.ProblemFile); err != nil {
			return nil, fmt.Errorf("write problem file: %w", err)
		}
	}

	log.Debug("solve starting",
		zap.String("solver", b.Name()),
		zap.String("profile", opts.Profile),
		zap.Int("variables", p.NumVars()),
		zap.Int("constraints", p.NumConstraints()),
		zap.Int("integers", p.NumIntegers()),
	)
	start := time.Now()
	res, err := b.Solve(ctx, p, opts)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveSolve(b.Name(), string(StatusError), elapsed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, model.ErrSolverUnavailable) {
			return nil, err
		}
		log.Warn("solve failed", zap.String("solver", b.Name()), zap.Error(err))
		return nil, &model.SolverStatusError{Solver: b.Name(), Status: err.Error(), Err: model.ErrSolverError}
	}
	res.Duration = elapsed
	metrics.ObserveSolve(b.Name(), string(res.Status), elapsed)

	if res.Status == StatusOptimal {
		if len(res.Values) != p.NumVars() {
			return nil, fmt.Errorf("%w: %s returned %d values for %d variables",
				model.ErrInternalInvariant, b.Name(), len(res.Values), p.NumVars())
		}
		res.Objective = p.Objective().Eval(res.Values)
	}
	log.Info("solve finished",
		zap.String("solver", b.Name()),
		zap.String("status", string(res.Status)),
		zap.Float64("objective", res.Objective),
		zap.Int("nodes", res.Nodes),
		zap.Duration("elapsed", elapsed),
	)
	if err := StatusErr(b.Name(), res); err != nil {
		return nil, err
	}
	return res, nil
}

// StatusErr maps a result status to an error kind. Only optimal is accepted.
func StatusErr(solverName string, res *Result) error {
	raw := res.RawStatus
	if raw == "" {
		raw = string(res.Status)
	}
	var kind error
	switch res.Status {
	case StatusOptimal:
		return nil
	case StatusInfeasible, StatusInfeasibleOrUnbounded:
		kind = model.ErrInfeasibleModel
	case StatusUnbounded:
		kind = model.ErrUnboundedModel
	default:
		kind = model.ErrSolverError
	}
	return &model.SolverStatusError{Solver: solverName, Status: raw, Err: kind}
}

func writeProblemFile(p *lp.Problem, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.WriteLP(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
