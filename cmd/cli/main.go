package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"microgrid-planner/internal/analysis"
	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/inputs"
	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/results"
	"microgrid-planner/internal/solver"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK          = 0
	exitConfig      = 2
	exitInput       = 3
	exitUnavailable = 4
	exitInfeasible  = 5
	exitInternal    = 6
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitConfig
	}

	var err error
	switch args[0] {
	case "optimize":
		err = cmdOptimize(args[1:], stdout)
	case "pareto":
		err = cmdPareto(args[1:], stdout)
	case "validate":
		err = cmdValidate(args[1:], stdout)
	case "export":
		err = cmdExport(args[1:], stdout)
	case "solvers":
		err = writeJSON(stdout, solver.Describe())
	default:
		usage(stderr)
		return exitConfig
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitCode(err)
	}
	return exitOK
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  cli optimize --project village [--root .] [--solver gonum] [--out results/village.json]")
	fmt.Fprintln(w, "  cli pareto   --project village [--points 5]")
	fmt.Fprintln(w, "  cli validate --project village")
	fmt.Fprintln(w, "  cli export   --project village [--scenario 1] --out results/village_dispatch.csv")
	fmt.Fprintln(w, "  cli solvers")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "notes:")
	fmt.Fprintln(w, "  - projects live under <root>/projects/<name>/<name>.yaml with tables in inputs/")
	fmt.Fprintln(w, "  - exit codes: 2 configuration, 3 missing input, 4 solver unavailable, 5 infeasible, 6 internal")
}

// exitCode maps an error kind to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, model.ErrInvalidConfiguration):
		return exitConfig
	case errors.Is(err, model.ErrMissingTimeSeries),
		errors.Is(err, model.ErrShapeMismatch),
		errors.Is(err, os.ErrNotExist):
		return exitInput
	case errors.Is(err, model.ErrSolverUnavailable):
		return exitUnavailable
	case errors.Is(err, model.ErrInfeasibleModel),
		errors.Is(err, model.ErrUnboundedModel):
		return exitInfeasible
	default:
		return exitInternal
	}
}

// common holds the flags every subcommand shares.
type common struct {
	project   string
	root      string
	solver    string
	profile   string
	timeLimit time.Duration
	logLevel  string
}

func (c *common) register(fs *pflag.FlagSet) {
	fs.StringVarP(&c.project, "project", "p", "", "Project name under <root>/projects")
	fs.StringVar(&c.root, "root", ".", "Directory holding projects/")
	fs.StringVarP(&c.solver, "solver", "s", "", "Solver backend (default: project setting, then gonum)")
	fs.StringVar(&c.profile, "profile", "", "Solver option profile")
	fs.DurationVar(&c.timeLimit, "time-limit", 0, "Solver time limit (0 = project setting)")
	fs.StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func parse(name string, args []string, c *common, extra func(fs *pflag.FlagSet)) error {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	c.register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	if c.project == "" {
		return fmt.Errorf("%w: --project is required", model.ErrInvalidConfiguration)
	}
	return nil
}

// session is a loaded project ready to solve.
type session struct {
	log     *zap.Logger
	project *inputs.Project
	model   *formulation.Model
	backend solver.Backend
	opts    solver.Options
}

func open(ctx context.Context, c *common) (*session, error) {
	log, err := logging.NewConsole(c.logLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	p, err := inputs.LoadProject(ctx, c.root, c.project)
	if err != nil {
		return nil, err
	}
	return prepare(c, log, p)
}

func prepare(c *common, log *zap.Logger, p *inputs.Project) (*session, error) {
	name := c.solver
	if name == "" {
		name = p.Config.Solver.Name
	}
	if name == "" {
		name = "gonum"
	}
	b, err := solver.Lookup(name, log)
	if err != nil {
		return nil, err
	}
	opts := solver.OptionsFromConfig(p.Config.Solver)
	if c.profile != "" {
		opts.Profile = c.profile
	}
	if c.timeLimit > 0 {
		opts.TimeLimit = c.timeLimit
	}
	m, err := formulation.New(p.Config, p.TimeSeries, formulation.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return &session{log: log, project: p, model: m, backend: b, opts: opts}, nil
}

func cmdOptimize(args []string, stdout io.Writer) error {
	var c common
	var out, ledgerPath string
	err := parse("optimize", args, &c, func(fs *pflag.FlagSet) {
		fs.StringVarP(&out, "out", "o", "", "Write the summary JSON here instead of stdout")
		fs.StringVar(&ledgerPath, "ledger", "", "Optional dispatch CSV for scenario 1")
	})
	if err != nil {
		return err
	}
	ctx := context.Background()
	s, err := open(ctx, &c)
	if err != nil {
		return err
	}
	defer s.log.Sync() //nolint:errcheck

	sol, err := s.model.Solve(ctx, s.backend, s.opts)
	if err != nil {
		return err
	}
	summary, err := results.Summarize(s.model, sol)
	if err != nil {
		return err
	}
	violations, err := results.Verify(s.model, sol)
	if err != nil {
		return err
	}
	for _, v := range violations {
		s.log.Warn("solution check failed", zap.String("property", v.Property), zap.String("detail", v.Detail))
	}
	if ledgerPath != "" {
		ledger, err := results.BuildLedger(s.model, sol, 0)
		if err != nil {
			return err
		}
		if err := writeLedger(ledgerPath, ledger); err != nil {
			return err
		}
	}
	return emit(stdout, out, summary)
}

func cmdPareto(args []string, stdout io.Writer) error {
	var c common
	var out string
	var points int
	err := parse("pareto", args, &c, func(fs *pflag.FlagSet) {
		fs.StringVarP(&out, "out", "o", "", "Write the front JSON here instead of stdout")
		fs.IntVar(&points, "points", 0, "Number of Pareto points (default: project setting)")
	})
	if err != nil {
		return err
	}
	ctx := context.Background()
	log, err := logging.NewConsole(c.logLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	defer log.Sync() //nolint:errcheck

	p, err := inputs.LoadProject(ctx, c.root, c.project)
	if err != nil {
		return err
	}
	p.Config.Advanced.MultiobjectiveOptimization = true
	if points > 0 {
		p.Config.Advanced.ParetoPoints = points
	}
	if err := p.Config.Validate(); err != nil {
		return err
	}
	s, err := prepare(&c, log, p)
	if err != nil {
		return err
	}
	front, sols, err := s.model.SolveMultiObjective(ctx, s.backend, s.opts)
	if err != nil {
		return err
	}
	summaries := make([]*results.Summary, 0, len(sols))
	for _, sol := range sols {
		summary, err := results.Summarize(s.model, sol)
		if err != nil {
			return err
		}
		summaries = append(summaries, summary)
	}
	return emit(stdout, out, struct {
		Points    []formulation.ParetoPoint `json:"points"`
		Summaries []*results.Summary        `json:"summaries"`
	}{front, summaries})
}

func cmdValidate(args []string, stdout io.Writer) error {
	var c common
	if err := parse("validate", args, &c, nil); err != nil {
		return err
	}
	s, err := open(context.Background(), &c)
	if err != nil {
		return err
	}
	if err := s.model.Build(); err != nil {
		return err
	}
	sets := s.model.Sets()
	prob := s.model.Problem()
	fmt.Fprintf(stdout, "project %s is valid: %d scenarios, %d years, %d periods\n",
		s.project.Name, len(sets.Scenarios), len(sets.Years), len(sets.Periods))
	fmt.Fprintf(stdout, "model: %d variables, %d constraints, solver %s\n",
		prob.NumVars(), prob.NumConstraints(), s.backend.Name())

	profile, err := analysis.ProfileProject(s.project.Config, s.project.TimeSeries)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\n%-8s %-6s %-12s %-10s %-10s %-6s\n", "scenario", "year", "total_wh", "peak_wh", "peak_hour", "lf")
	for _, d := range profile.Demand {
		fmt.Fprintf(stdout, "%-8d %-6d %-12.0f %-10.0f %-10d %-6.3f\n", d.Scenario, d.Year, d.Total, d.Max, d.PeakPeriod, d.LoadFactor)
	}
	if len(profile.Sources) > 0 {
		fmt.Fprintf(stdout, "\n%-4s %-12s %-8s %-12s %-8s\n", "rank", "source", "scenario", "yield_wh", "cf")
		for i, r := range profile.Sources {
			fmt.Fprintf(stdout, "%-4d %-12s %-8d %-12.0f %-8.3f\n", i+1, r.Name, r.Scenario, r.Total, r.CapacityFactor)
		}
	}
	return nil
}

func cmdExport(args []string, stdout io.Writer) error {
	var c common
	var out string
	var scenario int
	err := parse("export", args, &c, func(fs *pflag.FlagSet) {
		fs.StringVarP(&out, "out", "o", "", "Output CSV path (default results/<project>_dispatch.csv)")
		fs.IntVar(&scenario, "scenario", 1, "Scenario to export (1-based)")
	})
	if err != nil {
		return err
	}
	if out == "" {
		out = filepath.Join("results", c.project+"_dispatch.csv")
	}
	ctx := context.Background()
	s, err := open(ctx, &c)
	if err != nil {
		return err
	}
	defer s.log.Sync() //nolint:errcheck

	sol, err := s.model.Solve(ctx, s.backend, s.opts)
	if err != nil {
		return err
	}
	ledger, err := results.BuildLedger(s.model, sol, scenario-1)
	if err != nil {
		return err
	}
	if err := writeLedger(out, ledger); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %d rows to %s\n", len(ledger), out)
	if n := len(ledger); n > 0 {
		fmt.Fprintf(stdout, "Total variable cost=%.2f Final SOC=%.1f Wh\n", ledger[n-1].CumCost, ledger[n-1].SOCEnd)
	}
	return nil
}

func writeLedger(path string, ledger []results.LedgerRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return results.WriteLedgerCSV(path, ledger)
}

// emit writes v as indented JSON to path, or to stdout when path is empty.
func emit(stdout io.Writer, path string, v any) error {
	if path == "" {
		return writeJSON(stdout, v)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
