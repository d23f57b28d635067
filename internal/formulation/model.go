package formulation

import (
	"context"
	"fmt"
	"time"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/lp"
	"microgrid-planner/internal/metrics"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/solver"

	"go.uber.org/zap"
)

// Model is the sizing and dispatch formulation of one project. A Model is
// single-owner: Build, Solve and SolveMultiObjective must not run
// concurrently on the same instance.
type Model struct {
	cfg *config.Config
	ts  *model.TimeSeries
	log *zap.Logger

	sets  *model.Sets
	par   *Parameters
	prob  *lp.Problem
	v     variables
	built bool

	solution *Solution
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger; the model logs under the "formulation" name.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.log = l }
}

// New wraps a validated configuration and its time series. Nothing is
// built until Build or Solve.
func New(cfg *config.Config, ts *model.TimeSeries, opts ...Option) (*Model, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", model.ErrInvalidConfiguration)
	}
	m := &Model{cfg: cfg, ts: ts}
	for _, o := range opts {
		o(m)
	}
	m.log = logging.OrNop(m.log).Named("formulation")
	return m, nil
}

// Build assembles sets, time series, parameters, variables, constraints and
// objective. It is idempotent.
func (m *Model) Build() error {
	if m.built {
		return nil
	}
	start := time.Now()
	if err := m.initializeSets(); err != nil {
		return err
	}
	if err := m.initializeTimeSeries(); err != nil {
		return err
	}
	par, err := buildParameters(m.cfg, m.sets, m.ts)
	if err != nil {
		return err
	}
	m.par = par
	m.prob = lp.NewProblem(m.projectName())
	m.addVariables()
	if err := m.addConstraints(); err != nil {
		return err
	}
	if err := m.addObjective(); err != nil {
		return err
	}
	m.built = true

	metrics.ObserveModel(m.prob.NumVars(), m.prob.NumConstraints(), m.prob.NumIntegers())
	m.log.Info("model built",
		zap.String("project", m.projectName()),
		zap.Int("scenarios", len(m.sets.Scenarios)),
		zap.Int("years", len(m.sets.Years)),
		zap.Int("periods", len(m.sets.Periods)),
		zap.Int("steps", len(m.sets.Steps)),
		zap.Int("variables", m.prob.NumVars()),
		zap.Int("constraints", m.prob.NumConstraints()),
		zap.Int("integers", m.prob.NumIntegers()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (m *Model) projectName() string {
	if m.cfg.Project.Name != "" {
		return m.cfg.Project.Name
	}
	return "microgrid"
}

func (m *Model) initializeSets() error {
	startYear, err := m.cfg.StartYear()
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}
	var gens []string
	if m.cfg.HasGenerator() {
		gens = m.cfg.Generator.GenNames
	}
	sets, err := model.NewSets(
		startYear,
		m.cfg.Project.TimeHorizon,
		m.cfg.Project.TimeResolution,
		m.cfg.Advanced.NumScenarios,
		m.cfg.Advanced.StepDuration,
		m.cfg.Resource.ResNames,
		gens,
	)
	if err != nil {
		return err
	}
	m.sets = sets
	return nil
}

// initializeTimeSeries validates shapes and fills the grid availability
// with ones when outages are not simulated.
func (m *Model) initializeTimeSeries() error {
	if m.ts == nil {
		return fmt.Errorf("%w: no time series supplied", model.ErrMissingTimeSeries)
	}
	ts := *m.ts
	if m.cfg.HasGrid() {
		switch {
		case !m.cfg.Advanced.GridAvailabilitySimulation:
			ts.GridAvailability = model.NewGridAvailability(m.sets)
		case ts.GridAvailability.Empty():
			return fmt.Errorf("grid availability: %w: grid_availability_simulation is on but no series was supplied",
				model.ErrMissingTimeSeries)
		}
	}
	if err := ts.Validate(m.sets, m.cfg.HasGrid()); err != nil {
		return err
	}
	m.ts = &ts
	return nil
}

// Solve builds the model if needed, solves it with b and keeps the solution.
func (m *Model) Solve(ctx context.Context, b solver.Backend, opts solver.Options) (*Solution, error) {
	if err := m.Build(); err != nil {
		return nil, err
	}
	sol, err := m.solveOnce(ctx, b, opts)
	if err != nil {
		return nil, err
	}
	m.solution = sol
	return sol, nil
}

func (m *Model) solveOnce(ctx context.Context, b solver.Backend, opts solver.Options) (*Solution, error) {
	res, err := solver.Run(ctx, b, m.prob, opts, m.log)
	if err != nil {
		return nil, err
	}
	return m.capture(b.Name(), res), nil
}

// Sets returns the set catalog. Nil before Build.
func (m *Model) Sets() *model.Sets { return m.sets }

// Parameters returns the derived parameters. Nil before Build.
func (m *Model) Parameters() *Parameters { return m.par }

// Config returns the parameter bundle.
func (m *Model) Config() *config.Config { return m.cfg }

// TimeSeries returns the validated time series, with grid availability
// filled in after Build.
func (m *Model) TimeSeries() *model.TimeSeries { return m.ts }

// Problem exposes the assembled program. Nil before Build.
func (m *Model) Problem() *lp.Problem { return m.prob }

// Solution returns the last kept solution or model.ErrModelNotSolved.
func (m *Model) Solution() (*Solution, error) {
	if m.solution == nil {
		return nil, model.ErrModelNotSolved
	}
	return m.solution, nil
}

// GetSolutionVariable returns a copy of a solved variable array by variable
// name or display name.
func (m *Model) GetSolutionVariable(name string) (*model.Array, error) {
	if m.solution == nil {
		return nil, fmt.Errorf("%w: %q requested before a successful solve", model.ErrModelNotSolved, name)
	}
	return m.solution.Variable(name)
}

// GetSettings reads a key of advanced_settings when advanced is true,
// otherwise of project_settings.
func (m *Model) GetSettings(key string, advanced bool) (any, error) {
	section := "project_settings"
	if advanced {
		section = "advanced_settings"
	}
	return m.cfg.GetSetting(section, key)
}
