package handlers

import (
	"net/http"
	"time"

	"microgrid-planner/internal/api/models"
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/inputs"
	"microgrid-planner/internal/logging"
	"microgrid-planner/internal/results"
	"microgrid-planner/internal/solver"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OptimizeHandler runs sizing and Pareto requests against projects on disk
type OptimizeHandler struct {
	root          string
	defaultSolver string
	store         *RunStore
	log           *zap.Logger
}

// NewOptimizeHandler creates a handler reading projects under root.
func NewOptimizeHandler(root, defaultSolver string, store *RunStore, logger *zap.Logger) *OptimizeHandler {
	return &OptimizeHandler{
		root:          root,
		defaultSolver: defaultSolver,
		store:         store,
		log:           logging.OrNop(logger),
	}
}

// backend resolves the solver by request, then project, then server default.
func (h *OptimizeHandler) backend(cfg *config.Config, name string, o models.SolverOptions) (solver.Backend, solver.Options, error) {
	if name == "" {
		name = cfg.Solver.Name
	}
	if name == "" {
		name = h.defaultSolver
	}
	opts := solver.OptionsFromConfig(cfg.Solver)
	if o.Profile != "" {
		opts.Profile = o.Profile
	}
	if o.TimeLimit > 0 {
		opts.TimeLimit = time.Duration(o.TimeLimit * float64(time.Second))
	}
	if o.MIPGap > 0 {
		opts.MIPGap = o.MIPGap
	}
	if o.NodeLimit > 0 {
		opts.NodeLimit = o.NodeLimit
	}
	if len(o.Extra) > 0 {
		extra := make(map[string]string, len(opts.Extra)+len(o.Extra))
		for k, v := range opts.Extra {
			extra[k] = v
		}
		for k, v := range o.Extra {
			extra[k] = v
		}
		opts.Extra = extra
	}
	// Server-side runs never write solver files.
	opts.ProblemFile = ""
	opts.LogPath = ""
	b, err := solver.Lookup(name, h.log)
	return b, opts, err
}

// RunOptimize handles POST /api/v1/optimize
func (h *OptimizeHandler) RunOptimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := inputs.LoadProject(ctx, h.root, req.Project)
	if err != nil {
		respondError(c, err)
		return
	}
	b, opts, err := h.backend(p.Config, req.Solver, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	m, err := formulation.New(p.Config, p.TimeSeries, formulation.WithLogger(h.log))
	if err != nil {
		respondError(c, err)
		return
	}
	sol, err := m.Solve(ctx, b, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := results.Summarize(m, sol)
	if err != nil {
		respondError(c, err)
		return
	}
	violations, err := results.Verify(m, sol)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(violations) > 0 {
		h.log.Warn("solution violates model invariants",
			zap.String("project", p.Name), zap.Int("violations", len(violations)))
	}

	resp := models.OptimizeResponse{
		Status:     sol.Status,
		Summary:    summary,
		Violations: violations,
	}
	if req.IncludeLedger {
		scenario := req.Scenario
		if scenario == 0 {
			scenario = 1
		}
		ledger, err := results.BuildLedger(m, sol, scenario-1)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Ledger = ledgerRows(ledger)
	}

	resp.ID = h.store.Put(&Run{
		Kind:     "optimize",
		Project:  p.Name,
		Model:    m,
		Solution: sol,
		Summary:  summary,
	})
	h.log.Info("optimize run stored",
		zap.String("id", resp.ID),
		zap.String("project", p.Name),
		zap.String("solver", sol.Solver),
		zap.Float64("objective", sol.Objective))

	c.JSON(http.StatusOK, resp)
}

// RunPareto handles POST /api/v1/pareto
func (h *OptimizeHandler) RunPareto(c *gin.Context) {
	var req models.ParetoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	p, err := inputs.LoadProject(ctx, h.root, req.Project)
	if err != nil {
		respondError(c, err)
		return
	}
	p.Config.Advanced.MultiobjectiveOptimization = true
	if req.Points > 0 {
		p.Config.Advanced.ParetoPoints = req.Points
	}
	if err := p.Config.Validate(); err != nil {
		respondError(c, err)
		return
	}
	b, opts, err := h.backend(p.Config, req.Solver, req.Options)
	if err != nil {
		respondError(c, err)
		return
	}
	m, err := formulation.New(p.Config, p.TimeSeries, formulation.WithLogger(h.log))
	if err != nil {
		respondError(c, err)
		return
	}
	points, sols, err := m.SolveMultiObjective(ctx, b, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.ParetoResponse{Points: points}
	for _, sol := range sols {
		s, err := results.Summarize(m, sol)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Summaries = append(resp.Summaries, s)
	}
	kept, err := m.Solution()
	if err != nil {
		respondError(c, err)
		return
	}
	summary, err := results.Summarize(m, kept)
	if err != nil {
		respondError(c, err)
		return
	}

	resp.ID = h.store.Put(&Run{
		Kind:      "pareto",
		Project:   p.Name,
		Model:     m,
		Solution:  kept,
		Summary:   summary,
		Points:    points,
		Solutions: sols,
	})
	h.log.Info("pareto run stored",
		zap.String("id", resp.ID),
		zap.String("project", p.Name),
		zap.Int("points", len(points)))

	c.JSON(http.StatusOK, resp)
}

func ledgerRows(ledger []results.LedgerRow) []models.LedgerRow {
	out := make([]models.LedgerRow, len(ledger))
	for i, r := range ledger {
		out[i] = models.LedgerRow{
			Index:          r.Index,
			Scenario:       r.Scenario,
			Year:           r.Year,
			Period:         r.Period,
			Demand:         r.Demand,
			Renewable:      r.Renewable,
			Curtailment:    r.Curtailment,
			Generator:      r.Generator,
			GridImport:     r.GridImport,
			GridExport:     r.GridExport,
			LostLoad:       r.LostLoad,
			Action:         string(r.Action),
			BatteryInflow:  r.BatteryInflow,
			BatteryOutflow: r.BatteryOutflow,
			SOCStart:       r.SOCStart,
			SOCEnd:         r.SOCEnd,
			Cost:           r.Cost,
			CumCost:        r.CumCost,
		}
	}
	return out
}
