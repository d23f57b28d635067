package formulation

import (
	"context"
	"fmt"
	"math"
	"sort"

	"microgrid-planner/internal/lp"
	"microgrid-planner/internal/metrics"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/solver"

	"go.uber.org/zap"
)

// ParetoPoint is one (emissions, cost) pair of the ε-constraint front.
// NPC holds the cost objective, which is the expected total variable cost
// under the VariableCost goal.
type ParetoPoint struct {
	CO2 float64 `json:"co2"`
	NPC float64 `json:"npc"`
}

// capSlack relaxes each ε cap to absorb solver round-off at the
// minimum-emission endpoint.
func capSlack(limit float64) float64 {
	return 1e-6 * math.Max(1, math.Abs(limit))
}

// SolveMultiObjective traces the cost/CO₂ front with ParetoPoints
// ε-constraint solves between the cost-optimal and emission-optimal
// designs. Points are sorted by CO₂ ascending, so NPC is non-increasing
// along the slice: the first point is the emission-optimal design and the
// last the cost-optimal one. The cost-optimal solution stays the model's
// kept solution.
func (m *Model) SolveMultiObjective(ctx context.Context, b solver.Backend, opts solver.Options) ([]ParetoPoint, []*Solution, error) {
	if !m.cfg.Advanced.MultiobjectiveOptimization {
		return nil, nil, fmt.Errorf("%w: multiobjective_optimization is off", model.ErrInvalidConfiguration)
	}
	n := m.cfg.Advanced.ParetoPoints
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: pareto_points must be at least 2, got %d", model.ErrInvalidConfiguration, n)
	}
	if err := m.Build(); err != nil {
		return nil, nil, err
	}
	costObj := m.costObjective()
	defer m.prob.SetObjective(costObj)

	costOpt, err := m.solveOnce(ctx, b, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("cost-optimal solve: %w", err)
	}
	maxCO2 := costOpt.CO2

	m.prob.SetObjective(m.co2Expr())
	emisOpt, err := m.solveOnce(ctx, b, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("emission-optimal solve: %w", err)
	}
	minCO2 := emisOpt.CO2
	if minCO2 > maxCO2 {
		minCO2 = maxCO2
	}
	m.log.Info("pareto bounds", zap.Float64("min_co2", minCO2), zap.Float64("max_co2", maxCO2), zap.Int("points", n))

	m.prob.SetObjective(costObj)
	points := make([]ParetoPoint, 0, n)
	sols := make([]*Solution, 0, n)
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		limit := minCO2 + float64(k)*(maxCO2-minCO2)/float64(n-1)
		sol, err := m.solveCapped(ctx, b, opts, limit+capSlack(limit))
		if err != nil {
			return nil, nil, fmt.Errorf("pareto point %d (co2 ≤ %g): %w", k, limit, err)
		}
		points = append(points, ParetoPoint{CO2: sol.CO2, NPC: sol.Objective})
		sols = append(sols, sol)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return points[idx[a]].CO2 < points[idx[b]].CO2 })
	sortedPoints := make([]ParetoPoint, n)
	sortedSols := make([]*Solution, n)
	for i, j := range idx {
		sortedPoints[i] = points[j]
		sortedSols[i] = sols[j]
	}

	m.solution = costOpt
	metrics.ParetoPoints.Set(float64(n))
	return sortedPoints, sortedSols, nil
}

// solveCapped solves with co2 ≤ limit and always removes the cap again.
func (m *Model) solveCapped(ctx context.Context, b solver.Backend, opts solver.Options, limit float64) (*Solution, error) {
	if err := m.prob.AddConstraint(ConstraintCO2Cap, m.co2Expr(), lp.LessEq, limit); err != nil {
		return nil, err
	}
	defer func() {
		if err := m.prob.RemoveConstraint(ConstraintCO2Cap); err != nil {
			m.log.Error("removing co2 cap", zap.Error(err))
		}
	}()
	return m.solveOnce(ctx, b, opts)
}
