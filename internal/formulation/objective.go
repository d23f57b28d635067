package formulation

import (
	"microgrid-planner/internal/config"
	"microgrid-planner/internal/lp"
)

// costObjective is E[NPC] or E[total variable cost] depending on the goal.
func (m *Model) costObjective() *lp.Expr {
	if m.cfg.Project.OptimizationGoal == config.GoalVariableCost {
		return lp.NewExpr().Add(m.v.totalVariable, 1)
	}
	return lp.NewExpr().Add(m.v.npc, 1)
}

func (m *Model) addObjective() error {
	if m.cfg.Project.OptimizationGoal == config.GoalVariableCost {
		err := m.prob.AddConstraint(ConstraintInvestmentLimit,
			lp.NewExpr().Add(m.v.investment, 1), lp.LessEq, m.cfg.Project.InvestmentCostLimit)
		if err != nil {
			return err
		}
	}
	m.prob.SetObjective(m.costObjective())
	return nil
}
