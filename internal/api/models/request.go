package models

// OptimizeRequest represents the request body for sizing a project
type OptimizeRequest struct {
	Project string        `json:"project" binding:"required"` // directory name under projects/
	Solver  string        `json:"solver,omitempty"`           // default: project solver, then server default
	Options SolverOptions `json:"options,omitempty"`

	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
	Scenario      int  `json:"scenario,omitempty"`       // 1-based scenario for the ledger; default: 1
}

// SolverOptions overrides the project's solver section
type SolverOptions struct {
	Profile   string            `json:"profile,omitempty"`    // "default", "barrier", "simplex", "milp"
	TimeLimit float64           `json:"time_limit,omitempty"` // seconds
	MIPGap    float64           `json:"mip_gap,omitempty"`
	NodeLimit int               `json:"node_limit,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// ParetoRequest represents the request body for an emission/cost front
type ParetoRequest struct {
	Project string        `json:"project" binding:"required"`
	Solver  string        `json:"solver,omitempty"`
	Options SolverOptions `json:"options,omitempty"`
	Points  int           `json:"points,omitempty" binding:"omitempty,min=2"` // default: project pareto_points
}
