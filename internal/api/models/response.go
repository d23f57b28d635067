package models

import (
	"time"

	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/results"
)

// OptimizeResponse represents the response from a sizing run
type OptimizeResponse struct {
	ID         string              `json:"id"`
	Status     string              `json:"status"`
	Summary    *results.Summary    `json:"summary"`
	Violations []results.Violation `json:"violations,omitempty"`
	Ledger     []LedgerRow         `json:"ledger,omitempty"`
}

// ParetoResponse represents the response from a multi-objective run
type ParetoResponse struct {
	ID        string                    `json:"id"`
	Points    []formulation.ParetoPoint `json:"points"`
	Summaries []*results.Summary        `json:"summaries"`
}

// RunInfo describes a stored run
type RunInfo struct {
	ID        string                    `json:"id"`
	Kind      string                    `json:"kind"` // "optimize" or "pareto"
	Project   string                    `json:"project"`
	CreatedAt time.Time                 `json:"created_at"`
	ExpiresAt time.Time                 `json:"expires_at"`
	Summary   *results.Summary          `json:"summary"`
	Points    []formulation.ParetoPoint `json:"points,omitempty"`
	Variables []string                  `json:"variables"`
}

// VariableResponse carries one solved array
type VariableResponse struct {
	Name  string    `json:"name"`
	Dims  []string  `json:"dims"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// LedgerRow represents one period of the dispatch ledger
type LedgerRow struct {
	Index          int     `json:"index"`
	Scenario       int     `json:"scenario"`
	Year           int     `json:"year"`
	Period         int     `json:"period"`
	Demand         float64 `json:"demand_wh"`
	Renewable      float64 `json:"renewable_wh"`
	Curtailment    float64 `json:"curtailment_wh"`
	Generator      float64 `json:"generator_wh"`
	GridImport     float64 `json:"grid_import_wh"`
	GridExport     float64 `json:"grid_export_wh"`
	LostLoad       float64 `json:"lost_load_wh"`
	Action         string  `json:"action"` // "CHARGING", "DISCHARGING", "IDLE"
	BatteryInflow  float64 `json:"battery_inflow_wh"`
	BatteryOutflow float64 `json:"battery_outflow_wh"`
	SOCStart       float64 `json:"soc_start_wh"`
	SOCEnd         float64 `json:"soc_end_wh"`
	Cost           float64 `json:"cost"`
	CumCost        float64 `json:"cum_cost"`
}

// ProjectInfo represents a project found under the projects root
type ProjectInfo struct {
	Name                string   `json:"name"`
	SystemConfiguration string   `json:"system_configuration,omitempty"`
	TimeHorizon         int      `json:"time_horizon,omitempty"`
	Scenarios           int      `json:"scenarios,omitempty"`
	Renewables          []string `json:"renewables,omitempty"`
	Generators          []string `json:"generators,omitempty"`
	Error               string   `json:"error,omitempty"` // set when the document does not validate
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
