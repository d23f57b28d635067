package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the planner. Call sites wrap these with context,
// so callers classify failures with errors.Is.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingTimeSeries    = errors.New("missing time series")
	ErrShapeMismatch        = errors.New("time series shape mismatch")
	ErrSolverUnavailable    = errors.New("solver unavailable")
	ErrInfeasibleModel      = errors.New("model is infeasible")
	ErrUnboundedModel       = errors.New("model is unbounded")
	ErrSolverError          = errors.New("solver error")
	ErrModelNotSolved       = errors.New("model not solved")
	ErrUnknownVariable      = errors.New("unknown variable")
	ErrInternalInvariant    = errors.New("internal invariant violation")
)

// SolverStatusError carries the backend's termination status verbatim.
type SolverStatusError struct {
	Solver string
	Status string
	Err    error
}

func (e *SolverStatusError) Error() string {
	return fmt.Sprintf("%v (solver=%s status=%q)", e.Err, e.Solver, e.Status)
}

func (e *SolverStatusError) Unwrap() error {
	return e.Err
}
