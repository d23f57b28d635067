package formulation

import (
	"fmt"
	"sort"

	"microgrid-planner/internal/model"
	"microgrid-planner/internal/solver"
)

// Solution is an immutable snapshot of solved variable arrays.
type Solution struct {
	Solver    string  `json:"solver"`
	Status    string  `json:"status"`
	Objective float64 `json:"objective"`
	// CO2 is the scenario-weighted emission total; zero unless emissions
	// are modeled.
	CO2 float64 `json:"co2"`

	values map[string]*model.Array
	order  []string
}

func (m *Model) capture(solverName string, res *solver.Result) *Solution {
	sol := &Solution{
		Solver:    solverName,
		Status:    string(res.Status),
		Objective: res.Objective,
		values:    make(map[string]*model.Array, len(m.prob.Arrays())),
	}
	for _, a := range m.prob.Arrays() {
		sol.values[a.Name] = a.Values(res.Values)
		sol.order = append(sol.order, a.Name)
	}
	if m.v.emissions {
		sol.CO2 = m.co2Expr().Eval(res.Values)
	}
	return sol
}

// Variable returns a copy of the named array. Display names are accepted.
func (s *Solution) Variable(name string) (*model.Array, error) {
	key := name
	if v, ok := displayNames[name]; ok {
		key = v
	}
	a, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not produced by this formulation", model.ErrUnknownVariable, name)
	}
	return a.Clone(), nil
}

// Scalar returns a 0-d variable's value.
func (s *Solution) Scalar(name string) (float64, error) {
	a, err := s.Variable(name)
	if err != nil {
		return 0, err
	}
	if a.Len() != 1 {
		return 0, fmt.Errorf("%w: %q has %d values", model.ErrShapeMismatch, name, a.Len())
	}
	return a.Data[0], nil
}

// Has reports whether the formulation produced the named variable.
func (s *Solution) Has(name string) bool {
	if v, ok := displayNames[name]; ok {
		name = v
	}
	_, ok := s.values[name]
	return ok
}

// Names lists the produced variable names in declaration order.
func (s *Solution) Names() []string {
	return append([]string(nil), s.order...)
}

// Arrays returns copies of every array keyed by variable name.
func (s *Solution) Arrays() map[string]*model.Array {
	out := make(map[string]*model.Array, len(s.values))
	for k, v := range s.values {
		out[k] = v.Clone()
	}
	return out
}

// SortedDisplayNames lists the display names whose variable this solution has.
func (s *Solution) SortedDisplayNames() []string {
	var out []string
	for display, name := range displayNames {
		if _, ok := s.values[name]; ok {
			out = append(out, display)
		}
	}
	sort.Strings(out)
	return out
}
