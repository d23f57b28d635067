package model

import (
	"fmt"
)

// Canonical dimension names.
const (
	DimScenarios  = "scenarios"
	DimYears      = "years"
	DimPeriods    = "periods"
	DimSteps      = "steps"
	DimRenewables = "renewable_sources"
	DimGenerators = "generator_types"
)

// YearStep pairs a calendar year with the 1-based investment step owning it.
type YearStep struct {
	Year int
	Step int
}

// Sets is the index catalog every array and constraint is built over.
// Coordinates keep their declared order.
type Sets struct {
	Scenarios        []int
	Years            []int
	Periods          []int
	Steps            []int
	RenewableSources []string
	GeneratorTypes   []string

	StepDuration int
	YearSteps    []YearStep
}

// NumSteps is the number of investment stages for a horizon. Remainder years
// fold into the last step.
func NumSteps(horizon, stepDuration int) int {
	if stepDuration <= 0 || stepDuration > horizon {
		return 1
	}
	n := horizon / stepDuration
	if n < 1 {
		n = 1
	}
	return n
}

// StepOfYear maps a 1-based year index to its 1-based step:
// min(T, ceil(y/step_duration)).
func StepOfYear(year, stepDuration, numSteps int) int {
	if stepDuration <= 0 {
		return 1
	}
	s := (year + stepDuration - 1) / stepDuration
	if s > numSteps {
		s = numSteps
	}
	if s < 1 {
		s = 1
	}
	return s
}

// NewSets builds the catalog. generators may be nil when the configuration
// has no generator.
func NewSets(startYear, horizon, periods, scenarios, stepDuration int, renewables, generators []string) (*Sets, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: time horizon %d < 1", ErrInvalidConfiguration, horizon)
	}
	if periods < 1 {
		return nil, fmt.Errorf("%w: %d periods per year", ErrInvalidConfiguration, periods)
	}
	if scenarios < 1 {
		return nil, fmt.Errorf("%w: %d scenarios", ErrInvalidConfiguration, scenarios)
	}
	if stepDuration <= 0 || stepDuration > horizon {
		stepDuration = horizon
	}
	numSteps := NumSteps(horizon, stepDuration)

	s := &Sets{
		Scenarios:        seq(1, scenarios),
		Years:            seq(startYear, horizon),
		Periods:          seq(1, periods),
		Steps:            seq(1, numSteps),
		RenewableSources: append([]string(nil), renewables...),
		GeneratorTypes:   append([]string(nil), generators...),
		StepDuration:     stepDuration,
	}
	s.YearSteps = make([]YearStep, horizon)
	for i := range s.YearSteps {
		s.YearSteps[i] = YearStep{
			Year: startYear + i,
			Step: StepOfYear(i+1, stepDuration, numSteps),
		}
	}
	return s, nil
}

func seq(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}

// StepIndex returns the 0-based step of the 0-based year index.
func (s *Sets) StepIndex(year int) int {
	return s.YearSteps[year].Step - 1
}

// YearsOfStep lists the 0-based year indices owned by a 0-based step.
func (s *Sets) YearsOfStep(step int) []int {
	var out []int
	for y, ys := range s.YearSteps {
		if ys.Step-1 == step {
			out = append(out, y)
		}
	}
	return out
}

// Len returns the cardinality of a named dimension.
func (s *Sets) Len(dim string) int {
	switch dim {
	case DimScenarios:
		return len(s.Scenarios)
	case DimYears:
		return len(s.Years)
	case DimPeriods:
		return len(s.Periods)
	case DimSteps:
		return len(s.Steps)
	case DimRenewables:
		return len(s.RenewableSources)
	case DimGenerators:
		return len(s.GeneratorTypes)
	}
	panic(fmt.Sprintf("model: unknown dimension %q", dim))
}

// Shape returns the cardinalities of the given dimensions in order.
func (s *Sets) Shape(dims ...string) []int {
	out := make([]int, len(dims))
	for i, d := range dims {
		out[i] = s.Len(d)
	}
	return out
}

// StartYear is the first calendar year of the horizon.
func (s *Sets) StartYear() int {
	return s.Years[0]
}
