package model

import "fmt"

// Canonical time-series layouts.
var (
	DemandDims           = []string{DimScenarios, DimPeriods, DimYears}
	ResourceDims         = []string{DimScenarios, DimRenewables, DimPeriods}
	TemperatureDims      = []string{DimScenarios, DimPeriods}
	GridAvailabilityDims = []string{DimScenarios, DimPeriods, DimYears}
)

// TimeSeries holds the exogenous hourly inputs, already in canonical shape.
//
// Units:
// - Demand: Wh per period
// - Resource: Wh per installed nominal unit per period
// - Temperature: °C (reserved)
// - GridAvailability: 0 or 1
type TimeSeries struct {
	Demand           *Array `json:"demand"`
	Resource         *Array `json:"resource"`
	Temperature      *Array `json:"temperature,omitempty"`
	GridAvailability *Array `json:"grid_availability,omitempty"`
}

// NewDemand allocates an empty demand array for the catalog.
func NewDemand(s *Sets) *Array {
	return NewArray(DemandDims, s.Shape(DemandDims...))
}

// NewResource allocates an empty resource array for the catalog.
func NewResource(s *Sets) *Array {
	return NewArray(ResourceDims, s.Shape(ResourceDims...))
}

// NewGridAvailability allocates an availability array with every period available.
func NewGridAvailability(s *Sets) *Array {
	a := NewArray(GridAvailabilityDims, s.Shape(GridAvailabilityDims...))
	for i := range a.Data {
		a.Data[i] = 1
	}
	return a
}

// Validate checks every series against the set catalog. Grid availability
// is required only when requireGrid is set; temperature is optional.
func (ts *TimeSeries) Validate(s *Sets, requireGrid bool) error {
	if ts == nil {
		return fmt.Errorf("%w: no time series supplied", ErrMissingTimeSeries)
	}
	if err := ts.Demand.CheckShape(DemandDims, s.Shape(DemandDims...)); err != nil {
		return fmt.Errorf("demand: %w", err)
	}
	if len(s.RenewableSources) > 0 {
		if err := ts.Resource.CheckShape(ResourceDims, s.Shape(ResourceDims...)); err != nil {
			return fmt.Errorf("resource: %w", err)
		}
	}
	if !ts.Temperature.Empty() {
		if err := ts.Temperature.CheckShape(TemperatureDims, s.Shape(TemperatureDims...)); err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
	}
	if requireGrid {
		if err := ts.GridAvailability.CheckShape(GridAvailabilityDims, s.Shape(GridAvailabilityDims...)); err != nil {
			return fmt.Errorf("grid availability: %w", err)
		}
		for _, v := range ts.GridAvailability.Data {
			if v != 0 && v != 1 {
				return fmt.Errorf("%w: grid availability value %v not in {0,1}", ErrShapeMismatch, v)
			}
		}
	}
	for _, v := range ts.Demand.Data {
		if v < 0 {
			return fmt.Errorf("%w: negative demand %v", ErrShapeMismatch, v)
		}
	}
	return nil
}
