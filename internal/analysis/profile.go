// Package analysis screens a project's input series before sizing: demand
// statistics per scenario and year, and renewable sources ranked by
// capacity factor.
package analysis

import (
	"fmt"
	"sort"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/model"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes one hourly series in Wh.
type Stats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P05   float64 `json:"p05"`
	P95   float64 `json:"p95"`
	Total float64 `json:"total"`
}

// Describe computes Stats over vals. Percentiles interpolate linearly
// between order statistics.
func Describe(vals []float64) Stats {
	if len(vals) == 0 {
		return Stats{}
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	total := floats.Sum(sorted)
	return Stats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  total / float64(len(sorted)),
		P05:   stat.Quantile(0.05, stat.LinInterp, sorted, nil),
		P95:   stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		Total: total,
	}
}

// DemandProfile describes the demand of one scenario and year.
type DemandProfile struct {
	Scenario int `json:"scenario"`
	Year     int `json:"year"`
	Stats
	// PeakPeriod is the 1-based period of the highest demand.
	PeakPeriod int `json:"peak_period"`
	// LoadFactor is mean over peak demand, 0 for an all-zero year.
	LoadFactor float64 `json:"load_factor"`
}

// SourceYield describes one renewable source in one scenario.
type SourceYield struct {
	Name     string `json:"name"`
	Scenario int    `json:"scenario"`
	// Stats are over the per-unit hourly yield after the inverter.
	Stats
	NominalCapacity float64 `json:"nominal_capacity"`
	CapacityFactor  float64 `json:"capacity_factor"`
}

// Profile is the screening result of a project.
type Profile struct {
	Project string          `json:"project"`
	Demand  []DemandProfile `json:"demand"`
	Sources []SourceYield   `json:"sources,omitempty"`
}

// ProfileProject screens the validated configuration c and its series ts.
func ProfileProject(c *config.Config, ts *model.TimeSeries) (*Profile, error) {
	if ts == nil || ts.Demand.Empty() {
		return nil, fmt.Errorf("%w: demand", model.ErrMissingTimeSeries)
	}
	start, err := c.StartYear()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfiguration, err)
	}

	d := ts.Demand
	S, P, Y := d.Size(model.DimScenarios), d.Size(model.DimPeriods), d.Size(model.DimYears)
	out := &Profile{Project: c.Project.Name}
	vals := make([]float64, P)
	for s := 0; s < S; s++ {
		for y := 0; y < Y; y++ {
			for t := 0; t < P; t++ {
				vals[t] = d.At(s, t, y)
			}
			dp := DemandProfile{Scenario: s + 1, Year: start + y, Stats: Describe(vals)}
			dp.PeakPeriod = floats.MaxIdx(vals) + 1
			if dp.Max > 0 {
				dp.LoadFactor = dp.Mean / dp.Max
			}
			out.Demand = append(out.Demand, dp)
		}
	}

	if len(c.Resource.ResNames) == 0 {
		return out, nil
	}
	if ts.Resource.Empty() {
		return nil, fmt.Errorf("%w: resources", model.ErrMissingTimeSeries)
	}
	out.Sources = RankSources(c, ts.Resource)
	return out, nil
}

// RankSources computes the yield of every (scenario, source) pair of res
// and sorts descending by capacity factor.
func RankSources(c *config.Config, res *model.Array) []SourceYield {
	S, R, P := res.Size(model.DimScenarios), res.Size(model.DimRenewables), res.Size(model.DimPeriods)
	out := make([]SourceYield, 0, S*R)
	vals := make([]float64, P)
	for s := 0; s < S; s++ {
		for r := 0; r < R && r < len(c.Resource.ResNames); r++ {
			eta := 1.0
			if r < len(c.Renewables.ResInverterEfficiency) {
				eta = c.Renewables.ResInverterEfficiency[r]
			}
			for t := 0; t < P; t++ {
				vals[t] = res.At(s, r, t) * eta
			}
			y := SourceYield{
				Name:     c.Resource.ResNames[r],
				Scenario: s + 1,
				Stats:    Describe(vals),
			}
			if r < len(c.Resource.ResNominalCapacity) {
				y.NominalCapacity = c.Resource.ResNominalCapacity[r]
			}
			if y.NominalCapacity > 0 {
				y.CapacityFactor = y.Mean / y.NominalCapacity
			}
			out = append(out, y)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CapacityFactor != out[j].CapacityFactor {
			return out[i].CapacityFactor > out[j].CapacityFactor
		}
		return out[i].Name < out[j].Name
	})
	return out
}
