package formulation

import (
	"fmt"
	"math"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/model"

	"gonum.org/v1/gonum/stat"
)

// MaxPenetration caps the renewable penetration floor; values closer to 1
// make the floor numerically fragile.
const MaxPenetration = 0.999

// Parameters are the derived values the constraint groups consume.
// Year and step indices are 0-based.
type Parameters struct {
	DiscountRate float64
	// StepDF[k] = (1+r)^-(k·step_duration)
	StepDF []float64
	// YearDF[y] = (1+r)^-(y+1)
	YearDF []float64
	// HorizonDF = (1+r)^-Y
	HorizonDF float64

	ScenarioWeights []float64

	BatteryReplacementCost float64
	BatteryMinCapacity     float64

	// [generator][year], currency/Wh
	MarginalCost        [][]float64
	PartialMarginalCost [][]float64
	// [generator][year], currency per partial-load period
	StartCost [][]float64

	// ResExistingUnits[r] is existing capacity in nominal units.
	ResExistingUnits []float64
	// ResExistingActive[y][r] is 1 while the existing asset is within its lifetime.
	ResExistingActive [][]float64
	// BatteryExisting[y] is active existing storage in Wh.
	BatteryExisting []float64
	// GenExisting[y][g] is active existing generator capacity in W.
	GenExisting [][]float64

	GridConnected  []bool
	GridInvestment float64

	Penetration float64
}

// WACC is (CoD·(1−tax)·D + CoE·E)/(D+E).
func WACC(costOfDebt, costOfEquity, tax, debtShare, equityShare float64) float64 {
	total := debtShare + equityShare
	if total == 0 {
		return 0
	}
	return (costOfDebt*(1-tax)*debtShare + costOfEquity*equityShare) / total
}

// UnitaryBatteryReplacementCost is charged per Wh of throughput (in + out).
func UnitaryBatteryReplacementCost(specificInvestment, electronicsInvestment, cycles, dod float64) float64 {
	denom := cycles * 2 * dod
	if denom <= 0 {
		return 0
	}
	return (specificInvestment - electronicsInvestment) / denom
}

// BatteryMinCapacity is the mean scenario-weighted demand of contiguous
// 24·days-period groups, taken over every year of the horizon, divided by
// DOD. Groups restart at each year boundary; a trailing partial group is
// ignored when the year holds at least one full group.
func BatteryMinCapacity(demand *model.Array, weights []float64, days int, dod float64) float64 {
	if days <= 0 || dod <= 0 {
		return 0
	}
	group := 24 * days
	scenarios := demand.Size(model.DimScenarios)
	periods := demand.Size(model.DimPeriods)
	years := demand.Size(model.DimYears)
	var sums []float64
	for y := 0; y < years; y++ {
		full := 0
		for start := 0; start < periods; start += group {
			end := start + group
			if end > periods {
				if full > 0 {
					break
				}
				end = periods
			}
			sum := 0.0
			for s := 0; s < scenarios; s++ {
				for t := start; t < end; t++ {
					sum += weights[s] * demand.At(s, t, y)
				}
			}
			sums = append(sums, sum)
			full++
		}
	}
	if len(sums) == 0 {
		return 0
	}
	return stat.Mean(sums, nil) / dod
}

// existingActive reports whether an asset of the given age at the start of
// the horizon is still within its lifetime in 0-based year y.
func existingActive(age, lifetime, y int) bool {
	return age+y <= lifetime
}

func buildParameters(cfg *config.Config, sets *model.Sets, ts *model.TimeSeries) (*Parameters, error) {
	Y := len(sets.Years)
	T := len(sets.Steps)
	sd := sets.StepDuration
	a := cfg.Advanced

	p := &Parameters{DiscountRate: cfg.Project.DiscountRate}
	if a.WACCCalculation {
		p.DiscountRate = WACC(a.CostOfDebt, a.CostOfEquity, a.Tax, a.DebtShare, a.EquityShare)
	}
	r := p.DiscountRate
	if r <= -1 {
		return nil, fmt.Errorf("%w: discount rate %v", model.ErrInvalidConfiguration, r)
	}

	p.StepDF = make([]float64, T)
	for k := range p.StepDF {
		p.StepDF[k] = math.Pow(1+r, -float64(k*sd))
	}
	p.YearDF = make([]float64, Y)
	for y := range p.YearDF {
		p.YearDF[y] = math.Pow(1+r, -float64(y+1))
	}
	p.HorizonDF = math.Pow(1+r, -float64(Y))

	p.ScenarioWeights = normalizeWeights(a.ScenarioWeights, len(sets.Scenarios))

	if cfg.HasBattery() {
		b := cfg.Battery
		p.BatteryReplacementCost = UnitaryBatteryReplacementCost(
			b.BatterySpecificInvestmentCost, b.BatterySpecificElectronicInvestmentCost,
			b.BatteryCycles, b.BatteryDepthOfDischarge)
		p.BatteryMinCapacity = BatteryMinCapacity(ts.Demand, p.ScenarioWeights,
			cfg.Project.BatteryIndependence, b.BatteryDepthOfDischarge)
	}

	G := len(sets.GeneratorTypes)
	p.MarginalCost = make([][]float64, G)
	p.PartialMarginalCost = make([][]float64, G)
	p.StartCost = make([][]float64, G)
	gp := cfg.Generator
	for g := 0; g < G; g++ {
		p.MarginalCost[g] = make([]float64, Y)
		p.PartialMarginalCost[g] = make([]float64, Y)
		p.StartCost[g] = make([]float64, Y)
		ci := config.At(gp.GenCostIncrease, g)
		for y := 0; y < Y; y++ {
			mc := cfg.FuelCost(g, y) / (gp.FuelLHV[g] * gp.GenNominalEfficiency[g])
			p.MarginalCost[g][y] = mc
			p.StartCost[g][y] = mc * gp.GenNominalCapacity[g] * ci
			p.PartialMarginalCost[g][y] = mc * (1 - ci)
		}
	}

	R := len(sets.RenewableSources)
	brown := a.Brownfield
	rp := cfg.Renewables
	p.ResExistingUnits = make([]float64, R)
	p.ResExistingActive = make([][]float64, Y)
	p.BatteryExisting = make([]float64, Y)
	p.GenExisting = make([][]float64, Y)
	for r := 0; r < R; r++ {
		if brown {
			p.ResExistingUnits[r] = config.At(rp.ResExistingCapacity, r) / cfg.Resource.ResNominalCapacity[r]
		}
	}
	for y := 0; y < Y; y++ {
		p.ResExistingActive[y] = make([]float64, R)
		for r := 0; r < R; r++ {
			if brown && existingActive(config.AtInt(rp.ResExistingYears, r), rp.ResLifetime[r], y) {
				p.ResExistingActive[y][r] = 1
			}
		}
		if brown && cfg.HasBattery() && existingActive(cfg.Battery.BatteryExistingYears, cfg.Battery.BatteryExpectedLifetime, y) {
			p.BatteryExisting[y] = cfg.Battery.BatteryExistingCapacity
		}
		p.GenExisting[y] = make([]float64, G)
		for g := 0; g < G; g++ {
			if brown && existingActive(config.AtInt(gp.GenExistingYears, g), gp.GenLifetime[g], y) {
				p.GenExisting[y][g] = config.At(gp.GenExistingCapacity, g)
			}
		}
	}

	p.GridConnected = make([]bool, Y)
	if cfg.HasGrid() {
		for y := range p.GridConnected {
			p.GridConnected[y] = y+1 >= cfg.Grid.YearGridConnection
		}
		p.GridInvestment = cfg.Grid.GridConnectionCost * cfg.Grid.GridDistance
	}

	p.Penetration = math.Min(cfg.Project.RenewablePenetration, MaxPenetration)
	return p, nil
}

func normalizeWeights(w []float64, n int) []float64 {
	out := make([]float64, n)
	sum := 0.0
	for i := 0; i < n && i < len(w); i++ {
		sum += w[i]
	}
	for i := range out {
		if sum > 0 && i < len(w) {
			out[i] = w[i] / sum
		} else {
			out[i] = 1 / float64(n)
		}
	}
	return out
}

// ConnectionYearDF discounts the grid connection investment to the start of
// the connection year.
func (p *Parameters) ConnectionYearDF(yearGridConnection int) float64 {
	return math.Pow(1+p.DiscountRate, -float64(yearGridConnection-1))
}

// SalvageFraction is the residual life share, at horizon end, of a cohort
// installed at 0-based step k.
func SalvageFraction(lifetime, horizon, stepDuration, k int) float64 {
	if lifetime <= 0 {
		return 0
	}
	remaining := float64(lifetime - (horizon - k*stepDuration))
	return math.Max(0, remaining) / float64(lifetime)
}
