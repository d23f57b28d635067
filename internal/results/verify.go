package results

import (
	"fmt"
	"math"

	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/model"
)

// Property names reported by Verify.
const (
	PropertyEnergyBalance = "energy_balance"
	PropertySOCBounds     = "soc_bounds"
	PropertyMonotone      = "monotone_capacity"
	PropertyCurtailment   = "curtailment"
	PropertyNPC           = "scenario_npc"
	PropertyPenetration   = "renewable_penetration"
)

const (
	defaultRelTol = 1e-4
	defaultAbsTol = 1e-6
)

// Violation is one failed check.
type Violation struct {
	Property string `json:"property"`
	Index    string `json:"index"`
	Detail   string `json:"detail"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s[%s]: %s", v.Property, v.Index, v.Detail)
}

// Verify re-checks a solution against the model's invariants: energy
// balance closure, SOC bounds by replay, monotone capacity, curtailment
// limits, the scenario NPC decomposition and the penetration floor. A nil
// sol checks the kept solution.
func Verify(m *formulation.Model, sol *formulation.Solution) ([]Violation, error) {
	v, err := newView(m, sol)
	if err != nil {
		return nil, err
	}
	return v.check(), nil
}

// tol is the relative tolerance of 1e-4·max(|terms|), floored at 1e-6.
func tol(terms ...float64) float64 {
	mx := 1.0
	for _, x := range terms {
		mx = math.Max(mx, math.Abs(x))
	}
	return math.Max(defaultAbsTol, defaultRelTol*mx)
}

func (v *view) check() []Violation {
	var out []Violation
	out = append(out, v.checkBalance()...)
	out = append(out, v.checkSOC()...)
	out = append(out, v.checkMonotone()...)
	out = append(out, v.checkCurtailment()...)
	out = append(out, v.checkNPC()...)
	out = append(out, v.checkPenetration()...)
	return out
}

func (v *view) checkBalance() []Violation {
	var out []Violation
	for s := range v.sets.Scenarios {
		for y := range v.sets.Years {
			for t := range v.sets.Periods {
				p := v.period(s, y, t)
				supply := p.renewable + p.batOut - p.batIn + p.generator + p.fromGrid - p.toGrid + p.lostLoad
				if d := math.Abs(supply - p.demand); d > tol(p.demand, p.renewable, p.batIn, p.batOut, p.generator, p.fromGrid, p.toGrid) {
					out = append(out, Violation{
						Property: PropertyEnergyBalance,
						Index:    fmt.Sprintf("%d,%d,%d", s, y, t),
						Detail:   fmt.Sprintf("supply %g vs demand %g", supply, p.demand),
					})
				}
			}
		}
	}
	return out
}

// checkSOC replays each period through a BatteryBank and compares the
// replayed SOC with the solved one.
func (v *view) checkSOC() []Violation {
	if v.batSOC == nil {
		return nil
	}
	bp := v.m.Config().Battery
	var out []Violation
	for s := range v.sets.Scenarios {
		prev := bp.BatteryInitialSOC * v.batteryCapacity(0)
		for y := range v.sets.Years {
			capWh := v.batteryCapacity(y)
			bank := &model.BatteryBank{
				CapacityWh:          capWh,
				ChargeEfficiency:    bp.BatteryChargeEfficiency,
				DischargeEfficiency: bp.BatteryDischargeEfficiency,
				DepthOfDischarge:    bp.BatteryDepthOfDischarge,
				MaxChargeHours:      bp.MaximumBatteryChargeTime,
				MaxDischargeHours:   bp.MaximumBatteryDischargeTime,
				SOCWh:               prev,
			}
			eps := tol(capWh)
			for t := range v.sets.Periods {
				idx := fmt.Sprintf("%d,%d,%d", s, y, t)
				got, err := bank.Step(v.batIn.At(s, y, t), v.batOut.At(s, y, t), eps)
				if err != nil {
					out = append(out, Violation{Property: PropertySOCBounds, Index: idx, Detail: err.Error()})
				}
				want := v.batSOC.At(s, y, t)
				if math.Abs(got-want) > eps {
					out = append(out, Violation{
						Property: PropertySOCBounds,
						Index:    idx,
						Detail:   fmt.Sprintf("replayed SOC %g vs solved %g", got, want),
					})
				}
				bank.SOCWh = want
			}
			prev = bank.SOCWh
		}
	}
	return out
}

func (v *view) checkMonotone() []Violation {
	var out []Violation
	check := func(name string, a *model.Array, inner int, unit func(k, i int) float64) {
		if a == nil {
			return
		}
		for k := 1; k < len(v.sets.Steps); k++ {
			for i := 0; i < inner; i++ {
				cur, prev := unit(k, i), unit(k-1, i)
				if cur-prev < -tol(cur, prev) {
					out = append(out, Violation{
						Property: PropertyMonotone,
						Index:    fmt.Sprintf("%s,%d,%d", name, k, i),
						Detail:   fmt.Sprintf("units drop from %g to %g", prev, cur),
					})
				}
			}
		}
	}
	check(formulation.VarResUnits, v.resUnits, len(v.sets.RenewableSources), func(k, r int) float64 { return v.resUnits.At(k, r) })
	check(formulation.VarBatteryUnits, v.batUnits, 1, func(k, _ int) float64 { return v.batUnits.At(k) })
	check(formulation.VarGeneratorUnits, v.genUnits, len(v.sets.GeneratorTypes), func(k, g int) float64 { return v.genUnits.At(k, g) })
	return out
}

func (v *view) checkCurtailment() []Violation {
	if v.curtailment == nil {
		return nil
	}
	var out []Violation
	for s := range v.sets.Scenarios {
		for y := range v.sets.Years {
			k := v.sets.StepIndex(y)
			for r := range v.sets.RenewableSources {
				for t := range v.sets.Periods {
					c := v.curtailment.At(s, y, r, t)
					prod := v.resProd.At(s, k, r, t) + v.m.ExistingResProduction(s, y, r, t)
					if eps := tol(prod); c < -eps || c > prod+eps {
						out = append(out, Violation{
							Property: PropertyCurtailment,
							Index:    fmt.Sprintf("%d,%d,%d,%d", s, y, r, t),
							Detail:   fmt.Sprintf("curtailment %g outside [0, %g]", c, prod),
						})
					}
				}
			}
		}
	}
	return out
}

func (v *view) checkNPC() []Violation {
	inv := v.scalar(formulation.VarInvestment)
	salvage := v.scalar(formulation.VarSalvage)
	var out []Violation
	for s := range v.sets.Scenarios {
		npc := v.perScenario(formulation.VarScenarioNPC, s)
		act := v.perScenario(formulation.VarScenarioVarAct, s)
		if d := npc - (inv + act - salvage); math.Abs(d) > tol(npc, inv, act, salvage) {
			out = append(out, Violation{
				Property: PropertyNPC,
				Index:    fmt.Sprint(s),
				Detail:   fmt.Sprintf("NPC %g vs investment %g + variable %g - salvage %g", npc, inv, act, salvage),
			})
		}
	}
	return out
}

func (v *view) checkPenetration() []Violation {
	alpha := v.par.Penetration
	if alpha <= 0 {
		return nil
	}
	var out []Violation
	for s := range v.sets.Scenarios {
		var ren, other float64
		for y := range v.sets.Years {
			for t := range v.sets.Periods {
				p := v.period(s, y, t)
				ren += p.renewable
				other += p.generator + p.fromGrid
			}
		}
		if (1-alpha)*ren < alpha*other-tol(ren, other) {
			out = append(out, Violation{
				Property: PropertyPenetration,
				Index:    fmt.Sprint(s),
				Detail:   fmt.Sprintf("renewable share %g below %g", ren/(ren+other), alpha),
			})
		}
	}
	return out
}
