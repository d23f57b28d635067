package formulation

import (
	"math"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/lp"
	"microgrid-planner/internal/model"
)

type variables struct {
	resUnits, resProd, curtailment *lp.VarArray

	batUnits, batIn, batOut, batSOC *lp.VarArray

	genUnits, genProd                   *lp.VarArray
	genFull, genPartial, genPartialEner *lp.VarArray

	fromGrid, toGrid, singleFlow *lp.VarArray

	lostLoad *lp.VarArray

	investment, omAct, omNonAct, salvage, npc, totalVariable lp.Var

	replacementAct, replacementNonAct *lp.VarArray
	fuelAct, fuelNonAct               *lp.VarArray
	lostLoadCostAct, lostLoadCostNon  *lp.VarArray
	gridCostAct, gridCostNonAct       *lp.VarArray
	scenarioVarAct, scenarioVarNon    *lp.VarArray
	scenarioNPC                       *lp.VarArray

	emissions                                bool
	resEmission, batEmission, genEmission    lp.Var
	fuelEmission, gridEmission, scenGridEmis *lp.VarArray
	scenarioCO2                              *lp.VarArray
}

var (
	scenarioDims = []string{model.DimScenarios}
	flowDims     = []string{model.DimScenarios, model.DimYears, model.DimPeriods}
)

func (m *Model) integerUnits() bool {
	return m.cfg.Advanced.MILPFormulation && m.cfg.Advanced.UnitCommitment
}

func (m *Model) unitKind() lp.Kind {
	if m.integerUnits() {
		return lp.Integer
	}
	return lp.Continuous
}

func (m *Model) hasLostLoad() bool {
	return m.cfg.Project.LostLoadFraction > 0
}

func (m *Model) singleFlowGrid() bool {
	return m.cfg.HasGrid() && m.cfg.Advanced.MILPFormulation && m.cfg.Advanced.GridConnectionType == config.GridPurchaseSell
}

func upperOrInf(max float64) float64 {
	if max > 0 {
		return max
	}
	return math.Inf(1)
}

func (m *Model) addVariables() {
	p := m.prob
	s := m.sets
	inf := math.Inf(1)
	kind := m.unitKind()
	v := &m.v

	R := len(s.RenewableSources)
	if R > 0 {
		v.resUnits = p.AddArray(VarResUnits,
			[]string{model.DimSteps, model.DimRenewables}, s.Shape(model.DimSteps, model.DimRenewables), 0, inf, kind)
		for k := range s.Steps {
			for r := 0; r < R; r++ {
				p.SetUpper(v.resUnits.At(k, r), upperOrInf(config.At(m.cfg.Renewables.ResMaxUnits, r)))
			}
		}
		v.resProd = p.AddArray(VarResProduction,
			[]string{model.DimScenarios, model.DimSteps, model.DimRenewables, model.DimPeriods},
			s.Shape(model.DimScenarios, model.DimSteps, model.DimRenewables, model.DimPeriods), 0, inf, lp.Continuous)
		v.curtailment = p.AddArray(VarCurtailment,
			[]string{model.DimScenarios, model.DimYears, model.DimRenewables, model.DimPeriods},
			s.Shape(model.DimScenarios, model.DimYears, model.DimRenewables, model.DimPeriods), 0, inf, lp.Continuous)
	}

	if m.cfg.HasBattery() {
		v.batUnits = p.AddArray(VarBatteryUnits, []string{model.DimSteps}, s.Shape(model.DimSteps), 0, inf, kind)
		for k := range s.Steps {
			p.SetUpper(v.batUnits.At(k), upperOrInf(m.cfg.Battery.BatteryMaxUnits))
		}
		shape := s.Shape(flowDims...)
		v.batIn = p.AddArray(VarBatteryInflow, flowDims, shape, 0, inf, lp.Continuous)
		v.batOut = p.AddArray(VarBatteryOutflow, flowDims, shape, 0, inf, lp.Continuous)
		v.batSOC = p.AddArray(VarBatterySOC, flowDims, shape, 0, inf, lp.Continuous)
	}

	G := len(s.GeneratorTypes)
	if G > 0 {
		gen := m.cfg.Generator
		v.genUnits = p.AddArray(VarGeneratorUnits,
			[]string{model.DimSteps, model.DimGenerators}, s.Shape(model.DimSteps, model.DimGenerators), 0, inf, kind)
		for k := range s.Steps {
			for g := 0; g < G; g++ {
				p.SetUpper(v.genUnits.At(k, g), upperOrInf(config.At(gen.GenMaxUnits, g)))
			}
		}
		genDims := []string{model.DimScenarios, model.DimYears, model.DimGenerators, model.DimPeriods}
		genShape := s.Shape(genDims...)
		v.genProd = p.AddArray(VarGeneratorProduction, genDims, genShape, 0, inf, lp.Continuous)
		if m.cfg.GeneratorDemandCapEnabled() {
			for sc := range s.Scenarios {
				for y := range s.Years {
					for g := 0; g < G; g++ {
						for t := range s.Periods {
							p.SetUpper(v.genProd.At(sc, y, g, t), m.ts.Demand.At(sc, t, y))
						}
					}
				}
			}
		}
		if m.cfg.PartialLoad() {
			v.genFull = p.AddArray(VarGeneratorFullLoad,
				[]string{model.DimSteps, model.DimGenerators}, s.Shape(model.DimSteps, model.DimGenerators), 0, inf, lp.Integer)
			v.genPartial = p.AddArray(VarGeneratorPartialLoad, genDims, genShape, 0, 1, lp.Binary)
			v.genPartialEner = p.AddArray(VarGeneratorPartialEner, genDims, genShape, 0, inf, lp.Continuous)
		}
	}

	if m.cfg.HasGrid() {
		m.addGridVariables()
	}

	if m.hasLostLoad() {
		v.lostLoad = p.AddArray(VarLostLoad, flowDims, s.Shape(flowDims...), 0, inf, lp.Continuous)
		frac := m.cfg.Project.LostLoadFraction
		for sc := range s.Scenarios {
			for y := range s.Years {
				for t := range s.Periods {
					p.SetUpper(v.lostLoad.At(sc, y, t), m.ts.Demand.At(sc, t, y)*frac)
				}
			}
		}
	}

	m.addCostVariables()
	if m.cfg.Advanced.MultiobjectiveOptimization {
		m.addEmissionVariables()
	}
}

func (m *Model) addGridVariables() {
	p := m.prob
	s := m.sets
	v := &m.v
	shape := s.Shape(flowDims...)
	maxP := m.cfg.Grid.MaximumGridPower
	avail := m.ts.GridAvailability

	v.fromGrid = p.AddArray(VarFromGrid, flowDims, shape, 0, math.Inf(1), lp.Continuous)
	sell := m.cfg.Advanced.GridConnectionType == config.GridPurchaseSell
	if sell {
		v.toGrid = p.AddArray(VarToGrid, flowDims, shape, 0, math.Inf(1), lp.Continuous)
	}
	if m.singleFlowGrid() {
		v.singleFlow = p.AddArray(VarSingleFlowGrid, flowDims, shape, 0, 1, lp.Binary)
	}
	for sc := range s.Scenarios {
		for y := range s.Years {
			for t := range s.Periods {
				limit := 0.0
				if m.par.GridConnected[y] {
					limit = avail.At(sc, t, y) * maxP
				}
				p.SetBounds(v.fromGrid.At(sc, y, t), 0, limit)
				if sell {
					p.SetBounds(v.toGrid.At(sc, y, t), 0, limit)
				}
			}
		}
	}
}

func (m *Model) addCostVariables() {
	p := m.prob
	v := &m.v
	free := func(name string) lp.Var { return p.AddScalar(name, math.Inf(-1), math.Inf(1), lp.Continuous) }
	perScenario := func(name string) *lp.VarArray {
		return p.AddArray(name, scenarioDims, m.sets.Shape(scenarioDims...), math.Inf(-1), math.Inf(1), lp.Continuous)
	}

	v.investment = free(VarInvestment)
	v.omAct = free(VarOMAct)
	v.omNonAct = free(VarOMNonAct)
	if m.cfg.HasBattery() {
		v.replacementAct = perScenario(VarReplacementAct)
		v.replacementNonAct = perScenario(VarReplacementNonAct)
	}
	if m.cfg.HasGenerator() {
		v.fuelAct = perScenario(VarFuelAct)
		v.fuelNonAct = perScenario(VarFuelNonAct)
	}
	if m.hasLostLoad() {
		v.lostLoadCostAct = perScenario(VarLostLoadCostAct)
		v.lostLoadCostNon = perScenario(VarLostLoadCostNon)
	}
	if m.cfg.HasGrid() {
		v.gridCostAct = perScenario(VarGridCostAct)
		v.gridCostNonAct = perScenario(VarGridCostNonAct)
	}
	v.scenarioVarAct = perScenario(VarScenarioVarAct)
	v.scenarioVarNon = perScenario(VarScenarioVarNon)
	v.salvage = free(VarSalvage)
	v.scenarioNPC = perScenario(VarScenarioNPC)
	v.npc = free(VarNPC)
	v.totalVariable = free(VarTotalVariable)
}

func (m *Model) addEmissionVariables() {
	p := m.prob
	v := &m.v
	inf := math.Inf(1)
	v.emissions = true
	v.resEmission = p.AddScalar(VarResEmission, 0, inf, lp.Continuous)
	if m.cfg.HasBattery() {
		v.batEmission = p.AddScalar(VarBatteryEmission, 0, inf, lp.Continuous)
	}
	if m.cfg.HasGenerator() {
		v.genEmission = p.AddScalar(VarGeneratorEmission, 0, inf, lp.Continuous)
		v.fuelEmission = p.AddArray(VarFuelEmission, scenarioDims, m.sets.Shape(scenarioDims...), 0, inf, lp.Continuous)
	}
	if m.cfg.HasGrid() {
		v.gridEmission = p.AddArray(VarGridEmission, flowDims, m.sets.Shape(flowDims...), 0, inf, lp.Continuous)
		v.scenGridEmis = p.AddArray(VarScenarioGridEmission, scenarioDims, m.sets.Shape(scenarioDims...), 0, inf, lp.Continuous)
	}
	v.scenarioCO2 = p.AddArray(VarScenarioCO2, scenarioDims, m.sets.Shape(scenarioDims...), 0, inf, lp.Continuous)
}
