package results

import (
	"fmt"

	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/model"
)

// actionEps is the net battery flow, in Wh, below which a period is idle.
const actionEps = 1e-6

// LedgerRow is one period of solved dispatch for one scenario.
// Energies are Wh.
type LedgerRow struct {
	Index int

	Scenario int
	Year     int
	Period   int

	Demand      float64
	Renewable   float64
	Curtailment float64
	Generator   float64
	GridImport  float64
	GridExport  float64
	LostLoad    float64

	Action         model.Action
	BatteryInflow  float64
	BatteryOutflow float64
	SOCStart       float64
	SOCEnd         float64

	// Cost is the non-actualized variable cost of the period.
	Cost    float64
	CumCost float64
}

// BuildLedger lists every (year, period) of the 0-based scenario s in
// chronological order.
func BuildLedger(m *formulation.Model, sol *formulation.Solution, s int) ([]LedgerRow, error) {
	v, err := newView(m, sol)
	if err != nil {
		return nil, err
	}
	if s < 0 || s >= len(v.sets.Scenarios) {
		return nil, fmt.Errorf("%w: scenario index %d outside [0, %d)", model.ErrShapeMismatch, s, len(v.sets.Scenarios))
	}

	P := len(v.sets.Periods)
	ledger := make([]LedgerRow, 0, len(v.sets.Years)*P)
	cum := 0.0
	soc := 0.0
	if v.batSOC != nil {
		soc = m.Config().Battery.BatteryInitialSOC * v.batteryCapacity(0)
	}
	for y, year := range v.sets.Years {
		for t, period := range v.sets.Periods {
			p := v.period(s, y, t)
			cost := v.variableCost(s, y, t)
			cum += cost
			row := LedgerRow{
				Index: len(ledger),

				Scenario: v.sets.Scenarios[s],
				Year:     year,
				Period:   period,

				Demand:      p.demand,
				Renewable:   p.renewable,
				Curtailment: p.curtailment,
				Generator:   p.generator,
				GridImport:  p.fromGrid,
				GridExport:  p.toGrid,
				LostLoad:    p.lostLoad,

				Action:         model.ActionFromFlows(p.batIn, p.batOut, actionEps),
				BatteryInflow:  p.batIn,
				BatteryOutflow: p.batOut,
				SOCStart:       soc,

				Cost:    cost,
				CumCost: cum,
			}
			if v.batSOC != nil {
				soc = v.batSOC.At(s, y, t)
			}
			row.SOCEnd = soc
			ledger = append(ledger, row)
		}
	}
	return ledger, nil
}
