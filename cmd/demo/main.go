package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"microgrid-planner/internal/config"
	"microgrid-planner/internal/formulation"
	"microgrid-planner/internal/model"
	"microgrid-planner/internal/results"
	"microgrid-planner/internal/solver"
)

// village is a one-day solar plus battery system with free capital, the
// smallest design that has to shift midday energy into the night.
const village = `
project_settings:
  name: village
  time_horizon: 1
  start_date: "2024-01-01"
  time_resolution: 24
  discount_rate: 0
  system_configuration: RES+Bat
resource_assessment:
  res_names: [PV]
  res_nominal_capacity: [1000]
renewables_params:
  res_inverter_efficiency: [1.0]
  res_specific_investment_cost: [0]
  res_specific_om_cost: [0]
  res_lifetime: [1]
battery_params:
  battery_nominal_capacity: 5000
  battery_specific_investment_cost: 0
  battery_specific_electronic_investment_cost: 0
  battery_specific_om_cost: 0
  battery_charge_battery_efficiency: 0.9
  battery_discharge_battery_efficiency: 0.9
  battery_initial_soc: 1
  battery_depth_of_discharge: 0.2
  maximum_battery_charge_time: 4
  maximum_battery_discharge_time: 4
  battery_cycles: 3000
  battery_expected_lifetime: 1
`

// Demo:
// - Build the village system in memory (flat 1 kWh/h demand, PV 9:00-16:00)
// - Size and dispatch it with the built-in solver
// - Print the sizing and the hourly ledger
func main() {
	demand := flag.Float64("demand", 1000, "Hourly demand in Wh")
	solar := flag.Float64("solar", 2000, "PV yield per unit during daylight hours, Wh")
	outCSV := flag.String("out", "", "Optional path to write ledger CSV (e.g. results/dispatch.csv)")
	flag.Parse()

	cfg, err := config.Parse([]byte(village))
	if err != nil {
		panic(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	P := cfg.Project.TimeResolution
	d := model.NewArray(model.DemandDims, []int{1, P, 1})
	res := model.NewArray(model.ResourceDims, []int{1, 1, P})
	for t := 0; t < P; t++ {
		d.Set(*demand, 0, t, 0)
		if t >= 9 && t <= 16 {
			res.Set(*solar, 0, 0, t)
		}
	}

	m, err := formulation.New(cfg, &model.TimeSeries{Demand: d, Resource: res})
	if err != nil {
		panic(err)
	}
	sol, err := m.Solve(context.Background(), solver.NewGonum(nil), solver.Options{})
	if err != nil {
		panic(err)
	}

	summary, err := results.Summarize(m, sol)
	if err != nil {
		panic(err)
	}
	sizing, _ := json.MarshalIndent(summary.Sizing, "", "  ")
	fmt.Printf("Solver=%s status=%s NPC=%s\n", sol.Solver, summary.Status, summary.Costs.NetPresentCost)
	fmt.Printf("Sizing:\n%s\n\n", sizing)

	ledger, err := results.BuildLedger(m, sol, 0)
	if err != nil {
		panic(err)
	}
	for _, r := range ledger {
		fmt.Printf(
			"h%02d demand=%6.0f  pv=%7.1f  curt=%7.1f  action=%-11s  in=%7.1f  out=%7.1f  soc=%7.1f->%7.1f\n",
			r.Period,
			r.Demand,
			r.Renewable,
			r.Curtailment,
			string(r.Action),
			r.BatteryInflow,
			r.BatteryOutflow,
			r.SOCStart,
			r.SOCEnd,
		)
	}

	violations, err := results.Verify(m, sol)
	if err != nil {
		panic(err)
	}
	for _, v := range violations {
		fmt.Fprintln(os.Stderr, "check failed:", v.Error())
	}

	if *outCSV != "" {
		if err := results.WriteLedgerCSV(*outCSV, ledger); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	last := ledger[len(ledger)-1]
	fmt.Printf("\nDone. Final SOC=%.1f Wh  Total variable cost=%.2f\n", last.SOCEnd, last.CumCost)
}
