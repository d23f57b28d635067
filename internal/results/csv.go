package results

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

var ledgerHeader = []string{
	"index",
	"scenario",
	"year",
	"period",
	"demand_wh",
	"renewable_wh",
	"curtailment_wh",
	"generator_wh",
	"grid_import_wh",
	"grid_export_wh",
	"lost_load_wh",
	"action",
	"battery_inflow_wh",
	"battery_outflow_wh",
	"soc_start_wh",
	"soc_end_wh",
	"cost",
	"cum_cost",
}

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, ledger)
}

// WriteLedger writes the ledger as CSV with a header row.
func WriteLedger(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	if err := w.Write(ledgerHeader); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			strconv.Itoa(r.Scenario),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Period),
			fmtFloat(r.Demand),
			fmtFloat(r.Renewable),
			fmtFloat(r.Curtailment),
			fmtFloat(r.Generator),
			fmtFloat(r.GridImport),
			fmtFloat(r.GridExport),
			fmtFloat(r.LostLoad),
			string(r.Action),
			fmtFloat(r.BatteryInflow),
			fmtFloat(r.BatteryOutflow),
			fmtFloat(r.SOCStart),
			fmtFloat(r.SOCEnd),
			fmtFloat(r.Cost),
			fmtFloat(r.CumCost),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
