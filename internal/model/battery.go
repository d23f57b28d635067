package model

import (
	"errors"
	"fmt"
)

// BatteryBank is the installed storage for one year, used to replay a solved
// dispatch outside the optimizer.
// Units:
// - CapacityWh: Wh installed (new units plus existing capacity)
// - Efficiencies: 0..1
// - DepthOfDischarge: minimum SOC as a fraction of CapacityWh
// - SOCWh: Wh stored
type BatteryBank struct {
	CapacityWh          float64
	ChargeEfficiency    float64
	DischargeEfficiency float64
	DepthOfDischarge    float64
	MaxChargeHours      float64
	MaxDischargeHours   float64
	SOCWh               float64
}

func (b *BatteryBank) Validate() error {
	if b.CapacityWh < 0 {
		return errors.New("CapacityWh must be >= 0")
	}
	if b.ChargeEfficiency <= 0 || b.ChargeEfficiency > 1 {
		return errors.New("ChargeEfficiency must be in (0, 1]")
	}
	if b.DischargeEfficiency <= 0 || b.DischargeEfficiency > 1 {
		return errors.New("DischargeEfficiency must be in (0, 1]")
	}
	if b.DepthOfDischarge < 0 || b.DepthOfDischarge > 1 {
		return errors.New("DepthOfDischarge must be in [0, 1]")
	}
	return nil
}

// MinSOCWh is the lowest stored energy allowed.
func (b *BatteryBank) MinSOCWh() float64 {
	return b.DepthOfDischarge * b.CapacityWh
}

// Step applies one hourly interval: SOC += η_ch·in − out/η_dis.
// It returns the new SOC and an error when the result leaves
// [MinSOCWh−tol, CapacityWh+tol] or a flow exceeds its power cap.
func (b *BatteryBank) Step(inflowWh, outflowWh, tol float64) (float64, error) {
	if inflowWh < -tol || outflowWh < -tol {
		return b.SOCWh, fmt.Errorf("negative battery flow in=%g out=%g", inflowWh, outflowWh)
	}
	if b.MaxChargeHours > 0 && inflowWh > b.CapacityWh/b.MaxChargeHours+tol {
		return b.SOCWh, fmt.Errorf("charge %g Wh exceeds power cap %g", inflowWh, b.CapacityWh/b.MaxChargeHours)
	}
	if b.MaxDischargeHours > 0 && outflowWh > b.CapacityWh/b.MaxDischargeHours+tol {
		return b.SOCWh, fmt.Errorf("discharge %g Wh exceeds power cap %g", outflowWh, b.CapacityWh/b.MaxDischargeHours)
	}
	b.SOCWh += b.ChargeEfficiency*inflowWh - outflowWh/b.DischargeEfficiency
	if b.SOCWh < b.MinSOCWh()-tol || b.SOCWh > b.CapacityWh+tol {
		return b.SOCWh, fmt.Errorf("SOC %g Wh outside [%g, %g]", b.SOCWh, b.MinSOCWh(), b.CapacityWh)
	}
	return b.SOCWh, nil
}
