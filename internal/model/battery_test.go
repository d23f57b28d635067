package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatteryBankStep(t *testing.T) {
	b := &BatteryBank{
		CapacityWh:          5000,
		ChargeEfficiency:    0.9,
		DischargeEfficiency: 0.9,
		DepthOfDischarge:    0.2,
		MaxChargeHours:      4,
		MaxDischargeHours:   4,
		SOCWh:               5000,
	}
	require.NoError(t, b.Validate())

	soc, err := b.Step(0, 900, 1e-6)
	require.NoError(t, err)
	assert.InDelta(t, 4000, soc, 1e-9)

	soc, err = b.Step(1000, 0, 1e-6)
	require.NoError(t, err)
	assert.InDelta(t, 4900, soc, 1e-9)

	_, err = b.Step(0, 1300, 1e-6)
	assert.Error(t, err, "power cap")

	b.SOCWh = 1100
	_, err = b.Step(0, 180, 1e-6)
	assert.Error(t, err, "below depth of discharge")
}

func TestActionFromFlows(t *testing.T) {
	assert.Equal(t, ActionCharging, ActionFromFlows(10, 0, 1e-9))
	assert.Equal(t, ActionDischarging, ActionFromFlows(0, 10, 1e-9))
	assert.Equal(t, ActionIdle, ActionFromFlows(5, 5, 1e-9))
}
