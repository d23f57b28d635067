package model

// Action is a human-friendly battery operating mode for a period.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// ActionFromFlows labels a period by its net battery flow. Flows below
// eps are treated as zero.
func ActionFromFlows(inflowWh, outflowWh, eps float64) Action {
	net := outflowWh - inflowWh
	switch {
	case net < -eps:
		return ActionCharging
	case net > eps:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
