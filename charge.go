package qualagent

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// measureCharge waits for the charger to engage, then samples the battery
// voltage twice across the measurement window. The device value becomes the
// delta in tenths of volt. A charger that never engages within the timeout
// fails the sub-test; the step still completes.
func (s *Sequencer) measureCharge(robot *Robot, firstCall bool) bool {
	if firstCall {
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Charge measurement",
			fmt.Sprintf("Plug the adapter to the robot and wait %d seconds",
				int(s.cfg.ChargeWindow.Seconds())))
	}

	// The core sensors handler latches the battery reading into the charging
	// device value once the charger reports active.
	for i, n := 0, s.ticksFor(s.cfg.ChargerTimeout); i < n && robot.Value(DevCharging) == 0; i++ {
		s.pumpOnce()
	}

	s.cfg.Prompter.HidePrompt()

	if robot.Value(DevCharging) == 0 {
		log.Error().Dur("timeout", s.cfg.ChargerTimeout).
			Msg("adapter not plugged in time; aborting charge measurement")
		return false
	}

	// Let the charging voltage settle before the first sample.
	s.pumpFor(defaultChargeSettle)
	v1 := robot.Value(DevCharging)

	s.pumpFor(s.cfg.ChargeWindow)
	v2 := robot.Value(DevCharging)

	delta := v2 - v1
	robot.SetValue(DevCharging, delta)

	if delta >= s.cfg.MinChargeDelta {
		log.Info().
			Str("delta_v", fmt.Sprintf("%.1f", float64(delta)/10.0)).
			Int("window_s", int(s.cfg.ChargeWindow.Seconds())).
			Msg("charge measurement passed")
		robot.MarkOK(DevCharging)
	} else {
		log.Warn().
			Str("delta_v", fmt.Sprintf("%.1f", float64(delta)/10.0)).
			Int("window_s", int(s.cfg.ChargeWindow.Seconds())).
			Msg("charge measurement below threshold")
	}

	return true
}
