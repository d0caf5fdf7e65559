package qualagent

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Feedback LEDs on the I/O test board: output 0 lights on a minimum
// crossing, output 3 on a maximum crossing.
const (
	analogMinFeedbackOut = 0
	analogMaxFeedbackOut = 3
)

// testAnalogIn runs every tick while the analog stage is active. The core
// sensors handler keeps per-channel min/max current; this routine latches the
// threshold crossings, drives the feedback LEDs for one second per crossing,
// and completes once every channel has hit both limits and the last feedback
// countdown has expired.
func (s *Sequencer) testAnalogIn(robot *Robot, firstCall bool) bool {
	if firstCall {
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Analog input test",
			"Turn the analog input screws clockwise and counterclockwise until reaching the limits\n"+
				"The four LEDs below should get illuminated when completed")
		s.cfg.Commander.SetDigitalOutput(allOutputs, [4]bool{})
		robot.SetValue(DevAnalogInput, 0)
		for i := range robot.Analog {
			robot.Analog[i].MinReached = false
			robot.Analog[i].MaxReached = false
			robot.Analog[i].FeedbackTicks = 0
		}
	}

	// Count down the feedback windows; when the last one expires, turn the
	// feedback LEDs back off.
	anyActive := false
	for i := range robot.Analog {
		if robot.Analog[i].FeedbackTicks > 0 {
			anyActive = true
			robot.Analog[i].FeedbackTicks--
		}
	}
	if anyActive && feedbackExpired(robot) {
		var mask, values [4]bool
		mask[analogMinFeedbackOut] = true
		mask[analogMaxFeedbackOut] = true
		s.cfg.Commander.SetDigitalOutput(mask, values)
	}

	feedbackTicks := s.ticksFor(feedbackWindow)
	for i := range robot.Analog {
		ch := &robot.Analog[i]
		if !ch.MinReached && ch.Min <= s.cfg.AnalogMinThreshold {
			ch.MinReached = true
			ch.FeedbackTicks = feedbackTicks
			s.pulseFeedback(analogMinFeedbackOut)
		}
		if !ch.MaxReached && ch.Max >= s.cfg.AnalogMaxThreshold {
			ch.MaxReached = true
			ch.FeedbackTicks = feedbackTicks
			s.pulseFeedback(analogMaxFeedbackOut)
		}
	}

	if !analogComplete(robot) {
		return false
	}

	log.Info().Msg("analog input evaluation completed")
	robot.MarkOK(DevAnalogInput)
	s.cfg.Prompter.HidePrompt()
	s.advance()
	return true
}

const feedbackWindow = time.Second

func (s *Sequencer) pulseFeedback(output int) {
	var mask, values [4]bool
	mask[output] = true
	values[output] = true
	s.cfg.Commander.SetDigitalOutput(mask, values)
}

func feedbackExpired(robot *Robot) bool {
	for i := range robot.Analog {
		if robot.Analog[i].FeedbackTicks > 0 {
			return false
		}
	}
	return true
}

func analogComplete(robot *Robot) bool {
	for i := range robot.Analog {
		ch := &robot.Analog[i]
		if !ch.MinReached || !ch.MaxReached || ch.FeedbackTicks > 0 {
			return false
		}
	}
	return true
}
