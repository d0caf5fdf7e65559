package qualagent

import (
	"github.com/rs/zerolog/log"
)

// dispatch routes one queued event to its handler. All handlers run on the
// sequencer goroutine, strictly serialized with tick actions.
func (s *Sequencer) dispatch(ev Event) {
	switch e := ev.(type) {
	case RobotStateEvent:
		s.onRobotState(e)
	case motionDoneEvent:
		s.onMotionDone(e)
	case VersionInfoEvent:
		s.onVersionInfo(e)
	case CoreSensorsEvent:
		s.onCoreSensors(e)
	case DockBeaconEvent:
		s.onDockBeacon(e)
	case GyroEvent:
		s.onGyro(e)
	case ButtonEvent:
		s.onButton(e)
	case BumperEvent:
		s.onBumper(e)
	case WheelDropEvent:
		s.onWheelDrop(e)
	case CliffEvent:
		s.onCliff(e)
	case PowerEvent:
		s.onPower(e)
	case DigitalInputEvent:
		s.onDigitalInput(e)
	case DiagnosticsEvent:
		s.onDiagnostics(e)
	case HealthEvent:
		s.onHealth(e)
	default:
		log.Warn().Str("event", ev.eventName()).Msg("unrecognized event, ignoring")
	}
}

func (s *Sequencer) onRobotState(e RobotStateEvent) {
	if e.Online {
		if robot := s.session.UnderTest(); robot != nil {
			log.Warn().Str("serial", robot.Serial).
				Msg("new robot connected while another is still under evaluation, saving")
			s.session.Persist()
		} else {
			log.Info().Msg("new robot connected")
		}
		s.stage = StageInit
		s.prevStage = StageInit
		s.answerRequired = false
		s.session.Begin()
		return
	}

	robot := s.session.UnderTest()
	if robot == nil {
		// This should not happen.
		log.Warn().Msg("robot offline event received, but no robot is under evaluation")
		return
	}
	if robot.AllOK() {
		log.Info().Str("serial", robot.Serial).Msg("robot evaluation successfully completed")
	} else {
		log.Info().Str("serial", robot.Serial).Msg("robot disconnected without finishing the evaluation")
	}
	s.session.Persist()
}

func (s *Sequencer) onMotionDone(e motionDoneEvent) {
	if s.motion.finish(e) {
		// The maneuver owning the current stage is over; move on.
		s.advance()
	}
}

func (s *Sequencer) onVersionInfo(e VersionInfoEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}

	if robot.OK(DevVersionInfo) {
		if robot.Serial == e.UDID {
			// Odd but harmless: the driver republished the version info.
			log.Debug().Str("serial", robot.Serial).Msg("version info received more than once")
			return
		}
		// The driver can republish late after a new robot came online; never
		// silently keep the stale identifier.
		log.Warn().Str("old_serial", robot.Serial).Str("new_serial", e.UDID).
			Msg("overwriting version info")
		robot.Serial = e.UDID
	} else {
		robot.Serial = e.UDID
	}

	// Reevaluation within a session is not allowed.
	if s.session.Known(robot.Serial) {
		s.cfg.Prompter.ShowPrompt(PromptError, "Known robot",
			"Robot "+robot.Serial+" has been previously evaluated. Proceed with a new robot")
		s.session.Discard()
		return
	}

	robot.Version = e.Version
	robot.MarkOK(DevVersionInfo)
	log.Info().Str("serial", robot.Serial).Str("version", robot.Version.String()).
		Msg("version info received")
}

func (s *Sequencer) onCoreSensors(e CoreSensorsEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}

	if stageBetween(s.stage, StageMotorsForward, StageMotorsCounterCW) {
		if int64(e.MotorCurrent[0]) > robot.Value(DevMotorLeft) {
			robot.SetValue(DevMotorLeft, int64(e.MotorCurrent[0]))
		}
		if int64(e.MotorCurrent[1]) > robot.Value(DevMotorRight) {
			robot.SetValue(DevMotorRight, int64(e.MotorCurrent[1]))
		}
		return
	}

	if s.stage == StageMeasureCharging && e.Charger {
		robot.SetValue(DevCharging, int64(e.Battery))
		return
	}

	if s.stage == StageAnalogInput {
		for i, sample := range e.AnalogInput {
			if i >= analogChannels {
				break
			}
			ch := &robot.Analog[i]
			ch.Delta = sample - ch.Previous
			ch.Previous = sample
			if sample < ch.Min {
				ch.Min = sample
			}
			if sample > ch.Max {
				ch.Max = sample
			}
		}
	}
}

func (s *Sequencer) onDockBeacon(e DockBeaconEvent) {
	robot := s.session.UnderTest()
	if robot == nil || robot.DockIROK() {
		return
	}

	// Dock IR readings are collected whenever the receivers see the beacon,
	// not just during a dedicated stage.
	receivers := [3]Device{DevDockIRLeft, DevDockIRCenter, DevDockIRRight}
	for i, dev := range receivers {
		if e.Signals[i] > 0 {
			robot.SetValue(dev, int64(e.Signals[i]))
			robot.MarkOK(dev)
		}
	}

	if robot.DockIROK() {
		log.Info().
			Int64("left", robot.Value(DevDockIRLeft)).
			Int64("center", robot.Value(DevDockIRCenter)).
			Int64("right", robot.Value(DevDockIRRight)).
			Msg("docking ir sensor evaluation completed")
	}
}

func (s *Sequencer) onGyro(e GyroEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}
	robot.LastGyroYaw = e.Yaw
}

func (s *Sequencer) onButton(e ButtonEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}

	// While a pass/fail confirmation is pending, the left button accepts and
	// the right button rejects the device being shown.
	if (s.stage == StageLEDs || s.stage == StageSounds || s.stage == StageDigitalIO) &&
		s.answerRequired && !e.Pressed {
		if e.Button != 0 && e.Button != 2 {
			return
		}
		accepted := e.Button == 0
		var name string
		switch s.stage {
		case StageLEDs:
			robot.SetOK(DevLED1, accepted)
			robot.SetOK(DevLED2, accepted)
			name = "LEDs"
		case StageSounds:
			robot.SetOK(DevSounds, accepted)
			name = "sounds"
		case StageDigitalIO:
			robot.SetOK(DevDigitalInput, accepted)
			robot.SetOK(DevDigitalOutput, accepted)
			name = "digital I/O"
		}
		if accepted {
			log.Info().Str("device", name).Msg("evaluation completed")
		} else {
			log.Warn().Str("device", name).Msg("didn't pass the test")
		}
		// Disable operator input again so answers don't accumulate.
		s.answerRequired = false
		s.cfg.Prompter.HidePrompt()
		s.advance()
		return
	}

	if robot.ButtonsOK() {
		return
	}

	expButton, expPressed, inRange := expectedButton(s.stage)
	if !inRange {
		// Not evaluating buttons; assume an accidental hit.
		log.Debug().Int("button", e.Button).Bool("pressed", e.Pressed).Msg("button event ignored")
		return
	}

	if e.Button != expButton || e.Pressed != expPressed {
		log.Warn().Int("button", e.Button).Bool("pressed", e.Pressed).Msg("unexpected button event")
		return
	}

	log.Info().Int("button", e.Button).Bool("pressed", e.Pressed).Msg("button event, as expected")
	if !e.Pressed {
		robot.MarkOK(buttonDevice(e.Button))
	}
	if s.stage == StageButton2Released {
		log.Info().Msg("buttons evaluation completed")
	}
	s.advance()
}

func (s *Sequencer) onBumper(e BumperEvent) {
	robot := s.session.UnderTest()
	if robot == nil || robot.BumpersOK() {
		return
	}

	if !stageBetween(s.stage, StageCenterBumperPressed, StageLeftBumperReleased) {
		log.Debug().Int("bumper", e.Bumper).Msg("accidental bumper hit, ignoring")
		return
	}

	expBumper, expPressed, accepts := expectedBumper(s.stage)
	if !accepts || e.Bumper != expBumper || e.Pressed != expPressed {
		log.Warn().Int("bumper", e.Bumper).Bool("pressed", e.Pressed).Msg("unexpected bumper event")
		return
	}

	log.Info().Int("bumper", e.Bumper).Bool("pressed", e.Pressed).Msg("bumper event, as expected")
	robot.AddValue(bumperDevice(e.Bumper))

	if e.Pressed {
		// Back away from the wall; the motion timer advances past the
		// release stage once the robot is clear.
		s.motion.Move(-testBumpersV, 0, backOffTime)
		s.advance()
	} else {
		robot.MarkOK(bumperDevice(e.Bumper))
		s.cfg.Prompter.HidePrompt()
	}

	if s.stage == StageLeftBumperReleased {
		log.Info().Msg("bumper evaluation completed")
	}
}

func (s *Sequencer) onWheelDrop(e WheelDropEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}
	if s.stage != StageWheelDropSensors {
		log.Debug().Int("wheel", e.Wheel).Bool("dropped", e.Dropped).Msg("wheel drop event ignored")
		return
	}

	dev := wheelDevice(e.Wheel)
	if robot.OK(dev) {
		return
	}

	if !matchToggle(robot.Value(dev), e.Dropped) {
		log.Warn().Int("wheel", e.Wheel).Bool("dropped", e.Dropped).Msg("unexpected wheel drop event")
		return
	}

	log.Info().Int("wheel", e.Wheel).Bool("dropped", e.Dropped).Msg("wheel drop event, as expected")
	robot.AddValue(dev)

	if toggleComplete(robot.Value(dev), s.cfg.WheelDropCycles) {
		log.Info().Str("device", dev.String()).Msg("wheel drop evaluation completed")
		robot.MarkOK(dev)
		if robot.WheelDropsOK() {
			s.advance()
		}
	}
}

func (s *Sequencer) onCliff(e CliffEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}
	if s.stage != StageCliffSensors {
		log.Debug().Int("sensor", e.Sensor).Bool("cliff", e.Cliff).Msg("cliff event ignored")
		return
	}

	dev := cliffDevice(e.Sensor)
	if robot.OK(dev) {
		return
	}

	if !matchToggle(robot.Value(dev), e.Cliff) {
		log.Warn().Int("sensor", e.Sensor).Bool("cliff", e.Cliff).Msg("unexpected cliff sensor event")
		return
	}

	log.Info().Int("sensor", e.Sensor).Bool("cliff", e.Cliff).Msg("cliff sensor event, as expected")
	robot.AddValue(dev)

	if toggleComplete(robot.Value(dev), s.cfg.CliffCycles) {
		log.Info().Str("device", dev.String()).Msg("cliff sensor evaluation completed")
		robot.MarkOK(dev)
		if robot.CliffsOK() {
			s.advance()
		}
	}
}

func (s *Sequencer) onPower(e PowerEvent) {
	robot := s.session.UnderTest()
	if robot == nil || robot.PowerOK() {
		return
	}

	dev, inStage := powerDevice(s.stage)
	if !inStage {
		// Charging status notifications are expected at any time; anything
		// else means the operator is off-protocol.
		switch e.Kind {
		case PowerChargeCompleted, PowerBatteryLow, PowerBatteryCritical:
		default:
			log.Warn().Int("event", int(e.Kind)).Str("stage", s.stage.String()).
				Msg("power event outside the power plug stages")
		}
		return
	}
	if robot.OK(dev) {
		return
	}

	if !matchPower(s.stage, robot.Value(dev), e.Kind) {
		log.Warn().Int("event", int(e.Kind)).Msg("unexpected power event")
		return
	}

	log.Info().Str("device", dev.String()).Int("event", int(e.Kind)).Msg("power event, as expected")
	robot.AddValue(dev)

	if toggleComplete(robot.Value(dev), s.cfg.PowerPlugCycles) {
		log.Info().Str("device", dev.String()).Msg("power plug evaluation completed")
		robot.MarkOK(dev)
		s.advance()
	}
}

func (s *Sequencer) onDigitalInput(e DigitalInputEvent) {
	robot := s.session.UnderTest()
	if robot == nil || robot.OK(DevDigitalInput) {
		return
	}
	if s.stage != StageDigitalIO {
		log.Debug().Msg("digital input event ignored")
		return
	}

	// While a test button is held, set its progress bit and echo the state on
	// the matching output channel so input and output are verified together.
	mask := robot.Value(DevDigitalInput)
	newMask, channel := digitalInputMask(mask, e.Values)
	if channel >= 0 {
		robot.SetValue(DevDigitalInput, newMask)
		var m, v [4]bool
		m[channel] = true
		v[channel] = true
		s.cfg.Commander.SetDigitalOutput(m, v)
		return
	}

	// All inputs released: clear the outputs.
	s.cfg.Commander.SetDigitalOutput(allOutputs, [4]bool{})

	if mask == fullDigitalMask && !s.answerRequired {
		// The loop proves wiring continuity only; the operator still has to
		// confirm the LEDs actually blinked.
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Digital I/O test",
			"Press the left function button if the LEDs blinked as expected or the right otherwise")
		s.answerRequired = true
	}
}

func (s *Sequencer) onDiagnostics(e DiagnosticsEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}
	robot.Diagnostics = e.Snapshot
}

func (s *Sequencer) onHealth(e HealthEvent) {
	robot := s.session.UnderTest()
	if robot == nil {
		return
	}

	robot.DegradeHealth(e.Level)

	if e.Level == HealthOK {
		log.Info().Str("serial", robot.Serial).Msg("robot diagnostics received with OK status")
		return
	}
	log.Warn().Str("serial", robot.Serial).Str("status", e.Level.String()).
		Msg("robot diagnostics received with degraded status")
	if robot.Diagnostics != "" {
		log.Warn().Str("diagnostics", robot.Diagnostics).Msg("full diagnostics")
	}
}
