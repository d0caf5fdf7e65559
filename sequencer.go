package qualagent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sequencer drives a robot through the ordered battery of hardware checks.
// A single goroutine owns it: the tick loop drains the event queue, applies
// the handlers in handlers.go, then performs the current stage's action.
// Nothing else may touch the robot-under-test.
type Sequencer struct {
	cfg     Config
	queue   *EventQueue
	session *Session
	motion  *Motion

	stage          Stage
	prevStage      Stage
	answerRequired bool
	tickCount      int

	// sleep is swapped out by tests so cooperative waits don't consume
	// wall-clock time.
	sleep func(time.Duration)
}

// NewSequencer builds a sequencer from cfg. Missing collaborators fall back
// to no-ops so the evaluation logic can run headless.
func NewSequencer(cfg Config) (*Sequencer, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "sequencer config invalid")
	}
	queue := cfg.Queue
	if queue == nil {
		queue = NewEventQueue(cfg.QueueSize)
	}
	return &Sequencer{
		cfg:     cfg,
		queue:   queue,
		session: NewSession(cfg.Sinks),
		motion:  NewMotion(cfg.Commander, queue),
		stage:   StageInit,
		sleep:   time.Sleep,
	}, nil
}

// Queue returns the event queue the transport should push into.
func (s *Sequencer) Queue() *EventQueue { return s.queue }

// Session returns the session manager owning the robot-under-test.
func (s *Sequencer) Session() *Session { return s.session }

// Stage returns the current qualification stage.
func (s *Sequencer) Stage() Stage { return s.stage }

// Run drives the tick loop until the context is cancelled.
func (s *Sequencer) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context cannot be nil")
	}
	log.Info().Float64("frequency_hz", s.cfg.Frequency).Msg("start qualification sequencer")
	ticker := time.NewTicker(s.cfg.tickPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one iteration of the driver loop: drain queued events, then
// perform the action of the stage the robot is now in.
func (s *Sequencer) Tick() {
	s.tickCount++
	s.drainEvents()

	robot := s.session.UnderTest()
	if robot == nil {
		return
	}
	// A timed maneuver is still in flight; stage actions resume once the
	// motion timer has fired and been serviced.
	if s.motion.Armed() {
		return
	}

	stepChanged := s.prevStage != s.stage
	s.prevStage = s.stage
	s.stepAction(robot, stepChanged)
}

// advance moves to the next stage of the qualification order.
func (s *Sequencer) advance() {
	s.stage = NextStage(s.stage)
}

// drainEvents empties the queue, applying each handler in arrival order.
func (s *Sequencer) drainEvents() {
	for {
		ev := s.queue.pop()
		if ev == nil {
			return
		}
		s.dispatch(ev)
	}
}

// ticksFor converts a duration into tick-loop iterations.
func (s *Sequencer) ticksFor(d time.Duration) int {
	n := int(d.Seconds() * s.cfg.Frequency)
	if n < 1 {
		n = 1
	}
	return n
}

// pumpOnce services queued events, then sleeps one tick period. Blocking
// sub-tests wait with this instead of a plain sleep so sensor callbacks keep
// landing while the sequencer itself is parked.
func (s *Sequencer) pumpOnce() {
	s.drainEvents()
	s.sleep(s.cfg.tickPeriod())
}

// pumpFor cooperatively waits for roughly d, servicing events throughout.
func (s *Sequencer) pumpFor(d time.Duration) {
	for i, n := 0, s.ticksFor(d); i < n; i++ {
		s.pumpOnce()
	}
}

// moveBlocking publishes a velocity, waits the duration while still servicing
// events, then stops. Only the gyro cross-check uses this; everything driven
// from stage actions uses timed (non-blocking) moves.
func (s *Sequencer) moveBlocking(linear, angular float64, d time.Duration) {
	s.cfg.Commander.Drive(linear, angular)
	s.pumpFor(d)
	s.motion.Stop()
}

// secs converts protocol seconds to a duration.
func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// stepAction performs the per-tick work of the current stage. Prompts and
// other one-shot work fire only when the stage was entered since the last
// tick; movement commands and polling repeat while the stage is active.
func (s *Sequencer) stepAction(robot *Robot, stepChanged bool) {
	switch s.stage {
	case StageInit:
		s.advance()

	case StageSerialNumber:
		if robot.OK(DevVersionInfo) {
			s.advance()
		} else if s.tickCount%s.ticksFor(2*time.Second) == 0 {
			log.Debug().Msg("waiting for serial number...")
		}

	case StageDCAdapter:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "DC adapter plug test",
				fmt.Sprintf("Plug and unplug the adapter to the robot %d time(s)", s.cfg.PowerPlugCycles))
		}

	case StageDockingBase:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Docking base plug test",
				fmt.Sprintf("Plug and unplug the robot to its base %d time(s)", s.cfg.PowerPlugCycles))
		}

	case StageButton0Pressed:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Function buttons test",
				"Press the three function buttons sequentially from left to right")
		}

	case StageLEDs:
		s.testLEDs(stepChanged)

	case StageSounds:
		s.testSounds(stepChanged)

	case StageCliffSensors:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Cliff sensors test",
				fmt.Sprintf("Raise and lower the robot %d time(s) to test the cliff sensors", s.cfg.CliffCycles))
		}

	case StageWheelDropSensors:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Wheel drop sensors test",
				fmt.Sprintf("Raise and lower the robot %d time(s) to test the wheel drop sensors", s.cfg.WheelDropCycles))
		}

	case StageCenterBumperPressed:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Bumper sensors test",
				"Place the robot facing a wall; after a while, the robot will move forward")
			s.pumpFor(backOffTime)
			s.motion.Move(+testBumpersV, 0, 0)
		}

	case StagePointRightBumper:
		s.motion.Move(0, +testBumpersW, secs((math.Pi/4.0)/testBumpersW)) // +45 degrees

	case StageRightBumperPressed:
		s.motion.Move(+testBumpersV, 0, 0)

	case StagePointLeftBumper:
		s.motion.Move(0, -testBumpersW, secs((math.Pi/2.0)/testBumpersW)) // -90 degrees

	case StageLeftBumperPressed:
		s.motion.Move(+testBumpersV, 0, 0)

	case StagePrepareMotors:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Motors current test", "Now the robot will move forward...")
		}
		s.motion.Move(0, -testBumpersW, secs((math.Pi/4.0)/testBumpersW)) // parallel to the wall again

	case StageMotorsForward:
		s.motion.Move(+testMotorsV, 0, secs(testMotorsD/testMotorsV))

	case StageMotorsBackward:
		s.motion.Move(-testMotorsV, 0, secs(testMotorsD/testMotorsV))
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Motors current test", "Now the robot will move backward...")

	case StageMotorsClockwise:
		s.motion.Move(0, -testMotorsW, secs(testMotorsA/testMotorsW))
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Motors current test", "...and spin to evaluate the motors")

	case StageMotorsCounterCW:
		s.motion.Move(0, +testMotorsW, secs(testMotorsA/testMotorsW))

	case StageEvalMotorCurrent:
		s.cfg.Prompter.HidePrompt()
		s.evalMotorCurrent(robot)
		s.advance()

	case StageGyroError:
		s.testIMU(robot, stepChanged)
		s.advance()

	case StageMeasureCharging:
		s.measureCharge(robot, stepChanged)
		// Advance immediately: staying in this stage would let the next
		// sensor snapshot overwrite the measured delta.
		s.advance()

	case StageDigitalIO:
		if stepChanged {
			s.cfg.Prompter.ShowPrompt(PromptInfo, "Digital I/O test",
				"Press the four digital input buttons sequentially, from DI-1 to DI-4\n"+
					"The digital output LED below should switch on and off as the result")
			robot.SetValue(DevDigitalInput, 0)
			s.cfg.Commander.SetDigitalOutput(allOutputs, [4]bool{})
		}

	case StageAnalogInput:
		s.testAnalogIn(robot, stepChanged)

	case StageCompleted:
		verdict := "FAILED"
		if robot.AllOK() {
			verdict = "PASS"
		}
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Evaluation result",
			fmt.Sprintf("Evaluation completed. Overall result: %s", verdict))
		s.session.Persist()
		s.stage = StageInit
		s.prevStage = StageInit
	}
}

var allOutputs = [4]bool{true, true, true, true}

// testLEDs cycles both LEDs through green, orange and red while the stage is
// active. From the second pass on the operator is asked to confirm with the
// left (pass) or right (fail) function button.
func (s *Sequencer) testLEDs(firstCall bool) {
	s.answerRequired = !firstCall

	confirm := ""
	if !firstCall {
		confirm = "Press the left function button if so or the right otherwise\n"
	}
	for _, color := range []LEDColor{LEDGreen, LEDOrange, LEDRed} {
		if s.stage != StageLEDs {
			return
		}
		s.cfg.Prompter.ShowPrompt(PromptInfo, "LEDs test",
			fmt.Sprintf("You should see both LEDs blinking in green, orange and red alternatively\n%s%s",
				confirm, color))
		s.cfg.Commander.SetLED(1, color)
		s.cfg.Commander.SetLED(2, color)
		s.pumpFor(time.Second)

		s.cfg.Commander.SetLED(1, LEDBlack)
		s.cfg.Commander.SetLED(2, LEDBlack)
		s.pumpFor(500 * time.Millisecond)
	}
}

// testSounds plays the seven built-in sounds while the stage is active.
func (s *Sequencer) testSounds(firstCall bool) {
	s.answerRequired = !firstCall

	confirm := ""
	if !firstCall {
		confirm = "Press the left function button if so or the right otherwise\n"
	}
	for sound := SoundOn; sound <= SoundCleaningEnd; sound++ {
		if s.stage != StageSounds {
			return
		}
		s.cfg.Prompter.ShowPrompt(PromptInfo, "Sounds test",
			fmt.Sprintf("You should hear sounds for 'On', 'Off', 'Recharge', 'Button', "+
				"'Error', 'Cleaning Start' and 'Cleaning End' continuously\n%s%s", confirm, sound))
		s.cfg.Commander.PlaySound(sound)
		s.pumpFor(1200 * time.Millisecond)
	}
}

// evalMotorCurrent grades the maximum currents recorded while the motor
// maneuvers ran.
func (s *Sequencer) evalMotorCurrent(robot *Robot) {
	left := robot.Value(DevMotorLeft)
	right := robot.Value(DevMotorRight)
	if left <= s.cfg.MotorMaxCurrent {
		robot.MarkOK(DevMotorLeft)
	}
	if right <= s.cfg.MotorMaxCurrent {
		robot.MarkOK(DevMotorRight)
	}
	if robot.MotorsOK() {
		log.Info().Int64("left", left).Int64("right", right).Msg("motor current evaluation completed")
	} else {
		log.Warn().Int64("left", left).Int64("right", right).Msg("motor current too high")
	}
}
