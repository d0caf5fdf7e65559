package qualagent

import (
	"testing"
	"time"
)

func TestTickWithoutRobotIdles(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	seq.Tick()
	if seq.Stage() != StageInit {
		t.Errorf("stage = %v without a robot", seq.Stage())
	}
}

func TestTickInitAdvances(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	beginRobot(seq)
	seq.Tick()
	if seq.Stage() != StageSerialNumber {
		t.Errorf("stage = %v, want serial number", seq.Stage())
	}
}

func TestTickGatedWhileManeuvering(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	beginRobot(seq)
	seq.motion.Move(0.1, 0, time.Hour)

	seq.Tick()
	if seq.Stage() != StageInit {
		t.Errorf("stage actions ran while a maneuver was in flight, stage = %v", seq.Stage())
	}
}

func TestSerialNumberStageWaitsForVersionInfo(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	beginRobot(seq)
	seq.stage = StageSerialNumber
	seq.prevStage = StageSerialNumber

	for i := 0; i < 3; i++ {
		seq.Tick()
	}
	if seq.Stage() != StageSerialNumber {
		t.Fatalf("stage advanced without version info, stage = %v", seq.Stage())
	}

	seq.Queue().Push(VersionInfoEvent{UDID: "S1"})
	seq.Tick()
	if seq.Stage() != StageDCAdapter {
		t.Errorf("stage = %v after version info, want adapter test", seq.Stage())
	}
}

func TestEvalMotorCurrentStage(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	robot := beginRobot(seq)
	robot.SetValue(DevMotorLeft, 10)
	robot.SetValue(DevMotorRight, 30) // above the default ceiling
	seq.stage = StageEvalMotorCurrent
	seq.prevStage = StageEvalMotorCurrent

	seq.Tick()

	if !robot.OK(DevMotorLeft) {
		t.Error("left motor under the ceiling not marked")
	}
	if robot.OK(DevMotorRight) {
		t.Error("right motor over the ceiling was marked")
	}
	if seq.Stage() != StageGyroError {
		t.Errorf("stage = %v, want gyro test", seq.Stage())
	}
}

func TestCompletedStagePersistsAndRestarts(t *testing.T) {
	sink := &stubSink{}
	seq, _, prompter := newTestSequencer(t, Config{Sinks: []RecordSink{sink}})
	robot := beginRobot(seq)
	robot.Serial = "S1"
	seq.stage = StageCompleted
	seq.prevStage = StageCompleted

	seq.Tick()

	if len(sink.saved) != 1 || sink.saved[0] != robot {
		t.Fatal("completed robot not persisted")
	}
	if seq.session.UnderTest() != nil {
		t.Error("robot still under test after completion")
	}
	if seq.Stage() != StageInit {
		t.Errorf("stage = %v, want init for the next robot", seq.Stage())
	}
	if prompter.count("Evaluation result") != 1 {
		t.Error("verdict prompt not shown")
	}
}

func TestLEDRoutineAcceptedMidLoop(t *testing.T) {
	seq, cmd, _ := newTestSequencer(t, Config{})
	robot := beginRobot(seq)
	seq.stage = StageLEDs
	seq.prevStage = StageInit // entering the stage

	// First pass just demonstrates the colors; no confirmation yet.
	seq.Tick()
	if len(cmd.leds) == 0 {
		t.Fatal("no LED commands issued on the first pass")
	}
	if robot.OK(DevLED1) {
		t.Fatal("LEDs marked without operator confirmation")
	}

	// Second pass asks for confirmation; answer arrives mid-loop through the
	// queue, serviced by the cooperative wait.
	pumps := 0
	seq.sleep = func(time.Duration) {
		pumps++
		if pumps == 5 {
			seq.Queue().Push(ButtonEvent{Button: 0, Pressed: false})
		}
	}
	seq.Tick()

	if !robot.OK(DevLED1) || !robot.OK(DevLED2) {
		t.Error("accepted LEDs not marked")
	}
	if seq.Stage() != StageSounds {
		t.Errorf("stage = %v, want sounds", seq.Stage())
	}
}

func TestSoundRoutinePlaysAllSounds(t *testing.T) {
	seq, cmd, _ := newTestSequencer(t, Config{})
	beginRobot(seq)
	seq.stage = StageSounds
	seq.prevStage = StageInit

	seq.Tick()

	if len(cmd.sounds) != 7 {
		t.Fatalf("played %d sounds, want 7", len(cmd.sounds))
	}
	if cmd.sounds[0] != SoundOn || cmd.sounds[6] != SoundCleaningEnd {
		t.Errorf("sound order: %v", cmd.sounds)
	}
}

func TestTicksForNeverZero(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	if n := seq.ticksFor(time.Nanosecond); n != 1 {
		t.Errorf("ticksFor(1ns) = %d, want 1", n)
	}
	if n := seq.ticksFor(time.Second); n != int(defaultFrequency) {
		t.Errorf("ticksFor(1s) = %d, want %d", n, int(defaultFrequency))
	}
}

func TestConfigValidation(t *testing.T) {
	_, err := NewSequencer(Config{AnalogMinThreshold: 100, AnalogMaxThreshold: 50})
	if err == nil {
		t.Error("inverted analog thresholds accepted")
	}
}

func TestExternalQueueIsUsed(t *testing.T) {
	queue := NewEventQueue(0)
	seq, err := NewSequencer(Config{Queue: queue})
	if err != nil {
		t.Fatalf("NewSequencer: %v", err)
	}
	if seq.Queue() != queue {
		t.Error("sequencer ignored the caller-supplied queue")
	}
}
