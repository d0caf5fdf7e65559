package qualagent

import "testing"

func TestAnalogInputCompletes(t *testing.T) {
	seq, cmd, _ := newTestSequencer(t, Config{})
	robot := beginRobot(seq)
	seq.stage = StageAnalogInput

	seq.testAnalogIn(robot, true)

	// Every channel sweeps below the minimum and above the maximum threshold.
	seq.dispatch(CoreSensorsEvent{AnalogInput: []int16{1, 0, 2, 1}})
	seq.dispatch(CoreSensorsEvent{AnalogInput: []int16{4095, 4091, 4090, 4092}})

	done := false
	for i := 0; i < 50 && !done; i++ {
		done = seq.testAnalogIn(robot, false)
	}

	if !done {
		t.Fatal("analog test never completed")
	}
	if !robot.OK(DevAnalogInput) {
		t.Error("analog input not marked")
	}
	if seq.Stage() != StageCompleted {
		t.Errorf("stage = %v, want completed", seq.Stage())
	}

	// The feedback LEDs were pulsed for both limits.
	sawMin, sawMax := false, false
	for _, out := range cmd.outputs {
		if out[analogMinFeedbackOut] {
			sawMin = true
		}
		if out[analogMaxFeedbackOut] {
			sawMax = true
		}
	}
	if !sawMin || !sawMax {
		t.Errorf("feedback pulses: min=%v max=%v", sawMin, sawMax)
	}
}

func TestAnalogIncompleteSweepNeverPasses(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	robot := beginRobot(seq)
	seq.stage = StageAnalogInput

	seq.testAnalogIn(robot, true)

	// Channel 3 never reaches the maximum.
	seq.dispatch(CoreSensorsEvent{AnalogInput: []int16{1, 1, 1, 1}})
	seq.dispatch(CoreSensorsEvent{AnalogInput: []int16{4095, 4095, 4095, 2000}})

	for i := 0; i < 50; i++ {
		if seq.testAnalogIn(robot, false) {
			t.Fatal("incomplete sweep completed the test")
		}
	}
	if robot.OK(DevAnalogInput) {
		t.Error("incomplete sweep marked the device")
	}
}

func TestAnalogMinMaxTracking(t *testing.T) {
	seq, _, _ := newTestSequencer(t, Config{})
	robot := beginRobot(seq)
	seq.stage = StageAnalogInput

	seq.dispatch(CoreSensorsEvent{AnalogInput: []int16{100, 200, 300, 400}})
	seq.dispatch(CoreSensorsEvent{AnalogInput: []int16{50, 250, 150, 500}})

	ch := robot.Analog[0]
	if ch.Min != 50 || ch.Max != 100 {
		t.Errorf("channel 0 min/max = %d/%d, want 50/100", ch.Min, ch.Max)
	}
	if ch.Delta != -50 {
		t.Errorf("channel 0 delta = %d, want -50", ch.Delta)
	}
	if robot.Analog[3].Max != 500 {
		t.Errorf("channel 3 max = %d, want 500", robot.Analog[3].Max)
	}
}
