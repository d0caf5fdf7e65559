package qualagent

// Stage identifies one phase of the qualification sequence.
type Stage int

const (
	StageInit Stage = iota
	StageSerialNumber
	StageDCAdapter
	StageDockingBase
	StageButton0Pressed
	StageButton0Released
	StageButton1Pressed
	StageButton1Released
	StageButton2Pressed
	StageButton2Released
	StageLEDs
	StageSounds
	StageCliffSensors
	StageWheelDropSensors
	StageCenterBumperPressed
	StageCenterBumperReleased
	StagePointRightBumper
	StageRightBumperPressed
	StageRightBumperReleased
	StagePointLeftBumper
	StageLeftBumperPressed
	StageLeftBumperReleased
	StagePrepareMotors
	StageMotorsForward
	StageMotorsBackward
	StageMotorsClockwise
	StageMotorsCounterCW
	StageEvalMotorCurrent
	StageGyroError
	StageMeasureCharging
	StageDigitalIO
	StageAnalogInput
	StageCompleted
)

// stageOrder is the authoritative ordering of the qualification sequence.
// Advancement always walks this list; nothing relies on enum arithmetic.
var stageOrder = []Stage{
	StageInit,
	StageSerialNumber,
	StageDCAdapter,
	StageDockingBase,
	StageButton0Pressed,
	StageButton0Released,
	StageButton1Pressed,
	StageButton1Released,
	StageButton2Pressed,
	StageButton2Released,
	StageLEDs,
	StageSounds,
	StageCliffSensors,
	StageWheelDropSensors,
	StageCenterBumperPressed,
	StageCenterBumperReleased,
	StagePointRightBumper,
	StageRightBumperPressed,
	StageRightBumperReleased,
	StagePointLeftBumper,
	StageLeftBumperPressed,
	StageLeftBumperReleased,
	StagePrepareMotors,
	StageMotorsForward,
	StageMotorsBackward,
	StageMotorsClockwise,
	StageMotorsCounterCW,
	StageEvalMotorCurrent,
	StageGyroError,
	StageMeasureCharging,
	StageDigitalIO,
	StageAnalogInput,
	StageCompleted,
}

var stageIndex = func() map[Stage]int {
	m := make(map[Stage]int, len(stageOrder))
	for i, s := range stageOrder {
		m[s] = i
	}
	return m
}()

// NextStage returns the stage following current in the qualification order.
// The terminal stage wraps back to StageInit, matching the cycle restart
// that happens after a robot has been persisted.
func NextStage(current Stage) Stage {
	idx, ok := stageIndex[current]
	if !ok || idx+1 >= len(stageOrder) {
		return StageInit
	}
	return stageOrder[idx+1]
}

// stageBetween reports whether s lies in [lo, hi] of the qualification order.
func stageBetween(s, lo, hi Stage) bool {
	return stageIndex[s] >= stageIndex[lo] && stageIndex[s] <= stageIndex[hi]
}

var stageNames = map[Stage]string{
	StageInit:                 "initialization",
	StageSerialNumber:         "acquire_serial",
	StageDCAdapter:            "dc_adapter_plug",
	StageDockingBase:          "docking_base_plug",
	StageButton0Pressed:       "button_0_pressed",
	StageButton0Released:      "button_0_released",
	StageButton1Pressed:       "button_1_pressed",
	StageButton1Released:      "button_1_released",
	StageButton2Pressed:       "button_2_pressed",
	StageButton2Released:      "button_2_released",
	StageLEDs:                 "leds",
	StageSounds:               "sounds",
	StageCliffSensors:         "cliff_sensors",
	StageWheelDropSensors:     "wheel_drop_sensors",
	StageCenterBumperPressed:  "center_bumper_pressed",
	StageCenterBumperReleased: "center_bumper_released",
	StagePointRightBumper:     "point_right_bumper",
	StageRightBumperPressed:   "right_bumper_pressed",
	StageRightBumperReleased:  "right_bumper_released",
	StagePointLeftBumper:      "point_left_bumper",
	StageLeftBumperPressed:    "left_bumper_pressed",
	StageLeftBumperReleased:   "left_bumper_released",
	StagePrepareMotors:        "prepare_motors",
	StageMotorsForward:        "motors_forward",
	StageMotorsBackward:       "motors_backward",
	StageMotorsClockwise:      "motors_clockwise",
	StageMotorsCounterCW:      "motors_counter_cw",
	StageEvalMotorCurrent:     "eval_motor_current",
	StageGyroError:            "gyro_error",
	StageMeasureCharging:      "measure_charging",
	StageDigitalIO:            "digital_io",
	StageAnalogInput:          "analog_input",
	StageCompleted:            "completed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}
