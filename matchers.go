package qualagent

// Expected-sequence matchers: stateless predicates deciding whether an
// incoming hardware event is the next one a device's protocol expects. Toggle
// devices alternate active/inactive transitions and track progress in the
// ledger value; buttons and bumpers are positional, keyed off the current
// stage.

// expectActive reports whether a toggle device with the given accumulated
// value expects the "active" transition next (even count) or the "inactive"
// one (odd count).
func expectActive(value int64) bool {
	return value%2 == 0
}

// matchToggle reports whether a transition (active=pressed/dropped/cliff/
// plugged) is the expected next step for a toggle device.
func matchToggle(value int64, active bool) bool {
	return expectActive(value) == active
}

// toggleComplete reports whether a toggle device has finished the configured
// number of repetitions (each repetition is one active+inactive cycle).
func toggleComplete(value int64, cycles int) bool {
	return value >= int64(cycles)*2
}

// buttonExpectation is the positional protocol of the function button test:
// each stage expects exactly one (button, transition) pair.
var buttonExpectation = map[Stage]struct {
	button  int
	pressed bool
}{
	StageButton0Pressed:  {0, true},
	StageButton0Released: {0, false},
	StageButton1Pressed:  {1, true},
	StageButton1Released: {1, false},
	StageButton2Pressed:  {2, true},
	StageButton2Released: {2, false},
}

// expectedButton returns the (button, transition) pair the given stage waits
// for; ok is false outside the button test range.
func expectedButton(stage Stage) (button int, pressed bool, ok bool) {
	exp, found := buttonExpectation[stage]
	return exp.button, exp.pressed, found
}

// bumperExpectation maps each bumper sub-stage to the event it accepts. The
// two "point" stages are pure maneuver stages and accept nothing.
var bumperExpectation = map[Stage]struct {
	bumper  int
	pressed bool
}{
	StageCenterBumperPressed:  {1, true},
	StageCenterBumperReleased: {1, false},
	StageRightBumperPressed:   {2, true},
	StageRightBumperReleased:  {2, false},
	StageLeftBumperPressed:    {0, true},
	StageLeftBumperReleased:   {0, false},
}

// expectedBumper returns the (bumper, transition) pair the given stage waits
// for; ok is false for stages that accept no bumper event.
func expectedBumper(stage Stage) (bumper int, pressed bool, ok bool) {
	exp, found := bumperExpectation[stage]
	return exp.bumper, exp.pressed, found
}

// bumperDevice maps a bumper index to its ledger device.
func bumperDevice(bumper int) Device {
	return DevBumperLeft + Device(bumper)
}

// buttonDevice maps a button index to its ledger device.
func buttonDevice(button int) Device {
	return DevButton0 + Device(button)
}

// wheelDevice maps a wheel index (left=0, right=1) to its ledger device.
func wheelDevice(wheel int) Device {
	if wheel == 0 {
		return DevWheelDropLeft
	}
	return DevWheelDropRight
}

// cliffDevice maps a cliff sensor index (left=0, center=1, right=2) to its
// ledger device.
func cliffDevice(sensor int) Device {
	switch sensor {
	case 0:
		return DevCliffLeft
	case 2:
		return DevCliffRight
	default:
		return DevCliffCenter
	}
}

// powerDevice returns the power source under evaluation at the given stage;
// ok is false outside the two power plug stages.
func powerDevice(stage Stage) (Device, bool) {
	switch stage {
	case StageDCAdapter:
		return DevPowerJack, true
	case StageDockingBase:
		return DevPowerDock, true
	default:
		return 0, false
	}
}

// matchPower reports whether a power event is the expected next transition
// for the source evaluated at the given stage. Plug events must name the
// source under test; unplug events do not identify a source and match
// whenever an unplug is expected.
func matchPower(stage Stage, value int64, kind PowerEventKind) bool {
	plugExpected := expectActive(value)
	switch kind {
	case PowerPluggedToAdapter:
		return plugExpected && stage == StageDCAdapter
	case PowerPluggedToDock:
		return plugExpected && stage == StageDockingBase
	case PowerUnplugged:
		return !plugExpected
	default:
		return false
	}
}

// digitalInputMask folds the four active-low input channels into the 4-bit
// progress mask, returning the updated mask and the index of the newly
// asserted channel (-1 when no channel is held).
func digitalInputMask(mask int64, values [4]bool) (int64, int) {
	for i, high := range values {
		if !high {
			return mask | 1<<uint(i), i
		}
	}
	return mask, -1
}

const fullDigitalMask = 0b1111
