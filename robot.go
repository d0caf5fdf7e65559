package qualagent

import (
	"fmt"
	"math"
	"time"
)

// Device names one hardware subsystem under test.
type Device int

const (
	DevVersionInfo Device = iota
	DevMotorLeft
	DevMotorRight
	DevCharging
	DevPowerJack
	DevPowerDock
	DevButton0
	DevButton1
	DevButton2
	DevBumperLeft
	DevBumperCenter
	DevBumperRight
	DevWheelDropLeft
	DevWheelDropRight
	DevCliffLeft
	DevCliffCenter
	DevCliffRight
	DevLED1
	DevLED2
	DevSounds
	DevDigitalInput
	DevDigitalOutput
	DevAnalogInput
	DevIMU
	DevDockIRLeft
	DevDockIRCenter
	DevDockIRRight

	deviceCount
)

var deviceNames = [deviceCount]string{
	"version_info", "motor_left", "motor_right", "charging",
	"power_jack", "power_dock",
	"button_0", "button_1", "button_2",
	"bumper_left", "bumper_center", "bumper_right",
	"wheel_drop_left", "wheel_drop_right",
	"cliff_left", "cliff_center", "cliff_right",
	"led_1", "led_2", "sounds",
	"digital_input", "digital_output", "analog_input",
	"imu", "dock_ir_left", "dock_ir_center", "dock_ir_right",
}

func (d Device) String() string {
	if d >= 0 && d < deviceCount {
		return deviceNames[d]
	}
	return "unknown"
}

// Health is the robot-reported top-level diagnostic level.
type Health int

const (
	HealthUnknown Health = iota
	HealthOK
	HealthWarn
	HealthError
)

func (h Health) String() string {
	switch h {
	case HealthOK:
		return "OK"
	case HealthWarn:
		return "WARN"
	case HealthError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Version holds the firmware/hardware/software triple reported by the robot.
type Version struct {
	Firmware uint32
	Hardware uint32
	Software uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d/%d/%d", v.Hardware, v.Firmware, v.Software)
}

// YawSample records one gyro-vs-vision comparison from the cross-check.
type YawSample struct {
	GyroYaw float64
	Diff    float64
}

// AnalogChannel tracks one analog input port during the analog test. Min and
// max run since the test was entered; MinReached/MaxReached latch the first
// threshold crossing; FeedbackTicks keeps the feedback LED lit after one.
type AnalogChannel struct {
	Previous      int16
	Delta         int16
	Min           int16
	Max           int16
	MinReached    bool
	MaxReached    bool
	FeedbackTicks int
}

type deviceRecord struct {
	value int64
	ok    bool
}

// Robot is the ledger for a single robot under test. It is mutated only from
// the sequencer goroutine; event handlers and tick actions never run
// concurrently with each other.
type Robot struct {
	ID          int
	Serial      string
	Version     Version
	Health      Health
	Diagnostics string
	CreatedAt   time.Time

	devices [deviceCount]deviceRecord

	// IMUSamples holds the two recorded (gyro yaw, difference) pairs of the
	// vision cross-check; LastGyroYaw is the scratch copy of the most recent
	// raw gyroscope reading.
	IMUSamples  [2]YawSample
	LastGyroYaw float64

	Analog [analogChannels]AnalogChannel
}

const analogChannels = 4

// NewRobot creates the ledger for the id-th robot of this session.
func NewRobot(id int) *Robot {
	r := &Robot{ID: id, CreatedAt: time.Now()}
	for i := range r.Analog {
		r.Analog[i].Min = math.MaxInt16
		r.Analog[i].Max = math.MinInt16
	}
	return r
}

// Value returns the accumulated counter/progress field for dev.
func (r *Robot) Value(dev Device) int64 { return r.devices[dev].value }

// SetValue overwrites the progress field for dev.
func (r *Robot) SetValue(dev Device, v int64) { r.devices[dev].value = v }

// AddValue increments the progress field for dev by one.
func (r *Robot) AddValue(dev Device) { r.devices[dev].value++ }

// OK reports whether dev has passed its protocol.
func (r *Robot) OK(dev Device) bool { return r.devices[dev].ok }

// MarkOK latches the pass flag for dev. The transition is one-way; marking a
// device that already passed is a no-op and it can never be unmarked.
func (r *Robot) MarkOK(dev Device) { r.devices[dev].ok = true }

// SetOK records an explicit verdict for operator-confirmed devices. A false
// verdict never clears a previously latched pass.
func (r *Robot) SetOK(dev Device, ok bool) {
	if ok {
		r.devices[dev].ok = true
	}
}

// DegradeHealth moves the health level toward non-OK only; once a fault has
// been seen it is never hidden again.
func (r *Robot) DegradeHealth(h Health) {
	if h > r.Health {
		r.Health = h
	}
}

func (r *Robot) allOf(devs ...Device) bool {
	for _, d := range devs {
		if !r.devices[d].ok {
			return false
		}
	}
	return true
}

// ButtonsOK reports whether all three function buttons passed.
func (r *Robot) ButtonsOK() bool { return r.allOf(DevButton0, DevButton1, DevButton2) }

// BumpersOK reports whether all three bumpers passed.
func (r *Robot) BumpersOK() bool { return r.allOf(DevBumperLeft, DevBumperCenter, DevBumperRight) }

// WheelDropsOK reports whether both wheel drop sensors passed.
func (r *Robot) WheelDropsOK() bool { return r.allOf(DevWheelDropLeft, DevWheelDropRight) }

// CliffsOK reports whether all three cliff sensors passed.
func (r *Robot) CliffsOK() bool { return r.allOf(DevCliffLeft, DevCliffCenter, DevCliffRight) }

// MotorsOK reports whether both motors passed the current evaluation.
func (r *Robot) MotorsOK() bool { return r.allOf(DevMotorLeft, DevMotorRight) }

// PowerOK reports whether both power sources passed the plug test.
func (r *Robot) PowerOK() bool { return r.allOf(DevPowerJack, DevPowerDock) }

// DockIROK reports whether all three docking IR receivers have reported.
func (r *Robot) DockIROK() bool { return r.allOf(DevDockIRLeft, DevDockIRCenter, DevDockIRRight) }

// AllOK reports whether every tested device passed.
func (r *Robot) AllOK() bool {
	for d := Device(0); d < deviceCount; d++ {
		if !r.devices[d].ok {
			return false
		}
	}
	return true
}

// DeviceResult is one row of the persisted verdict record.
type DeviceResult struct {
	Device Device
	Value  int64
	OK     bool
}

// Results returns the per-device verdicts in device order.
func (r *Robot) Results() []DeviceResult {
	out := make([]DeviceResult, 0, deviceCount)
	for d := Device(0); d < deviceCount; d++ {
		out = append(out, DeviceResult{Device: d, Value: r.devices[d].value, OK: r.devices[d].ok})
	}
	return out
}
