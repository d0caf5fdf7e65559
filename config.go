package qualagent

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Default protocol constants. Repetition counts and thresholds mirror the
// factory acceptance protocol; speeds and angles live in motion.go.
const (
	defaultFrequency       = 20.0
	defaultPowerPlugCycles = 1
	defaultCliffCycles     = 2
	defaultWheelDropCycles = 2

	defaultMotorMaxCurrent = 24
	defaultMinChargeDelta  = 2 // tenths of volt
	defaultChargeWindow    = 10 * time.Second
	defaultChargeSettle    = 2 * time.Second
	defaultChargerTimeout  = 40 * time.Second

	defaultGyroTolerance = 0.05 // radians
	gyroPollAttempts     = 80
	gyroPollInterval     = 200 * time.Millisecond

	defaultAnalogMinThreshold = 2    // millivolts
	defaultAnalogMaxThreshold = 4090 // millivolts
)

// Config controls Sequencer behavior. Zero values fall back to the factory
// protocol defaults.
type Config struct {
	// Frequency is the tick rate of the driver loop, in Hz.
	Frequency float64

	// Repetition counts: one repetition is a full active+inactive cycle.
	PowerPlugCycles int
	CliffCycles     int
	WheelDropCycles int

	// MotorMaxCurrent is the pass ceiling for the motor current test.
	MotorMaxCurrent int64
	// MinChargeDelta is the minimum battery rise, in tenths of volt, that the
	// charge measurement must observe over ChargeWindow.
	MinChargeDelta int64
	ChargeWindow   time.Duration
	ChargerTimeout time.Duration

	// GyroTolerance is the maximum discrepancy, in radians, between the two
	// gyro-vs-vision difference samples.
	GyroTolerance float64

	AnalogMinThreshold int16
	AnalogMaxThreshold int16

	CameraDeviceIndex     int
	CameraCalibrationFile string

	// Queue is the event queue shared with the transport. When nil the
	// sequencer creates its own; QueueSize bounds that internal queue.
	Queue     *EventQueue
	QueueSize int

	Commander Commander
	Prompter  Prompter
	Estimator YawEstimator
	Sinks     []RecordSink
}

func (c *Config) applyDefaults() {
	if c.Frequency <= 0 {
		c.Frequency = defaultFrequency
	}
	if c.PowerPlugCycles <= 0 {
		c.PowerPlugCycles = defaultPowerPlugCycles
	}
	if c.CliffCycles <= 0 {
		c.CliffCycles = defaultCliffCycles
	}
	if c.WheelDropCycles <= 0 {
		c.WheelDropCycles = defaultWheelDropCycles
	}
	if c.MotorMaxCurrent <= 0 {
		c.MotorMaxCurrent = defaultMotorMaxCurrent
	}
	if c.MinChargeDelta <= 0 {
		c.MinChargeDelta = defaultMinChargeDelta
	}
	if c.ChargeWindow <= 0 {
		c.ChargeWindow = defaultChargeWindow
	}
	if c.ChargerTimeout <= 0 {
		c.ChargerTimeout = defaultChargerTimeout
	}
	if c.GyroTolerance <= 0 {
		c.GyroTolerance = defaultGyroTolerance
	}
	if c.AnalogMinThreshold <= 0 {
		c.AnalogMinThreshold = defaultAnalogMinThreshold
	}
	if c.AnalogMaxThreshold <= 0 {
		c.AnalogMaxThreshold = defaultAnalogMaxThreshold
	}
	if c.Prompter == nil {
		c.Prompter = noopPrompter{}
	}
	if c.Commander == nil {
		c.Commander = noopCommander{}
	}
}

func (c *Config) validate() error {
	if math.IsNaN(c.Frequency) || math.IsInf(c.Frequency, 0) {
		return errors.New("tick frequency must be finite")
	}
	if c.AnalogMaxThreshold <= c.AnalogMinThreshold {
		return errors.New("analog max threshold must exceed min threshold")
	}
	return nil
}

// tickPeriod returns the duration of one driver tick.
func (c *Config) tickPeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.Frequency)
}
