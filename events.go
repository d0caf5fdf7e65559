package qualagent

import (
	"github.com/rs/zerolog/log"
)

// Event is a typed hardware notification delivered by the transport. All
// events are consumed by the sequencer goroutine; the queue below is the only
// hand-off point between transport callbacks and evaluation logic.
type Event interface{ eventName() string }

// VersionInfoEvent carries the robot's unique device id and version triple.
type VersionInfoEvent struct {
	UDID    string
	Version Version
}

// CoreSensorsEvent is the periodic sensor snapshot: motor currents, charger
// state, battery tenths-of-volt and the raw analog input samples.
type CoreSensorsEvent struct {
	MotorCurrent [2]uint8
	Charger      bool
	Battery      uint8
	AnalogInput  []int16
}

// DockBeaconEvent carries the three docking IR receiver readings.
type DockBeaconEvent struct {
	Signals [3]uint8
}

// GyroEvent carries the latest gyroscope yaw, in radians.
type GyroEvent struct {
	Yaw float64
}

// ButtonEvent reports a function button transition.
type ButtonEvent struct {
	Button  int
	Pressed bool
}

// BumperEvent reports a bumper transition. Bumpers are indexed left=0,
// center=1, right=2.
type BumperEvent struct {
	Bumper  int
	Pressed bool
}

// WheelDropEvent reports a wheel drop sensor transition; left=0, right=1.
type WheelDropEvent struct {
	Wheel   int
	Dropped bool
}

// CliffEvent reports a cliff sensor transition; left=0, center=1, right=2.
type CliffEvent struct {
	Sensor int
	Cliff  bool
}

// PowerEventKind enumerates power system notifications.
type PowerEventKind int

const (
	PowerUnplugged PowerEventKind = iota
	PowerPluggedToAdapter
	PowerPluggedToDock
	PowerChargeCompleted
	PowerBatteryLow
	PowerBatteryCritical
)

// PowerEvent reports a power system transition. Unplug events do not identify
// which source was unplugged.
type PowerEvent struct {
	Kind PowerEventKind
}

// DigitalInputEvent carries the state of the four digital input channels.
// A channel reads false while its test button is held (active low).
type DigitalInputEvent struct {
	Values [4]bool
}

// DiagnosticsEvent carries a full free-text diagnostics snapshot.
type DiagnosticsEvent struct {
	Snapshot string
}

// HealthEvent carries the top-level diagnostic level.
type HealthEvent struct {
	Level Health
}

// RobotStateEvent signals the robot coming online or going offline.
type RobotStateEvent struct {
	Online bool
}

// motionDoneEvent is pushed by the motion controller's one-shot timer so the
// stop is applied on the sequencer goroutine, never concurrently with it.
type motionDoneEvent struct {
	generation uint64
}

func (VersionInfoEvent) eventName() string  { return "version_info" }
func (CoreSensorsEvent) eventName() string  { return "core_sensors" }
func (DockBeaconEvent) eventName() string   { return "dock_beacon" }
func (GyroEvent) eventName() string         { return "gyro" }
func (ButtonEvent) eventName() string       { return "button" }
func (BumperEvent) eventName() string       { return "bumper" }
func (WheelDropEvent) eventName() string    { return "wheel_drop" }
func (CliffEvent) eventName() string        { return "cliff" }
func (PowerEvent) eventName() string        { return "power" }
func (DigitalInputEvent) eventName() string { return "digital_input" }
func (DiagnosticsEvent) eventName() string  { return "diagnostics" }
func (HealthEvent) eventName() string       { return "health" }
func (RobotStateEvent) eventName() string   { return "robot_state" }
func (motionDoneEvent) eventName() string   { return "motion_done" }

const defaultQueueSize = 256

// EventQueue is the single-consumer queue between the transport and the
// sequencer. Producers may push from any goroutine; the sequencer drains it
// strictly between tick actions, which keeps handler code free of locks.
type EventQueue struct {
	ch chan Event
}

// NewEventQueue builds a queue with the given capacity (or the default when
// size is not positive).
func NewEventQueue(size int) *EventQueue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &EventQueue{ch: make(chan Event, size)}
}

// Push enqueues an event without blocking. When the queue is full the event
// is dropped with a warning; sensor events of the same class are delivered in
// order, so dropping is preferable to stalling the transport reader.
func (q *EventQueue) Push(ev Event) {
	select {
	case q.ch <- ev:
	default:
		log.Warn().Str("event", ev.eventName()).Msg("event queue full, dropping event")
	}
}

// pop returns the next queued event, or nil when the queue is empty.
func (q *EventQueue) pop() Event {
	select {
	case ev := <-q.ch:
		return ev
	default:
		return nil
	}
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int { return len(q.ch) }
