package qualagent

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

// Maneuver speeds and distances of the factory protocol.
const (
	testMotorsV  = 0.2             // m/s
	testMotorsW  = math.Pi / 2.0   // rad/s
	testMotorsD  = 0.4             // m
	testMotorsA  = 1.0 * math.Pi   // rad
	testBumpersV = 0.1             // m/s
	testBumpersW = math.Pi / 5.0   // rad/s
	testGyroW    = math.Pi / 3.0   // rad/s
	testGyroA    = 2.0 * math.Pi   // full turn each way
	backOffTime  = 1500 * time.Millisecond
)

// Motion issues velocity commands. Timed moves arm a one-shot timer whose
// expiry is delivered through the event queue, so the stop command and the
// step advance always run on the sequencer goroutine.
type Motion struct {
	cmd   Commander
	queue *EventQueue

	timer      *time.Timer
	generation uint64
	armed      bool
}

// NewMotion builds a motion controller publishing through cmd and reporting
// timer expiry through queue.
func NewMotion(cmd Commander, queue *EventQueue) *Motion {
	return &Motion{cmd: cmd, queue: queue}
}

// Move publishes a velocity command. A zero or negative duration never arms a
// timer: the velocity is simply published once. A positive duration arms the
// one-shot stop timer, implicitly canceling any timer already in flight.
func (m *Motion) Move(linear, angular float64, duration time.Duration) {
	m.cmd.Drive(linear, angular)
	if duration <= 0 {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.generation++
	gen := m.generation
	m.armed = true
	m.timer = time.AfterFunc(duration, func() {
		m.queue.Push(motionDoneEvent{generation: gen})
	})
}

// Stop publishes a zero velocity immediately.
func (m *Motion) Stop() {
	m.cmd.Drive(0, 0)
}

// Armed reports whether a timed move is still in flight.
func (m *Motion) Armed() bool { return m.armed }

// finish handles a timer expiry event. Stale expiries from a canceled timer
// are ignored. It returns true when the event belonged to the active timer,
// in which case the robot has been stopped.
func (m *Motion) finish(ev motionDoneEvent) bool {
	if !m.armed || ev.generation != m.generation {
		log.Debug().Uint64("generation", ev.generation).Msg("stale motion timer expiry, ignoring")
		return false
	}
	m.armed = false
	m.Stop()
	return true
}
