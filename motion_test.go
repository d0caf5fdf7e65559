package qualagent

import (
	"testing"
	"time"
)

func TestMoveWithoutDurationNeverArms(t *testing.T) {
	cmd := &recCommander{}
	m := NewMotion(cmd, NewEventQueue(0))
	m.Move(0.1, 0, 0)
	if m.Armed() {
		t.Error("zero-duration move armed the timer")
	}
	if len(cmd.drives) != 1 || cmd.drives[0] != [2]float64{0.1, 0} {
		t.Errorf("drive commands: %v", cmd.drives)
	}
}

func TestStaleTimerExpiryIgnored(t *testing.T) {
	cmd := &recCommander{}
	m := NewMotion(cmd, NewEventQueue(0))

	m.Move(0.1, 0, time.Hour)
	firstGen := m.generation
	// Re-arming cancels the first timer; its expiry may still be in flight.
	m.Move(0.2, 0, time.Hour)

	if m.finish(motionDoneEvent{generation: firstGen}) {
		t.Error("stale expiry finished the active maneuver")
	}
	if !m.Armed() {
		t.Error("active maneuver disarmed by stale expiry")
	}

	if !m.finish(motionDoneEvent{generation: m.generation}) {
		t.Error("current expiry not accepted")
	}
	if m.Armed() {
		t.Error("still armed after the active timer fired")
	}
	// finish must stop the robot.
	last := cmd.drives[len(cmd.drives)-1]
	if last != [2]float64{0, 0} {
		t.Errorf("last drive = %v, want stop", last)
	}
}

func TestTimerDeliversThroughQueue(t *testing.T) {
	queue := NewEventQueue(0)
	m := NewMotion(&recCommander{}, queue)
	m.Move(0.1, 0, 5*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for {
		if ev := queue.pop(); ev != nil {
			done, ok := ev.(motionDoneEvent)
			if !ok {
				t.Fatalf("unexpected event %T", ev)
			}
			if done.generation != m.generation {
				t.Errorf("generation %d, want %d", done.generation, m.generation)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timer expiry never reached the queue")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	queue := NewEventQueue(1)
	queue.Push(GyroEvent{Yaw: 1})
	queue.Push(GyroEvent{Yaw: 2}) // dropped, must not block
	if queue.Len() != 1 {
		t.Errorf("queue length %d, want 1", queue.Len())
	}
	ev := queue.pop()
	if g, ok := ev.(GyroEvent); !ok || g.Yaw != 1 {
		t.Errorf("got %v, want first event", ev)
	}
}
