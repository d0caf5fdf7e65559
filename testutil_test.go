package qualagent

import (
	"testing"
	"time"
)

// recCommander records every actuator command it receives.
type recCommander struct {
	drives  [][2]float64
	leds    []LEDColor
	sounds  []Sound
	outputs [][4]bool
}

func (c *recCommander) Drive(linear, angular float64) {
	c.drives = append(c.drives, [2]float64{linear, angular})
}
func (c *recCommander) SetLED(led int, color LEDColor) { c.leds = append(c.leds, color) }
func (c *recCommander) PlaySound(sound Sound)          { c.sounds = append(c.sounds, sound) }
func (c *recCommander) SetDigitalOutput(mask, values [4]bool) {
	c.outputs = append(c.outputs, values)
}

// recPrompter records prompt titles in display order.
type recPrompter struct {
	titles []string
	hidden int
}

func (p *recPrompter) ShowPrompt(level PromptLevel, title, message string) {
	p.titles = append(p.titles, title)
}
func (p *recPrompter) HidePrompt() { p.hidden++ }

func (p *recPrompter) count(title string) int {
	n := 0
	for _, t := range p.titles {
		if t == title {
			n++
		}
	}
	return n
}

// stubSink collects persisted records and optionally fails.
type stubSink struct {
	saved []*Robot
	err   error
}

func (s *stubSink) SaveRecord(r *Robot) error {
	s.saved = append(s.saved, r)
	return s.err
}

// stubEstimator replays canned yaw samples; after the script is exhausted it
// keeps returning the last entry.
type stubEstimator struct {
	initErr error
	samples []struct {
		yaw float64
		ok  bool
	}
	calls int
}

func (e *stubEstimator) Init(calibrationPath string, deviceIndex int) error { return e.initErr }

func (e *stubEstimator) SampleYaw() (float64, bool) {
	if len(e.samples) == 0 {
		return 0, false
	}
	i := e.calls
	if i >= len(e.samples) {
		i = len(e.samples) - 1
	}
	e.calls++
	return e.samples[i].yaw, e.samples[i].ok
}

// newTestSequencer builds a sequencer with recording collaborators and a
// no-op sleep so cooperative waits finish instantly.
func newTestSequencer(t *testing.T, cfg Config) (*Sequencer, *recCommander, *recPrompter) {
	t.Helper()
	cmd := &recCommander{}
	prompter := &recPrompter{}
	cfg.Commander = cmd
	cfg.Prompter = prompter
	seq, err := NewSequencer(cfg)
	if err != nil {
		t.Fatalf("NewSequencer: %v", err)
	}
	seq.sleep = func(time.Duration) {}
	return seq, cmd, prompter
}

// beginRobot starts a robot-under-test directly, bypassing the online event.
func beginRobot(seq *Sequencer) *Robot {
	return seq.session.Begin()
}
