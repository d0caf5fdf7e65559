package qualagent

// LEDColor enumerates the colors of the two status LEDs.
type LEDColor int

const (
	LEDBlack LEDColor = iota
	LEDGreen
	LEDOrange
	LEDRed
)

func (c LEDColor) String() string {
	switch c {
	case LEDGreen:
		return "GREEN"
	case LEDOrange:
		return "ORANGE"
	case LEDRed:
		return "RED"
	default:
		return "BLACK"
	}
}

// Sound enumerates the robot's built-in sound sequences.
type Sound int

const (
	SoundOn Sound = iota
	SoundOff
	SoundRecharge
	SoundButton
	SoundError
	SoundCleaningStart
	SoundCleaningEnd
)

var soundNames = []string{"ON", "OFF", "RECHARGE", "BUTTON", "ERROR", "CLEANING START", "CLEANING END"}

func (s Sound) String() string {
	if s >= 0 && int(s) < len(soundNames) {
		return soundNames[s]
	}
	return "UNKNOWN"
}

// Commander is the outgoing half of the transport: fire-and-forget actuator
// commands. Implementations must not block the caller.
type Commander interface {
	// Drive publishes a velocity command (m/s, rad/s).
	Drive(linear, angular float64)
	// SetLED sets status LED 1 or 2 to the given color.
	SetLED(led int, color LEDColor)
	// PlaySound triggers one of the built-in sound sequences.
	PlaySound(sound Sound)
	// SetDigitalOutput drives the four output channels; only channels with
	// the mask bit set are touched.
	SetDigitalOutput(mask, values [4]bool)
}

// PromptLevel is the severity of an operator prompt.
type PromptLevel int

const (
	PromptInfo PromptLevel = iota
	PromptWarn
	PromptError
)

// Prompter shows instructions to the test operator. Confirmation travels
// back through the robot's own function buttons, so the prompter is
// display-only.
type Prompter interface {
	ShowPrompt(level PromptLevel, title, message string)
	HidePrompt()
}

// YawEstimator is the external camera-based orientation estimator used by the
// gyroscope cross-check.
type YawEstimator interface {
	// Init prepares the estimator from a calibration file and camera index.
	Init(calibrationPath string, deviceIndex int) error
	// SampleYaw returns the observed yaw in radians; ok is false when the
	// check board is not currently recognized.
	SampleYaw() (yaw float64, ok bool)
}

// RecordSink persists one finished (or abandoned) robot record.
type RecordSink interface {
	SaveRecord(r *Robot) error
}

type noopPrompter struct{}

func (noopPrompter) ShowPrompt(level PromptLevel, title, message string) {}
func (noopPrompter) HidePrompt()                                        {}

type noopCommander struct{}

func (noopCommander) Drive(linear, angular float64)           {}
func (noopCommander) SetLED(led int, color LEDColor)          {}
func (noopCommander) PlaySound(sound Sound)                   {}
func (noopCommander) SetDigitalOutput(mask, values [4]bool)   {}
