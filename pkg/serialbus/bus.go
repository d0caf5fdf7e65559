package serialbus

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	qualagent "github.com/factorymate/QualAgent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Command sub-payload identifiers.
const (
	cmdBaseControl   = 0x01
	cmdSound         = 0x04
	cmdRequestExtra  = 0x09
	cmdGeneralOutput = 0x0C
)

// Request-extra flags.
const (
	reqHardwareVer = 0x01
	reqFirmwareVer = 0x02
	reqUDID        = 0x08
)

// General output bit layout: bits 0-3 digital outputs, bits 8-11 the two
// status LEDs (red/green pairs).
const (
	gpoLED1Red   = 1 << 8
	gpoLED1Green = 1 << 9
	gpoLED2Red   = 1 << 10
	gpoLED2Green = 1 << 11
)

// wheelBaseMM is the distance between the drive wheels, used to convert
// angular commands to the speed/radius wire format.
const wheelBaseMM = 230.0

// driverVersion is reported as the software component of the version triple.
const driverVersion = 0x010000

// Config holds the serial connection settings.
type Config struct {
	Port string
	Baud int
}

func (c *Config) applyDefaults() {
	if c.Baud == 0 {
		c.Baud = 115200
	}
}

// Bus owns the serial port. It runs a background read loop that feeds decoded
// events into the queue, and implements qualagent.Commander for the outgoing
// direction. The first valid frame after Connect emits an online event; a
// read failure emits offline.
type Bus struct {
	cfg   Config
	queue *qualagent.EventQueue

	mu       sync.Mutex
	port     serial.Port
	running  bool
	done     chan struct{}
	gpoState uint16
}

// NewBus builds a bus pushing events into queue.
func NewBus(cfg Config, queue *qualagent.EventQueue) (*Bus, error) {
	cfg.applyDefaults()
	if cfg.Port == "" {
		return nil, errors.New("serialbus: port cannot be empty")
	}
	if queue == nil {
		return nil, errors.New("serialbus: event queue cannot be nil")
	}
	return &Bus{cfg: cfg, queue: queue}, nil
}

// Connect opens the port and starts the read loop.
func (b *Bus) Connect() error {
	b.mu.Lock()
	if b.running {
		b.disconnectLocked()
	}

	mode := &serial.Mode{
		BaudRate: b.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(b.cfg.Port, mode)
	if err != nil {
		b.mu.Unlock()
		return errors.Wrapf(err, "serialbus: open %s failed", b.cfg.Port)
	}

	b.port = port
	b.running = true
	b.done = make(chan struct{})
	log.Info().Str("port", b.cfg.Port).Int("baud", b.cfg.Baud).Msg("serial port opened")

	go b.readLoop(b.done)
	b.mu.Unlock()

	// Versions and UDID are only sent on request.
	return b.writeCommand(cmdRequestExtra, u16le(reqHardwareVer|reqFirmwareVer|reqUDID))
}

// Disconnect stops the read loop and closes the port.
func (b *Bus) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectLocked()
}

func (b *Bus) disconnectLocked() {
	if !b.running {
		return
	}
	b.running = false
	if b.port != nil {
		b.port.Close()
	}
	close(b.done)
}

// Connected reports whether the port is open.
func (b *Bus) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bus) readLoop(done chan struct{}) {
	dec := newDecoder(b.queue)
	dec.software = driverVersion
	var scanner frameScanner
	buf := make([]byte, 1024)
	online := false

	for {
		select {
		case <-done:
			if online {
				b.queue.Push(qualagent.RobotStateEvent{Online: false})
			}
			return
		default:
		}

		n, err := b.port.Read(buf)
		if err != nil {
			log.Warn().Err(err).Msg("serial read failed, going offline")
			if online {
				b.queue.Push(qualagent.RobotStateEvent{Online: false})
			}
			b.Disconnect()
			return
		}
		if n == 0 {
			continue
		}
		for _, payload := range scanner.feed(buf[:n]) {
			if !online {
				online = true
				b.queue.Push(qualagent.RobotStateEvent{Online: true})
			}
			dec.decodeFrame(payload)
		}
	}
}

// Drive publishes a velocity command. The wire format wants translational
// speed plus a turn radius, both in mm.
func (b *Bus) Drive(linear, angular float64) {
	speed, radius := velocityToWire(linear, angular)
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], uint16(speed))
	binary.LittleEndian.PutUint16(payload[2:4], uint16(radius))
	if err := b.writeCommand(cmdBaseControl, payload); err != nil {
		log.Error().Err(err).Msg("drive command failed")
	}
}

// SetLED sets status LED 1 or 2 to the given color.
func (b *Bus) SetLED(led int, color qualagent.LEDColor) {
	var red, green uint16
	switch led {
	case 1:
		red, green = gpoLED1Red, gpoLED1Green
	case 2:
		red, green = gpoLED2Red, gpoLED2Green
	default:
		log.Warn().Int("led", led).Msg("unknown LED")
		return
	}

	b.mu.Lock()
	b.gpoState &^= red | green
	switch color {
	case qualagent.LEDRed:
		b.gpoState |= red
	case qualagent.LEDGreen:
		b.gpoState |= green
	case qualagent.LEDOrange:
		b.gpoState |= red | green
	}
	state := b.gpoState
	b.mu.Unlock()

	if err := b.writeCommand(cmdGeneralOutput, u16le(state)); err != nil {
		log.Error().Err(err).Msg("led command failed")
	}
}

// PlaySound triggers one of the built-in sound sequences.
func (b *Bus) PlaySound(sound qualagent.Sound) {
	if err := b.writeCommand(cmdSound, []byte{byte(sound)}); err != nil {
		log.Error().Err(err).Msg("sound command failed")
	}
}

// SetDigitalOutput drives the four output channels; only channels with the
// mask bit set are touched.
func (b *Bus) SetDigitalOutput(mask, values [4]bool) {
	b.mu.Lock()
	for i := 0; i < 4; i++ {
		if !mask[i] {
			continue
		}
		bit := uint16(1) << i
		if values[i] {
			b.gpoState |= bit
		} else {
			b.gpoState &^= bit
		}
	}
	state := b.gpoState
	b.mu.Unlock()

	if err := b.writeCommand(cmdGeneralOutput, u16le(state)); err != nil {
		log.Error().Err(err).Msg("digital output command failed")
	}
}

func (b *Bus) writeCommand(id byte, data []byte) error {
	payload := append([]byte{id, byte(len(data))}, data...)
	frame, err := encodeFrame(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.port == nil || !b.running {
		return errors.New("serialbus: port not open")
	}
	deadline := time.Now().Add(time.Second)
	for len(frame) > 0 {
		n, err := b.port.Write(frame)
		if err != nil {
			return errors.Wrap(err, "serialbus: write failed")
		}
		frame = frame[n:]
		if time.Now().After(deadline) {
			return errors.New("serialbus: write stalled")
		}
	}
	return nil
}

// velocityToWire converts (m/s, rad/s) to the speed/radius pair in mm.
func velocityToWire(linear, angular float64) (int16, int16) {
	switch {
	case angular == 0:
		return int16(math.Round(linear * 1000)), 0
	case linear == 0:
		// Turn in place: speed encodes the outer wheel velocity, radius 1
		// flags rotation around the robot center.
		return int16(math.Round(angular * wheelBaseMM / 2)), 1
	default:
		radius := linear / angular * 1000
		speed := linear * 1000
		if radius > 1 {
			speed = linear * 1000 * (radius + wheelBaseMM/2) / radius
		} else if radius < -1 {
			speed = linear * 1000 * (radius - wheelBaseMM/2) / radius
		}
		return int16(math.Round(speed)), int16(math.Round(radius))
	}
}

func u16le(v uint16) []byte {
	out := make([]byte, 2)
	binary.LittleEndian.PutUint16(out, v)
	return out
}
