package serialbus

import (
	"encoding/binary"
	"fmt"
	"math"

	qualagent "github.com/factorymate/QualAgent"
	"github.com/rs/zerolog/log"
)

// Sensor sub-payload identifiers.
const (
	subCoreSensors = 0x01
	subDockIR      = 0x03
	subInertial    = 0x04
	subCliffADC    = 0x05
	subCurrent     = 0x06
	subHardwareVer = 0x0A
	subFirmwareVer = 0x0B
	subRawGyro     = 0x0D
	subGPIO        = 0x10
	subUDID        = 0x13
)

// Core sensor charger byte states.
const (
	chargerDischarging     = 0
	chargerDockCharged     = 2
	chargerDockCharging    = 6
	chargerAdapterCharged  = 18
	chargerAdapterCharging = 22
)

// Battery warning thresholds, tenths of a volt.
const (
	batteryLowTenths      = 140
	batteryCriticalTenths = 135
)

// eventPusher is the decoder's output. The production implementation is
// *qualagent.EventQueue.
type eventPusher interface {
	Push(ev qualagent.Event)
}

// decoder turns raw sub-payloads into evaluation events. The stream reports
// absolute sensor state every frame; the decoder keeps the previous state and
// emits one event per transition, which is what the evaluation logic expects.
type decoder struct {
	queue eventPusher

	bumperState    uint8
	wheelDropState uint8
	cliffState     uint8
	buttonState    uint8
	chargerState   uint8
	haveCore       bool

	batteryLowSent      bool
	batteryCriticalSent bool

	motorCurrent [2]uint8
	analogInput  [4]int16
	digitalState uint8
	haveDigital  bool

	udid        string
	firmware    uint32
	hardware    uint32
	software    uint32
	versionSent bool
}

func newDecoder(queue eventPusher) *decoder {
	return &decoder{queue: queue}
}

// decodeFrame walks the sub-payloads of one frame and pushes resulting events.
func (d *decoder) decodeFrame(payload []byte) {
	for len(payload) >= 2 {
		id := payload[0]
		length := int(payload[1])
		if len(payload) < 2+length {
			log.Debug().Uint8("subpayload", id).Msg("truncated sub-payload, dropping frame tail")
			return
		}
		d.decodeSub(id, payload[2:2+length])
		payload = payload[2+length:]
	}
}

func (d *decoder) decodeSub(id uint8, data []byte) {
	switch id {
	case subCoreSensors:
		d.decodeCoreSensors(data)
	case subDockIR:
		if len(data) >= 3 {
			d.queue.Push(qualagent.DockBeaconEvent{Signals: [3]uint8{data[0], data[1], data[2]}})
		}
	case subInertial:
		if len(data) >= 2 {
			// Heading comes as hundredths of a degree.
			angle := int16(binary.LittleEndian.Uint16(data))
			d.queue.Push(qualagent.GyroEvent{Yaw: float64(angle) / 100 * math.Pi / 180})
		}
	case subCurrent:
		if len(data) >= 2 {
			d.motorCurrent = [2]uint8{data[0], data[1]}
		}
	case subHardwareVer:
		if len(data) >= 3 {
			d.hardware = uint32(data[2])<<16 | uint32(data[1])<<8 | uint32(data[0])
			d.maybeSendVersion()
		}
	case subFirmwareVer:
		if len(data) >= 3 {
			d.firmware = uint32(data[2])<<16 | uint32(data[1])<<8 | uint32(data[0])
			d.maybeSendVersion()
		}
	case subGPIO:
		d.decodeGPIO(data)
	case subUDID:
		if len(data) >= 12 {
			d.udid = fmt.Sprintf("%d-%d-%d",
				binary.LittleEndian.Uint32(data[0:4]),
				binary.LittleEndian.Uint32(data[4:8]),
				binary.LittleEndian.Uint32(data[8:12]))
			d.maybeSendVersion()
		}
	case subCliffADC, subRawGyro:
		// Raw streams not used by the evaluation.
	default:
		log.Debug().Uint8("subpayload", id).Msg("unknown sub-payload")
	}
}

// Core sensors layout: timestamp u16, bumper u8, wheel drop u8, cliff u8,
// encoders u16 x2, pwm u8 x2, buttons u8, charger u8, battery u8,
// overcurrent u8.
func (d *decoder) decodeCoreSensors(data []byte) {
	if len(data) < 13 {
		return
	}
	bumper, wheelDrop, cliff := data[2], data[3], data[4]
	buttons, charger, battery := data[10], data[11], data[12]

	if d.haveCore {
		d.emitBitEdges(d.bumperState, bumper, 3, func(i int, on bool) {
			d.queue.Push(qualagent.BumperEvent{Bumper: bumperIndex(i), Pressed: on})
		})
		d.emitBitEdges(d.wheelDropState, wheelDrop, 2, func(i int, on bool) {
			d.queue.Push(qualagent.WheelDropEvent{Wheel: wheelIndex(i), Dropped: on})
		})
		d.emitBitEdges(d.cliffState, cliff, 3, func(i int, on bool) {
			d.queue.Push(qualagent.CliffEvent{Sensor: bumperIndex(i), Cliff: on})
		})
		d.emitBitEdges(d.buttonState, buttons, 3, func(i int, on bool) {
			d.queue.Push(qualagent.ButtonEvent{Button: i, Pressed: on})
		})
		d.emitPowerEdges(d.chargerState, charger)
	}
	d.bumperState, d.wheelDropState, d.cliffState = bumper, wheelDrop, cliff
	d.buttonState, d.chargerState = buttons, charger
	d.haveCore = true

	d.emitBatteryWarnings(battery, charger)

	analog := make([]int16, len(d.analogInput))
	copy(analog, d.analogInput[:])
	d.queue.Push(qualagent.CoreSensorsEvent{
		MotorCurrent: d.motorCurrent,
		Charger:      isCharging(charger),
		Battery:      battery,
		AnalogInput:  analog,
	})
}

// GPIO layout: digital input u16, analog input u16 x4.
func (d *decoder) decodeGPIO(data []byte) {
	if len(data) < 10 {
		return
	}
	digital := uint8(binary.LittleEndian.Uint16(data[0:2]) & 0x0F)
	for i := 0; i < 4; i++ {
		d.analogInput[i] = int16(binary.LittleEndian.Uint16(data[2+2*i:]))
	}
	if !d.haveDigital || digital != d.digitalState {
		var values [4]bool
		for i := 0; i < 4; i++ {
			values[i] = digital&(1<<i) != 0
		}
		d.queue.Push(qualagent.DigitalInputEvent{Values: values})
	}
	d.digitalState = digital
	d.haveDigital = true
}

// Bumpers and cliffs are wired right-to-left on the wire; the evaluation
// indexes them left=0, center=1, right=2.
func bumperIndex(bit int) int { return 2 - bit }

// Wheel drop wire order is right=bit0, left=bit1.
func wheelIndex(bit int) int { return 1 - bit }

func (d *decoder) emitBitEdges(prev, cur uint8, bits int, emit func(i int, on bool)) {
	changed := prev ^ cur
	for i := 0; i < bits; i++ {
		if changed&(1<<i) != 0 {
			emit(i, cur&(1<<i) != 0)
		}
	}
}

func (d *decoder) emitPowerEdges(prev, cur uint8) {
	if prev == cur {
		return
	}
	switch cur {
	case chargerDischarging:
		d.queue.Push(qualagent.PowerEvent{Kind: qualagent.PowerUnplugged})
	case chargerAdapterCharging:
		d.queue.Push(qualagent.PowerEvent{Kind: qualagent.PowerPluggedToAdapter})
	case chargerDockCharging:
		d.queue.Push(qualagent.PowerEvent{Kind: qualagent.PowerPluggedToDock})
	case chargerAdapterCharged, chargerDockCharged:
		if isCharging(prev) {
			d.queue.Push(qualagent.PowerEvent{Kind: qualagent.PowerChargeCompleted})
		}
	}
}

func (d *decoder) emitBatteryWarnings(battery, charger uint8) {
	if isCharging(charger) || charger == chargerAdapterCharged || charger == chargerDockCharged {
		d.batteryLowSent = false
		d.batteryCriticalSent = false
		return
	}
	if battery <= batteryCriticalTenths && !d.batteryCriticalSent {
		d.batteryCriticalSent = true
		d.queue.Push(qualagent.PowerEvent{Kind: qualagent.PowerBatteryCritical})
	} else if battery <= batteryLowTenths && !d.batteryLowSent {
		d.batteryLowSent = true
		d.queue.Push(qualagent.PowerEvent{Kind: qualagent.PowerBatteryLow})
	}
}

func (d *decoder) maybeSendVersion() {
	if d.versionSent || d.udid == "" || d.firmware == 0 || d.hardware == 0 {
		return
	}
	d.versionSent = true
	d.queue.Push(qualagent.VersionInfoEvent{
		UDID: d.udid,
		Version: qualagent.Version{
			Firmware: d.firmware,
			Hardware: d.hardware,
			Software: d.software,
		},
	})
}

func isCharging(charger uint8) bool {
	return charger == chargerAdapterCharging || charger == chargerDockCharging
}
