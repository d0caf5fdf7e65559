// Package serialbus speaks the robot base's binary serial protocol. It reads
// sensor frames off the port, decodes them into events for the evaluation
// queue, and writes actuator command frames back.
package serialbus

import "github.com/pkg/errors"

// Wire framing: 0xAA 0x55 <len> <payload…> <checksum>, where checksum is the
// XOR of the length byte and every payload byte. The payload is a sequence of
// sub-payloads, each <id> <len> <data…>.
const (
	headerByte0 = 0xAA
	headerByte1 = 0x55

	maxPayloadLen = 255
)

// ErrChecksum is returned when a frame fails its XOR check.
var ErrChecksum = errors.New("serialbus: frame checksum mismatch")

// frameScanner reassembles frames from an arbitrary byte stream. Feed returns
// every complete, checksum-valid payload found in the chunk; garbage between
// frames is skipped by re-syncing on the two header bytes.
type frameScanner struct {
	buf []byte
}

func (s *frameScanner) feed(chunk []byte) [][]byte {
	s.buf = append(s.buf, chunk...)
	var frames [][]byte
	for {
		payload, ok := s.next()
		if !ok {
			return frames
		}
		if payload != nil {
			frames = append(frames, payload)
		}
	}
}

// next extracts one frame attempt from the buffer. It returns (nil, true) when
// a corrupt frame was discarded and scanning should continue, and (nil, false)
// when more bytes are needed.
func (s *frameScanner) next() ([]byte, bool) {
	start := s.sync()
	if start < 0 {
		return nil, false
	}
	s.buf = s.buf[start:]
	if len(s.buf) < 4 {
		return nil, false
	}
	payloadLen := int(s.buf[2])
	total := 3 + payloadLen + 1
	if len(s.buf) < total {
		return nil, false
	}
	payload := s.buf[3 : 3+payloadLen]
	sum := s.buf[2]
	for _, b := range payload {
		sum ^= b
	}
	if sum != s.buf[total-1] {
		// Drop the first header byte and re-sync; the real frame may start
		// inside what we just read.
		s.buf = s.buf[1:]
		return nil, true
	}
	out := make([]byte, payloadLen)
	copy(out, payload)
	s.buf = s.buf[total:]
	return out, true
}

// sync returns the offset of the next frame header, or -1 when the buffer
// holds no complete header yet.
func (s *frameScanner) sync() int {
	for i := 0; i+1 < len(s.buf); i++ {
		if s.buf[i] == headerByte0 && s.buf[i+1] == headerByte1 {
			return i
		}
	}
	// Keep at most one trailing byte in case it is the first header half.
	if n := len(s.buf); n > 1 {
		s.buf = s.buf[n-1:]
	}
	return -1
}

// encodeFrame wraps a payload in header, length and checksum.
func encodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > maxPayloadLen {
		return nil, errors.Errorf("serialbus: payload too long: %d bytes", len(payload))
	}
	out := make([]byte, 0, len(payload)+4)
	out = append(out, headerByte0, headerByte1, byte(len(payload)))
	out = append(out, payload...)
	sum := byte(len(payload))
	for _, b := range payload {
		sum ^= b
	}
	return append(out, sum), nil
}
