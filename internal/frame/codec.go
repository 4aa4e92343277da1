package frame

import (
	"encoding/binary"
	"time"

	"github.com/OpenSiFli/sftool/errs"
)

// startWord is the two-byte synchronization prefix every debug-UART frame
// begins with.
var startWord = [2]byte{0x7E, 0x79}

const headerSize = 4 // length(2) + channel(1) + crc(1), after the 2-byte start word

// Frame is one debug-UART protocol unit: a length-prefixed payload tagged
// with a channel byte and a CRC byte. The CRC and channel are carried on
// the wire but never validated on receive, matching the chip's own
// bootloader behavior; validation of response data happens at a higher
// layer (the debug-command decoder), not in the framing layer.
type Frame struct {
	Channel byte
	CRC     byte
	Payload []byte
}

// Encode serializes f as a complete wire frame.
func Encode(f Frame) []byte {
	out := make([]byte, 0, 2+headerSize+len(f.Payload))
	out = append(out, startWord[0], startWord[1])
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(f.Payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, f.Channel, f.CRC)
	out = append(out, f.Payload...)
	return out
}

type decoderState int

const (
	stateScan decoderState = iota
	stateSync2
	stateHeader
	statePayload
)

// Decoder implements the frame receive state machine: it tolerates garbage
// preceding a frame by resynchronizing on the start word rather than failing
// outright, since line noise and chip boot chatter routinely precede a real
// frame.
type Decoder struct {
	state      decoderState
	header     [headerSize]byte
	headerFill int
	payload    []byte
	payloadLen int
	discarded  []byte
}

// NewDecoder returns a Decoder ready to scan for the next frame.
func NewDecoder() *Decoder {
	return &Decoder{state: stateScan}
}

// Discarded returns and clears any preamble bytes discarded since the last
// call, for diagnostic hex-dumping on resync.
func (d *Decoder) Discarded() []byte {
	out := d.discarded
	d.discarded = nil
	return out
}

// Feed pushes one received byte into the decoder. It returns a complete
// Frame once one has been fully received, or ok=false if more bytes are
// needed.
func (d *Decoder) Feed(b byte) (Frame, bool) {
	switch d.state {
	case stateScan:
		if b == startWord[0] {
			d.state = stateSync2
		} else {
			d.discarded = append(d.discarded, b)
		}
		return Frame{}, false
	case stateSync2:
		if b == startWord[1] {
			d.headerFill = 0
			d.state = stateHeader
		} else {
			// Not a real start word; treat the first byte as discarded noise
			// and re-scan from this byte.
			d.discarded = append(d.discarded, startWord[0])
			d.state = stateScan
			return d.Feed(b)
		}
		return Frame{}, false
	case stateHeader:
		d.header[d.headerFill] = b
		d.headerFill++
		if d.headerFill == headerSize {
			d.payloadLen = int(binary.LittleEndian.Uint16(d.header[0:2]))
			if d.payloadLen == 0 {
				f := d.finish(nil)
				d.state = stateScan
				return f, true
			}
			d.payload = make([]byte, 0, d.payloadLen)
			d.state = statePayload
		}
		return Frame{}, false
	case statePayload:
		d.payload = append(d.payload, b)
		if len(d.payload) == d.payloadLen {
			f := d.finish(d.payload)
			d.state = stateScan
			return f, true
		}
		return Frame{}, false
	default:
		d.state = stateScan
		return Frame{}, false
	}
}

func (d *Decoder) finish(payload []byte) Frame {
	return Frame{
		Channel: d.header[2],
		CRC:     d.header[3],
		Payload: payload,
	}
}

// Receive reads bytes from t until a complete frame arrives or deadline
// elapses.
func Receive(t *Transport, deadline time.Time) (Frame, error) {
	d := NewDecoder()
	for {
		b, err := t.ReadByte(deadline)
		if err != nil {
			return Frame{}, err
		}
		if f, ok := d.Feed(b); ok {
			return f, nil
		}
		if time.Now().After(deadline) {
			return Frame{}, errs.Timeout("frame not received before deadline")
		}
	}
}

// Send encodes and writes f.
func Send(t *Transport, f Frame) error {
	return t.Write(Encode(f))
}
