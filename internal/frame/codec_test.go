package frame

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Channel: 0x03, CRC: 0xAB, Payload: []byte{1, 2, 3, 4, 5}}
	wire := Encode(f)

	d := NewDecoder()
	var got Frame
	ok := false
	for _, b := range wire {
		got, ok = d.Feed(b)
		if ok {
			break
		}
	}
	if !ok {
		t.Fatalf("decoder never produced a frame")
	}
	if got.Channel != f.Channel || got.CRC != f.CRC || !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestFrameRoundTripEmptyPayload(t *testing.T) {
	f := Frame{Channel: 1, CRC: 0, Payload: nil}
	wire := Encode(f)
	d := NewDecoder()
	var got Frame
	ok := false
	for _, b := range wire {
		got, ok = d.Feed(b)
		if ok {
			break
		}
	}
	if !ok {
		t.Fatalf("decoder never produced a frame")
	}
	if len(got.Payload) != 0 {
		t.Fatalf("expected empty payload, got %v", got.Payload)
	}
}

func TestDecoderToleratesPreambleGarbage(t *testing.T) {
	f := Frame{Channel: 2, CRC: 7, Payload: []byte{0xAA, 0xBB}}
	garbage := []byte{0x00, 0xFF, 0x7E, 0x01, 0x55}
	wire := append(garbage, Encode(f)...)

	d := NewDecoder()
	var got Frame
	ok := false
	for _, b := range wire {
		got, ok = d.Feed(b)
		if ok {
			break
		}
	}
	if !ok {
		t.Fatalf("decoder failed to resync past preamble garbage")
	}
	if !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("payload mismatch after resync: got %v, want %v", got.Payload, f.Payload)
	}
}

func TestDecoderResyncsOnFalseStartByte(t *testing.T) {
	// A lone 0x7E not followed by 0x79 must not desync the scanner
	// permanently -- it should fall back to scanning from the next byte.
	f := Frame{Channel: 0, CRC: 0, Payload: []byte{9, 9}}
	wire := append([]byte{0x7E, 0x00}, Encode(f)...)

	d := NewDecoder()
	var got Frame
	ok := false
	for _, b := range wire {
		got, ok = d.Feed(b)
		if ok {
			break
		}
	}
	if !ok {
		t.Fatalf("decoder failed to resync after a false start word")
	}
	if !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("payload mismatch: got %v, want %v", got.Payload, f.Payload)
	}
}
