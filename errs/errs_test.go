package errs

import (
	"errors"
	"testing"
)

func TestIsUnwrapsWrappedChain(t *testing.T) {
	inner := New(KindProtocol, "bad frame")
	outer := Wrap(KindIO, inner, "transport failed")
	if !Is(outer, KindIO) {
		t.Fatalf("expected Is(outer, KindIO) to hold")
	}
	if !Is(outer, KindProtocol) {
		t.Fatalf("expected Is to see through the wrapped cause to KindProtocol")
	}
	if Is(outer, KindTimeout) {
		t.Fatalf("did not expect KindTimeout to match")
	}
}

func TestErrorsAsCompatibility(t *testing.T) {
	err := IO(errors.New("disk full"), "write failed")
	var target *Error
	if !errors.As(err, &target) {
		t.Fatalf("expected errors.As to unwrap into *Error")
	}
	if target.Kind != KindIO {
		t.Fatalf("got kind %v, want KindIO", target.Kind)
	}
}

func TestCrcMismatchMessage(t *testing.T) {
	err := CrcMismatch(0x1234, 0x5678)
	if err.Kind != KindCrcMismatch {
		t.Fatalf("got kind %v, want KindCrcMismatch", err.Kind)
	}
	want := "crc_mismatch: crc mismatch: expected 0x00001234, got 0x00005678"
	if err.Error() != want {
		t.Fatalf("got message %q, want %q", err.Error(), want)
	}
}
