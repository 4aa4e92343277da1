package numparse

import "testing"

func TestParseUint32Decimal(t *testing.T) {
	got, err := ParseUint32("12345")
	if err != nil {
		t.Fatalf("ParseUint32: %v", err)
	}
	if got != 12345 {
		t.Fatalf("got %d, want 12345", got)
	}
}

func TestParseUint32HexPrefix(t *testing.T) {
	got, err := ParseUint32("0x10000000")
	if err != nil {
		t.Fatalf("ParseUint32: %v", err)
	}
	if got != 0x10000000 {
		t.Fatalf("got %#x, want 0x10000000", got)
	}
}

func TestParseUint32BinAndOctPrefix(t *testing.T) {
	got, err := ParseUint32("0b1010")
	if err != nil || got != 10 {
		t.Fatalf("ParseUint32(0b1010) = (%d, %v), want (10, nil)", got, err)
	}
	got, err = ParseUint32("0o17")
	if err != nil || got != 15 {
		t.Fatalf("ParseUint32(0o17) = (%d, %v), want (15, nil)", got, err)
	}
}

func TestParseUint32Suffixes(t *testing.T) {
	cases := map[string]uint32{
		"4k":  4000,
		"16M": 16_000_000,
		"1g":  1_000_000_000,
	}
	for in, want := range cases {
		got, err := ParseUint32(in)
		if err != nil {
			t.Fatalf("ParseUint32(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseUint32(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseUint32OverflowRejected(t *testing.T) {
	if _, err := ParseUint32("5g"); err == nil {
		t.Fatalf("expected overflow error for 5g")
	}
}

func TestParseUint32Empty(t *testing.T) {
	if _, err := ParseUint32("  "); err == nil {
		t.Fatalf("expected error for empty literal")
	}
}
