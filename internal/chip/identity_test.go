package chip

import "testing"

func TestParseFamilyRoundTrip(t *testing.T) {
	for _, f := range []Family{LB52, LB55, LB56, LB58} {
		got, err := ParseFamily(f.String())
		if err != nil {
			t.Fatalf("ParseFamily(%s): %v", f, err)
		}
		if got != f {
			t.Fatalf("ParseFamily(%s) = %v, want %v", f, got, f)
		}
	}
}

func TestParseFamilyUnknown(t *testing.T) {
	if _, err := ParseFamily("sf32lb99"); err == nil {
		t.Fatalf("expected an error for an unknown family")
	}
}

func TestParseMemoryRoundTrip(t *testing.T) {
	for _, m := range []Memory{Nor, Nand, SD} {
		got, err := ParseMemory(m.String())
		if err != nil {
			t.Fatalf("ParseMemory(%s): %v", m, err)
		}
		if got != m {
			t.Fatalf("ParseMemory(%s) = %v, want %v", m, got, m)
		}
	}
}

func TestStubKey(t *testing.T) {
	id := Identity{Family: LB52, Memory: Nor}
	if id.StubKey() != "sf32lb52_nor" {
		t.Fatalf("StubKey() = %q, want sf32lb52_nor", id.StubKey())
	}
}
