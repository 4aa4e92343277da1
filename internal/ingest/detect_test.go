package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectKindByExtension(t *testing.T) {
	cases := map[string]FileKind{
		"firmware.hex": KindHex,
		"FIRMWARE.HEX": KindHex,
		"image.elf":    KindELF,
		"image.axf":    KindELF,
		"blob.bin":     KindBin,
	}
	for name, want := range cases {
		dir := t.TempDir()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte{0, 1, 2, 3}, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		got, err := DetectKind(path)
		if err != nil {
			t.Fatalf("DetectKind(%s): %v", name, err)
		}
		if got != want {
			t.Fatalf("DetectKind(%s) = %v, want %v", name, got, want)
		}
	}
}

func TestDetectKindSniffsELFMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noext")
	data := append([]byte{0x7F, 'E', 'L', 'F'}, make([]byte, 16)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := DetectKind(path)
	if err != nil {
		t.Fatalf("DetectKind: %v", err)
	}
	if got != KindELF {
		t.Fatalf("DetectKind = %v, want KindELF", got)
	}
}

func TestParseFileSpec(t *testing.T) {
	path, addr, err := ParseFileSpec("firmware.bin@0x10000000")
	if err != nil {
		t.Fatalf("ParseFileSpec: %v", err)
	}
	if path != "firmware.bin" || addr == nil || *addr != 0x10000000 {
		t.Fatalf("got path=%q addr=%v, want firmware.bin/0x10000000", path, addr)
	}

	path, addr, err = ParseFileSpec("firmware.hex")
	if err != nil {
		t.Fatalf("ParseFileSpec: %v", err)
	}
	if path != "firmware.hex" || addr != nil {
		t.Fatalf("got path=%q addr=%v, want firmware.hex/nil", path, addr)
	}
}

func TestParseRegionSpec(t *testing.T) {
	addr, size, err := ParseRegionSpec("0x10000000:4k")
	if err != nil {
		t.Fatalf("ParseRegionSpec: %v", err)
	}
	if addr != 0x10000000 || size != 4000 {
		t.Fatalf("got addr=%#x size=%d, want 0x10000000/4000", addr, size)
	}
}

func TestLoadSegmentsRequiresAddressForBin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSegments(path); err == nil {
		t.Fatalf("expected an error for a bin file with no @address")
	}
	segs, err := LoadSegments(path + "@0x20000000")
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	if len(segs) != 1 || segs[0].Address != 0x20000000 {
		t.Fatalf("got %+v, want one segment at 0x20000000", segs)
	}
}
