package ingest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildMinimalELF hand-assembles a 32-bit little-endian ELF with a single
// PT_LOAD segment, just enough for debug/elf to parse it.
func buildMinimalELF(t *testing.T, paddr uint32, payload []byte) string {
	t.Helper()
	const ehsize = 52
	const phentsize = 32
	phoff := uint32(ehsize)
	dataOff := ehsize + phentsize

	ident := []byte{0x7F, 'E', 'L', 'F', 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	ehdr := make([]byte, ehsize)
	copy(ehdr[0:16], ident)
	binary.LittleEndian.PutUint16(ehdr[16:], 2)       // e_type ET_EXEC
	binary.LittleEndian.PutUint16(ehdr[18:], 40)      // e_machine EM_ARM
	binary.LittleEndian.PutUint32(ehdr[20:], 1)        // e_version
	binary.LittleEndian.PutUint32(ehdr[24:], 0)        // e_entry
	binary.LittleEndian.PutUint32(ehdr[28:], phoff)    // e_phoff
	binary.LittleEndian.PutUint32(ehdr[32:], 0)        // e_shoff
	binary.LittleEndian.PutUint32(ehdr[36:], 0)        // e_flags
	binary.LittleEndian.PutUint16(ehdr[40:], ehsize)
	binary.LittleEndian.PutUint16(ehdr[42:], phentsize)
	binary.LittleEndian.PutUint16(ehdr[44:], 1) // e_phnum
	binary.LittleEndian.PutUint16(ehdr[46:], 0)
	binary.LittleEndian.PutUint16(ehdr[48:], 0)
	binary.LittleEndian.PutUint16(ehdr[50:], 0)

	phdr := make([]byte, phentsize)
	binary.LittleEndian.PutUint32(phdr[0:], 1)                  // p_type PT_LOAD
	binary.LittleEndian.PutUint32(phdr[4:], uint32(dataOff))     // p_offset
	binary.LittleEndian.PutUint32(phdr[8:], paddr)               // p_vaddr
	binary.LittleEndian.PutUint32(phdr[12:], paddr)              // p_paddr
	binary.LittleEndian.PutUint32(phdr[16:], uint32(len(payload))) // p_filesz
	binary.LittleEndian.PutUint32(phdr[20:], uint32(len(payload))) // p_memsz
	binary.LittleEndian.PutUint32(phdr[24:], 6)                  // p_flags RW
	binary.LittleEndian.PutUint32(phdr[28:], 4)                  // p_align

	blob := append(ehdr, phdr...)
	blob = append(blob, payload...)

	dir := t.TempDir()
	path := filepath.Join(dir, "image.elf")
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatalf("write elf: %v", err)
	}
	return path
}

func TestParseELFUsesPhysicalAddress(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}
	path := buildMinimalELF(t, 0x08000000, payload)

	segs, err := ParseELF(path)
	if err != nil {
		t.Fatalf("ParseELF: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Address != 0x08000000 {
		t.Fatalf("segment address = %#x, want 0x08000000", segs[0].Address)
	}
	if string(segs[0].Data) != string(payload) {
		t.Fatalf("segment data = %v, want %v", segs[0].Data, payload)
	}
}
