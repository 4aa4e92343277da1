package ingest

import (
	"debug/elf"

	"github.com/OpenSiFli/sftool/errs"
)

// ParseELF extracts every PT_LOAD segment with a non-zero file size from an
// ELF image, using each segment's physical address (p_paddr), not its
// virtual address, since the flashed location is what matters here. This
// mirrors the pack's own precedent for ARM Cortex-M ELF loading
// (stdlib debug/elf), rather than pulling in a third-party ELF parser.
func ParseELF(path string) ([]Segment, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, err, "open elf %s", path)
	}
	defer f.Close()

	var segs []Segment
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, errs.Wrap(errs.KindInvalidInput, err, "read PT_LOAD segment at 0x%x", prog.Paddr)
		}
		segs = append(segs, Segment{Address: uint32(prog.Paddr), Data: data})
	}
	if len(segs) == 0 {
		return nil, errs.Protocol("elf %s has no loadable PT_LOAD segments", path)
	}
	return segs, nil
}
