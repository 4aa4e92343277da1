package bringup

import "github.com/OpenSiFli/sftool/internal/chip"

// init registers the capability table entries for every supported
// (family, memory) pair, the way database/sql drivers register themselves:
// importing this package for side effect populates the dispatch table
// package chip exposes.
func init() {
	directBringUp := NewDirect(nil)
	dfuBringUp := NewDFU(nil)

	for _, mem := range []chip.Memory{chip.Nor, chip.Nand, chip.SD} {
		for _, fam := range []chip.Family{chip.LB52, chip.LB56, chip.LB58} {
			id := chip.Identity{Family: fam, Memory: mem}
			chip.Register(chip.Capability{
				Identity: id,
				Mapper:   chip.DefaultMapper,
				BringUp:  directBringUp,
				Timeouts: chip.DefaultTimeouts(mem),
				Compat:   false,
			})
		}
		// lb55 loads its stub through the DFU sub-protocol and needs the
		// compat-mode chunked shell data path; its UART bridge cannot
		// sustain the large uncompat bursts the other families use.
		id := chip.Identity{Family: chip.LB55, Memory: mem}
		chip.Register(chip.Capability{
			Identity: id,
			Mapper:   chip.DefaultMapper,
			BringUp:  dfuBringUp,
			Timeouts: chip.DefaultTimeouts(mem),
			Compat:   true,
		})
	}
}
