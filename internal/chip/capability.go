package chip

import (
	"context"
	"time"

	"github.com/OpenSiFli/sftool/internal/frame"
)

// AddressMapper rewrites a debug-command target address into the address
// the chip's debug port actually expects. Every registered family uses
// DefaultMapper, the shared 0x12000000 -> 0x62000000 alias remap; the
// interface lets a capability carry its own mapper instead of a single
// shared function.
type AddressMapper interface {
	MapAddress(addr uint32) uint32
}

// AddressMapperFunc adapts a function to AddressMapper.
type AddressMapperFunc func(uint32) uint32

func (f AddressMapperFunc) MapAddress(addr uint32) uint32 { return f(addr) }

// DefaultMapper applies only the shared alias remap common to every family.
var DefaultMapper AddressMapper = AddressMapperFunc(func(addr uint32) uint32 {
	if addr&0xFF000000 == 0x12000000 {
		return 0x62000000 | (addr &^ 0xFF000000)
	}
	return addr
})

// BringUp loads and starts the RAM stub for one identity over a connected
// transport; the direct-load strategy catches the reset vector and halts the
// core itself first. Implementations live in package bringup; this
// interface exists in package chip purely to break the import cycle that
// would otherwise exist between the capability table and the bring-up
// strategies that populate it.
type BringUp interface {
	LoadAndRun(ctx context.Context, t *frame.Transport, cap Capability, externalStubPath string) error
}

// Timeouts bundles the default wait periods a chip family/memory pair uses.
type Timeouts struct {
	Command   time.Duration
	EraseAll  time.Duration
	ShellWait time.Duration
}

// DefaultTimeouts matches the common-module defaults: 4s for ordinary
// commands, 30s for a full-chip erase, tripled for sd-backed memory.
func DefaultTimeouts(mem Memory) Timeouts {
	t := Timeouts{Command: 4 * time.Second, EraseAll: 30 * time.Second, ShellWait: 4 * time.Second}
	if mem == SD {
		t.Command *= 3
		t.EraseAll *= 3
		t.ShellWait *= 3
	}
	return t
}

// Capability bundles everything the bring-up/shell/flash layers need for one
// (Family, Memory) pair.
type Capability struct {
	Identity Identity
	Mapper   AddressMapper
	BringUp  BringUp
	Timeouts Timeouts
	// Compat selects the 256-byte/10ms chunked send path used by families
	// whose UART bridge can't sustain large bursts (currently lb55 only).
	Compat bool
}

var table = map[Identity]Capability{}

// Register adds a capability to the dispatch table. Bring-up strategy
// packages call this from an init() func, mirroring database/sql's driver
// registration idiom.
func Register(c Capability) {
	table[c.Identity] = c
}

// Lookup returns the capability registered for id.
func Lookup(id Identity) (Capability, bool) {
	c, ok := table[id]
	return c, ok
}
