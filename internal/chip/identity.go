// Package chip holds the chip-capability dispatch table: for every
// supported (Family, Memory) pair it bundles the address mapper, bring-up
// strategy, default timeouts, and compat flag that pair needs. There is no
// per-family frame-format variant: every family uses the little-endian
// framing of package frame. This is the Go expression of the trait-based
// dispatch the original tool used, built as a map of interface values that
// package bringup fills from its init func, rather than a trait object per
// chip.
package chip

import "github.com/OpenSiFli/sftool/errs"

// Family identifies a SiFli SF32LB5x chip variant.
type Family int

const (
	LB52 Family = iota
	LB55
	LB56
	LB58
)

func (f Family) String() string {
	switch f {
	case LB52:
		return "sf32lb52"
	case LB55:
		return "sf32lb55"
	case LB56:
		return "sf32lb56"
	case LB58:
		return "sf32lb58"
	default:
		return "unknown"
	}
}

// ParseFamily maps a chip name string to a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "sf32lb52":
		return LB52, nil
	case "sf32lb55":
		return LB55, nil
	case "sf32lb56":
		return LB56, nil
	case "sf32lb58":
		return LB58, nil
	default:
		return 0, errs.UnsupportedChip("unknown chip family %q", s)
	}
}

// Memory identifies the target storage the RAM stub drives.
type Memory int

const (
	Nor Memory = iota
	Nand
	SD
)

func (m Memory) String() string {
	switch m {
	case Nor:
		return "nor"
	case Nand:
		return "nand"
	case SD:
		return "sd"
	default:
		return "unknown"
	}
}

// ParseMemory maps a memory type string to a Memory.
func ParseMemory(s string) (Memory, error) {
	switch s {
	case "nor":
		return Nor, nil
	case "nand":
		return Nand, nil
	case "sd":
		return SD, nil
	default:
		return 0, errs.UnsupportedMemory("unknown memory type %q", s)
	}
}

// Identity is the (Family, Memory) pair that selects a RAM-stub image,
// address-mapping rules, a bring-up strategy, and default timeouts.
type Identity struct {
	Family Family
	Memory Memory
}

// StubKey returns the asset registry key for this identity, e.g.
// "sf32lb52_nor".
func (id Identity) StubKey() string {
	return id.Family.String() + "_" + id.Memory.String()
}
