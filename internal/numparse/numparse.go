// Package numparse parses the numeric literals accepted on sftool's
// command-line surface and in flash-read CRC trailers: plain decimal, 0x/0b/
// 0o-prefixed, and k/m/g-suffixed values (e.g. "512k", "0x1000", "16m").
package numparse

import (
	"strconv"
	"strings"

	"github.com/OpenSiFli/sftool/errs"
)

// ParseUint32 parses s as a 32-bit unsigned value, applying the same
// suffix/prefix conventions the original tool's numeric arguments use.
func ParseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errs.InvalidInput("empty numeric literal")
	}

	multiplier := uint64(1)
	last := s[len(s)-1]
	switch last {
	case 'k', 'K':
		multiplier = 1000
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1_000_000
		s = s[:len(s)-1]
	case 'g', 'G':
		multiplier = 1_000_000_000
		s = s[:len(s)-1]
	}

	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base = 16
		s = s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base = 2
		s = s[2:]
	case strings.HasPrefix(s, "0o") || strings.HasPrefix(s, "0O"):
		base = 8
		s = s[2:]
	}

	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, errs.InvalidInput("invalid numeric literal: %v", err)
	}
	v *= multiplier
	if v > 0xFFFFFFFF {
		return 0, errs.InvalidInput("numeric literal %d overflows 32 bits", v)
	}
	return uint32(v), nil
}
