// Package stubasset provides the embedded RAM-stub images keyed by chip
// identity, with a path override for supplying a real stub image in place
// of the embedded placeholder. This mirrors leptontest's fake-hardware
// pattern: a structurally faithful stand-in that exercises the full
// upload/run pipeline without the real, proprietary firmware.
package stubasset

import (
	"embed"
	"encoding/binary"
	"os"

	"github.com/OpenSiFli/sftool/errs"
)

//go:embed assets/*.bin assets/*.der
var assets embed.FS

// Stub is a loaded RAM-stub image: its raw bytes plus the initial stack
// pointer and program counter the bring-up sequence seeds the core with,
// read from the image's first 8 bytes per the common bring-up convention.
type Stub struct {
	Bytes []byte
	SP    uint32
	PC    uint32
}

// Load returns the stub registered under key, preferring externalPath when
// non-empty.
func Load(key, externalPath string) (Stub, error) {
	var data []byte
	var err error
	if externalPath != "" {
		data, err = os.ReadFile(externalPath)
		if err != nil {
			return Stub{}, errs.MissingAsset("read external stub %s: %v", externalPath, err)
		}
	} else {
		data, err = assets.ReadFile("assets/" + key + ".bin")
		if err != nil {
			return Stub{}, errs.MissingAsset("no embedded stub registered for %s", key)
		}
	}
	if len(data) < 8 {
		return Stub{}, errs.Protocol("stub image %s too short (%d bytes)", key, len(data))
	}
	return Stub{
		Bytes: data,
		SP:    binary.LittleEndian.Uint32(data[0:4]),
		PC:    binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// LoadSignature returns the embedded boot-patch signature key used by the
// family-55 DFU bring-up sequence, or the contents of externalPath when set.
func LoadSignature(name, externalPath string) ([]byte, error) {
	if externalPath != "" {
		data, err := os.ReadFile(externalPath)
		if err != nil {
			return nil, errs.MissingAsset("read external signature key %s: %v", externalPath, err)
		}
		return data, nil
	}
	data, err := assets.ReadFile("assets/" + name)
	if err != nil {
		return nil, errs.MissingAsset("no embedded signature key registered for %s", name)
	}
	return data, nil
}
