package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/numparse"
)

// FileKind identifies an ingested object file's format.
type FileKind int

const (
	KindBin FileKind = iota
	KindHex
	KindELF
)

// elfMagic is the four-byte ELF identification prefix.
var elfMagic = []byte{0x7F, 'E', 'L', 'F'}

// DetectKind classifies path by extension first, falling back to sniffing
// the leading bytes for the ELF magic when the extension is ambiguous.
func DetectKind(path string) (FileKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		return KindHex, nil
	case ".elf", ".axf", ".out":
		return KindELF, nil
	case ".bin":
		return KindBin, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, errs.IO(err, "open %s", path)
	}
	defer f.Close()
	var head [4]byte
	n, _ := f.Read(head[:])
	if n == 4 && string(head[:]) == string(elfMagic) {
		return KindELF, nil
	}
	return KindBin, nil
}

// ParseFileSpec splits a "file", "file@address", or "file@address:size"
// argument (the form write-flash file arguments use) into its path and
// optional address; a ":size" part is accepted and discarded.
func ParseFileSpec(spec string) (path string, address *uint32, err error) {
	at := strings.IndexByte(spec, '@')
	if at < 0 {
		return spec, nil, nil
	}
	path = spec[:at]
	addrPart := spec[at+1:]
	if colon := strings.IndexByte(addrPart, ':'); colon >= 0 {
		addrPart = addrPart[:colon]
	}
	a, perr := numparse.ParseUint32(addrPart)
	if perr != nil {
		return "", nil, perr
	}
	return path, &a, nil
}

// ParseRegionSpec splits an "address:size" argument (the form
// erase-region uses) into its two numeric fields.
func ParseRegionSpec(spec string) (address, size uint32, err error) {
	colon := strings.IndexByte(spec, ':')
	if colon < 0 {
		return 0, 0, errs.InvalidInput("region %q must be address:size", spec)
	}
	address, err = numparse.ParseUint32(spec[:colon])
	if err != nil {
		return 0, 0, err
	}
	size, err = numparse.ParseUint32(spec[colon+1:])
	if err != nil {
		return 0, 0, err
	}
	return address, size, nil
}

// LoadSegments ingests path (a bin/hex/elf object file, optionally
// "file@address") into address-tagged segments ready for flashop.WriteFlash.
func LoadSegments(spec string) ([]Segment, error) {
	path, addrOverride, err := ParseFileSpec(spec)
	if err != nil {
		return nil, err
	}
	kind, err := DetectKind(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindELF:
		return ParseELF(path)
	case KindHex:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.IO(err, "read %s", path)
		}
		return ParseIntelHex(data, addrOverride)
	default:
		if addrOverride == nil {
			return nil, errs.InvalidInput("bin file %q requires an @address suffix", spec)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.IO(err, "read %s", path)
		}
		return []Segment{{Address: *addrOverride, Data: data}}, nil
	}
}
