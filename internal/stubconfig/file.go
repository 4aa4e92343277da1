package stubconfig

import (
	"os"

	"github.com/OpenSiFli/sftool/errs"
)

// ReadFile locates and decodes the driver-config block embedded in the ELF
// or AXF image at path.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.IO(err, "read %s", path)
	}
	off, ok := FindOffset(data)
	if !ok {
		return Config{}, errs.Protocol("no driver-config block found in %s", path)
	}
	return ReadAt(data, off)
}

// WriteFile locates the driver-config block in the image at path and
// overwrites it with cfg.
func WriteFile(path string, cfg Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.IO(err, "read %s", path)
	}
	off, ok := FindOffset(data)
	if !ok {
		return errs.Protocol("no driver-config block found in %s", path)
	}
	if err := WriteAt(data, off, cfg); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ClearFile locates the driver-config block in the image at path and
// zero-fills it.
func ClearFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.IO(err, "read %s", path)
	}
	off, ok := FindOffset(data)
	if !ok {
		return errs.Protocol("no driver-config block found in %s", path)
	}
	if err := ClearAt(data, off); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
