package stubconfig

import (
	"encoding/binary"

	"github.com/OpenSiFli/sftool/errs"
)

// Fixed byte layout of a 236-byte driver-config block. Every slot is
// present at a fixed offset regardless of how many entries are actually in
// use; unused slots are zero-filled and excluded by the mask fields. Two
// reserved bytes separate the header from the pin table so it starts at a
// 16-byte boundary; one reserved byte pads each pin/flash/pmic entry out to
// its fixed stride.
const (
	offMagic       = 0
	offVersion     = 4
	offPinMask     = 8
	offFlashMask   = 10
	offPmicMask    = 12
	offSd0Mask     = 13
	offPins        = 16
	pinEntrySize   = 4
	offFlash       = offPins + PinCfgCount*pinEntrySize // 64
	flashEntrySize = 12
	offPmic        = offFlash + FlashCfgCount*flashEntrySize // 208
	pmicBlockSize  = 16
	offSd0         = offPmic + pmicBlockSize // 224
	sd0BlockSize   = 8
	offTrailer     = offSd0 + sd0BlockSize // 232
)

// Build renders cfg into a fixed 236-byte block, validating every field and
// rejecting duplicate PMIC channels.
func Build(cfg Config) ([]byte, error) {
	if len(cfg.Pins) > PinCfgCount {
		return nil, errs.InvalidInput("too many pin configs: %d > %d", len(cfg.Pins), PinCfgCount)
	}
	if len(cfg.Flash) > FlashCfgCount {
		return nil, errs.InvalidInput("too many flash configs: %d > %d", len(cfg.Flash), FlashCfgCount)
	}
	for _, p := range cfg.Pins {
		if err := validatePin(p); err != nil {
			return nil, err
		}
	}
	for _, f := range cfg.Flash {
		if err := validateFlash(f); err != nil {
			return nil, err
		}
	}
	if err := validatePmic(cfg.Pmic); err != nil {
		return nil, err
	}
	if cfg.Pmic != nil && len(cfg.Pmic.Channels) > PmicChannelCount {
		return nil, errs.InvalidInput("too many pmic channels: %d > %d", len(cfg.Pmic.Channels), PmicChannelCount)
	}
	if err := validateSd0(cfg.Sd0); err != nil {
		return nil, err
	}

	block := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(block[offMagic:], MagicFlag)
	binary.LittleEndian.PutUint32(block[offVersion:], VersionFlag)

	pinMask := maskFor(len(cfg.Pins))
	binary.LittleEndian.PutUint16(block[offPinMask:], pinMask)
	flashMask := maskFor(len(cfg.Flash))
	binary.LittleEndian.PutUint16(block[offFlashMask:], flashMask)
	if cfg.Pmic != nil {
		block[offPmicMask] = 1
	}
	if cfg.Sd0 != nil {
		block[offSd0Mask] = 1
	}

	for i, p := range cfg.Pins {
		o := offPins + i*pinEntrySize
		block[o] = byte(p.Port)
		block[o+1] = p.Number
		block[o+2] = byte(p.Level)
	}

	for i, f := range cfg.Flash {
		o := offFlash + i*flashEntrySize
		block[o] = byte(f.Media)
		block[o+1] = f.DriverIndex
		block[o+2] = f.ManufacturerID
		block[o+3] = f.DeviceType
		block[o+4] = f.DensityID
		binary.LittleEndian.PutUint16(block[o+5:], f.Flags)
		binary.LittleEndian.PutUint32(block[o+7:], f.CapacityBytes)
	}

	if cfg.Pmic != nil {
		if cfg.Pmic.Disabled {
			block[offPmic] = 1
		}
		block[offPmic+1] = byte(cfg.Pmic.SclPort)
		block[offPmic+2] = cfg.Pmic.SclPin
		block[offPmic+3] = byte(cfg.Pmic.SdaPort)
		block[offPmic+4] = cfg.Pmic.SdaPin
		for _, c := range cfg.Pmic.Channels {
			block[offPmic+5+c.Index()] = 1
		}
	}

	if cfg.Sd0 != nil {
		binary.LittleEndian.PutUint32(block[offSd0:], cfg.Sd0.BaseAddress)
		block[offSd0+4] = byte(cfg.Sd0.Pinmux)
		block[offSd0+5] = byte(cfg.Sd0.InitSequence)
	}

	binary.LittleEndian.PutUint32(block[offTrailer:], TrailerMagic)

	if len(block) != BlockSize {
		return nil, errs.Protocol("internal error: built block is %d bytes, want %d", len(block), BlockSize)
	}
	return block, nil
}

// maskFor returns the bitmask covering the first n slots, or 0 when n is 0.
func maskFor(n int) uint16 {
	if n <= 0 {
		return 0
	}
	return uint16(1)<<uint(n) - 1
}

// matches reports whether the BlockSize bytes at data[offset:] look like a
// valid driver-config block: magic, version, and trailer magic all present.
func matches(data []byte, offset int) bool {
	if offset < 0 || offset+BlockSize > len(data) {
		return false
	}
	block := data[offset : offset+BlockSize]
	if binary.LittleEndian.Uint32(block[offMagic:]) != MagicFlag {
		return false
	}
	if binary.LittleEndian.Uint32(block[offVersion:]) != VersionFlag {
		return false
	}
	if binary.LittleEndian.Uint32(block[offTrailer:]) != TrailerMagic {
		return false
	}
	return true
}

// FindOffset scans every byte offset in data for a valid driver-config
// block, returning the first match.
func FindOffset(data []byte) (int, bool) {
	for off := 0; off+BlockSize <= len(data); off++ {
		if matches(data, off) {
			return off, true
		}
	}
	return 0, false
}

// ReadAt decodes the driver-config block at offset.
func ReadAt(data []byte, offset int) (Config, error) {
	if !matches(data, offset) {
		return Config{}, errs.Protocol("no valid driver-config block at offset %d", offset)
	}
	block := data[offset : offset+BlockSize]

	pinMask := binary.LittleEndian.Uint16(block[offPinMask:])
	flashMask := binary.LittleEndian.Uint16(block[offFlashMask:])

	var cfg Config
	for i := 0; i < PinCfgCount; i++ {
		if pinMask&(1<<uint(i)) == 0 {
			continue
		}
		o := offPins + i*pinEntrySize
		cfg.Pins = append(cfg.Pins, PinConfig{
			Port:   PinPort(block[o]),
			Number: block[o+1],
			Level:  PinLevel(block[o+2]),
		})
	}
	for i := 0; i < FlashCfgCount; i++ {
		if flashMask&(1<<uint(i)) == 0 {
			continue
		}
		o := offFlash + i*flashEntrySize
		cfg.Flash = append(cfg.Flash, FlashConfig{
			Media:          FlashMedia(block[o]),
			DriverIndex:    block[o+1],
			ManufacturerID: block[o+2],
			DeviceType:     block[o+3],
			DensityID:      block[o+4],
			Flags:          binary.LittleEndian.Uint16(block[o+5:]),
			CapacityBytes:  binary.LittleEndian.Uint32(block[o+7:]),
		})
	}
	if block[offPmicMask] != 0 {
		p := &PmicConfig{
			Disabled: block[offPmic] != 0,
			SclPort:  PinPort(block[offPmic+1]),
			SclPin:   block[offPmic+2],
			SdaPort:  PinPort(block[offPmic+3]),
			SdaPin:   block[offPmic+4],
		}
		for i := 0; i < PmicChannelCount; i++ {
			if block[offPmic+5+i] != 0 {
				p.Channels = append(p.Channels, PmicChannel(i))
			}
		}
		cfg.Pmic = p
	}
	if block[offSd0Mask] != 0 {
		cfg.Sd0 = &Sd0Config{
			BaseAddress:  binary.LittleEndian.Uint32(block[offSd0:]),
			Pinmux:       Sd0Pinmux(block[offSd0+4]),
			InitSequence: Sd0InitSequence(block[offSd0+5]),
		}
	}
	return cfg, nil
}

// WriteAt renders cfg and overwrites the BlockSize bytes at offset in data
// in place.
func WriteAt(data []byte, offset int, cfg Config) error {
	if offset < 0 || offset+BlockSize > len(data) {
		return errs.InvalidInput("offset %d out of range for %d-byte buffer", offset, len(data))
	}
	block, err := Build(cfg)
	if err != nil {
		return err
	}
	copy(data[offset:offset+BlockSize], block)
	return nil
}

// ClearAt zero-fills the BlockSize bytes at offset, removing any
// driver-config block.
func ClearAt(data []byte, offset int) error {
	if offset < 0 || offset+BlockSize > len(data) {
		return errs.InvalidInput("offset %d out of range for %d-byte buffer", offset, len(data))
	}
	for i := 0; i < BlockSize; i++ {
		data[offset+i] = 0
	}
	return nil
}
