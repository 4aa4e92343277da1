// Package stubconfig implements the 236-byte driver-config block embedded
// in ELF/AXF stub images: its typed pin/flash/PMIC/SD0 fields, the
// magic/version/trailer-validated scan for its offset inside an image, and
// the read/write/clear codec.
package stubconfig

import "github.com/OpenSiFli/sftool/errs"

// PinPort identifies which GPIO port bank a pin belongs to.
type PinPort uint8

const (
	PinPortA PinPort = iota
	PinPortB
	PinPortBR
)

func (p PinPort) valid() bool { return p <= PinPortBR }

// PinLevel is the pin's configured idle/drive level.
type PinLevel uint8

const (
	PinLevelLow PinLevel = iota
	PinLevelHigh
)

func (l PinLevel) valid() bool { return l <= PinLevelHigh }

// PinConfig configures one GPIO pin slot.
type PinConfig struct {
	Port   PinPort
	Number uint8
	Level  PinLevel
}

// FlashMedia identifies the flash technology a FlashConfig slot drives.
type FlashMedia uint8

const (
	FlashMediaNor FlashMedia = iota
	FlashMediaNand
)

func (m FlashMedia) valid() bool { return m <= FlashMediaNand }

// FlashConfig configures one flash device slot.
type FlashConfig struct {
	Media          FlashMedia
	DriverIndex    uint8
	ManufacturerID uint8
	DeviceType     uint8
	DensityID      uint8
	Flags          uint16
	CapacityBytes  uint32
}

// PmicChannel identifies one of the ten fixed PMIC regulator channels.
type PmicChannel uint8

const (
	PmicLvSw1001 PmicChannel = iota
	PmicLvSw1002
	PmicLvSw1003
	PmicLvSw1004
	PmicLvSw1005
	PmicHvSw1501
	PmicHvSw1502
	PmicLdo33
	PmicLdo30
	PmicLdo28
)

// Index returns the channel's fixed wire-position index (0-9), matching the
// order channels are declared above.
func (c PmicChannel) Index() int { return int(c) }

func (c PmicChannel) valid() bool { return c <= PmicLdo28 }

// PmicConfig configures the PMIC I2C bus and which channels are enabled.
type PmicConfig struct {
	// Disabled turns off PMIC management entirely; when true the I2C
	// pins and channel list below are not driven.
	Disabled bool
	SclPort  PinPort
	SclPin   uint8
	SdaPort  PinPort
	SdaPin   uint8
	Channels []PmicChannel
}

// Sd0Pinmux selects which physical pin pair the sd0 clock line is routed to.
type Sd0Pinmux uint8

const (
	Sd0ClkPa34OrPa09 Sd0Pinmux = iota
	Sd0ClkPa60OrPa39
)

func (p Sd0Pinmux) valid() bool { return p <= Sd0ClkPa60OrPa39 }

// Sd0InitSequence selects the boot probe order between eMMC and SD.
type Sd0InitSequence uint8

const (
	Sd0EmmcThenSd Sd0InitSequence = iota
	Sd0SdThenEmmc
)

func (s Sd0InitSequence) valid() bool { return s <= Sd0SdThenEmmc }

// Sd0Config configures the sd0 controller's pinmux and probe order.
type Sd0Config struct {
	BaseAddress  uint32
	Pinmux       Sd0Pinmux
	InitSequence Sd0InitSequence
}

// Config is the fully decoded driver-config block.
type Config struct {
	Pins  []PinConfig
	Flash []FlashConfig
	Pmic  *PmicConfig
	Sd0   *Sd0Config
}

const (
	// MagicFlag is the block's leading magic value.
	MagicFlag uint32 = 0xABCDDBCA
	// VersionFlag is the block's fixed version value.
	VersionFlag uint32 = 0xFFFF0003
	// TrailerMagic repeats MagicFlag at the end of the block as a
	// corruption check independent of the header.
	TrailerMagic = MagicFlag

	PinCfgCount   = 12
	FlashCfgCount = 12
	PmicChannelCount = 10

	// BlockSize is the fixed on-disk size of a driver-config block.
	BlockSize = 236
)

func validatePin(p PinConfig) error {
	if !p.Port.valid() {
		return errs.InvalidInput("pin config: invalid port %d", p.Port)
	}
	if !p.Level.valid() {
		return errs.InvalidInput("pin config: invalid level %d", p.Level)
	}
	return nil
}

func validateFlash(f FlashConfig) error {
	if !f.Media.valid() {
		return errs.InvalidInput("flash config: invalid media %d", f.Media)
	}
	return nil
}

func validatePmic(p *PmicConfig) error {
	if p == nil {
		return nil
	}
	if !p.SclPort.valid() || !p.SdaPort.valid() {
		return errs.InvalidInput("pmic config: invalid i2c port")
	}
	seen := make(map[PmicChannel]bool, len(p.Channels))
	for _, c := range p.Channels {
		if !c.valid() {
			return errs.InvalidInput("pmic config: invalid channel %d", c)
		}
		if seen[c] {
			return errs.InvalidInput("pmic config: duplicate channel %d", c)
		}
		seen[c] = true
	}
	return nil
}

func validateSd0(s *Sd0Config) error {
	if s == nil {
		return nil
	}
	if !s.Pinmux.valid() {
		return errs.InvalidInput("sd0 config: invalid pinmux %d", s.Pinmux)
	}
	if !s.InitSequence.valid() {
		return errs.InvalidInput("sd0 config: invalid init sequence %d", s.InitSequence)
	}
	return nil
}
