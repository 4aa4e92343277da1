package stubconfig

import (
	"bytes"
	"testing"
)

func sampleConfig() Config {
	return Config{
		Pins: []PinConfig{
			{Port: PinPortA, Number: 3, Level: PinLevelHigh},
			{Port: PinPortB, Number: 9, Level: PinLevelLow},
		},
		Flash: []FlashConfig{
			{Media: FlashMediaNor, DriverIndex: 1, ManufacturerID: 0xEF, DeviceType: 0x40, DensityID: 0x18, Flags: 0x0001, CapacityBytes: 16 * 1024 * 1024},
		},
		Pmic: &PmicConfig{
			Disabled: false,
			SclPort:  PinPortA,
			SclPin:   10,
			SdaPort:  PinPortA,
			SdaPin:   11,
			Channels: []PmicChannel{PmicLvSw1001, PmicLdo33},
		},
		Sd0: &Sd0Config{BaseAddress: 0x50000000, Pinmux: Sd0ClkPa34OrPa09, InitSequence: Sd0SdThenEmmc},
	}
}

func TestBuildRejectsDuplicatePmicChannel(t *testing.T) {
	cfg := sampleConfig()
	cfg.Pmic.Channels = []PmicChannel{PmicLdo33, PmicLdo33}
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected an error for duplicate pmic channels")
	}
}

func TestDriverConfigRoundTrip(t *testing.T) {
	cfg := sampleConfig()
	block, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(block) != BlockSize {
		t.Fatalf("block size = %d, want %d", len(block), BlockSize)
	}

	image := make([]byte, 4096)
	copy(image[1000:], block)

	off, ok := FindOffset(image)
	if !ok || off != 1000 {
		t.Fatalf("FindOffset = (%d, %v), want (1000, true)", off, ok)
	}

	got, err := ReadAt(image, off)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if len(got.Pins) != len(cfg.Pins) || len(got.Flash) != len(cfg.Flash) {
		t.Fatalf("round trip slot count mismatch: got %+v", got)
	}
	if got.Pins[0] != cfg.Pins[0] || got.Pins[1] != cfg.Pins[1] {
		t.Fatalf("pin config mismatch: got %+v, want %+v", got.Pins, cfg.Pins)
	}
	if got.Flash[0] != cfg.Flash[0] {
		t.Fatalf("flash config mismatch: got %+v, want %+v", got.Flash[0], cfg.Flash[0])
	}
	if got.Pmic == nil || got.Sd0 == nil {
		t.Fatalf("expected pmic and sd0 blocks to round-trip, got %+v", got)
	}
	if *got.Sd0 != *cfg.Sd0 {
		t.Fatalf("sd0 config mismatch: got %+v, want %+v", got.Sd0, cfg.Sd0)
	}
	if got.Pmic.Disabled != cfg.Pmic.Disabled {
		t.Fatalf("pmic disabled mismatch: got %v, want %v", got.Pmic.Disabled, cfg.Pmic.Disabled)
	}
}

// TestFixedOffsetsMatchLayout pins the block's byte offsets directly,
// independent of Build/ReadAt, so the codec can't drift away from the
// pin-table-at-16/flash-table-at-64/pmic-at-208/sd0-at-224/trailer-at-232
// layout while still passing a self-consistent round trip.
func TestFixedOffsetsMatchLayout(t *testing.T) {
	if offPins != 16 {
		t.Fatalf("offPins = %d, want 16", offPins)
	}
	if offFlash != 64 {
		t.Fatalf("offFlash = %d, want 64", offFlash)
	}
	if offPmic != 208 {
		t.Fatalf("offPmic = %d, want 208", offPmic)
	}
	if offSd0 != 224 {
		t.Fatalf("offSd0 = %d, want 224", offSd0)
	}
	if offTrailer != 232 {
		t.Fatalf("offTrailer = %d, want 232", offTrailer)
	}

	cfg := sampleConfig()
	block, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Pin slot 0 lives at byte 16: port, number, level, then one pad byte.
	if block[16] != byte(cfg.Pins[0].Port) || block[17] != cfg.Pins[0].Number || block[18] != byte(cfg.Pins[0].Level) {
		t.Fatalf("pin slot 0 not at offset 16: %v", block[16:20])
	}
	// Flash slot 0 lives at byte 64.
	if block[64] != byte(cfg.Flash[0].Media) {
		t.Fatalf("flash slot 0 not at offset 64: %v", block[64:76])
	}
	// PMIC channel presence bytes sit at offset 208+5..208+14.
	if block[208+5+PmicLvSw1001.Index()] != 1 {
		t.Fatalf("pmic channel presence byte missing at expected offset")
	}
}

func TestClearAtRemovesBlock(t *testing.T) {
	cfg := sampleConfig()
	block, _ := Build(cfg)
	image := make([]byte, BlockSize)
	copy(image, block)

	if err := ClearAt(image, 0); err != nil {
		t.Fatalf("ClearAt: %v", err)
	}
	if _, ok := FindOffset(image); ok {
		t.Fatalf("expected no block to be found after clearing")
	}
	if !bytes.Equal(image, make([]byte, BlockSize)) {
		t.Fatalf("expected cleared block to be all zero")
	}
}
