// Package coredebug implements the ARM Cortex-M core-debug register
// primitives (DHCSR/DCRSR/DCRDR/DEMCR/AIRCR) on top of the debug-UART
// frame transport: word read/write, unaligned memory write, core register
// access, and halt/step/run control.
package coredebug

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/frame"
)

// Memory-mapped core-debug register addresses, per the ARMv7-M architecture
// reference manual.
const (
	AddrDHCSR uint32 = 0xE000EDF0
	AddrDCRSR uint32 = 0xE000EDF4
	AddrDCRDR uint32 = 0xE000EDF8
	AddrDEMCR uint32 = 0xE000EDFC
	AddrAIRCR uint32 = 0xE000ED0C
)

// DHCSR bit positions.
const (
	dhcsrDebugKey   = 0xA05F << 16
	dhcsrCDebugEn   = 1 << 0
	dhcsrCHalt      = 1 << 1
	dhcsrCStep      = 1 << 2
	dhcsrCMaskInts  = 1 << 3
	dhcsrSRegRdy    = 1 << 16
	dhcsrSHalt      = 1 << 17
)

// DEMCR.VC_CORERESET: catch the core reset vector so the chip halts instead
// of running firmware immediately out of reset.
const demcrVcCoreReset = 1 << 0

// AIRCR bit positions and its write key.
const (
	aircrVectKey      = 0x05FA << 16
	aircrSysResetReq  = 1 << 2
)

// DCRSR bit positions.
const dcrsrRegWnR = 1 << 16

// Core register selector IDs used with DCRSR/DCRDR, per the architecture's
// register numbering (R0-R12 are 0-12).
const (
	RegSP = 13
	RegLR = 14
	RegPC = 15
)

const (
	opcodeReadWord  byte = 0x01
	opcodeWriteWord byte = 0x02
	opcodeReadMem   byte = 0x03
	opcodeWriteMem  byte = 0x04
)

const debugChannel byte = 0x10

// Engine drives the core-debug register primitives over a transport for one
// chip identity's address-mapping rules.
type Engine struct {
	t      *frame.Transport
	mapper chip.AddressMapper
}

// New returns an Engine bound to t, applying mapper's address translation to
// every access.
func New(t *frame.Transport, mapper chip.AddressMapper) *Engine {
	if mapper == nil {
		mapper = chip.DefaultMapper
	}
	return &Engine{t: t, mapper: mapper}
}

func deadlineFrom(ctx context.Context, d time.Duration) time.Time {
	deadline := time.Now().Add(d)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}

func (e *Engine) exchange(ctx context.Context, opcode byte, addr uint32, data []byte, timeout time.Duration) ([]byte, error) {
	addr = e.mapper.MapAddress(addr)
	payload := make([]byte, 0, 9+len(data))
	payload = append(payload, opcode, 0)
	var addrBuf [4]byte
	binary.LittleEndian.PutUint32(addrBuf[:], addr)
	payload = append(payload, addrBuf[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	payload = append(payload, lenBuf[:]...)
	payload = append(payload, data...)

	if err := frame.Send(e.t, frame.Frame{Channel: debugChannel, Payload: payload}); err != nil {
		return nil, err
	}
	resp, err := frame.Receive(e.t, deadlineFrom(ctx, timeout))
	if err != nil {
		return nil, err
	}
	if len(resp.Payload) < 2 {
		return nil, errs.Protocol("debug response too short (%d bytes)", len(resp.Payload))
	}
	// The leading response opcode byte must echo the command and the status
	// byte after it must be zero; the bytes after those are returned
	// unchecked.
	if resp.Payload[0] != opcode {
		return nil, errs.Protocol("debug response opcode mismatch: sent 0x%02X, got 0x%02X", opcode, resp.Payload[0])
	}
	status := resp.Payload[1]
	if status != 0 {
		return nil, errs.Protocol("debug command 0x%02X failed with status 0x%02X", opcode, status)
	}
	return resp.Payload[2:], nil
}

// ReadWord reads one 32-bit word at addr.
func (e *Engine) ReadWord(ctx context.Context, addr uint32) (uint32, error) {
	out, err := e.exchange(ctx, opcodeReadWord, addr, nil, 4*time.Second)
	if err != nil {
		return 0, err
	}
	if len(out) < 4 {
		return 0, errs.Protocol("read_word response too short")
	}
	return binary.LittleEndian.Uint32(out), nil
}

// WriteWord writes one 32-bit word to addr.
func (e *Engine) WriteWord(ctx context.Context, addr, value uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	_, err := e.exchange(ctx, opcodeWriteWord, addr, buf[:], 4*time.Second)
	return err
}

// WriteMemory writes an arbitrary byte range starting at addr, handling
// unaligned leading and trailing bytes with a read-modify-write of the
// straddled word so the device never receives a misaligned word access.
func (e *Engine) WriteMemory(ctx context.Context, addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	cur := addr
	remaining := data

	if off := cur % 4; off != 0 {
		word, err := e.ReadWord(ctx, cur-off)
		if err != nil {
			return err
		}
		var wordBuf [4]byte
		binary.LittleEndian.PutUint32(wordBuf[:], word)
		n := copy(wordBuf[off:], remaining)
		if err := e.WriteWord(ctx, cur-off, binary.LittleEndian.Uint32(wordBuf[:])); err != nil {
			return err
		}
		cur += uint32(n)
		remaining = remaining[n:]
	}

	fullWords := len(remaining) / 4 * 4
	if fullWords > 0 {
		if _, err := e.exchange(ctx, opcodeWriteMem, cur, remaining[:fullWords], 10*time.Second); err != nil {
			return err
		}
		cur += uint32(fullWords)
		remaining = remaining[fullWords:]
	}

	if len(remaining) > 0 {
		word, err := e.ReadWord(ctx, cur)
		if err != nil {
			return err
		}
		var wordBuf [4]byte
		binary.LittleEndian.PutUint32(wordBuf[:], word)
		copy(wordBuf[:], remaining)
		if err := e.WriteWord(ctx, cur, binary.LittleEndian.Uint32(wordBuf[:])); err != nil {
			return err
		}
	}
	return nil
}

// WriteCoreRegister writes value into core register regSel (one of the
// Reg* constants, or 0-12 for R0-R12) by staging it in DCRDR then issuing a
// DCRSR write with REGWnR set, per the architecture's register transfer
// sequence. A short settle delay follows, matching the chip's own firmware
// expectations.
func (e *Engine) WriteCoreRegister(ctx context.Context, regSel uint32, value uint32) error {
	if err := e.WriteWord(ctx, AddrDCRDR, value); err != nil {
		return err
	}
	if err := e.WriteWord(ctx, AddrDCRSR, regSel|dcrsrRegWnR); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// ReadCoreRegister reads core register regSel via a DCRSR read request
// followed by a DCRDR read.
func (e *Engine) ReadCoreRegister(ctx context.Context, regSel uint32) (uint32, error) {
	if err := e.WriteWord(ctx, AddrDCRSR, regSel); err != nil {
		return 0, err
	}
	return e.ReadWord(ctx, AddrDCRDR)
}

// CatchReset sets DEMCR.VC_CORERESET so the next reset halts the core
// instead of running firmware.
func (e *Engine) CatchReset(ctx context.Context) error {
	demcr, err := e.ReadWord(ctx, AddrDEMCR)
	if err != nil {
		return err
	}
	return e.WriteWord(ctx, AddrDEMCR, demcr|demcrVcCoreReset)
}

// ReleaseResetCatch clears DEMCR.VC_CORERESET.
func (e *Engine) ReleaseResetCatch(ctx context.Context) error {
	demcr, err := e.ReadWord(ctx, AddrDEMCR)
	if err != nil {
		return err
	}
	return e.WriteWord(ctx, AddrDEMCR, demcr&^uint32(demcrVcCoreReset))
}

// SystemReset pulses AIRCR.SYSRESETREQ. The chip resets mid-reply, so any
// transport error here is swallowed rather than surfaced.
func (e *Engine) SystemReset(ctx context.Context) {
	_ = e.WriteWord(ctx, AddrAIRCR, aircrVectKey|aircrSysResetReq)
	time.Sleep(10 * time.Millisecond)
}

// Halt sets DHCSR.C_HALT (with the debug key and C_DEBUGEN) to stop the core.
func (e *Engine) Halt(ctx context.Context) error {
	if err := e.WriteWord(ctx, AddrDHCSR, dhcsrDebugKey|dhcsrCDebugEn|dhcsrCHalt); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Step sets DHCSR.C_STEP (with C_MASKINTS, so pending interrupts don't fire
// mid-step) to single-step the halted core one instruction.
func (e *Engine) Step(ctx context.Context) error {
	if err := e.WriteWord(ctx, AddrDHCSR, dhcsrDebugKey|dhcsrCDebugEn|dhcsrCMaskInts|dhcsrCStep); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Run steps the core once before clearing DHCSR.C_HALT, matching the
// bootloader's required resume sequence, then resumes free execution.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Step(ctx); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return e.WriteWord(ctx, AddrDHCSR, dhcsrDebugKey|dhcsrCDebugEn)
}
