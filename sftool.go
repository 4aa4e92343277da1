// Package sftool flashes SiFli SF32LB5x microcontrollers over their
// debug-UART and RAM-stub shell: catching the reset vector, loading and
// running a RAM stub, then writing, reading, verifying, and erasing flash
// through the stub's ASCII command shell.
package sftool

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/coredebug"
	"github.com/OpenSiFli/sftool/internal/flashop"
	"github.com/OpenSiFli/sftool/internal/frame"
	"github.com/OpenSiFli/sftool/internal/shell"
)

// Reexported so callers only need to import this one package for ordinary
// use.
type (
	Family           = chip.Family
	Memory           = chip.Memory
	WriteFlashFile   = flashop.WriteFlashFile
	WriteOptions     = flashop.WriteOptions
	ProgressReporter = flashop.ProgressReporter
)

const (
	LB52 = chip.LB52
	LB55 = chip.LB55
	LB56 = chip.LB56
	LB58 = chip.LB58

	Nor  = chip.Nor
	Nand = chip.Nand
	SD   = chip.SD
)

// ResetBefore selects what, if anything, happens to the chip before sftool
// attempts to take control of it.
type ResetBefore int

const (
	// ResetNone assumes the chip is already halted/reachable.
	ResetNone ResetBefore = iota
	// ResetSoft sends a shell soft-reset command first (only meaningful if
	// the stub is already running from a previous session).
	ResetSoft
	// ResetDefault pulses the RTS line to hardware-reset the chip before
	// connecting, the normal case for a cold flashing session.
	ResetDefault
)

// Options configures a new Tool.
type Options struct {
	Port             string
	Baud             int
	Family           Family
	Memory           Memory
	Before           ResetBefore
	ConnectAttempts  int // <= 0 means retry indefinitely
	Compat           bool
	ExternalStubPath string
	Progress         ProgressReporter
	Logger           *zap.Logger
}

// Tool is one open connection to a chip, ready to run flash operations
// against it. It is not safe for concurrent use: every operation is
// synchronous and blocking, matching the single-threaded cooperative model
// the underlying protocol requires.
type Tool struct {
	opts  Options
	t     *frame.Transport
	eng   *shell.Engine
	ops   *flashop.Ops
	cap   chip.Capability
	log   *zap.SugaredLogger
}

// Open opens the serial port and performs the full bring-up sequence:
// optional reset, reset-vector catch, stub load, and shell-prompt
// handshake. The returned Tool is ready for flash operations.
func Open(ctx context.Context, opts Options) (*Tool, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Sugar()

	id := chip.Identity{Family: opts.Family, Memory: opts.Memory}
	cap, ok := chip.Lookup(id)
	if !ok {
		return nil, errs.UnsupportedChip("no capability registered for %s/%s", opts.Family, opts.Memory)
	}
	if opts.Compat {
		cap.Compat = true
	}

	baud := opts.Baud
	if baud == 0 {
		baud = 1_000_000
	}
	t, err := frame.Open(opts.Port, baud, log)
	if err != nil {
		return nil, err
	}

	tool := &Tool{opts: opts, t: t, cap: cap, log: log}

	if err := tool.connect(ctx); err != nil {
		t.Close()
		return nil, err
	}

	if err := cap.BringUp.LoadAndRun(ctx, t, cap, opts.ExternalStubPath); err != nil {
		t.Close()
		return nil, err
	}

	shellCfg := shell.DefaultConfig()
	shellCfg.Compat = cap.Compat
	eng := shell.New(t, shellCfg, log)
	if err := eng.WaitForShellPrompt([]byte(">"), cap.Timeouts.ShellWait, 10); err != nil {
		t.Close()
		return nil, err
	}

	tool.eng = eng
	tool.ops = flashop.New(eng, opts.Memory, log, opts.Progress)
	return tool, nil
}

// connect pulses reset (when requested) and repeatedly probes the core
// until it responds or ConnectAttempts is exhausted.
func (tool *Tool) connect(ctx context.Context) error {
	attempts := tool.opts.ConnectAttempts
	infinite := attempts <= 0
	eng := coredebug.New(tool.t, tool.cap.Mapper)

	if tool.opts.Before == ResetSoft {
		if err := tool.t.Write([]byte(shell.SoftReset())); err != nil {
			return err
		}
	}

	for i := 0; infinite || i < attempts; i++ {
		if tool.opts.Before == ResetDefault {
			if err := tool.t.PulseReset(); err != nil {
				return err
			}
		}
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := eng.ReadWord(probeCtx, coredebug.AddrDHCSR)
		cancel()
		if err == nil {
			return nil
		}
		tool.log.Debugw("connect attempt failed, retrying", "attempt", i+1, "err", err)
		time.Sleep(500 * time.Millisecond)
	}
	return errs.Timeout("failed to connect to the chip after %d attempts", attempts)
}

// Close releases the serial port.
func (tool *Tool) Close() error {
	return tool.t.Close()
}

// WriteFlash writes files to flash per opts.
func (tool *Tool) WriteFlash(files []WriteFlashFile, opts WriteOptions) error {
	return tool.ops.WriteFlash(files, opts)
}

// ReadFlash reads length bytes of flash at address into outPath.
func (tool *Tool) ReadFlash(address, length uint32, outPath string) error {
	return tool.ops.ReadFlash(address, length, outPath)
}

// EraseFlash erases the entire chip.
func (tool *Tool) EraseFlash() error {
	return tool.ops.EraseFlash()
}

// EraseRegion erases length bytes starting at address.
func (tool *Tool) EraseRegion(address, length uint32) error {
	return tool.ops.EraseRegion(address, length)
}

// SoftReset resets the chip back into normal firmware execution.
func (tool *Tool) SoftReset() error {
	return tool.ops.SoftReset()
}

// SetBaud switches the link's baud rate.
func (tool *Tool) SetBaud(baud uint32) error {
	return tool.ops.SetBaud(baud)
}
