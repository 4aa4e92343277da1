// Package bringup implements the bring-up state machine that takes a chip
// from a freshly opened serial port to a running RAM-stub shell: catching
// the reset vector, halting the core, loading and starting the stub image,
// and (for lb55) the DFU image-loading sub-protocol used in its place.
package bringup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/coredebug"
	"github.com/OpenSiFli/sftool/internal/frame"
	"github.com/OpenSiFli/sftool/internal/stubasset"
)

// stubLoadAddress is the fixed SRAM address every direct-load family starts
// its RAM stub at.
const stubLoadAddress uint32 = 0x2005A000

const (
	compatPacketSize   = 256
	normalPacketSize   = 64 * 1024
)

// direct is the BringUp strategy shared by families whose RAM stub is
// written straight into SRAM over the core-debug memory-write primitive
// (lb52, lb56, lb58).
type direct struct {
	log *zap.SugaredLogger
}

// NewDirect returns the direct-SRAM-write BringUp strategy.
func NewDirect(log *zap.SugaredLogger) chip.BringUp {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &direct{log: log}
}

func (d *direct) LoadAndRun(ctx context.Context, t *frame.Transport, cap chip.Capability, externalStubPath string) error {
	eng := coredebug.New(t, cap.Mapper)

	if err := eng.CatchReset(ctx); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "catch reset vector")
	}
	eng.SystemReset(ctx) // chip resets mid-reply; errors here are expected and ignored
	time.Sleep(10 * time.Millisecond)

	if err := eng.Halt(ctx); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "halt core after reset")
	}
	if err := eng.ReleaseResetCatch(ctx); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "release reset-vector catch")
	}
	time.Sleep(100 * time.Millisecond)

	stub, err := stubasset.Load(cap.Identity.StubKey(), externalStubPath)
	if err != nil {
		return err
	}

	packetSize := normalPacketSize
	if cap.Compat {
		packetSize = compatPacketSize
	}
	d.log.Debugw("loading stub", "identity", cap.Identity.StubKey(), "bytes", len(stub.Bytes), "packet_size", packetSize)
	for off := 0; off < len(stub.Bytes); off += packetSize {
		end := off + packetSize
		if end > len(stub.Bytes) {
			end = len(stub.Bytes)
		}
		if err := eng.WriteMemory(ctx, stubLoadAddress+uint32(off), stub.Bytes[off:end]); err != nil {
			return errs.Wrap(errs.KindIO, err, "write stub chunk at offset %d", off)
		}
	}

	if err := eng.WriteCoreRegister(ctx, coredebug.RegPC, stub.PC); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "seed PC")
	}
	if err := eng.WriteCoreRegister(ctx, coredebug.RegSP, stub.SP); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "seed SP")
	}
	if err := eng.Run(ctx); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "run stub")
	}
	return nil
}
