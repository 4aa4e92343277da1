// Package flashop implements the consumer-facing flash operations: writing,
// reading, and erasing flash through the RAM-stub shell protocol.
package flashop

import (
	"github.com/maruel/interrupt"
	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/crcx"
	"github.com/OpenSiFli/sftool/internal/shell"
)

// regionMask groups flash addresses into the 16MiB regions burn_erase_all
// operates on.
const regionMask = 0xFF000000

// ProgressReporter receives step/byte progress during a long-running
// operation. The core never renders a progress bar itself; cmd/sftool
// supplies the concrete implementation.
type ProgressReporter interface {
	Begin(label string, total int)
	Step(n int)
	Done()
}

type noopProgress struct{}

func (noopProgress) Begin(string, int) {}
func (noopProgress) Step(int)          {}
func (noopProgress) Done()             {}

// NoopProgress is a ProgressReporter that does nothing, used when the caller
// supplies none.
var NoopProgress ProgressReporter = noopProgress{}

// WriteFlashFile is one ingested object ready to be written at Address.
type WriteFlashFile struct {
	Address uint32
	Data    []byte
}

// WriteOptions controls how WriteFlash streams data to the stub.
type WriteOptions struct {
	// EraseAll erases every 16MiB region the files touch up front and
	// writes unconditionally (Write), instead of the default incremental
	// policy that verifies each file first and only erases+writes when the
	// verify fails.
	EraseAll bool
	// Verify re-reads and CRC-checks each file after writing it.
	Verify bool
	// PacketSize is the chunk size used by the full-erase write path; the
	// incremental path always streams in 128KiB chunks.
	PacketSize int
}

const incrementalChunkSize = 128 * 1024

func defaultPacketSize(opts WriteOptions) int {
	if opts.PacketSize > 0 {
		return opts.PacketSize
	}
	return incrementalChunkSize
}

// Ops bundles a shell engine with the chip identity/capability it is bound
// to, exposing the consumer-facing flash operations.
type Ops struct {
	eng *shell.Engine
	mem chip.Memory
	log *zap.SugaredLogger
	pr  ProgressReporter
}

// New returns an Ops driving eng for the given memory type.
func New(eng *shell.Engine, mem chip.Memory, log *zap.SugaredLogger, pr ProgressReporter) *Ops {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if pr == nil {
		pr = NoopProgress
	}
	return &Ops{eng: eng, mem: mem, log: log, pr: pr}
}

// checkCanceled reports a canceled error once Ctrl-C has been caught,
// letting WriteFlash/erase loops stop between files/regions/chunks instead
// of mid-command, where the stub would be left waiting for more data.
func checkCanceled() error {
	if interrupt.IsSet() {
		return errs.Canceled("operation interrupted")
	}
	return nil
}

func requireOK(resp shell.Response, err error, what string) error {
	if err != nil {
		return err
	}
	if resp != shell.RespOK {
		return errs.Protocol("%s: unexpected response %s", what, resp)
	}
	return nil
}

// WriteFlash writes every file in files, following opts' erase policy.
func (o *Ops) WriteFlash(files []WriteFlashFile, opts WriteOptions) error {
	if opts.EraseAll {
		if err := o.eraseAllRegions(files); err != nil {
			return err
		}
		for _, f := range files {
			if err := checkCanceled(); err != nil {
				return err
			}
			if err := o.writeFileFullErase(f, defaultPacketSize(opts)); err != nil {
				return err
			}
			if opts.Verify {
				if err := o.verifyFile(f); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, f := range files {
		if err := checkCanceled(); err != nil {
			return err
		}
		if err := o.writeFileIncremental(f); err != nil {
			return err
		}
		if opts.Verify {
			if err := o.verifyFile(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// eraseAllRegions sends one EraseAll command per distinct 16MiB region the
// files touch.
func (o *Ops) eraseAllRegions(files []WriteFlashFile) error {
	seen := map[uint32]bool{}
	var regions []uint32
	for _, f := range files {
		r := f.Address & regionMask
		if !seen[r] {
			seen[r] = true
			regions = append(regions, r)
		}
	}
	o.pr.Begin("erase", len(regions))
	defer o.pr.Done()
	for _, r := range regions {
		if err := checkCanceled(); err != nil {
			return err
		}
		resp, err := o.eng.SendCommand(shell.KindEraseAll, shell.EraseAll(r), o.mem)
		if err := requireOK(resp, err, "erase_all"); err != nil {
			return err
		}
		o.pr.Step(1)
	}
	return nil
}

// verifyFile sends a Verify command for f and fails unless the stub reports
// OK.
func (o *Ops) verifyFile(f WriteFlashFile) error {
	crc := crcx.Checksum(f.Data)
	resp, err := o.eng.SendCommand(shell.KindVerify, shell.Verify(f.Address, uint32(len(f.Data)), crc), o.mem)
	return requireOK(resp, err, "verify")
}

// writeFileIncremental verifies f first and skips the write entirely when
// the stub already holds matching data; otherwise it erases-and-writes.
func (o *Ops) writeFileIncremental(f WriteFlashFile) error {
	crc := crcx.Checksum(f.Data)
	resp, err := o.eng.SendCommand(shell.KindVerify, shell.Verify(f.Address, uint32(len(f.Data)), crc), o.mem)
	if err != nil {
		return err
	}
	if resp == shell.RespOK {
		o.log.Debugw("skipping unchanged region", "address", f.Address, "len", len(f.Data))
		return nil
	}

	resp, err = o.eng.SendCommand(shell.KindWriteAndErase, shell.WriteAndErase(f.Address, uint32(len(f.Data))), o.mem)
	if err := requireOK(resp, err, "write_and_erase"); err != nil {
		return err
	}
	return o.streamChunked(f.Data, incrementalChunkSize)
}

// writeFileFullErase streams f directly via repeated Write commands at
// packetSize-sized offsets, assuming the target region was already erased.
func (o *Ops) writeFileFullErase(f WriteFlashFile, packetSize int) error {
	o.pr.Begin("write", (len(f.Data)+packetSize-1)/packetSize)
	defer o.pr.Done()
	addr := f.Address
	for off := 0; off < len(f.Data); off += packetSize {
		if err := checkCanceled(); err != nil {
			return err
		}
		end := off + packetSize
		if end > len(f.Data) {
			end = len(f.Data)
		}
		chunk := f.Data[off:end]
		resp, err := o.eng.SendCommand(shell.KindWrite, shell.Write(addr, uint32(len(chunk))), o.mem)
		if err := requireOK(resp, err, "write"); err != nil {
			return err
		}
		resp, err = o.eng.SendData(chunk)
		if err := requireOK(resp, err, "write data"); err != nil {
			return err
		}
		addr += uint32(len(chunk))
		o.pr.Step(1)
	}
	return nil
}

// streamChunked sends data in chunkSize pieces, waiting for OK/RX_WAIT after
// each piece and retrying on RX_WAIT backpressure.
func (o *Ops) streamChunked(data []byte, chunkSize int) error {
	o.pr.Begin("write", (len(data)+chunkSize-1)/chunkSize)
	defer o.pr.Done()
	for off := 0; off < len(data); off += chunkSize {
		if err := checkCanceled(); err != nil {
			return err
		}
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		for {
			resp, err := o.eng.SendData(chunk)
			if err != nil {
				return err
			}
			if resp == shell.RespRxWait {
				continue
			}
			if resp != shell.RespOK {
				return errs.Protocol("write stream: unexpected response %s", resp)
			}
			break
		}
		o.pr.Step(1)
	}
	return nil
}
