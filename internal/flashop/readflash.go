package flashop

import (
	"os"
	"time"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/crcx"
	"github.com/OpenSiFli/sftool/internal/numparse"
	"github.com/OpenSiFli/sftool/internal/shell"
)

// readChunkSize is the size each raw data chunk is read in while streaming
// the flash contents to the output file.
const readChunkSize = 1024

// crcTrailerSize is the fixed width of the ASCII CRC trailer the stub
// appends after the raw data: 4 literal bytes ("CRC:" or similar prefix)
// followed by an 8-hex-digit, zero-padded checksum, for 12 total... the
// stub's actual format reserves 14 bytes to allow for a trailing CRLF.
const crcTrailerSize = 14

const startTransToken = "start_trans"

// ReadFlash reads length bytes of flash starting at address into outPath.
func (o *Ops) ReadFlash(address, length uint32, outPath string) error {
	resp, err := o.eng.SendCommand(shell.KindRead, shell.Read(address, length), o.mem)
	if err := requireOK(resp, err, "read"); err != nil {
		return err
	}

	if err := o.eng.WaitForToken([]byte(startTransToken), 1000*time.Millisecond); err != nil {
		return errs.Wrap(errs.KindTimeout, err, "waiting for start_trans marker")
	}

	f, err := os.CreateTemp("", "sftool-read-*.bin")
	if err != nil {
		return errs.IO(err, "create temp file")
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	o.pr.Begin("read", int((length+readChunkSize-1)/readChunkSize))
	remaining := int(length)
	for remaining > 0 {
		n := readChunkSize
		if n > remaining {
			n = remaining
		}
		chunk, err := o.eng.ReadExact(n, 30*time.Second)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := f.Write(chunk); err != nil {
			f.Close()
			return errs.IO(err, "write temp file")
		}
		remaining -= n
		o.pr.Step(1)
	}
	o.pr.Done()

	trailer, err := o.eng.ReadExact(crcTrailerSize, 5*time.Second)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return errs.IO(err, "seek temp file")
	}
	data := make([]byte, length)
	if _, err := f.Read(data); err != nil {
		f.Close()
		return errs.IO(err, "reread temp file")
	}
	f.Close()

	localCRC := crcx.Checksum(data)
	remoteCRC, err := parseCRCTrailer(trailer)
	if err != nil {
		return err
	}
	if localCRC != remoteCRC {
		return errs.CrcMismatch(remoteCRC, localCRC)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return errs.IO(err, "write output file %s", outPath)
	}
	return nil
}

// parseCRCTrailer extracts the 8 hex digits of the CRC trailer, skipping
// its fixed 4-byte label prefix.
func parseCRCTrailer(trailer []byte) (uint32, error) {
	if len(trailer) < 12 {
		return 0, errs.Protocol("crc trailer too short (%d bytes)", len(trailer))
	}
	hexPart := string(trailer[4:12])
	v, err := numparse.ParseUint32("0x" + hexPart)
	if err != nil {
		return 0, errs.Wrap(errs.KindProtocol, err, "parse crc trailer %q", hexPart)
	}
	return v, nil
}
