package bringup

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/frame"
	"github.com/OpenSiFli/sftool/internal/stubasset"
)

// DFU command kinds, sent as the first byte of every dfu_recv header.
const (
	dfuImageHeader byte = 1
	dfuImageBody   byte = 2
	dfuConfig      byte = 3
	dfuEnd         byte = 4
)

// dfuConfigBootPatchSig is the only config subtype in use: loading the
// boot-patch signature key ahead of the image itself.
const dfuConfigBootPatchSig byte = 10

const (
	dfuBlockSize     = 512
	dfuHeaderSize    = 32 + 296 // 328
	dfuChunkOverhead = 32 + 4   // 36
	dfuFlashID       = 9
	sigPubFile       = "58X_sig_pub.der"
)

// dfu is the BringUp strategy for lb55, which loads its RAM stub through a
// dedicated DFU-like sub-protocol (dfu_recv) instead of a raw memory write.
type dfu struct {
	log *zap.SugaredLogger
}

// NewDFU returns the family-55 DFU BringUp strategy.
func NewDFU(log *zap.SugaredLogger) chip.BringUp {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &dfu{log: log}
}

func (d *dfu) LoadAndRun(ctx context.Context, t *frame.Transport, cap chip.Capability, externalStubPath string) error {
	if err := t.ClearBuffers(); err != nil {
		return err
	}

	sig, err := stubasset.LoadSignature(sigPubFile, "")
	if err != nil {
		return err
	}
	if err := d.downloadBootPatchSigKey(t, sig); err != nil {
		return errs.Wrap(errs.KindProtocol, err, "download boot patch signature key")
	}

	stub, err := stubasset.Load(cap.Identity.StubKey(), externalStubPath)
	if err != nil {
		return err
	}
	return d.downloadImage(t, stub.Bytes, dfuFlashID)
}

func (d *dfu) sendCommand(t *frame.Transport, totalLen int, delay time.Duration) error {
	cmd := []byte{}
	cmd = append(cmd, []byte("dfu_recv ")...)
	cmd = append(cmd, []byte(strconv.Itoa(totalLen))...)
	cmd = append(cmd, '\r')
	if err := t.Write(cmd); err != nil {
		return err
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func (d *dfu) sendData(t *frame.Transport, header, data []byte, delay time.Duration) error {
	if err := t.Write(header); err != nil {
		return err
	}
	if len(data) > 0 {
		if err := t.Write(data); err != nil {
			return err
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

// waitForOKResponse scans incoming bytes for an "OK"/"Fail" window match,
// trimming the buffer once it grows past 1024 bytes so a long-running
// transfer doesn't accumulate unbounded memory.
func (d *dfu) waitForOKResponse(t *frame.Transport, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var buf []byte
	for {
		b, err := t.ReadByte(deadline)
		if err != nil {
			return err
		}
		buf = append(buf, b)
		if containsWindow(buf, []byte("OK")) {
			return nil
		}
		if containsWindow(buf, []byte("Fail")) {
			return errs.Protocol("dfu transfer reported Fail")
		}
		if len(buf) > 1024 {
			buf = buf[512:]
		}
	}
}

func containsWindow(buf, tok []byte) bool {
	if len(tok) > len(buf) {
		return false
	}
	for i := 0; i+len(tok) <= len(buf); i++ {
		if string(buf[i:i+len(tok)]) == string(tok) {
			return true
		}
	}
	return false
}

func (d *dfu) downloadBootPatchSigKey(t *frame.Transport, sig []byte) error {
	header := []byte{dfuConfig, dfuConfigBootPatchSig}
	totalLen := len(header) + len(sig)
	if err := d.sendCommand(t, totalLen, 0); err != nil {
		return err
	}
	if err := d.sendData(t, header, sig, 4*time.Millisecond); err != nil {
		return err
	}
	return d.waitForOKResponse(t, 3*time.Second)
}

func (d *dfu) downloadImage(t *frame.Transport, image []byte, flashID byte) error {
	if err := d.downloadImageHeader(t, image, flashID); err != nil {
		return err
	}
	if err := d.downloadImageBody(t, image, flashID); err != nil {
		return err
	}
	return d.downloadImageEnd(t, flashID)
}

func (d *dfu) downloadImageHeader(t *frame.Transport, image []byte, flashID byte) error {
	header := []byte{dfuImageHeader, flashID}
	totalLen := len(header) + dfuHeaderSize
	if err := d.sendCommand(t, totalLen, 10*time.Millisecond); err != nil {
		return err
	}
	end := dfuHeaderSize
	if end > len(image) {
		end = len(image)
	}
	if err := d.sendData(t, header, image[:end], 0); err != nil {
		return err
	}
	return d.waitForOKResponse(t, 3*time.Second)
}

func (d *dfu) downloadImageBody(t *frame.Transport, image []byte, flashID byte) error {
	header := []byte{dfuImageBody, flashID}
	offset := dfuHeaderSize
	step := dfuChunkOverhead + dfuBlockSize
	for offset < len(image) {
		end := offset + step
		if end > len(image) {
			end = len(image)
		}
		totalLen := len(header) + (end - offset)
		if err := d.sendCommand(t, totalLen, 10*time.Millisecond); err != nil {
			return err
		}
		if err := d.sendData(t, header, image[offset:end], 0); err != nil {
			return err
		}
		if err := d.waitForOKResponse(t, 3*time.Second); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

func (d *dfu) downloadImageEnd(t *frame.Transport, flashID byte) error {
	header := []byte{dfuEnd, flashID}
	if err := d.sendCommand(t, len(header), 10*time.Millisecond); err != nil {
		return err
	}
	if err := d.sendData(t, header, nil, 0); err != nil {
		return err
	}
	return d.waitForOKResponse(t, 5*time.Second)
}
