// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package frame implements the debug-UART transport and its binary framing
// layer: opening the serial port, the Scan->Sync2->Header->Payload decoder
// state machine, and frame encoding.
package frame

import (
	"io"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool/errs"
)

// Transport is a serial-port connection used for both the binary debug-UART
// frames and the ASCII shell protocol. Only one operation may be in flight
// at a time; it is not safe to share across goroutines without external
// synchronization, matching the single-threaded cooperative model this tool
// runs under.
type Transport struct {
	closed int32
	lock   sync.Mutex
	port   serial.Port
	name   string
	log    *zap.SugaredLogger
}

// Open opens path at baud with 8N1 framing and deasserts RTS, matching the
// reset-line behavior the chip's bootloader expects on connect.
func Open(path string, baud int, log *zap.SugaredLogger) (*Transport, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	resolved := rewriteMacTTY(path)
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(resolved, mode)
	if err != nil {
		return nil, errs.IO(err, "open serial port %s", resolved)
	}
	if err := p.SetRTS(false); err != nil {
		p.Close()
		return nil, errs.IO(err, "deassert RTS on %s", resolved)
	}
	time.Sleep(100 * time.Millisecond)
	t := &Transport{port: p, name: resolved, log: log}
	return t, nil
}

// NewWithPort wraps an already-open serial.Port in a Transport, bypassing
// Open's device-path resolution and RTS settle delay. It exists so tests can
// substitute a fake serial.Port for real hardware.
func NewWithPort(port serial.Port, name string, log *zap.SugaredLogger) *Transport {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Transport{port: port, name: name, log: log}
}

// rewriteMacTTY rewrites a macOS /dev/tty.* path to the matching /dev/cu.*
// path: tty devices block on open waiting for carrier detect, which a USB
// serial adapter never raises.
func rewriteMacTTY(path string) string {
	if runtime.GOOS != "darwin" {
		return path
	}
	if strings.Contains(path, "/tty.") {
		return strings.Replace(path, "/tty.", "/cu.", 1)
	}
	return path
}

// SetBaud switches the transport to a new baud rate. Per the shell
// protocol's atomic baud switch contract, callers must have already sent the
// SetBaud shell command; the settle delay comes after this call (see
// shell.Engine.SwitchBaud).
func (t *Transport) SetBaud(baud int) error {
	if atomic.LoadInt32(&t.closed) != 0 {
		return errs.IO(io.ErrClosedPipe, "set baud on closed transport")
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	mode := &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	if err := t.port.SetMode(mode); err != nil {
		return errs.IO(err, "set baud %d", baud)
	}
	return nil
}

// Write writes all of p to the port.
func (t *Transport) Write(p []byte) error {
	if atomic.LoadInt32(&t.closed) != 0 {
		return errs.IO(io.ErrClosedPipe, "write to closed transport")
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	n, err := t.port.Write(p)
	if err != nil {
		return errs.IO(err, "write %d bytes", len(p))
	}
	if n != len(p) {
		return errs.IO(io.ErrShortWrite, "short write: %d of %d bytes", n, len(p))
	}
	return nil
}

// ReadByte blocks until one byte is available or deadline elapses, returning
// a KindTimeout error in the latter case. The underlying port read timeout
// is kept short (poll granularity) so the deadline is honored promptly
// rather than after one long blocking read.
func (t *Transport) ReadByte(deadline time.Time) (byte, error) {
	if atomic.LoadInt32(&t.closed) != 0 {
		return 0, errs.IO(io.ErrClosedPipe, "read from closed transport")
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.port.SetReadTimeout(75 * time.Millisecond); err != nil {
		return 0, errs.IO(err, "set read timeout")
	}
	buf := make([]byte, 1)
	for {
		if time.Now().After(deadline) {
			return 0, errs.Timeout("no byte available before deadline on %s", t.name)
		}
		n, err := t.port.Read(buf)
		if err != nil {
			return 0, errs.IO(err, "read byte")
		}
		if n == 1 {
			return buf[0], nil
		}
		// Zero bytes means the poll timed out; loop and recheck the deadline.
	}
}

// PulseReset pulses the RTS line true then false, each held for 100ms, the
// hardware-reset sequence the chip's boot ROM expects before a fresh
// connect attempt.
func (t *Transport) PulseReset() error {
	if atomic.LoadInt32(&t.closed) != 0 {
		return errs.IO(io.ErrClosedPipe, "pulse reset on closed transport")
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if err := t.port.SetRTS(true); err != nil {
		return errs.IO(err, "assert RTS")
	}
	time.Sleep(100 * time.Millisecond)
	if err := t.port.SetRTS(false); err != nil {
		return errs.IO(err, "deassert RTS")
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// ClearBuffers discards any buffered but unread input. Unsent output is left
// in place.
func (t *Transport) ClearBuffers() error {
	if atomic.LoadInt32(&t.closed) != 0 {
		return nil
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.port.ResetInputBuffer()
}

// Close closes the underlying port. Safe to call more than once.
func (t *Transport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.port.Close()
}
