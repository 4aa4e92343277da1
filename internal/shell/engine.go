package shell

import (
	"time"

	"go.uber.org/zap"

	"github.com/OpenSiFli/sftool/errs"
	"github.com/OpenSiFli/sftool/internal/chip"
	"github.com/OpenSiFli/sftool/internal/frame"
)

// Kind discriminates a Command for timeout selection and the
// immediate-success short circuit a few commands use.
type Kind int

const (
	KindEraseAll Kind = iota
	KindVerify
	KindErase
	KindWriteAndErase
	KindWrite
	KindRead
	KindSoftReset
	KindSetBaud
)

// immediateOK reports whether cmd completes without the stub sending a
// response token at all: SetBaud switches the link out from under any
// response, Read is the trigger for a follow-on data phase the caller
// drives directly, and Erase returns at once without reading a reply.
func immediateOK(k Kind) bool {
	switch k {
	case KindSetBaud, KindRead, KindErase:
		return true
	default:
		return false
	}
}

const defaultChunkSize = 256
const defaultChunkDelay = 10 * time.Millisecond

// Config controls how data payloads are streamed to the stub.
type Config struct {
	// Compat selects chunked sends with a settle delay, needed by UART
	// bridges (lb55) that can't sustain large uninterrupted bursts.
	Compat     bool
	ChunkSize  int
	ChunkDelay time.Duration
}

// DefaultConfig returns the common-module defaults: non-compat, 256-byte
// chunks with a 10ms delay (used only when Compat is true).
func DefaultConfig() Config {
	return Config{ChunkSize: defaultChunkSize, ChunkDelay: defaultChunkDelay}
}

// Engine drives the shell command/response protocol over a transport.
type Engine struct {
	t      *frame.Transport
	cfg    Config
	log    *zap.SugaredLogger
}

// New returns an Engine bound to t.
func New(t *frame.Transport, cfg Config, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{t: t, cfg: cfg, log: log}
}

// WriteCommand writes cmd without waiting for any response, for callers
// that drive their own wait loop (erase_flash, erase_region).
func (e *Engine) WriteCommand(cmd Command) error {
	e.log.Debugw("shell command", "cmd", string(cmd))
	return e.t.Write([]byte(cmd))
}

func timeoutFor(k Kind, mem chip.Memory) time.Duration {
	d := 4 * time.Second
	if k == KindEraseAll {
		d = 30 * time.Second
	}
	if mem == chip.SD {
		d *= 3
	}
	return d
}

// SendCommand writes cmd and, unless it is one that completes without a
// response, waits for a response token.
func (e *Engine) SendCommand(k Kind, cmd Command, mem chip.Memory) (Response, error) {
	e.log.Debugw("shell command", "cmd", string(cmd))
	if err := e.t.Write([]byte(cmd)); err != nil {
		return 0, err
	}
	if immediateOK(k) {
		return RespOK, nil
	}
	return e.waitForResponse(timeoutFor(k, mem))
}

// SendData streams data to the stub, chunked per Config when Compat is set,
// then waits for a response token.
func (e *Engine) SendData(data []byte) (Response, error) {
	if !e.cfg.Compat {
		if err := e.t.Write(data); err != nil {
			return 0, err
		}
	} else {
		size := e.cfg.ChunkSize
		if size <= 0 {
			size = defaultChunkSize
		}
		for off := 0; off < len(data); off += size {
			end := off + size
			if end > len(data) {
				end = len(data)
			}
			if err := e.t.Write(data[off:end]); err != nil {
				return 0, err
			}
			time.Sleep(e.cfg.ChunkDelay)
		}
	}
	return e.waitForResponse(4 * time.Second)
}

// WaitForResponse waits up to timeout for any response token, independent of
// having just sent a command — used by consumer operations (erase_flash,
// erase_region) that wait on a longer, operation-specific timeout rather
// than the per-Kind default.
func (e *Engine) WaitForResponse(timeout time.Duration) (Response, error) {
	return e.waitForResponse(timeout)
}

// waitForResponse accumulates received bytes until a response token appears
// anywhere in the buffer or the timeout elapses. The buffer is never
// cleared mid-wait: filtering happens in the matcher, not by discarding
// input, since clearing the serial input buffer confuses some USB-UART
// bridge drivers.
func (e *Engine) waitForResponse(timeout time.Duration) (Response, error) {
	deadline := time.Now().Add(timeout)
	var buf []byte
	for {
		b, err := e.t.ReadByte(deadline)
		if err != nil {
			e.log.Debugw("response wait timed out", "buffer", string(buf))
			return 0, err
		}
		buf = append(buf, b)
		if r, ok := matchResponse(buf); ok {
			e.log.Debugw("response received", "response", r.String(), "buffer", string(buf))
			return r, nil
		}
	}
}

// SwitchBaud implements the atomic baud-switch contract: send the
// burn_speed command, switch the transport's own baud rate to match, then
// give the link time to settle before anything else is sent.
func (e *Engine) SwitchBaud(baud uint32, delayMs uint32) error {
	if _, err := e.SendCommand(KindSetBaud, SetBaud(baud, delayMs), chip.Nor); err != nil {
		return err
	}
	if err := e.t.SetBaud(int(baud)); err != nil {
		return err
	}
	time.Sleep(300 * time.Millisecond)
	if err := e.t.Write([]byte("\r\n")); err != nil {
		return err
	}
	time.Sleep(300 * time.Millisecond)
	return e.t.ClearBuffers()
}

// WaitForToken waits up to timeout for token to appear anywhere in the
// accumulated input, used for sentinel strings outside the OK/Fail/RX_WAIT
// response alphabet (e.g. read_flash's "start_trans" marker).
func (e *Engine) WaitForToken(token []byte, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var buf []byte
	for {
		b, err := e.t.ReadByte(deadline)
		if err != nil {
			return err
		}
		buf = append(buf, b)
		if containsSubslice(buf, token) {
			return nil
		}
	}
}

// ReadExact reads exactly n bytes within timeout.
func (e *Engine) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, n)
	for len(buf) < n {
		b, err := e.t.ReadByte(deadline)
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
	}
	return buf, nil
}

// WaitForShellPrompt writes an initial "\r\n" and retries until prompt
// appears in the accumulated buffer, re-sending "\r\n" and clearing the
// buffer (not the serial port's input queue) every retryInterval, up to
// maxRetries times.
func (e *Engine) WaitForShellPrompt(prompt []byte, retryInterval time.Duration, maxRetries int) error {
	if err := e.t.Write([]byte("\r\n")); err != nil {
		return err
	}
	var buf []byte
	retryDeadline := time.Now().Add(retryInterval)
	retries := 0
	for {
		if time.Now().After(retryDeadline) {
			if retries >= maxRetries {
				return errs.Timeout("waiting for shell prompt after %d retries", retries)
			}
			retries++
			e.log.Warnw("shell prompt wait retrying", "buffer", string(buf))
			buf = nil
			if err := e.t.Write([]byte("\r\n")); err != nil {
				return err
			}
			retryDeadline = time.Now().Add(retryInterval)
			continue
		}
		b, err := e.t.ReadByte(retryDeadline)
		if err != nil {
			continue
		}
		buf = append(buf, b)
		if containsSubslice(buf, prompt) {
			return nil
		}
	}
}
