// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package errs defines the error taxonomy shared by every sftool subsystem.
package errs

import "fmt"

// Kind discriminates the category of a sftool error so callers can branch on
// failure class without parsing message text.
type Kind int

const (
	// KindIO covers transport-level read/write failures on the serial port.
	KindIO Kind = iota
	// KindTimeout covers a deadline elapsing before an expected response.
	KindTimeout
	// KindProtocol covers a malformed or unexpected frame/response.
	KindProtocol
	// KindInvalidInput covers caller-supplied arguments that fail validation.
	KindInvalidInput
	// KindCrcMismatch covers a CRC-32 verification failure.
	KindCrcMismatch
	// KindUnsupportedChip covers a chip family with no registered capability.
	KindUnsupportedChip
	// KindUnsupportedMemory covers a memory type with no registered stub.
	KindUnsupportedMemory
	// KindMissingAsset covers an embedded or external stub asset that could
	// not be located.
	KindMissingAsset
	// KindCanceled covers an operation stopped early by a Ctrl-C interrupt.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindInvalidInput:
		return "invalid_input"
	case KindCrcMismatch:
		return "crc_mismatch"
	case KindUnsupportedChip:
		return "unsupported_chip"
	case KindUnsupportedMemory:
		return "unsupported_memory"
	case KindMissingAsset:
		return "missing_asset"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every sftool package. It
// always carries a Kind and optionally wraps an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IO is a convenience constructor for KindIO.
func IO(cause error, format string, args ...any) *Error {
	return Wrap(KindIO, cause, format, args...)
}

// Timeout is a convenience constructor for KindTimeout.
func Timeout(format string, args ...any) *Error {
	return New(KindTimeout, format, args...)
}

// Protocol is a convenience constructor for KindProtocol.
func Protocol(format string, args ...any) *Error {
	return New(KindProtocol, format, args...)
}

// InvalidInput is a convenience constructor for KindInvalidInput.
func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

// CrcMismatch builds a KindCrcMismatch error carrying both CRC values.
func CrcMismatch(expected, actual uint32) *Error {
	return New(KindCrcMismatch, "crc mismatch: expected 0x%08X, got 0x%08X", expected, actual)
}

// UnsupportedChip is a convenience constructor for KindUnsupportedChip.
func UnsupportedChip(format string, args ...any) *Error {
	return New(KindUnsupportedChip, format, args...)
}

// UnsupportedMemory is a convenience constructor for KindUnsupportedMemory.
func UnsupportedMemory(format string, args ...any) *Error {
	return New(KindUnsupportedMemory, format, args...)
}

// MissingAsset is a convenience constructor for KindMissingAsset.
func MissingAsset(format string, args ...any) *Error {
	return New(KindMissingAsset, format, args...)
}

// Canceled is a convenience constructor for KindCanceled.
func Canceled(format string, args ...any) *Error {
	return New(KindCanceled, format, args...)
}

// Is reports whether err (or any error it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == k {
				return true
			}
			err = e.Cause
			continue
		}
		break
	}
	return false
}
