// Package crcx computes the CRC-32 variant used throughout the debug-UART
// and shell protocols: poly 0x04C11DB7, init 0, reflected in/out, xorout 0.
// This is the same parameterization the GDB remote serial protocol uses, and
// matches zappem.net/pub/debug/xcrc32's NewCRC32.
package crcx

import "zappem.net/pub/debug/xcrc32"

// Checksum returns the CRC-32 of data using the reflected, zero-init,
// zero-xorout variant this protocol family expects.
func Checksum(data []byte) uint32 {
	_, crc := xcrc32.NewCRC32(data)
	return crc
}
