// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import "fmt"

// TransportError is returned when the bus fails a transaction, for example
// when the device does not acknowledge. It is never retried by the drivers.
type TransportError struct {
	Cmd uint16
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sensirion: cmd 0x%04x: %v", e.Cmd, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when a response does not have the length the
// command defines.
type ProtocolError struct {
	Cmd  uint16
	Want int
	Got  int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("sensirion: cmd 0x%04x: response length %d, expected %d", e.Cmd, e.Got, e.Want)
}

// ChecksumError is returned when a response word does not match its CRC.
// Only produced when verification is enabled.
type ChecksumError struct {
	// Index of the 16 bit word within the response.
	Word int
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sensirion: word %d: invalid crc 0x%02x, expected 0x%02x", e.Word, e.Got, e.Want)
}
