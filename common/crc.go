// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains the checksums and the delay capability shared by the
// sensor drivers and output devices.
package common

const (
	// crcPolynomial is x^8 + x^5 + x^4 + 1, as used by Sensirion sensors.
	crcPolynomial byte = 0x31
	crcInit       byte = 0xff
)

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Polynomial 0x31, initial value 0xff, no reflection and no
// final XOR. Sensirion devices protect every 16 bit word with it.
func CRC8(bytes []byte) byte {
	crc := crcInit
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x80) == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ crcPolynomial
			}
		}
	}
	return crc
}

// Sum8Complement returns 255 minus the sum modulo 256 of bytes. It is the
// checksum of the SHDLC framing Sensirion uses on its UART interfaces.
func Sum8Complement(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		sum += val
	}
	return 0xff - sum
}
