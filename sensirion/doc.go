// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensirion implements the command framing shared by Sensirion I2C
// sensors.
//
// A command is a 16 bit big-endian word, optionally followed by 16 bit
// argument words each protected by a CRC-8. Responses are sequences of 16 bit
// words, each followed by its CRC byte. Larger values (32 bit floats and
// status words) span two consecutive words, so their bytes are interleaved with
// CRCs on the wire:
//
//	b0 b1 crc b2 b3 crc
//
// StripCRC compacts such a buffer before the value is interpreted.
//
// # Datasheets
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
//
// https://sensirion.com/media/documents/8600FF88/616542B5/Sensirion_PM_Sensors_Datasheet_SPS30.pdf
package sensirion
