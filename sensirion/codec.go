// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/GermanBionicSystems/airsense/common"
)

// Frame returns the bytes to write for command cmd. Each argument word is
// written big-endian and followed by the CRC of its two bytes. Without
// arguments the frame is just the command word.
func Frame(cmd uint16, args ...uint16) []byte {
	w := make([]byte, 2, 2+3*len(args))
	binary.BigEndian.PutUint16(w, cmd)
	for _, arg := range args {
		w = binary.BigEndian.AppendUint16(w, arg)
		w = append(w, common.CRC8(w[len(w)-2:]))
	}
	return w
}

// StripCRC removes every third byte of an interleaved response. A buffer of
// 3n bytes yields 2n bytes, in order. The input is not modified.
func StripCRC(buf []byte) ([]byte, error) {
	if len(buf)%3 != 0 {
		return nil, &ProtocolError{Want: len(buf) + 3 - len(buf)%3, Got: len(buf)}
	}
	dense := make([]byte, len(buf)/3*2)
	for i, b := range buf {
		if (i+1)%3 != 0 {
			dense[(i/3)*2+i%3] = b
		}
	}
	return dense, nil
}

// VerifyCRC checks the CRC byte following every word of buf.
func VerifyCRC(buf []byte) error {
	if len(buf)%3 != 0 {
		return &ProtocolError{Want: len(buf) + 3 - len(buf)%3, Got: len(buf)}
	}
	for ix := 0; ix < len(buf); ix += 3 {
		if crc := common.CRC8(buf[ix : ix+2]); crc != buf[ix+2] {
			return &ChecksumError{Word: ix / 3, Want: crc, Got: buf[ix+2]}
		}
	}
	return nil
}

// Bit reports whether bit n of word is set. Positions of 32 and above are
// never set.
func Bit(word uint32, n uint8) bool {
	if n >= 32 {
		return false
	}
	return word&(1<<n) != 0
}

// Decoder interprets response buffers. When Verify is true the word CRCs are
// checked before any value is returned; otherwise they are only stripped.
type Decoder struct {
	Verify bool
}

func (dec Decoder) words(cmd uint16, buf []byte, want int) ([]byte, error) {
	if len(buf) != want {
		return nil, &ProtocolError{Cmd: cmd, Want: want, Got: len(buf)}
	}
	if dec.Verify {
		if err := VerifyCRC(buf); err != nil {
			return nil, err
		}
	}
	return StripCRC(buf)
}

// Uint16 decodes a single word response of 3 bytes.
func (dec Decoder) Uint16(cmd uint16, buf []byte) (uint16, error) {
	dense, err := dec.words(cmd, buf, 3)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(dense), nil
}

// Uint32 decodes a two word response of 6 bytes.
func (dec Decoder) Uint32(cmd uint16, buf []byte) (uint32, error) {
	dense, err := dec.words(cmd, buf, 6)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(dense), nil
}

// Float32s decodes n big-endian IEEE754 values from the start of buf. buf must
// have the full length of the response, which may hold more than n values.
func (dec Decoder) Float32s(cmd uint16, buf []byte, size, n int) ([]float32, error) {
	dense, err := dec.words(cmd, buf, size)
	if err != nil {
		return nil, err
	}
	if n*4 > len(dense) {
		return nil, &ProtocolError{Cmd: cmd, Want: n * 6, Got: len(buf)}
	}
	values := make([]float32, n)
	for ix := range values {
		values[ix] = math.Float32frombits(binary.BigEndian.Uint32(dense[ix*4:]))
	}
	return values, nil
}

// ASCII decodes a NUL terminated string response.
func (dec Decoder) ASCII(cmd uint16, buf []byte, size int) (string, error) {
	dense, err := dec.words(cmd, buf, size)
	if err != nil {
		return "", err
	}
	if ix := bytes.IndexByte(dense, 0); ix >= 0 {
		dense = dense[:ix]
	}
	return string(dense), nil
}
