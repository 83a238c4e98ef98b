// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sps30

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3"

	"github.com/GermanBionicSystems/airsense/common"
	"github.com/GermanBionicSystems/airsense/sensirion"
)

// SHDLC frame constants.
const (
	frameBoundary byte = 0x7e
	escape        byte = 0x7d
	escapeXOR     byte = 0x20

	// The SPS30 always answers on slave address 0.
	uartAddress byte = 0x00

	// Longest possible frame once stuffed: boundaries plus every byte escaped.
	maxFrame = 2 + 2*(5+255)
)

// SHDLC command bytes.
const (
	uartStartMeasurement byte = 0x00
	uartStopMeasurement  byte = 0x01
	uartReadMeasurement  byte = 0x03
	uartReadStatus       byte = 0xd2
	uartFanClean         byte = 0x56
	uartReadVersion      byte = 0xd1
	uartReset            byte = 0xd3
)

// DeviceError is the state byte of an SHDLC response that signals an error.
type DeviceError byte

const (
	ErrWrongData             DeviceError = 0x01
	ErrUnknownCommand        DeviceError = 0x02
	ErrNoAccessRight         DeviceError = 0x03
	ErrIllegalParameter      DeviceError = 0x04
	ErrInternalFunction      DeviceError = 0x28
	ErrCommandStateForbidden DeviceError = 0x43
)

func (e DeviceError) Error() string {
	switch e {
	case ErrWrongData:
		return "sps30: wrong data length"
	case ErrUnknownCommand:
		return "sps30: unknown command"
	case ErrNoAccessRight:
		return "sps30: no access right for command"
	case ErrIllegalParameter:
		return "sps30: illegal command parameter"
	case ErrInternalFunction:
		return "sps30: internal function argument out of range"
	case ErrCommandStateForbidden:
		return "sps30: command not allowed in current state"
	default:
		return fmt.Sprintf("sps30: device error 0x%02x", byte(e))
	}
}

var (
	errFrameChecksum = errors.New("sps30: frame checksum mismatch")
	errFrameTooLong  = errors.New("sps30: frame too long")
)

func needsEscape(b byte) bool {
	return b == frameBoundary || b == escape || b == 0x11 || b == 0x13
}

// encodeFrame builds a MOSI frame: ADR CMD LEN DATA CHK, byte stuffed and
// enclosed in frame boundaries.
func encodeFrame(command byte, data []byte) []byte {
	raw := append([]byte{uartAddress, command, byte(len(data))}, data...)
	raw = append(raw, common.Sum8Complement(raw))
	out := make([]byte, 0, len(raw)+4)
	out = append(out, frameBoundary)
	for _, b := range raw {
		if needsEscape(b) {
			out = append(out, escape, b^escapeXOR)
		} else {
			out = append(out, b)
		}
	}
	return append(out, frameBoundary)
}

// decodeFrame parses a MISO frame including its boundaries and returns the
// data field.
func decodeFrame(command byte, frame []byte) ([]byte, error) {
	if len(frame) < 2 || frame[0] != frameBoundary || frame[len(frame)-1] != frameBoundary {
		return nil, fmt.Errorf("sps30: missing frame boundary in %#v", frame)
	}
	raw := make([]byte, 0, len(frame))
	for i := 1; i < len(frame)-1; i++ {
		b := frame[i]
		if b == escape {
			i++
			if i >= len(frame)-1 {
				return nil, errors.New("sps30: truncated escape sequence")
			}
			b = frame[i] ^ escapeXOR
		}
		raw = append(raw, b)
	}
	// ADR CMD STATE LEN ... CHK
	if len(raw) < 5 || int(raw[3]) != len(raw)-5 {
		return nil, fmt.Errorf("sps30: malformed frame %#v", raw)
	}
	if common.Sum8Complement(raw[:len(raw)-1]) != raw[len(raw)-1] {
		return nil, errFrameChecksum
	}
	if raw[1] != command {
		return nil, fmt.Errorf("sps30: response to command 0x%02x, expected 0x%02x", raw[1], command)
	}
	if state := raw[2] &^ 0x80; state != 0 {
		return nil, DeviceError(state)
	}
	return raw[4 : len(raw)-1], nil
}

// UART is an SPS30 connected through its SHDLC serial interface.
type UART struct {
	mu sync.Mutex
	c  conn.Conn
}

// NewUART returns a driver talking SHDLC over c. The port must be set to
// 115200 8N1.
func NewUART(c conn.Conn) *UART {
	return &UART{c: c}
}

// Version returns the firmware major and minor version.
func (u *UART) Version() (major, minor uint8, err error) {
	data, err := u.execute(uartReadVersion, nil)
	if err != nil {
		return 0, 0, err
	}
	if len(data) < 2 {
		return 0, 0, fmt.Errorf("sps30: short version response %#v", data)
	}
	return data[0], data[1], nil
}

// Start begins measuring with float output.
func (u *UART) Start() error {
	_, err := u.execute(uartStartMeasurement, []byte{0x01, 0x03})
	return err
}

// Stop returns the sensor to idle mode.
func (u *UART) Stop() error {
	_, err := u.execute(uartStopMeasurement, nil)
	return err
}

// StartFanCleaning runs the fan at maximum speed for 10 seconds.
func (u *UART) StartFanCleaning() error {
	_, err := u.execute(uartFanClean, nil)
	return err
}

// Reset performs a soft reset.
func (u *UART) Reset() error {
	_, err := u.execute(uartReset, nil)
	return err
}

// ReadMeasurement reads the PM1.0 and PM2.5 mass concentrations. The sensor
// answers with an empty frame when no new data is available, reported as a
// zero Env and false.
func (u *UART) ReadMeasurement() (Env, bool, error) {
	data, err := u.execute(uartReadMeasurement, nil)
	if err != nil {
		return Env{}, false, err
	}
	if len(data) == 0 {
		return Env{}, false, nil
	}
	if len(data) < 8 {
		return Env{}, false, fmt.Errorf("sps30: short measurement %#v", data)
	}
	return Env{
		PM1_0: math.Float32frombits(binary.BigEndian.Uint32(data[0:])),
		PM2_5: math.Float32frombits(binary.BigEndian.Uint32(data[4:])),
	}, true, nil
}

// DeviceStatus reads the device status register without clearing it.
func (u *UART) DeviceStatus() (Status, error) {
	data, err := u.execute(uartReadStatus, []byte{0x00})
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("sps30: short status response %#v", data)
	}
	return Status(binary.BigEndian.Uint32(data)), nil
}

// Halt stops measuring. Implements conn.Resource.
func (u *UART) Halt() error {
	return u.Stop()
}

func (u *UART) String() string {
	return fmt.Sprintf("sps30: %s", u.c.String())
}

// execute sends one request frame and reads the response frame byte by byte
// up to the closing boundary.
func (u *UART) execute(command byte, data []byte) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.c.Tx(encodeFrame(command, data), nil); err != nil {
		return nil, &sensirion.TransportError{Cmd: uint16(command), Err: err}
	}
	frame := make([]byte, 0, 16)
	b := make([]byte, 1)
	for {
		if err := u.c.Tx(nil, b); err != nil {
			return nil, &sensirion.TransportError{Cmd: uint16(command), Err: err}
		}
		if len(frame) == 0 && b[0] != frameBoundary {
			// Line noise before the frame starts.
			continue
		}
		frame = append(frame, b[0])
		if len(frame) > 1 && b[0] == frameBoundary {
			break
		}
		if len(frame) > maxFrame {
			return nil, errFrameTooLong
		}
	}
	return decodeFrame(command, frame)
}

// Poller reads a UART sensor with the DataReady then ReadMeasurement sequence
// of the i2c driver. DataReady issues the read and keeps the measurement.
type Poller struct {
	u   *UART
	env Env
}

// NewPoller returns a Poller reading u.
func NewPoller(u *UART) *Poller {
	return &Poller{u: u}
}

// DataReady reads a measurement and reports whether the sensor had one.
func (p *Poller) DataReady() (bool, error) {
	env, ok, err := p.u.ReadMeasurement()
	if ok {
		p.env = env
	}
	return ok, err
}

// ReadMeasurement returns the measurement fetched by the last successful
// DataReady.
func (p *Poller) ReadMeasurement() (Env, error) {
	return p.env, nil
}

// DeviceStatus reads the device status register.
func (p *Poller) DeviceStatus() (Status, error) {
	return p.u.DeviceStatus()
}

func (p *Poller) String() string {
	return p.u.String()
}
