// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sps30

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/GermanBionicSystems/airsense/common"
	"github.com/GermanBionicSystems/airsense/sensirion"
)

// SensorAddress is the fixed i2c address of the SPS30.
const SensorAddress uint16 = 0x69

type cmd uint16

const (
	cmdStartMeasurement  cmd = 0x0010
	cmdStopMeasurement   cmd = 0x0104
	cmdDataReady         cmd = 0x0202
	cmdReadMeasurement   cmd = 0x0300
	cmdStartFanCleaning  cmd = 0x5607
	cmdReadProductType   cmd = 0xd002
	cmdReadSerialNumber  cmd = 0xd033
	cmdReadVersion       cmd = 0xd100
	cmdReadDeviceStatus  cmd = 0xd206
	cmdClearDeviceStatus cmd = 0xd210
	cmdReset             cmd = 0xd304

	// Argument to start measurement: big-endian IEEE754 float output.
	outputFloat uint16 = 0x0300
)

// commandDuration maps the execution time the sensor needs before it can be
// read or addressed again.
var commandDuration = map[cmd]time.Duration{
	cmdStartMeasurement:  20 * time.Millisecond,
	cmdStopMeasurement:   20 * time.Millisecond,
	cmdStartFanCleaning:  5 * time.Millisecond,
	cmdClearDeviceStatus: 5 * time.Millisecond,
	cmdReset:             100 * time.Millisecond,
}

// defaultDuration applies to every command not in commandDuration.
const defaultDuration = 5 * time.Millisecond

// Response sizes including the CRC bytes.
const (
	sizeWord        = 3
	sizeStatus      = 6
	sizeString      = 48
	sizeMeasurement = 60
)

// Status bits of the device status register.
const (
	bitFanFault   uint8 = 4
	bitLaserFault uint8 = 5
	bitSpeedFault uint8 = 21
)

var errFreed = errors.New("sps30: bus has been freed")

// Status is the device status register.
type Status uint32

// FanFault is set when the fan is switched on but not turning.
func (s Status) FanFault() bool {
	return sensirion.Bit(uint32(s), bitFanFault)
}

// LaserFault is set when the laser current is out of range.
func (s Status) LaserFault() bool {
	return sensirion.Bit(uint32(s), bitLaserFault)
}

// SpeedFault is set when the fan speed is too high or too low.
func (s Status) SpeedFault() bool {
	return sensirion.Bit(uint32(s), bitSpeedFault)
}

func (s Status) String() string {
	return fmt.Sprintf("fan=%t laser=%t speed=%t", s.FanFault(), s.LaserFault(), s.SpeedFault())
}

// Env is a particulate matter measurement. Values are mass concentrations in
// µg/m³.
type Env struct {
	PM1_0 float32
	PM2_5 float32
}

func (e *Env) String() string {
	return fmt.Sprintf("PM1.0: %.2f µg/m³ PM2.5: %.2f µg/m³", e.PM1_0, e.PM2_5)
}

// Opts holds the driver options.
type Opts struct {
	// Addr defaults to SensorAddress.
	Addr uint16
	// Verify checks the CRC of every response word.
	Verify bool
	// Delay implements the command execution times. Defaults to common.Sleep.
	Delay common.Delayer
}

// Dev is an SPS30 on an i2c bus.
type Dev struct {
	mu    sync.Mutex
	d     *i2c.Dev
	dec   sensirion.Decoder
	delay common.Delayer
}

// NewI2C returns a driver for an SPS30 on bus b. No transaction is issued.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &Opts{}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = SensorAddress
	}
	if addr > 0x7f {
		return nil, fmt.Errorf("sps30: invalid i2c address 0x%x", addr)
	}
	return &Dev{
		d:     &i2c.Dev{Bus: b, Addr: addr},
		dec:   sensirion.Decoder{Verify: opts.Verify},
		delay: common.Or(opts.Delay),
	}, nil
}

// Start begins continuous measurement with float output.
func (d *Dev) Start() error {
	return d.transact(cmdStartMeasurement, []uint16{outputFloat}, nil)
}

// Stop returns the sensor to idle mode.
func (d *Dev) Stop() error {
	return d.transact(cmdStopMeasurement, nil, nil)
}

// DataReady reports whether a new measurement can be read.
func (d *Dev) DataReady() (bool, error) {
	v, err := d.readWord(cmdDataReady)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// ReadMeasurement reads the PM1.0 and PM2.5 mass concentrations.
func (d *Dev) ReadMeasurement() (Env, error) {
	r := make([]byte, sizeMeasurement)
	if err := d.transact(cmdReadMeasurement, nil, r); err != nil {
		return Env{}, err
	}
	values, err := d.dec.Float32s(uint16(cmdReadMeasurement), r, sizeMeasurement, 2)
	if err != nil {
		return Env{}, fmt.Errorf("sps30: %w", err)
	}
	return Env{PM1_0: values[0], PM2_5: values[1]}, nil
}

// StartFanCleaning runs the fan at maximum speed for 10 seconds. Only valid
// while measuring.
func (d *Dev) StartFanCleaning() error {
	return d.transact(cmdStartFanCleaning, nil, nil)
}

// ProductType returns the product type string, "00080000" for the SPS30.
func (d *Dev) ProductType() (string, error) {
	return d.readString(cmdReadProductType)
}

// SerialNumber returns the serial number string.
func (d *Dev) SerialNumber() (string, error) {
	return d.readString(cmdReadSerialNumber)
}

// FirmwareVersion returns the major and minor firmware version.
func (d *Dev) FirmwareVersion() (major, minor uint8, err error) {
	r := make([]byte, sizeWord)
	if err = d.transact(cmdReadVersion, nil, r); err != nil {
		return 0, 0, err
	}
	v, err := d.dec.Uint16(uint16(cmdReadVersion), r)
	if err != nil {
		return 0, 0, fmt.Errorf("sps30: %w", err)
	}
	return uint8(v >> 8), uint8(v), nil
}

// DeviceStatus reads the device status register.
func (d *Dev) DeviceStatus() (Status, error) {
	r := make([]byte, sizeStatus)
	if err := d.transact(cmdReadDeviceStatus, nil, r); err != nil {
		return 0, err
	}
	v, err := d.dec.Uint32(uint16(cmdReadDeviceStatus), r)
	if err != nil {
		return 0, fmt.Errorf("sps30: %w", err)
	}
	return Status(v), nil
}

// ClearStatus clears the device status register.
func (d *Dev) ClearStatus() error {
	return d.transact(cmdClearDeviceStatus, nil, nil)
}

// Reset performs a soft reset.
func (d *Dev) Reset() error {
	return d.transact(cmdReset, nil, nil)
}

// Halt stops measuring. Implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Stop()
}

// Free hands the bus back. The device can not be used afterwards.
func (d *Dev) Free() i2c.Bus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return nil
	}
	b := d.d.Bus
	d.d = nil
	return b
}

func (d *Dev) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return "sps30: freed"
	}
	return fmt.Sprintf("sps30: %s", d.d.String())
}

func (d *Dev) readWord(c cmd) (uint16, error) {
	r := make([]byte, sizeWord)
	if err := d.transact(c, nil, r); err != nil {
		return 0, err
	}
	v, err := d.dec.Uint16(uint16(c), r)
	if err != nil {
		return 0, fmt.Errorf("sps30: %w", err)
	}
	return v, nil
}

func (d *Dev) readString(c cmd) (string, error) {
	r := make([]byte, sizeString)
	if err := d.transact(c, nil, r); err != nil {
		return "", err
	}
	s, err := d.dec.ASCII(uint16(c), r, sizeString)
	if err != nil {
		return "", fmt.Errorf("sps30: %w", err)
	}
	return s, nil
}

// transact writes the command, waits for its execution time and reads the
// response into r when r is not nil.
func (d *Dev) transact(c cmd, args []uint16, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return &sensirion.TransportError{Cmd: uint16(c), Err: errFreed}
	}
	if err := d.d.Tx(sensirion.Frame(uint16(c), args...), nil); err != nil {
		return &sensirion.TransportError{Cmd: uint16(c), Err: err}
	}
	duration, ok := commandDuration[c]
	if !ok {
		duration = defaultDuration
	}
	d.delay.Delay(duration)
	if r == nil {
		return nil
	}
	if err := d.d.Tx(nil, r); err != nil {
		return &sensirion.TransportError{Cmd: uint16(c), Err: err}
	}
	return nil
}
