// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package scd30

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/airsense/common"
	"github.com/GermanBionicSystems/airsense/sensirion"
)

const (
	// The SCD30 only supports this i2c address.
	SensorAddress uint16 = 0x61

	// Minimum time between writing a command and reading its response.
	settleTime = 3 * time.Millisecond
)

type cmd uint16

// Command words. The same word is used to set and to read a parameter.
const (
	cmdStartContinuousMeasurement cmd = 0x0010
	cmdStopContinuousMeasurement  cmd = 0x0104
	cmdMeasurementInterval        cmd = 0x4600
	cmdGetDataReadyStatus         cmd = 0x0202
	cmdReadMeasurement            cmd = 0x0300
	cmdAutoSelfCalibration        cmd = 0x5306
	cmdTemperatureOffset          cmd = 0x5403
	cmdReadFirmwareVersion        cmd = 0xd100
	cmdSoftReset                  cmd = 0xd304
)

// Response sizes including the CRC bytes.
const (
	sizeFirmwareVersion = 2
	sizeWord            = 3
	sizeMeasurement     = 18
)

var errFreed = errors.New("scd30: bus has been freed")

// Opts holds the driver options.
type Opts struct {
	// I2C address. Defaults to SensorAddress.
	Addr uint16
	// Verify checks the CRC of every response word. The sensor program this
	// driver replaces trusted the bus, so it is off by default.
	Verify bool
	// Delay implements the settle time between a command and its response.
	// Defaults to common.Sleep.
	Delay common.Delayer
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Addr: SensorAddress}

// Env is one measurement as reported by the sensor.
type Env struct {
	// CO2 concentration in parts per million.
	CO2 float32
	// Temperature in °C.
	Temperature float32
	// Relative humidity in %.
	Humidity float32
}

// String returns the reading in a human readable format.
func (e *Env) String() string {
	return fmt.Sprintf("CO2: %.2f ppm Temperature: %.2f°C Humidity: %.2f%%", e.CO2, e.Temperature, e.Humidity)
}

// Physic returns the temperature and humidity as periph physical values.
func (e *Env) Physic() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(float64(e.Temperature)*float64(physic.Celsius)),
		Humidity:    physic.RelativeHumidity(float64(e.Humidity) * float64(physic.PercentRH)),
	}
}

// Dev represents an SCD30 device.
type Dev struct {
	mu    sync.Mutex
	d     *i2c.Dev
	dec   sensirion.Decoder
	delay common.Delayer
}

// NewI2C returns a driver for an SCD30 on bus b. No transaction is issued.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	addr := opts.Addr
	if addr == 0 {
		addr = SensorAddress
	}
	if addr > 0x7f {
		return nil, fmt.Errorf("scd30: invalid i2c address 0x%x", addr)
	}
	return &Dev{
		d:     &i2c.Dev{Bus: b, Addr: addr},
		dec:   sensirion.Decoder{Verify: opts.Verify},
		delay: common.Or(opts.Delay),
	}, nil
}

// FirmwareVersion returns the major and minor firmware version.
func (d *Dev) FirmwareVersion() (major, minor uint8, err error) {
	r := make([]byte, sizeFirmwareVersion)
	if err = d.transact(cmdReadFirmwareVersion, nil, r); err != nil {
		return 0, 0, err
	}
	return r[0], r[1], nil
}

// SoftReset restarts the sensor. No response is expected.
func (d *Dev) SoftReset() error {
	return d.transact(cmdSoftReset, nil, nil)
}

// SetTemperatureOffset sets the temperature offset in units of 0.01°C.
func (d *Dev) SetTemperatureOffset(offset uint16) error {
	return d.transact(cmdTemperatureOffset, []uint16{offset}, nil)
}

// TemperatureOffset returns the temperature offset in units of 0.01°C.
func (d *Dev) TemperatureOffset() (uint16, error) {
	return d.readWord(cmdTemperatureOffset)
}

// StartContinuousMeasurement starts measuring with ambient pressure
// compensation. pressure is in mbar; 0 disables compensation.
func (d *Dev) StartContinuousMeasurement(pressure uint16) error {
	return d.transact(cmdStartContinuousMeasurement, []uint16{pressure}, nil)
}

// StopContinuousMeasurement stops measuring.
func (d *Dev) StopContinuousMeasurement() error {
	return d.transact(cmdStopContinuousMeasurement, nil, nil)
}

// SetMeasurementInterval sets the interval between measurements in seconds.
func (d *Dev) SetMeasurementInterval(seconds uint16) error {
	return d.transact(cmdMeasurementInterval, []uint16{seconds}, nil)
}

// MeasurementInterval returns the interval between measurements in seconds.
func (d *Dev) MeasurementInterval() (uint16, error) {
	return d.readWord(cmdMeasurementInterval)
}

// DataReady reports whether a measurement can be read. Only a status word of
// exactly 1 means ready.
func (d *Dev) DataReady() (bool, error) {
	status, err := d.readWord(cmdGetDataReadyStatus)
	if err != nil {
		return false, err
	}
	return status == 1, nil
}

// ReadMeasurement reads the last measurement. Call DataReady first: the
// sensor does not signal whether the values are fresh.
func (d *Dev) ReadMeasurement() (Env, error) {
	r := make([]byte, sizeMeasurement)
	if err := d.transact(cmdReadMeasurement, nil, r); err != nil {
		return Env{}, err
	}
	values, err := d.dec.Float32s(uint16(cmdReadMeasurement), r, sizeMeasurement, 3)
	if err != nil {
		return Env{}, fmt.Errorf("scd30: %w", err)
	}
	return Env{CO2: values[0], Temperature: values[1], Humidity: values[2]}, nil
}

// Sense reads the last measurement into env.
func (d *Dev) Sense(env *Env) error {
	e, err := d.ReadMeasurement()
	*env = e
	return err
}

// ActivateAutoSelfCalibration enables automatic self calibration and reads the
// setting back. It returns true if the sensor reports it as enabled.
func (d *Dev) ActivateAutoSelfCalibration() (bool, error) {
	if err := d.transact(cmdAutoSelfCalibration, []uint16{1}, nil); err != nil {
		return false, err
	}
	status, err := d.readWord(cmdAutoSelfCalibration)
	if err != nil {
		return false, err
	}
	return status == 1, nil
}

// Halt stops continuous measurement. Implements conn.Resource.
func (d *Dev) Halt() error {
	return d.StopContinuousMeasurement()
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
		return "scd30: freed"
	}
	return fmt.Sprintf("scd30: %s", d.d.String())
}

func (d *Dev) readWord(c cmd) (uint16, error) {
	r := make([]byte, sizeWord)
	if err := d.transact(c, nil, r); err != nil {
		return 0, err
	}
	v, err := d.dec.Uint16(uint16(c), r)
	if err != nil {
		return 0, fmt.Errorf("scd30: %w", err)
	}
	return v, nil
}

// All commands to read or write to the sensor go through this function. The
// command is written, then after the settle time the response is read into r
// if r is not nil.
func (d *Dev) transact(c cmd, args []uint16, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.d == nil {
		return &sensirion.TransportError{Cmd: uint16(c), Err: errFreed}
	}
	if err := d.d.Tx(sensirion.Frame(uint16(c), args...), nil); err != nil {
		return &sensirion.TransportError{Cmd: uint16(c), Err: err}
	}
	if r == nil {
		return nil
	}
	d.delay.Delay(settleTime)
	if err := d.d.Tx(nil, r); err != nil {
		return &sensirion.TransportError{Cmd: uint16(c), Err: err}
	}
	return nil
}
