// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor runs the air quality control loop: it polls the sensors,
// retains the last good reading, refreshes the panel, evaluates the CO2 alert
// and reacts to the four operator buttons.
//
// Every step is also exported so it can be driven without the loop, by the
// console or by tests.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/airsense/alert"
	"github.com/GermanBionicSystems/airsense/common"
	"github.com/GermanBionicSystems/airsense/config"
	"github.com/GermanBionicSystems/airsense/panel"
	"github.com/GermanBionicSystems/airsense/scd30"
	"github.com/GermanBionicSystems/airsense/sensirion"
	"github.com/GermanBionicSystems/airsense/sps30"
	"github.com/GermanBionicSystems/airsense/units"
)

// CO2Sensor is implemented by *scd30.Dev.
type CO2Sensor interface {
	FirmwareVersion() (major, minor uint8, err error)
	SoftReset() error
	SetTemperatureOffset(offset uint16) error
	TemperatureOffset() (uint16, error)
	StartContinuousMeasurement(pressure uint16) error
	StopContinuousMeasurement() error
	SetMeasurementInterval(seconds uint16) error
	MeasurementInterval() (uint16, error)
	DataReady() (bool, error)
	ReadMeasurement() (scd30.Env, error)
	ActivateAutoSelfCalibration() (bool, error)
}

// ParticulateSensor is implemented by *sps30.Dev.
type ParticulateSensor interface {
	DataReady() (bool, error)
	ReadMeasurement() (sps30.Env, error)
	DeviceStatus() (sps30.Status, error)
}

// Indicator is implemented by *rgbled.Dev and *consoleled.Dev.
type Indicator interface {
	alert.Indicator
	Blink(delay common.Delayer) error
}

// Button is implemented by *button.Dev.
type Button interface {
	Released() bool
}

// Publisher sends each refreshed reading somewhere. MQTTPublisher is the
// implementation used on the device.
type Publisher interface {
	Publish(r Reading) error
}

// Button indexes.
const (
	ButtonUnit = iota
	ButtonStop
	ButtonConfigure
	ButtonReset
)

const (
	selfTestStep = 500 * time.Millisecond
	readSettle   = 50 * time.Millisecond
)

// Opts configures a Monitor. Sensor and Indicator are required, the rest is
// optional.
type Opts struct {
	Config      *config.Config
	Sensor      CO2Sensor
	Particulate ParticulateSensor
	Indicator   Indicator
	Sounder     alert.Sounder
	Buttons     [4]Button
	// Panel is rendered onto Drawer on every refresh when both are set.
	Panel     *panel.Panel
	Drawer    display.Drawer
	Publisher Publisher
	Metrics   *Metrics
	Log       logrus.FieldLogger
	Delay     common.Delayer
}

// Reading is the last retained measurement.
type Reading struct {
	CO2         float32   `json:"co2"`
	Temperature float32   `json:"temperature"`
	Humidity    float32   `json:"humidity"`
	PM1_0       float32   `json:"pm1_0,omitempty"`
	PM2_5       float32   `json:"pm2_5,omitempty"`
	Level       string    `json:"level"`
	Time        time.Time `json:"time"`
}

// Status is a snapshot of the monitor state.
type Status struct {
	Reading Reading
	Level   alert.Level
	Unit    units.Unit
	// Updates is the number of refreshes so far.
	Updates int
	// LastUpdate is the refresh count at which Reading was retained.
	LastUpdate int
	Firmware   string
}

// Monitor owns the sensors and outputs. Poll, Refresh and CheckButtons must
// be called from a single goroutine; Snapshot and the actions may be called
// concurrently with them.
type Monitor struct {
	cfg   *config.Config
	co2   CO2Sensor
	pm    ParticulateSensor
	ind   Indicator
	snd   alert.Sounder
	btns  [4]Button
	pnl   *panel.Panel
	drw   display.Drawer
	pub   Publisher
	met   *Metrics
	log   logrus.FieldLogger
	delay common.Delayer
	now   func() time.Time

	alert *alert.Machine

	mu     sync.Mutex
	status Status
}

// New returns a Monitor. It does not touch the hardware; call Boot next.
func New(opts *Opts) (*Monitor, error) {
	if opts.Sensor == nil {
		return nil, errors.New("monitor: a CO2 sensor is required")
	}
	if opts.Indicator == nil {
		return nil, errors.New("monitor: an indicator is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	snd := opts.Sounder
	if snd == nil {
		snd = silent{}
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := cfg.Alert
	return &Monitor{
		cfg:   cfg,
		co2:   opts.Sensor,
		pm:    opts.Particulate,
		ind:   opts.Indicator,
		snd:   snd,
		btns:  opts.Buttons,
		pnl:   opts.Panel,
		drw:   opts.Drawer,
		pub:   opts.Publisher,
		met:   opts.Metrics,
		log:   log,
		delay: common.Or(opts.Delay),
		now:   time.Now,
		alert: alert.New(a.Warning1, a.Warning2, a.Limit),
	}, nil
}

// Boot waits for the sensors to power up, reads the firmware version and
// temperature offset and runs the LED self test.
//
// A failed firmware read is only returned when the configuration asks for
// it; otherwise it is logged.
func (m *Monitor) Boot() error {
	m.delay.Delay(m.cfg.Timing.Boot)
	major, minor, err := m.co2.FirmwareVersion()
	if err != nil {
		if m.cfg.Sensor.FailOnBootError {
			return fmt.Errorf("monitor: boot: %w", err)
		}
		m.log.WithError(err).Warn("firmware version unavailable")
	} else {
		fw := fmt.Sprintf("%d.%d", major, minor)
		m.mu.Lock()
		m.status.Firmware = fw
		m.mu.Unlock()
		m.log.WithField("firmware", fw).Info("sensor found")
	}
	if offset, err := m.co2.TemperatureOffset(); err != nil {
		m.log.WithError(err).Warn("temperature offset unavailable")
	} else {
		m.log.WithField("offset", offset).Info("temperature offset")
	}
	for _, c := range []alert.Colour{alert.ColourWhite, alert.ColourBlue, alert.ColourRed} {
		if err := alert.Apply(m.ind, c); err != nil {
			return fmt.Errorf("monitor: self test: %w", err)
		}
		m.delay.Delay(selfTestStep)
	}
	if err := m.ind.Green(); err != nil {
		return fmt.Errorf("monitor: self test: %w", err)
	}
	return nil
}

// Run drives Poll, Refresh and CheckButtons at the configured periods until
// ctx is done. The first poll and refresh happen immediately.
func (m *Monitor) Run(ctx context.Context) error {
	t := m.cfg.Timing
	poll := time.NewTicker(t.Poll)
	defer poll.Stop()
	refresh := time.NewTicker(t.Display)
	defer refresh.Stop()
	buttons := time.NewTicker(t.Button)
	defer buttons.Stop()

	m.Poll()
	m.Refresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			m.Poll()
		case <-refresh.C:
			m.Refresh()
		case <-buttons.C:
			m.CheckButtons()
		}
	}
}

// Poll reads the sensors if they have data ready. On failure the previous
// reading is retained. It reports whether a new CO2 reading was retained.
func (m *Monitor) Poll() bool {
	if err := m.ind.Blink(m.delay); err != nil {
		m.log.WithError(err).Warn("blink failed")
	}
	fresh, err := m.pollCO2()
	if err != nil {
		m.pollFailed("scd30", err)
	}
	if m.pm != nil {
		if err := m.pollParticulate(); err != nil {
			m.pollFailed("sps30", err)
		}
	}
	return fresh
}

func (m *Monitor) pollCO2() (bool, error) {
	ready, err := m.co2.DataReady()
	if err != nil {
		return false, err
	}
	if !ready {
		m.log.Debug("sensor data not ready")
		return false, nil
	}
	m.delay.Delay(readSettle)
	if err := m.ind.Blink(m.delay); err != nil {
		m.log.WithError(err).Warn("blink failed")
	}
	interval, err := m.co2.MeasurementInterval()
	if err != nil {
		return false, err
	}
	env, err := m.co2.ReadMeasurement()
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	m.status.Reading.CO2 = env.CO2
	m.status.Reading.Temperature = env.Temperature
	m.status.Reading.Humidity = env.Humidity
	m.status.Reading.Time = m.now()
	m.status.LastUpdate = m.status.Updates
	m.mu.Unlock()
	m.met.observeCO2(env)
	m.log.WithFields(logrus.Fields{
		"co2":         env.CO2,
		"temperature": env.Temperature,
		"humidity":    env.Humidity,
		"interval":    interval,
	}).Info("reading")
	return true, nil
}

func (m *Monitor) pollParticulate() error {
	ready, err := m.pm.DataReady()
	if err != nil {
		return err
	}
	if ready {
		env, err := m.pm.ReadMeasurement()
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.status.Reading.PM1_0 = env.PM1_0
		m.status.Reading.PM2_5 = env.PM2_5
		m.mu.Unlock()
		m.met.observePM(env)
		m.log.WithFields(logrus.Fields{"pm1_0": env.PM1_0, "pm2_5": env.PM2_5}).Debug("particulate reading")
	}
	status, err := m.pm.DeviceStatus()
	if err != nil {
		return err
	}
	if status.FanFault() || status.LaserFault() || status.SpeedFault() {
		m.log.WithField("status", status).Warn("particulate sensor fault")
	}
	return nil
}

func (m *Monitor) pollFailed(sensor string, err error) {
	m.met.pollError(sensor)
	entry := m.log.WithError(err).WithField("sensor", sensor)
	var te *sensirion.TransportError
	if errors.As(err, &te) {
		entry = entry.WithField("cmd", fmt.Sprintf("0x%04x", te.Cmd))
	}
	entry.Warn("poll failed, keeping previous reading")
}

// Refresh redraws the panel, evaluates the CO2 alert against the retained
// reading and publishes it.
func (m *Monitor) Refresh() {
	m.mu.Lock()
	r := m.status.Reading
	readout := panel.Readout{
		CO2:         r.CO2,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Unit:        m.status.Unit,
		Elapsed:     m.seconds(m.status.Updates),
		LastReading: m.seconds(m.status.LastUpdate),
	}
	m.mu.Unlock()

	if m.pnl != nil && m.drw != nil {
		if err := m.pnl.Show(m.drw, readout); err != nil {
			m.log.WithError(err).Warn("display refresh failed")
		}
	}

	level, err := m.alert.Check(r.CO2, m.ind, m.snd)
	if err != nil {
		m.log.WithError(err).Warn("alert output failed")
	}
	st := m.alert.State()
	m.met.observeLevel(level)

	m.mu.Lock()
	m.status.Level = level
	m.status.Reading.Level = level.String()
	m.status.Updates++
	r = m.status.Reading
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"co2": r.CO2, "level": level, "bursts": st.BuzzerCount}).Debug("refresh")
	if m.pub != nil {
		if err := m.pub.Publish(r); err != nil {
			m.log.WithError(err).Warn("publish failed")
		}
	}
}

func (m *Monitor) seconds(updates int) int {
	return updates * int(m.cfg.Timing.Display/time.Second)
}

// CheckButtons runs the action of every button released since the last
// call.
func (m *Monitor) CheckButtons() {
	actions := [4]func() error{
		ButtonUnit:      m.CycleUnit,
		ButtonStop:      m.Stop,
		ButtonConfigure: m.Configure,
		ButtonReset:     m.ResetAndCalibrate,
	}
	for i, b := range m.btns {
		if b == nil || !b.Released() {
			continue
		}
		if err := actions[i](); err != nil {
			m.log.WithError(err).WithField("button", i+1).Warn("button action failed")
		}
	}
}

// CycleUnit switches the displayed temperature unit.
func (m *Monitor) CycleUnit() error {
	m.mu.Lock()
	m.status.Unit = m.status.Unit.Next()
	u := m.status.Unit
	m.mu.Unlock()
	m.log.WithField("unit", u).Info("unit changed")
	return m.ind.Blink(m.delay)
}

// SetUnit switches the displayed temperature unit to u.
func (m *Monitor) SetUnit(u units.Unit) error {
	m.mu.Lock()
	m.status.Unit = u
	m.mu.Unlock()
	m.log.WithField("unit", u).Info("unit changed")
	return m.ind.Blink(m.delay)
}

// Stop stops continuous measurement.
func (m *Monitor) Stop() error {
	if err := m.co2.StopContinuousMeasurement(); err != nil {
		return fmt.Errorf("monitor: stop: %w", err)
	}
	m.log.Info("continuous measurement stopped")
	return m.ind.Blink(m.delay)
}

// Configure sets the measurement interval and temperature offset, starts
// continuous measurement with the configured ambient pressure and reads the
// settings back.
func (m *Monitor) Configure() error {
	s := m.cfg.Sensor
	if err := m.co2.SetMeasurementInterval(s.Interval); err != nil {
		return fmt.Errorf("monitor: configure: %w", err)
	}
	if err := m.co2.SetTemperatureOffset(s.TemperatureOffset); err != nil {
		return fmt.Errorf("monitor: configure: %w", err)
	}
	if err := m.co2.StartContinuousMeasurement(s.Pressure); err != nil {
		return fmt.Errorf("monitor: configure: %w", err)
	}
	offset, err := m.co2.TemperatureOffset()
	if err != nil {
		return fmt.Errorf("monitor: configure: %w", err)
	}
	interval, err := m.co2.MeasurementInterval()
	if err != nil {
		return fmt.Errorf("monitor: configure: %w", err)
	}
	m.log.WithFields(logrus.Fields{"offset": offset, "interval": interval, "pressure": s.Pressure}).Info("measurement started")
	return m.ind.Blink(m.delay)
}

// SetInterval sets the measurement interval in seconds.
func (m *Monitor) SetInterval(seconds uint16) error {
	if err := m.co2.SetMeasurementInterval(seconds); err != nil {
		return fmt.Errorf("monitor: interval: %w", err)
	}
	m.log.WithField("interval", seconds).Info("measurement interval set")
	return nil
}

// ResetAndCalibrate soft resets the sensor and activates automatic
// self-calibration.
func (m *Monitor) ResetAndCalibrate() error {
	if err := m.co2.SoftReset(); err != nil {
		return fmt.Errorf("monitor: reset: %w", err)
	}
	m.log.Info("sensor reset")
	m.delay.Delay(readSettle)
	asc, err := m.co2.ActivateAutoSelfCalibration()
	if err != nil {
		return fmt.Errorf("monitor: reset: %w", err)
	}
	m.log.WithField("asc", asc).Info("auto self calibration")
	return m.ind.Blink(m.delay)
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

type silent struct{}

func (silent) Burst() error { return nil }

var (
	_ CO2Sensor         = (*scd30.Dev)(nil)
	_ ParticulateSensor = (*sps30.Dev)(nil)
	_ ParticulateSensor = (*sps30.Poller)(nil)
)
