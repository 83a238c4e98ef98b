// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the airsense YAML configuration.
//
// Keys missing from the file keep the values of Default, which match the
// board the monitor was first built for.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor      SensorConfig      `yaml:"sensor"`
	Particulate ParticulateConfig `yaml:"particulate"`
	Alert       AlertConfig       `yaml:"alert"`
	Timing      TimingConfig      `yaml:"timing"`
	Pins        PinConfig         `yaml:"pins"`
	Display     DisplayConfig     `yaml:"display"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Log         LogConfig         `yaml:"log"`
}

// SensorConfig configures the SCD30 CO2 sensor.
type SensorConfig struct {
	// Bus is the I²C bus name passed to i2creg.Open; empty selects the first.
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	// Verify enables CRC checking of the sensor responses.
	Verify bool `yaml:"verify"`
	// Interval is the measurement interval in seconds set by the configure
	// action.
	Interval          uint16 `yaml:"interval"`
	Pressure          uint16 `yaml:"pressure"`
	TemperatureOffset uint16 `yaml:"temperature_offset"`
	// FailOnBootError makes a failed firmware version read at boot fatal.
	FailOnBootError bool `yaml:"fail_on_boot_error"`
}

// ParticulateConfig configures the optional SPS30 particulate sensor. It
// shares the bus of the SCD30.
type ParticulateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address uint16 `yaml:"address"`
	Verify  bool   `yaml:"verify"`
	// Port names a serial port for the SHDLC interface. The sensor is read
	// over i2c when empty.
	Port string `yaml:"port"`
}

// AlertConfig holds the CO2 thresholds in ppm.
type AlertConfig struct {
	Warning1 float32 `yaml:"warning1"`
	Warning2 float32 `yaml:"warning2"`
	Limit    float32 `yaml:"limit"`
}

type TimingConfig struct {
	Boot    time.Duration `yaml:"boot"`
	Poll    time.Duration `yaml:"poll"`
	Display time.Duration `yaml:"display"`
	Button  time.Duration `yaml:"button"`
}

// PinConfig names the GPIO pins as known to gpioreg.
type PinConfig struct {
	// Indicator selects "rgb" for the LED on Red, Green and Blue, or
	// "console" to print the alert colour to the terminal.
	Indicator string   `yaml:"indicator"`
	Red       string   `yaml:"red"`
	Green     string   `yaml:"green"`
	Blue      string   `yaml:"blue"`
	Buzzer    string   `yaml:"buzzer"`
	Buttons   []string `yaml:"buttons"`
}

// DisplayConfig selects where the panel is drawn: the Waveshare e-paper
// display or a stream served over HTTP.
type DisplayConfig struct {
	Enabled bool `yaml:"enabled"`
	// Driver is "videosink" or "epaper".
	Driver string `yaml:"driver"`
	// Addr is the videosink listen address.
	Addr   string `yaml:"addr"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// SPI names the e-paper SPI port; empty picks the first one.
	SPI  string `yaml:"spi"`
	DC   string `yaml:"dc"`
	CS   string `yaml:"cs"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// MQTTConfig configures telemetry publishing. An empty Broker disables it.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
	Prefix string `yaml:"prefix"`
	// ClientID defaults to the protected machine id.
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Sensor: SensorConfig{
			Address:  0x61,
			Verify:   true,
			Interval: 4,
			Pressure: 1012,
		},
		Particulate: ParticulateConfig{
			Address: 0x69,
			Verify:  true,
		},
		Alert: AlertConfig{
			Warning1: 500,
			Warning2: 700,
			Limit:    1000,
		},
		Timing: TimingConfig{
			Boot:    100 * time.Millisecond,
			Poll:    5 * time.Second,
			Display: 30 * time.Second,
			Button:  5 * time.Millisecond,
		},
		Pins: PinConfig{
			Indicator: "rgb",
			Red:       "GPIO23",
			Green:     "GPIO27",
			Blue:      "GPIO22",
			Buzzer:    "GPIO18",
			Buttons:   []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"},
		},
		Display: DisplayConfig{
			Driver: "videosink",
			Addr:   ":8081",
			Width:  400,
			Height: 300,
			// Waveshare HAT wiring.
			DC:   "GPIO25",
			CS:   "GPIO8",
			RST:  "GPIO17",
			Busy: "GPIO24",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		MQTT: MQTTConfig{
			Prefix: "airsense",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over Default and validates the result. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the values are usable.
func (c *Config) Validate() error {
	a := c.Alert
	if !(a.Warning1 < a.Warning2 && a.Warning2 < a.Limit) {
		return fmt.Errorf("config: alert thresholds must increase: %g, %g, %g", a.Warning1, a.Warning2, a.Limit)
	}
	for name, d := range map[string]time.Duration{
		"poll":    c.Timing.Poll,
		"display": c.Timing.Display,
		"button":  c.Timing.Button,
	} {
		if d <= 0 {
			return fmt.Errorf("config: timing.%s must be positive, got %s", name, d)
		}
	}
	if c.Timing.Boot < 0 {
		return fmt.Errorf("config: timing.boot must not be negative, got %s", c.Timing.Boot)
	}
	if c.Sensor.Address > 0x7f {
		return fmt.Errorf("config: invalid sensor address 0x%x", c.Sensor.Address)
	}
	if c.Particulate.Address > 0x7f {
		return fmt.Errorf("config: invalid particulate address 0x%x", c.Particulate.Address)
	}
	// Range accepted by the SCD30.
	if c.Sensor.Interval < 2 || c.Sensor.Interval > 1800 {
		return fmt.Errorf("config: sensor interval must be within [2, 1800], got %d", c.Sensor.Interval)
	}
	switch c.Pins.Indicator {
	case "rgb", "console":
	default:
		return fmt.Errorf("config: unknown indicator %q", c.Pins.Indicator)
	}
	if n := len(c.Pins.Buttons); n != 0 && n != 4 {
		return fmt.Errorf("config: expected 4 buttons, got %d", n)
	}
	if c.Display.Enabled {
		if err := c.validateDisplay(); err != nil {
			return err
		}
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("config: invalid mqtt qos %d", c.MQTT.QoS)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) validateDisplay() error {
	d := c.Display
	switch d.Driver {
	case "videosink":
		if d.Width <= 0 || d.Height <= 0 {
			return fmt.Errorf("config: invalid display size %dx%d", d.Width, d.Height)
		}
		return nil
	case "epaper":
	default:
		return fmt.Errorf("config: unknown display driver %q", d.Driver)
	}
	used := map[string]string{}
	claim := func(name, pin string) error {
		if pin == "" {
			return nil
		}
		if other, ok := used[pin]; ok {
			return fmt.Errorf("config: pin %s used by both %s and %s", pin, other, name)
		}
		used[pin] = name
		return nil
	}
	if c.Pins.Indicator == "rgb" {
		for _, p := range [][2]string{{"red", c.Pins.Red}, {"green", c.Pins.Green}, {"blue", c.Pins.Blue}} {
			if err := claim(p[0], p[1]); err != nil {
				return err
			}
		}
	}
	if err := claim("buzzer", c.Pins.Buzzer); err != nil {
		return err
	}
	for i, b := range c.Pins.Buttons {
		if err := claim(fmt.Sprintf("button %d", i+1), b); err != nil {
			return err
		}
	}
	for _, p := range [][2]string{{"display dc", d.DC}, {"display cs", d.CS}, {"display rst", d.RST}, {"display busy", d.Busy}} {
		if p[1] == "" {
			return fmt.Errorf("config: %s pin is required", p[0])
		}
		if err := claim(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// NewLogger returns a logger writing to w as configured.
func (l LogConfig) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(level)
	if l.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return log, nil
}
