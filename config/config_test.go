// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, AlertConfig{Warning1: 500, Warning2: 700, Limit: 1000}, c.Alert)
	assert.Equal(t, 5*time.Second, c.Timing.Poll)
	assert.Equal(t, 30*time.Second, c.Timing.Display)
	assert.Equal(t, 5*time.Millisecond, c.Timing.Button)
	assert.Equal(t, uint16(0x61), c.Sensor.Address)
	assert.Equal(t, uint16(1012), c.Sensor.Pressure)
	assert.Equal(t, uint16(4), c.Sensor.Interval)
	assert.False(t, c.Particulate.Enabled)
	assert.Len(t, c.Pins.Buttons, 4)
	assert.Equal(t, "videosink", c.Display.Driver)

	// The e-paper HAT wiring fits next to the default pins.
	c.Display.Enabled = true
	c.Display.Driver = "epaper"
	require.NoError(t, c.Validate())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
sensor:
  address: 0x62
  fail_on_boot_error: true
alert:
  warning1: 600
  warning2: 800
  limit: 1200
timing:
  poll: 2s
pins:
  indicator: console
mqtt:
  broker: tcp://localhost:1883
log:
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x62), c.Sensor.Address)
	assert.True(t, c.Sensor.FailOnBootError)
	assert.Equal(t, float32(1200), c.Alert.Limit)
	assert.Equal(t, 2*time.Second, c.Timing.Poll)
	assert.Equal(t, "console", c.Pins.Indicator)
	assert.Equal(t, "tcp://localhost:1883", c.MQTT.Broker)
	assert.Equal(t, "json", c.Log.Format)
	// Untouched keys keep their default.
	assert.Equal(t, 30*time.Second, c.Timing.Display)
	assert.Equal(t, uint16(1012), c.Sensor.Pressure)
	assert.Equal(t, "airsense", c.MQTT.Prefix)
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{"unknown key", "sensor:\n  adress: 0x61\n"},
		{"syntax", "alert: [\n"},
		{"thresholds", "alert:\n  warning1: 700\n  warning2: 700\n"},
		{"poll", "timing:\n  poll: 0s\n"},
		{"button", "timing:\n  button: -1ms\n"},
		{"address", "sensor:\n  address: 0x80\n"},
		{"interval", "sensor:\n  interval: 1\n"},
		{"indicator", "pins:\n  indicator: lamp\n"},
		{"buttons", "pins:\n  buttons: [GPIO1]\n"},
		{"display", "display:\n  enabled: true\n  width: 0\n"},
		{"display driver", "display:\n  enabled: true\n  driver: oled\n"},
		{"epaper pin", "display:\n  enabled: true\n  driver: epaper\n  busy: \"\"\n"},
		{"epaper collision", "display:\n  enabled: true\n  driver: epaper\n  dc: GPIO18\n"},
		{"qos", "mqtt:\n  qos: 3\n"},
		{"level", "log:\n  level: loud\n"},
		{"format", "log:\n  format: xml\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte("particulate:\n  enabled: true\n  port: /dev/ttyS0\n"), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Particulate.Enabled)
	assert.Equal(t, "/dev/ttyS0", c.Particulate.Port)
	assert.Equal(t, uint16(0x69), c.Particulate.Address)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := LogConfig{Level: "debug", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	log.WithField("co2", 412.5).Info("reading")
	assert.Contains(t, buf.String(), `"co2":412.5`)

	_, err = LogConfig{Level: "nope"}.NewLogger(&buf)
	require.Error(t, err)
}
