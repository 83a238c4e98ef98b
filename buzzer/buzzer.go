// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package buzzer drives a passive piezo buzzer from a GPIO pin by toggling
// it in software.
package buzzer

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/airsense/alert"
	"github.com/GermanBionicSystems/airsense/common"
)

const (
	// Pulses is the number of low/high periods in one burst.
	Pulses = 249
	// HalfPeriod is the time spent at each level, giving a tone of about
	// 167Hz.
	HalfPeriod = 3 * time.Millisecond
	// BurstDuration is the total blocking time of Burst.
	BurstDuration = Pulses * 2 * HalfPeriod
)

// Dev is a buzzer on a GPIO pin.
type Dev struct {
	mu    sync.Mutex
	pin   gpio.PinOut
	delay common.Delayer
}

// New returns a buzzer on pin, initially silent. delay paces the pulse train;
// nil means wall clock.
func New(pin gpio.PinOut, delay common.Delayer) (*Dev, error) {
	d := &Dev{pin: pin, delay: common.Or(delay)}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("buzzer: %w", err)
	}
	return d, nil
}

// Burst sounds one alarm burst. It blocks for BurstDuration and leaves the pin
// high.
func (d *Dev) Burst() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for range Pulses {
		if err := d.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("buzzer: %w", err)
		}
		d.delay.Delay(HalfPeriod)
		if err := d.pin.Out(gpio.High); err != nil {
			return fmt.Errorf("buzzer: %w", err)
		}
		d.delay.Delay(HalfPeriod)
	}
	return nil
}

// Halt silences the buzzer. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pin.Out(gpio.Low)
}

func (d *Dev) String() string {
	return fmt.Sprintf("buzzer{%s}", d.pin)
}

var _ alert.Sounder = &Dev{}
