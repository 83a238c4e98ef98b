// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rgbled drives a common anode RGB LED from three GPIO pins. A pin
// driven Low lights its channel.
package rgbled

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/airsense/alert"
	"github.com/GermanBionicSystems/airsense/common"
)

// BlinkDuration is how long Blink shows white.
const BlinkDuration = 100 * time.Millisecond

const (
	on  = gpio.Low
	off = gpio.High
)

// Dev is an RGB LED.
type Dev struct {
	mu      sync.Mutex
	r, g, b gpio.PinOut
	// Last levels written, restored by Blink.
	lr, lg, lb gpio.Level
}

// New returns a Dev and switches all channels off.
func New(red, green, blue gpio.PinOut) (*Dev, error) {
	d := &Dev{r: red, g: green, b: blue}
	return d, d.Off()
}

func (d *Dev) set(r, g, b gpio.Level) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLocked(r, g, b)
}

func (d *Dev) setLocked(r, g, b gpio.Level) error {
	if err := d.r.Out(r); err != nil {
		return fmt.Errorf("rgbled: red: %w", err)
	}
	if err := d.g.Out(g); err != nil {
		return fmt.Errorf("rgbled: green: %w", err)
	}
	if err := d.b.Out(b); err != nil {
		return fmt.Errorf("rgbled: blue: %w", err)
	}
	d.lr, d.lg, d.lb = r, g, b
	return nil
}

// Off switches every channel off.
func (d *Dev) Off() error { return d.set(off, off, off) }

// Red shows red.
func (d *Dev) Red() error { return d.set(on, off, off) }

// Yellow shows red and green.
func (d *Dev) Yellow() error { return d.set(on, on, off) }

// Blue shows blue.
func (d *Dev) Blue() error { return d.set(off, off, on) }

// Green shows green.
func (d *Dev) Green() error { return d.set(off, on, off) }

// White shows every channel.
func (d *Dev) White() error { return d.set(on, on, on) }

// Blink shows white for BlinkDuration, then restores the previous colour.
func (d *Dev) Blink(delay common.Delayer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, g, b := d.lr, d.lg, d.lb
	if err := d.setLocked(on, on, on); err != nil {
		return err
	}
	common.Or(delay).Delay(BlinkDuration)
	return d.setLocked(r, g, b)
}

// Halt switches the LED off. Implements conn.Resource.
func (d *Dev) Halt() error {
	return d.Off()
}

func (d *Dev) String() string {
	return fmt.Sprintf("rgbled{%s, %s, %s}", d.r, d.g, d.b)
}

var _ alert.Indicator = &Dev{}
