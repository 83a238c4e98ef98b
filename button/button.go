// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package button polls a push button wired between a GPIO pin and ground.
package button

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Dev is a push button. The pin is pulled up, so a pressed button reads Low.
type Dev struct {
	pin        gpio.PinIn
	wasPressed bool
}

// New configures pin as a pulled up input.
func New(pin gpio.PinIn) (*Dev, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("button: %w", err)
	}
	return &Dev{pin: pin}, nil
}

// Pressed reports whether the button is held down.
func (d *Dev) Pressed() bool {
	return d.pin.Read() == gpio.Low
}

// Released reports true once when the button goes up after having been seen
// pressed by a previous call. Call it at a fixed polling rate.
func (d *Dev) Released() bool {
	pressed := d.Pressed()
	released := d.wasPressed && !pressed
	d.wasPressed = pressed
	return released
}

func (d *Dev) String() string {
	return fmt.Sprintf("button{%s}", d.pin)
}
