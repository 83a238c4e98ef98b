// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package consoleled implements an alert indicator that outputs to a terminal
// using ANSI color codes.
//
// Useful on a host without an RGB LED wired, or to watch the alert state over
// ssh.
package consoleled

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/GermanBionicSystems/airsense/alert"
	"github.com/GermanBionicSystems/airsense/common"
	"github.com/GermanBionicSystems/airsense/rgbled"
)

// Opts represents the options available for this indicator.
type Opts struct {
	// Width is the number of blocks drawn. Defaults to 8.
	Width   int
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

var rgb = map[alert.Colour]color.NRGBA{
	alert.ColourOff:    {0, 0, 0, 255},
	alert.ColourRed:    {255, 0, 0, 255},
	alert.ColourYellow: {255, 255, 0, 255},
	alert.ColourBlue:   {0, 0, 255, 255},
	alert.ColourGreen:  {0, 255, 0, 255},
	alert.ColourWhite:  {255, 255, 255, 255},
}

// Dev is an indicator emulator that outputs to the console.
type Dev struct {
	mu      sync.Mutex
	w       io.Writer
	width   int
	palette ansi256.Palette
	colour  alert.Colour

	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	width := opts.Width
	if width <= 0 {
		width = 8
	}
	return &Dev{w: w, width: width, palette: *p}
}

func (d *Dev) String() string {
	return "ConsoleLED"
}

// Colour returns the colour currently shown.
func (d *Dev) Colour() alert.Colour {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.colour
}

// Red implements alert.Indicator.
func (d *Dev) Red() error { return d.show(alert.ColourRed) }

// Yellow implements alert.Indicator.
func (d *Dev) Yellow() error { return d.show(alert.ColourYellow) }

// Blue implements alert.Indicator.
func (d *Dev) Blue() error { return d.show(alert.ColourBlue) }

// Green implements alert.Indicator.
func (d *Dev) Green() error { return d.show(alert.ColourGreen) }

// White implements alert.Indicator.
func (d *Dev) White() error { return d.show(alert.ColourWhite) }

// Off implements alert.Indicator.
func (d *Dev) Off() error { return d.show(alert.ColourOff) }

// Blink shows white for rgbled.BlinkDuration, then restores the previous
// colour.
func (d *Dev) Blink(delay common.Delayer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.colour
	if err := d.showLocked(alert.ColourWhite); err != nil {
		return err
	}
	common.Or(delay).Delay(rgbled.BlinkDuration)
	return d.showLocked(prev)
}

// Halt implements conn.Resource.
//
// It resets the terminal colours so it is not corrupted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

func (d *Dev) show(c alert.Colour) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.showLocked(c)
}

func (d *Dev) showLocked(c alert.Colour) error {
	d.colour = c
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	block := d.palette.Block(rgb[c])
	for range d.width {
		_, _ = io.WriteString(&d.buf, block)
	}
	_, _ = fmt.Fprintf(&d.buf, "\033[0m %-6s", c)
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ alert.Indicator = &Dev{}
var _ fmt.Stringer = &Dev{}
