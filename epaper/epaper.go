// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epaper

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3/rpi"

	"github.com/GermanBionicSystems/airsense/common"
)

// Commands
const (
	panelSetting               byte = 0x00
	powerSetting               byte = 0x01
	powerOff                   byte = 0x02
	powerOn                    byte = 0x04
	boosterSoftStart           byte = 0x06
	deepSleepMode              byte = 0x07
	dataStartTransmission1     byte = 0x10
	displayRefresh             byte = 0x12
	dataStartTransmission2     byte = 0x13
	pllControl                 byte = 0x30
	vcomAndDataIntervalSetting byte = 0x50
	resolutionSetting          byte = 0x61
	vcmDCSetting               byte = 0x82

	// Argument required by deepSleepMode.
	deepSleepCheck byte = 0xa5
)

// Frame bytes.
const (
	White byte = 0xff
	Black byte = 0x00
)

const (
	resetPulse = 10 * time.Millisecond
	busyPoll   = 100 * time.Millisecond
	// A full refresh takes about 4s.
	busyPolls = 150

	// Used when the connection does not report conn.Limits.
	defaultMaxTxSize = 4096
)

var errBusy = errors.New("epaper: display stays busy")

// Opts defines the structure of the display configuration.
type Opts struct {
	Width  int
	Height int
	// Delay defaults to common.Sleep.
	Delay common.Delayer
}

// EPD4in2 contains the display configuration for the Waveshare 4.2 inch
// panel.
var EPD4in2 = Opts{
	Width:  400,
	Height: 300,
}

// Dev defines the handler which is used to access the display.
type Dev struct {
	mu sync.Mutex

	c         conn.Conn
	maxTxSize int

	dc   gpio.PinOut
	cs   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	delay common.Delayer
	opts  Opts
}

// New creates new handler which is used to access the display. Call Init
// before drawing.
func New(p spi.Port, dc, cs, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width%8 != 0 {
		return nil, fmt.Errorf("epaper: invalid size %dx%d", opts.Width, opts.Height)
	}
	c, err := p.Connect(5*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, err
	}
	size := defaultMaxTxSize
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		size = l.MaxTxSize()
	}
	return &Dev{
		c:         c,
		maxTxSize: size,
		dc:        dc,
		cs:        cs,
		rst:       rst,
		busy:      busy,
		delay:     common.Or(opts.Delay),
		opts:      *opts,
	}, nil
}

// NewHat creates new handler which is used to access the display. Default
// Waveshare Hat configuration is used.
func NewHat(p spi.Port, opts *Opts) (*Dev, error) {
	dc := rpi.P1_22
	cs := rpi.P1_24
	rst := rpi.P1_11
	busy := rpi.P1_18
	return New(p, dc, cs, rst, busy, opts)
}

// Init resets the display and powers it on.
func (d *Dev) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	eh := errorHandler{d: d}
	eh.rstOut(gpio.High)
	d.delay.Delay(resetPulse)
	eh.rstOut(gpio.Low)
	d.delay.Delay(resetPulse)
	eh.rstOut(gpio.High)
	d.delay.Delay(resetPulse)

	initDisplay(&eh, &d.opts)
	return eh.err
}

// Clear fills the display with color, White or Black.
func (d *Dev) Clear(color byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.update(fill(d.frameSize(), color))
}

// ColorModel returns a 1Bit color model.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds returns the bounds for the configured display.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.opts.Width, d.opts.Height)
}

// Draw draws the given image to the display and refreshes it. The area out
// of dstRect is white.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	next := image1bit.NewVerticalLSB(d.Bounds())
	draw.Src.Draw(next, next.Bounds(), &image.Uniform{C: image1bit.On}, image.Point{})
	draw.Src.Draw(next, dstRect.Intersect(d.Bounds()), src, srcPts)

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.update(d.pack(next))
}

// Sleep puts the display in deep sleep. Init wakes it up.
func (d *Dev) Sleep() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	eh := errorHandler{d: d}
	deepSleep(&eh)
	return eh.err
}

// Halt clears the display and puts it to sleep.
func (d *Dev) Halt() error {
	if err := d.Clear(White); err != nil {
		return err
	}
	return d.Sleep()
}

// String returns a string containing configuration information.
func (d *Dev) String() string {
	return fmt.Sprintf("epd.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.opts.Width, d.opts.Height)
}

func (d *Dev) update(frame []byte) error {
	eh := errorHandler{d: d}
	updateFrame(&eh, &d.opts, White, frame)
	return eh.err
}

func (d *Dev) frameSize() int {
	return d.opts.Width / 8 * d.opts.Height
}

// pack converts img to the panel memory layout: rows top to bottom, 8 pixels
// per byte with the leftmost in the MSB, a set bit being white.
func (d *Dev) pack(img *image1bit.VerticalLSB) []byte {
	cols := d.opts.Width / 8
	out := make([]byte, d.frameSize())
	for y := 0; y < d.opts.Height; y++ {
		for x := 0; x < cols; x++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				if img.BitAt(x*8+bit, y) {
					b |= 0x80 >> bit
				}
			}
			out[y*cols+x] = b
		}
	}
	return out
}

var _ display.Drawer = &Dev{}
