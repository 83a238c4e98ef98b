// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package panel lays out the air quality screen and draws it onto any periph
// display.
//
// The layout targets a 400x300 e-paper panel but scales to any
// display.Drawer; text that does not fit is clipped.
package panel

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/airsense/units"
)

// Size is the size of a line of text.
type Size int

const (
	Small Size = iota
	Medium
	Large
)

// Readout is one screenful of data.
type Readout struct {
	CO2         float32 // ppm
	Temperature float32 // °C, converted to Unit on display
	Humidity    float32 // %RH
	Unit        units.Unit
	// Elapsed is the number of seconds since boot.
	Elapsed int
	// LastReading is the number of seconds since boot at which the last
	// measurement was retained.
	LastReading int
}

// Text is one line of text placed on the panel. X and Y are the top left
// corner.
type Text struct {
	S    string
	X, Y int
	Size Size
}

const readingOffset = 200

// Lines returns the text laid out for r.
func Lines(r Readout) []Text {
	return []Text{
		{S: "Air Quality", X: 20, Y: 30, Size: Large},
		{S: "Carbon Dioxide:", X: 20, Y: 90, Size: Medium},
		{S: "Temperature:", X: 20, Y: 130, Size: Medium},
		{S: "Humidity:", X: 20, Y: 170, Size: Medium},
		{S: "Counter:", X: 20, Y: 250, Size: Small},
		{S: "Last reading at:", X: 20, Y: 270, Size: Small},
		{S: number(r.CO2, "ppm"), X: 20 + readingOffset, Y: 90, Size: Medium},
		{S: number(r.Unit.Convert(r.Temperature), r.Unit.Symbol()), X: 20 + readingOffset, Y: 130, Size: Medium},
		{S: number(r.Humidity, "%"), X: 20 + readingOffset, Y: 170, Size: Medium},
		{S: elapsed(r.Elapsed), X: 20 + readingOffset, Y: 250, Size: Small},
		{S: elapsed(r.LastReading), X: 20 + readingOffset, Y: 270, Size: Small},
	}
}

// Panel renders readouts. It is safe for concurrent use only if the faces
// are; truetype faces are not, so use one Panel per goroutine.
type Panel struct {
	w, h  int
	faces [3]font.Face
}

// New returns a Panel rendering images of w by h pixels.
func New(w, h int) (*Panel, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("panel: invalid size %dx%d", w, h)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("panel: %w", err)
	}
	return &Panel{
		w: w,
		h: h,
		faces: [3]font.Face{
			Small:  basicfont.Face7x13,
			Medium: truetype.NewFace(f, &truetype.Options{Size: 16}),
			Large:  truetype.NewFace(f, &truetype.Options{Size: 32}),
		},
	}, nil
}

// Bounds returns the size of the rendered images.
func (p *Panel) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

// Render draws r in black on a white background.
func (p *Panel) Render(r Readout) image.Image {
	dc := gg.NewContext(p.w, p.h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	for _, t := range Lines(r) {
		dc.SetFontFace(p.faces[t.Size])
		dc.DrawStringAnchored(t.S, float64(t.X), float64(t.Y), 0, 1)
	}
	return dc.Image()
}

// Show renders r and draws it onto d, anchored at d's top left corner.
func (p *Panel) Show(d display.Drawer, r Readout) error {
	if err := d.Draw(d.Bounds(), p.Render(r), image.Point{}); err != nil {
		return fmt.Errorf("panel: %s: %w", d, err)
	}
	return nil
}

func number(v float32, unit string) string {
	return fmt.Sprintf("%.2f %s", v, unit)
}

func elapsed(seconds int) string {
	return fmt.Sprintf("%d seconds elapsed", seconds)
}
