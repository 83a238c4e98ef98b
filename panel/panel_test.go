// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package panel

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/airsense/units"
)

func TestLines(t *testing.T) {
	r := Readout{CO2: 412.5, Temperature: 21.3, Humidity: 45, Unit: units.Celsius, Elapsed: 60, LastReading: 30}
	var got []string
	for _, l := range Lines(r) {
		if l.Y < 0 || l.X < 0 {
			t.Errorf("%q placed off panel at %d,%d", l.S, l.X, l.Y)
		}
		got = append(got, l.S)
	}
	want := []string{
		"Air Quality",
		"Carbon Dioxide:",
		"Temperature:",
		"Humidity:",
		"Counter:",
		"Last reading at:",
		"412.50 ppm",
		"21.30 °C",
		"45.00 %",
		"60 seconds elapsed",
		"30 seconds elapsed",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Lines() mismatch (-want +got):\n%s", diff)
	}
}

func TestLinesUnit(t *testing.T) {
	for _, tc := range []struct {
		unit units.Unit
		want string
	}{
		{units.Celsius, "20.00 °C"},
		{units.Fahrenheit, "68.00 °F"},
		{units.Kelvin, "293.15 K"},
	} {
		l := Lines(Readout{Temperature: 20, Unit: tc.unit})
		if got := l[7].S; got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.unit, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New(0, 300); err == nil {
		t.Fatal("expected error on empty panel")
	}
	p, err := New(400, 300)
	if err != nil {
		t.Fatal(err)
	}
	if b := p.Bounds(); b != image.Rect(0, 0, 400, 300) {
		t.Fatalf("Bounds()=%v", b)
	}
}

func TestRender(t *testing.T) {
	p, err := New(400, 300)
	if err != nil {
		t.Fatal(err)
	}
	img := p.Render(Readout{CO2: 412.5})
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if !isWhite(img.At(0, 0)) {
		t.Error("expected white background")
	}
	if !hasInk(img, image.Rect(20, 30, 220, 70)) {
		t.Error("expected title to be drawn")
	}
	if hasInk(img, image.Rect(0, 200, 15, 300)) {
		t.Error("expected left margin to be empty")
	}
}

func TestShow(t *testing.T) {
	p, err := New(400, 300)
	if err != nil {
		t.Fatal(err)
	}
	d := &fakeDrawer{bounds: image.Rect(0, 0, 400, 300)}
	if err := p.Show(d, Readout{}); err != nil {
		t.Fatal(err)
	}
	if d.draws != 1 || d.last == nil {
		t.Fatalf("expected one draw, got %d", d.draws)
	}
	d.err = errors.New("spi failure")
	if err := p.Show(d, Readout{}); !errors.Is(err, d.err) {
		t.Fatalf("expected wrapped draw error, got %v", err)
	}
}

func isWhite(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func hasInk(img image.Image, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !isWhite(img.At(x, y)) {
				return true
			}
		}
	}
	return false
}

type fakeDrawer struct {
	bounds image.Rectangle
	draws  int
	last   image.Image
	err    error
}

func (f *fakeDrawer) String() string          { return "fake" }
func (f *fakeDrawer) Halt() error             { return nil }
func (f *fakeDrawer) ColorModel() color.Model { return color.GrayModel }
func (f *fakeDrawer) Bounds() image.Rectangle { return f.bounds }

func (f *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if f.err != nil {
		return f.err
	}
	f.draws++
	f.last = src
	return nil
}
