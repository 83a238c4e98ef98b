// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epaper

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/GermanBionicSystems/airsense/common"
)

// ops returns the SPI writes issued for records, data split at
// defaultMaxTxSize.
func ops(records ...record) []conntest.IO {
	var out []conntest.IO
	for _, r := range records {
		out = append(out, conntest.IO{W: []byte{r.cmd}})
		for data := r.data; len(data) > 0; {
			n := min(len(data), defaultMaxTxSize)
			out = append(out, conntest.IO{W: data[:n]})
			data = data[n:]
		}
	}
	return out
}

type fixture struct {
	dev    *Dev
	pb     *spitest.Playback
	dc     *gpiotest.Pin
	cs     *gpiotest.Pin
	rst    *gpiotest.Pin
	busy   *gpiotest.Pin
	delays *common.DelayRecorder
}

func newFixture(t *testing.T, ops []conntest.IO) *fixture {
	f := &fixture{
		pb:     &spitest.Playback{Playback: conntest.Playback{Ops: ops, DontPanic: true}},
		dc:     &gpiotest.Pin{N: "DC"},
		cs:     &gpiotest.Pin{N: "CS"},
		rst:    &gpiotest.Pin{N: "RST"},
		busy:   &gpiotest.Pin{N: "BUSY", L: gpio.High},
		delays: &common.DelayRecorder{},
	}
	opts := EPD4in2
	opts.Delay = f.delays
	dev, err := New(f.pb, f.dc, f.cs, f.rst, f.busy, &opts)
	if err != nil {
		t.Fatal(err)
	}
	f.dev = dev
	return f
}

func (f *fixture) done(t *testing.T) {
	if err := f.pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestNew(t *testing.T) {
	f := newFixture(t, nil)
	if diff := cmp.Diff(f.dev.String(), "epd.Dev{playback, DC(0), Width: 400, Height: 300}"); diff != "" {
		t.Errorf("String() difference (-got +want):\n%s", diff)
	}
	if diff := cmp.Diff(f.dev.Bounds(), image.Rect(0, 0, 400, 300)); diff != "" {
		t.Errorf("Bounds() difference (-got +want):\n%s", diff)
	}

	for _, opts := range []Opts{{}, {Width: 401, Height: 300}, {Width: 400}} {
		if _, err := New(&spitest.Playback{}, f.dc, f.cs, f.rst, f.busy, &opts); err == nil {
			t.Errorf("New(%dx%d) expected error", opts.Width, opts.Height)
		}
	}
}

func TestInit(t *testing.T) {
	want := []record{
		{cmd: powerSetting, data: []byte{0x03, 0x00, 0x2b, 0x2b, 0xff}},
		{cmd: boosterSoftStart, data: []byte{0x17, 0x17, 0x17}},
		{cmd: powerOn},
		{cmd: panelSetting, data: []byte{0x1f}},
		{cmd: pllControl, data: []byte{0x3a}},
	}
	f := newFixture(t, ops(append(want, frameRecords...)...))
	if err := f.dev.Init(); err != nil {
		t.Fatal(err)
	}
	f.done(t)
	if f.rst.L != gpio.High || f.cs.L != gpio.High || f.dc.L != gpio.High {
		t.Errorf("pins left at rst=%s cs=%s dc=%s", f.rst.L, f.cs.L, f.dc.L)
	}
	if diff := cmp.Diff(f.delays.Delays, []time.Duration{resetPulse, resetPulse, resetPulse}); diff != "" {
		t.Errorf("delays difference (-got +want):\n%s", diff)
	}
}

func TestDraw(t *testing.T) {
	// Black 8 pixel run at the top left of a white image.
	src := image.NewGray(image.Rect(0, 0, 400, 300))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	for x := 0; x < 8; x++ {
		src.SetGray(x, 0, color.Gray{})
	}
	frame := fill(400/8*300, White)
	frame[0] = Black

	records := append([]record{}, frameRecords...)
	records = append(records,
		record{cmd: dataStartTransmission1, data: fill(len(frame), White)},
		record{cmd: dataStartTransmission2, data: frame},
		record{cmd: displayRefresh},
	)
	f := newFixture(t, ops(records...))
	if err := f.dev.Draw(f.dev.Bounds(), src, image.Point{}); err != nil {
		t.Fatal(err)
	}
	f.done(t)
}

func TestHalt(t *testing.T) {
	records := append([]record{}, frameRecords...)
	records = append(records,
		record{cmd: dataStartTransmission1, data: fill(400/8*300, White)},
		record{cmd: dataStartTransmission2, data: fill(400/8*300, White)},
		record{cmd: displayRefresh},
		record{cmd: vcomAndDataIntervalSetting, data: []byte{0x17}},
		record{cmd: powerOff},
		record{cmd: deepSleepMode, data: []byte{deepSleepCheck}},
	)
	f := newFixture(t, ops(records...))
	if err := f.dev.Halt(); err != nil {
		t.Fatal(err)
	}
	f.done(t)
}

func TestBusyTimeout(t *testing.T) {
	f := newFixture(t, ops(
		record{cmd: vcomAndDataIntervalSetting, data: []byte{0x17}},
		record{cmd: powerOff},
	))
	f.busy.L = gpio.Low
	if err := f.dev.Sleep(); !errors.Is(err, errBusy) {
		t.Fatalf("expected errBusy, got %v", err)
	}
	if len(f.delays.Delays) != busyPolls || f.delays.Total() != busyPolls*busyPoll {
		t.Errorf("polled %d times for %s", len(f.delays.Delays), f.delays.Total())
	}
	f.done(t)
}

func TestBusError(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.dev.Init(); err == nil {
		t.Fatal("expected error from empty playback")
	}
}
