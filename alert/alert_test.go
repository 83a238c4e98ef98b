// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package alert

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// recorder implements Indicator and Sounder and logs every call.
type recorder struct {
	calls []string
	err   error
}

func (r *recorder) log(s string) error {
	r.calls = append(r.calls, s)
	return r.err
}

func (r *recorder) Red() error    { return r.log("red") }
func (r *recorder) Yellow() error { return r.log("yellow") }
func (r *recorder) Blue() error   { return r.log("blue") }
func (r *recorder) Green() error  { return r.log("green") }
func (r *recorder) White() error  { return r.log("white") }
func (r *recorder) Off() error    { return r.log("off") }
func (r *recorder) Burst() error  { return r.log("burst") }

var initial = State{Warning1: 500, Warning2: 700, Limit: 1000}

func TestStepBands(t *testing.T) {
	for _, tc := range []struct {
		reading float32
		level   Level
		colour  Colour
	}{
		{reading: 0, level: Green, colour: ColourGreen},
		{reading: 499, level: Green, colour: ColourGreen},
		{reading: 500, level: Green, colour: ColourGreen},
		{reading: 501, level: Blue, colour: ColourBlue},
		{reading: 700, level: Blue, colour: ColourBlue},
		{reading: 701, level: Yellow, colour: ColourYellow},
		{reading: 1000, level: Yellow, colour: ColourYellow},
		{reading: 1001, level: RedAlerting, colour: ColourRed},
	} {
		_, level, effects := Step(initial, tc.reading)
		if level != tc.level {
			t.Errorf("Step(%g) level %s expected %s", tc.reading, level, tc.level)
		}
		if len(effects) == 0 || effects[0].Burst || effects[0].Indicate != tc.colour {
			t.Errorf("Step(%g) effects %#v expected indicator %s first", tc.reading, effects, tc.colour)
		}
	}
}

func TestStepBurstCap(t *testing.T) {
	s := initial
	for i := 1; i <= 7; i++ {
		var effects []Effect
		s, _, effects = Step(s, 1001)
		wantBurst := i <= MaxBursts
		gotBurst := len(effects) == 2 && effects[1].Burst
		if gotBurst != wantBurst {
			t.Errorf("evaluation %d: burst=%t expected %t", i, gotBurst, wantBurst)
		}
		want := min(i, MaxBursts)
		if s.BuzzerCount != want {
			t.Errorf("evaluation %d: BuzzerCount=%d expected %d", i, s.BuzzerCount, want)
		}
	}
}

func TestStepReset(t *testing.T) {
	s := initial
	s, _, _ = Step(s, 1001)
	s, _, _ = Step(s, 1500)
	if s.BuzzerCount != 2 {
		t.Fatalf("BuzzerCount=%d expected 2", s.BuzzerCount)
	}
	// Partial recovery keeps the count.
	s, level, _ := Step(s, 800)
	if level != Yellow || s.BuzzerCount != 2 {
		t.Errorf("after 800: level %s count %d, expected yellow and 2", level, s.BuzzerCount)
	}
	s, level, _ = Step(s, 600)
	if level != Blue || s.BuzzerCount != 2 {
		t.Errorf("after 600: level %s count %d, expected blue and 2", level, s.BuzzerCount)
	}
	s, level, _ = Step(s, 100)
	if level != Green || s.BuzzerCount != 0 {
		t.Errorf("after 100: level %s count %d, expected green and 0", level, s.BuzzerCount)
	}
	if s.Warning1 != 500 || s.Warning2 != 700 || s.Limit != 1000 {
		t.Errorf("thresholds changed: %#v", s)
	}
}

func TestMachineCheck(t *testing.T) {
	m := New(500, 700, 1000)
	out := &recorder{}
	readings := []float32{499, 501, 701, 1001, 1001, 1001, 1001, 1001, 1001, 800, 1001, 100, 1001}
	for _, r := range readings {
		if _, err := m.Check(r, out, out); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{
		"green", "blue", "yellow",
		"red", "burst", "red", "burst", "red", "burst", "red", "burst", "red", "burst",
		"red",
		"yellow",
		"red",
		"green",
		"red", "burst",
	}
	if diff := cmp.Diff(out.calls, want); diff != "" {
		t.Errorf("output calls difference (-got +want):\n%s", diff)
	}
	if m.State().BuzzerCount != 1 || m.Level() != RedAlerting {
		t.Errorf("final state %#v level %s", m.State(), m.Level())
	}
}

func TestMachineOutputError(t *testing.T) {
	m := New(500, 700, 1000)
	out := &recorder{err: errors.New("pin stuck")}
	level, err := m.Check(1001, out, out)
	if !errors.Is(err, out.err) {
		t.Fatalf("expected %v, got %v", out.err, err)
	}
	if level != RedAlerting || m.State().BuzzerCount != 1 {
		t.Errorf("state should advance on output error: %s %#v", level, m.State())
	}
	// The burst is still attempted after the indicator failed.
	if diff := cmp.Diff(out.calls, []string{"red", "burst"}); diff != "" {
		t.Errorf("calls difference (-got +want):\n%s", diff)
	}
}

// stuckLight fails every colour change.
type stuckLight struct{ recorder }

func (s *stuckLight) Red() error { return errors.New("pin stuck") }

func TestMachineStuckLightStillSounds(t *testing.T) {
	m := New(500, 700, 1000)
	light := &stuckLight{}
	snd := &recorder{}
	for range 8 {
		if _, err := m.Check(1500, light, snd); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := m.State().BuzzerCount; got != MaxBursts {
		t.Fatalf("BuzzerCount = %d", got)
	}
	if len(snd.calls) != MaxBursts {
		t.Errorf("bursts sounded = %d, expected one per count increment", len(snd.calls))
	}
}

func TestApply(t *testing.T) {
	out := &recorder{}
	for _, c := range []Colour{ColourOff, ColourRed, ColourYellow, ColourBlue, ColourGreen, ColourWhite} {
		if err := Apply(out, c); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff(out.calls, []string{"off", "red", "yellow", "blue", "green", "white"}); diff != "" {
		t.Errorf("calls difference (-got +want):\n%s", diff)
	}
}
