// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package alert

import (
	"errors"
	"fmt"
)

// Indicator is a tri-colour light.
type Indicator interface {
	Red() error
	Yellow() error
	Blue() error
	Green() error
	White() error
	Off() error
}

// Sounder produces one audible alarm burst. Burst blocks until the burst is
// over.
type Sounder interface {
	Burst() error
}

// Machine owns the alert state across evaluations. It is not safe for
// concurrent use.
type Machine struct {
	state State
	level Level
}

// New returns a Machine with the given thresholds.
func New(warning1, warning2, limit float32) *Machine {
	return &Machine{state: State{Warning1: warning1, Warning2: warning2, Limit: limit}}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.state
}

// Level returns the level of the last evaluation.
func (m *Machine) Level() Level {
	return m.level
}

// Check evaluates reading and applies the resulting effects to the indicator
// and sounder. The state advances even if an output fails, and every effect is
// applied regardless of earlier failures so a broken light never silences the
// sounder.
func (m *Machine) Check(reading float32, ind Indicator, snd Sounder) (Level, error) {
	var effects []Effect
	m.state, m.level, effects = Step(m.state, reading)
	var errs []error
	for _, e := range effects {
		var err error
		if e.Burst {
			err = snd.Burst()
		} else {
			err = Apply(ind, e.Indicate)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return m.level, fmt.Errorf("alert: %w", err)
	}
	return m.level, nil
}

// Apply sets ind to colour c.
func Apply(ind Indicator, c Colour) error {
	switch c {
	case ColourRed:
		return ind.Red()
	case ColourYellow:
		return ind.Yellow()
	case ColourBlue:
		return ind.Blue()
	case ColourGreen:
		return ind.Green()
	case ColourWhite:
		return ind.White()
	default:
		return ind.Off()
	}
}
