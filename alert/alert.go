// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package alert classifies readings against three thresholds and drives a
// tri-colour indicator and an audible alarm.
//
// Above the limit the alarm sounds once per evaluation, at most MaxBursts
// times in a row. The count is only re-armed once a reading falls back to the
// nominal band; dropping to the warning bands does not reset it.
package alert

import "fmt"

// MaxBursts is the number of consecutive alarm bursts before the alarm stays
// silent.
const MaxBursts = 5

// Level is the severity of a reading.
type Level int

const (
	Green Level = iota
	Blue
	Yellow
	RedAlerting
)

func (l Level) String() string {
	switch l {
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case RedAlerting:
		return "red"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Colour is an indicator colour.
type Colour int

const (
	ColourOff Colour = iota
	ColourRed
	ColourYellow
	ColourBlue
	ColourGreen
	ColourWhite
)

func (c Colour) String() string {
	switch c {
	case ColourOff:
		return "off"
	case ColourRed:
		return "red"
	case ColourYellow:
		return "yellow"
	case ColourBlue:
		return "blue"
	case ColourGreen:
		return "green"
	case ColourWhite:
		return "white"
	default:
		return fmt.Sprintf("Colour(%d)", int(c))
	}
}

// colours maps a level to its indicator colour.
var colours = [...]Colour{
	Green:       ColourGreen,
	Blue:        ColourBlue,
	Yellow:      ColourYellow,
	RedAlerting: ColourRed,
}

// Effect is a side effect requested by Step.
type Effect struct {
	// Burst requests one alarm burst. If false, Indicate is set.
	Burst    bool
	Indicate Colour
}

// State is the persistent state of the alert machine. Thresholds must be
// ordered Warning1 < Warning2 < Limit; this is not checked.
type State struct {
	Warning1 float32
	Warning2 float32
	Limit    float32
	// BuzzerCount is the number of bursts sounded since the reading was last
	// nominal. Within [0, MaxBursts].
	BuzzerCount int
}

// Step classifies reading and returns the next state with the effects to
// apply, indicator first. Comparisons are strict: a reading equal to a
// threshold falls into the lower band.
func Step(s State, reading float32) (State, Level, []Effect) {
	var level Level
	switch {
	case reading > s.Limit:
		level = RedAlerting
	case reading > s.Warning2:
		level = Yellow
	case reading > s.Warning1:
		level = Blue
	default:
		level = Green
	}
	effects := []Effect{{Indicate: colours[level]}}
	switch level {
	case RedAlerting:
		if s.BuzzerCount < MaxBursts {
			effects = append(effects, Effect{Burst: true})
			s.BuzzerCount++
		}
	case Green:
		s.BuzzerCount = 0
	}
	return s, level, effects
}
