// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package units converts temperatures between the display units an operator
// can cycle through.
package units

// Unit is a temperature display unit.
type Unit int

const (
	Celsius Unit = iota
	Fahrenheit
	Kelvin
)

// Next returns the unit the operator button switches to:
// Celsius, Fahrenheit, Kelvin, then back to Celsius.
func (u Unit) Next() Unit {
	switch u {
	case Celsius:
		return Fahrenheit
	case Fahrenheit:
		return Kelvin
	default:
		return Celsius
	}
}

// Symbol returns the unit symbol.
func (u Unit) Symbol() string {
	switch u {
	case Fahrenheit:
		return "°F"
	case Kelvin:
		return "K"
	default:
		return "°C"
	}
}

func (u Unit) String() string {
	switch u {
	case Fahrenheit:
		return "fahrenheit"
	case Kelvin:
		return "kelvin"
	default:
		return "celsius"
	}
}

// Convert converts a temperature in °C to u.
func (u Unit) Convert(celsius float32) float32 {
	switch u {
	case Fahrenheit:
		return celsius*9/5 + 32
	case Kelvin:
		return celsius + 273.15
	default:
		return celsius
	}
}

// Parse returns the unit named s, as produced by String. ok is false for an
// unknown name.
func Parse(s string) (u Unit, ok bool) {
	switch s {
	case "celsius", "c", "C":
		return Celsius, true
	case "fahrenheit", "f", "F":
		return Fahrenheit, true
	case "kelvin", "k", "K":
		return Kelvin, true
	}
	return Celsius, false
}
