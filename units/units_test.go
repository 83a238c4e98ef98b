// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package units

import (
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	for _, tc := range []struct {
		unit    Unit
		celsius float32
		want    float32
	}{
		{unit: Celsius, celsius: 21.3, want: 21.3},
		{unit: Fahrenheit, celsius: 100, want: 212},
		{unit: Fahrenheit, celsius: -40, want: -40},
		{unit: Kelvin, celsius: 0, want: 273.15},
		{unit: Kelvin, celsius: -273.15, want: 0},
	} {
		got := tc.unit.Convert(tc.celsius)
		if math.Abs(float64(got-tc.want)) > 1e-4 {
			t.Errorf("%s.Convert(%g)=%g expected %g", tc.unit, tc.celsius, got, tc.want)
		}
	}
}

func TestNext(t *testing.T) {
	u := Celsius
	var seen []string
	for range 4 {
		seen = append(seen, u.Symbol())
		u = u.Next()
	}
	want := []string{"°C", "°F", "K", "°C"}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("cycle %v expected %v", seen, want)
			break
		}
	}
}

func TestParse(t *testing.T) {
	for _, u := range []Unit{Celsius, Fahrenheit, Kelvin} {
		got, ok := Parse(u.String())
		if !ok || got != u {
			t.Errorf("Parse(%q)=%s,%t", u.String(), got, ok)
		}
	}
	if _, ok := Parse("rankine"); ok {
		t.Error("Parse(rankine) should fail")
	}
}
