// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package airsense is a container for the packages of an indoor air quality
// monitor built on periph.
//
// The sensor drivers live in scd30 and sps30 and share the Sensirion framing
// of the sensirion package. The alert package holds the threshold state
// machine driving the outputs in rgbled, consoleled and buzzer. monitor ties
// them together and cmd/airsense runs it on a host.
package airsense
