// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package epaper controls the Waveshare 4.2 inch black and white e-Paper
// display, 400x300 pixels driven over SPI.
//
// Datasheets
//
// https://www.waveshare.com/w/upload/6/6a/4.2inch-e-paper-specification.pdf
//
// Product page:
//
// https://www.waveshare.com/wiki/4.2inch_e-Paper_Module
package epaper
