// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sps30 provides a driver for the Sensirion SPS30 particulate matter
// sensor.
//
// The sensor talks either I2C (Dev) or SHDLC framed UART (UART). Only the
// PM1.0 and PM2.5 mass concentrations are decoded from a measurement; the
// other channels are on the wire but not exposed.
//
// # Datasheet
//
// https://sensirion.com/media/documents/8600FF88/616542B5/Sensirion_PM_Sensors_Datasheet_SPS30.pdf
package sps30
