// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the Sensirion SCD30 CO2 sensor module.
// The SCD30 measures CO2 concentration with an NDIR cell and reports it
// together with temperature and relative humidity as 32 bit floats.
//
// Every method is a single bus transaction. Errors from the bus are returned as
// *sensirion.TransportError and are never retried.
//
// Refer to the interface description for more information.
//
// https://sensirion.com/media/documents/D7CEEF4A/6165372F/Sensirion_CO2_Sensors_SCD30_Interface_Description.pdf
package scd30
