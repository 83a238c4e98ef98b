// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epaper

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
}

func initDisplay(ctrl controller, opts *Opts) {
	ctrl.sendCommand(powerSetting)
	ctrl.sendData([]byte{0x03, 0x00, 0x2b, 0x2b, 0xff})

	ctrl.sendCommand(boosterSoftStart)
	ctrl.sendData([]byte{0x17, 0x17, 0x17})

	ctrl.sendCommand(powerOn)
	ctrl.waitUntilIdle()

	// Black and white, waveforms from OTP.
	ctrl.sendCommand(panelSetting)
	ctrl.sendData([]byte{0x1f})

	// 100Hz frame rate.
	ctrl.sendCommand(pllControl)
	ctrl.sendData([]byte{0x3a})

	configFrame(ctrl, opts)
}

func configFrame(ctrl controller, opts *Opts) {
	ctrl.sendCommand(resolutionSetting)
	ctrl.sendData([]byte{
		byte(opts.Width >> 8),
		byte(opts.Width),
		byte(opts.Height >> 8),
		byte(opts.Height),
	})

	ctrl.sendCommand(vcmDCSetting)
	ctrl.sendData([]byte{0x12})

	// White border.
	ctrl.sendCommand(vcomAndDataIntervalSetting)
	ctrl.sendData([]byte{0x97})
}

// updateFrame sends frame as the new image and refreshes the panel. The old
// image buffer is filled with background.
func updateFrame(ctrl controller, opts *Opts, background byte, frame []byte) {
	configFrame(ctrl, opts)

	ctrl.sendCommand(dataStartTransmission1)
	ctrl.sendData(fill(len(frame), background))

	ctrl.sendCommand(dataStartTransmission2)
	ctrl.sendData(frame)

	ctrl.sendCommand(displayRefresh)
	ctrl.waitUntilIdle()
}

func deepSleep(ctrl controller) {
	// Floating border.
	ctrl.sendCommand(vcomAndDataIntervalSetting)
	ctrl.sendData([]byte{0x17})

	ctrl.sendCommand(powerOff)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(deepSleepMode)
	ctrl.sendData([]byte{deepSleepCheck})
}

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
