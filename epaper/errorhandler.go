// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package epaper

import (
	"periph.io/x/conn/v3/gpio"
)

// errorHandler is a wrapper for error management.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) dcOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.dc.Out(l)
}

func (eh *errorHandler) csOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.cs.Out(l)
}

// cTx splits w in chunks the connection accepts.
func (eh *errorHandler) cTx(w []byte) {
	for len(w) > 0 && eh.err == nil {
		n := min(len(w), eh.d.maxTxSize)
		eh.err = eh.d.c.Tx(w[:n], nil)
		w = w[n:]
	}
}

// waitUntilIdle polls the busy line, which the panel pulls low while it is
// working.
func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil {
		return
	}
	for i := 0; eh.d.busy.Read() == gpio.Low; i++ {
		if i == busyPolls {
			eh.err = errBusy
			return
		}
		eh.d.delay.Delay(busyPoll)
	}
}

func (eh *errorHandler) sendCommand(cmd byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.Low)
	eh.csOut(gpio.Low)
	eh.cTx([]byte{cmd})
	eh.csOut(gpio.High)
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}

	eh.dcOut(gpio.High)
	eh.csOut(gpio.Low)
	eh.cTx(data)
	eh.csOut(gpio.High)
}
