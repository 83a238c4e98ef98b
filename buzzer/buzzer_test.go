// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package buzzer

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/GermanBionicSystems/airsense/common"
)

// countingPin counts level changes.
type countingPin struct {
	gpiotest.Pin
	lows, highs int
	failAfter   int
}

func (p *countingPin) Out(l gpio.Level) error {
	if p.failAfter > 0 && p.lows+p.highs >= p.failAfter {
		return errors.New("pin fault")
	}
	if l == gpio.Low {
		p.lows++
	} else {
		p.highs++
	}
	return p.Pin.Out(l)
}

func TestBurst(t *testing.T) {
	pin := &countingPin{}
	rec := &common.DelayRecorder{}
	d, err := New(pin, rec)
	if err != nil {
		t.Fatal(err)
	}
	if err = d.Burst(); err != nil {
		t.Fatal(err)
	}
	// One extra low from New.
	if pin.lows != Pulses+1 || pin.highs != Pulses {
		t.Errorf("lows=%d highs=%d expected %d and %d", pin.lows, pin.highs, Pulses+1, Pulses)
	}
	if len(rec.Delays) != 2*Pulses {
		t.Errorf("%d delays expected %d", len(rec.Delays), 2*Pulses)
	}
	if rec.Total() != BurstDuration {
		t.Errorf("burst lasted %s expected %s", rec.Total(), BurstDuration)
	}
	if BurstDuration != 1494*time.Millisecond {
		t.Errorf("BurstDuration=%s", BurstDuration)
	}
	if pin.Read() != gpio.High {
		t.Error("pin should be left high")
	}
	if err = d.Halt(); err != nil || pin.Read() != gpio.Low {
		t.Errorf("Halt() should drive low: %v", err)
	}
}

func TestBurstError(t *testing.T) {
	pin := &countingPin{failAfter: 10}
	d, err := New(pin, common.NoDelay)
	if err != nil {
		t.Fatal(err)
	}
	if err = d.Burst(); err == nil {
		t.Error("expected pin error")
	}
}
