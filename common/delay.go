// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"sync"
	"time"
)

// Delayer blocks the caller for a fixed duration. Drivers take one so that
// settle times and pulse trains can run against a fake clock in tests.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayFunc adapts a function to the Delayer interface.
type DelayFunc func(d time.Duration)

// Delay implements Delayer.
func (f DelayFunc) Delay(d time.Duration) {
	f(d)
}

// Sleep is the wall clock Delayer.
var Sleep Delayer = DelayFunc(time.Sleep)

// NoDelay returns immediately.
var NoDelay Delayer = DelayFunc(func(time.Duration) {})

// DelayRecorder records requested delays without blocking.
type DelayRecorder struct {
	mu     sync.Mutex
	Delays []time.Duration
}

// Delay implements Delayer.
func (r *DelayRecorder) Delay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Delays = append(r.Delays, d)
}

// Total returns the sum of all recorded delays.
func (r *DelayRecorder) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, d := range r.Delays {
		total += d
	}
	return total
}

// Or returns d, or Sleep if d is nil.
func Or(d Delayer) Delayer {
	if d == nil {
		return Sleep
	}
	return d
}
