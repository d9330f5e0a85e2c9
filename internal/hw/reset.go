// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hw holds the UWB module's reset line.
package hw

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// The module resets while its RST pin is held low.
const pulseWidth = 10 * time.Millisecond

type ResetLine struct {
	pin gpio.PinOut
}

// OpenReset looks up the named pin (e.g. "GPIO17") and releases the module
// from reset by driving it high.
func OpenReset(name string) (*ResetLine, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("reset pin %s not found", name)
	}
	r := &ResetLine{pin: p}
	if err := r.Release(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewReset wraps an already opened pin.
func NewReset(pin gpio.PinOut) *ResetLine { return &ResetLine{pin: pin} }

func (r *ResetLine) Release() error {
	if err := r.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("reset pin %s high: %w", r.pin, err)
	}
	return nil
}

// Pulse drives the line low briefly and releases it again.
func (r *ResetLine) Pulse(sleep func(time.Duration)) error {
	if err := r.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset pin %s low: %w", r.pin, err)
	}
	sleep(pulseWidth)
	return r.Release()
}
