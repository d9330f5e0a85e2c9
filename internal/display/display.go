// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display drives the node's 128x64 SSD1306 status screen.
package display

import (
	"fmt"
	"image"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	Width  = 128
	Height = 64
	// Columns is how many 7x13 glyphs fit on one row.
	Columns    = Width / 7
	lineHeight = 13
)

// Screen is one frame of node status.
type Screen struct {
	Title  string // e.g. "A0" or "T0"
	Link   bool
	Broker bool
	Status string
	Data   string
	Footer string
}

// Lines lays the screen out top to bottom.
func (s Screen) Lines() []string {
	header := fmt.Sprintf("%s WiFi:%s MQ:%s", s.Title, okOrDash(s.Link), okOrDash(s.Broker))
	return []string{header, s.Status, clip(s.Data), "", s.Footer}
}

func okOrDash(b bool) string {
	if b {
		return "OK"
	}
	return "--"
}

func clip(s string) string {
	if len(s) > Columns {
		return s[:Columns]
	}
	return s
}

// Display shows status frames. Implementations skip redundant redraws.
type Display interface {
	Show(lines []string) error
	Close() error
}

// Render draws text rows onto a blank frame.
func Render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		if line == "" {
			continue
		}
		drawer.Dot = fixed.P(0, (i+1)*lineHeight-2)
		drawer.DrawString(line)
	}
	return img
}

// Splash is the boot screen.
func Splash(title, name string, x, y float64) []string {
	return []string{"VERTEX " + title, "", name, fmt.Sprintf("Pos: %.2f,%.2f", x, y), ""}
}

type OLED struct {
	bus  i2c.BusCloser
	dev  *ssd1306.Dev
	log  zerolog.Logger
	last []string
}

// OpenOLED initialises periph and the panel at the default 0x3C address.
// An empty busName picks the first I2C bus.
func OpenOLED(busName string, log zerolog.Logger) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	opts := ssd1306.DefaultOpts
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Info().Msgf("display initialized on %s", bus)
	return &OLED{bus: bus, dev: dev, log: log}, nil
}

func (o *OLED) Show(lines []string) error {
	if slices.Equal(lines, o.last) {
		return nil
	}
	if err := o.dev.Draw(o.dev.Bounds(), Render(lines), image.Point{}); err != nil {
		return err
	}
	o.last = slices.Clone(lines)
	return nil
}

func (o *OLED) Close() error {
	if err := o.dev.Halt(); err != nil {
		o.log.Warn().Err(err).Msg("display halt")
	}
	return o.bus.Close()
}

// Nop discards everything; used when no panel is fitted.
type Nop struct{}

func (Nop) Show([]string) error { return nil }
func (Nop) Close() error        { return nil }
