// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uwb

import "strings"

// DefaultMaxLineLength bounds one line from the module. A report frame with
// eight slots is well under 200 bytes.
const DefaultMaxLineLength = 512

// LineAccumulator assembles module output into lines. CR is dropped, LF ends
// a line, empty lines are never emitted.
//
// A line longer than max is discarded whole: the accumulator resets and skips
// input until the next LF. max == 0 disables the bound.
type LineAccumulator struct {
	buf       strings.Builder
	max       int
	skipping  bool
	overflows int
}

func NewLineAccumulator(max int) *LineAccumulator {
	return &LineAccumulator{max: max}
}

// Feed consumes one byte and returns a completed line, if any.
func (a *LineAccumulator) Feed(c byte) (string, bool) {
	switch c {
	case '\r':
		return "", false
	case '\n':
		if a.skipping {
			a.skipping = false
			return "", false
		}
		if a.buf.Len() == 0 {
			return "", false
		}
		line := a.buf.String()
		a.buf.Reset()
		return line, true
	}

	if a.skipping {
		return "", false
	}
	if a.max > 0 && a.buf.Len() >= a.max {
		a.buf.Reset()
		a.skipping = true
		a.overflows++
		return "", false
	}
	a.buf.WriteByte(c)
	return "", false
}

// Write feeds every byte of p and returns the lines completed, in order.
func (a *LineAccumulator) Write(p []byte) []string {
	var lines []string
	for _, c := range p {
		if line, ok := a.Feed(c); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// Pending is the number of buffered bytes of the current partial line.
func (a *LineAccumulator) Pending() int { return a.buf.Len() }

// Overflows counts lines dropped for exceeding the maximum length.
func (a *LineAccumulator) Overflows() int { return a.overflows }
