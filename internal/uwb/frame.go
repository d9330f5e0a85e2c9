// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uwb

import (
	"math"
	"strconv"
	"strings"
)

// Report frame, as emitted by the module with auto-report enabled:
//
//	AT+RANGE=tid:0,mask:01,seq:65,range:(92,0,0,0,0,0,0,0),ancid:(0,-1,-1,-1,-1,-1,-1,-1)
const (
	ReportPrefix = "AT+RANGE="

	// MaxSlots is the number of anchor positions in one report.
	MaxSlots = 8

	// AntennaDelayOffset is subtracted from every distance (meters) to
	// compensate the module's constant antenna-delay bias.
	AntennaDelayOffset = 0.5
)

// Slot is one (distance, anchor) position of a report.
type Slot struct {
	DistanceCM int
	AnchorID   int
}

// Report is a decoded AT+RANGE frame.
type Report struct {
	TagID int
	// Mask is the module's hex anchor bitmap. It is informational only;
	// ranges are matched through the ancid list.
	Mask  uint64
	Seq   int
	Slots []Slot
}

// ParseReport decodes a report line. It returns false for anything that is
// not a well-formed report; it never fails otherwise. Numeric fields are
// parsed leniently (see toInt), so garbage inside a list reads as 0.
func ParseReport(line string) (Report, bool) {
	if !strings.HasPrefix(line, ReportPrefix) {
		return Report{}, false
	}

	tag, ok := fieldUpToComma(line, "tid:")
	if !ok {
		return Report{}, false
	}

	ranges, ok := parenList(line, "range:(")
	if !ok {
		return Report{}, false
	}
	anchors, ok := parenList(line, "ancid:(")
	if !ok {
		return Report{}, false
	}

	rep := Report{TagID: toInt(tag)}
	if mask, ok := fieldUpToComma(line, "mask:"); ok {
		// A malformed mask reads as 0 and does not reject the frame.
		if m, err := strconv.ParseUint(strings.TrimSpace(mask), 16, 64); err == nil {
			rep.Mask = m
		}
	}
	if seq, ok := fieldUpToComma(line, "seq:"); ok {
		rep.Seq = toInt(seq)
	}

	rs := strings.Split(ranges, ",")
	as := strings.Split(anchors, ",")
	n := min(len(rs), len(as), MaxSlots)
	rep.Slots = make([]Slot, n)
	for i := 0; i < n; i++ {
		rep.Slots[i] = Slot{DistanceCM: toInt(rs[i]), AnchorID: toInt(as[i])}
	}
	return rep, true
}

// DistanceTo returns the raw distance of the first slot reporting anchorID.
func (r Report) DistanceTo(anchorID int) (int, bool) {
	for _, s := range r.Slots {
		if s.AnchorID == anchorID {
			return s.DistanceCM, true
		}
	}
	return 0, false
}

// Parse resolves a report line into a Reading for the local anchor. A frame
// that is malformed, does not mention the local anchor, or carries a
// non-positive distance yields no reading.
func Parse(line string, local Local, timestamp int64) (Reading, bool) {
	rep, ok := ParseReport(line)
	if !ok {
		return Reading{}, false
	}
	cm, ok := rep.DistanceTo(local.AnchorID)
	if !ok || cm <= 0 {
		return Reading{}, false
	}
	return Reading{
		TagID:     rep.TagID,
		Distance:  Meters(cm),
		AnchorID:  local.AnchorID,
		AnchorX:   local.X,
		AnchorY:   local.Y,
		Timestamp: timestamp,
	}, true
}

// Meters converts a raw module distance to calibrated meters, never negative.
func Meters(cm int) float64 {
	m := float64(cm)/100.0 - AntennaDelayOffset
	if m < 0 {
		return 0
	}
	return m
}

// fieldUpToComma returns the text between marker and the next comma.
func fieldUpToComma(line, marker string) (string, bool) {
	i := strings.Index(line, marker)
	if i < 0 {
		return "", false
	}
	rest := line[i+len(marker):]
	end := strings.IndexByte(rest, ',')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// parenList returns the text between marker (which ends in '(') and the next ')'.
func parenList(line, marker string) (string, bool) {
	i := strings.Index(line, marker)
	if i < 0 {
		return "", false
	}
	rest := line[i+len(marker):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// toInt has C atol semantics: leading blanks, an optional sign, then as many
// digits as follow. Anything unparsable is 0, and values saturate at the
// 32-bit range the module works in.
func toInt(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > math.MaxInt32 {
			n = math.MaxInt32
		}
	}
	if neg {
		return -n
	}
	return n
}
