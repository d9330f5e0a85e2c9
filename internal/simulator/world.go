// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package simulator stands in for the UWB radio: tags wander around a
// square site and every anchor sees every tag.
package simulator

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/relabs-tech/uwb_node/internal/uwb"
)

const (
	siteSize = 10.0
	margin   = 0.5
	maxStep  = 0.25
)

type Tag struct {
	ID   int
	X, Y float64
}

type World struct {
	Anchors []uwb.Local
	Tags    []Tag
	rng     *rand.Rand
}

// NewWorld places four anchors on the corners of a 10m square and four
// tags inside it.
func NewWorld(seed uint64) *World {
	return &World{
		Anchors: []uwb.Local{
			{AnchorID: 0, X: 0, Y: 0},
			{AnchorID: 1, X: siteSize, Y: 0},
			{AnchorID: 2, X: siteSize, Y: siteSize},
			{AnchorID: 3, X: 0, Y: siteSize},
		},
		Tags: []Tag{
			{ID: 1, X: 3, Y: 4},
			{ID: 2, X: 7, Y: 3},
			{ID: 3, X: 5, Y: 7},
			{ID: 4, X: 8, Y: 8},
		},
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Step moves every tag by up to 25cm per axis, keeping it inside the site.
func (w *World) Step() {
	for i := range w.Tags {
		t := &w.Tags[i]
		t.X = clamp(t.X+(w.rng.Float64()-0.5)*2*maxStep, margin, siteSize-margin)
		t.Y = clamp(t.Y+(w.rng.Float64()-0.5)*2*maxStep, margin, siteSize-margin)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Distance in meters between a tag and an anchor.
func Distance(t Tag, a uwb.Local) float64 {
	return math.Hypot(t.X-a.X, t.Y-a.Y)
}

// Frame is the report line the module would print for tag t. The anchor
// distances include the antenna delay the parser removes again.
func (w *World) Frame(t Tag, seq int) string {
	ranges := make([]string, uwb.MaxSlots)
	ids := make([]string, uwb.MaxSlots)
	var mask uint64
	for i := range uwb.MaxSlots {
		ranges[i], ids[i] = "0", "-1"
		if i >= len(w.Anchors) {
			continue
		}
		a := w.Anchors[i]
		cm := math.Round((Distance(t, a) + uwb.AntennaDelayOffset) * 100)
		ranges[i] = strconv.Itoa(int(cm))
		ids[i] = strconv.Itoa(a.AnchorID)
		mask |= 1 << i
	}

	var b strings.Builder
	b.WriteString(uwb.ReportPrefix)
	b.WriteString("tid:")
	b.WriteString(strconv.Itoa(t.ID))
	b.WriteString(",mask:")
	b.WriteString(strconv.FormatUint(mask, 16))
	b.WriteString(",seq:")
	b.WriteString(strconv.Itoa(seq))
	b.WriteString(",range:(")
	b.WriteString(strings.Join(ranges, ","))
	b.WriteString("),ancid:(")
	b.WriteString(strings.Join(ids, ","))
	b.WriteString(")")
	return b.String()
}
