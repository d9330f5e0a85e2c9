// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package monitor

import (
	"maps"
	"math"
	"slices"
	"time"
)

// minDenominator rejects anchor triples that are collinear or nearly so.
const minDenominator = 1e-4

// Position is where a tag was last located from its anchor ranges.
type Position struct {
	TagID    int       `json:"tagId"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Anchors  []int     `json:"anchors"`
	LastSeen time.Time `json:"lastSeen"`
}

// tagRange is the latest distance one anchor reported for a tag.
type tagRange struct {
	x, y, d float64
}

// trilaterate intersects three range circles. Subtracting the circle
// equations pairwise leaves two linear equations in x and y.
func trilaterate(p1, p2, p3 tagRange) (x, y float64, ok bool) {
	a := 2 * (p2.x - p1.x)
	b := 2 * (p2.y - p1.y)
	c := p1.d*p1.d - p2.d*p2.d - p1.x*p1.x + p2.x*p2.x - p1.y*p1.y + p2.y*p2.y
	d := 2 * (p3.x - p2.x)
	e := 2 * (p3.y - p2.y)
	f := p2.d*p2.d - p3.d*p3.d - p2.x*p2.x + p3.x*p3.x - p2.y*p2.y + p3.y*p3.y

	den := a*e - b*d
	if math.Abs(den) < minDenominator {
		return 0, 0, false
	}
	return (c*e - f*b) / den, (a*f - d*c) / den, true
}

// locate re-solves tagID from the three lowest anchor ids that ranged it.
// The previous position is kept when there are too few anchors or the
// geometry is degenerate. Callers hold s.mu.
func (s *Store) locate(tagID int, now time.Time) {
	ranges := s.ranges[tagID]
	if len(ranges) < 3 {
		return
	}
	ids := slices.Sorted(maps.Keys(ranges))[:3]
	x, y, ok := trilaterate(ranges[ids[0]], ranges[ids[1]], ranges[ids[2]])
	if !ok {
		return
	}
	if s.area > 0 {
		x = min(max(x, 0), s.area)
		y = min(max(y, 0), s.area)
	}
	s.positions[tagID] = Position{
		TagID:    tagID,
		X:        math.Round(x*100) / 100,
		Y:        math.Round(y*100) / 100,
		Anchors:  ids,
		LastSeen: now,
	}
}

// Positions returns every located tag ordered by id.
func (s *Store) Positions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		p.Anchors = slices.Clone(p.Anchors)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Position) int { return a.TagID - b.TagID })
	return out
}
