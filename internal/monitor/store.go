// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package monitor keeps what the web monitor shows: the most recent broker
// messages, what every anchor last reported and where each tag is.
package monitor

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/uwb_node/internal/uwb"
)

type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Topic     string    `json:"topic"`
	Payload   string    `json:"payload"`
}

type Anchor struct {
	AnchorID     int        `json:"anchorId"`
	X            float64    `json:"x"`
	Y            float64    `json:"y"`
	Online       bool       `json:"online"`
	LastSeen     *time.Time `json:"lastSeen"`
	LastTag      int        `json:"lastTag"`
	LastDistance float64    `json:"lastDistance"`
	Readings     int        `json:"readings"`
}

// TopicKind says what a per-anchor topic carries.
type TopicKind int

const (
	TopicData TopicKind = iota
	TopicStatus
	TopicCommand
)

// ParseTopic splits "<prefix>/<id>[/status|/cmd]".
func ParseTopic(prefix, topic string) (id int, kind TopicKind, ok bool) {
	rest, found := strings.CutPrefix(topic, prefix+"/")
	if !found {
		return 0, 0, false
	}
	idText, suffix, _ := strings.Cut(rest, "/")
	id, err := strconv.Atoi(idText)
	if err != nil {
		return 0, 0, false
	}
	switch suffix {
	case "":
		return id, TopicData, true
	case "status":
		return id, TopicStatus, true
	case "cmd":
		return id, TopicCommand, true
	}
	return 0, 0, false
}

// Store is safe for concurrent use; paho callbacks write, HTTP handlers read.
type Store struct {
	prefix string
	max    int
	area   float64

	mu        sync.RWMutex
	messages  []Message // newest first
	anchors   map[int]*Anchor
	ranges    map[int]map[int]tagRange // tag id -> anchor id -> latest range
	positions map[int]Position
}

func NewStore(topicPrefix string, maxMessages int) *Store {
	return &Store{
		prefix:    topicPrefix,
		max:       maxMessages,
		anchors:   map[int]*Anchor{},
		ranges:    map[int]map[int]tagRange{},
		positions: map[int]Position{},
	}
}

// SetArea clamps solved positions to a square site of the given size in
// meters. Call it before the store is shared.
func (s *Store) SetArea(size float64) { s.area = size }

// Record keeps the message and updates anchor state from it.
func (s *Store) Record(topic string, payload []byte, now time.Time) Message {
	msg := Message{Timestamp: now, Topic: topic, Payload: string(payload)}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = slices.Insert(s.messages, 0, msg)
	if s.max > 0 && len(s.messages) > s.max {
		s.messages = s.messages[:s.max]
	}

	id, kind, ok := ParseTopic(s.prefix, topic)
	if !ok {
		return msg
	}
	switch kind {
	case TopicStatus:
		a := s.anchor(id)
		a.Online = string(payload) == "online"
		a.LastSeen = &now
	case TopicData:
		var r uwb.Reading
		if err := json.Unmarshal(payload, &r); err != nil {
			return msg
		}
		a := s.anchor(id)
		a.Online = true
		a.LastSeen = &now
		a.X, a.Y = r.AnchorX, r.AnchorY
		a.LastTag = r.TagID
		a.LastDistance = r.Distance
		a.Readings++

		if s.ranges[r.TagID] == nil {
			s.ranges[r.TagID] = map[int]tagRange{}
		}
		s.ranges[r.TagID][id] = tagRange{x: r.AnchorX, y: r.AnchorY, d: r.Distance}
		s.locate(r.TagID, now)
	}
	return msg
}

func (s *Store) anchor(id int) *Anchor {
	a, ok := s.anchors[id]
	if !ok {
		a = &Anchor{AnchorID: id}
		s.anchors[id] = a
	}
	return a
}

// Messages returns a copy, newest first.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Anchors returns a snapshot ordered by id.
func (s *Store) Anchors() []Anchor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Anchor, 0, len(s.anchors))
	for _, a := range s.anchors {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b Anchor) int { return a.AnchorID - b.AnchorID })
	return out
}
