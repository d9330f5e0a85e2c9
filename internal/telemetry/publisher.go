// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry formats readings for the broker and adapts paho to the
// connectivity.Broker contract.
package telemetry

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/uwb_node/internal/uwb"
)

// Sink is the publish half of the broker.
type Sink interface {
	Publish(topic string, payload []byte, retain bool) bool
}

// Gate reports whether the broker session is up. The connectivity
// supervisor satisfies it.
type Gate interface {
	Connected() bool
}

type Publisher struct {
	sink  Sink
	gate  Gate
	topic string
	log   zerolog.Logger

	sent   int
	failed int
}

func NewPublisher(sink Sink, gate Gate, topic string, log zerolog.Logger) *Publisher {
	return &Publisher{sink: sink, gate: gate, topic: topic, log: log}
}

// Publish offers one reading to the sink. It returns false without touching
// the sink while disconnected, and otherwise the sink's own result. Failed
// publishes are not retried.
func (p *Publisher) Publish(r uwb.Reading) bool {
	if !p.gate.Connected() {
		return false
	}
	payload, err := json.Marshal(r)
	if err != nil {
		p.log.Error().Err(err).Msg("reading marshal error")
		return false
	}
	if !p.sink.Publish(p.topic, payload, false) {
		p.failed++
		p.log.Warn().Int("tag", r.TagID).Msgf("publish to %s failed", p.topic)
		return false
	}
	p.sent++
	p.log.Debug().RawJSON("reading", payload).Msg("published")
	return true
}

// Counts returns how many readings went out and how many the sink refused.
func (p *Publisher) Counts() (sent, failed int) { return p.sent, p.failed }
