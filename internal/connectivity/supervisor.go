// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package connectivity keeps the network link and the MQTT session alive
// without ever blocking the node loop for longer than one connect attempt.
package connectivity

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

type LinkState int

const (
	LinkDown LinkState = iota
	LinkUp
)

func (s LinkState) String() string {
	if s == LinkUp {
		return "up"
	}
	return "down"
}

type BrokerState int

const (
	BrokerDisconnected BrokerState = iota
	BrokerConnected
)

func (s BrokerState) String() string {
	if s == BrokerConnected {
		return "connected"
	}
	return "disconnected"
}

// Status is the pair surfaced to the display.
type Status struct {
	Link   LinkState
	Broker BrokerState
}

// Link is the network interface. Reconnect is fire-and-forget; its effect
// shows up in a later IsUp.
type Link interface {
	IsUp() bool
	Reconnect()
}

// Credentials for the broker. Empty user means anonymous.
type Credentials struct {
	User     string
	Password string
}

// Broker is the telemetry sink.
type Broker interface {
	IsConnected() bool
	Connect(clientID string, cred Credentials) bool
	Publish(topic string, payload []byte, retain bool) bool
	// Loop runs the sink's own inbound message pump.
	Loop()
}

type Config struct {
	ClientID    string
	Credentials Credentials
	StatusTopic string
	LinkRetry   time.Duration
	BrokerRetry time.Duration
}

// Supervisor is the (LinkState, BrokerState) machine. It is not safe for
// concurrent use; the node loop owns it.
type Supervisor struct {
	cfg    Config
	link   Link
	broker Broker
	log    zerolog.Logger

	status            Status
	lastLinkAttempt   time.Time
	lastBrokerAttempt time.Time
	linkAttempts      int
	brokerAttempts    int
}

func New(cfg Config, link Link, broker Broker, log zerolog.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, link: link, broker: broker, log: log}
}

// Poll advances the machine by one step. Attempts are rate limited by
// comparing now with the previous attempt; a resource never attempted is
// tried immediately.
func (s *Supervisor) Poll(now time.Time) {
	if !s.link.IsUp() {
		if s.status.Link == LinkUp {
			s.log.Warn().Msg("network link lost")
		}
		s.status = Status{Link: LinkDown, Broker: BrokerDisconnected}
		if due(now, s.lastLinkAttempt, s.cfg.LinkRetry) {
			s.lastLinkAttempt = now
			s.linkAttempts++
			s.log.Info().Int("attempt", s.linkAttempts).Msg("reconnecting network link")
			s.link.Reconnect()
		}
		return
	}

	if s.status.Link == LinkDown {
		s.status = Status{Link: LinkUp, Broker: BrokerDisconnected}
		s.log.Info().Msg("network link up")
		return
	}

	if !s.broker.IsConnected() {
		if s.status.Broker == BrokerConnected {
			s.log.Warn().Msg("MQTT connection lost")
		}
		s.status.Broker = BrokerDisconnected
		if !due(now, s.lastBrokerAttempt, s.cfg.BrokerRetry) {
			return
		}
		s.lastBrokerAttempt = now
		s.brokerAttempts++
		s.log.Info().Int("attempt", s.brokerAttempts).Msgf("connecting to MQTT as %s", s.cfg.ClientID)
		if !s.broker.Connect(s.cfg.ClientID, s.cfg.Credentials) {
			s.log.Warn().Msg("MQTT connect failed, retrying")
			return
		}
		s.status.Broker = BrokerConnected
		s.log.Info().Msg("MQTT connected")
		if !s.broker.Publish(s.cfg.StatusTopic, []byte("online"), true) {
			s.log.Warn().Msgf("status publish to %s failed", s.cfg.StatusTopic)
		}
		return
	}

	s.status.Broker = BrokerConnected
	s.broker.Loop()
}

func due(now, last time.Time, interval time.Duration) bool {
	return last.IsZero() || now.Sub(last) >= interval
}

func (s *Supervisor) Status() Status { return s.status }

// Connected reports whether telemetry may be published.
func (s *Supervisor) Connected() bool {
	return s.status.Link == LinkUp && s.status.Broker == BrokerConnected
}

// ClientID derives the broker identity from the node id and a stable
// hardware identifier, e.g. "vertex-anchor-0" + "A1B2C3D4E5F6".
func ClientID(prefix string, nodeID int, hardwareAddr string) string {
	return prefix + strconv.Itoa(nodeID) + hardwareAddr
}
