// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/uwb_node/internal/clock"
	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/connectivity"
	"github.com/relabs-tech/uwb_node/internal/display"
	"github.com/relabs-tech/uwb_node/internal/uwb"
)

// waitingForTags is the data line until the first reading. It fits the
// panel width unclipped.
const waitingForTags = "Waiting for tags"

// Poller is a non-blocking byte source.
type Poller interface {
	Poll() []byte
}

// Supervisor is the part of connectivity.Supervisor the loop needs.
type Supervisor interface {
	Poll(now time.Time)
	Status() connectivity.Status
}

type Publisher interface {
	Publish(r uwb.Reading) bool
}

// Addresser gives the address shown in the display footer.
type Addresser interface {
	Addr() string
}

// NodeDeps are the collaborators of one node. Supervisor and Publisher are
// nil for the tag role.
type NodeDeps struct {
	Module     uwb.Port
	Operator   Poller
	Supervisor Supervisor
	Publisher  Publisher
	Link       Addresser
	Display    display.Display
	Uptime     clock.Uptime
}

// Node is one cooperative main loop. Every method runs on the loop
// goroutine; nothing here is locked.
type Node struct {
	cfg   *config.Config
	deps  NodeDeps
	log   zerolog.Logger
	local uwb.Local
	lines *uwb.LineAccumulator

	remote [][]byte
	status string
	data   string

	displayFailing bool

	published int
	overflows int
}

func NewNode(cfg *config.Config, deps NodeDeps, log zerolog.Logger) *Node {
	if deps.Display == nil {
		deps.Display = display.Nop{}
	}
	status := "Ready"
	if cfg.Role == config.RoleTag {
		status = fmt.Sprintf("Tag %d - RANGING", cfg.NodeID)
	}
	return &Node{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		local:  uwb.Local{AnchorID: cfg.NodeID, X: cfg.AnchorX, Y: cfg.AnchorY},
		lines:  uwb.NewLineAccumulator(cfg.MaxLineLength),
		status: status,
		data:   waitingForTags,
	}
}

// QueueCommand takes an AT command received from the broker. The broker
// calls it from its Loop, which the supervisor runs inside Step.
func (n *Node) QueueCommand(payload []byte) {
	n.remote = append(n.remote, append([]byte(nil), payload...))
}

// Step runs one loop iteration: connectivity, remote commands, operator
// passthrough, then every complete module line in arrival order.
func (n *Node) Step(now time.Time) {
	if n.deps.Supervisor != nil {
		n.deps.Supervisor.Poll(now)
	}

	for _, cmd := range n.remote {
		n.log.Info().Msgf("[CMD] %s", cmd)
		n.write(append(cmd, '\r', '\n'))
	}
	n.remote = n.remote[:0]

	if n.deps.Operator != nil {
		if b := n.deps.Operator.Poll(); len(b) > 0 {
			n.write(b)
		}
	}

	for _, line := range n.lines.Write(n.deps.Module.Poll()) {
		n.handleLine(line, now)
	}
	if o := n.lines.Overflows(); o != n.overflows {
		n.log.Warn().Int("total", o).Msgf("dropped %d over-long module line(s)", o-n.overflows)
		n.overflows = o
	}

	n.refreshDisplay()
}

func (n *Node) write(b []byte) {
	if _, err := n.deps.Module.Write(b); err != nil {
		n.log.Error().Err(err).Msg("module write failed")
	}
}

func (n *Node) handleLine(line string, now time.Time) {
	n.log.Info().Msgf("[UWB] %s", line)

	if n.cfg.Role == config.RoleTag {
		n.data = line
		return
	}
	r, ok := uwb.Parse(line, n.local, n.deps.Uptime.Millis(now))
	if !ok {
		return
	}
	n.status = "Ranging OK"
	n.data = fmt.Sprintf("T%d: %.2fm", r.TagID, r.Distance)
	if n.deps.Publisher != nil && n.deps.Publisher.Publish(r) {
		n.published++
	}
}

// Screen is what the display currently shows.
func (n *Node) Screen() display.Screen {
	s := display.Screen{Status: n.status, Data: n.data}
	if n.cfg.Role == config.RoleTag {
		s.Title = nodeTitle(n.cfg)
		s.Link = true
		return s
	}

	s.Title = nodeTitle(n.cfg)
	if n.deps.Supervisor == nil {
		return s
	}
	st := n.deps.Supervisor.Status()
	s.Link = st.Link == connectivity.LinkUp
	s.Broker = st.Broker == connectivity.BrokerConnected
	switch {
	case !s.Link:
		s.Status = "WiFi connecting..."
	case !s.Broker:
		s.Status = "MQTT connecting..."
	}
	s.Footer = "Connecting..."
	if s.Link && n.deps.Link != nil {
		s.Footer = n.deps.Link.Addr()
	}
	return s
}

// nodeTitle is "A<id>" for anchors and "T<id>" for tags.
func nodeTitle(cfg *config.Config) string {
	if cfg.Role == config.RoleTag {
		return fmt.Sprintf("T%d", cfg.NodeID)
	}
	return fmt.Sprintf("A%d", cfg.NodeID)
}

func (n *Node) refreshDisplay() {
	err := n.deps.Display.Show(n.Screen().Lines())
	if err != nil && !n.displayFailing {
		n.log.Warn().Err(err).Msg("display update failed")
	}
	n.displayFailing = err != nil
}

// Published is how many readings the sink accepted.
func (n *Node) Published() int { return n.published }
