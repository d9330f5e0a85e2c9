// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uwb

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/uwb_node/internal/clock"
)

// Port is the module side of the serial link: writes go out immediately,
// Poll returns whatever arrived since the last call without blocking.
type Port interface {
	io.Writer
	Poll() []byte
}

// pollInterval is how long CommandSession idles between empty polls.
const pollInterval = 5 * time.Millisecond

// CommandSession sends one AT command at a time and collects the raw reply
// window. It is only used during bring-up, before the main loop starts.
type CommandSession struct {
	port  Port
	clock clock.Clock
	log   zerolog.Logger
}

func NewCommandSession(port Port, c clock.Clock, log zerolog.Logger) *CommandSession {
	return &CommandSession{port: port, clock: c, log: log}
}

// Send writes command plus CRLF and returns every byte received during the
// following timeout, verbatim. An empty reply is not an error: the module may
// accept a command silently.
func (s *CommandSession) Send(command string, timeout time.Duration) string {
	s.log.Info().Msgf("[TX] %s", command)
	if _, err := s.port.Write([]byte(command + "\r\n")); err != nil {
		s.log.Error().Err(err).Msgf("write %q failed", command)
	}

	var resp strings.Builder
	start := s.clock.Now()
	for s.clock.Now().Sub(start) < timeout {
		if b := s.port.Poll(); len(b) > 0 {
			resp.Write(b)
			continue
		}
		s.clock.Sleep(pollInterval)
	}

	out := resp.String()
	if out == "" {
		s.log.Warn().Msgf("[RX] no response to %s", command)
	} else {
		s.log.Debug().Msgf("[RX] %s", strings.TrimSpace(out))
	}
	return out
}
