// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package uwb

import (
	"fmt"
	"time"

	"github.com/relabs-tech/uwb_node/internal/config"
)

// Step is one command of the bring-up sequence and what came back.
type Step struct {
	Command  string
	Timeout  time.Duration
	Response string
}

// ConfigCommand builds AT+SETCFG=<id>,<role>,<speed>,<filter>.
func ConfigCommand(cfg *config.Config) string {
	return fmt.Sprintf("AT+SETCFG=%d,%d,%d,%d", cfg.NodeID, cfg.Role.ModuleCode(), cfg.ModuleSpeed, cfg.ModuleFilter)
}

// CapacityCommand builds AT+SETCAP=<tags>,<slot ms>,<extended>.
func CapacityCommand(cfg *config.Config) string {
	return fmt.Sprintf("AT+SETCAP=%d,%d,%d", cfg.MaxTags, cfg.ModuleSlotMillis, cfg.ModuleExtended)
}

// Sequence lists the bring-up commands in the order the module expects them.
func Sequence(cfg *config.Config) []Step {
	t := cfg.ModuleTimeout
	return []Step{
		{Command: "AT?", Timeout: t},
		{Command: "AT+RESTORE", Timeout: cfg.ModuleResetTimeout},
		{Command: ConfigCommand(cfg), Timeout: t},
		{Command: CapacityCommand(cfg), Timeout: t},
		{Command: "AT+SETRPT=1", Timeout: t},
		{Command: "AT+SAVE", Timeout: t},
		{Command: "AT+RESTART", Timeout: t},
	}
}

// Configure wakes the module and runs the bring-up sequence. It blocks for
// the sum of all timeouts and never fails: the module has no other way to
// confirm a command than answering within its window.
func Configure(s *CommandSession, cfg *config.Config) []Step {
	if _, err := s.port.Write([]byte("AT\r\n")); err != nil {
		s.log.Error().Err(err).Msg("wake write failed")
	}

	steps := Sequence(cfg)
	for i := range steps {
		steps[i].Response = s.Send(steps[i].Command, steps[i].Timeout)
	}
	s.log.Info().Msgf("UWB configured as %s %d", cfg.Role, cfg.NodeID)
	return steps
}
