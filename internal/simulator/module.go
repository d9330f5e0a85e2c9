// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package simulator

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PortName selects the simulated module in place of a serial device.
const PortName = "sim"

// Module behaves like the UWB module on the other end of the UART: it
// acknowledges every AT command with OK and, while auto-report is on,
// prints one range report per tag every interval.
type Module struct {
	world    *World
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	out     []byte
	cmd     []byte
	report  bool
	closed  bool
	seq     int
	stop    chan struct{}
	stopped sync.WaitGroup
}

var _ io.ReadWriteCloser = (*Module)(nil)

func NewModule(world *World, interval time.Duration, log zerolog.Logger) *Module {
	m := &Module{world: world, interval: interval, log: log, report: true, stop: make(chan struct{})}
	m.cond = sync.NewCond(&m.mu)
	m.stopped.Add(1)
	go m.run()
	return m
}

func (m *Module) run() {
	defer m.stopped.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

func (m *Module) tick() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.report {
		return
	}
	m.world.Step()
	for _, t := range m.world.Tags {
		m.out = append(m.out, m.world.Frame(t, m.seq)...)
		m.out = append(m.out, '\r', '\n')
	}
	m.seq++
	m.cond.Broadcast()
}

// Read blocks until output is available or the module is closed.
func (m *Module) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.out) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.out) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.out)
	m.out = m.out[n:]
	return n, nil
}

// Write takes command bytes; each completed line is answered.
func (m *Module) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	for _, c := range p {
		if c != '\n' {
			m.cmd = append(m.cmd, c)
			continue
		}
		line := strings.TrimSpace(string(m.cmd))
		m.cmd = m.cmd[:0]
		if line != "" {
			m.handle(line)
		}
	}
	return len(p), nil
}

func (m *Module) handle(cmd string) {
	m.log.Debug().Msgf("sim <- %s", cmd)
	switch {
	case cmd == "AT+SETRPT=1":
		m.report = true
	case cmd == "AT+SETRPT=0", cmd == "AT+RESTORE":
		m.report = false
	case !strings.HasPrefix(cmd, "AT"):
		m.out = append(m.out, "ERROR\r\n"...)
		m.cond.Broadcast()
		return
	}
	m.out = append(m.out, "OK\r\n"...)
	m.cond.Broadcast()
}

func (m *Module) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()

	close(m.stop)
	m.stopped.Wait()
	return nil
}
