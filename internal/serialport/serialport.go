// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package serialport opens the UART to the UWB module and turns blocking
// reads into a non-blocking Poll for the single-threaded node loop.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
)

const readBufSize = 256

// Port is a serial (or simulated) device: writes go straight through,
// received bytes are buffered by a reader goroutine until polled.
type Port struct {
	w    io.Writer
	rc   io.Closer
	name string
	log  zerolog.Logger

	mu      sync.Mutex
	pending []byte
	err     error
	done    chan struct{}
}

// Open opens the module UART at 8N1.
func Open(name string, baud int, log zerolog.Logger) (*Port, error) {
	opts := serial.OpenOptions{
		PortName:              name,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	log.Info().Msgf("serial port opened on %s at %d baud", name, baud)
	return New(name, rwc, log), nil
}

// New wraps any read/write/close stream; the simulator and tests use it
// directly.
func New(name string, rwc io.ReadWriteCloser, log zerolog.Logger) *Port {
	p := &Port{w: rwc, rc: rwc, name: name, log: log, done: make(chan struct{})}
	go p.readLoop(rwc)
	return p
}

// NewReader makes a read-only pollable source, e.g. operator stdin.
func NewReader(name string, r io.Reader, log zerolog.Logger) *Port {
	p := &Port{w: io.Discard, name: name, log: log, done: make(chan struct{})}
	go p.readLoop(r)
	return p
}

func (p *Port) readLoop(r io.Reader) {
	defer close(p.done)
	buf := make([]byte, readBufSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.pending = append(p.pending, buf[:n]...)
			p.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.log.Error().Err(err).Msgf("%s read error", p.name)
			}
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			return
		}
	}
}

// Poll returns the bytes received since the previous call. It never blocks.
func (p *Port) Poll() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return nil
	}
	out := p.pending
	p.pending = nil
	return out
}

func (p *Port) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

// Err reports why the reader stopped, or nil while it is running.
func (p *Port) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Close closes the underlying device. Read-only sources are left open since
// they usually wrap os.Stdin.
func (p *Port) Close() error {
	if p.rc == nil {
		return nil
	}
	return p.rc.Close()
}

// Done is closed once the reader goroutine has exited.
func (p *Port) Done() <-chan struct{} { return p.done }
