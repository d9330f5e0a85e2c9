// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package netlink watches the host network interface that carries the
// broker traffic and can ask the OS to bring it back.
package netlink

import (
	"context"
	"net"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const reconnectTimeout = 30 * time.Second

// Interface is a named host interface, e.g. wlan0.
type Interface struct {
	name string
	cmd  []string
	log  zerolog.Logger

	lookup func(name string) (*net.Interface, error)
	addrs  func(ifi *net.Interface) ([]net.Addr, error)
	run    func(ctx context.Context, argv []string) error

	mu      sync.Mutex
	running bool
}

// New watches ifname. reconnectCmd is the argv run by Reconnect; empty
// means the OS brings the link back on its own.
func New(ifname string, reconnectCmd []string, log zerolog.Logger) *Interface {
	return &Interface{
		name:   ifname,
		cmd:    reconnectCmd,
		log:    log,
		lookup: net.InterfaceByName,
		addrs:  func(ifi *net.Interface) ([]net.Addr, error) { return ifi.Addrs() },
		run: func(ctx context.Context, argv []string) error {
			return exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
		},
	}
}

func (i *Interface) Name() string { return i.name }

// IsUp is true when the interface is administratively up and holds a
// routable address.
func (i *Interface) IsUp() bool {
	ifi, err := i.lookup(i.name)
	if err != nil || ifi.Flags&net.FlagUp == 0 {
		return false
	}
	return i.addr(ifi) != nil
}

// Reconnect starts the reconnect command and returns at once. A command
// still running from an earlier call is left alone.
func (i *Interface) Reconnect() {
	if len(i.cmd) == 0 {
		i.log.Info().Msgf("waiting for %s", i.name)
		return
	}
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return
	}
	i.running = true
	i.mu.Unlock()

	i.log.Info().Msgf("running %q", strings.Join(i.cmd, " "))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reconnectTimeout)
		defer cancel()
		if err := i.run(ctx, i.cmd); err != nil {
			i.log.Warn().Err(err).Msgf("reconnect %s failed", i.name)
		}
		i.mu.Lock()
		i.running = false
		i.mu.Unlock()
	}()
}

// HardwareAddr is the MAC in upper case hex without separators, or "" when
// the interface is missing.
func (i *Interface) HardwareAddr() string {
	ifi, err := i.lookup(i.name)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(ifi.HardwareAddr.String(), ":", ""))
}

// Addr is the first usable address, preferring IPv4.
func (i *Interface) Addr() string {
	ifi, err := i.lookup(i.name)
	if err != nil {
		return ""
	}
	if ip := i.addr(ifi); ip != nil {
		return ip.String()
	}
	return ""
}

func (i *Interface) addr(ifi *net.Interface) net.IP {
	addrs, err := i.addrs(ifi)
	if err != nil {
		return nil
	}
	var v6 net.IP
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || !ipn.IP.IsGlobalUnicast() {
			continue
		}
		if ip4 := ipn.IP.To4(); ip4 != nil {
			return ip4
		}
		if v6 == nil {
			v6 = ipn.IP
		}
	}
	return v6
}

// Always is a link that never goes down, for hosts where the network is
// someone else's problem.
type Always struct{}

func (Always) IsUp() bool           { return true }
func (Always) Reconnect()           {}
func (Always) HardwareAddr() string { return "" }
func (Always) Addr() string         { return "" }
