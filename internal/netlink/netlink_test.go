package netlink

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeInterface(flags net.Flags, addrs ...string) *Interface {
	i := New("wlan0", nil, zerolog.Nop())
	mac, _ := net.ParseMAC("a1:b2:c3:d4:e5:f6")
	i.lookup = func(name string) (*net.Interface, error) {
		if name != "wlan0" {
			return nil, errors.New("no such interface")
		}
		return &net.Interface{Name: name, Flags: flags, HardwareAddr: mac}, nil
	}
	i.addrs = func(*net.Interface) ([]net.Addr, error) {
		var out []net.Addr
		for _, a := range addrs {
			ip, ipn, err := net.ParseCIDR(a)
			if err != nil {
				panic(err)
			}
			ipn.IP = ip
			out = append(out, ipn)
		}
		return out, nil
	}
	return i
}

func TestInterface_IsUp(t *testing.T) {
	tests := []struct {
		name  string
		flags net.Flags
		addrs []string
		up    bool
		addr  string
	}{
		{"up with v4", net.FlagUp, []string{"fe80::1/64", "192.168.1.20/24"}, true, "192.168.1.20"},
		{"up link-local only", net.FlagUp, []string{"fe80::1/64"}, false, ""},
		{"up v6 only", net.FlagUp, []string{"2001:db8::5/64"}, true, "2001:db8::5"},
		{"admin down", 0, []string{"192.168.1.20/24"}, false, "192.168.1.20"},
		{"no address", net.FlagUp, nil, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := fakeInterface(tt.flags, tt.addrs...)
			assert.Equal(t, tt.up, i.IsUp())
			assert.Equal(t, tt.addr, i.Addr())
		})
	}
}

func TestInterface_Missing(t *testing.T) {
	i := fakeInterface(net.FlagUp)
	i.name = "eth9"
	assert.False(t, i.IsUp())
	assert.Equal(t, "", i.HardwareAddr())
	assert.Equal(t, "", i.Addr())
}

func TestInterface_HardwareAddr(t *testing.T) {
	assert.Equal(t, "A1B2C3D4E5F6", fakeInterface(net.FlagUp).HardwareAddr())
}

func TestInterface_ReconnectIsFireAndForget(t *testing.T) {
	i := fakeInterface(0)
	i.cmd = []string{"nmcli", "device", "connect", "wlan0"}

	release := make(chan struct{})
	var calls atomic.Int32
	var argv []string
	i.run = func(_ context.Context, a []string) error {
		calls.Add(1)
		argv = a
		<-release
		return nil
	}

	i.Reconnect()
	i.Reconnect() // still running, ignored
	close(release)

	require.Eventually(t, func() bool {
		i.mu.Lock()
		defer i.mu.Unlock()
		return !i.running
	}, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"nmcli", "device", "connect", "wlan0"}, argv)

	i.Reconnect()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestInterface_ReconnectWithoutCommand(t *testing.T) {
	i := fakeInterface(0)
	i.run = func(context.Context, []string) error {
		t.Fatal("no command configured")
		return nil
	}
	i.Reconnect()
}

func TestAlways(t *testing.T) {
	var l Always
	l.Reconnect()
	assert.True(t, l.IsUp())
	assert.Equal(t, "", l.HardwareAddr())
}
