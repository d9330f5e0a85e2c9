package app

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uwb_node/internal/clock"
	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/connectivity"
	"github.com/relabs-tech/uwb_node/internal/display"
	"github.com/relabs-tech/uwb_node/internal/uwb"
)

const frame = "AT+RANGE=tid:3,mask:01,seq:12,range:(92,0,0,0,0,0,0,0),ancid:(0,-1,-1,-1,-1,-1,-1,-1)"

type fakeModule struct {
	in      []byte
	written []string
}

func (m *fakeModule) Write(b []byte) (int, error) {
	m.written = append(m.written, string(b))
	return len(b), nil
}

func (m *fakeModule) Poll() []byte {
	out := m.in
	m.in = nil
	return out
}

type fakeSupervisor struct {
	status connectivity.Status
	polls  int
	onPoll func()
}

func (s *fakeSupervisor) Poll(time.Time) {
	s.polls++
	if s.onPoll != nil {
		s.onPoll()
	}
}
func (s *fakeSupervisor) Status() connectivity.Status { return s.status }

type fakePublisher struct {
	readings []uwb.Reading
}

func (p *fakePublisher) Publish(r uwb.Reading) bool {
	p.readings = append(p.readings, r)
	return true
}

type recordingDisplay struct {
	frames [][]string
}

func (d *recordingDisplay) Show(lines []string) error {
	d.frames = append(d.frames, lines)
	return nil
}
func (d *recordingDisplay) Close() error { return nil }

type addr string

func (a addr) Addr() string { return string(a) }

var boot = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func anchorNode(t *testing.T) (*Node, *fakeModule, *fakeSupervisor, *fakePublisher, *recordingDisplay) {
	t.Helper()
	cfg := config.Default()
	cfg.AnchorX, cfg.AnchorY = 1.5, 2.5
	mod := &fakeModule{}
	sup := &fakeSupervisor{status: connectivity.Status{Link: connectivity.LinkUp, Broker: connectivity.BrokerConnected}}
	pub := &fakePublisher{}
	disp := &recordingDisplay{}
	n := NewNode(&cfg, NodeDeps{
		Module:     mod,
		Supervisor: sup,
		Publisher:  pub,
		Link:       addr("192.168.1.20"),
		Display:    disp,
		Uptime:     clock.NewUptime(clock.NewManual(boot)),
	}, zerolog.Nop())
	return n, mod, sup, pub, disp
}

func TestNode_PublishesParsedReading(t *testing.T) {
	n, mod, sup, pub, disp := anchorNode(t)

	mod.in = []byte(frame + "\r\nOK\r\n")
	n.Step(boot.Add(1500 * time.Millisecond))

	assert.Equal(t, 1, sup.polls)
	require.Len(t, pub.readings, 1)
	r := pub.readings[0]
	assert.Equal(t, 3, r.TagID)
	assert.InDelta(t, 0.42, r.Distance, 1e-9)
	assert.Equal(t, 0, r.AnchorID)
	assert.Equal(t, 1.5, r.AnchorX)
	assert.Equal(t, 2.5, r.AnchorY)
	assert.Equal(t, int64(1500), r.Timestamp)
	assert.Equal(t, 1, n.Published())

	last := disp.frames[len(disp.frames)-1]
	assert.Equal(t, []string{"A0 WiFi:OK MQ:OK", "Ranging OK", "T3: 0.42m", "", "192.168.1.20"}, last)
}

func TestNode_LinesSpanningPolls(t *testing.T) {
	n, mod, _, pub, _ := anchorNode(t)

	mod.in = []byte(frame[:20])
	n.Step(boot)
	assert.Empty(t, pub.readings)

	mod.in = []byte(frame[20:] + "\n" + frame + "\n")
	n.Step(boot.Add(time.Millisecond))
	assert.Len(t, pub.readings, 2)
}

func TestNode_IrrelevantLinesIgnored(t *testing.T) {
	n, mod, _, pub, disp := anchorNode(t)

	mod.in = []byte("OK\r\n" + strings.Replace(frame, "ancid:(0", "ancid:(5", 1) + "\r\n")
	n.Step(boot)
	assert.Empty(t, pub.readings)
	assert.Equal(t, "Ready", disp.frames[0][1])
	assert.Equal(t, "Waiting for tags", disp.frames[0][2])
}

func TestNode_ConnectivityShownOnDisplay(t *testing.T) {
	n, _, sup, _, disp := anchorNode(t)

	sup.status = connectivity.Status{Link: connectivity.LinkDown, Broker: connectivity.BrokerDisconnected}
	n.Step(boot)
	assert.Equal(t, []string{"A0 WiFi:-- MQ:--", "WiFi connecting...", "Waiting for tags", "", "Connecting..."}, disp.frames[0])

	sup.status = connectivity.Status{Link: connectivity.LinkUp, Broker: connectivity.BrokerDisconnected}
	n.Step(boot)
	assert.Equal(t, "A0 WiFi:OK MQ:--", disp.frames[1][0])
	assert.Equal(t, "MQTT connecting...", disp.frames[1][1])
}

func TestNode_StatusLinesFitPanel(t *testing.T) {
	n, _, sup, _, disp := anchorNode(t)
	n.cfg.NodeID = 255

	for _, st := range []connectivity.Status{
		{Link: connectivity.LinkDown, Broker: connectivity.BrokerDisconnected},
		{Link: connectivity.LinkUp, Broker: connectivity.BrokerDisconnected},
		{Link: connectivity.LinkUp, Broker: connectivity.BrokerConnected},
	} {
		sup.status = st
		n.Step(boot)
		for _, line := range disp.frames[len(disp.frames)-1] {
			assert.LessOrEqual(t, len(line), display.Columns, "%q", line)
		}
	}
	assert.Equal(t, waitingForTags, disp.frames[0][2])
}

func TestNode_RemoteAndOperatorCommandsReachModule(t *testing.T) {
	n, mod, sup, _, _ := anchorNode(t)
	op := &fakeModule{in: []byte("AT?\r\n")}
	n.deps.Operator = op

	// the broker pump runs inside the supervisor poll
	sup.onPoll = func() { n.QueueCommand([]byte("AT+SETRPT=0")) }
	n.Step(boot)

	assert.Equal(t, []string{"AT+SETRPT=0\r\n", "AT?\r\n"}, mod.written)

	sup.onPoll = nil
	n.Step(boot)
	assert.Len(t, mod.written, 2)
}

func TestNode_TagRoleOnlyDisplays(t *testing.T) {
	cfg := config.Default()
	cfg.Role = config.RoleTag
	mod := &fakeModule{in: []byte(frame + "\n")}
	disp := &recordingDisplay{}
	n := NewNode(&cfg, NodeDeps{Module: mod, Display: disp, Uptime: clock.NewUptime(clock.NewManual(boot))}, zerolog.Nop())

	n.Step(boot)
	require.Len(t, disp.frames, 1)
	lines := disp.frames[0]
	assert.Equal(t, "T0 WiFi:OK MQ:--", lines[0])
	assert.Equal(t, "Tag 0 - RANGING", lines[1])
	assert.Equal(t, frame[:18], lines[2])
	assert.Equal(t, 0, n.Published())
}
