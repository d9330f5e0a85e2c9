package simulator

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uwb_node/internal/uwb"
)

func TestWorld_FrameRoundTripsThroughParser(t *testing.T) {
	w := NewWorld(1)
	tag := w.Tags[0] // (3,4)

	line := w.Frame(tag, 7)
	assert.True(t, strings.HasPrefix(line, "AT+RANGE=tid:1,mask:f,seq:7,range:("))
	assert.True(t, strings.HasSuffix(line, "ancid:(0,1,2,3,-1,-1,-1,-1)"))

	for _, a := range w.Anchors {
		r, ok := uwb.Parse(line, a, 99)
		require.True(t, ok, "anchor %d", a.AnchorID)
		assert.Equal(t, 1, r.TagID)
		assert.InDelta(t, Distance(tag, a), r.Distance, 0.006)
		assert.Equal(t, int64(99), r.Timestamp)
	}

	// (3,4) to (0,0) is 5m
	r, _ := uwb.Parse(line, w.Anchors[0], 0)
	assert.InDelta(t, 5.0, r.Distance, 1e-9)
}

func TestWorld_StepStaysInside(t *testing.T) {
	w := NewWorld(42)
	for i := 0; i < 5000; i++ {
		w.Step()
	}
	for _, tag := range w.Tags {
		assert.GreaterOrEqual(t, tag.X, margin)
		assert.LessOrEqual(t, tag.X, siteSize-margin)
		assert.GreaterOrEqual(t, tag.Y, margin)
		assert.LessOrEqual(t, tag.Y, siteSize-margin)
	}
}

func TestWorld_Deterministic(t *testing.T) {
	a, b := NewWorld(5), NewWorld(5)
	for i := 0; i < 10; i++ {
		a.Step()
		b.Step()
	}
	assert.Equal(t, a.Tags, b.Tags)
}

func TestModule_AnswersCommands(t *testing.T) {
	m := NewModule(NewWorld(1), time.Hour, zerolog.Nop())
	defer m.Close()

	_, err := m.Write([]byte("AT?\r\nAT+SE"))
	require.NoError(t, err)
	_, err = m.Write([]byte("TRPT=0\r\nhello\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(m)
	for _, want := range []string{"OK", "OK", "ERROR"} {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, want, strings.TrimSpace(line))
	}
}

func TestModule_EmitsReports(t *testing.T) {
	m := NewModule(NewWorld(1), 5*time.Millisecond, zerolog.Nop())
	r := bufio.NewReader(m)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, uwb.ReportPrefix))

	require.NoError(t, m.Close())
	_, err = io.ReadAll(r)
	assert.NoError(t, err)
	_, err = m.Write([]byte("AT\r\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestModule_ReportingOff(t *testing.T) {
	m := NewModule(NewWorld(1), time.Millisecond, zerolog.Nop())
	_, err := m.Write([]byte("AT+RESTORE\r\n"))
	require.NoError(t, err)

	m.mu.Lock()
	assert.True(t, strings.HasSuffix(string(m.out), "OK\r\n"))
	m.out = nil
	m.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	m.mu.Lock()
	pending := len(m.out)
	m.mu.Unlock()
	assert.Zero(t, pending)
	require.NoError(t, m.Close())
}
