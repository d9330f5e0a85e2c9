package monitor

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uwb_node/internal/simulator"
	"github.com/relabs-tech/uwb_node/internal/uwb"
)

func recordReading(t *testing.T, s *Store, r uwb.Reading, at time.Time) {
	t.Helper()
	payload, err := json.Marshal(r)
	require.NoError(t, err)
	s.Record("uwb/anchor/"+strconv.Itoa(r.AnchorID), payload, at)
}

func recordWorld(t *testing.T, s *Store, w *simulator.World, at time.Time) {
	t.Helper()
	for _, tag := range w.Tags {
		for _, a := range w.Anchors {
			recordReading(t, s, uwb.Reading{
				TagID:    tag.ID,
				Distance: simulator.Distance(tag, a),
				AnchorID: a.AnchorID,
				AnchorX:  a.X,
				AnchorY:  a.Y,
			}, at)
		}
	}
}

func TestStore_PositionsFollowSimulatedTags(t *testing.T) {
	s := NewStore("uwb/anchor", 10)
	s.SetArea(10)
	w := simulator.NewWorld(7)

	for i := 0; i < 5; i++ {
		w.Step()
		at := now.Add(time.Duration(i) * time.Second)
		recordWorld(t, s, w, at)

		positions := s.Positions()
		require.Len(t, positions, len(w.Tags))
		for j, tag := range w.Tags {
			p := positions[j]
			assert.Equal(t, tag.ID, p.TagID)
			assert.InDelta(t, tag.X, p.X, 0.01, "tag %d x", tag.ID)
			assert.InDelta(t, tag.Y, p.Y, 0.01, "tag %d y", tag.ID)
			assert.Equal(t, []int{0, 1, 2}, p.Anchors)
			assert.Equal(t, at, p.LastSeen)
		}
	}
}

func TestStore_PositionNeedsThreeAnchors(t *testing.T) {
	s := NewStore("uwb/anchor", 10)
	w := simulator.NewWorld(1)
	tag := w.Tags[0]

	for _, a := range w.Anchors[:2] {
		recordReading(t, s, uwb.Reading{TagID: tag.ID, Distance: simulator.Distance(tag, a), AnchorID: a.AnchorID, AnchorX: a.X, AnchorY: a.Y}, now)
	}
	assert.Empty(t, s.Positions())

	a := w.Anchors[2]
	recordReading(t, s, uwb.Reading{TagID: tag.ID, Distance: simulator.Distance(tag, a), AnchorID: a.AnchorID, AnchorX: a.X, AnchorY: a.Y}, now)
	positions := s.Positions()
	require.Len(t, positions, 1)
	assert.InDelta(t, 3.0, positions[0].X, 1e-9)
	assert.InDelta(t, 4.0, positions[0].Y, 1e-9)
}

func TestStore_CollinearAnchorsKeepLastPosition(t *testing.T) {
	s := NewStore("uwb/anchor", 10)
	for id, x := range []float64{0, 5, 10} {
		recordReading(t, s, uwb.Reading{TagID: 9, Distance: 4, AnchorID: id, AnchorX: x}, now)
	}
	assert.Empty(t, s.Positions())

	w := simulator.NewWorld(1)
	tag := w.Tags[0]
	for _, a := range w.Anchors[:3] {
		recordReading(t, s, uwb.Reading{TagID: tag.ID, Distance: simulator.Distance(tag, a), AnchorID: a.AnchorID, AnchorX: a.X, AnchorY: a.Y}, now)
	}
	require.Len(t, s.Positions(), 1)

	// anchor 2 reported from a spot on the line through anchors 0 and 1
	recordReading(t, s, uwb.Reading{TagID: tag.ID, Distance: 2, AnchorID: 2, AnchorX: 5}, now.Add(time.Second))
	p := s.Positions()[0]
	assert.Equal(t, tag.ID, p.TagID)
	assert.InDelta(t, 3.0, p.X, 0.01)
	assert.InDelta(t, 4.0, p.Y, 0.01)
	assert.Equal(t, now, p.LastSeen)
}

func TestStore_PositionClampedToArea(t *testing.T) {
	s := NewStore("uwb/anchor", 10)
	s.SetArea(10)
	w := simulator.NewWorld(1)
	outside := simulator.Tag{ID: 9, X: 12, Y: -1}
	for _, a := range w.Anchors {
		recordReading(t, s, uwb.Reading{TagID: outside.ID, Distance: simulator.Distance(outside, a), AnchorID: a.AnchorID, AnchorX: a.X, AnchorY: a.Y}, now)
	}
	positions := s.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, 10.0, positions[0].X)
	assert.Equal(t, 0.0, positions[0].Y)
}

func TestTrilaterate(t *testing.T) {
	x, y, ok := trilaterate(
		tagRange{0, 0, 5},
		tagRange{10, 0, math.Sqrt(65)},
		tagRange{10, 10, math.Sqrt(85)},
	)
	require.True(t, ok)
	assert.InDelta(t, 3.0, x, 1e-9)
	assert.InDelta(t, 4.0, y, 1e-9)

	_, _, ok = trilaterate(tagRange{0, 0, 1}, tagRange{1, 1, 1}, tagRange{2, 2, 1})
	assert.False(t, ok)
}

func TestHandler_Positions(t *testing.T) {
	s := NewStore("uwb/anchor", 10)
	recordWorld(t, s, simulator.NewWorld(3), now)
	srv := httptest.NewServer(Handler(s, NewHub(zerolog.Nop()), "", zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/positions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var positions []Position
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&positions))
	require.Len(t, positions, 4)
	assert.Equal(t, 1, positions[0].TagID)
	assert.InDelta(t, 3.0, positions[0].X, 0.01)
	assert.InDelta(t, 4.0, positions[0].Y, 0.01)
}
