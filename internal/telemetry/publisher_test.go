package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/uwb_node/internal/uwb"
)

type gate bool

func (g gate) Connected() bool { return bool(g) }

type recordingSink struct {
	topics   []string
	payloads [][]byte
	retained []bool
	ok       bool
}

func (s *recordingSink) Publish(topic string, payload []byte, retain bool) bool {
	s.topics = append(s.topics, topic)
	s.payloads = append(s.payloads, payload)
	s.retained = append(s.retained, retain)
	return s.ok
}

var reading = uwb.Reading{
	TagID:     3,
	Distance:  0.42,
	RSSI:      -70,
	AnchorID:  0,
	AnchorX:   1.5,
	AnchorY:   2.25,
	Timestamp: 12345,
}

func TestPublisher_DisconnectedNeverTouchesSink(t *testing.T) {
	sink := &recordingSink{ok: true}
	p := NewPublisher(sink, gate(false), "uwb/anchor/0", zerolog.Nop())

	assert.False(t, p.Publish(reading))
	assert.Empty(t, sink.topics)
}

func TestPublisher_Payload(t *testing.T) {
	sink := &recordingSink{ok: true}
	p := NewPublisher(sink, gate(true), "uwb/anchor/0", zerolog.Nop())

	require.True(t, p.Publish(reading))
	require.Len(t, sink.payloads, 1)
	assert.Equal(t, "uwb/anchor/0", sink.topics[0])
	assert.False(t, sink.retained[0])

	var got map[string]any
	require.NoError(t, json.Unmarshal(sink.payloads[0], &got))
	assert.Equal(t, map[string]any{
		"tagId":     3.0,
		"distance":  0.42,
		"rssi":      -70.0,
		"anchorId":  0.0,
		"anchorX":   1.5,
		"anchorY":   2.25,
		"timestamp": 12345.0,
	}, got)

	sent, failed := p.Counts()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
}

func TestPublisher_SinkFailureNotRetried(t *testing.T) {
	sink := &recordingSink{ok: false}
	p := NewPublisher(sink, gate(true), "uwb/anchor/0", zerolog.Nop())

	assert.False(t, p.Publish(reading))
	assert.Len(t, sink.topics, 1)

	sent, failed := p.Counts()
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)
}
