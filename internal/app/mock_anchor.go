// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/relabs-tech/uwb_node/internal/clock"
	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/logging"
	"github.com/relabs-tech/uwb_node/internal/simulator"
	"github.com/relabs-tech/uwb_node/internal/uwb"
)

// simulatedReadings is what every anchor of the world reports for one tick.
func simulatedReadings(w *simulator.World, timestamp int64) []uwb.Reading {
	out := make([]uwb.Reading, 0, len(w.Tags)*len(w.Anchors))
	for _, t := range w.Tags {
		for _, a := range w.Anchors {
			out = append(out, uwb.Reading{
				TagID:     t.ID,
				Distance:  math.Round(simulator.Distance(t, a)*100) / 100,
				AnchorID:  a.AnchorID,
				AnchorX:   a.X,
				AnchorY:   a.Y,
				Timestamp: timestamp,
			})
		}
	}
	return out
}

// RunMockAnchor publishes simulated readings for four anchors straight to
// the broker, without any radio, once per interval.
func RunMockAnchor(ctx context.Context, cfg *config.Config, interval time.Duration) error {
	log := logging.Component("mock_anchor")
	client, err := connectMQTT(cfg, "uwb-mock-anchor", log)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	world := simulator.NewWorld(uint64(time.Now().UnixNano()))
	uptime := clock.NewUptime(clock.System{})

	for _, a := range world.Anchors {
		topic := cfg.TopicPrefix + "/" + strconv.Itoa(a.AnchorID) + "/status"
		client.Publish(topic, 0, true, []byte("online")).Wait()
	}
	log.Info().Msgf("publishing simulated UWB data every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, a := range world.Anchors {
				topic := cfg.TopicPrefix + "/" + strconv.Itoa(a.AnchorID) + "/status"
				client.Publish(topic, 0, true, []byte("offline")).Wait()
			}
			return nil
		case now := <-ticker.C:
			world.Step()
			readings := simulatedReadings(world, uptime.Millis(now))
			for _, r := range readings {
				payload, err := json.Marshal(r)
				if err != nil {
					log.Error().Err(err).Msg("json marshal error")
					continue
				}
				client.Publish(cfg.TopicPrefix+"/"+strconv.Itoa(r.AnchorID), 0, false, payload)
			}
			log.Debug().Msgf("published %d readings for %d tags", len(readings), len(world.Tags))
		}
	}
}
