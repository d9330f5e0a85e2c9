// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/logging"
	"github.com/relabs-tech/uwb_node/internal/monitor"
)

// RunWeb serves the live monitor: the last messages under the topic prefix,
// per-anchor status, trilaterated tag positions and a websocket feed.
func RunWeb(ctx context.Context, cfg *config.Config, staticDir string) error {
	log := logging.Component("web")

	store := monitor.NewStore(cfg.TopicPrefix, cfg.WebMaxHistory)
	store.SetArea(cfg.WebAreaSize)
	hub := monitor.NewHub(logging.Component("ws"))

	client, err := connectMQTT(cfg, "uwb-web-subscriber", log)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, prefixFilter(cfg.TopicPrefix), func(_ mqtt.Client, msg mqtt.Message) {
		hub.Broadcast(store.Record(msg.Topic(), msg.Payload(), time.Now()))
	}, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.WebListen,
		Handler:           monitor.Handler(store, hub, staticDir, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("web server listening on %s", cfg.WebListen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
