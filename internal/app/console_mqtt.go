// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/logging"
	"github.com/relabs-tech/uwb_node/internal/monitor"
	"github.com/relabs-tech/uwb_node/internal/uwb"
)

// connectMQTT opens a plain subscriber session for the monitoring tools.
func connectMQTT(cfg *config.Config, clientID string, log zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID).
		SetConnectTimeout(cfg.MQTTConnectTimeout)
	if cfg.MQTTUser != "" {
		opts.SetUsername(cfg.MQTTUser).SetPassword(cfg.MQTTPassword)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", cfg.MQTTBroker, token.Error())
	}
	log.Info().Msgf("connected to MQTT broker at %s", cfg.MQTTBroker)
	return client, nil
}

// prefixFilter matches every anchor topic under prefix.
func prefixFilter(prefix string) string { return prefix + "/#" }

func subscribe(client mqtt.Client, topic string, cb mqtt.MessageHandler, log zerolog.Logger) error {
	token := client.Subscribe(topic, 0, cb)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Info().Msgf("subscribed to MQTT topic %s", topic)
	return nil
}

// RunConsoleMQTT prints every reading and status change under the topic
// prefix until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	log := logging.Component("console")
	client, err := connectMQTT(cfg, "uwb-console-subscriber", log)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe(client, prefixFilter(cfg.TopicPrefix), func(_ mqtt.Client, msg mqtt.Message) {
		printMessage(os.Stdout, cfg.TopicPrefix, msg.Topic(), msg.Payload(), log)
	}, log)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return nil
}

func printMessage(w io.Writer, prefix, topic string, payload []byte, log zerolog.Logger) {
	id, kind, ok := monitor.ParseTopic(prefix, topic)
	if !ok {
		return
	}
	switch kind {
	case monitor.TopicStatus:
		fmt.Fprintf(w, "[STAT] A%d %s\n", id, payload)
	case monitor.TopicCommand:
		fmt.Fprintf(w, "[CMD]  A%d %s\n", id, payload)
	case monitor.TopicData:
		var r uwb.Reading
		if err := json.Unmarshal(payload, &r); err != nil {
			log.Warn().Err(err).Msgf("reading unmarshal error on %s", topic)
			return
		}
		fmt.Fprintf(w, "[UWB]  A%d (%5.2f,%5.2f)  T%-3d  D=%6.2fm  RSSI=%4d  t=%dms\n",
			r.AnchorID, r.AnchorX, r.AnchorY, r.TagID, r.Distance, r.RSSI, r.Timestamp)
	}
}
