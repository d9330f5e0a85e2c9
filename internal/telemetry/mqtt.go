// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/uwb_node/internal/connectivity"
)

const (
	inboxSize     = 16
	disconnectMs  = 250
	statusOffline = "offline"
)

type MQTTConfig struct {
	Broker         string
	ConnectTimeout time.Duration
	StatusTopic    string
	// CommandTopic carries AT commands for the attached module. Empty
	// disables remote commands.
	CommandTopic string
}

// MQTT is the paho-backed broker. Paho's own reconnect logic is switched
// off: the connectivity supervisor decides when to try again.
type MQTT struct {
	cfg       MQTTConfig
	log       zerolog.Logger
	newClient func(*mqtt.ClientOptions) mqtt.Client

	client    mqtt.Client
	inbox     chan []byte
	onCommand func(payload []byte)
}

var _ connectivity.Broker = (*MQTT)(nil)

func NewMQTT(cfg MQTTConfig, log zerolog.Logger) *MQTT {
	return &MQTT{
		cfg:       cfg,
		log:       log,
		newClient: mqtt.NewClient,
		inbox:     make(chan []byte, inboxSize),
	}
}

// OnCommand sets the handler for payloads received on the command topic.
// It is called from Loop, on the caller's goroutine.
func (b *MQTT) OnCommand(fn func(payload []byte)) { b.onCommand = fn }

func (b *MQTT) IsConnected() bool {
	return b.client != nil && b.client.IsConnectionOpen()
}

// Connect opens a fresh session, blocking at most ConnectTimeout.
func (b *MQTT) Connect(clientID string, cred connectivity.Credentials) bool {
	if b.client != nil {
		b.client.Disconnect(0)
		b.client = nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(b.cfg.ConnectTimeout).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.log.Warn().Err(err).Msg("MQTT connection lost")
		})
	if cred.User != "" {
		opts.SetUsername(cred.User).SetPassword(cred.Password)
	}
	if b.cfg.StatusTopic != "" {
		opts.SetWill(b.cfg.StatusTopic, statusOffline, 0, true)
	}

	client := b.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		b.log.Warn().Msgf("MQTT connect to %s timed out", b.cfg.Broker)
		client.Disconnect(0)
		return false
	}
	if err := token.Error(); err != nil {
		b.log.Warn().Err(err).Msgf("MQTT connect to %s failed", b.cfg.Broker)
		return false
	}
	b.client = client
	b.log.Info().Msgf("connected to MQTT broker at %s", b.cfg.Broker)

	if b.cfg.CommandTopic != "" {
		b.subscribeCommands()
	}
	return true
}

func (b *MQTT) subscribeCommands() {
	token := b.client.Subscribe(b.cfg.CommandTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		select {
		case b.inbox <- payload:
		default:
			b.log.Warn().Msgf("command inbox full, dropped %q", payload)
		}
	})
	if !token.WaitTimeout(b.cfg.ConnectTimeout) || token.Error() != nil {
		b.log.Warn().Err(token.Error()).Msgf("subscribe %s failed", b.cfg.CommandTopic)
		return
	}
	b.log.Info().Msgf("subscribed to MQTT topic %s", b.cfg.CommandTopic)
}

func (b *MQTT) Publish(topic string, payload []byte, retain bool) bool {
	if b.client == nil {
		return false
	}
	token := b.client.Publish(topic, 0, retain, payload)
	if !token.WaitTimeout(b.cfg.ConnectTimeout) {
		return false
	}
	return token.Error() == nil
}

// Loop delivers queued command payloads. It never blocks.
func (b *MQTT) Loop() {
	for {
		select {
		case payload := <-b.inbox:
			if b.onCommand != nil {
				b.onCommand(payload)
			}
		default:
			return
		}
	}
}

// Close announces a clean shutdown and drops the session.
func (b *MQTT) Close() {
	if b.client == nil {
		return
	}
	if b.cfg.StatusTopic != "" && b.client.IsConnectionOpen() {
		b.Publish(b.cfg.StatusTopic, []byte(statusOffline), true)
	}
	b.client.Disconnect(disconnectMs)
	b.client = nil
}
