// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/uwb_node/internal/clock"
	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/connectivity"
	"github.com/relabs-tech/uwb_node/internal/display"
	"github.com/relabs-tech/uwb_node/internal/hw"
	"github.com/relabs-tech/uwb_node/internal/logging"
	"github.com/relabs-tech/uwb_node/internal/netlink"
	"github.com/relabs-tech/uwb_node/internal/serialport"
	"github.com/relabs-tech/uwb_node/internal/simulator"
	"github.com/relabs-tech/uwb_node/internal/telemetry"
	"github.com/relabs-tech/uwb_node/internal/uwb"
)

const simReportInterval = time.Second

// link is what the node needs from the network interface.
type link interface {
	connectivity.Link
	HardwareAddr() string
	Addr() string
}

// RunNode brings up the module and runs the main loop until ctx is done.
func RunNode(ctx context.Context, cfg *config.Config) error {
	log := logging.Component("node")
	log.Info().Msgf("starting %s %d at (%.2f, %.2f)", cfg.Role, cfg.NodeID, cfg.AnchorX, cfg.AnchorY)

	if cfg.ResetPin != "" {
		reset, err := hw.OpenReset(cfg.ResetPin)
		if err != nil {
			log.Warn().Err(err).Msg("module reset line unavailable")
		} else if err := reset.Pulse(time.Sleep); err != nil {
			log.Warn().Err(err).Msg("module reset pulse failed")
		}
	}

	disp := openDisplay(cfg, log)
	defer disp.Close()
	title := "Anchor+MQTT"
	if cfg.Role == config.RoleTag {
		title = "UWB Tag"
	}
	showOrWarn(disp, display.Splash(title, nodeTitle(cfg), cfg.AnchorX, cfg.AnchorY), log)

	port, err := openModule(cfg)
	if err != nil {
		return err
	}
	defer port.Close()

	clk := clock.System{}
	uptime := clock.NewUptime(clk)

	showOrWarn(disp, display.Screen{Title: nodeTitle(cfg), Status: "UWB Config..."}.Lines(), log)
	log.Info().Msg("configuring UWB module")
	uwb.Configure(uwb.NewCommandSession(port, clk, logging.Component("uwb")), cfg)

	operator := serialport.NewReader("stdin", os.Stdin, logging.Component("operator"))
	deps := NodeDeps{
		Module:   port,
		Operator: operator,
		Display:  disp,
		Uptime:   uptime,
	}

	var broker *telemetry.MQTT
	if cfg.Role == config.RoleAnchor {
		l := openLink(cfg)
		broker = telemetry.NewMQTT(telemetry.MQTTConfig{
			Broker:         cfg.MQTTBroker,
			ConnectTimeout: cfg.MQTTConnectTimeout,
			StatusTopic:    cfg.StatusTopic(),
			CommandTopic:   cfg.CommandTopic(),
		}, logging.Component("mqtt"))
		defer broker.Close()

		sup := connectivity.New(connectivity.Config{
			ClientID:    connectivity.ClientID(cfg.MQTTClientIDPrefix, cfg.NodeID, l.HardwareAddr()),
			Credentials: connectivity.Credentials{User: cfg.MQTTUser, Password: cfg.MQTTPassword},
			StatusTopic: cfg.StatusTopic(),
			LinkRetry:   cfg.LinkRetry,
			BrokerRetry: cfg.BrokerRetry,
		}, l, broker, logging.Component("connectivity"))

		deps.Supervisor = sup
		deps.Link = l
		deps.Publisher = telemetry.NewPublisher(broker, sup, cfg.DataTopic(), logging.Component("telemetry"))
	}

	node := NewNode(cfg, deps, log)
	if broker != nil {
		broker.OnCommand(node.QueueCommand)
	}
	log.Info().Msgf("%s ready", cfg.Role)

	ticker := time.NewTicker(cfg.LoopPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("published", node.Published()).Msg("shutting down")
			return nil
		case <-port.Done():
			return fmt.Errorf("module port closed: %w", port.Err())
		case now := <-ticker.C:
			node.Step(now)
		}
	}
}

func openModule(cfg *config.Config) (*serialport.Port, error) {
	log := logging.Component("serial")
	if cfg.SerialPort == simulator.PortName {
		log.Warn().Msg("using simulated UWB module")
		sim := simulator.NewModule(simulator.NewWorld(uint64(time.Now().UnixNano())), simReportInterval, logging.Component("sim"))
		return serialport.New(simulator.PortName, sim, log), nil
	}
	return serialport.Open(cfg.SerialPort, cfg.SerialBaud, log)
}

func openLink(cfg *config.Config) link {
	log := logging.Component("netlink")
	if cfg.LinkInterface == "" {
		log.Info().Msg("no link interface configured, assuming always up")
		return netlink.Always{}
	}
	return netlink.New(cfg.LinkInterface, cfg.LinkReconnectCmd, log)
}

func showOrWarn(d display.Display, lines []string, log zerolog.Logger) {
	if err := d.Show(lines); err != nil {
		log.Warn().Err(err).Msg("display update failed")
	}
}

func openDisplay(cfg *config.Config, log zerolog.Logger) display.Display {
	if !cfg.DisplayEnable {
		return display.Nop{}
	}
	d, err := display.OpenOLED(cfg.DisplayI2CBus, logging.Component("display"))
	if err != nil {
		log.Warn().Err(err).Msg("SSD1306 OLED failed, continuing without display")
		return display.Nop{}
	}
	return d
}
