// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/uwb_node/internal/app"
	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/logging"
)

func main() {
	configPath := flag.String("config", "uwb_node.toml", "path to the node configuration file")
	flag.Parse()

	logging.ConfigureRuntime()
	logging.BridgeMQTT()
	log := logging.Component("main")
	log.Info().Msg("starting uwb node")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunNode(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
