package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/uwb_node/internal/app"
	"github.com/relabs-tech/uwb_node/internal/config"
	"github.com/relabs-tech/uwb_node/internal/logging"
)

func main() {
	configPath := flag.String("config", "uwb_node.toml", "path to the configuration file")
	interval := flag.Duration("interval", time.Second, "publish period")
	flag.Parse()

	logging.ConfigureRuntime()
	logging.BridgeMQTT()
	log := logging.Component("main")
	log.Info().Msg("starting uwb MQTT producer (mock anchors)")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockAnchor(ctx, cfg, *interval); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
