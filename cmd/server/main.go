// Package main is the entry point for the meeblipcc API server
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the system MIDI driver
	"go.uber.org/zap"

	"github.com/james-see/meeblipcc/pkg/api"
	"github.com/james-see/meeblipcc/pkg/config"
	"github.com/james-see/meeblipcc/pkg/engine"
	"github.com/james-see/meeblipcc/pkg/host"
)

func main() {
	port := flag.Int("port", 0, "Server port (default from config)")
	configFile := flag.String("config", "", "Config file")
	offline := flag.Bool("offline", false, "Do not open MIDI ports")
	flag.Parse()

	if err := run(*configFile, *port, *offline); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, port int, offline bool) error {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFrom(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.HTTPPort
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	ecfg.Logger = logger

	e, err := engine.New(ecfg, nil)
	if err != nil {
		return err
	}
	runner := host.NewRunner(e, cfg.BlockSize, logger)

	if !offline {
		bridge, err := host.OpenBridge(runner, cfg.Ports.Input, cfg.Ports.Output, logger)
		if err != nil {
			logger.Warn("running without MIDI ports", zap.Error(err))
		} else {
			defer bridge.Close()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, host.BlockPeriod(cfg.BlockSize, cfg.SampleRate)) }()

	fmt.Printf("Starting meeblipcc API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)

	serveErr := api.NewServer(runner, ecfg, logger).StartServer(ctx, port)
	cancel()
	if err := <-done; err != nil {
		return err
	}
	return serveErr
}
