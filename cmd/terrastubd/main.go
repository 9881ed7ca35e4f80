package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"terralink/internal/config"
	"terralink/internal/genserver"
	"terralink/internal/logging"
	"terralink/internal/observability"
	"terralink/internal/protocol"
	"terralink/internal/protocol/frame"
	"terralink/internal/transport"
)

func main() {
	configPath := flag.String("config", "cmd/terrastubd/config.toml", "path to the server config")
	flag.Parse()

	logging.ConfigureRuntime("terrastubd")
	observability.RegisterMetrics()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load server config")
	}
	log.Info().Str("path", *configPath).Msg("loaded server config")
	logging.SetLevel(cfg.LogLevel)

	registry := genserver.NewRegistry(genserver.NewFlatFill)
	for _, g := range cfg.Generators {
		id, err := registry.Add(g.Name, genserver.Params{
			MinHeight:    g.MinHeight,
			MaxHeight:    g.MaxHeight,
			DefaultBlock: g.DefaultBlock,
		})
		if err != nil {
			log.Fatal().Err(err).Str("generator", g.Name).Msg("failed to register generator")
		}
		log.Info().Str("generator", g.Name).Uint32("id", uint32(id)).Msg("generator registered")
	}

	limits := frame.DefaultLimits()
	if cfg.MaxPayloadBytes > 0 {
		limits.MaxPayloadBytes = cfg.MaxPayloadBytes
	}
	srv := genserver.NewServer(registry, genserver.Config{
		Transport: transport.Config{
			QueueDepth: cfg.QueueDepth,
			Limits:     limits,
			Codec:      protocol.Codec{Level: cfg.CompressionLevel},
		},
		ShutdownGrace: cfg.ShutdownGrace,
	})

	l, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.Fatal().Err(err).Str("listen", cfg.Listen).Msg("failed to listen")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		srv.Stop()
	}()

	log.Info().Str("listen", cfg.Listen).Msg("generation service started")
	if err := srv.Serve(l); err != nil {
		log.Fatal().Err(err).Msg("generation service stopped")
	}
}
