package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/pubd/internal/config"
	"github.com/danmuck/pubd/internal/observability"
	"github.com/danmuck/pubd/internal/repository"
	"github.com/danmuck/pubd/internal/server"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/pubd/config.toml", "path to pubd config")
	flag.Parse()

	observability.InitLogger("pubd")
	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load pubd config")
	}
	log.Info().Str("path", *configPath).Int("publishers", len(cfg.Publishers)).Msg("loaded pubd config")

	store := repository.New()
	for _, p := range cfg.Publishers {
		if err := store.AddPublisher(p.Handle, p.ParsedBaseURI()); err != nil {
			log.Fatal().Err(err).Str("publisher", p.Handle).Msg("failed to register publisher")
		}
		log.Info().Str("publisher", p.Handle).Str("base_uri", p.BaseURI).Msg("publisher registered")
	}

	srv := server.Appear(cfg.ID, cfg.Addr, cfg.CorsOrigins, store)
	srv.MaxBodyBytes = cfg.MaxBodyBytes

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("id", srv.ID).Str("addr", srv.Addr).Msg("pubd started")
	if err := srv.Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("pubd stopped")
	}
	log.Info().Str("id", srv.ID).Msg("pubd stopped")
}
