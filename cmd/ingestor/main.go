package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"cofind/internal/adapters/observability"
	"cofind/internal/adapters/places"
	redisad "cofind/internal/adapters/redis"
	"cofind/internal/app"
	"cofind/internal/shared"
	"cofind/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "ingestor", cfg.LogLevel)
	if ms := observability.Serve(cfg.MetricsAddr, observability.InitRegistry()); ms != nil {
		defer ms.Close()
	}

	log.Info().
		Str("base", cfg.PlacesBase).
		Int("workers", cfg.Workers).
		Strs("locations", cfg.Locations).
		Msg("ingestor starting")

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite open failed")
	}
	defer db.Close()
	log.Info().Str("path", cfg.SQLitePath).Msg("db ready")

	repo := sqlite.New(db)

	client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Places client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	ing := app.NewIngestionService(client, repo, cache)

	var total app.IngestStats
	for _, loc := range cfg.Locations {
		st, err := ing.IngestLocation(ctx, loc, cfg.Workers)
		total.Discovered += st.Discovered
		total.OK += st.OK
		total.Failed += st.Failed
		if err != nil {
			log.Error().Err(err).Str("location", loc).Msg("location ingest failed")
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Info().
			Str("location", loc).
			Int("places", st.Discovered).
			Int("ok", st.OK).
			Int("failed", st.Failed).
			Msg("location ingested")
	}

	log.Info().
		Int("places", total.Discovered).
		Int("ok", total.OK).
		Int("failed", total.Failed).
		Msg("ingestion completed")
}
