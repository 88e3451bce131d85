package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "cofind/internal/adapters/http_server"
	"cofind/internal/adapters/jsonstore"
	"cofind/internal/adapters/llm"
	"cofind/internal/adapters/observability"
	"cofind/internal/adapters/places"
	redisad "cofind/internal/adapters/redis"
	"cofind/internal/app"
	"cofind/internal/domain"
	"cofind/internal/keywords"
	"cofind/internal/lexicon"
	"cofind/internal/recommend"
	"cofind/internal/shared"
	"cofind/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "api", cfg.LogLevel)

	// db
	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite open failed")
	}
	defer db.Close()
	log.Info().Str("path", cfg.SQLitePath).Msg("database ready")

	// deps
	repo := sqlite.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		// reads still work without redis, just uncached
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
	}

	lx, err := lexicon.Load(cfg.LexiconPath)
	if err != nil {
		log.Fatal().Err(err).Msg("lexicon load failed")
	}
	src, err := shopSource(cfg, repo, cache)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.ShopSource).Msg("shop source init failed")
	}
	gen, err := llm.New(llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMKey(),
	})
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLMProvider).Msg("llm client init failed")
	}

	rec := recommend.NewService(src, gen, keywords.NewGeneratorExtractor(gen), lx, recommend.Options{
		MaxShops:        cfg.MaxShops,
		MaxTokens:       cfg.LLMMaxTokens,
		Temperature:     cfg.LLMTemperature,
		TopP:            cfg.LLMTopP,
		DefaultLocation: cfg.DefaultLocation,
	})
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)
	users := app.NewUserContentService(repo, repo, cache)

	// http
	srv := server.New(server.Options{Timeout: cfg.RequestTimeout, CORSOrigins: cfg.CORSOrigins})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	if ms := observability.Serve(cfg.MetricsAddr, reg); ms != nil {
		defer ms.Close()
	}
	srv.MountHandlers(&server.Handlers{
		Q:     q,
		Users: users,
		Rec:   rec,
		Ping:  func(ctx context.Context) error { return pingDB(ctx, db) },
	})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Str("source", cfg.ShopSource).
		Str("provider", cfg.LLMProvider).
		Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}

// shopSource picks the recommendation data source named by SHOP_SOURCE.
func shopSource(cfg shared.Config, repo *sqlite.Repo, cache domain.Cache) (domain.ShopSource, error) {
	switch cfg.ShopSource {
	case "json":
		st, err := jsonstore.Open(cfg.SnapshotPlaces, cfg.SnapshotReviews)
		if err != nil {
			return nil, err
		}
		log.Info().Int("shops", len(st.Shops())).Str("places", cfg.SnapshotPlaces).Msg("json snapshot loaded")
		return st, nil
	case "places":
		client, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
		if err != nil {
			return nil, err
		}
		return app.NewPlacesSource(client, cache, cfg.CacheTTL, cfg.Workers), nil
	case "sqlite", "":
		return repo, nil
	default:
		return nil, errors.New("unknown SHOP_SOURCE " + cfg.ShopSource + " (want json, sqlite or places)")
	}
}

func pingDB(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
