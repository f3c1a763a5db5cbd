package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"trip_hotel/internal/adapters/contentstore"
	server "trip_hotel/internal/adapters/http_server"
	"trip_hotel/internal/adapters/observability"
	redisad "trip_hotel/internal/adapters/redis"
	"trip_hotel/internal/app"
	"trip_hotel/internal/domain"
	"trip_hotel/internal/shared"
	"trip_hotel/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	logger, sink, err := observability.NewLogger(cfg.AppEnv, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("logger init failed")
	}
	defer sink.Close()
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	st, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("storage open failed")
	}
	defer st.Close()
	log.Info().Str("driver", cfg.StoreDriver).Msg("database connection ok")

	// deps
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, serving without cache")
		} else {
			cache = rc
			defer rc.Close()
		}
	}
	var assets domain.ContentStore
	if cs, err := contentstore.Open(ctx, cfg); err != nil {
		log.Warn().Err(err).Msg("image store unavailable")
	} else {
		assets = cs
		defer cs.Close()
	}
	q := app.NewQueryService(st, cache, assets, cfg.CacheTTL)

	// http
	srv := server.New(logger)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: q})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
