package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trip_hotel/internal/adapters/contentstore"
	"trip_hotel/internal/adapters/imagefetch"
	"trip_hotel/internal/adapters/observability"
	"trip_hotel/internal/adapters/source"
	"trip_hotel/internal/app"
	"trip_hotel/internal/domain"
	"trip_hotel/internal/shared"
	"trip_hotel/internal/storage"
)

type closingSource interface {
	domain.RecordSource
	io.Closer
}

func main() {
	cfg := shared.Load()

	// 1) logger with its file sink; closed when the run ends
	logger, sink, err := observability.NewLogger(cfg.AppEnv, cfg.LogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("logger init failed")
	}
	log.Logger = logger
	code := run(cfg, logger)
	if err := sink.Close(); err != nil {
		log.Warn().Err(err).Msg("close log sink")
	}
	os.Exit(code)
}

func run(cfg shared.Config, logger zerolog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.Serve(cfg.MetricsAddr)
	if metrics != nil {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metrics.Shutdown(sctx)
		}()
	}

	log.Info().
		Str("store", cfg.StoreDriver).
		Str("source", cfg.IngestSource).
		Str("content", cfg.ContentStore).
		Int("workers", cfg.IngestWorkers).
		Msg("ingestor starting")

	st, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("storage open failed")
		return 1
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		log.Error().Err(err).Msg("schema init failed")
		return 1
	}
	log.Info().Msg("storage ready")

	assets, err := contentstore.Open(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("content store init failed")
		return 1
	}
	defer assets.Close()

	src, err := openSource(cfg)
	if err != nil {
		log.Error().Err(err).Msg("record source init failed")
		return 1
	}
	defer src.Close()

	fetcher := imagefetch.New(imagefetch.Options{
		Timeout:   cfg.FetchTimeout,
		RPS:       cfg.FetchRPS,
		MaxBytes:  cfg.ImageMaxBytes,
		UserAgent: cfg.UserAgent,
	})
	resolver := app.NewAssetResolver(fetcher, assets, app.WithExpiry(cfg.ImagesExpires))

	var worker atomic.Int32 // coordinators are built inside the worker goroutines
	newCoordinator := func() *app.Coordinator {
		return app.NewCoordinator(st, resolver,
			app.WithLogger(logger.With().Int32("worker", worker.Add(1)).Logger()),
			app.WithTimeouts(cfg.FetchTimeout, cfg.PersistTimeout),
			app.WithObserver(observability.ObserveOutcome),
		)
	}

	rep, err := app.RunWorkers(ctx, cfg.IngestWorkers, newCoordinator, src)
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("received", rep.Received).
		Int("persisted", rep.Persisted).
		Int("rejected_validation", rep.Rejected[domain.RejectValidation]).
		Int("rejected_duplicate", rep.Rejected[domain.RejectDuplicate]).
		Int("rejected_persistence", rep.Rejected[domain.RejectPersistence]).
		Int("images_resolved", rep.Assets[domain.AssetResolved]).
		Int("images_failed", rep.Assets[domain.AssetFailed]).
		Bool("interrupted", rep.Interrupted).
		Msg("ingestion completed")
	if err != nil {
		return 1
	}
	return 0
}

func openSource(cfg shared.Config) (closingSource, error) {
	switch cfg.IngestSource {
	case "amqp":
		return source.DialAMQP(source.AMQPConfig{
			URL:      cfg.AMQPURL,
			Queue:    cfg.AMQPQueue,
			Prefetch: cfg.AMQPPrefetch,
		})
	default:
		return source.OpenJSONLines(cfg.IngestFile)
	}
}
