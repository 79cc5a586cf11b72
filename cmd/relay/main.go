package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bus-relay/internal/config"
	"bus-relay/internal/metrics"
	"bus-relay/internal/namelog"
	"bus-relay/internal/publisher"
	"bus-relay/internal/relay"
	"bus-relay/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(os.Stderr)

	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Name log store: Postgres when a DSN is configured, JSON file otherwise
	names, err := openNameLog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("name log error")
	}
	defer names.Close()

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.MinSendInterval)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Optional NATS position mirror
	var mirror *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		mirror, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatal().Err(err).Msg("nats error")
		}
		defer mirror.Close()
	}

	// Core engine and transport
	engine := relay.NewEngine(relay.NewRegistry(), names,
		relay.WithMetrics(mcol),
		relay.WithMinSendInterval(cfg.MinSendInterval),
	)
	hub := ws.NewHub(ctx, engine, mirror, mcol)
	srv := ws.NewServer(cfg.ListenAddr, hub, engine, cfg.StaticDir)
	srv.Start()

	// Block until context cancelled
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown error")
	}
	hub.Stop()
	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
	log.Info().Msg("shutdown complete")
}

func openNameLog(ctx context.Context, cfg *config.Config) (namelog.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := namelog.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("name log backed by postgres")
		return store, nil
	}
	store, err := namelog.OpenFile(cfg.NamesFile)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", cfg.NamesFile).Msg("name log backed by file")
	return store, nil
}

// wrapPublisherMetrics adapts the Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
