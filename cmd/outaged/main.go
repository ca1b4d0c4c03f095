package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/outage-chain-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/outage-chain-etl/internal/adapter/filesink"
	"github.com/couchcryptid/outage-chain-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/outage-chain-etl/internal/adapter/kafka"
	"github.com/couchcryptid/outage-chain-etl/internal/adapter/postgres"
	"github.com/couchcryptid/outage-chain-etl/internal/config"
	"github.com/couchcryptid/outage-chain-etl/internal/domain"
	"github.com/couchcryptid/outage-chain-etl/internal/observability"
	"github.com/couchcryptid/outage-chain-etl/internal/pipeline"
	"github.com/couchcryptid/outage-chain-etl/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := csvfile.NewSource(csvfile.Options{
		EventsPath:    cfg.EventsPath,
		TicketsPath:   cfg.TicketsPath,
		HeaderRow:     cfg.EventsHeaderRow,
		EventColumns:  cfg.Analysis.EventColumns,
		TicketColumns: cfg.Analysis.TicketColumns,
	}, logger)

	sinks, closers, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up sinks", "error", err)
		os.Exit(1)
	}
	if len(sinks) == 0 {
		logger.Warn("no sinks configured, results are only served over HTTP")
	}

	analyzer := domain.NewAnalyzer(cfg.Analysis.Settings)
	p := pipeline.New(source, analyzer, sinks, logger, metrics, pipeline.DefaultRetry())
	triggers := pipeline.NewTriggers()

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, triggers.Request, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start input watcher.
	if cfg.WatchEnabled {
		w, err := watch.New([]string{cfg.EventsPath, cfg.TicketsPath}, cfg.WatchDebounce, func() { triggers.Request() }, logger)
		if err != nil {
			logger.Error("failed to create watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("watcher error", "error", err)
			}
		}()
	}

	// Start analysis pipeline.
	go func() {
		if err := p.Run(ctx, triggers.C()); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for name, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("sink close error", "sink", name, "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// buildSinks creates every sink enabled by the configuration.
func buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, map[string]io.Closer, error) {
	var sinks []pipeline.Sink
	closers := make(map[string]io.Closer)

	if cfg.KafkaEnabled {
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		sinks = append(sinks, w)
		closers[w.Name()] = w
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	}

	if cfg.PostgresDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closers[store.Name()] = store
		logger.Info("postgres sink enabled")
	}

	if cfg.OutputPath != "" {
		fw, err := filesink.NewWriter(cfg.OutputPath, cfg.OutputFormat, logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fw)
		logger.Info("file sink enabled", "path", cfg.OutputPath, "format", cfg.OutputFormat)
	}

	return sinks, closers, nil
}
