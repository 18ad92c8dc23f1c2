// Command magd runs the conversion service: health, readiness, and
// metrics endpoints plus on-demand conversions over HTTP, with optional
// Kafka completion events.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/dscovr-mag-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/dscovr-mag-etl/internal/adapter/kafka"
	"github.com/couchcryptid/dscovr-mag-etl/internal/config"
	"github.com/couchcryptid/dscovr-mag-etl/internal/converter"
	"github.com/couchcryptid/dscovr-mag-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Completion events are feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var notifier converter.Notifier
	var kafkaNotifier *kafkaadapter.Notifier
	if cfg.KafkaEnabled {
		kafkaNotifier = kafkaadapter.NewNotifier(cfg, logger)
		notifier = kafkaNotifier
		logger.Info("kafka completion events enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka completion events disabled")
	}

	c := converter.New(logger, metrics, notifier, nil)

	srv := httpadapter.NewServer(cfg.HTTPAddr, c, cfg.InputPath, cfg.OutputPath, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
