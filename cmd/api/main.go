package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/mallid/internal/api"
	"github.com/your-org/mallid/internal/api/ws"
	"github.com/your-org/mallid/internal/config"
	"github.com/your-org/mallid/internal/observability"
	"github.com/your-org/mallid/internal/queue"
	"github.com/your-org/mallid/internal/storage"
	"github.com/your-org/mallid/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting mallid API service", "port", cfg.Server.Port)

	pool, err := storage.NewPool(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create progress consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeProgress(ctx, "api-progress", func(ctx context.Context, msg jetstream.Msg) error {
		switch {
		case strings.HasPrefix(msg.Subject(), queue.ProgressSubjectBase+"."):
			var p queue.RunProgress
			if err := json.Unmarshal(msg.Data(), &p); err != nil {
				return err
			}
			hub.BroadcastEvent(&dto.RunEvent{
				Type:          "run_progress",
				MallID:        p.MallID,
				TargetsScored: p.TargetsScored,
				TargetsTotal:  p.TargetsTotal,
			})

		case strings.HasPrefix(msg.Subject(), queue.CompletedSubjectBase+"."):
			var c queue.RunCompleted
			if err := json.Unmarshal(msg.Data(), &c); err != nil {
				return err
			}
			hub.BroadcastEvent(&dto.RunEvent{
				Type:            "run_completed",
				RunID:           c.RunID,
				MallID:          c.MallID,
				LinkedCount:     c.LinkedCount,
				AmbiguousCount:  c.AmbiguousCount,
				NewVisitorCount: c.NewVisitorCount,
				JourneyCount:    c.JourneyCount,
				OrphanCount:     c.OrphanCount,
				DurationSeconds: c.DurationSeconds,
				Error:           c.Err,
			})
		}
		return nil
	})
	if err != nil {
		slog.Warn("start progress consumer", "error", err)
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		Pool:     pool,
		MinIO:    minioStore,
		Producer: producer,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
