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
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/mallid/internal/config"
	"github.com/your-org/mallid/internal/engine"
	"github.com/your-org/mallid/internal/observability"
	"github.com/your-org/mallid/internal/queue"
	"github.com/your-org/mallid/internal/storage"
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

	slog.Info("starting mallid engine", "workers", cfg.Matching.WorkerCount)

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

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	eng := engine.New(
		storage.NewTrackletRepo(pool),
		storage.NewTopologyRepo(pool),
		storage.NewFrequentOutfitRepo(pool),
		storage.NewAssociationRepo(pool),
		storage.NewJourneyRepo(pool),
		storage.NewFrequentOutfitRepo(pool),
		engine.ConfigFromMatching(cfg.Matching),
	)

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeRunTriggers(ctx, "mallid-engine", func(ctx context.Context, msg jetstream.Msg) error {
		var trigger queue.RunTrigger
		if err := json.Unmarshal(msg.Data(), &trigger); err != nil {
			slog.Error("unmarshal run trigger", "error", err)
			return nil
		}

		summary, runErr := eng.RunBatch(ctx, trigger.MallID, trigger.From, trigger.To, trigger.JourneyDate)

		completed := queue.RunCompleted{RunID: trigger.RunID, MallID: trigger.MallID}
		if runErr != nil {
			completed.Err = runErr.Error()
		} else {
			completed.LinkedCount = summary.LinkedCount
			completed.AmbiguousCount = summary.AmbiguousCount
			completed.NewVisitorCount = summary.NewVisitorCount
			completed.JourneyCount = summary.JourneyCount
			completed.OrphanCount = summary.OrphanCount
			completed.DurationSeconds = summary.Duration.Seconds()
		}
		if err := producer.PublishRunCompleted(ctx, completed); err != nil {
			slog.Warn("publish run completed", "error", err, "run_id", trigger.RunID)
		}

		if runErr == nil && minioStore != nil {
			summaryJSON, _ := json.Marshal(summary)
			manifest := storage.RunManifest{
				MallID:      trigger.MallID,
				RunID:       trigger.RunID,
				From:        trigger.From,
				To:          trigger.To,
				JourneyDate: trigger.JourneyDate,
				FinishedAt:  time.Now(),
				SummaryJSON: summaryJSON,
			}
			if err := minioStore.ArchiveRun(ctx, manifest); err != nil {
				slog.Warn("archive run manifest", "error", err, "run_id", trigger.RunID)
			}
		}

		return runErr
	}, cfg.Matching.WorkerCount)
	if err != nil {
		slog.Error("start run trigger consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("engine metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down engine...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("engine stopped")
}
