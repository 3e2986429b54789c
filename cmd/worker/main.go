// Command worker runs the bulk document-extraction pipeline: it discovers
// documents under a job's configured source, rasterizes and extracts each
// one through a vision LLM, persists the results, and reconciles job/
// document state on a fixed cadence.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/broker"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/config"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/discovery"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/eventbus"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/extraction"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/jobmanager"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/postgres"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/rasterizer"
	"github.com/SHRUTI-SHAR/DocFlow-sub001/internal/visionllm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	log.Printf("bulk extraction worker starting (broker=%s, vision_llm=%s)", cfg.BrokerURL, cfg.VisionLLMProvider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	bus, err := eventbus.New(cfg.EventBusURL)
	if err != nil {
		log.Fatalf("failed to connect event bus: %v", err)
	}
	defer bus.Close()

	b, err := broker.New(broker.Config{RedisURL: cfg.BrokerURL, Concurrency: cfg.WorkerConcurrency})
	if err != nil {
		log.Fatalf("failed to initialize broker: %v", err)
	}
	defer b.Close()

	renderClient := rasterizer.NewHTTPRenderClient(cfg.RenderServiceURL)
	rasterPool := rasterizer.NewPool(renderClient, cfg.ParallelWorkers)

	llm := visionllm.New(visionllm.Config{
		Provider: cfg.VisionLLMProvider,
		APIKey:   cfg.VisionLLMAPIKey,
		BaseURL:  cfg.VisionLLMBaseURL,
		ModelID:  cfg.ExtractionModelID,
	})

	hostname, _ := os.Hostname()
	extractionWorker := extraction.New(db, bus, rasterPool, llm, extraction.Config{
		WorkerID:              hostname,
		BatchSize:             5,
		ReviewThreshold:       cfg.ConfidenceThreshold,
		MaxRasterFailureRatio: 0.5,
	})
	discoveryWorker := discovery.New(db, b)
	mgr := jobmanager.New(db, b)
	reconciler := jobmanager.NewReconciler(mgr, 30*time.Minute)

	b.RegisterHandler(broker.TaskDiscoverDocuments, discoveryWorker.HandleTask)
	b.RegisterHandler(broker.TaskExtractDocument, extractionWorker.HandleTask)
	b.RegisterHandler(broker.TaskKeepalive, func(ctx context.Context, _ *asynq.Task) error {
		return db.Ping(ctx)
	})

	scheduler := cron.New()
	reconcileSpec := "@every " + (time.Duration(cfg.ReconcileInterval) * time.Second).String()
	if _, err := scheduler.AddFunc(reconcileSpec, func() {
		if err := reconciler.Run(ctx); err != nil {
			log.Printf("reconciler pass failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("failed to schedule reconciler: %v", err)
	}
	if _, err := scheduler.AddFunc("@every 15m", func() {
		if err := b.EnqueueKeepalive(ctx); err != nil {
			log.Printf("failed to enqueue keepalive: %v", err)
		}
	}); err != nil {
		log.Fatalf("failed to schedule keepalive: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("worker ready: concurrency=%d, reconcile_interval=%ds", cfg.WorkerConcurrency, cfg.ReconcileInterval)

	if err := b.Run(ctx); err != nil {
		log.Fatalf("broker server exited with error: %v", err)
	}

	log.Printf("shutdown complete")
}
