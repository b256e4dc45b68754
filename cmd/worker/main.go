package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snapthumb/snapthumb/internal/config"
	"github.com/snapthumb/snapthumb/internal/infra/eventbus"
	"github.com/snapthumb/snapthumb/internal/infra/postgres"
	"github.com/snapthumb/snapthumb/internal/infra/queue"
	"github.com/snapthumb/snapthumb/internal/pipeline"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	bus := eventbus.NewRedisBus(cfg.RedisAddr)
	defer bus.Close()

	q := queue.New(queue.Config{
		RedisAddr:   cfg.RedisAddr,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase(),
		StallWindow: cfg.JobTimeout(),
		Concurrency: cfg.WorkerConcurrency,
	}, bus)
	defer q.Shutdown()

	jobStore := postgres.NewJobStore(dbPool)
	fileStore := postgres.NewFileStore(dbPool)

	p := pipeline.New(cfg, pipeline.Deps{
		JobStore:  jobStore,
		FileStore: fileStore,
		Queue:     q,
		Bus:       bus,
	})

	log.Println("connected to database and redis successfully")

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","database":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy","worker":"running"}`)
	})

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HealthPort),
		Handler: healthMux,
	}

	go func() {
		log.Printf("health check server starting on :%d", cfg.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health check server error: %v", err)
		}
	}()

	runErrCh := make(chan error, 1)
	go func() {
		log.Println("worker started, waiting for jobs...")
		runErrCh <- p.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("shutdown signal received, draining worker...")
		cancel()
		if err := <-runErrCh; err != nil {
			log.Printf("pipeline shutdown error: %v", err)
		}
	case err := <-runErrCh:
		if err != nil {
			log.Printf("pipeline stopped with error: %v", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("health server shutdown error: %v", err)
	}

	log.Println("worker stopped")
}
