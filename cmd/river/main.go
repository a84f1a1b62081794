// river runs one continuously-growing text stream: a single paced loop
// asks the model to extend the story, readers poll the result, and anyone
// can drop a word into the current.
//
// External dependencies:
//   - Ollama (for text generation)
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ronthekiehn/gpt-river/internal/api"
	"github.com/ronthekiehn/gpt-river/internal/config"
	"github.com/ronthekiehn/gpt-river/internal/contrib"
	"github.com/ronthekiehn/gpt-river/internal/driver"
	"github.com/ronthekiehn/gpt-river/internal/generate"
	"github.com/ronthekiehn/gpt-river/internal/riverlog"
	"github.com/ronthekiehn/gpt-river/internal/runlock"
	"github.com/ronthekiehn/gpt-river/internal/stream"
)

func main() {
	log.Println("gpt-river - one stream, always flowing")
	log.Println("======================================")

	// Load .env file (optional - won't error if missing)
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, using environment variables")
	} else {
		log.Println("[config] Loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Ensure data directory exists
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// The stream has exactly one writer, so exactly one river may run
	// against a data directory
	lock, err := runlock.Acquire(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to acquire run lock: %v", err)
	}

	buf := stream.New(cfg.SeedText, cfg.MaxContext, cfg.MaxStream)
	queue := contrib.NewQueue(cfg.MaxWordLen)
	events := riverlog.New(cfg.DataDir)

	engine := generate.NewClient(cfg.OllamaURL, cfg.Model)
	engine.SetSeedText(cfg.SeedText)
	engine.SetMaxChunk(cfg.MaxChunk)
	engine.SetTimeout(cfg.GenTimeout)
	engine.SetOptions(generate.Options{
		NumPredict:    cfg.NumPredict,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		TopK:          cfg.TopK,
		RepeatPenalty: cfg.RepeatPenalty,
		Seed:          cfg.SampleSeed,
	})
	if !engine.Healthy() {
		log.Printf("Warning: ollama not reachable at %s, first cycles will fail", cfg.OllamaURL)
	}

	drv := driver.New(buf, queue, engine, events, cfg.Interval)
	drv.Start()

	srv := api.NewServer(buf, queue, drv, engine, events)
	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Routes(),
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[main] Shutting down...")
		drv.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("[main] river listening on %s (model: %s, data: %s)", cfg.Addr, cfg.Model, cfg.DataDir)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		lock.Release()
		log.Fatalf("Server error: %v", err)
	}

	if err := lock.Release(); err != nil {
		log.Printf("Warning: failed to release run lock: %v", err)
	}
	log.Println("[main] Goodbye!")
}
