package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"visamate/chunker"
	"visamate/loader"
	"visamate/model"
	"visamate/store"
	"visamate/types"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	cfg := types.LoadConfig()
	if err := cfg.Check(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	index, err := store.NewPostgresStore(ctx, cfg.VectorDBURL, cfg.VectorIndex, cfg.VectorDim)
	if err != nil {
		log.Fatal("error to connect to vector database: ", err)
	}
	defer index.Close()

	if err := index.Init(ctx); err != nil {
		log.Fatal("error to create index tables: ", err)
	}

	embedder := model.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.EmbedModel)
	ingester := loader.New(chunker.New(cfg.ChunkSize, cfg.ChunkOverlap), embedder, index)

	watcher, err := loader.NewWatcher(watcherConfig(), ingester)
	if err != nil {
		log.Fatal("error to prepare watch directories: ", err)
	}

	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	log.Println("Received shutdown signal, shutting down gracefully...")
	cancel()

	select {
	case <-done:
		log.Println("Watcher stopped successfully")
	case <-time.After(5 * time.Second):
		log.Println("Timeout waiting for watcher to stop, forcing shutdown...")
	}
}

func watcherConfig() loader.WatcherConfig {
	settle := 3 * time.Second
	if v := os.Getenv("LOADER_SETTLE_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			settle = d
		}
	}
	return loader.WatcherConfig{
		SourceDir:    envOr("LOADER_SOURCE_DIR", "data/source"),
		ArchiveDir:   envOr("LOADER_ARCHIVE_DIR", "data/archive"),
		BadDir:       envOr("LOADER_BAD_DIR", "data/bad"),
		SettlePeriod: settle,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustLoadEnvVariables() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
}
