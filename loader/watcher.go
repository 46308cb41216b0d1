package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// WatcherConfig describes the drop-directory layout for batch ingestion.
type WatcherConfig struct {
	SourceDir    string
	ArchiveDir   string
	BadDir       string
	SettlePeriod time.Duration
}

// Watcher polls a source directory and feeds settled files through the
// ingestion pipeline. Successfully ingested files move to a dated archive
// directory, failed ones to the bad-file directory. Re-dropping the same
// file ingests it again as a new document.
type Watcher struct {
	cfg    WatcherConfig
	loader *Loader
	logger *slog.Logger

	mu         sync.Mutex
	firstSeen  map[string]time.Time
	processing map[string]bool
}

func NewWatcher(cfg WatcherConfig, l *Loader) (*Watcher, error) {
	for _, dir := range []string{cfg.SourceDir, cfg.ArchiveDir, cfg.BadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	if cfg.SettlePeriod <= 0 {
		cfg.SettlePeriod = 3 * time.Second
	}
	return &Watcher{
		cfg:        cfg,
		loader:     l,
		logger:     slog.Default(),
		firstSeen:  make(map[string]time.Time),
		processing: make(map[string]bool),
	}, nil
}

// Run blocks until ctx is cancelled. One goroutine watches the directory,
// another ingests the files it reports.
func (w *Watcher) Run(ctx context.Context) {
	fileChan := make(chan string, 10)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		w.watch(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for path := range fileChan {
			w.process(ctx, path)
		}
	}()

	wg.Wait()
	w.logger.Info("watcher stopped")
}

func (w *Watcher) watch(ctx context.Context, fileChan chan<- string) {
	w.logger.Info("monitoring folder", "dir", w.cfg.SourceDir)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			entries, err := os.ReadDir(w.cfg.SourceDir)
			if err != nil {
				w.logger.Error("failed to read source directory", "error", err)
				continue
			}

			current := make(map[string]bool)
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				path := filepath.Join(w.cfg.SourceDir, entry.Name())
				current[path] = true

				if ready := w.track(path); !ready {
					continue
				}

				select {
				case fileChan <- path:
				case <-ctx.Done():
					return
				}
			}

			w.forget(current)
		}
	}
}

// track records when a file was first seen and reports whether it has been
// stable long enough to ingest. A file reported ready is marked as
// processing so it is not queued twice.
func (w *Watcher) track(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.processing[path] {
		return false
	}
	seen, exists := w.firstSeen[path]
	if !exists {
		w.firstSeen[path] = time.Now()
		w.logger.Info("new file detected", "path", path)
		return false
	}
	if time.Since(seen) < w.cfg.SettlePeriod {
		return false
	}
	w.processing[path] = true
	return true
}

// forget drops tracking state for files no longer present.
func (w *Watcher) forget(current map[string]bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path := range w.firstSeen {
		if !current[path] {
			delete(w.firstSeen, path)
			delete(w.processing, path)
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("failed to read file", "path", path, "error", err)
		w.moveTo(path, w.cfg.BadDir)
		return
	}

	resp, err := w.loader.Ingest(ctx, filepath.Base(path), "", data)
	if err != nil {
		w.logger.Error("ingestion failed", "path", path, "error", err)
		w.moveTo(path, w.cfg.BadDir)
		return
	}

	w.logger.Info("file ingested", "path", path, "document_id", resp.DocumentID, "chunks", resp.Chunks)
	w.moveTo(path, w.cfg.ArchiveDir)
}

// moveTo copies the file into a dated subdirectory of destRoot and removes
// the original, suffixing the name on conflicts.
func (w *Watcher) moveTo(path, destRoot string) {
	destDir := filepath.Join(destRoot, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(destDir, 0755); err != nil {
		w.logger.Error("failed to create destination directory", "dir", destDir, "error", err)
		return
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	destPath := filepath.Join(destDir, filepath.Base(path))
	for counter := 1; ; counter++ {
		if _, err := os.Stat(destPath); os.IsNotExist(err) {
			break
		}
		destPath = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}

	if err := copyFile(path, destPath); err != nil {
		w.logger.Error("failed to move file", "path", path, "error", err)
		return
	}
	os.Remove(path)
	w.logger.Info("file moved", "dest", destPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
