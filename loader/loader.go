// Package loader implements the document ingestion pipeline: validate the
// upload, extract its text, chunk it, embed every chunk and write the
// resulting vector records to the index in one batch.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"visamate/chunker"
	"visamate/model"
	"visamate/store"
	"visamate/types"
)

// defaultSourceType tags uploaded documents until per-document
// classification exists.
const defaultSourceType = "GENERAL"

type Loader struct {
	chunker  *chunker.Chunker
	embedder model.EmbedderInterface
	index    store.VectorStorer
	logger   *slog.Logger
}

func New(ch *chunker.Chunker, embedder model.EmbedderInterface, index store.VectorStorer) *Loader {
	return &Loader{
		chunker:  ch,
		embedder: embedder,
		index:    index,
		logger:   slog.Default(),
	}
}

// Ingest runs one uploaded document through the pipeline. Nothing is
// written to the index unless every chunk embeds successfully, so a failed
// ingestion leaves no partial document behind.
func (l *Loader) Ingest(ctx context.Context, filename, contentType string, data []byte) (*types.UploadResponse, error) {
	if len(data) == 0 {
		return nil, types.NewFault(types.KindInvalidInput, "no file provided")
	}
	if len(data) > types.MaxUploadSize {
		return nil, types.NewFault(types.KindInvalidInput, "file size must be less than 10MB")
	}

	fileType, ok := resolveFileType(contentType, filename)
	if !ok {
		return nil, types.NewFault(types.KindInvalidInput, "only PDF and TXT files are supported")
	}

	text, err := model.ExtractText(data, fileType)
	if err != nil {
		return nil, err
	}

	chunks := l.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, types.NewFault(types.KindNoContent, "no valid text chunks found")
	}

	documentID := "doc_" + uuid.NewString()
	for i := range chunks {
		chunks[i].DocumentID = documentID
	}

	vectors, err := l.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	uploaded := time.Now().UTC()

	records := make([]types.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = types.VectorRecord{
			ID:        fmt.Sprintf("%s_chunk_%d", documentID, chunk.Index),
			Embedding: vectors[i],
			Metadata: types.RecordMetadata{
				DocumentID:    documentID,
				DocumentTitle: title,
				SourceType:    defaultSourceType,
				UploadDate:    uploaded,
				ChunkIndex:    chunk.Index,
				ChunkText:     chunk.Text,
				TotalChunks:   len(chunks),
				FileType:      string(fileType),
				FileSize:      int64(len(data)),
			},
		}
	}

	if err := l.index.Upsert(ctx, records); err != nil {
		return nil, err
	}

	l.logger.Info("document ingested",
		"document_id", documentID,
		"filename", filename,
		"chunks", len(chunks),
	)

	return &types.UploadResponse{
		Success:     true,
		DocumentID:  documentID,
		Filename:    filename,
		Chunks:      len(chunks),
		TotalChunks: len(chunks),
		Message:     fmt.Sprintf("Successfully processed %d chunks from %s", len(chunks), filename),
	}, nil
}

// embedAll requests an embedding for every chunk concurrently and waits for
// the whole fan-out. Results slot in by chunk position, so completion order
// does not matter. Any failure discards all in-flight results.
func (l *Loader) embedAll(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vectors[i], errs[i] = l.embedder.Embed(ctx, chunks[i].Text)
		}(i)
	}
	wg.Wait()

	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if types.KindOf(err).Quota() {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		if types.KindOf(firstErr) == types.KindUnknown {
			return nil, types.WrapFault(types.KindEmbeddingFailure, "failed to generate embeddings", firstErr)
		}
		return nil, firstErr
	}
	return vectors, nil
}

// resolveFileType accepts the declared content type, falling back to the
// file extension when the declaration is absent.
func resolveFileType(contentType, filename string) (types.FileType, bool) {
	switch {
	case strings.HasPrefix(contentType, string(types.FilePDF)):
		return types.FilePDF, true
	case strings.HasPrefix(contentType, string(types.FileText)):
		return types.FileText, true
	}
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".pdf":
			return types.FilePDF, true
		case ".txt":
			return types.FileText, true
		}
	}
	return "", false
}
