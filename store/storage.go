package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"visamate/types"
)

// VectorStorer is the vector index collaborator: upsert of embedded chunks
// and top-K nearest-neighbour search with metadata.
type VectorStorer interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, records []types.VectorRecord) error
	Query(ctx context.Context, embedding []float32, topK int) ([]types.Match, error)
	Close() error
}

// Index names become SQL identifiers, so they are kept to a strict shape.
var indexNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type PostgresStore struct {
	pool   *pgxpool.Pool
	index  string
	dim    int
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr, index string, dim int) (*PostgresStore, error) {
	if !indexNameRe.MatchString(index) {
		return nil, fmt.Errorf("invalid index name %q", index)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		index:  index,
		dim:    dim,
		logger: slog.Default(),
	}, nil
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS %[1]s (
        id TEXT PRIMARY KEY,
        document_id TEXT NOT NULL,
        document_title TEXT NOT NULL,
        source_type TEXT NOT NULL,
        upload_date TIMESTAMP WITH TIME ZONE NOT NULL,
        chunk_index INT NOT NULL,
        chunk_text TEXT NOT NULL,
        total_chunks INT NOT NULL,
        file_type TEXT,
        file_size BIGINT,
        embedding vector(%[2]d) NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100);

    CREATE INDEX IF NOT EXISTS idx_%[1]s_document_id ON %[1]s(document_id);
    `, p.index, p.dim)

	_, err := p.pool.Exec(ctx, query)
	return err
}

// Upsert writes all records in one transaction so a document is either
// fully indexed or absent.
func (p *PostgresStore) Upsert(ctx context.Context, records []types.VectorRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to upsert")
	}

	query := fmt.Sprintf(`
    INSERT INTO %s (id, document_id, document_title, source_type, upload_date,
                    chunk_index, chunk_text, total_chunks, file_type, file_size, embedding)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    ON CONFLICT (id) DO UPDATE SET
        document_title = EXCLUDED.document_title,
        source_type = EXCLUDED.source_type,
        upload_date = EXCLUDED.upload_date,
        chunk_text = EXCLUDED.chunk_text,
        total_chunks = EXCLUDED.total_chunks,
        file_type = EXCLUDED.file_type,
        file_size = EXCLUDED.file_size,
        embedding = EXCLUDED.embedding
    `, p.index)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		m := rec.Metadata
		batch.Queue(query,
			rec.ID, m.DocumentID, m.DocumentTitle, m.SourceType, m.UploadDate,
			m.ChunkIndex, m.ChunkText, m.TotalChunks, m.FileType, m.FileSize,
			toPgVector(rec.Embedding),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func toPgVector(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%f", x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Query returns the topK nearest records with their metadata, scored by
// cosine similarity in descending order.
func (p *PostgresStore) Query(ctx context.Context, embedding []float32, topK int) ([]types.Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	query := fmt.Sprintf(`
    SELECT document_id, document_title, source_type, upload_date,
           chunk_index, chunk_text, total_chunks, file_type, file_size,
           1 - (embedding <=> $1) AS score
    FROM %s
    ORDER BY embedding <=> $1
    LIMIT $2
    `, p.index)

	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []types.Match
	for rows.Next() {
		var m types.Match
		if err := rows.Scan(
			&m.Metadata.DocumentID,
			&m.Metadata.DocumentTitle,
			&m.Metadata.SourceType,
			&m.Metadata.UploadDate,
			&m.Metadata.ChunkIndex,
			&m.Metadata.ChunkText,
			&m.Metadata.TotalChunks,
			&m.Metadata.FileType,
			&m.Metadata.FileSize,
			&m.Score,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
	return nil
}
