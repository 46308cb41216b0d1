package types

import (
	"time"
)

// MaxUploadSize is the upload cap for a single document.
const MaxUploadSize = 10 << 20 // 10 MiB

type FileType string

const (
	FilePDF  FileType = "application/pdf"
	FileText FileType = "text/plain"
)

// Chunk is a staging value produced by the chunker. It is never persisted
// on its own, only converted into a VectorRecord during ingestion.
type Chunk struct {
	Text       string
	Index      int
	DocumentID string
}

// RecordMetadata travels with every stored vector. ChunkText duplicates the
// embedded text verbatim so retrieval can display it without a second lookup.
type RecordMetadata struct {
	DocumentID    string    `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	SourceType    string    `json:"source_type"`
	UploadDate    time.Time `json:"upload_date"`
	ChunkIndex    int       `json:"chunk_index"`
	ChunkText     string    `json:"chunk_text"`
	TotalChunks   int       `json:"total_chunks"`
	FileType      string    `json:"file_type"`
	FileSize      int64     `json:"file_size"`
}

// VectorRecord is the persisted retrieval unit: one embedded chunk plus its
// metadata. ID is unique across the index (document id + chunk index).
type VectorRecord struct {
	ID        string
	Embedding []float32
	Metadata  RecordMetadata
}

// Match is a nearest-neighbour search hit.
type Match struct {
	Metadata RecordMetadata
	Score    float64
}

// ConversationTurn is one message of the exchange the client chooses to
// resend. The server itself keeps no session state.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Source struct {
	DocumentTitle string    `json:"document_title"`
	SourceType    string    `json:"source_type"`
	UploadDate    time.Time `json:"upload_date"`
	ChunkText     string    `json:"chunk_text"`
}

type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type UploadResponse struct {
	Success     bool   `json:"success"`
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	Chunks      int    `json:"chunks"`
	TotalChunks int    `json:"total_chunks"`
	Message     string `json:"message"`
}
