package model

import (
	"time"

	"github.com/google/uuid"
)

// MatchTier records which search path produced a retrieval result
type MatchTier string

const (
	MatchTierExact    MatchTier = "exact"
	MatchTierLexical  MatchTier = "lexical"
	MatchTierSemantic MatchTier = "semantic"
	MatchTierFused    MatchTier = "fused"
)

// Chunk represents a slice of a source document with its embedding.
// Chunks are created at ingestion time and read-only during query handling.
type Chunk struct {
	ID          int       `json:"id"`
	DocumentID  int64     `json:"document_id"`
	DocumentRID uuid.UUID `json:"document_rid"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Page        *int      `json:"page,omitempty"`
	StartPos    *int      `json:"start_pos,omitempty"`
	EndPos      *int      `json:"end_pos,omitempty"`
	ChunkIndex  *int      `json:"chunk_index,omitempty"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// Results
	Similarity *float64 `json:"similarity,omitempty"`
}
