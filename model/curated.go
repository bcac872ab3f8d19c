package model

import (
	"time"

	"github.com/google/uuid"
)

// CuratedEntry is a pre-verified question/answer pair with known provenance.
// Entries are loaded at process start and read-only at query time.
type CuratedEntry struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Variants  []string  `json:"variants"` // question phrasings this entry answers
	Answer    string    `json:"answer"`
	QueryType QueryType `json:"query_type"`
	Source    string    `json:"source"`  // filename of the backing document
	Anchors   []string  `json:"anchors"` // domain anchor tokens, e.g. "stemi", "ottawa"
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// CuratedMatch is a curated entry that matched a query, with its match score
// and derived confidence.
type CuratedMatch struct {
	Entry      *CuratedEntry `json:"entry"`
	Score      float64       `json:"score"`
	Confidence float64       `json:"confidence"`
}
