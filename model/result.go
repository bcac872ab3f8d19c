package model

// RetrievalResult represents a chunk retrieved for a query
type RetrievalResult struct {
	Chunk           *Chunk    `json:"chunk"`
	Score           float64   `json:"score"`            // Fused score after weighting
	LexicalScore    float64   `json:"lexical_score"`    // Exact/lexical match score
	SimilarityScore float64   `json:"similarity_score"` // Cosine similarity score
	MatchTier       MatchTier `json:"match_tier"`       // Which search path found it
}
