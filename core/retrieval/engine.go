// Package retrieval implements hybrid search over the ingested chunk corpus.
// Two paths run per query: exact/lexical matching against an immutable
// in-memory snapshot, and vector similarity against the pgvector index.
// Results are fused with per-type weights. The vector backend being down is
// a recoverable condition: retrieval degrades to lexical-only and continues.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/clinref/clinref/model"
)

// EmbedFunc is a function that generates embeddings for text
type EmbedFunc func(text string) ([]float32, error)

// VectorSearcher is the vector similarity backend, satisfied by
// database.ChunksDBHandler
type VectorSearcher interface {
	SelectChunksBySimilarity(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*model.Chunk, error)
}

// Engine provides hybrid lexical and vector retrieval
type Engine struct {
	cfg      *model.PipelineConfig
	snapshot []*model.Chunk // immutable after load, ordered by chunk ID
	byID     map[int]*model.Chunk
	position map[int]int // chunk ID -> snapshot position, for tie-breaks
	docs     map[int64]*model.Document
	docList  []*model.Document
	vectors  VectorSearcher
	embed    EmbedFunc
	log      *slog.Logger
}

// NewEngine creates a retrieval engine over the given chunk snapshot and
// document registry. vectors and embed may be nil; the engine then runs
// lexical-only.
func NewEngine(cfg *model.PipelineConfig, snapshot []*model.Chunk, documents []*model.Document, vectors VectorSearcher, embed EmbedFunc, logger *slog.Logger) *Engine {
	engine := &Engine{
		cfg:     cfg,
		vectors: vectors,
		embed:   embed,
		log:     logger,
	}
	engine.Reload(snapshot, documents)
	return engine
}

// Reload swaps in a fresh snapshot and registry. Called only from the
// facade's administrative reload, never during request handling.
func (e *Engine) Reload(snapshot []*model.Chunk, documents []*model.Document) {
	docs := make(map[int64]*model.Document, len(documents))
	for _, doc := range documents {
		docs[doc.ID] = doc
	}
	byID := make(map[int]*model.Chunk, len(snapshot))
	position := make(map[int]int, len(snapshot))
	for i, chunk := range snapshot {
		byID[chunk.ID] = chunk
		position[chunk.ID] = i
	}
	e.snapshot = snapshot
	e.byID = byID
	e.position = position
	e.docs = docs
	e.docList = documents
}

// Document resolves a document from the registry snapshot
func (e *Engine) Document(documentID int64) *model.Document {
	return e.docs[documentID]
}

// Documents returns the registry snapshot in load order
func (e *Engine) Documents() []*model.Document {
	return e.docList
}

// Retrieve performs hybrid retrieval for the query. It never blocks past the
// configured timeout and never fails outright: loss of the vector backend
// degrades to lexical-only results.
func (e *Engine) Retrieve(ctx context.Context, text string, queryType model.QueryType, k int) ([]*model.RetrievalResult, error) {
	if k <= 0 {
		k = e.cfg.TopK
	}

	lexical := e.lexicalSearch(text, k*2)
	semantic := e.vectorSearch(ctx, text, k*2)

	weights := e.cfg.FusionWeightFor(queryType)

	// Fuse both paths by chunk ID
	fused := make(map[int]*model.RetrievalResult)

	for _, result := range lexical {
		fused[result.Chunk.ID] = &model.RetrievalResult{
			Chunk:        result.Chunk,
			LexicalScore: result.LexicalScore,
			Score:        result.LexicalScore * weights.Lexical,
			MatchTier:    result.MatchTier,
		}
	}

	for _, result := range semantic {
		if existing, ok := fused[result.Chunk.ID]; ok {
			existing.SimilarityScore = result.SimilarityScore
			existing.Score += result.SimilarityScore * weights.Semantic
			existing.MatchTier = model.MatchTierFused
		} else {
			fused[result.Chunk.ID] = &model.RetrievalResult{
				Chunk:           result.Chunk,
				SimilarityScore: result.SimilarityScore,
				Score:           result.SimilarityScore * weights.Semantic,
				MatchTier:       model.MatchTierSemantic,
			}
		}
	}

	results := make([]*model.RetrievalResult, 0, len(fused))
	for _, result := range fused {
		results = append(results, result)
	}

	// Ties broken by chunk length descending (prefer more complete context),
	// then snapshot order for full determinism
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		li, lj := len(results[i].Chunk.Content), len(results[j].Chunk.Content)
		if li != lj {
			return li > lj
		}
		return e.position[results[i].Chunk.ID] < e.position[results[j].Chunk.ID]
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// lexicalSearch scores every snapshot chunk by query token coverage of its
// content and its document's filename and display name. A full phrase match
// scores 1.0 and is tagged exact.
func (e *Engine) lexicalSearch(text string, limit int) []*model.RetrievalResult {
	queryTokens := tokenize(text)
	if len(queryTokens) == 0 {
		return nil
	}
	phrase := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	var results []*model.RetrievalResult
	for _, chunk := range e.snapshot {
		content := strings.ToLower(chunk.Content)
		haystack := content
		if doc := e.docs[chunk.DocumentID]; doc != nil {
			haystack += " " + strings.ToLower(doc.Filename) + " " + strings.ToLower(doc.DisplayName)
		}

		tier := model.MatchTierLexical
		var score float64
		if phrase != "" && strings.Contains(haystack, phrase) {
			score = 1.0
			tier = model.MatchTierExact
		} else {
			matched := 0
			for _, token := range queryTokens {
				if strings.Contains(haystack, token) {
					matched++
				}
			}
			score = float64(matched) / float64(len(queryTokens))
		}

		if score > 0 {
			results = append(results, &model.RetrievalResult{
				Chunk:        chunk,
				LexicalScore: score,
				Score:        score,
				MatchTier:    tier,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// vectorSearch embeds the query and runs similarity search with a bounded
// timeout. Any failure degrades to an empty result set.
func (e *Engine) vectorSearch(ctx context.Context, text string, limit int) []*model.RetrievalResult {
	if e.vectors == nil || e.embed == nil {
		return nil
	}

	embedding, err := e.embed(text)
	if err != nil {
		e.log.Warn("Embedding failed, degrading to lexical-only retrieval", slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.RetrieveTimeout)
	defer cancel()

	chunks, err := e.vectors.SelectChunksBySimilarity(ctx, embedding, limit, e.cfg.SimilarityThreshold)
	if err != nil {
		e.log.Warn("Vector backend unavailable, degrading to lexical-only retrieval", slog.String("error", err.Error()))
		return nil
	}

	results := make([]*model.RetrievalResult, 0, len(chunks))
	for _, chunk := range chunks {
		similarity := 0.0
		if chunk.Similarity != nil {
			similarity = *chunk.Similarity
		}
		// The snapshot copy of the chunk keeps tie-break ordering stable
		resolved := e.resolveSnapshotChunk(chunk)
		results = append(results, &model.RetrievalResult{
			Chunk:           resolved,
			SimilarityScore: similarity,
			Score:           similarity,
			MatchTier:       model.MatchTierSemantic,
		})
	}
	return results
}

// resolveSnapshotChunk maps a database row back onto its snapshot instance
// so fusion dedupes on a single chunk identity
func (e *Engine) resolveSnapshotChunk(chunk *model.Chunk) *model.Chunk {
	if snapshot, ok := e.byID[chunk.ID]; ok {
		return snapshot
	}
	return chunk
}

// tokenize lowercases and splits on whitespace, hyphens and slashes
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	lower = strings.ReplaceAll(lower, "-", " ")
	lower = strings.ReplaceAll(lower, "/", " ")

	var tokens []string
	for _, field := range strings.Fields(lower) {
		token := strings.Trim(field, ".,;:?!\"'()")
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
