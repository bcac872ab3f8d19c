// Package curated holds the verified question/answer fast path. Entries are
// loaded once at startup into an immutable snapshot; Reload is an explicit
// administrative operation and never a side effect of answering a query.
package curated

import (
	"strings"
	"sync"

	"github.com/clinref/clinref/model"
)

// Store is the in-memory curated fact index. Reads take no locks beyond the
// snapshot pointer; the slice itself is never mutated.
type Store struct {
	cfg *model.PipelineConfig

	mu      sync.RWMutex
	entries []*model.CuratedEntry
}

// NewStore creates a store over the given entries. Slice order must be
// insertion order; it is the tie-break for equal match scores.
func NewStore(cfg *model.PipelineConfig, entries []*model.CuratedEntry) *Store {
	return &Store{
		cfg:     cfg,
		entries: entries,
	}
}

// Reload swaps in a fresh snapshot of entries
func (s *Store) Reload(entries []*model.CuratedEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}

// Len returns the number of loaded entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Lookup finds the best curated entry of the given type for the query text.
// Returns nil when no entry meets the acceptance rule.
func (s *Store) Lookup(text string, queryType model.QueryType) *model.CuratedMatch {
	return s.lookup(text, &queryType)
}

// BestMatchAnyType finds the best curated entry regardless of stored type.
// The router uses it to guard against misclassification amplifying a wrong
// deterministic answer.
func (s *Store) BestMatchAnyType(text string) *model.CuratedMatch {
	return s.lookup(text, nil)
}

func (s *Store) lookup(text string, queryType *model.QueryType) *model.CuratedMatch {
	queryTokens := Tokenize(text)
	if len(queryTokens) == 0 {
		return nil
	}

	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()

	var best *model.CuratedMatch
	for _, entry := range entries {
		if queryType != nil && entry.QueryType != *queryType {
			continue
		}

		score := matchScore(queryTokens, entry)
		accepted := score >= s.cfg.CuratedThreshold || sharesAnchor(queryTokens, entry.Anchors)
		if !accepted {
			continue
		}

		// Strictly greater keeps the earlier entry on ties, so repeated
		// identical queries always resolve to the same entry.
		if best == nil || score > best.Score {
			confidence := s.cfg.CuratedConfidenceBase + score*s.cfg.CuratedConfidenceSlope
			if confidence > 1.0 {
				confidence = 1.0
			}
			best = &model.CuratedMatch{
				Entry:      entry,
				Score:      score,
				Confidence: confidence,
			}
		}
	}

	return best
}

// matchScore is the highest token-overlap ratio between the query and any of
// the entry's question variants
func matchScore(queryTokens map[string]bool, entry *model.CuratedEntry) float64 {
	best := 0.0
	for _, variant := range entry.Variants {
		variantTokens := Tokenize(variant)
		if len(variantTokens) == 0 {
			continue
		}

		overlap := 0
		union := len(variantTokens)
		for token := range queryTokens {
			if variantTokens[token] {
				overlap++
			} else {
				union++
			}
		}

		score := float64(overlap) / float64(union)
		if score > best {
			best = score
		}
	}
	return best
}

// sharesAnchor reports whether the query contains any of the entry's domain
// anchor tokens
func sharesAnchor(queryTokens map[string]bool, anchors []string) bool {
	for _, anchor := range anchors {
		if queryTokens[strings.ToLower(anchor)] {
			return true
		}
	}
	return false
}

// Tokenize normalizes text to a token set: lowercase, collapse whitespace,
// split on hyphens and slashes
func Tokenize(text string) map[string]bool {
	lower := strings.ToLower(text)
	lower = strings.ReplaceAll(lower, "-", " ")
	lower = strings.ReplaceAll(lower, "/", " ")

	tokens := make(map[string]bool)
	for _, field := range strings.Fields(lower) {
		token := strings.Trim(field, ".,;:?!\"'()")
		if token != "" {
			tokens[token] = true
		}
	}
	return tokens
}
